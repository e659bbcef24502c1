package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme colors
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorRed       = lipgloss.Color("#D14D41")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	positiveStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	negativeStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorBorder)
)

// Align selects how a column's cells are padded.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Aligns is per column; missing entries are left aligned.
	Aligns []Align
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderMuted renders secondary text such as empty-result notes.
func RenderMuted(s string) string {
	return mutedStyle.Render(s)
}

// RenderSigned colours an already formatted amount by its sign.
func RenderSigned(formatted string, negative bool) string {
	if negative {
		return negativeStyle.Render(formatted)
	}
	return positiveStyle.Render(formatted)
}

// RenderTable renders a bordered table with headers and rows. A row holding
// the single cell "---" draws a separator.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = max(widths[i], lipgloss.Width(h))
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < numCols {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var b strings.Builder

	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	writeRule(&b, widths, "╭", "┬", "╮")

	if len(t.Headers) > 0 {
		b.WriteString(dimStyle.Render("│"))
		for i, h := range t.Headers {
			b.WriteString(headerStyle.Render(" " + pad(h, widths[i], AlignLeft) + " "))
			b.WriteString(dimStyle.Render("│"))
		}
		b.WriteString("\n")
		writeRule(&b, widths, "├", "┼", "┤")
	}

	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			writeRule(&b, widths, "├", "┼", "┤")
			continue
		}

		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			align := AlignLeft
			if i < len(t.Aligns) {
				align = t.Aligns[i]
			}
			b.WriteString(valueStyle.Render(" " + pad(cell, widths[i], align) + " "))
			b.WriteString(dimStyle.Render("│"))
		}
		b.WriteString("\n")
	}

	writeRule(&b, widths, "╰", "┴", "╯")
	return b.String()
}

func writeRule(b *strings.Builder, widths []int, left, mid, right string) {
	b.WriteString(dimStyle.Render(left))
	for i, w := range widths {
		b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
		if i < len(widths)-1 {
			b.WriteString(dimStyle.Render(mid))
		}
	}
	b.WriteString(dimStyle.Render(right))
	b.WriteString("\n")
}

func pad(s string, width int, align Align) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	if align == AlignRight {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

// Plural picks the singular or plural noun for n.
func Plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
