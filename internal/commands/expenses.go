package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"expenses/internal/cli"
	"expenses/internal/core"
	applog "expenses/internal/log"
)

// Flags go before NAME: parsing stops at the first argument so that
// negative amounts are not read as flags.
const addExample = `  expenses add coffee 3,50 food
  expenses add --at 2025-01-31 refund -12 shopping
  expenses --json add bus 2 transport`

func newAddCommand(jsonOut *bool) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:     "add NAME AMOUNT CATEGORY",
		Short:   "Record an expense",
		Example: addExample,
		Args:    addArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseAmount(args[1])
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[1], err)
			}
			in := core.NewExpense{Name: args[0], Amount: amount, Category: args[2]}
			if at != "" {
				if in.CreatedAt, err = parseWhen(at); err != nil {
					return err
				}
			}

			a, err := openApp(cmd, applog.ComponentCLI, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			e, err := a.backend.Service.CreateExpense(cmd.Context(), in)
			if err != nil {
				return err
			}

			if *jsonOut {
				return writeJSON(cmd.OutOrStdout(), e)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added expense #%d: %s %s (%s)\n",
				e.ID, e.Name, cli.FormatAmount(e.Amount), e.Category)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "creation time (RFC 3339 or YYYY-MM-DD, UTC); defaults to now")
	cmd.Flags().SetInterspersed(false)

	return cmd
}

func addArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 3 {
		for _, arg := range args[3:] {
			if strings.HasPrefix(arg, "--") {
				return fmt.Errorf("flag %s must come before NAME", arg)
			}
		}
	}
	return cobra.ExactArgs(3)(cmd, args)
}

func parseWhen(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --at %q: use RFC 3339 or YYYY-MM-DD", s)
}

func newListCommand(jsonOut *bool) *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, optionally for one calendar month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			byMonth := cmd.Flags().Changed("year") || cmd.Flags().Changed("month")
			if byMonth && !(cmd.Flags().Changed("year") && cmd.Flags().Changed("month")) {
				return errors.New("--year and --month must be used together")
			}

			a, err := openApp(cmd, applog.ComponentCLI, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			var items []core.Expense
			title := "Expenses"
			if byMonth {
				items, err = a.backend.Service.ListExpensesByMonth(cmd.Context(), year, month)
				title = fmt.Sprintf("Expenses %04d-%02d", year, month)
			} else {
				items, err = a.backend.Service.ListExpenses(cmd.Context())
			}
			if err != nil {
				return err
			}

			if *jsonOut {
				if items == nil {
					items = []core.Expense{}
				}
				return writeJSON(cmd.OutOrStdout(), items)
			}
			renderExpenses(cmd, title, items)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "calendar year (UTC)")
	cmd.Flags().IntVar(&month, "month", 0, "calendar month 1-12 (UTC)")

	return cmd
}

func renderExpenses(cmd *cobra.Command, title string, items []core.Expense) {
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, cli.RenderMuted("  No expenses found."))
		return
	}

	rows := make([][]string, 0, len(items)+2)
	amounts := make([]float64, 0, len(items))
	for _, e := range items {
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			cli.FormatTime(e.CreatedAt),
			e.Name,
			e.Category,
			cli.FormatAmount(e.Amount),
		})
		amounts = append(amounts, e.Amount)
	}
	rows = append(rows,
		[]string{"---"},
		[]string{"", "", cli.Plural(len(items), "expense", "expenses"), "Total", cli.SumAmounts(amounts).StringFixed(2)},
	)

	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Title:   title,
		Headers: []string{"ID", "Created (UTC)", "Name", "Category", "Amount"},
		Rows:    rows,
		Aligns:  []cli.Align{cli.AlignRight, cli.AlignLeft, cli.AlignLeft, cli.AlignLeft, cli.AlignRight},
	}))
}

func newTotalsCommand(jsonOut *bool) *cobra.Command {
	var salaryArg string

	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Sum every expense and subtract it from a salary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			salary, err := core.ParseAmount(salaryArg)
			if err != nil {
				return fmt.Errorf("salary %q: %w", salaryArg, err)
			}

			a, err := openApp(cmd, applog.ComponentCLI, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			totals, err := a.backend.Service.GetTotals(cmd.Context(), salary)
			if err != nil {
				return err
			}

			if *jsonOut {
				return writeJSON(cmd.OutOrStdout(), totals)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.RenderTitle("TOTALS"))
			fmt.Fprint(out, cli.RenderTable(cli.Table{
				Rows: [][]string{
					{"Total expenses", cli.FormatAmount(totals.TotalExpense)},
					{"Salary", cli.FormatAmount(totals.Salary)},
					{"---"},
					{"Remaining", cli.RenderSigned(cli.FormatAmount(totals.RemainingAmount), totals.RemainingAmount < 0)},
				},
				Aligns: []cli.Align{cli.AlignLeft, cli.AlignRight},
			}))
			return nil
		},
	}
	cmd.Flags().StringVar(&salaryArg, "salary", "", "salary to compare against (required)")
	_ = cmd.MarkFlagRequired("salary")

	return cmd
}
