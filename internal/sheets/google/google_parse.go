package google

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"expenses/internal/core"
)

var header = []string{"id", "name", "amount", "category", "created_at"}

func headerRow() []any {
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	return row
}

func isHeader(row []interface{}) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(fmt.Sprint(row[0])), header[0])
}

func formatRow(e core.Expense) []any {
	return []any{e.ID, e.Name, e.Amount, e.Category, e.CreatedAt.UTC().Format(time.RFC3339Nano)}
}

// parseRows converts a values matrix (as returned by the Sheets API) into
// expenses. A leading header row and fully blank rows are skipped; any other
// row that cannot be read is an error naming its sheet row number.
func parseRows(values [][]interface{}) ([]core.Expense, error) {
	out := []core.Expense{}
	for i, row := range values {
		if i == 0 && isHeader(row) {
			continue
		}
		if isBlank(row) {
			continue
		}
		e, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func parseRow(row []interface{}) (core.Expense, error) {
	if len(row) < len(header) {
		return core.Expense{}, fmt.Errorf("expected %d columns, got %d", len(header), len(row))
	}
	id, err := cellInt(row[0])
	if err != nil {
		return core.Expense{}, fmt.Errorf("id: %w", err)
	}
	amount, err := cellFloat(row[2])
	if err != nil {
		return core.Expense{}, fmt.Errorf("amount: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(cellString(row[4])))
	if err != nil {
		return core.Expense{}, fmt.Errorf("created_at: %w", err)
	}
	return core.Expense{
		ID:        id,
		Name:      cellString(row[1]),
		Amount:    amount,
		Category:  cellString(row[3]),
		CreatedAt: createdAt.UTC(),
	}, nil
}

func isBlank(row []interface{}) bool {
	for _, v := range row {
		if strings.TrimSpace(cellString(v)) != "" {
			return false
		}
	}
	return true
}

func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func cellFloat(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		return core.ParseAmount(x)
	default:
		return 0, fmt.Errorf("unexpected value %v", v)
	}
}

func cellInt(v interface{}) (int64, error) {
	f, err := cellFloat(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f < 1 {
		return 0, fmt.Errorf("not a positive integer: %v", v)
	}
	return int64(f), nil
}
