package google

import (
	"strings"
	"testing"
	"time"

	"expenses/internal/core"
)

func TestParseRows(t *testing.T) {
	values := [][]interface{}{
		{"id", "name", "amount", "category", "created_at"},
		{1.0, "coffee", 3.5, "food", "2025-01-15T08:00:00Z"},
		{},
		{"2", "bus", "2,10", "transport", "2025-02-01T00:30:00+01:00"},
		{3.0, 1234.0, -5.0, "", "2025-02-03T10:00:00.123456Z"},
	}
	got, err := parseRows(values)
	if err != nil {
		t.Fatalf("parseRows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 expenses, got %d: %+v", len(got), got)
	}

	if got[0].ID != 1 || got[0].Name != "coffee" || got[0].Amount != 3.5 || got[0].Category != "food" {
		t.Errorf("unexpected first row %+v", got[0])
	}
	if got[1].Amount != 2.1 {
		t.Errorf("comma amount: got %v", got[1].Amount)
	}
	// created_at is normalized to UTC, moving this one into January.
	if !got[1].InMonth(2025, 1) {
		t.Errorf("expected %v to fall in 2025-01", got[1].CreatedAt)
	}
	if got[2].Name != "1234" || got[2].Category != "" {
		t.Errorf("numeric name not preserved: %+v", got[2])
	}
	want := time.Date(2025, 2, 3, 10, 0, 0, 123456000, time.UTC)
	if !got[2].CreatedAt.Equal(want) {
		t.Errorf("created_at = %v, want %v", got[2].CreatedAt, want)
	}
}

func TestParseRows_Empty(t *testing.T) {
	for _, values := range [][][]interface{}{nil, {{"id", "name", "amount", "category", "created_at"}}} {
		got, err := parseRows(values)
		if err != nil {
			t.Fatalf("parseRows: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Fatalf("expected empty non-nil slice, got %#v", got)
		}
	}
}

func TestParseRows_Malformed(t *testing.T) {
	tests := []struct {
		name string
		row  []interface{}
		want string
	}{
		{"short row", []interface{}{1.0, "x"}, "expected 5 columns"},
		{"bad id", []interface{}{"abc", "x", 1.0, "c", "2025-01-01T00:00:00Z"}, "id"},
		{"fractional id", []interface{}{1.5, "x", 1.0, "c", "2025-01-01T00:00:00Z"}, "id"},
		{"bad amount", []interface{}{1.0, "x", "ten", "c", "2025-01-01T00:00:00Z"}, "amount"},
		{"bad date", []interface{}{1.0, "x", 1.0, "c", "15/01/2025"}, "created_at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRows([][]interface{}{tt.row})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "row 1") || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention row 1 and %q", err, tt.want)
			}
		})
	}
}

func TestFormatRowRoundTrip(t *testing.T) {
	e := core.Expense{
		ID:        7,
		Name:      "rent",
		Amount:    800,
		Category:  "housing",
		CreatedAt: time.Date(2025, 5, 1, 9, 0, 0, 500, time.FixedZone("CEST", 7200)),
	}
	row := formatRow(e)
	if len(row) != len(header) {
		t.Fatalf("row has %d columns, want %d", len(row), len(header))
	}
	got, err := parseRow(row)
	if err != nil {
		t.Fatalf("parseRow: %v", err)
	}
	if got.ID != e.ID || got.Name != e.Name || got.Amount != e.Amount || !got.CreatedAt.Equal(e.CreatedAt) {
		t.Errorf("round trip = %+v, want %+v", got, e)
	}
}
