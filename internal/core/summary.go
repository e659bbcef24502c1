package core

// Totals compares the sum of all expenses against a salary.
type Totals struct {
	TotalExpense    float64 `json:"total_expense"`
	Salary          float64 `json:"salary"`
	RemainingAmount float64 `json:"remaining_amount"`
}

// ComputeTotals builds Totals from a store sum. When the store has no rows
// (ok is false) the total is reported as zero and the full salary remains.
func ComputeTotals(sum float64, ok bool, salary float64) Totals {
	if !ok {
		sum = 0
	}
	return Totals{
		TotalExpense:    sum,
		Salary:          salary,
		RemainingAmount: salary - sum,
	}
}
