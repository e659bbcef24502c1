package core

import (
	"time"
)

type (
	// Expense is a persisted expense record.
	Expense struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		Amount    float64   `json:"amount"`
		Category  string    `json:"category"`
		CreatedAt time.Time `json:"created_at"`
	}

	// NewExpense holds the fields accepted when creating an expense.
	// A zero CreatedAt means "at insertion time".
	NewExpense struct {
		Name      string
		Amount    float64
		Category  string
		CreatedAt time.Time
	}
)

// WithDefaults fills CreatedAt with now when it was not supplied and
// normalizes it to UTC, which is the zone every store filters in.
func (n NewExpense) WithDefaults(now time.Time) NewExpense {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.CreatedAt = n.CreatedAt.UTC()
	return n
}

// Materialize builds the stored record for id.
func (n NewExpense) Materialize(id int64) Expense {
	return Expense{
		ID:        id,
		Name:      n.Name,
		Amount:    n.Amount,
		Category:  n.Category,
		CreatedAt: n.CreatedAt,
	}
}

// InMonth reports whether the expense was created in the given calendar
// year and month (UTC). Out-of-range months never match.
func (e Expense) InMonth(year, month int) bool {
	t := e.CreatedAt.UTC()
	return t.Year() == year && int(t.Month()) == month
}
