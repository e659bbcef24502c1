package ports

import (
	"context"

	"expenses/internal/core"
)

// Ports for record stores.
type (
	ExpenseWriter interface {
		// Create persists a new expense and returns it with its assigned ID.
		Create(ctx context.Context, e core.NewExpense) (core.Expense, error)
	}

	ExpenseLister interface {
		// ListAll returns every stored expense in store order.
		ListAll(ctx context.Context) ([]core.Expense, error)
		// ListByMonth returns the expenses created in the given calendar year and month.
		ListByMonth(ctx context.Context, year, month int) ([]core.Expense, error)
	}

	// ExpenseSummer aggregates amounts store-side.
	ExpenseSummer interface {
		// SumAmounts returns the sum of every amount. ok is false when the
		// store holds no rows, mirroring SQL's NULL aggregate.
		SumAmounts(ctx context.Context) (total float64, ok bool, err error)
	}

	// Store is the full record store used by the expense service.
	Store interface {
		ExpenseWriter
		ExpenseLister
		ExpenseSummer
	}

	// Pinger is implemented by stores that can report readiness.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// ExpensePublisher announces persisted expenses to other systems.
type ExpensePublisher interface {
	PublishExpenseCreated(ctx context.Context, e core.Expense) error
}
