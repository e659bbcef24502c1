package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/metrics"
	"expenses/internal/ports"
)

// ExpenseService runs expense writes and queries against an injected record
// store, announcing new expenses through an optional publisher.
type ExpenseService struct {
	store     ports.Store
	publisher ports.ExpensePublisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewExpenseService wires the service. publisher and m may be nil.
func NewExpenseService(store ports.Store, publisher ports.ExpensePublisher, m *metrics.Metrics) *ExpenseService {
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
	}
}

// CreateExpense persists one expense and returns it with its assigned ID
// and creation time. A failed notification is logged, never returned.
func (s *ExpenseService) CreateExpense(ctx context.Context, in core.NewExpense) (core.Expense, error) {
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentExpense)

	e, err := s.store.Create(ctx, in.WithDefaults(s.now()))
	if err != nil {
		s.metrics.StoreError(applog.OpCreate)
		logger.ErrorContext(ctx, "Failed to create expense", applog.FieldError, err)
		return core.Expense{}, err
	}
	s.metrics.Created()

	logger.InfoContext(ctx, "Expense created",
		applog.NewFields().WithExpense(e.ID, e.Amount, e.Category).ToSlice()...)

	s.publishCreated(ctx, logger, e)
	return e, nil
}

func (s *ExpenseService) publishCreated(ctx context.Context, logger *applog.Logger, e core.Expense) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseCreated(ctx, e); err != nil {
		logger.WithComponent(applog.ComponentAMQP).WarnContext(ctx, "Failed to publish expense created event",
			applog.FieldOperation, applog.OpPublish, applog.FieldExpenseID, e.ID, applog.FieldError, err)
	}
}

// ListExpenses returns every expense in store order.
func (s *ExpenseService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	items, err := s.store.ListAll(ctx)
	if err != nil {
		s.storeFailed(ctx, applog.OpList, err)
		return nil, err
	}
	return items, nil
}

// ListExpensesByMonth returns the expenses whose creation time falls in the
// given calendar year and month. Months outside 1-12 match nothing.
func (s *ExpenseService) ListExpensesByMonth(ctx context.Context, year, month int) ([]core.Expense, error) {
	items, err := s.store.ListByMonth(ctx, year, month)
	if err != nil {
		s.storeFailed(ctx, applog.OpListByMonth, err, applog.FieldYear, year, applog.FieldMonth, month)
		return nil, err
	}
	applog.FromContext(ctx).WithComponent(applog.ComponentExpense).DebugContext(ctx, "Listed expenses by month",
		applog.FieldYear, year, applog.FieldMonth, month, applog.FieldCount, len(items))
	return items, nil
}

// GetTotals sums every expense and subtracts it from salary. An empty store
// counts as a zero total.
func (s *ExpenseService) GetTotals(ctx context.Context, salary float64) (core.Totals, error) {
	sum, ok, err := s.store.SumAmounts(ctx)
	if err != nil {
		s.storeFailed(ctx, applog.OpTotals, err)
		return core.Totals{}, err
	}
	return core.ComputeTotals(sum, ok, salary), nil
}

// Ping reports store readiness. Stores without a health check are always ready.
func (s *ExpenseService) Ping(ctx context.Context) error {
	if p, ok := s.store.(ports.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *ExpenseService) storeFailed(ctx context.Context, op string, err error, args ...any) {
	s.metrics.StoreError(op)
	applog.FromContext(ctx).WithComponent(applog.ComponentExpense).ErrorContext(ctx, "Store operation failed",
		append([]any{applog.FieldOperation, op, applog.FieldError, err}, args...)...)
}

// Close releases the publisher and the store when they hold resources.
func (s *ExpenseService) Close() error {
	var errs []error

	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if c, ok := s.store.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close expense service: %w", err)
	}
	return nil
}
