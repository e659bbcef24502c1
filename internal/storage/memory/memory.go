package memory

import (
	"context"
	"sync"
	"time"

	"expenses/internal/core"
	"expenses/internal/ports"
)

var (
	_ ports.Store  = (*Store)(nil)
	_ ports.Pinger = (*Store)(nil)
)

// Store keeps expenses in process memory. It backs the "memory" data
// backend and the service tests.
type Store struct {
	mu     sync.Mutex
	items  []core.Expense
	nextID int64
	fail   error
}

func New() *Store {
	return &Store{nextID: 1}
}

// Fail makes every following operation return err wrapped in a
// PersistenceError, simulating an unavailable store. Fail(nil) recovers.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Create stores the expense and assigns the next sequential ID.
func (s *Store) Create(_ context.Context, in core.NewExpense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return core.Expense{}, core.NewPersistenceError("create expense", s.fail)
	}
	e := in.WithDefaults(time.Now()).Materialize(s.nextID)
	s.nextID++
	s.items = append(s.items, e)
	return e, nil
}

func (s *Store) ListAll(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, core.NewPersistenceError("list expenses", s.fail)
	}
	return append([]core.Expense{}, s.items...), nil
}

func (s *Store) ListByMonth(_ context.Context, year, month int) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, core.NewPersistenceError("list expenses by month", s.fail)
	}
	out := []core.Expense{}
	for _, e := range s.items {
		if e.InMonth(year, month) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) SumAmounts(_ context.Context) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return 0, false, core.NewPersistenceError("sum amounts", s.fail)
	}
	if len(s.items) == 0 {
		return 0, false, nil
	}
	var total float64
	for _, e := range s.items {
		total += e.Amount
	}
	return total, true, nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return core.NewPersistenceError("ping", s.fail)
	}
	return nil
}
