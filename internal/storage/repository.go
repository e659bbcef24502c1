package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"expenses/internal/core"
	"expenses/internal/ports"

	_ "modernc.org/sqlite"
)

// timeLayout is how created_at is stored: UTC text that SQLite's date
// functions understand, at the microsecond precision shared with Postgres.
const timeLayout = "2006-01-02 15:04:05.000000"

var (
	_ ports.Store  = (*SQLiteRepository)(nil)
	_ ports.Pinger = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// withConn runs fn on a connection held only for the duration of the call.
// Any failure, including acquiring the connection, is a PersistenceError.
func (r *SQLiteRepository) withConn(ctx context.Context, op string, fn func(*sql.Conn) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return core.NewPersistenceError(op, err)
	}
	defer conn.Close()
	return core.NewPersistenceError(op, fn(conn))
}

// Create implements ports.ExpenseWriter
func (r *SQLiteRepository) Create(ctx context.Context, in core.NewExpense) (core.Expense, error) {
	in = in.WithDefaults(time.Now())
	in.CreatedAt = in.CreatedAt.Truncate(time.Microsecond)

	var out core.Expense
	err := r.withConn(ctx, "create expense", func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx,
			`INSERT INTO expenses (name, amount, category, created_at) VALUES (?, ?, ?, ?)`,
			in.Name, in.Amount, in.Category, in.CreatedAt.Format(timeLayout))
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		out = in.Materialize(id)
		return nil
	})
	if err != nil {
		return core.Expense{}, err
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", out.ID,
		"name", out.Name,
		"amount", out.Amount,
		"category", out.Category)

	return out, nil
}

// ListAll implements ports.ExpenseLister
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Expense, error) {
	var out []core.Expense
	err := r.withConn(ctx, "list expenses", func(conn *sql.Conn) error {
		var err error
		out, err = queryExpenses(ctx, conn,
			`SELECT id, name, amount, category, created_at FROM expenses ORDER BY id`)
		return err
	})
	return out, err
}

// ListByMonth implements ports.ExpenseLister. Year and month are extracted
// from created_at; a month outside 1-12 simply matches nothing.
func (r *SQLiteRepository) ListByMonth(ctx context.Context, year, month int) ([]core.Expense, error) {
	var out []core.Expense
	err := r.withConn(ctx, "list expenses by month", func(conn *sql.Conn) error {
		var err error
		out, err = queryExpenses(ctx, conn,
			`SELECT id, name, amount, category, created_at
			   FROM expenses
			  WHERE CAST(strftime('%Y', created_at) AS INTEGER) = ?
			    AND CAST(strftime('%m', created_at) AS INTEGER) = ?
			  ORDER BY id`,
			year, month)
		return err
	})
	return out, err
}

// SumAmounts implements ports.ExpenseSummer
func (r *SQLiteRepository) SumAmounts(ctx context.Context) (float64, bool, error) {
	var sum sql.NullFloat64
	err := r.withConn(ctx, "sum amounts", func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, `SELECT SUM(amount) FROM expenses`).Scan(&sum)
	})
	if err != nil {
		return 0, false, err
	}
	return sum.Float64, sum.Valid, nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return core.NewPersistenceError("ping", r.db.PingContext(ctx))
}

func queryExpenses(ctx context.Context, conn *sql.Conn, query string, args ...any) ([]core.Expense, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		var (
			e         core.Expense
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Amount, &e.Category, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at of expense %d: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// parseTime accepts the stored layout and the shorter form produced by the
// column default.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{timeLayout, "2006-01-02 15:04:05.000", time.DateTime} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
