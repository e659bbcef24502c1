// Package postgres is the PostgreSQL record store, selected with
// DATA_BACKEND=postgres.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"expenses/internal/core"
	"expenses/internal/ports"
	"expenses/internal/storage"

	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	_ ports.Store  = (*Repository)(nil)
	_ ports.Pinger = (*Repository)(nil)
)

type Repository struct {
	pool *pgxpool.Pool
}

// NewPool opens a bounded pool and fails fast when the server is unreachable.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Open migrates the schema at url and returns a repository backed by a new pool.
func Open(ctx context.Context, url string) (*Repository, error) {
	if err := RunMigrations(url); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	pool, err := NewPool(ctx, url)
	if err != nil {
		return nil, err
	}
	return New(pool), nil
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

// RunMigrations brings the schema at url up to date.
func RunMigrations(url string) error {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer db.Close()

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return fmt.Errorf("create pgx driver: %w", err)
	}

	return storage.Migrate(migrationsFS, "pgx5", driver)
}

// withConn acquires a pooled connection for the duration of fn and
// returns it on every path.
func (r *Repository) withConn(ctx context.Context, op string, fn func(*pgxpool.Conn) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return core.NewPersistenceError(op, err)
	}
	defer conn.Release()
	return core.NewPersistenceError(op, fn(conn))
}

func (r *Repository) Create(ctx context.Context, in core.NewExpense) (core.Expense, error) {
	in = in.WithDefaults(time.Now())
	in.CreatedAt = in.CreatedAt.Truncate(time.Microsecond)

	var out core.Expense
	err := r.withConn(ctx, "create expense", func(conn *pgxpool.Conn) error {
		var id int64
		if err := conn.QueryRow(ctx,
			`INSERT INTO expenses (name, amount, category, created_at)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			in.Name, in.Amount, in.Category, in.CreatedAt,
		).Scan(&id); err != nil {
			return err
		}
		out = in.Materialize(id)
		return nil
	})
	if err != nil {
		return core.Expense{}, err
	}

	slog.DebugContext(ctx, "Expense saved to Postgres", "id", out.ID, "category", out.Category)
	return out, nil
}

func (r *Repository) ListAll(ctx context.Context) ([]core.Expense, error) {
	var out []core.Expense
	err := r.withConn(ctx, "list expenses", func(conn *pgxpool.Conn) error {
		var err error
		out, err = queryExpenses(ctx, conn,
			`SELECT id, name, amount, category, created_at FROM expenses ORDER BY id`)
		return err
	})
	return out, err
}

func (r *Repository) ListByMonth(ctx context.Context, year, month int) ([]core.Expense, error) {
	var out []core.Expense
	err := r.withConn(ctx, "list expenses by month", func(conn *pgxpool.Conn) error {
		var err error
		out, err = queryExpenses(ctx, conn,
			`SELECT id, name, amount, category, created_at
			   FROM expenses
			  WHERE EXTRACT(YEAR FROM created_at AT TIME ZONE 'UTC') = $1
			    AND EXTRACT(MONTH FROM created_at AT TIME ZONE 'UTC') = $2
			  ORDER BY id`,
			year, month)
		return err
	})
	return out, err
}

func (r *Repository) SumAmounts(ctx context.Context) (float64, bool, error) {
	var sum *float64
	err := r.withConn(ctx, "sum amounts", func(conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, `SELECT SUM(amount) FROM expenses`).Scan(&sum)
	})
	if err != nil {
		return 0, false, err
	}
	if sum == nil {
		return 0, false, nil
	}
	return *sum, true, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return core.NewPersistenceError("ping", r.pool.Ping(ctx))
}

func queryExpenses(ctx context.Context, conn *pgxpool.Conn, query string, args ...any) ([]core.Expense, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Expense, error) {
		var e core.Expense
		err := row.Scan(&e.ID, &e.Name, &e.Amount, &e.Category, &e.CreatedAt)
		e.CreatedAt = e.CreatedAt.UTC()
		return e, err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Expense{}
	}
	return out, nil
}
