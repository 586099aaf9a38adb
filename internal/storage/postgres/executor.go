package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"redirect_service/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is what an operation may do with a borrowed connection.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Conn interface {
	Querier
	Release()
}

type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
}

type pgxPool struct {
	pool *pgxpool.Pool
}

func (p pgxPool) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	return conn, nil
}

// Executor borrows exactly one connection per operation and always gives it back.
type Executor struct {
	pool           Pool
	acquireTimeout time.Duration
}

func NewExecutor(pool Pool, acquireTimeout time.Duration) *Executor {
	return &Executor{
		pool:           pool,
		acquireTimeout: acquireTimeout,
	}
}

// Run acquires a connection, hands it to fn and releases it on every exit
// path, panics included. Any failure is returned as *storage.DatabaseError.
func (e *Executor) Run(ctx context.Context, op string, fn func(ctx context.Context, q Querier) error) error {
	conn, err := e.acquire(ctx)
	if err != nil {
		return &storage.DatabaseError{Op: op, Err: err}
	}
	defer conn.Release()

	if err := fn(ctx, conn); err != nil {
		return &storage.DatabaseError{Op: op, Err: err}
	}

	return nil
}

func (e *Executor) acquire(ctx context.Context) (Conn, error) {
	if e.acquireTimeout <= 0 {
		return e.pool.Acquire(ctx)
	}

	acquireCtx, cancel := context.WithTimeout(ctx, e.acquireTimeout)
	defer cancel()

	conn, err := e.pool.Acquire(acquireCtx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(acquireCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", storage.ErrPoolTimeout, err)
		}

		return nil, err
	}

	return conn, nil
}

// QueryOne scans a single row into dest. Zero rows is found == false, not an error.
func (e *Executor) QueryOne(ctx context.Context, op, sql string, args []any, dest ...any) (bool, error) {
	found := true

	err := e.Run(ctx, op, func(ctx context.Context, q Querier) error {
		err := q.QueryRow(ctx, sql, args...).Scan(dest...)
		if errors.Is(err, pgx.ErrNoRows) {
			found = false
			return nil
		}

		return err
	})
	if err != nil {
		return false, err
	}

	return found, nil
}

// Exec returns the number of affected rows.
func (e *Executor) Exec(ctx context.Context, op, sql string, args ...any) (int64, error) {
	var affected int64

	err := e.Run(ctx, op, func(ctx context.Context, q Querier) error {
		tag, err := q.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}

		affected = tag.RowsAffected()
		return nil
	})

	return affected, err
}

// QueryAll collects every row into T by column name.
func QueryAll[T any](ctx context.Context, e *Executor, op, sql string, args ...any) ([]T, error) {
	var out []T

	err := e.Run(ctx, op, func(ctx context.Context, q Querier) error {
		rows, err := q.Query(ctx, sql, args...)
		if err != nil {
			return err
		}

		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[T])
		return err
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
