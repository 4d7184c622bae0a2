package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier là handle mà repository nhận cho MỖI operation.
// pgx.Tx và *pgxpool.Pool đều thỏa interface này, nên repository không cần biết
// mình đang chạy trong transaction hay không.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RowLock là locking clause gắn vào cuối câu SELECT
type RowLock string

const (
	NoLock    RowLock = ""
	ForShare  RowLock = "FOR SHARE"
	ForUpdate RowLock = "FOR UPDATE"
)

// Clause trả về " FOR SHARE" / " FOR UPDATE" hoặc chuỗi rỗng
func (l RowLock) Clause() string {
	if l == NoLock {
		return ""
	}
	return " " + string(l)
}

// Transactor mở một transaction ngắn cho mỗi operation và truyền handle xuống fn.
// Commit nếu fn trả về nil, rollback nếu fn lỗi hoặc panic.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(q Querier) error) error
}

// TxFunc là function type được execute trong transaction
type TxFunc func(pgx.Tx) error

// WithTransaction wraps một function trong transaction
// Auto rollback nếu có error, auto commit nếu success
func WithTransaction(ctx context.Context, pool *pgxpool.Pool, fn TxFunc) (err error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Defer rollback (sẽ bị ignore nếu đã commit)
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// PoolTransactor là Transactor chạy trên pgxpool
type PoolTransactor struct {
	pool *pgxpool.Pool
}

func NewPoolTransactor(pool *pgxpool.Pool) *PoolTransactor {
	return &PoolTransactor{pool: pool}
}

func (t *PoolTransactor) WithinTx(ctx context.Context, fn func(q Querier) error) error {
	return WithTransaction(ctx, t.pool, func(tx pgx.Tx) error {
		return fn(tx)
	})
}

// WithinTxResult wraps function có return value trong transaction
func WithinTxResult[T any](ctx context.Context, t Transactor, fn func(q Querier) (T, error)) (T, error) {
	var result T

	err := t.WithinTx(ctx, func(q Querier) error {
		var fnErr error
		result, fnErr = fn(q)
		return fnErr
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return result, nil
}
