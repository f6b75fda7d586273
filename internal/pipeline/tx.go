package pipeline

import (
	"context"
	"database/sql"

	"sterling-dialer/pkg/utils"
)

// TxRunner runs one completed session's writes as a unit.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PostgresTx opens a transaction that the Postgres repositories join through ctx.
type PostgresTx struct {
	db *sql.DB
}

func NewPostgresTx(db *sql.DB) *PostgresTx { return &PostgresTx{db: db} }

func (t *PostgresTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return utils.WithTx(ctx, t.db, &sql.TxOptions{}, func(ctx context.Context, _ *sql.Tx) error {
		return fn(ctx)
	})
}

// directTx runs fn as-is. Memory repositories have no rollback, so the commit
// order alone decides what a failed session leaves behind.
type directTx struct{}

func (directTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
