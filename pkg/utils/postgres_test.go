package utils

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"
)

func TestPostgresPoolConfig_Defaults(t *testing.T) {
	got := PostgresPoolConfig{MaxOpenConns: 10, MaxIdleConns: 50}.withDefaults()
	if got.MaxIdleConns != 10 {
		t.Fatalf("expected idle conns capped at open conns, got %d", got.MaxIdleConns)
	}
	if got.PingTimeout != 5*time.Second {
		t.Fatalf("expected default ping timeout, got %s", got.PingTimeout)
	}

	zero := PostgresPoolConfig{}.withDefaults()
	if zero.MaxOpenConns != 25 || zero.MaxIdleConns != 25 {
		t.Fatalf("unexpected defaults: %+v", zero)
	}
}

func TestWithTx_JoinsEnclosingTransaction(t *testing.T) {
	outer := &sql.Tx{}
	ctx := context.WithValue(context.Background(), txKey{}, outer)

	var got *sql.Tx
	// A nil db proves no new transaction is begun.
	err := WithTx(ctx, nil, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		got = tx
		if q := Conn(ctx, nil); q != Querier(outer) {
			t.Fatalf("expected Conn to return the enclosing tx")
		}
		return nil
	})
	if err != nil || got != outer {
		t.Fatalf("expected fn to run on the enclosing tx, got tx=%p err=%v", got, err)
	}

	boom := errors.New("boom")
	if err := WithTx(ctx, nil, nil, func(context.Context, *sql.Tx) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected fn error to propagate, got %v", err)
	}
}

func TestConn_WithoutTransactionUsesDB(t *testing.T) {
	db := &sql.DB{}
	if _, ok := TxFromContext(context.Background()); ok {
		t.Fatalf("expected no tx in a bare context")
	}
	if q := Conn(context.Background(), db); q != Querier(db) {
		t.Fatalf("expected db when no tx is open")
	}
}
