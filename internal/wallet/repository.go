package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sterling-dialer/pkg/utils"
)

// NOTE: This repository assumes the following tables exist:
// - wallet_accounts (one row per user, balance projection)
// - wallet_entries (immutable append-only)
//
// and UNIQUE (user_id, idempotency_key) on wallet_entries.

// PostgresRepo posts entries under a row lock on the account.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const accountColumns = `user_id, balance, currency, auto_refill_enabled, auto_refill_amount, payment_customer_id, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (Account, error) {
	var a Account
	var customer sql.NullString
	if err := row.Scan(
		&a.UserID,
		&a.Balance,
		&a.Currency,
		&a.AutoRefillEnabled,
		&a.AutoRefillAmount,
		&customer,
		&a.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	a.PaymentCustomerID = customer.String
	return a, nil
}

func (r *PostgresRepo) GetAccount(ctx context.Context, userID string) (Account, error) {
	q := `SELECT ` + accountColumns + ` FROM wallet_accounts WHERE user_id = $1`
	return scanAccount(utils.Conn(ctx, r.db).QueryRowContext(ctx, q, userID))
}

func lockAccount(ctx context.Context, tx *sql.Tx, userID string) (Account, error) {
	// Lock the account row to serialize concurrent money operations per user.
	q := `SELECT ` + accountColumns + ` FROM wallet_accounts WHERE user_id = $1 FOR UPDATE`
	return scanAccount(tx.QueryRowContext(ctx, q, userID))
}

func findEntryByIdempotency(ctx context.Context, tx *sql.Tx, userID, key string) (Entry, bool, error) {
	const q = `
SELECT id, user_id, type, amount, balance_after, external_ref, idempotency_key, created_at
FROM wallet_entries
WHERE user_id = $1 AND idempotency_key = $2
LIMIT 1
`
	var e Entry
	var ref sql.NullString
	err := tx.QueryRowContext(ctx, q, userID, key).Scan(
		&e.ID,
		&e.UserID,
		&e.Type,
		&e.Amount,
		&e.BalanceAfter,
		&ref,
		&e.IdempotencyKey,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	e.ExternalRef = ref.String
	return e, true, nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, e Entry) error {
	const q = `
INSERT INTO wallet_entries (
  id, user_id, type, amount, balance_after, external_ref, idempotency_key, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
)
`
	_, err := tx.ExecContext(ctx, q,
		e.ID,
		e.UserID,
		e.Type,
		e.Amount,
		e.BalanceAfter,
		e.ExternalRef,
		e.IdempotencyKey,
		e.CreatedAt,
	)
	return err
}

func updateBalance(ctx context.Context, tx *sql.Tx, a Account) error {
	const q = `UPDATE wallet_accounts SET balance = $2, updated_at = $3 WHERE user_id = $1`
	_, err := tx.ExecContext(ctx, q, a.UserID, a.Balance, a.UpdatedAt)
	return err
}

// Post appends e and moves the balance by e.Amount in one transaction.
// A replayed idempotency key returns the stored entry with replayed=true.
func (r *PostgresRepo) Post(ctx context.Context, e Entry) (Entry, Account, bool, error) {
	var (
		outEntry Entry
		outAcct  Account
		replayed bool
	)
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		acct, err := lockAccount(ctx, tx, e.UserID)
		if err != nil {
			return err
		}

		if existing, ok, err := findEntryByIdempotency(ctx, tx, e.UserID, e.IdempotencyKey); err != nil {
			return err
		} else if ok {
			outEntry, outAcct, replayed = existing, acct, true
			return nil
		}

		acct.Balance = acct.Balance.Add(e.Amount)
		acct.UpdatedAt = e.CreatedAt
		e.BalanceAfter = acct.Balance
		if err := insertEntry(ctx, tx, e); err != nil {
			return err
		}
		if err := updateBalance(ctx, tx, acct); err != nil {
			return err
		}
		outEntry, outAcct = e, acct
		return nil
	})
	return outEntry, outAcct, replayed, err
}

func (r *PostgresRepo) ListEntries(ctx context.Context, userID string, from, to time.Time) ([]Entry, error) {
	const q = `
SELECT id, user_id, type, amount, balance_after, external_ref, idempotency_key, created_at
FROM wallet_entries
WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at
`
	rows, err := r.db.QueryContext(ctx, q, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ref sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.Amount, &e.BalanceAfter, &ref, &e.IdempotencyKey, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ExternalRef = ref.String
		out = append(out, e)
	}
	return out, rows.Err()
}
