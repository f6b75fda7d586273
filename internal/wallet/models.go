package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a user's prepaid call balance.
// Invariant: Balance only changes together with an appended Entry.
type Account struct {
	UserID   string          `json:"user_id" db:"user_id"`
	Balance  decimal.Decimal `json:"balance" db:"balance"`
	Currency string          `json:"currency" db:"currency"`

	AutoRefillEnabled bool            `json:"auto_refill_enabled" db:"auto_refill_enabled"`
	AutoRefillAmount  decimal.Decimal `json:"auto_refill_amount" db:"auto_refill_amount"`

	// PaymentCustomerID is the processor customer holding the default payment method.
	PaymentCustomerID string `json:"-" db:"payment_customer_id"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Entry is an immutable append-only balance movement.
type Entry struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	Type LedgerEntryType `json:"type" db:"type"`

	// Amount is signed: credits positive, debits negative.
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after" db:"balance_after"`

	// ExternalRef is the provider call id or payment intent id.
	ExternalRef string `json:"external_ref,omitempty" db:"external_ref"`

	// IdempotencyKey is unique per user; replays return the original entry.
	IdempotencyKey string `json:"idempotency_key" db:"idempotency_key"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type LedgerEntryType string

const (
	LedgerEntryTypeDebit  LedgerEntryType = "call_charge"
	LedgerEntryTypeCredit LedgerEntryType = "auto_refill"
	LedgerEntryTypeManual LedgerEntryType = "manual_credit"
)

// DefaultAutoRefillAmount applies when an account enables auto-refill without an amount.
var DefaultAutoRefillAmount = decimal.NewFromInt(25)

func callKey(callID string) string   { return "call:" + callID }
func refillKey(callID string) string { return "refill:" + callID }
