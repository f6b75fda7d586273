package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sterling-dialer/internal/billing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service provides balance operations.
//
// Money invariants:
// - No balance change without an appended entry
// - Entries are append-only
// - Every post runs in one transaction under the account row lock
//
// Processor charges never run inside that transaction.
type Service struct {
	repo  Repository
	floor decimal.Decimal
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

// Repository is the storage contract; Post must be atomic and idempotent per key.
type Repository interface {
	GetAccount(ctx context.Context, userID string) (Account, error)
	Post(ctx context.Context, e Entry) (Entry, Account, bool, error)
	ListEntries(ctx context.Context, userID string, from, to time.Time) ([]Entry, error)
}

func NewService(repo Repository, refillFloor decimal.Decimal) *Service {
	return &Service{repo: repo, floor: refillFloor, clock: time.Now}
}

var (
	ErrNotFound        = errors.New("wallet: account not found")
	ErrInvalidArgument = errors.New("wallet: invalid argument")
	// ErrRefillNotNeeded is returned by AutoRefill when the account is above the floor or opted out.
	ErrRefillNotNeeded = errors.New("wallet: refill not needed")
)

// ChargeResult is the outcome of debiting one call.
type ChargeResult struct {
	Entry    Entry
	Account  Account
	Replayed bool
	// NeedsRefill is set when auto-refill is on and the new balance is under the floor.
	NeedsRefill bool
}

type RefillResult struct {
	Entry   Entry
	Account Account
	Receipt billing.Receipt
}

func (s *Service) Balance(ctx context.Context, userID string) (Account, error) {
	if userID == "" {
		return Account{}, ErrInvalidArgument
	}
	return s.repo.GetAccount(ctx, userID)
}

func (s *Service) Entries(ctx context.Context, userID string, from, to time.Time) ([]Entry, error) {
	if userID == "" || !to.After(from) {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListEntries(ctx, userID, from, to)
}

// ChargeCall debits cost for a provider call id. A balance may go negative:
// the call already happened.
func (s *Service) ChargeCall(ctx context.Context, userID, callID string, cost decimal.Decimal) (ChargeResult, error) {
	if userID == "" || callID == "" || cost.IsNegative() {
		return ChargeResult{}, ErrInvalidArgument
	}
	if cost.IsZero() {
		acct, err := s.repo.GetAccount(ctx, userID)
		return ChargeResult{Account: acct}, err
	}

	e, acct, replayed, err := s.repo.Post(ctx, Entry{
		ID:             uuid.NewString(),
		UserID:         userID,
		Type:           LedgerEntryTypeDebit,
		Amount:         cost.Neg(),
		ExternalRef:    callID,
		IdempotencyKey: callKey(callID),
		CreatedAt:      s.clock().UTC(),
	})
	if err != nil {
		return ChargeResult{}, err
	}
	return ChargeResult{
		Entry:       e,
		Account:     acct,
		Replayed:    replayed,
		NeedsRefill: !replayed && s.belowFloor(acct),
	}, nil
}

// Credit adds amount under an idempotency key.
func (s *Service) Credit(ctx context.Context, userID string, amount decimal.Decimal, typ LedgerEntryType, key, ref string) (Entry, Account, error) {
	if userID == "" || key == "" || !amount.IsPositive() {
		return Entry{}, Account{}, ErrInvalidArgument
	}
	e, acct, _, err := s.repo.Post(ctx, Entry{
		ID:             uuid.NewString(),
		UserID:         userID,
		Type:           typ,
		Amount:         amount,
		ExternalRef:    ref,
		IdempotencyKey: key,
		CreatedAt:      s.clock().UTC(),
	})
	return e, acct, err
}

// AutoRefill charges the account's refill amount off-session and credits it on success.
// It re-reads the account first so a concurrent refill that already landed skips this one.
// Callers must not hold the per-user critical section.
func (s *Service) AutoRefill(ctx context.Context, userID, callID string, charger billing.Charger) (RefillResult, error) {
	if userID == "" || callID == "" {
		return RefillResult{}, ErrInvalidArgument
	}
	if charger == nil {
		return RefillResult{}, billing.ErrNotConfigured
	}
	acct, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		return RefillResult{}, err
	}
	if !s.belowFloor(acct) {
		return RefillResult{Account: acct}, ErrRefillNotNeeded
	}

	amount := acct.AutoRefillAmount
	if !amount.IsPositive() {
		amount = DefaultAutoRefillAmount
	}

	receipt, err := charger.ChargeOffSession(ctx, billing.ChargeRequest{
		CustomerID:     acct.PaymentCustomerID,
		Amount:         amount,
		Currency:       acct.Currency,
		IdempotencyKey: refillKey(callID),
		Description:    "AI calling balance auto-refill",
		Metadata:       map[string]string{"user_id": userID, "call_id": callID},
	})
	if err != nil {
		return RefillResult{Account: acct, Receipt: receipt}, fmt.Errorf("wallet: auto-refill charge: %w", err)
	}

	e, out, err := s.Credit(ctx, userID, amount, LedgerEntryTypeCredit, refillKey(callID), receipt.ID)
	if err != nil {
		return RefillResult{Account: acct, Receipt: receipt}, fmt.Errorf("wallet: auto-refill credit after charge %s: %w", receipt.ID, err)
	}
	return RefillResult{Entry: e, Account: out, Receipt: receipt}, nil
}

func (s *Service) belowFloor(a Account) bool {
	return a.AutoRefillEnabled && a.Balance.LessThan(s.floor)
}
