package billing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ChargeRequest is an off-session charge against a customer's stored payment method.
type ChargeRequest struct {
	CustomerID string
	Amount     decimal.Decimal
	Currency   string
	// IdempotencyKey is forwarded to the processor so a retried refill never charges twice.
	IdempotencyKey string
	Description    string
	Metadata       map[string]string
}

type Receipt struct {
	ID     string
	Status string
	Amount decimal.Decimal
}

// Charger charges a customer without them being present.
type Charger interface {
	ChargeOffSession(ctx context.Context, req ChargeRequest) (Receipt, error)
}

var (
	ErrInvalidCharge    = errors.New("billing: invalid charge request")
	ErrNoPaymentMethod  = errors.New("billing: customer has no default payment method")
	ErrChargeIncomplete = errors.New("billing: charge did not succeed")
	ErrNotConfigured    = errors.New("billing: payment processor not configured")
)

// MinorUnits converts a decimal amount to integer cents.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func (r ChargeRequest) validate() error {
	if r.CustomerID == "" || r.Currency == "" || r.IdempotencyKey == "" {
		return ErrInvalidCharge
	}
	if MinorUnits(r.Amount) <= 0 {
		return ErrInvalidCharge
	}
	return nil
}
