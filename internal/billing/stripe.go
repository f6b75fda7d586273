package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeCharger confirms PaymentIntents off-session with the customer's default payment method.
type StripeCharger struct {
	api *client.API
}

// NewStripeCharger builds a charger against the live Stripe API.
func NewStripeCharger(secretKey string) *StripeCharger {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeCharger{api: api}
}

// NewStripeChargerWithBackend points the charger at a custom API base URL.
func NewStripeChargerWithBackend(secretKey, baseURL string) *StripeCharger {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(baseURL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	})
	api := &client.API{}
	api.Init(secretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return &StripeCharger{api: api}
}

func (s *StripeCharger) ChargeOffSession(ctx context.Context, req ChargeRequest) (Receipt, error) {
	if s == nil || s.api == nil {
		return Receipt{}, ErrNotConfigured
	}
	if err := req.validate(); err != nil {
		return Receipt{}, err
	}

	pm, err := s.defaultPaymentMethod(ctx, req.CustomerID)
	if err != nil {
		return Receipt{}, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(MinorUnits(req.Amount)),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		Customer:      stripe.String(req.CustomerID),
		PaymentMethod: stripe.String(pm),
		OffSession:    stripe.Bool(true),
		Confirm:       stripe.Bool(true),
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return Receipt{}, fmt.Errorf("billing: create payment intent: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return Receipt{ID: pi.ID, Status: string(pi.Status)}, fmt.Errorf("%w: status %s", ErrChargeIncomplete, pi.Status)
	}
	return Receipt{
		ID:     pi.ID,
		Status: string(pi.Status),
		Amount: decimal.New(pi.Amount, -2),
	}, nil
}

func (s *StripeCharger) defaultPaymentMethod(ctx context.Context, customerID string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	cust, err := s.api.Customers.Get(customerID, params)
	if err != nil {
		return "", fmt.Errorf("billing: fetch customer: %w", err)
	}
	if cust.InvoiceSettings == nil || cust.InvoiceSettings.DefaultPaymentMethod == nil || cust.InvoiceSettings.DefaultPaymentMethod.ID == "" {
		return "", ErrNoPaymentMethod
	}
	return cust.InvoiceSettings.DefaultPaymentMethod.ID, nil
}
