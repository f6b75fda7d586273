package billing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func fakeStripe(t *testing.T, customerJSON, intentJSON string, gotForm *string, gotIdem *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/customers/"):
			_, _ = w.Write([]byte(customerJSON))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/payment_intents":
			_ = r.ParseForm()
			if gotForm != nil {
				*gotForm = r.PostForm.Encode()
			}
			if gotIdem != nil {
				*gotIdem = r.Header.Get("Idempotency-Key")
			}
			_, _ = w.Write([]byte(intentJSON))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestStripeCharger_ChargesDefaultPaymentMethod(t *testing.T) {
	var form, idem string
	srv := fakeStripe(t,
		`{"id":"cus_1","object":"customer","invoice_settings":{"default_payment_method":"pm_1"}}`,
		`{"id":"pi_1","object":"payment_intent","status":"succeeded","amount":2500,"currency":"usd"}`,
		&form, &idem,
	)
	defer srv.Close()

	c := NewStripeChargerWithBackend("sk_test_x", srv.URL)
	rec, err := c.ChargeOffSession(context.Background(), ChargeRequest{
		CustomerID:     "cus_1",
		Amount:         decimal.NewFromInt(25),
		Currency:       "USD",
		IdempotencyKey: "refill:call_1",
		Metadata:       map[string]string{"user_id": "u1"},
	})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if rec.ID != "pi_1" || !rec.Amount.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("unexpected receipt %+v", rec)
	}
	for _, want := range []string{"amount=2500", "off_session=true", "confirm=true", "payment_method=pm_1", "currency=usd"} {
		if !strings.Contains(form, want) {
			t.Fatalf("expected %q in form %q", want, form)
		}
	}
	if idem != "refill:call_1" {
		t.Fatalf("expected idempotency key forwarded, got %q", idem)
	}
}

func TestStripeCharger_NoDefaultPaymentMethod(t *testing.T) {
	srv := fakeStripe(t, `{"id":"cus_1","object":"customer","invoice_settings":{}}`, `{}`, nil, nil)
	defer srv.Close()

	c := NewStripeChargerWithBackend("sk_test_x", srv.URL)
	_, err := c.ChargeOffSession(context.Background(), ChargeRequest{
		CustomerID: "cus_1", Amount: decimal.NewFromInt(25), Currency: "usd", IdempotencyKey: "k",
	})
	if !errors.Is(err, ErrNoPaymentMethod) {
		t.Fatalf("expected ErrNoPaymentMethod, got %v", err)
	}
}

func TestStripeCharger_RequiresAction(t *testing.T) {
	srv := fakeStripe(t,
		`{"id":"cus_1","object":"customer","invoice_settings":{"default_payment_method":"pm_1"}}`,
		`{"id":"pi_2","object":"payment_intent","status":"requires_action","amount":2500}`,
		nil, nil,
	)
	defer srv.Close()

	c := NewStripeChargerWithBackend("sk_test_x", srv.URL)
	_, err := c.ChargeOffSession(context.Background(), ChargeRequest{
		CustomerID: "cus_1", Amount: decimal.NewFromInt(25), Currency: "usd", IdempotencyKey: "k",
	})
	if !errors.Is(err, ErrChargeIncomplete) {
		t.Fatalf("expected ErrChargeIncomplete, got %v", err)
	}
}

func TestChargeRequest_Validate(t *testing.T) {
	var c *StripeCharger
	if _, err := c.ChargeOffSession(context.Background(), ChargeRequest{}); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	bad := []ChargeRequest{
		{Amount: decimal.NewFromInt(1), Currency: "usd", IdempotencyKey: "k"},
		{CustomerID: "c", Amount: decimal.Zero, Currency: "usd", IdempotencyKey: "k"},
		{CustomerID: "c", Amount: decimal.NewFromInt(1), Currency: "usd"},
	}
	for i, r := range bad {
		if err := r.validate(); err != ErrInvalidCharge {
			t.Fatalf("case %d: expected ErrInvalidCharge, got %v", i, err)
		}
	}
	if MinorUnits(decimal.RequireFromString("25.005")) != 2501 {
		t.Fatalf("expected half-up rounding to cents")
	}
}
