package wallet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"sterling-dialer/internal/auth"
	"sterling-dialer/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type fakeBalanceReader struct {
	acct Account
	err  error
}

func (f fakeBalanceReader) Balance(ctx context.Context, userID string) (Account, error) {
	return f.acct, f.err
}

func serveFunded(role string, svc BalanceReader) int {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/x", func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "u1", role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}, RequireFundedAccount(svc), func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
	return w.Code
}

func TestRequireFundedAccount_BlocksEmptyWallet(t *testing.T) {
	svc := fakeBalanceReader{acct: Account{UserID: "u1", Balance: decimal.Zero}}
	if code := serveFunded(rbac.RoleOwner, svc); code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", code)
	}
}

func TestRequireFundedAccount_AllowsAutoRefill(t *testing.T) {
	svc := fakeBalanceReader{acct: Account{UserID: "u1", Balance: decimal.Zero, AutoRefillEnabled: true}}
	if code := serveFunded(rbac.RoleOwner, svc); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireFundedAccount_AllowsAdminOverride(t *testing.T) {
	svc := fakeBalanceReader{err: ErrNotFound}
	if code := serveFunded(rbac.RoleSuperAdmin, svc); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := serveFunded(rbac.RoleOwner, svc); code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 for missing wallet, got %d", code)
	}
}
