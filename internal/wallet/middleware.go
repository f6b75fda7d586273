package wallet

import (
	"context"
	"errors"
	"net/http"

	"sterling-dialer/internal/auth"
	"sterling-dialer/internal/rbac"

	"github.com/gin-gonic/gin"
)

// BalanceReader is the minimal wallet service interface needed by middleware.
type BalanceReader interface {
	Balance(ctx context.Context, userID string) (Account, error)
}

// RequireFundedAccount blocks the request when the caller cannot pay for another call:
// a non-positive balance without auto-refill. super_admin bypasses.
func RequireFundedAccount(svc BalanceReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := auth.Role(c.Request.Context())
		if rbac.IsSuperAdmin(role) {
			c.Next()
			return
		}

		userID, err := auth.UserID(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
			return
		}

		acct, err := svc.Balance(c.Request.Context(), userID)
		if errors.Is(err, ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "no wallet for user"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "balance lookup failed"})
			return
		}
		if !acct.Balance.IsPositive() && !acct.AutoRefillEnabled {
			// 402 Payment Required is semantically appropriate.
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "insufficient balance"})
			return
		}

		c.Next()
	}
}
