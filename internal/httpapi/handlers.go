package httpapi

import (
	"errors"
	"net/http"
	"time"

	"sterling-dialer/internal/audit"
	"sterling-dialer/internal/auth"
	"sterling-dialer/internal/campaign"
	"sterling-dialer/internal/rbac"
	"sterling-dialer/internal/reporting"
	"sterling-dialer/internal/users"
	"sterling-dialer/internal/wallet"
	"sterling-dialer/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth       *auth.Manager
	Wallet     *wallet.Service
	Campaign   *campaign.Service
	Dispatcher campaign.Dispatcher
	Reports    *reporting.Service
	Users      users.Repository
	Audit      *audit.Service
	Webhooks   WebhookProcessor

	// Location is the fallback timezone for reports.
	Location *time.Location
	// DevLogin enables the credential-less token endpoint outside production.
	DevLogin bool
}

func identity(c *gin.Context) (userID, role string, ok bool) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return "", "", false
	}
	r, _ := auth.Role(c.Request.Context())
	return uid, r, true
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: local/dev only. Identity issuance belongs to the dashboard's auth provider.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil || !h.DevLogin {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Campaign ---

func (h Handlers) CampaignStatus(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	st, err := h.Campaign.Get(c.Request.Context(), userID)
	if err != nil {
		h.campaignError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// CampaignStart is the explicit restart: it resumes a stopped campaign and queues the first call.
func (h Handlers) CampaignStart(c *gin.Context) {
	userID, role, ok := identity(c)
	if !ok {
		return
	}
	st, err := h.Campaign.Start(c.Request.Context(), userID)
	if err != nil {
		h.campaignError(c, err)
		return
	}
	dispatched := h.Dispatcher != nil && h.Dispatcher.Dispatch(userID)
	if h.Audit != nil {
		if err := h.Audit.LogCampaignStarted(c.Request.Context(), userID, userID, role, c.ClientIP()); err != nil {
			logger.FromGin(c).Warn("audit append failed", "err", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"state": st, "nextCallTriggered": dispatched})
}

func (h Handlers) CampaignStop(c *gin.Context) {
	userID, role, ok := identity(c)
	if !ok {
		return
	}
	st, err := h.Campaign.Stop(c.Request.Context(), userID, campaign.StopManual)
	if err != nil {
		h.campaignError(c, err)
		return
	}
	if h.Audit != nil {
		if err := h.Audit.LogAdminAction(c.Request.Context(), userID, userID, role, c.ClientIP(), "campaign stopped manually"); err != nil {
			logger.FromGin(c).Warn("audit append failed", "err", err)
		}
	}
	c.JSON(http.StatusOK, st)
}

func (h Handlers) campaignError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, campaign.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no campaign for user"})
	case errors.Is(err, campaign.ErrSpendLimitReached), errors.Is(err, campaign.ErrTargetReached):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.FromGin(c).Error("campaign request failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "campaign update failed"})
	}
}

// --- Wallet ---

func (h Handlers) GetWalletBalance(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	acct, err := h.Wallet.Balance(c.Request.Context(), userID)
	if errors.Is(err, wallet.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no wallet for user"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "balance lookup failed"})
		return
	}
	c.JSON(http.StatusOK, acct)
}

type manualCreditRequest struct {
	UserID         string          `json:"user_id"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// AdminManualCredit credits a user's balance by hand.
// RBAC: super_admin only (support is hidden and excluded).
func (h Handlers) AdminManualCredit(c *gin.Context) {
	adminID, adminRole, ok := identity(c)
	if !ok {
		return
	}
	var req manualCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Reason == "" || !req.Amount.IsPositive() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, positive amount, reason required"})
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	e, acct, err := h.Wallet.Credit(c.Request.Context(), req.UserID, req.Amount, wallet.LedgerEntryTypeManual, "manual:"+req.IdempotencyKey, adminID)
	switch {
	case errors.Is(err, wallet.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no wallet for user"})
		return
	case errors.Is(err, wallet.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid credit request"})
		return
	case err != nil:
		logger.FromGin(c).Error("manual credit failed", "user_id", req.UserID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "credit failed"})
		return
	}
	if h.Audit != nil {
		msg := "manual credit " + req.Amount.String() + ": " + req.Reason
		if err := h.Audit.LogAdminAction(c.Request.Context(), req.UserID, adminID, adminRole, c.ClientIP(), msg); err != nil {
			logger.FromGin(c).Warn("audit append failed", "err", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"entry": e, "account": acct})
}

// --- Reports ---

func (h Handlers) ReportToday(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	loc := h.Location
	if h.Users != nil {
		if p, err := h.Users.Get(c.Request.Context(), userID); err == nil {
			loc = p.Location(h.Location)
		}
	}
	rep, err := h.Reports.Today(c.Request.Context(), userID, loc)
	if err != nil {
		logger.FromGin(c).Error("report failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, rep)
}

// Convenience middleware bundles.

func RequireUserAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireUser(), rbac.RequireAnyRole(roles...)}
}
