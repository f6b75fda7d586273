package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"sterling-dialer/internal/httpapi"
	"sterling-dialer/internal/rbac"
	"sterling-dialer/internal/wallet"
	"sterling-dialer/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc, health gin.HandlerFunc) {
	// public
	r.GET("/healthz", health)

	// Vendor webhooks (public).
	r.POST("/webhooks/retell", h.RetellWebhook)

	v1 := r.Group("/v1")
	v1.POST("/auth/login", h.Login)

	protected := v1.Group("")
	protected.Use(authMW)
	{
		camp := protected.Group("/campaign")
		camp.Use(httpapi.RequireUserAndAnyRole(rbac.RoleOwner, rbac.RoleAnalyst)...)
		camp.GET("/status", h.CampaignStatus)

		ctl := protected.Group("/campaign")
		ctl.Use(httpapi.RequireUserAndAnyRole(rbac.RoleOwner)...)
		ctl.POST("/start", wallet.RequireFundedAccount(h.Wallet), h.CampaignStart)
		ctl.POST("/stop", h.CampaignStop)

		read := protected.Group("")
		read.Use(httpapi.RequireUserAndAnyRole(rbac.RoleOwner, rbac.RoleAnalyst, rbac.RoleSupport)...)
		read.GET("/wallet/balance", h.GetWalletBalance)
		read.GET("/reports/today", h.ReportToday)

		// Only super_admin reaches admin endpoints; hidden support is not included.
		admin := protected.Group("/admin")
		admin.Use(httpapi.RequireUserAndAnyRole(rbac.RoleSuperAdmin)...)
		admin.POST("/wallet/credit", h.AdminManualCredit)
	}
}

func healthCheck(db *sql.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"postgres": "ok", "redis": "ok"}
		code := http.StatusOK
		if err := utils.HealthCheck(ctx, db, time.Second); err != nil {
			status["postgres"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			status["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	}
}
