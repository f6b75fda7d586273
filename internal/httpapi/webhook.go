package httpapi

import (
	"context"
	"errors"
	"net/http"

	"sterling-dialer/internal/pipeline"
	"sterling-dialer/internal/telephony"
	"sterling-dialer/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WebhookProcessor runs one analyzed-call event through the outcome pipeline.
type WebhookProcessor interface {
	Process(ctx context.Context, evt telephony.WebhookEvent) (pipeline.Result, error)
}

// RetellWebhook receives call lifecycle events from the voice agent vendor.
// Any 2xx stops the vendor's retries, so only malformed payloads, unknown
// entities and failed core writes return an error status.
func (h Handlers) RetellWebhook(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Webhooks == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "webhook pipeline not configured"})
		return
	}

	var evt telephony.WebhookEvent
	if err := c.ShouldBindJSON(&evt); err != nil {
		log.Warn("webhook payload rejected", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res, err := h.Webhooks.Process(c.Request.Context(), evt)
	switch {
	case errors.Is(err, pipeline.ErrMalformed):
		log.Warn("webhook missing metadata", "event", evt.Event, "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id and lead_id metadata required"})
		return
	case errors.Is(err, pipeline.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Error("webhook processing failed", "event", evt.Event, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}
