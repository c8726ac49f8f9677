// Package webhook terminates inbound platform webhooks: it authenticates the
// request, normalizes the payload into the canonical event model, and hands
// the event to the orchestrator.
package webhook

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bkyoung/review-gateway/internal/domain"
)

// normalizer turns one platform's raw payload into a canonical event.
// eventKey is the platform's event descriptor header; Azure DevOps sends
// none and classifies from the payload body instead.
type normalizer interface {
	Normalize(ctx context.Context, eventKey string, body []byte) (domain.WebhookEvent, error)
}

// Handle processes one webhook delivery. Malformed requests are validation
// failures, so a wrong method answers 400 rather than 405.
func (h *Handler) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusBadRequest, gin.H{"error": "method not allowed"})
		return
	}
	if !strings.HasPrefix(c.GetHeader("Content-Type"), "application/json") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported content type"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.l.Errorf(ctx, "reading webhook body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty body"})
		return
	}

	platform, eventKey, ok := detectPlatform(c.Request)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "platform undetermined"})
		return
	}

	ip := clientIP(c.Request)
	if !h.limiter.Allow(ip) {
		h.l.Warnf(ctx, "webhook rate limit exceeded for %s", ip)
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	if err := h.verifier.Verify(ctx, platform, c.Request, body); err != nil {
		h.l.Warnf(ctx, "%s signature rejected: %v", platform, err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	event, err := h.normalizers[platform].Normalize(ctx, eventKey, body)
	if err != nil {
		h.l.Errorf(ctx, "normalizing %s payload: %v", platform, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	event.Signature = c.GetHeader("X-Hub-Signature-256")

	if err := h.dispatcher.HandleEvent(ctx, event); err != nil {
		h.l.Errorf(ctx, "dispatching %s %s event: %v", event.Platform, event.Type, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "processed": true})
}
