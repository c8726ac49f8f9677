package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	serviceName       = "review-gateway"
	readyCheckTimeout = 5 * time.Second
)

// healthCheck reports process liveness.
// @Summary Liveness check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{} "Process is up"
// @Router /healthz [get]
func (srv *HTTPServer) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": srv.version,
	})
}

// readyCheck reports whether the service can do useful work: the store
// answers and every configured connector accepts its credentials.
// @Summary Readiness check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{} "All checks passed"
// @Failure 503 {object} map[string]interface{} "One or more checks failed"
// @Router /readyz [get]
func (srv *HTTPServer) readyCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyCheckTimeout)
	defer cancel()

	checks := gin.H{}
	ready := true

	if err := srv.store.Ping(ctx); err != nil {
		checks["store"] = err.Error()
		ready = false
	} else {
		checks["store"] = "ok"
	}

	if srv.connectors != nil {
		for _, connector := range srv.connectors.All() {
			key := "connector:" + string(connector.Platform())
			if err := connector.Validate(ctx); err != nil {
				checks[key] = err.Error()
				ready = false
			} else {
				checks[key] = "ok"
			}
		}
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "unavailable"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}
