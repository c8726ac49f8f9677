package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// metricsSnapshot returns the process-wide counters.
// @Summary Metrics snapshot
// @Tags Metrics
// @Produce json
// @Success 200 {object} orchestrate.MetricsSnapshot
// @Router /api/v1/metrics [get]
func (srv *HTTPServer) metricsSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, srv.metrics.Snapshot())
}

// metricsReset zeroes the counters and returns the cleared snapshot.
// @Summary Reset metrics
// @Tags Metrics
// @Produce json
// @Success 200 {object} orchestrate.MetricsSnapshot
// @Router /api/v1/metrics/reset [post]
func (srv *HTTPServer) metricsReset(c *gin.Context) {
	srv.metrics.Reset()
	c.JSON(http.StatusOK, srv.metrics.Snapshot())
}
