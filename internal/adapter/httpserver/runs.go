package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bkyoung/review-gateway/internal/usecase/orchestrate"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// listRuns returns recent review runs, newest first.
// @Summary List review runs
// @Tags Runs
// @Produce json
// @Param limit query int false "Maximum runs to return (default 20, cap 100)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Invalid limit"
// @Router /api/v1/runs [get]
func (srv *HTTPServer) listRuns(c *gin.Context) {
	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	runs, err := srv.store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		srv.l.Errorf(c.Request.Context(), "listing runs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// getRun returns one review run by ID.
// @Summary Get a review run
// @Tags Runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} domain.Run
// @Failure 404 {object} map[string]interface{} "Unknown run ID"
// @Router /api/v1/runs/{id} [get]
func (srv *HTTPServer) getRun(c *gin.Context) {
	id := c.Param("id")
	run, err := srv.store.GetRun(c.Request.Context(), id)
	if errors.Is(err, orchestrate.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		srv.l.Errorf(c.Request.Context(), "getting run %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, run)
}
