package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// requestLogger logs one line per request: method, path, status, duration,
// and client IP. Health probes are polled constantly and skipped.
func (srv *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/healthz" || path == "/readyz" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		duration := time.Since(start)
		if status >= http.StatusInternalServerError {
			srv.l.Errorf(c.Request.Context(), "%s %s -> %d (%s) from %s",
				c.Request.Method, path, status, duration.Round(time.Millisecond), c.ClientIP())
			return
		}
		srv.l.Infof(c.Request.Context(), "%s %s -> %d (%s) from %s",
			c.Request.Method, path, status, duration.Round(time.Millisecond), c.ClientIP())
	}
}
