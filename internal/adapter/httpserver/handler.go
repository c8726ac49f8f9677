// Package httpserver is the gin HTTP surface: the webhook endpoint, health
// probes, the run-history API, metrics, and the swagger UI.
package httpserver

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (srv *HTTPServer) mapHandlers() {
	srv.registerMiddlewares()
	srv.registerSystemRoutes()
	srv.registerAPIRoutes()
}

func (srv *HTTPServer) registerMiddlewares() {
	srv.gin.Use(gin.Recovery())
	srv.gin.Use(srv.requestLogger())
}

func (srv *HTTPServer) registerSystemRoutes() {
	srv.gin.GET("/healthz", srv.healthCheck)
	srv.gin.GET("/readyz", srv.readyCheck)

	srv.gin.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))
}

func (srv *HTTPServer) registerAPIRoutes() {
	// The webhook contract answers wrong methods itself, with 400 rather
	// than the router's 405.
	srv.gin.Any("/webhooks", srv.webhookHandler.Handle)

	api := srv.gin.Group("/api/v1")
	api.GET("/metrics", srv.metricsSnapshot)
	api.POST("/metrics/reset", srv.metricsReset)
	api.GET("/runs", srv.listRuns)
	api.GET("/runs/:id", srv.getRun)
}
