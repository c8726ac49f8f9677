package httpserver

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bkyoung/review-gateway/internal/usecase/orchestrate"
	"github.com/bkyoung/review-gateway/pkg/log"
)

// WebhookHandler terminates the inbound webhook endpoint.
type WebhookHandler interface {
	Handle(c *gin.Context)
}

// HTTPServer holds all dependencies for the HTTP surface.
type HTTPServer struct {
	gin     *gin.Engine
	l       log.Logger
	port    int
	mode    string
	version string

	webhookHandler WebhookHandler
	store          orchestrate.Store
	connectors     *orchestrate.Connectors
	metrics        *orchestrate.Metrics
}

// Config is the dependency bag passed to New().
type Config struct {
	Logger  log.Logger
	Port    int
	Mode    string
	Version string

	WebhookHandler WebhookHandler
	Store          orchestrate.Store
	Connectors     *orchestrate.Connectors
	Metrics        *orchestrate.Metrics
}

// New builds the server and registers every route.
func New(cfg Config) (*HTTPServer, error) {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	srv := &HTTPServer{
		gin:            gin.New(),
		l:              cfg.Logger,
		port:           cfg.Port,
		mode:           cfg.Mode,
		version:        cfg.Version,
		webhookHandler: cfg.WebhookHandler,
		store:          cfg.Store,
		connectors:     cfg.Connectors,
		metrics:        cfg.Metrics,
	}

	if err := srv.validate(); err != nil {
		return nil, err
	}

	srv.mapHandlers()
	return srv, nil
}

func (srv *HTTPServer) validate() error {
	if srv.l == nil {
		return errors.New("logger is required")
	}
	if srv.port == 0 {
		return errors.New("port is required")
	}
	if srv.webhookHandler == nil {
		return errors.New("webhook handler is required")
	}
	if srv.store == nil {
		return errors.New("store is required")
	}
	if srv.metrics == nil {
		return errors.New("metrics is required")
	}
	return nil
}
