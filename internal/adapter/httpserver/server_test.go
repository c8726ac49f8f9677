package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/internal/usecase/orchestrate"
	"github.com/bkyoung/review-gateway/pkg/log"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubWebhookHandler struct {
	calls int
}

func (h *stubWebhookHandler) Handle(c *gin.Context) {
	h.calls++
	c.JSON(http.StatusOK, gin.H{"status": "success", "processed": true})
}

type stubStore struct {
	runs    []domain.Run
	run     domain.Run
	getErr  error
	listErr error
	pingErr error
}

func (s *stubStore) SaveRun(context.Context, domain.Run) error { return nil }
func (s *stubStore) GetRun(_ context.Context, id string) (domain.Run, error) {
	if s.getErr != nil {
		return domain.Run{}, s.getErr
	}
	return s.run, nil
}
func (s *stubStore) ListRuns(_ context.Context, limit int) ([]domain.Run, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if limit < len(s.runs) {
		return s.runs[:limit], nil
	}
	return s.runs, nil
}
func (s *stubStore) LastCompletedRun(context.Context, domain.Platform, string, string, int) (domain.Run, error) {
	return domain.Run{}, orchestrate.ErrRunNotFound
}
func (s *stubStore) Ping(context.Context) error { return s.pingErr }
func (s *stubStore) Close() error               { return nil }

type stubConnector struct {
	platform    domain.Platform
	validateErr error
}

func (c *stubConnector) Platform() domain.Platform { return c.platform }
func (c *stubConnector) Validate(context.Context) error {
	return c.validateErr
}
func (c *stubConnector) ListRepositories(context.Context) ([]domain.Repository, error) {
	return nil, nil
}
func (c *stubConnector) GetRepository(context.Context, string, string) (domain.Repository, error) {
	return domain.Repository{}, nil
}
func (c *stubConnector) GetMergeRequest(context.Context, string, string, int) (domain.MergeRequest, error) {
	return domain.MergeRequest{}, nil
}
func (c *stubConnector) GetChangedFiles(context.Context, string, string, int) ([]domain.ChangedFile, error) {
	return nil, nil
}
func (c *stubConnector) GetFileContent(context.Context, string, string, string, string) ([]byte, error) {
	return nil, nil
}
func (c *stubConnector) PostComment(context.Context, string, string, int, domain.Comment) error {
	return nil
}
func (c *stubConnector) UpdateCommitStatus(context.Context, string, string, string, domain.CommitStatus) error {
	return nil
}
func (c *stubConnector) SetBranchProtection(context.Context, string, string, string, domain.BranchProtection) error {
	return nil
}
func (c *stubConnector) CreateWebhook(context.Context, string, string, domain.WebhookConfig) (string, error) {
	return "", nil
}
func (c *stubConnector) RateLimit() domain.RateLimit { return domain.RateLimit{} }

type fixture struct {
	srv     *HTTPServer
	store   *stubStore
	webhook *stubWebhookHandler
	metrics *orchestrate.Metrics
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	f := &fixture{
		store:   &stubStore{},
		webhook: &stubWebhookHandler{},
		metrics: orchestrate.NewMetrics(),
	}
	cfg := Config{
		Logger:         log.NewNop(),
		Port:           8080,
		Version:        "test",
		WebhookHandler: f.webhook,
		Store:          f.store,
		Connectors:     orchestrate.NewConnectors(&stubConnector{platform: domain.PlatformGitHub}),
		Metrics:        f.metrics,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := New(cfg)
	require.NoError(t, err)
	f.srv = srv
	return f
}

func (f *fixture) request(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	f.srv.gin.ServeHTTP(w, req)
	return w
}

func TestNewValidatesConfig(t *testing.T) {
	base := func() Config {
		return Config{
			Logger:         log.NewNop(),
			Port:           8080,
			WebhookHandler: &stubWebhookHandler{},
			Store:          &stubStore{},
			Metrics:        orchestrate.NewMetrics(),
		}
	}

	cfg := base()
	cfg.Port = 0
	_, err := New(cfg)
	require.ErrorContains(t, err, "port")

	cfg = base()
	cfg.Store = nil
	_, err = New(cfg)
	require.ErrorContains(t, err, "store")

	cfg = base()
	cfg.WebhookHandler = nil
	_, err = New(cfg)
	require.ErrorContains(t, err, "webhook handler")
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil)
	w := f.request(http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"healthy"`)
	require.Contains(t, w.Body.String(), `"service":"review-gateway"`)
}

func TestReadyzAllChecksPass(t *testing.T) {
	f := newFixture(t, nil)
	w := f.request(http.MethodGet, "/readyz")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"ready"`)
	require.Contains(t, w.Body.String(), `"connector:github":"ok"`)
}

func TestReadyzStoreDown(t *testing.T) {
	f := newFixture(t, nil)
	f.store.pingErr = errors.New("connection refused")
	w := f.request(http.MethodGet, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), `"status":"unavailable"`)
	require.Contains(t, w.Body.String(), "connection refused")
}

func TestReadyzConnectorRejected(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.Connectors = orchestrate.NewConnectors(&stubConnector{
			platform:    domain.PlatformGitLab,
			validateErr: errors.New("401 unauthorized"),
		})
	})
	w := f.request(http.MethodGet, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), `"connector:gitlab"`)
}

func TestWebhookRouteDelegates(t *testing.T) {
	f := newFixture(t, nil)
	w := f.request(http.MethodPost, "/webhooks")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, f.webhook.calls)

	// Wrong methods reach the handler too; the webhook contract owns the
	// method check.
	f.request(http.MethodGet, "/webhooks")
	require.Equal(t, 2, f.webhook.calls)
}

func TestMetricsSnapshotAndReset(t *testing.T) {
	f := newFixture(t, nil)
	f.metrics.WebhookProcessed()
	f.metrics.ReviewCompleted()
	f.metrics.IssuesFound(3)

	w := f.request(http.MethodGet, "/api/v1/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"webhooksProcessed":1,"reviewsCompleted":1,"issuesFound":3,"autoFixesApplied":0}`, w.Body.String())

	w = f.request(http.MethodPost, "/api/v1/metrics/reset")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"webhooksProcessed":0,"reviewsCompleted":0,"issuesFound":0,"autoFixesApplied":0}`, w.Body.String())
}

func TestListRuns(t *testing.T) {
	f := newFixture(t, nil)
	f.store.runs = []domain.Run{
		{ID: "run-2", State: domain.RunCompleted, StartedAt: time.Now().UTC()},
		{ID: "run-1", State: domain.RunFailed, StartedAt: time.Now().UTC().Add(-time.Hour)},
	}

	w := f.request(http.MethodGet, "/api/v1/runs")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"count":2`)
	require.Contains(t, w.Body.String(), "run-2")

	w = f.request(http.MethodGet, "/api/v1/runs?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"count":1`)

	w = f.request(http.MethodGet, "/api/v1/runs?limit=bogus")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"invalid limit"}`, w.Body.String())
}

func TestGetRun(t *testing.T) {
	f := newFixture(t, nil)
	f.store.run = domain.Run{ID: "run-42", State: domain.RunCompleted, Score: 88}

	w := f.request(http.MethodGet, "/api/v1/runs/run-42")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"id":"run-42"`)

	f.store.getErr = orchestrate.ErrRunNotFound
	w = f.request(http.MethodGet, "/api/v1/runs/missing")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, `{"error":"run not found"}`, w.Body.String())
}
