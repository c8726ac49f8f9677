package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	_ "github.com/bkyoung/review-gateway/docs"
	"github.com/bkyoung/review-gateway/internal/adapter/ai"
	"github.com/bkyoung/review-gateway/internal/adapter/cli"
	"github.com/bkyoung/review-gateway/internal/adapter/codemetrics"
	"github.com/bkyoung/review-gateway/internal/adapter/gitops"
	"github.com/bkyoung/review-gateway/internal/adapter/httpserver"
	"github.com/bkyoung/review-gateway/internal/adapter/notify"
	"github.com/bkyoung/review-gateway/internal/adapter/platform/azure"
	"github.com/bkyoung/review-gateway/internal/adapter/platform/bitbucket"
	"github.com/bkyoung/review-gateway/internal/adapter/platform/github"
	"github.com/bkyoung/review-gateway/internal/adapter/platform/gitlab"
	"github.com/bkyoung/review-gateway/internal/adapter/platform/httpx"
	"github.com/bkyoung/review-gateway/internal/adapter/report"
	"github.com/bkyoung/review-gateway/internal/adapter/store/postgres"
	"github.com/bkyoung/review-gateway/internal/adapter/store/sqlite"
	"github.com/bkyoung/review-gateway/internal/adapter/webhook"
	"github.com/bkyoung/review-gateway/internal/config"
	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/internal/redaction"
	"github.com/bkyoung/review-gateway/internal/usecase/analysis"
	"github.com/bkyoung/review-gateway/internal/usecase/orchestrate"
	"github.com/bkyoung/review-gateway/internal/version"
	"github.com/bkyoung/review-gateway/pkg/log"
)

const drainTimeout = 30 * time.Second

// @title       Review Gateway API
// @description Webhook gateway and automated review orchestrator for GitHub, GitLab, Bitbucket, and Azure DevOps.
// @version     1
// @host        localhost:8080
// @schemes     http
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// .env is a developer convenience; absence is not an error.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "revgw",
		EnvPrefix:   "REVGW",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	logger := log.Init(log.ZapConfig{
		Level:    cfg.Observability.Logging.Level,
		Mode:     cfg.Observability.Logging.Mode,
		Encoding: cfg.Observability.Logging.Encoding,
	})

	deps := cli.Dependencies{
		Markdown:  report.NewMarkdownWriter(timestamp),
		JSON:      report.NewJSONWriter(timestamp),
		SARIF:     report.NewSARIFWriter(timestamp),
		OutputDir: cfg.Output.Directory,
		Version:   version.Value(),
	}

	connectors, err := buildConnectors(cfg)
	if err != nil {
		return err
	}

	if len(connectors) > 0 {
		gw, cleanup, err := buildGateway(ctx, cfg, logger, connectors)
		if err != nil {
			return err
		}
		defer cleanup()

		deps.Reviewer = gw.orchestrator
		deps.Server = gw
		for _, connector := range connectors {
			deps.Validators = append(deps.Validators, connector)
		}
	} else {
		logger.Warn(ctx, "no platforms configured; serve, review, and validate are unavailable")
	}

	root := cli.NewRootCommand(deps)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

// gateway bundles the long-running pieces behind the serve command: the
// HTTP surface plus the orchestrator whose detached runs must drain on
// shutdown.
type gateway struct {
	server       *httpserver.HTTPServer
	orchestrator *orchestrate.Orchestrator
	logger       log.Logger
}

// Run serves until the context is canceled, then waits for in-flight
// review runs before reporting the server's outcome.
func (g *gateway) Run(ctx context.Context) error {
	err := g.server.Run(ctx)

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if drainErr := g.orchestrator.Drain(drainCtx); drainErr != nil {
		g.logger.Warnf(drainCtx, "shutting down with review runs still in flight: %v", drainErr)
	}
	return err
}

// buildGateway assembles the full review pipeline for the configured
// platforms. The returned cleanup closes the store and the notification
// bus, in that order safe to run after the gateway stops.
func buildGateway(ctx context.Context, cfg config.Config, logger log.Logger, connectors []orchestrate.Connector) (*gateway, func(), error) {
	runStore, err := buildStore(ctx, cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing run store: %w", err)
	}

	bus, closeNotifier := buildNotifier(ctx, cfg.Notifications, logger)

	cleanup := func() {
		closeNotifier()
		if err := runStore.Close(); err != nil {
			logger.Warnf(context.Background(), "closing run store: %v", err)
		}
	}

	var generator orchestrate.Generator
	var summarizer analysis.Summarizer
	if cfg.AI.Configured() {
		aiClient, err := ai.New(ai.Config{
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			BaseURL: cfg.AI.BaseURL,
			Timeout: config.ParseDuration(cfg.AI.Timeout, 60*time.Second),
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("initializing AI backend: %w", err)
		}
		generator = &generatorAdapter{client: aiClient}
		summarizer = orchestrate.NewAISummarizer(generator)
		logger.Infof(ctx, "AI backend enabled (model %s)", cfg.AI.Model)
	} else {
		logger.Info(ctx, "AI backend not configured; using template summaries, auto-fix generation disabled")
	}

	engine, err := analysis.NewEngine(analysis.Config{
		Analyzer:      codemetrics.New(),
		Summarizer:    summarizer,
		Redactor:      redaction.NewEngine(),
		Logger:        logger,
		Mode:          analysis.ModeParallel,
		MaxConcurrent: cfg.Review.MaxConcurrentFiles,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("initializing analysis engine: %w", err)
	}

	fixer := gitops.NewApplier(gitops.Config{
		Credentials: gitCredentials(cfg),
		WorkDir:     cfg.Gitops.WorkDir,
		AuthorName:  cfg.Gitops.AuthorName,
		AuthorEmail: cfg.Gitops.AuthorEmail,
		Logger:      logger,
	})

	registry := orchestrate.NewConnectors(connectors...)
	metrics := orchestrate.NewMetrics()

	orchestrator, err := orchestrate.New(orchestrate.Deps{
		Connectors:        registry,
		Engine:            engine,
		Metrics:           metrics,
		Store:             runStore,
		Notifier:          bus,
		Generator:         generator,
		Fixer:             fixer,
		Logger:            logger,
		Dispatch:          orchestrate.DispatchMode(cfg.Review.Dispatch),
		MaxConcurrentRuns: cfg.Review.MaxConcurrentRuns,
		RunTimeout:        config.ParseDuration(cfg.Review.RunTimeout, 5*time.Minute),
		AutoFix:           cfg.Review.AutoFix,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("initializing orchestrator: %w", err)
	}

	handler := webhook.NewHandler(orchestrator, webhook.Config{
		Secrets:         webhookSecrets(cfg),
		RateLimitPerMin: cfg.Webhook.RateLimitPerMinute,
	}, logger)

	server, err := httpserver.New(httpserver.Config{
		Logger:         logger,
		Port:           cfg.Server.Port,
		Mode:           cfg.Server.Mode,
		Version:        version.Value(),
		WebhookHandler: handler,
		Store:          runStore,
		Connectors:     registry,
		Metrics:        metrics,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("initializing http server: %w", err)
	}

	return &gateway{server: server, orchestrator: orchestrator, logger: logger}, cleanup, nil
}

// buildConnectors constructs one connector per enabled platform. A platform
// that is enabled but missing credentials fails startup; a half-configured
// gateway accepting webhooks it cannot act on helps nobody.
func buildConnectors(cfg config.Config) ([]orchestrate.Connector, error) {
	timeout := config.ParseDuration(cfg.HTTP.Timeout, 30*time.Second)

	var connectors []orchestrate.Connector
	for _, name := range cfg.EnabledPlatforms() {
		pc := cfg.Platforms[name]
		retry := retryConfig(pc.Retry)

		var connector orchestrate.Connector
		var err error
		switch name {
		case "github":
			connector, err = github.New(github.Config{
				Token:   pc.Token,
				BaseURL: pc.BaseURL,
				Timeout: timeout,
				Retry:   retry,
			})
		case "gitlab":
			connector, err = gitlab.New(gitlab.Config{
				Token:   pc.Token,
				BaseURL: pc.BaseURL,
				Timeout: timeout,
				Retry:   retry,
			})
		case "bitbucket":
			connector, err = bitbucket.New(bitbucket.Config{
				Username:    pc.Username,
				AppPassword: pc.AppPassword,
				BaseURL:     pc.BaseURL,
				Timeout:     timeout,
				Retry:       retry,
			})
		case "azure":
			connector, err = azure.New(azure.Config{
				Organization: pc.Organization,
				PAT:          pc.Token,
				BaseURL:      pc.BaseURL,
				Timeout:      timeout,
				Retry:        retry,
			})
		default:
			err = fmt.Errorf("unknown platform %q", name)
		}
		if err != nil {
			return nil, fmt.Errorf("configuring %s connector: %w", name, err)
		}
		connectors = append(connectors, connector)
	}
	return connectors, nil
}

func buildStore(ctx context.Context, cfg config.StoreConfig) (orchestrate.Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		path := cfg.Path
		if path == "" {
			path = "./runs.db"
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating store directory: %w", err)
			}
		}
		return sqlite.NewStore(path)
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("store.databaseURL is required for the postgres driver")
		}
		return postgres.NewStore(ctx, cfg.DatabaseURL)
	}
	return nil, fmt.Errorf("unknown store driver %q (expected sqlite or postgres)", cfg.Driver)
}

// buildNotifier wires the notification bus: structured logs always, Kafka
// when configured. A Kafka cluster that cannot be reached downgrades to a
// warning; notifications are observability, not correctness.
func buildNotifier(ctx context.Context, cfg config.NotificationsConfig, logger log.Logger) (*notify.Bus, func()) {
	sinks := []notify.Sink{notify.NewLogSink(logger)}
	var closeSinks []func()

	if cfg.Kafka.Configured() {
		sink, err := notify.NewKafkaSink(notify.KafkaConfig{
			BootstrapServers: cfg.Kafka.BootstrapServers,
			Topic:            cfg.Kafka.Topic,
			DeliveryTimeout:  config.ParseDuration(cfg.Kafka.DeliveryTimeout, 10*time.Second),
		})
		if err != nil {
			logger.Warnf(ctx, "kafka notifications disabled: %v", err)
		} else {
			sinks = append(sinks, sink)
			closeSinks = append(closeSinks, sink.Close)
			logger.Infof(ctx, "kafka notifications enabled (topic %s)", cfg.Kafka.Topic)
		}
	}

	bus := notify.NewBus(notify.BusConfig{
		BufferSize: cfg.Buffer,
		Logger:     logger,
		Sinks:      sinks,
	})
	return bus, func() {
		bus.Close()
		for _, closeSink := range closeSinks {
			closeSink()
		}
	}
}

// retryConfig maps the YAML retry section onto the connector retry knobs.
// Retry stays off unless explicitly enabled, preserving single-attempt
// semantics by default.
func retryConfig(rc config.RetryConfig) httpx.RetryConfig {
	if !rc.Enabled {
		return httpx.RetryConfig{}
	}
	out := httpx.DefaultRetryConfig()
	if rc.MaxRetries > 0 {
		out.MaxRetries = rc.MaxRetries
	}
	out.InitialBackoff = config.ParseDuration(rc.InitialBackoff, out.InitialBackoff)
	out.MaxBackoff = config.ParseDuration(rc.MaxBackoff, out.MaxBackoff)
	if rc.BackoffMultiplier > 1 {
		out.Multiplier = rc.BackoffMultiplier
	}
	return out
}

// webhookSecrets collects the configured inbound verification secrets.
// Only GitHub and GitLab have an inbound scheme to configure; the other
// platforms' deliveries are accepted unsigned and the gap is logged.
func webhookSecrets(cfg config.Config) map[domain.Platform]string {
	secrets := make(map[domain.Platform]string)
	if s := cfg.Platforms["github"].WebhookSecret; s != "" {
		secrets[domain.PlatformGitHub] = s
	}
	if s := cfg.Platforms["gitlab"].WebhookSecret; s != "" {
		secrets[domain.PlatformGitLab] = s
	}
	return secrets
}

// gitCredentials maps platform credentials onto clone/push credentials for
// the auto-fix applier.
func gitCredentials(cfg config.Config) map[domain.Platform]gitops.Credential {
	creds := make(map[domain.Platform]gitops.Credential)
	for _, name := range cfg.EnabledPlatforms() {
		pc := cfg.Platforms[name]
		switch name {
		case "github":
			creds[domain.PlatformGitHub] = gitops.Credential{Token: pc.Token}
		case "gitlab":
			creds[domain.PlatformGitLab] = gitops.Credential{Token: pc.Token}
		case "bitbucket":
			creds[domain.PlatformBitbucket] = gitops.Credential{Username: pc.Username, Token: pc.AppPassword}
		case "azure":
			creds[domain.PlatformAzureDevOps] = gitops.Credential{Token: pc.Token}
		}
	}
	return creds
}

// generatorAdapter narrows the AI client to the orchestrator's Generator
// port.
type generatorAdapter struct {
	client *ai.Client
}

func (g *generatorAdapter) Generate(ctx context.Context, req orchestrate.GenerateRequest) (string, error) {
	resp, err := g.client.Generate(ctx, ai.Request{
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// timestamp names report files; UTC so runs sort regardless of host zone.
func timestamp() string {
	return time.Now().UTC().Format("20060102T150405Z")
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "revgw"))
	}
	return paths
}

// Compile-time interface compliance checks
var (
	_ orchestrate.Connector    = (*github.Client)(nil)
	_ orchestrate.Connector    = (*gitlab.Client)(nil)
	_ orchestrate.Connector    = (*bitbucket.Client)(nil)
	_ orchestrate.Connector    = (*azure.Client)(nil)
	_ orchestrate.Store        = (*sqlite.Store)(nil)
	_ orchestrate.Store        = (*postgres.Store)(nil)
	_ orchestrate.Notifier     = (*notify.Bus)(nil)
	_ orchestrate.Fixer        = (*gitops.Applier)(nil)
	_ orchestrate.Generator    = (*generatorAdapter)(nil)
	_ analysis.MetricsAnalyzer = (*codemetrics.Analyzer)(nil)
	_ analysis.Redactor        = (*redaction.Engine)(nil)
	_ analysis.Summarizer      = (*orchestrate.AISummarizer)(nil)
	_ cli.Server               = (*gateway)(nil)
	_ cli.PullRequestReviewer  = (*orchestrate.Orchestrator)(nil)
	_ webhook.Dispatcher       = (*orchestrate.Orchestrator)(nil)
)
