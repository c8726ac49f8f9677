package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bkyoung/review-gateway/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: []string{},
		FileName:    "nonexistent",
		EnvPrefix:   "REVGW",
	})
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.Mode != "release" {
		t.Errorf("expected default mode 'release', got %s", cfg.Server.Mode)
	}
	if cfg.Webhook.RateLimitPerMinute != 60 {
		t.Errorf("expected default rate limit 60, got %d", cfg.Webhook.RateLimitPerMinute)
	}
	if cfg.Review.Dispatch != "async" {
		t.Errorf("expected default dispatch 'async', got %s", cfg.Review.Dispatch)
	}
	if cfg.Review.MaxConcurrentRuns != 8 {
		t.Errorf("expected default max concurrent runs 8, got %d", cfg.Review.MaxConcurrentRuns)
	}
	if cfg.Review.RunTimeout != "5m" {
		t.Errorf("expected default run timeout '5m', got %s", cfg.Review.RunTimeout)
	}
	if cfg.Review.MaxConcurrentFiles != 4 {
		t.Errorf("expected default max concurrent files 4, got %d", cfg.Review.MaxConcurrentFiles)
	}
	if cfg.Review.AutoFix {
		t.Error("expected auto-fix to be disabled by default")
	}
	if cfg.AI.Enabled {
		t.Error("expected AI backend to be disabled by default")
	}
	if cfg.AI.Model != "gpt-4o-mini" {
		t.Errorf("expected default AI model 'gpt-4o-mini', got %s", cfg.AI.Model)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("expected default store driver 'sqlite', got %s", cfg.Store.Driver)
	}
	if !strings.HasSuffix(cfg.Store.Path, "runs.db") {
		t.Errorf("expected default store path to end in runs.db, got %s", cfg.Store.Path)
	}
	if cfg.Notifications.Buffer != 256 {
		t.Errorf("expected default notification buffer 256, got %d", cfg.Notifications.Buffer)
	}
	if cfg.Notifications.Kafka.Topic != "review-gateway.notifications" {
		t.Errorf("expected default kafka topic, got %s", cfg.Notifications.Kafka.Topic)
	}
	if cfg.Gitops.AuthorName != "review-gateway" {
		t.Errorf("expected default gitops author, got %s", cfg.Gitops.AuthorName)
	}
	if cfg.Output.Directory != "out" {
		t.Errorf("expected default output directory 'out', got %s", cfg.Output.Directory)
	}
	if cfg.Observability.Logging.Level != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.Logging.Level)
	}
	if cfg.Observability.Logging.Mode != "development" {
		t.Errorf("expected default log mode 'development', got %s", cfg.Observability.Logging.Mode)
	}

	for _, name := range config.PlatformNames() {
		platform, ok := cfg.Platforms[name]
		if !ok {
			t.Fatalf("expected platform %s to be present in defaults", name)
		}
		if platform.Enabled {
			t.Errorf("expected platform %s to be disabled by default", name)
		}
		if platform.Retry.Enabled {
			t.Errorf("expected platform %s retry to be disabled by default", name)
		}
	}
}

func TestLoadReadsFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "revgw.yaml")
	if err := os.WriteFile(file, []byte("output:\n  directory: file\n"), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("REVGW_OUTPUT_DIRECTORY", "env")

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: []string{dir},
		FileName:    "revgw",
		EnvPrefix:   "REVGW",
	})
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	if cfg.Output.Directory != "env" {
		t.Fatalf("expected env override, got %s", cfg.Output.Directory)
	}
}

func TestLoadPlatformTokenFromEnv(t *testing.T) {
	t.Setenv("REVGW_PLATFORMS_GITHUB_TOKEN", "ghp-from-env")

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: []string{},
		FileName:    "nonexistent",
		EnvPrefix:   "REVGW",
	})
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	if cfg.Platforms["github"].Token != "ghp-from-env" {
		t.Fatalf("expected github token from env, got %q", cfg.Platforms["github"].Token)
	}
}

func TestLoadPlatformConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "revgw.yaml")
	content := `
platforms:
  github:
    enabled: true
    token: ${REVIEW_GH_TOKEN}
    webhookSecret: hush
    retry:
      enabled: true
      maxRetries: 2
      initialBackoff: 10ms
`
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("REVIEW_GH_TOKEN", "ghp-secret")

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: []string{dir},
		FileName:    "revgw",
		EnvPrefix:   "REVGW",
	})
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	github := cfg.Platforms["github"]
	if !github.Enabled {
		t.Error("expected github to be enabled from file")
	}
	if github.Token != "ghp-secret" {
		t.Errorf("expected token expanded from env, got %q", github.Token)
	}
	if github.WebhookSecret != "hush" {
		t.Errorf("expected webhook secret from file, got %q", github.WebhookSecret)
	}
	if !github.Retry.Enabled {
		t.Error("expected retry enabled from file")
	}
	if github.Retry.MaxRetries != 2 {
		t.Errorf("expected 2 retries, got %d", github.Retry.MaxRetries)
	}
	if github.Retry.InitialBackoff != "10ms" {
		t.Errorf("expected 10ms initial backoff, got %s", github.Retry.InitialBackoff)
	}

	enabled := cfg.EnabledPlatforms()
	if len(enabled) != 1 || enabled[0] != "github" {
		t.Fatalf("expected [github] enabled, got %v", enabled)
	}
}

func TestEnabledPlatformsCanonicalOrder(t *testing.T) {
	cfg := config.Config{
		Platforms: map[string]config.PlatformConfig{
			"azure":  {Enabled: true},
			"github": {Enabled: true},
			"gitlab": {Enabled: true},
		},
	}

	got := cfg.EnabledPlatforms()
	want := []string{"github", "gitlab", "azure"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestAIConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.AIConfig
		want bool
	}{
		{name: "enabled with key", cfg: config.AIConfig{Enabled: true, APIKey: "sk-1"}, want: true},
		{name: "enabled without key", cfg: config.AIConfig{Enabled: true}, want: false},
		{name: "key without enabled", cfg: config.AIConfig{APIKey: "sk-1"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKafkaConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.KafkaConfig
		want bool
	}{
		{name: "enabled with servers", cfg: config.KafkaConfig{Enabled: true, BootstrapServers: "broker:9092"}, want: true},
		{name: "enabled without servers", cfg: config.KafkaConfig{Enabled: true}, want: false},
		{name: "servers without enabled", cfg: config.KafkaConfig{BootstrapServers: "broker:9092"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		fallback time.Duration
		want     time.Duration
	}{
		{name: "valid value", value: "90s", fallback: time.Minute, want: 90 * time.Second},
		{name: "empty falls back", value: "", fallback: time.Minute, want: time.Minute},
		{name: "malformed falls back", value: "soon", fallback: time.Minute, want: time.Minute},
		{name: "negative falls back", value: "-5s", fallback: time.Minute, want: time.Minute},
		{name: "negative fallback clamps to zero", value: "", fallback: -time.Second, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := config.ParseDuration(tt.value, tt.fallback); got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
