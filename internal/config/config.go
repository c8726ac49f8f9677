package config

import "time"

// PlatformNames lists the hosting platforms the gateway knows, in the
// order configuration listings and preflight output present them.
func PlatformNames() []string {
	return []string{"github", "gitlab", "bitbucket", "azure"}
}

// Config represents the full gateway configuration.
type Config struct {
	Server        ServerConfig              `yaml:"server"`
	Platforms     map[string]PlatformConfig `yaml:"platforms"`
	Webhook       WebhookConfig             `yaml:"webhook"`
	HTTP          HTTPConfig                `yaml:"http"`
	Review        ReviewConfig              `yaml:"review"`
	AI            AIConfig                  `yaml:"ai"`
	Store         StoreConfig               `yaml:"store"`
	Notifications NotificationsConfig       `yaml:"notifications"`
	Gitops        GitopsConfig              `yaml:"gitops"`
	Output        OutputConfig              `yaml:"output"`
	Observability ObservabilityConfig       `yaml:"observability"`
}

// ServerConfig holds the HTTP listener settings for serve mode.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"` // gin mode: debug, release, test
}

// PlatformConfig configures a single hosting platform connector.
// Credential fields differ by platform: github and gitlab use Token,
// bitbucket uses Username plus AppPassword, azure uses Organization plus
// Token (the personal access token).
type PlatformConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Token         string      `yaml:"token"`
	Username      string      `yaml:"username"`
	AppPassword   string      `yaml:"appPassword"`
	Organization  string      `yaml:"organization"`
	BaseURL       string      `yaml:"baseURL"`
	WebhookSecret string      `yaml:"webhookSecret"`
	Retry         RetryConfig `yaml:"retry"`
}

// RetryConfig tunes the jittered exponential backoff on upstream calls.
// Retries stay off unless explicitly enabled.
type RetryConfig struct {
	Enabled           bool    `yaml:"enabled"`
	MaxRetries        int     `yaml:"maxRetries"`
	InitialBackoff    string  `yaml:"initialBackoff"`
	MaxBackoff        string  `yaml:"maxBackoff"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`
}

// WebhookConfig governs the inbound delivery endpoint.
type WebhookConfig struct {
	// RateLimitPerMinute caps deliveries per client IP. Zero disables
	// rate limiting entirely.
	RateLimitPerMinute int `yaml:"rateLimitPerMinute"`
}

// HTTPConfig holds global HTTP client settings shared by the connectors.
type HTTPConfig struct {
	Timeout string `yaml:"timeout"`
}

// ReviewConfig governs how review runs are dispatched and bounded.
type ReviewConfig struct {
	Dispatch           string `yaml:"dispatch"` // sync or async
	MaxConcurrentRuns  int    `yaml:"maxConcurrentRuns"`
	RunTimeout         string `yaml:"runTimeout"`
	MaxConcurrentFiles int    `yaml:"maxConcurrentFiles"`
	AutoFix            bool   `yaml:"autoFix"`
}

// AIConfig configures the optional generation backend. Without it the
// gateway falls back to template summaries and auto-fix stays inert.
type AIConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseURL"`
	Timeout string `yaml:"timeout"`
}

// Configured reports whether the backend is switched on and has a key.
func (a AIConfig) Configured() bool {
	return a.Enabled && a.APIKey != ""
}

// StoreConfig configures run persistence.
type StoreConfig struct {
	Driver      string `yaml:"driver"` // sqlite or postgres
	Path        string `yaml:"path"`
	DatabaseURL string `yaml:"databaseURL"`
}

// NotificationsConfig configures the event bus and its optional Kafka
// mirror.
type NotificationsConfig struct {
	Buffer int         `yaml:"buffer"`
	Kafka  KafkaConfig `yaml:"kafka"`
}

// KafkaConfig configures the Kafka notification sink.
type KafkaConfig struct {
	Enabled          bool   `yaml:"enabled"`
	BootstrapServers string `yaml:"bootstrapServers"`
	Topic            string `yaml:"topic"`
	DeliveryTimeout  string `yaml:"deliveryTimeout"`
}

// Configured reports whether the sink is switched on and has a cluster.
func (k KafkaConfig) Configured() bool {
	return k.Enabled && k.BootstrapServers != ""
}

// GitopsConfig configures the auto-fix worktree and commit identity.
type GitopsConfig struct {
	WorkDir     string `yaml:"workDir"`
	AuthorName  string `yaml:"authorName"`
	AuthorEmail string `yaml:"authorEmail"`
}

// OutputConfig locates one-shot review reports.
type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// ObservabilityConfig configures logging.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level    string `yaml:"level"`    // debug, info, warn, error
	Mode     string `yaml:"mode"`     // development or production
	Encoding string `yaml:"encoding"` // json or console; empty picks by terminal
}

// EnabledPlatforms returns the names of enabled platforms in canonical
// order.
func (c Config) EnabledPlatforms() []string {
	var names []string
	for _, name := range PlatformNames() {
		if c.Platforms[name].Enabled {
			names = append(names, name)
		}
	}
	return names
}

// ParseDuration parses a configured duration string, falling back when
// the value is empty or malformed. Negative durations are rejected; they
// would panic inside http.Client.
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value != "" {
		if d, err := time.ParseDuration(value); err == nil && d >= 0 {
			return d
		}
	}
	if fallback < 0 {
		return 0
	}
	return fallback
}
