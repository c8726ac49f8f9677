package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// LoaderOptions describes how configuration should be discovered.
type LoaderOptions struct {
	ConfigPaths []string
	FileName    string
	EnvPrefix   string
}

// Load returns the merged configuration from files and environment variables.
func Load(opts LoaderOptions) (Config, error) {
	v := viper.New()

	name := opts.FileName
	if name == "" {
		name = "revgw"
	}

	configFile := locateConfigFile(name, opts.ConfigPaths)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "REVGW"
	}
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)

	setDefaults(v)

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	// Expand environment variables in config values
	cfg = expandEnvVars(cfg)

	return cfg, nil
}

// expandEnvVars expands ${VAR}, $VAR, and a leading ~ in configuration
// strings.
func expandEnvVars(cfg Config) Config {
	// Expand platform credentials and endpoints
	for name, platform := range cfg.Platforms {
		platform.Token = expandEnvString(platform.Token)
		platform.Username = expandEnvString(platform.Username)
		platform.AppPassword = expandEnvString(platform.AppPassword)
		platform.Organization = expandEnvString(platform.Organization)
		platform.BaseURL = expandEnvString(platform.BaseURL)
		platform.WebhookSecret = expandEnvString(platform.WebhookSecret)
		cfg.Platforms[name] = platform
	}

	// Expand AI backend config
	cfg.AI.APIKey = expandEnvString(cfg.AI.APIKey)
	cfg.AI.Model = expandEnvString(cfg.AI.Model)
	cfg.AI.BaseURL = expandEnvString(cfg.AI.BaseURL)

	// Expand store config
	cfg.Store.Path = expandEnvString(cfg.Store.Path)
	cfg.Store.DatabaseURL = expandEnvString(cfg.Store.DatabaseURL)

	// Expand notification config
	cfg.Notifications.Kafka.BootstrapServers = expandEnvString(cfg.Notifications.Kafka.BootstrapServers)
	cfg.Notifications.Kafka.Topic = expandEnvString(cfg.Notifications.Kafka.Topic)

	// Expand gitops config
	cfg.Gitops.WorkDir = expandEnvString(cfg.Gitops.WorkDir)
	cfg.Gitops.AuthorName = expandEnvString(cfg.Gitops.AuthorName)
	cfg.Gitops.AuthorEmail = expandEnvString(cfg.Gitops.AuthorEmail)

	// Expand output config
	cfg.Output.Directory = expandEnvString(cfg.Output.Directory)

	// Expand observability config
	cfg.Observability.Logging.Level = expandEnvString(cfg.Observability.Logging.Level)
	cfg.Observability.Logging.Encoding = expandEnvString(cfg.Observability.Logging.Encoding)

	return cfg
}

// expandEnvString replaces ${VAR} or $VAR with environment variable values
// and a leading ~ with the home directory.
func expandEnvString(s string) string {
	if s == "" {
		return s
	}

	s = expandTilde(s)

	// Replace ${VAR} syntax
	re := regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1] // Remove ${ and }
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Keep original if not found
	})

	// Replace $VAR syntax (without braces)
	re = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:] // Remove $
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Keep original if not found
	})

	return s
}

// expandTilde resolves a ~ prefix to the home directory. A tilde anywhere
// else in the string stays literal.
func expandTilde(s string) string {
	if s != "~" && !strings.HasPrefix(s, "~/") {
		return s
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return s
	}
	return home + s[1:]
}

func locateConfigFile(name string, paths []string) string {
	searchPaths := append([]string{}, paths...)
	searchPaths = append(searchPaths, ".")
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name+".yaml")
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	// HTTP defaults
	v.SetDefault("http.timeout", "30s")

	// Webhook defaults
	v.SetDefault("webhook.rateLimitPerMinute", 60)

	// Review run defaults
	v.SetDefault("review.dispatch", "async")
	v.SetDefault("review.maxConcurrentRuns", 8)
	v.SetDefault("review.runTimeout", "5m")
	v.SetDefault("review.maxConcurrentFiles", 4)
	v.SetDefault("review.autoFix", false)

	// AI backend defaults
	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.baseURL", "")
	v.SetDefault("ai.timeout", "60s")

	// Store defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", defaultStorePath())
	v.SetDefault("store.databaseURL", "")

	// Notification defaults
	v.SetDefault("notifications.buffer", 256)
	v.SetDefault("notifications.kafka.enabled", false)
	v.SetDefault("notifications.kafka.bootstrapServers", "")
	v.SetDefault("notifications.kafka.topic", "review-gateway.notifications")
	v.SetDefault("notifications.kafka.deliveryTimeout", "10s")

	// Gitops defaults
	v.SetDefault("gitops.authorName", "review-gateway")
	v.SetDefault("gitops.authorEmail", "review-gateway@localhost")

	// Output defaults
	v.SetDefault("output.directory", "out")

	// Observability defaults
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.mode", "development")
	v.SetDefault("observability.logging.encoding", "")

	// Platform defaults. Secrets default empty so environment overrides
	// have a key to land on.
	for _, name := range PlatformNames() {
		v.SetDefault("platforms."+name+".enabled", false)
		v.SetDefault("platforms."+name+".token", "")
		v.SetDefault("platforms."+name+".baseURL", "")
		v.SetDefault("platforms."+name+".webhookSecret", "")
		v.SetDefault("platforms."+name+".retry.enabled", false)
	}
	v.SetDefault("platforms.bitbucket.username", "")
	v.SetDefault("platforms.bitbucket.appPassword", "")
	v.SetDefault("platforms.azure.organization", "")
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./runs.db"
	}
	return filepath.Join(home, ".config", "revgw", "runs.db")
}
