package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/review-gateway/internal/adapter/platform/httpx"
	"github.com/bkyoung/review-gateway/internal/config"
	"github.com/bkyoung/review-gateway/internal/domain"
)

func TestBuildConnectors(t *testing.T) {
	tests := []struct {
		name          string
		platforms     map[string]config.PlatformConfig
		wantPlatforms []domain.Platform
		wantErr       string
	}{
		{
			name:      "no platforms enabled",
			platforms: map[string]config.PlatformConfig{},
		},
		{
			name: "github and gitlab enabled",
			platforms: map[string]config.PlatformConfig{
				"github": {Enabled: true, Token: "ghp_test"},
				"gitlab": {Enabled: true, Token: "glpat_test"},
			},
			wantPlatforms: []domain.Platform{domain.PlatformGitHub, domain.PlatformGitLab},
		},
		{
			name: "all four platforms enabled",
			platforms: map[string]config.PlatformConfig{
				"github":    {Enabled: true, Token: "ghp_test"},
				"gitlab":    {Enabled: true, Token: "glpat_test"},
				"bitbucket": {Enabled: true, Username: "user", AppPassword: "pass"},
				"azure":     {Enabled: true, Organization: "org", Token: "pat"},
			},
			wantPlatforms: []domain.Platform{
				domain.PlatformGitHub,
				domain.PlatformGitLab,
				domain.PlatformBitbucket,
				domain.PlatformAzureDevOps,
			},
		},
		{
			name: "enabled platform without credentials fails startup",
			platforms: map[string]config.PlatformConfig{
				"github": {Enabled: true},
			},
			wantErr: "configuring github connector",
		},
		{
			name: "bitbucket without app password fails startup",
			platforms: map[string]config.PlatformConfig{
				"bitbucket": {Enabled: true, Username: "user"},
			},
			wantErr: "configuring bitbucket connector",
		},
		{
			name: "azure without organization fails startup",
			platforms: map[string]config.PlatformConfig{
				"azure": {Enabled: true, Token: "pat"},
			},
			wantErr: "configuring azure connector",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connectors, err := buildConnectors(config.Config{Platforms: tt.platforms})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			var got []domain.Platform
			for _, c := range connectors {
				got = append(got, c.Platform())
			}
			assert.Equal(t, tt.wantPlatforms, got)
		})
	}
}

func TestRetryConfig(t *testing.T) {
	t.Run("disabled stays zero", func(t *testing.T) {
		assert.Equal(t, httpx.RetryConfig{}, retryConfig(config.RetryConfig{}))
	})

	t.Run("enabled picks up defaults", func(t *testing.T) {
		got := retryConfig(config.RetryConfig{Enabled: true})
		assert.True(t, got.Enabled)
		assert.Equal(t, 3, got.MaxRetries)
		assert.Equal(t, time.Second, got.InitialBackoff)
	})

	t.Run("explicit values override defaults", func(t *testing.T) {
		got := retryConfig(config.RetryConfig{
			Enabled:           true,
			MaxRetries:        5,
			InitialBackoff:    "500ms",
			MaxBackoff:        "10s",
			BackoffMultiplier: 3,
		})
		assert.Equal(t, 5, got.MaxRetries)
		assert.Equal(t, 500*time.Millisecond, got.InitialBackoff)
		assert.Equal(t, 10*time.Second, got.MaxBackoff)
		assert.Equal(t, 3.0, got.Multiplier)
	})
}

func TestWebhookSecrets(t *testing.T) {
	cfg := config.Config{Platforms: map[string]config.PlatformConfig{
		"github":    {Enabled: true, WebhookSecret: "gh-secret"},
		"gitlab":    {Enabled: true},
		"bitbucket": {Enabled: true, WebhookSecret: "ignored"},
	}}

	secrets := webhookSecrets(cfg)

	assert.Equal(t, map[domain.Platform]string{domain.PlatformGitHub: "gh-secret"}, secrets)
}

func TestGitCredentials(t *testing.T) {
	cfg := config.Config{Platforms: map[string]config.PlatformConfig{
		"github":    {Enabled: true, Token: "ghp_test"},
		"bitbucket": {Enabled: true, Username: "user", AppPassword: "app-pass"},
		"azure":     {Enabled: false, Token: "unused"},
	}}

	creds := gitCredentials(cfg)

	require.Len(t, creds, 2)
	assert.Equal(t, "ghp_test", creds[domain.PlatformGitHub].Token)
	assert.Equal(t, "user", creds[domain.PlatformBitbucket].Username)
	assert.Equal(t, "app-pass", creds[domain.PlatformBitbucket].Token)
	assert.NotContains(t, creds, domain.PlatformAzureDevOps)
}

func TestDefaultConfigPaths(t *testing.T) {
	paths := defaultConfigPaths()

	require.NotEmpty(t, paths)
	assert.Equal(t, ".", paths[0])
}
