package httpx_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/review-gateway/internal/adapter/platform/httpx"
	"github.com/bkyoung/review-gateway/internal/domain"
)

func TestMapStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantType   httpx.ErrorType
		retryable  bool
	}{
		{"401 is authentication", 401, httpx.ErrTypeAuthentication, false},
		{"403 is authorization", 403, httpx.ErrTypeAuthorization, false},
		{"404 is not found", 404, httpx.ErrTypeNotFound, false},
		{"408 is timeout", 408, httpx.ErrTypeTimeout, true},
		{"429 is rate limit", 429, httpx.ErrTypeRateLimit, true},
		{"400 is validation", 400, httpx.ErrTypeValidation, false},
		{"422 is validation", 422, httpx.ErrTypeValidation, false},
		{"500 is unavailable", 500, httpx.ErrTypeUnavailable, true},
		{"502 is unavailable", 502, httpx.ErrTypeUnavailable, true},
		{"503 is unavailable", 503, httpx.ErrTypeUnavailable, true},
		{"504 is unavailable", 504, httpx.ErrTypeUnavailable, true},
		{"418 is unknown", 418, httpx.ErrTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := httpx.MapStatus(domain.PlatformGitHub, tt.statusCode, "boom")
			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, tt.retryable, err.IsRetryable())
			assert.Equal(t, tt.statusCode, err.StatusCode)
			assert.Equal(t, domain.PlatformGitHub, err.Platform)
		})
	}
}

func TestMapStatusDefaultsMessage(t *testing.T) {
	err := httpx.MapStatus(domain.PlatformGitLab, 500, "")
	assert.Contains(t, err.Message, "HTTP 500")
}

func TestErrorStringIncludesPlatformAndStatus(t *testing.T) {
	err := httpx.MapStatus(domain.PlatformBitbucket, 404, "no such repo")
	assert.Contains(t, err.Error(), "bitbucket")
	assert.Contains(t, err.Error(), "no such repo")
	assert.Contains(t, err.Error(), "404")
}

func TestErrorIsMatchesOnType(t *testing.T) {
	wrapped := fmt.Errorf("fetching files: %w", httpx.MapStatus(domain.PlatformGitHub, 429, "slow down"))

	assert.True(t, errors.Is(wrapped, &httpx.Error{Type: httpx.ErrTypeRateLimit}))
	assert.False(t, errors.Is(wrapped, &httpx.Error{Type: httpx.ErrTypeNotFound}))

	var typed *httpx.Error
	require.True(t, errors.As(wrapped, &typed))
	assert.Equal(t, 429, typed.StatusCode)
}

func TestNotValidatedSentinel(t *testing.T) {
	err := httpx.NewNotValidatedError(domain.PlatformAzureDevOps)
	wrapped := fmt.Errorf("posting comment: %w", err)

	assert.True(t, errors.Is(wrapped, httpx.ErrNotValidated))
	assert.False(t, err.IsRetryable())
	assert.Contains(t, err.Error(), "azure_devops")
}
