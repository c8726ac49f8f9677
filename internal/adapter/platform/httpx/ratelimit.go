package httpx

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bkyoung/review-gateway/internal/domain"
)

// ParseRateLimit extracts rate-limit information from response headers.
// GitHub uses X-RateLimit-*, GitLab uses RateLimit-*; both report the reset
// as a Unix timestamp. A response without these headers yields the zero
// value, which is not an error.
func ParseRateLimit(header http.Header) domain.RateLimit {
	var rl domain.RateLimit

	limit := firstHeader(header, "X-RateLimit-Limit", "RateLimit-Limit")
	remaining := firstHeader(header, "X-RateLimit-Remaining", "RateLimit-Remaining")
	reset := firstHeader(header, "X-RateLimit-Reset", "RateLimit-Reset")

	if limit == "" && remaining == "" && reset == "" {
		return rl
	}

	if v, err := strconv.Atoi(limit); err == nil {
		rl.Limit = v
	}
	if v, err := strconv.Atoi(remaining); err == nil {
		rl.Remaining = v
	}
	if v, err := strconv.ParseInt(reset, 10, 64); err == nil && v > 0 {
		rl.Reset = time.Unix(v, 0).UTC()
	}
	return rl
}

func firstHeader(header http.Header, names ...string) string {
	for _, name := range names {
		if v := header.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// RateLimitTracker remembers the most recent rate-limit envelope a platform
// returned. Safe for concurrent use.
type RateLimitTracker struct {
	mu      sync.RWMutex
	current domain.RateLimit
}

// Observe records the limits found on a response, ignoring responses that
// carried none.
func (t *RateLimitTracker) Observe(header http.Header) {
	rl := ParseRateLimit(header)
	if rl == (domain.RateLimit{}) {
		return
	}
	t.mu.Lock()
	t.current = rl
	t.mu.Unlock()
}

// Current returns the last observed rate limit, or the zero value if the
// platform never reported one.
func (t *RateLimitTracker) Current() domain.RateLimit {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}
