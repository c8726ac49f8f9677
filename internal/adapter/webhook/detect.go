package webhook

import (
	"net/http"
	"strings"

	"github.com/bkyoung/review-gateway/internal/domain"
)

// Azure DevOps service hooks identify themselves only by user agent.
const azureUserAgentPrefix = "VSServices"

// detectPlatform identifies the sending platform from request headers and
// returns it with the platform's event descriptor. Detection is mutually
// exclusive; the first matching header wins.
func detectPlatform(r *http.Request) (domain.Platform, string, bool) {
	if v := r.Header.Get("X-Github-Event"); v != "" {
		return domain.PlatformGitHub, v, true
	}
	if v := r.Header.Get("X-Gitlab-Event"); v != "" {
		return domain.PlatformGitLab, v, true
	}
	if v := r.Header.Get("X-Event-Key"); v != "" {
		return domain.PlatformBitbucket, v, true
	}
	if strings.HasPrefix(r.Header.Get("User-Agent"), azureUserAgentPrefix) {
		return domain.PlatformAzureDevOps, "", true
	}
	return "", "", false
}
