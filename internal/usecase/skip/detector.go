// Package skip provides skip marker detection for review runs. It lets
// authors opt a pull request out of automated review through its title
// or labels.
package skip

import (
	"regexp"
	"strings"
)

// skipMarkerPattern matches [skip review] or [no review], with a space or
// hyphen separator, case-insensitive.
var skipMarkerPattern = regexp.MustCompile(`(?i)\[(skip|no)[ -]review\]`)

// skipLabel is the label that opts a pull request out of review.
const skipLabel = "skip-review"

// ContainsSkipMarker checks if text contains a skip marker.
// Supported markers:
//   - [skip review] / [skip-review]
//   - [no review] / [no-review]
//
// Matching is case-insensitive.
func ContainsSkipMarker(text string) bool {
	return skipMarkerPattern.MatchString(text)
}

// CheckRequest contains the inputs to check for skip markers.
type CheckRequest struct {
	Title  string   // PR title (optional)
	Labels []string // PR labels (optional)
}

// CheckResult contains the result of checking for skip markers.
type CheckResult struct {
	ShouldSkip bool   // True if a skip marker was found
	Reason     string // Source where the marker was found ("title", "label")
}

// Check examines the pull request title and labels for skip markers.
// The title is checked first; the first match wins.
func Check(req CheckRequest) CheckResult {
	if ContainsSkipMarker(strings.TrimSpace(req.Title)) {
		return CheckResult{
			ShouldSkip: true,
			Reason:     "title",
		}
	}

	for _, label := range req.Labels {
		if strings.EqualFold(strings.TrimSpace(label), skipLabel) {
			return CheckResult{
				ShouldSkip: true,
				Reason:     "label",
			}
		}
	}

	return CheckResult{
		ShouldSkip: false,
		Reason:     "",
	}
}
