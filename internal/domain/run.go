package domain

import "time"

// Review run states. A run moves triggered → analyzing → posting_results →
// completed, or exits early to failed or skipped.
const (
	RunTriggered      = "triggered"
	RunAnalyzing      = "analyzing"
	RunPostingResults = "posting_results"
	RunCompleted      = "completed"
	RunFailed         = "failed"
	RunSkipped        = "skipped"
)

// Run is the persisted record of one review run.
type Run struct {
	ID           string    `json:"id"`
	Platform     Platform  `json:"platform"`
	Owner        string    `json:"owner"`
	Repo         string    `json:"repo"`
	Number       int       `json:"number"`
	HeadSHA      string    `json:"headSha"`
	State        string    `json:"state"`
	Score        float64   `json:"score"`
	ReviewStatus string    `json:"reviewStatus,omitempty"`
	IssueCount   int       `json:"issueCount"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt,omitempty"`
}

// Terminal reports whether the run has reached a final state.
func (r Run) Terminal() bool {
	switch r.State {
	case RunCompleted, RunFailed, RunSkipped:
		return true
	}
	return false
}
