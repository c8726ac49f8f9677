package orchestrate

import "sync/atomic"

// Metrics holds the process-wide orchestrator counters. Counters are
// incremented atomically from concurrent review runs; a failed run leaves
// everything except WebhooksProcessed untouched.
type Metrics struct {
	webhooksProcessed atomic.Int64
	reviewsCompleted  atomic.Int64
	issuesFound       atomic.Int64
	autoFixesApplied  atomic.Int64
}

// NewMetrics returns a zeroed counter set.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// WebhookProcessed records one accepted webhook delivery.
func (m *Metrics) WebhookProcessed() {
	m.webhooksProcessed.Add(1)
}

// ReviewCompleted records one review run that reached completed.
func (m *Metrics) ReviewCompleted() {
	m.reviewsCompleted.Add(1)
}

// IssuesFound records findings surfaced by a completed run.
func (m *Metrics) IssuesFound(n int) {
	m.issuesFound.Add(int64(n))
}

// AutoFixesApplied records applied auto-fixes from a completed run.
func (m *Metrics) AutoFixesApplied(n int) {
	m.autoFixesApplied.Add(int64(n))
}

// MetricsSnapshot is the exported counter view.
type MetricsSnapshot struct {
	WebhooksProcessed int64 `json:"webhooksProcessed"`
	ReviewsCompleted  int64 `json:"reviewsCompleted"`
	IssuesFound       int64 `json:"issuesFound"`
	AutoFixesApplied  int64 `json:"autoFixesApplied"`
}

// Snapshot reads the counters. Each counter is read atomically; the set is
// not a transaction, which is fine for monitoring export.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		WebhooksProcessed: m.webhooksProcessed.Load(),
		ReviewsCompleted:  m.reviewsCompleted.Load(),
		IssuesFound:       m.issuesFound.Load(),
		AutoFixesApplied:  m.autoFixesApplied.Load(),
	}
}

// Reset zeroes every counter.
func (m *Metrics) Reset() {
	m.webhooksProcessed.Store(0)
	m.reviewsCompleted.Store(0)
	m.issuesFound.Store(0)
	m.autoFixesApplied.Store(0)
}
