package domain

import (
	"encoding/json"
	"time"
)

// Platform identifies the source-control service an event originated from
// or a connector talks to.
type Platform string

const (
	PlatformGitHub      Platform = "github"
	PlatformGitLab      Platform = "gitlab"
	PlatformBitbucket   Platform = "bitbucket"
	PlatformAzureDevOps Platform = "azure_devops"
)

// KnownPlatforms returns every platform tag a connector can be configured for.
func KnownPlatforms() []Platform {
	return []Platform{PlatformGitHub, PlatformGitLab, PlatformBitbucket, PlatformAzureDevOps}
}

// EventType is the canonical classification of an inbound webhook delivery.
type EventType string

const (
	EventPush        EventType = "push"
	EventPullRequest EventType = "pull_request"
	EventIssue       EventType = "issue"
	EventRelease     EventType = "release"
	EventWorkflowRun EventType = "workflow_run"
)

const (
	FileStatusAdded    = "added"
	FileStatusModified = "modified"
	FileStatusRemoved  = "removed"
	FileStatusRenamed  = "renamed"
)

const (
	MergeRequestOpen   = "open"
	MergeRequestClosed = "closed"
	MergeRequestMerged = "merged"
)

// Canonical pull-request actions that trigger a review.
const (
	ActionOpened       = "opened"
	ActionSynchronized = "synchronized"
)

// WebhookEvent is the canonical form of one inbound webhook delivery. It is
// created once per accepted request, never mutated, and never persisted.
type WebhookEvent struct {
	ID          string          `json:"id"`
	Type        EventType       `json:"type"`
	Platform    Platform        `json:"platform"`
	Repository  Repository      `json:"repository"`
	Sender      User            `json:"sender"`
	PullRequest *PullRequestRef `json:"pullRequest,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	Timestamp   time.Time       `json:"timestamp"`
	Signature   string          `json:"signature,omitempty"`
}

// PullRequestRef carries the pull-request identity extracted during
// normalization, so downstream code never re-parses raw payloads.
type PullRequestRef struct {
	Number       int      `json:"number"`
	Action       string   `json:"action"`
	Title        string   `json:"title"`
	HeadSHA      string   `json:"headSha"`
	SourceBranch string   `json:"sourceBranch"`
	TargetBranch string   `json:"targetBranch"`
	Labels       []string `json:"labels,omitempty"`
}

// Repository is the canonical repository value object.
type Repository struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"fullName"`
	Owner         string `json:"owner"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"defaultBranch"`
	Language      string `json:"language,omitempty"`
	URL           string `json:"url"`
	CloneURL      string `json:"cloneUrl"`
}

// User identifies an account on the originating platform.
type User struct {
	ID    string `json:"id,omitempty"`
	Login string `json:"login"`
	Name  string `json:"name,omitempty"`
}

// MergeRequest is the canonical pull/merge request.
type MergeRequest struct {
	ID           string     `json:"id"`
	Number       int        `json:"number"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	State        string     `json:"state"`
	SourceBranch string     `json:"sourceBranch"`
	TargetBranch string     `json:"targetBranch"`
	Author       User       `json:"author"`
	Assignees    []User     `json:"assignees,omitempty"`
	Reviewers    []User     `json:"reviewers,omitempty"`
	Labels       []string   `json:"labels,omitempty"`
	Draft        bool       `json:"draft"`
	Mergeable    bool       `json:"mergeable"`
	HeadSHA      string     `json:"headSha"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	MergedAt     *time.Time `json:"mergedAt,omitempty"`
}

// ChangedFile describes one file touched by a merge request.
type ChangedFile struct {
	Filename         string `json:"filename"`
	Status           string `json:"status"`
	Additions        int    `json:"additions"`
	Deletions        int    `json:"deletions"`
	Changes          int    `json:"changes"`
	Patch            string `json:"patch,omitempty"`
	PreviousFilename string `json:"previousFilename,omitempty"`
	Language         string `json:"language,omitempty"`
}

// Comment is an outbound review comment. Path and Line anchor it to a diff
// position when both are set.
type Comment struct {
	Body string `json:"body"`
	Path string `json:"path,omitempty"`
	Line int    `json:"line,omitempty"`
}

// Anchored reports whether the comment targets a specific file line.
func (c Comment) Anchored() bool {
	return c.Path != "" && c.Line > 0
}

const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusError   = "error"
)

// CommitStatus is the canonical commit status update.
type CommitStatus struct {
	State       string `json:"state"`
	Context     string `json:"context"`
	Description string `json:"description"`
	TargetURL   string `json:"targetUrl,omitempty"`
}

// BranchProtection is the canonical protection rule applied to a branch.
type BranchProtection struct {
	RequiredReviewers   int      `json:"requiredReviewers"`
	RequireStatusChecks bool     `json:"requireStatusChecks"`
	StatusCheckContexts []string `json:"statusCheckContexts,omitempty"`
	EnforceAdmins       bool     `json:"enforceAdmins"`
}

// WebhookConfig describes a webhook subscription to create on a platform.
type WebhookConfig struct {
	URL         string   `json:"url"`
	Secret      string   `json:"secret,omitempty"`
	Events      []string `json:"events"`
	ContentType string   `json:"contentType"`
	Active      bool     `json:"active"`
}

// RateLimit captures the most recent rate-limit headers a platform returned.
// The zero value means the platform reported nothing.
type RateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}
