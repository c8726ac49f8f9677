package github

// Wire types for the GitHub REST API (v3).
// See: https://docs.github.com/en/rest

// RepositoryResponse is the repository object returned by GET /repos/{owner}/{repo}.
type RepositoryResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
	Language      string `json:"language"`
	HTMLURL       string `json:"html_url"`
	CloneURL      string `json:"clone_url"`
	Owner         struct {
		Login string `json:"login"`
		ID    int64  `json:"id"`
	} `json:"owner"`
}

// PullRequestResponse is the pull request object from GET /repos/{o}/{r}/pulls/{n}.
type PullRequestResponse struct {
	ID        int64  `json:"id"`
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	State     string `json:"state"` // open or closed; merged is signaled by merged_at
	Draft     bool   `json:"draft"`
	Mergeable *bool  `json:"mergeable"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	MergedAt  string `json:"merged_at"`
	User      struct {
		Login string `json:"login"`
		ID    int64  `json:"id"`
	} `json:"user"`
	Head struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
	Assignees []struct {
		Login string `json:"login"`
		ID    int64  `json:"id"`
	} `json:"assignees"`
	RequestedReviewers []struct {
		Login string `json:"login"`
		ID    int64  `json:"id"`
	} `json:"requested_reviewers"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
}

// FileResponse is one entry from GET /repos/{o}/{r}/pulls/{n}/files.
type FileResponse struct {
	Filename         string `json:"filename"`
	Status           string `json:"status"`
	Additions        int    `json:"additions"`
	Deletions        int    `json:"deletions"`
	Changes          int    `json:"changes"`
	Patch            string `json:"patch"`
	PreviousFilename string `json:"previous_filename"`
}

// ContentResponse is the envelope from GET /repos/{o}/{r}/contents/{path}.
type ContentResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// IssueCommentRequest posts a plain comment on the PR conversation thread.
type IssueCommentRequest struct {
	Body string `json:"body"`
}

// ReviewCommentRequest posts a line comment on the PR diff.
type ReviewCommentRequest struct {
	Body     string `json:"body"`
	CommitID string `json:"commit_id"`
	Path     string `json:"path"`
	Line     int    `json:"line"`
	Side     string `json:"side"`
}

// StatusRequest is the body for POST /repos/{o}/{r}/statuses/{sha}.
type StatusRequest struct {
	State       string `json:"state"`
	Context     string `json:"context"`
	Description string `json:"description"`
	TargetURL   string `json:"target_url,omitempty"`
}

// BranchProtectionRequest is the body for PUT .../branches/{branch}/protection.
// Restrictions must be present and null when unused.
type BranchProtectionRequest struct {
	RequiredStatusChecks       *RequiredStatusChecks `json:"required_status_checks"`
	EnforceAdmins              bool                  `json:"enforce_admins"`
	RequiredPullRequestReviews *RequiredReviews      `json:"required_pull_request_reviews"`
	Restrictions               *struct{}             `json:"restrictions"`
}

// RequiredStatusChecks names the contexts that must pass before merging.
type RequiredStatusChecks struct {
	Strict   bool     `json:"strict"`
	Contexts []string `json:"contexts"`
}

// RequiredReviews sets the approving review count.
type RequiredReviews struct {
	RequiredApprovingReviewCount int `json:"required_approving_review_count"`
}

// WebhookRequest is the body for POST /repos/{o}/{r}/hooks.
type WebhookRequest struct {
	Name   string               `json:"name"`
	Active bool                 `json:"active"`
	Events []string             `json:"events"`
	Config WebhookRequestConfig `json:"config"`
}

// WebhookRequestConfig is the nested config object of a webhook.
type WebhookRequestConfig struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Secret      string `json:"secret,omitempty"`
	InsecureSSL string `json:"insecure_ssl"`
}

// WebhookResponse is the created hook.
type WebhookResponse struct {
	ID int64 `json:"id"`
}

// ErrorResponse is GitHub's error body.
type ErrorResponse struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
	Errors           []struct {
		Resource string `json:"resource"`
		Field    string `json:"field"`
		Code     string `json:"code"`
		Message  string `json:"message"`
	} `json:"errors,omitempty"`
}
