package bitbucket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bkyoung/review-gateway/internal/adapter/platform/httpx"
	"github.com/bkyoung/review-gateway/internal/domain"
)

const (
	defaultBaseURL = "https://api.bitbucket.org/2.0"
	defaultTimeout = 30 * time.Second
	pageLen        = 100
)

// Config carries the settings for one Bitbucket Cloud connector.
type Config struct {
	Username    string
	AppPassword string
	BaseURL     string // optional, for tests
	Timeout     time.Duration
	Retry       httpx.RetryConfig
}

// Client implements the platform connector against the Bitbucket Cloud
// REST API 2.0. List endpoints paginate via the next URL the API hands
// back rather than a page counter.
type Client struct {
	username    string
	appPassword string
	baseURL     string
	httpClient  *http.Client
	retryConf   httpx.RetryConfig
	rateLimit   httpx.RateLimitTracker
	validated   atomic.Bool
}

// New builds a Bitbucket connector from a username and app password.
func New(cfg Config) (*Client, error) {
	if cfg.Username == "" || cfg.AppPassword == "" {
		return nil, fmt.Errorf("bitbucket: username and app password are required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		username:    cfg.Username,
		appPassword: cfg.AppPassword,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		retryConf:   cfg.Retry,
	}, nil
}

// Platform returns the connector's platform tag.
func (c *Client) Platform() domain.Platform {
	return domain.PlatformBitbucket
}

// Validate checks the credentials against the current-user endpoint.
func (c *Client) Validate(ctx context.Context) error {
	if _, err := c.request(ctx, http.MethodGet, c.baseURL+"/user", nil); err != nil {
		return fmt.Errorf("bitbucket: validating credentials: %w", err)
	}
	c.validated.Store(true)
	return nil
}

// RateLimit returns the most recently observed rate-limit envelope.
// Bitbucket omits rate-limit headers on most endpoints, so the zero
// value is common.
func (c *Client) RateLimit() domain.RateLimit {
	return c.rateLimit.Current()
}

// ListRepositories lists the repositories the credentials can access.
func (c *Client) ListRepositories(ctx context.Context) ([]domain.Repository, error) {
	var repos []domain.Repository
	next := fmt.Sprintf("%s/repositories?role=member&pagelen=%d", c.baseURL, pageLen)
	for next != "" {
		data, err := c.do(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, fmt.Errorf("bitbucket: listing repositories: %w", err)
		}

		var page RepositoryPage
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("bitbucket: parsing repository page: %w", err)
		}
		for _, r := range page.Values {
			repos = append(repos, mapRepository(r))
		}
		next = page.Next
	}
	return repos, nil
}

// GetRepository fetches a single repository by workspace and slug.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (domain.Repository, error) {
	data, err := c.do(ctx, http.MethodGet, c.repoURL(owner, repo), nil)
	if err != nil {
		return domain.Repository{}, fmt.Errorf("bitbucket: fetching repository %s/%s: %w", owner, repo, err)
	}

	var resp RepositoryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return domain.Repository{}, fmt.Errorf("bitbucket: parsing repository: %w", err)
	}
	return mapRepository(resp), nil
}

// GetMergeRequest fetches a pull request. Bitbucket does not report a
// merge timestamp or mergeability on this resource, so those fields
// stay at their zero values.
func (c *Client) GetMergeRequest(ctx context.Context, owner, repo string, number int) (domain.MergeRequest, error) {
	url := fmt.Sprintf("%s/pullrequests/%d", c.repoURL(owner, repo), number)
	data, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.MergeRequest{}, fmt.Errorf("bitbucket: fetching pull request %s/%s#%d: %w", owner, repo, number, err)
	}

	var resp PullRequestResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return domain.MergeRequest{}, fmt.Errorf("bitbucket: parsing pull request: %w", err)
	}
	return mapPullRequest(resp), nil
}

// GetChangedFiles lists the files touched by a pull request via diffstat.
func (c *Client) GetChangedFiles(ctx context.Context, owner, repo string, number int) ([]domain.ChangedFile, error) {
	var files []domain.ChangedFile
	next := fmt.Sprintf("%s/pullrequests/%d/diffstat?pagelen=%d", c.repoURL(owner, repo), number, pageLen)
	for next != "" {
		data, err := c.do(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, fmt.Errorf("bitbucket: listing diffstat for %s/%s#%d: %w", owner, repo, number, err)
		}

		var page DiffstatPage
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("bitbucket: parsing diffstat page: %w", err)
		}
		for _, entry := range page.Values {
			files = append(files, mapDiffstat(entry))
		}
		next = page.Next
	}
	return files, nil
}

// GetFileContent fetches a file's raw bytes at the given ref. The src
// endpoint returns the bytes directly with no JSON envelope.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	if ref == "" {
		ref = "HEAD"
	}
	reqURL := fmt.Sprintf("%s/src/%s/%s", c.repoURL(owner, repo), url.PathEscape(ref), escapePath(path))
	data, err := c.do(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("bitbucket: fetching content of %s: %w", path, err)
	}
	return data, nil
}

// PostComment posts a pull request comment, inline when anchored.
func (c *Client) PostComment(ctx context.Context, owner, repo string, number int, comment domain.Comment) error {
	body := CommentRequest{Content: CommentContent{Raw: comment.Body}}
	if comment.Anchored() {
		body.Inline = &CommentInline{Path: comment.Path, To: comment.Line}
	}

	url := fmt.Sprintf("%s/pullrequests/%d/comments", c.repoURL(owner, repo), number)
	if _, err := c.do(ctx, http.MethodPost, url, body); err != nil {
		return fmt.Errorf("bitbucket: posting comment on %s/%s#%d: %w", owner, repo, number, err)
	}
	return nil
}

// UpdateCommitStatus sets a build status on a commit. The canonical
// context doubles as the status key Bitbucket requires.
func (c *Client) UpdateCommitStatus(ctx context.Context, owner, repo, sha string, status domain.CommitStatus) error {
	url := fmt.Sprintf("%s/commit/%s/statuses/build", c.repoURL(owner, repo), sha)
	body := BuildStatusRequest{
		Key:         status.Context,
		State:       mapStatusState(status.State),
		Name:        status.Context,
		Description: status.Description,
		URL:         status.TargetURL,
	}
	if _, err := c.do(ctx, http.MethodPost, url, body); err != nil {
		return fmt.Errorf("bitbucket: updating status on %s: %w", sha, err)
	}
	return nil
}

// SetBranchProtection creates branch restrictions for the branch.
// Bitbucket models protection as one restriction per rule, so reviewer
// and build requirements become separate calls. Named status contexts
// have no equivalent; Bitbucket counts passing builds instead.
func (c *Client) SetBranchProtection(ctx context.Context, owner, repo, branch string, protection domain.BranchProtection) error {
	url := fmt.Sprintf("%s/branch-restrictions", c.repoURL(owner, repo))

	restrictions := []BranchRestrictionRequest{
		{Kind: "push", BranchMatchKind: "glob", Pattern: branch},
	}
	if protection.RequiredReviewers > 0 {
		restrictions = append(restrictions, BranchRestrictionRequest{
			Kind:            "require_approvals_to_merge",
			BranchMatchKind: "glob",
			Pattern:         branch,
			Value:           protection.RequiredReviewers,
		})
	}
	if protection.RequireStatusChecks {
		restrictions = append(restrictions, BranchRestrictionRequest{
			Kind:            "require_passing_builds_to_merge",
			BranchMatchKind: "glob",
			Pattern:         branch,
			Value:           1,
		})
	}

	for _, restriction := range restrictions {
		if _, err := c.do(ctx, http.MethodPost, url, restriction); err != nil {
			return fmt.Errorf("bitbucket: restricting branch %s (%s): %w", branch, restriction.Kind, err)
		}
	}
	return nil
}

// CreateWebhook registers a repository webhook and returns its UUID.
func (c *Client) CreateWebhook(ctx context.Context, owner, repo string, hook domain.WebhookConfig) (string, error) {
	body := WebhookRequest{
		Description: "review-gateway",
		URL:         hook.URL,
		Secret:      hook.Secret,
		Active:      hook.Active,
		Events:      mapHookEvents(hook.Events),
	}

	url := fmt.Sprintf("%s/hooks", c.repoURL(owner, repo))
	data, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("bitbucket: creating hook on %s/%s: %w", owner, repo, err)
	}

	var resp WebhookResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("bitbucket: parsing hook response: %w", err)
	}
	return resp.UUID, nil
}

func (c *Client) repoURL(owner, repo string) string {
	return fmt.Sprintf("%s/repositories/%s/%s", c.baseURL, owner, repo)
}

// do runs one authenticated request, enforcing the Validate-first contract.
func (c *Client) do(ctx context.Context, method, url string, body any) ([]byte, error) {
	if !c.validated.Load() {
		return nil, httpx.NewNotValidatedError(domain.PlatformBitbucket)
	}
	return c.request(ctx, method, url, body)
}

func (c *Client) request(ctx context.Context, method, url string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	var out []byte
	err := httpx.RetryWithBackoff(ctx, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return &httpx.Error{
				Type:     httpx.ErrTypeUnknown,
				Platform: domain.PlatformBitbucket,
				Message:  err.Error(),
			}
		}
		req.SetBasicAuth(c.username, c.appPassword)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return httpx.NewTimeoutError(domain.PlatformBitbucket, httpx.RedactURLSecrets(err.Error()))
		}
		defer resp.Body.Close()

		c.rateLimit.Observe(resp.Header)

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &httpx.Error{
				Type:       httpx.ErrTypeUnknown,
				Platform:   domain.PlatformBitbucket,
				Message:    fmt.Sprintf("reading response: %v", err),
				StatusCode: resp.StatusCode,
				Retryable:  resp.StatusCode >= 500,
			}
		}
		if resp.StatusCode >= 400 {
			return httpx.MapStatus(domain.PlatformBitbucket, resp.StatusCode, parseErrorMessage(resp.StatusCode, data))
		}
		out = data
		return nil
	}, c.retryConf)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// parseErrorMessage extracts the message from Bitbucket's error envelope,
// {"type": "error", "error": {"message": ...}}.
func parseErrorMessage(statusCode int, body []byte) string {
	var envelope ErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}

	preview := httpx.TruncateForLogging(string(body))
	if preview == "" {
		return fmt.Sprintf("HTTP %d", statusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", statusCode, preview)
}

// escapePath escapes a repository path segment by segment so slashes
// survive.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func mapHookEvents(events []string) []string {
	var out []string
	for _, event := range events {
		switch event {
		case string(domain.EventPush):
			out = append(out, "repo:push")
		case string(domain.EventPullRequest):
			out = append(out, "pullrequest:created", "pullrequest:updated", "pullrequest:fulfilled")
		case string(domain.EventIssue):
			out = append(out, "issue:created", "issue:updated")
		case string(domain.EventWorkflowRun):
			out = append(out, "repo:commit_status_updated")
		}
	}
	return out
}
