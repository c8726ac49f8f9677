package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bkyoung/review-gateway/internal/adapter/platform/httpx"
	"github.com/bkyoung/review-gateway/internal/domain"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 30 * time.Second
	apiVersion     = "2022-11-28"
	perPage        = 100
)

// Config carries the settings for one GitHub connector.
type Config struct {
	Token   string
	BaseURL string // optional, for GitHub Enterprise or tests
	Timeout time.Duration
	Retry   httpx.RetryConfig
}

// Client implements the platform connector against the GitHub REST API.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	retryConf  httpx.RetryConfig
	rateLimit  httpx.RateLimitTracker
	validated  atomic.Bool
}

// New builds a GitHub connector. The token is a personal access token or
// an Actions-provided GITHUB_TOKEN.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github: token is required")
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
		token:      cfg.Token,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retryConf:  cfg.Retry,
	}, nil
}

// Platform returns the connector's platform tag.
func (c *Client) Platform() domain.Platform {
	return domain.PlatformGitHub
}

// Validate checks the token against the authenticated-user endpoint and
// unlocks the remaining operations.
func (c *Client) Validate(ctx context.Context) error {
	if _, err := c.request(ctx, http.MethodGet, c.baseURL+"/user", nil); err != nil {
		return fmt.Errorf("github: validating credentials: %w", err)
	}
	c.validated.Store(true)
	return nil
}

// RateLimit returns the most recently observed rate-limit envelope.
func (c *Client) RateLimit() domain.RateLimit {
	return c.rateLimit.Current()
}

// ListRepositories lists the repositories visible to the token.
func (c *Client) ListRepositories(ctx context.Context) ([]domain.Repository, error) {
	var repos []domain.Repository
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/user/repos?per_page=%d&page=%d", c.baseURL, perPage, page)
		data, err := c.do(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("github: listing repositories: %w", err)
		}

		var batch []RepositoryResponse
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("github: parsing repository list: %w", err)
		}
		for _, r := range batch {
			repos = append(repos, mapRepository(r))
		}
		if len(batch) < perPage {
			return repos, nil
		}
	}
}

// GetRepository fetches a single repository.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (domain.Repository, error) {
	url := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, owner, repo)
	data, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Repository{}, fmt.Errorf("github: fetching repository %s/%s: %w", owner, repo, err)
	}

	var resp RepositoryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return domain.Repository{}, fmt.Errorf("github: parsing repository: %w", err)
	}
	return mapRepository(resp), nil
}

// GetMergeRequest fetches a pull request.
func (c *Client) GetMergeRequest(ctx context.Context, owner, repo string, number int) (domain.MergeRequest, error) {
	data, err := c.do(ctx, http.MethodGet, c.pullURL(owner, repo, number), nil)
	if err != nil {
		return domain.MergeRequest{}, fmt.Errorf("github: fetching pull request %s/%s#%d: %w", owner, repo, number, err)
	}

	var resp PullRequestResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return domain.MergeRequest{}, fmt.Errorf("github: parsing pull request: %w", err)
	}
	return mapMergeRequest(resp), nil
}

// GetChangedFiles lists the files touched by a pull request.
func (c *Client) GetChangedFiles(ctx context.Context, owner, repo string, number int) ([]domain.ChangedFile, error) {
	var files []domain.ChangedFile
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/files?per_page=%d&page=%d", c.pullURL(owner, repo, number), perPage, page)
		data, err := c.do(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("github: listing changed files for %s/%s#%d: %w", owner, repo, number, err)
		}

		var batch []FileResponse
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("github: parsing changed files: %w", err)
		}
		for _, f := range batch {
			files = append(files, mapChangedFile(f))
		}
		if len(batch) < perPage {
			return files, nil
		}
	}
}

// GetFileContent fetches a file's raw bytes at the given ref.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, owner, repo, escapePath(path))
	if ref != "" {
		reqURL += "?ref=" + url.QueryEscape(ref)
	}
	data, err := c.do(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("github: fetching content of %s: %w", path, err)
	}

	var resp ContentResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("github: parsing content envelope: %w", err)
	}
	if resp.Encoding != "base64" {
		return []byte(resp.Content), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(resp.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("github: decoding content of %s: %w", path, err)
	}
	return decoded, nil
}

// PostComment posts a summary comment on the issue thread, or a line
// comment on the diff when the comment is anchored. Line comments need the
// head commit, which is fetched from the pull request first.
func (c *Client) PostComment(ctx context.Context, owner, repo string, number int, comment domain.Comment) error {
	if !comment.Anchored() {
		url := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments", c.baseURL, owner, repo, number)
		body := IssueCommentRequest{Body: comment.Body}
		if _, err := c.do(ctx, http.MethodPost, url, body); err != nil {
			return fmt.Errorf("github: posting comment on %s/%s#%d: %w", owner, repo, number, err)
		}
		return nil
	}

	mr, err := c.GetMergeRequest(ctx, owner, repo, number)
	if err != nil {
		return fmt.Errorf("github: resolving head commit for line comment: %w", err)
	}

	url := fmt.Sprintf("%s/comments", c.pullURL(owner, repo, number))
	body := ReviewCommentRequest{
		Body:     comment.Body,
		CommitID: mr.HeadSHA,
		Path:     comment.Path,
		Line:     comment.Line,
		Side:     "RIGHT",
	}
	if _, err := c.do(ctx, http.MethodPost, url, body); err != nil {
		return fmt.Errorf("github: posting line comment on %s/%s#%d %s:%d: %w",
			owner, repo, number, comment.Path, comment.Line, err)
	}
	return nil
}

// UpdateCommitStatus sets a commit status on the given SHA.
func (c *Client) UpdateCommitStatus(ctx context.Context, owner, repo, sha string, status domain.CommitStatus) error {
	url := fmt.Sprintf("%s/repos/%s/%s/statuses/%s", c.baseURL, owner, repo, sha)
	body := StatusRequest{
		State:       status.State,
		Context:     status.Context,
		Description: status.Description,
		TargetURL:   status.TargetURL,
	}
	if _, err := c.do(ctx, http.MethodPost, url, body); err != nil {
		return fmt.Errorf("github: updating status on %s: %w", sha, err)
	}
	return nil
}

// SetBranchProtection applies a protection rule to a branch.
func (c *Client) SetBranchProtection(ctx context.Context, owner, repo, branch string, protection domain.BranchProtection) error {
	url := fmt.Sprintf("%s/repos/%s/%s/branches/%s/protection", c.baseURL, owner, repo, branch)
	body := BranchProtectionRequest{
		EnforceAdmins: protection.EnforceAdmins,
	}
	if protection.RequireStatusChecks {
		body.RequiredStatusChecks = &RequiredStatusChecks{
			Strict:   true,
			Contexts: protection.StatusCheckContexts,
		}
	}
	if protection.RequiredReviewers > 0 {
		body.RequiredPullRequestReviews = &RequiredReviews{
			RequiredApprovingReviewCount: protection.RequiredReviewers,
		}
	}
	if _, err := c.do(ctx, http.MethodPut, url, body); err != nil {
		return fmt.Errorf("github: protecting branch %s: %w", branch, err)
	}
	return nil
}

// CreateWebhook registers a webhook on the repository and returns its ID.
func (c *Client) CreateWebhook(ctx context.Context, owner, repo string, hook domain.WebhookConfig) (string, error) {
	contentType := hook.ContentType
	if contentType == "" {
		contentType = "json"
	}
	url := fmt.Sprintf("%s/repos/%s/%s/hooks", c.baseURL, owner, repo)
	body := WebhookRequest{
		Name:   "web",
		Active: hook.Active,
		Events: hook.Events,
		Config: WebhookRequestConfig{
			URL:         hook.URL,
			ContentType: contentType,
			Secret:      hook.Secret,
			InsecureSSL: "0",
		},
	}
	data, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("github: creating webhook on %s/%s: %w", owner, repo, err)
	}

	var resp WebhookResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("github: parsing webhook response: %w", err)
	}
	return strconv.FormatInt(resp.ID, 10), nil
}

func (c *Client) pullURL(owner, repo string, number int) string {
	return fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.baseURL, owner, repo, number)
}

// do runs one authenticated request, enforcing the Validate-first contract.
func (c *Client) do(ctx context.Context, method, url string, body any) ([]byte, error) {
	if !c.validated.Load() {
		return nil, httpx.NewNotValidatedError(domain.PlatformGitHub)
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
				Platform: domain.PlatformGitHub,
				Message:  err.Error(),
			}
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", apiVersion)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return httpx.NewTimeoutError(domain.PlatformGitHub, httpx.RedactURLSecrets(err.Error()))
		}
		defer resp.Body.Close()

		c.rateLimit.Observe(resp.Header)

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &httpx.Error{
				Type:       httpx.ErrTypeUnknown,
				Platform:   domain.PlatformGitHub,
				Message:    fmt.Sprintf("reading response: %v", err),
				StatusCode: resp.StatusCode,
				Retryable:  resp.StatusCode >= 500,
			}
		}
		if resp.StatusCode >= 400 {
			return httpx.MapStatus(domain.PlatformGitHub, resp.StatusCode, parseErrorMessage(resp.StatusCode, data))
		}
		out = data
		return nil
	}, c.retryConf)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// parseErrorMessage extracts a usable message from GitHub's error body.
func parseErrorMessage(statusCode int, body []byte) string {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Message == "" {
		preview := httpx.TruncateForLogging(string(body))
		if preview == "" {
			return fmt.Sprintf("HTTP %d", statusCode)
		}
		return fmt.Sprintf("HTTP %d: %s", statusCode, preview)
	}

	if len(errResp.Errors) > 0 {
		var details []string
		for _, e := range errResp.Errors {
			switch {
			case e.Message != "":
				details = append(details, e.Message)
			case e.Field != "":
				details = append(details, fmt.Sprintf("%s: %s", e.Field, e.Code))
			}
		}
		if len(details) > 0 {
			return fmt.Sprintf("%s: %s", errResp.Message, strings.Join(details, "; "))
		}
	}
	return errResp.Message
}

// escapePath escapes each path segment while keeping the separators.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
