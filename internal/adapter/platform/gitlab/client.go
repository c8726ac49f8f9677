package gitlab

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
	defaultBaseURL = "https://gitlab.com/api/v4"
	defaultTimeout = 30 * time.Second
	perPage        = 100
)

// Config carries the settings for one GitLab connector.
type Config struct {
	Token   string
	BaseURL string // optional, for self-hosted instances or tests
	Timeout time.Duration
	Retry   httpx.RetryConfig
}

// Client implements the platform connector against the GitLab REST API v4.
// Projects are addressed by their URL-encoded path_with_namespace, so no
// numeric project ID lookup is needed.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	retryConf  httpx.RetryConfig
	rateLimit  httpx.RateLimitTracker
	validated  atomic.Bool
}

// New builds a GitLab connector from a personal or project access token.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("gitlab: token is required")
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
	return domain.PlatformGitLab
}

// Validate checks the token against the current-user endpoint.
func (c *Client) Validate(ctx context.Context) error {
	if _, err := c.request(ctx, http.MethodGet, c.baseURL+"/user", nil); err != nil {
		return fmt.Errorf("gitlab: validating credentials: %w", err)
	}
	c.validated.Store(true)
	return nil
}

// RateLimit returns the most recently observed rate-limit envelope.
func (c *Client) RateLimit() domain.RateLimit {
	return c.rateLimit.Current()
}

// ListRepositories lists the projects the token is a member of.
func (c *Client) ListRepositories(ctx context.Context) ([]domain.Repository, error) {
	var repos []domain.Repository
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/projects?membership=true&per_page=%d&page=%d", c.baseURL, perPage, page)
		data, err := c.do(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("gitlab: listing projects: %w", err)
		}

		var batch []ProjectResponse
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("gitlab: parsing project list: %w", err)
		}
		for _, p := range batch {
			repos = append(repos, mapProject(p))
		}
		if len(batch) < perPage {
			return repos, nil
		}
	}
}

// GetRepository fetches a single project.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (domain.Repository, error) {
	url := fmt.Sprintf("%s/projects/%s", c.baseURL, projectID(owner, repo))
	data, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Repository{}, fmt.Errorf("gitlab: fetching project %s/%s: %w", owner, repo, err)
	}

	var resp ProjectResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return domain.Repository{}, fmt.Errorf("gitlab: parsing project: %w", err)
	}
	return mapProject(resp), nil
}

// GetMergeRequest fetches a merge request by IID.
func (c *Client) GetMergeRequest(ctx context.Context, owner, repo string, number int) (domain.MergeRequest, error) {
	resp, err := c.fetchMergeRequest(ctx, owner, repo, number)
	if err != nil {
		return domain.MergeRequest{}, err
	}
	return mapMergeRequest(resp), nil
}

// GetChangedFiles lists the files touched by a merge request. GitLab's
// changes endpoint returns raw diffs without line counts, so additions and
// deletions are derived by parsing each diff.
func (c *Client) GetChangedFiles(ctx context.Context, owner, repo string, number int) ([]domain.ChangedFile, error) {
	url := fmt.Sprintf("%s/changes", c.mergeRequestURL(owner, repo, number))
	data, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("gitlab: listing changes for %s/%s!%d: %w", owner, repo, number, err)
	}

	var resp ChangesResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("gitlab: parsing changes: %w", err)
	}

	files := make([]domain.ChangedFile, 0, len(resp.Changes))
	for _, ch := range resp.Changes {
		files = append(files, mapChange(ch))
	}
	return files, nil
}

// GetFileContent fetches a file's raw bytes at the given ref.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	if ref == "" {
		ref = "HEAD"
	}
	reqURL := fmt.Sprintf("%s/projects/%s/repository/files/%s?ref=%s",
		c.baseURL, projectID(owner, repo), url.PathEscape(path), url.QueryEscape(ref))
	data, err := c.do(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("gitlab: fetching content of %s: %w", path, err)
	}

	var resp FileResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("gitlab: parsing file envelope: %w", err)
	}
	if resp.Encoding != "base64" {
		return []byte(resp.Content), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("gitlab: decoding content of %s: %w", path, err)
	}
	return decoded, nil
}

// PostComment posts a note on the merge request, or a positioned discussion
// when the comment is anchored. Positioned discussions need the MR's diff
// refs, which are fetched first.
func (c *Client) PostComment(ctx context.Context, owner, repo string, number int, comment domain.Comment) error {
	if !comment.Anchored() {
		url := fmt.Sprintf("%s/notes", c.mergeRequestURL(owner, repo, number))
		if _, err := c.do(ctx, http.MethodPost, url, NoteRequest{Body: comment.Body}); err != nil {
			return fmt.Errorf("gitlab: posting note on %s/%s!%d: %w", owner, repo, number, err)
		}
		return nil
	}

	mr, err := c.fetchMergeRequest(ctx, owner, repo, number)
	if err != nil {
		return fmt.Errorf("gitlab: resolving diff refs for line comment: %w", err)
	}

	url := fmt.Sprintf("%s/discussions", c.mergeRequestURL(owner, repo, number))
	body := DiscussionRequest{
		Body: comment.Body,
		Position: &Position{
			PositionType: "text",
			BaseSHA:      mr.DiffRefs.BaseSHA,
			HeadSHA:      mr.DiffRefs.HeadSHA,
			StartSHA:     mr.DiffRefs.StartSHA,
			NewPath:      comment.Path,
			NewLine:      comment.Line,
		},
	}
	if _, err := c.do(ctx, http.MethodPost, url, body); err != nil {
		return fmt.Errorf("gitlab: posting positioned discussion on %s/%s!%d %s:%d: %w",
			owner, repo, number, comment.Path, comment.Line, err)
	}
	return nil
}

// UpdateCommitStatus sets a commit status. GitLab's state vocabulary has no
// "error", so error folds into failed.
func (c *Client) UpdateCommitStatus(ctx context.Context, owner, repo, sha string, status domain.CommitStatus) error {
	url := fmt.Sprintf("%s/projects/%s/statuses/%s", c.baseURL, projectID(owner, repo), sha)
	body := StatusRequest{
		State:       mapStatusState(status.State),
		Name:        status.Context,
		Description: status.Description,
		TargetURL:   status.TargetURL,
	}
	if _, err := c.do(ctx, http.MethodPost, url, body); err != nil {
		return fmt.Errorf("gitlab: updating status on %s: %w", sha, err)
	}
	return nil
}

// SetBranchProtection protects a branch. Reviewer counts are approval-rule
// territory in GitLab and are not part of the protected-branch API; the
// canonical field is therefore not mapped here.
func (c *Client) SetBranchProtection(ctx context.Context, owner, repo, branch string, protection domain.BranchProtection) error {
	pushLevel := accessLevelMaintainer
	if protection.EnforceAdmins {
		pushLevel = accessLevelNoOne
	}
	url := fmt.Sprintf("%s/projects/%s/protected_branches", c.baseURL, projectID(owner, repo))
	body := ProtectBranchRequest{
		Name:             branch,
		PushAccessLevel:  pushLevel,
		MergeAccessLevel: accessLevelMaintainer,
	}
	if _, err := c.do(ctx, http.MethodPost, url, body); err != nil {
		return fmt.Errorf("gitlab: protecting branch %s: %w", branch, err)
	}
	return nil
}

// CreateWebhook registers a project hook and returns its ID. Canonical
// event names are translated onto GitLab's per-event boolean flags.
func (c *Client) CreateWebhook(ctx context.Context, owner, repo string, hook domain.WebhookConfig) (string, error) {
	body := HookRequest{
		URL:                   hook.URL,
		Token:                 hook.Secret,
		EnableSSLVerification: true,
	}
	for _, event := range hook.Events {
		switch event {
		case string(domain.EventPush):
			body.PushEvents = true
		case string(domain.EventPullRequest):
			body.MergeRequestsEvents = true
		case string(domain.EventIssue):
			body.IssuesEvents = true
		case string(domain.EventRelease):
			body.ReleasesEvents = true
		case string(domain.EventWorkflowRun):
			body.PipelineEvents = true
		}
	}

	url := fmt.Sprintf("%s/projects/%s/hooks", c.baseURL, projectID(owner, repo))
	data, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("gitlab: creating hook on %s/%s: %w", owner, repo, err)
	}

	var resp HookResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("gitlab: parsing hook response: %w", err)
	}
	return strconv.FormatInt(resp.ID, 10), nil
}

func (c *Client) fetchMergeRequest(ctx context.Context, owner, repo string, number int) (MergeRequestResponse, error) {
	data, err := c.do(ctx, http.MethodGet, c.mergeRequestURL(owner, repo, number), nil)
	if err != nil {
		return MergeRequestResponse{}, fmt.Errorf("gitlab: fetching merge request %s/%s!%d: %w", owner, repo, number, err)
	}

	var resp MergeRequestResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return MergeRequestResponse{}, fmt.Errorf("gitlab: parsing merge request: %w", err)
	}
	return resp, nil
}

func (c *Client) mergeRequestURL(owner, repo string, number int) string {
	return fmt.Sprintf("%s/projects/%s/merge_requests/%d", c.baseURL, projectID(owner, repo), number)
}

// do runs one authenticated request, enforcing the Validate-first contract.
func (c *Client) do(ctx context.Context, method, url string, body any) ([]byte, error) {
	if !c.validated.Load() {
		return nil, httpx.NewNotValidatedError(domain.PlatformGitLab)
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
				Platform: domain.PlatformGitLab,
				Message:  err.Error(),
			}
		}
		req.Header.Set("PRIVATE-TOKEN", c.token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return httpx.NewTimeoutError(domain.PlatformGitLab, httpx.RedactURLSecrets(err.Error()))
		}
		defer resp.Body.Close()

		c.rateLimit.Observe(resp.Header)

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &httpx.Error{
				Type:       httpx.ErrTypeUnknown,
				Platform:   domain.PlatformGitLab,
				Message:    fmt.Sprintf("reading response: %v", err),
				StatusCode: resp.StatusCode,
				Retryable:  resp.StatusCode >= 500,
			}
		}
		if resp.StatusCode >= 400 {
			return httpx.MapStatus(domain.PlatformGitLab, resp.StatusCode, parseErrorMessage(resp.StatusCode, data))
		}
		out = data
		return nil
	}, c.retryConf)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// parseErrorMessage extracts a usable message from GitLab's error body,
// which is either {"message": ...} or {"error": ...}; message can itself be
// a string, an object, or a list.
func parseErrorMessage(statusCode int, body []byte) string {
	var envelope struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if len(envelope.Message) > 0 {
			var s string
			if err := json.Unmarshal(envelope.Message, &s); err == nil {
				return s
			}
			return httpx.TruncateForLogging(string(envelope.Message))
		}
	}

	preview := httpx.TruncateForLogging(string(body))
	if preview == "" {
		return fmt.Sprintf("HTTP %d", statusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", statusCode, preview)
}

// projectID encodes owner/repo as the URL-safe path_with_namespace form.
func projectID(owner, repo string) string {
	return url.PathEscape(owner + "/" + repo)
}
