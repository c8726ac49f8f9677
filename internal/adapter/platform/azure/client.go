package azure

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
	defaultBaseURL = "https://dev.azure.com"
	defaultTimeout = 30 * time.Second
	apiVersion     = "7.0"

	// Well-known policy type IDs.
	policyMinimumReviewers = "fa4e907d-c16b-4a4c-9dfa-4906e5d171dd"
	policyStatusCheck      = "cbdc66da-9728-4af8-aada-9a5a32e4a226"
)

// Config carries the settings for one Azure DevOps connector. The
// organization is part of every URL, so it is fixed per connector.
type Config struct {
	Organization string
	PAT          string
	BaseURL      string // optional, for Azure DevOps Server or tests
	Timeout      time.Duration
	Retry        httpx.RetryConfig
}

// Client implements the platform connector against the Azure DevOps REST
// API. The canonical owner maps onto the Azure project and repositories
// are addressed by name within it.
type Client struct {
	organization string
	pat          string
	baseURL      string
	httpClient   *http.Client
	retryConf    httpx.RetryConfig
	rateLimit    httpx.RateLimitTracker
	validated    atomic.Bool
}

// New builds an Azure DevOps connector from an organization and a
// personal access token.
func New(cfg Config) (*Client, error) {
	if cfg.Organization == "" {
		return nil, fmt.Errorf("azure: organization is required")
	}
	if cfg.PAT == "" {
		return nil, fmt.Errorf("azure: personal access token is required")
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
		organization: cfg.Organization,
		pat:          cfg.PAT,
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		retryConf:    cfg.Retry,
	}, nil
}

// Platform returns the connector's platform tag.
func (c *Client) Platform() domain.Platform {
	return domain.PlatformAzureDevOps
}

// Validate checks the token by listing the organization's projects.
func (c *Client) Validate(ctx context.Context) error {
	url := c.orgURL() + "/_apis/projects"
	if _, err := c.request(ctx, http.MethodGet, withAPIVersion(url), nil); err != nil {
		return fmt.Errorf("azure: validating credentials: %w", err)
	}
	c.validated.Store(true)
	return nil
}

// RateLimit returns the most recently observed rate-limit envelope.
// Azure only sends rate-limit headers when a caller is being throttled.
func (c *Client) RateLimit() domain.RateLimit {
	return c.rateLimit.Current()
}

// ListRepositories lists every Git repository in the organization across
// all projects. The endpoint returns the full set in one response.
func (c *Client) ListRepositories(ctx context.Context) ([]domain.Repository, error) {
	url := c.orgURL() + "/_apis/git/repositories"
	data, err := c.do(ctx, http.MethodGet, withAPIVersion(url), nil)
	if err != nil {
		return nil, fmt.Errorf("azure: listing repositories: %w", err)
	}

	var resp RepositoryListResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("azure: parsing repository list: %w", err)
	}

	repos := make([]domain.Repository, 0, len(resp.Value))
	for _, r := range resp.Value {
		repos = append(repos, mapRepository(r))
	}
	return repos, nil
}

// GetRepository fetches a single repository by project and name.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (domain.Repository, error) {
	resp, err := c.fetchRepository(ctx, owner, repo)
	if err != nil {
		return domain.Repository{}, err
	}
	return mapRepository(resp), nil
}

// GetMergeRequest fetches a pull request.
func (c *Client) GetMergeRequest(ctx context.Context, owner, repo string, number int) (domain.MergeRequest, error) {
	url := fmt.Sprintf("%s/pullrequests/%d", c.repoAPIURL(owner, repo), number)
	data, err := c.do(ctx, http.MethodGet, withAPIVersion(url), nil)
	if err != nil {
		return domain.MergeRequest{}, fmt.Errorf("azure: fetching pull request %s/%s#%d: %w", owner, repo, number, err)
	}

	var resp PullRequestResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return domain.MergeRequest{}, fmt.Errorf("azure: parsing pull request: %w", err)
	}
	return mapPullRequest(resp), nil
}

// GetChangedFiles lists the files touched by a pull request. Azure
// exposes changes per iteration, so the latest iteration is resolved
// first and its cumulative changes are compared against the first. Line
// counts are not part of the payload and stay zero.
func (c *Client) GetChangedFiles(ctx context.Context, owner, repo string, number int) ([]domain.ChangedFile, error) {
	base := fmt.Sprintf("%s/pullrequests/%d/iterations", c.repoAPIURL(owner, repo), number)
	data, err := c.do(ctx, http.MethodGet, withAPIVersion(base), nil)
	if err != nil {
		return nil, fmt.Errorf("azure: listing iterations for %s/%s#%d: %w", owner, repo, number, err)
	}

	var iterations IterationListResponse
	if err := json.Unmarshal(data, &iterations); err != nil {
		return nil, fmt.Errorf("azure: parsing iterations: %w", err)
	}
	if len(iterations.Value) == 0 {
		return nil, nil
	}
	latest := iterations.Value[0].ID
	for _, it := range iterations.Value {
		if it.ID > latest {
			latest = it.ID
		}
	}

	url := fmt.Sprintf("%s/%d/changes", base, latest) + "?$compareTo=0&api-version=" + apiVersion
	data, err = c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("azure: listing changes for %s/%s#%d: %w", owner, repo, number, err)
	}

	var changes IterationChangesResponse
	if err := json.Unmarshal(data, &changes); err != nil {
		return nil, fmt.Errorf("azure: parsing iteration changes: %w", err)
	}

	files := make([]domain.ChangedFile, 0, len(changes.ChangeEntries))
	for _, entry := range changes.ChangeEntries {
		files = append(files, mapChangeEntry(entry))
	}
	return files, nil
}

// GetFileContent fetches a file's bytes at the given ref via the items
// endpoint, which wraps content in a JSON envelope when asked for it.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	query := url.Values{}
	query.Set("path", path)
	query.Set("includeContent", "true")
	query.Set("api-version", apiVersion)
	if ref != "" {
		query.Set("versionDescriptor.version", ref)
		query.Set("versionDescriptor.versionType", versionType(ref))
	}

	reqURL := fmt.Sprintf("%s/items?%s", c.repoAPIURL(owner, repo), query.Encode())
	data, err := c.doWithAccept(ctx, http.MethodGet, reqURL, nil, "application/json")
	if err != nil {
		return nil, fmt.Errorf("azure: fetching content of %s: %w", path, err)
	}

	var resp ItemResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("azure: parsing item envelope: %w", err)
	}
	return []byte(resp.Content), nil
}

// PostComment opens a comment thread on the pull request, anchored to
// the right side of the diff when the comment carries a path and line.
func (c *Client) PostComment(ctx context.Context, owner, repo string, number int, comment domain.Comment) error {
	body := ThreadRequest{
		Status: threadStatusActive,
		Comments: []ThreadComment{{
			ParentCommentID: 0,
			Content:         comment.Body,
			CommentType:     commentTypeText,
		}},
	}
	if comment.Anchored() {
		path := comment.Path
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		body.ThreadContext = &ThreadContext{
			FilePath:       path,
			RightFileStart: &FilePosition{Line: comment.Line, Offset: 1},
			RightFileEnd:   &FilePosition{Line: comment.Line, Offset: 1},
		}
	}

	url := fmt.Sprintf("%s/pullrequests/%d/threads", c.repoAPIURL(owner, repo), number)
	if _, err := c.do(ctx, http.MethodPost, withAPIVersion(url), body); err != nil {
		return fmt.Errorf("azure: posting thread on %s/%s#%d: %w", owner, repo, number, err)
	}
	return nil
}

// UpdateCommitStatus sets a status on a commit. The canonical context is
// split on its first slash into Azure's genre and name pair.
func (c *Client) UpdateCommitStatus(ctx context.Context, owner, repo, sha string, status domain.CommitStatus) error {
	genre, name := splitContext(status.Context)
	body := StatusRequest{
		State:       mapStatusState(status.State),
		Description: status.Description,
		TargetURL:   status.TargetURL,
		Context:     StatusContext{Genre: genre, Name: name},
	}

	url := fmt.Sprintf("%s/commits/%s/statuses", c.repoAPIURL(owner, repo), sha)
	if _, err := c.do(ctx, http.MethodPost, withAPIVersion(url), body); err != nil {
		return fmt.Errorf("azure: updating status on %s: %w", sha, err)
	}
	return nil
}

// SetBranchProtection creates blocking branch policies. Reviewer counts
// become a minimum-reviewer policy and the status-check flag becomes a
// status policy on the first named context. Policy scope needs the
// repository GUID, so the repository is resolved first.
func (c *Client) SetBranchProtection(ctx context.Context, owner, repo, branch string, protection domain.BranchProtection) error {
	repoResp, err := c.fetchRepository(ctx, owner, repo)
	if err != nil {
		return fmt.Errorf("azure: resolving repository for branch policy: %w", err)
	}

	scope := []PolicyScope{{
		RepositoryID: repoResp.ID,
		RefName:      "refs/heads/" + branch,
		MatchKind:    "exact",
	}}

	var policies []PolicyRequest
	if protection.RequiredReviewers > 0 {
		policies = append(policies, PolicyRequest{
			IsEnabled:  true,
			IsBlocking: true,
			Type:       PolicyType{ID: policyMinimumReviewers},
			Settings: PolicySettings{
				MinimumApproverCount: protection.RequiredReviewers,
				Scope:                scope,
			},
		})
	}
	if protection.RequireStatusChecks {
		settings := PolicySettings{Scope: scope}
		if len(protection.StatusCheckContexts) > 0 {
			settings.StatusGenre, settings.StatusName = splitContext(protection.StatusCheckContexts[0])
		}
		policies = append(policies, PolicyRequest{
			IsEnabled:  true,
			IsBlocking: true,
			Type:       PolicyType{ID: policyStatusCheck},
			Settings:   settings,
		})
	}

	url := fmt.Sprintf("%s/%s/_apis/policy/configurations", c.orgURL(), escapeSegment(owner))
	for _, policy := range policies {
		if _, err := c.do(ctx, http.MethodPost, withAPIVersion(url), policy); err != nil {
			return fmt.Errorf("azure: creating branch policy for %s: %w", branch, err)
		}
	}
	return nil
}

// CreateWebhook registers service-hook subscriptions for the requested
// events. Azure models one subscription per event type, so several may
// be created; the first subscription's ID is returned.
func (c *Client) CreateWebhook(ctx context.Context, owner, repo string, hook domain.WebhookConfig) (string, error) {
	repoResp, err := c.fetchRepository(ctx, owner, repo)
	if err != nil {
		return "", fmt.Errorf("azure: resolving repository for subscription: %w", err)
	}

	eventTypes := mapHookEvents(hook.Events)
	if len(eventTypes) == 0 {
		return "", fmt.Errorf("azure: no subscribable events in %v", hook.Events)
	}

	url := withAPIVersion(c.orgURL() + "/_apis/hooks/subscriptions")
	var firstID string
	for _, eventType := range eventTypes {
		body := SubscriptionRequest{
			PublisherID:      "tfs",
			EventType:        eventType,
			ResourceVersion:  "1.0",
			ConsumerID:       "webHooks",
			ConsumerActionID: "httpRequest",
			PublisherInputs:  map[string]string{"projectId": repoResp.Project.ID},
			ConsumerInputs:   map[string]string{"url": hook.URL},
		}
		data, err := c.do(ctx, http.MethodPost, url, body)
		if err != nil {
			return "", fmt.Errorf("azure: creating %s subscription: %w", eventType, err)
		}
		if firstID == "" {
			var resp SubscriptionResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				return "", fmt.Errorf("azure: parsing subscription response: %w", err)
			}
			firstID = resp.ID
		}
	}
	return firstID, nil
}

func (c *Client) fetchRepository(ctx context.Context, owner, repo string) (RepositoryResponse, error) {
	data, err := c.do(ctx, http.MethodGet, withAPIVersion(c.repoAPIURL(owner, repo)), nil)
	if err != nil {
		return RepositoryResponse{}, fmt.Errorf("azure: fetching repository %s/%s: %w", owner, repo, err)
	}

	var resp RepositoryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return RepositoryResponse{}, fmt.Errorf("azure: parsing repository: %w", err)
	}
	return resp, nil
}

func (c *Client) orgURL() string {
	return c.baseURL + "/" + escapeSegment(c.organization)
}

func (c *Client) repoAPIURL(owner, repo string) string {
	return fmt.Sprintf("%s/%s/_apis/git/repositories/%s", c.orgURL(), escapeSegment(owner), escapeSegment(repo))
}

// do runs one authenticated request, enforcing the Validate-first contract.
func (c *Client) do(ctx context.Context, method, url string, body any) ([]byte, error) {
	return c.doWithAccept(ctx, method, url, body, "")
}

func (c *Client) doWithAccept(ctx context.Context, method, url string, body any, accept string) ([]byte, error) {
	if !c.validated.Load() {
		return nil, httpx.NewNotValidatedError(domain.PlatformAzureDevOps)
	}
	return c.requestWithAccept(ctx, method, url, body, accept)
}

func (c *Client) request(ctx context.Context, method, url string, body any) ([]byte, error) {
	return c.requestWithAccept(ctx, method, url, body, "")
}

func (c *Client) requestWithAccept(ctx context.Context, method, url string, body any, accept string) ([]byte, error) {
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
				Platform: domain.PlatformAzureDevOps,
				Message:  err.Error(),
			}
		}
		req.SetBasicAuth("", c.pat)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if accept != "" {
			req.Header.Set("Accept", accept)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return httpx.NewTimeoutError(domain.PlatformAzureDevOps, httpx.RedactURLSecrets(err.Error()))
		}
		defer resp.Body.Close()

		c.rateLimit.Observe(resp.Header)

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &httpx.Error{
				Type:       httpx.ErrTypeUnknown,
				Platform:   domain.PlatformAzureDevOps,
				Message:    fmt.Sprintf("reading response: %v", err),
				StatusCode: resp.StatusCode,
				Retryable:  resp.StatusCode >= 500,
			}
		}
		if resp.StatusCode >= 400 {
			return httpx.MapStatus(domain.PlatformAzureDevOps, resp.StatusCode, parseErrorMessage(resp.StatusCode, data))
		}
		out = data
		return nil
	}, c.retryConf)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// parseErrorMessage extracts the message from Azure's error envelope.
func parseErrorMessage(statusCode int, body []byte) string {
	var envelope ErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		return envelope.Message
	}

	preview := httpx.TruncateForLogging(string(body))
	if preview == "" {
		return fmt.Sprintf("HTTP %d", statusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", statusCode, preview)
}

func withAPIVersion(url string) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "api-version=" + apiVersion
}

func escapeSegment(segment string) string {
	return url.PathEscape(segment)
}

// versionType guesses how a ref should be addressed. Full commit hashes
// go through the commit descriptor, anything else is treated as a branch.
func versionType(ref string) string {
	if len(ref) == 40 && isHex(ref) {
		return "commit"
	}
	return "branch"
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// splitContext divides a canonical status context into Azure's genre and
// name pair on the first slash.
func splitContext(context string) (genre, name string) {
	if idx := strings.Index(context, "/"); idx > 0 {
		return context[:idx], context[idx+1:]
	}
	return "", context
}

func mapHookEvents(events []string) []string {
	var out []string
	for _, event := range events {
		switch event {
		case string(domain.EventPush):
			out = append(out, "git.push")
		case string(domain.EventPullRequest):
			out = append(out, "git.pullrequest.created", "git.pullrequest.updated")
		case string(domain.EventIssue):
			out = append(out, "workitem.created")
		case string(domain.EventWorkflowRun):
			out = append(out, "build.complete")
		}
	}
	return out
}
