package bitbucket_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/review-gateway/internal/adapter/platform/bitbucket"
	"github.com/bkyoung/review-gateway/internal/adapter/platform/httpx"
	"github.com/bkyoung/review-gateway/internal/domain"
)

// newTestClient starts a fake API, answers the validation probe, and
// returns a validated client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) *bitbucket.Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/user" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"uuid":"{u-1}","nickname":"reviewer"}`))
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := bitbucket.New(bitbucket.Config{
		Username:    "reviewer",
		AppPassword: "app-pass",
		BaseURL:     srv.URL,
	})
	require.NoError(t, err)
	require.NoError(t, client.Validate(context.Background()))
	return client
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := bitbucket.New(bitbucket.Config{Username: "reviewer"})
	require.Error(t, err)

	_, err = bitbucket.New(bitbucket.Config{AppPassword: "app-pass"})
	require.Error(t, err)
}

func TestPlatformTag(t *testing.T) {
	client, err := bitbucket.New(bitbucket.Config{Username: "u", AppPassword: "p"})
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformBitbucket, client.Platform())
}

func TestOperationsFailFastBeforeValidate(t *testing.T) {
	client, err := bitbucket.New(bitbucket.Config{Username: "u", AppPassword: "p"})
	require.NoError(t, err)

	_, err = client.GetRepository(context.Background(), "acme", "widgets")
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrNotValidated)
}

func TestRequestSendsBasicAuth(t *testing.T) {
	var gotUser, gotPass string
	var gotOK bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, gotOK = r.BasicAuth()
		w.Write([]byte(`{"uuid":"{r-1}","full_name":"acme/widgets"}`))
	})

	_, err := client.GetRepository(context.Background(), "acme", "widgets")
	require.NoError(t, err)
	require.True(t, gotOK)
	assert.Equal(t, "reviewer", gotUser)
	assert.Equal(t, "app-pass", gotPass)
}

func TestListRepositoriesFollowsNextURL(t *testing.T) {
	calls := 0
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/user" {
			w.Write([]byte(`{"uuid":"{u-1}","nickname":"reviewer"}`))
			return
		}
		calls++
		switch calls {
		case 1:
			assert.Equal(t, "/repositories", r.URL.Path)
			assert.Equal(t, "member", r.URL.Query().Get("role"))
			fmt.Fprintf(w, `{"values":[{"uuid":"{r-1}","name":"widgets","full_name":"acme/widgets","workspace":{"slug":"acme"}}],"next":"%s/repositories?role=member&page=2"}`, srv.URL)
		default:
			w.Write([]byte(`{"values":[{"uuid":"{r-2}","name":"gears","full_name":"acme/gears","workspace":{"slug":"acme"}}]}`))
		}
	}))
	defer srv.Close()

	client, err := bitbucket.New(bitbucket.Config{Username: "reviewer", AppPassword: "app-pass", BaseURL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, client.Validate(context.Background()))

	repos, err := client.ListRepositories(context.Background())
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "widgets", repos[0].Name)
	assert.Equal(t, "acme", repos[0].Owner)
	assert.Equal(t, "r-1", repos[0].ID)
	assert.Equal(t, "gears", repos[1].Name)
}

func TestGetMergeRequestMapsFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repositories/acme/widgets/pullrequests/42", r.URL.Path)
		w.Write([]byte(`{
			"id": 42,
			"title": "Add retry budget",
			"description": "Bounded retries.",
			"state": "OPEN",
			"draft": false,
			"author": {"uuid": "{u-9}", "nickname": "dev", "display_name": "Dev"},
			"source": {"branch": {"name": "feature/retries"}, "commit": {"hash": "abc123"}},
			"destination": {"branch": {"name": "main"}},
			"reviewers": [{"uuid": "{u-11}", "nickname": "qa"}],
			"created_on": "2024-05-01T10:00:00.000000+00:00",
			"updated_on": "2024-05-02T10:00:00.000000+00:00"
		}`))
	})

	mr, err := client.GetMergeRequest(context.Background(), "acme", "widgets", 42)
	require.NoError(t, err)

	assert.Equal(t, "42", mr.ID)
	assert.Equal(t, 42, mr.Number)
	assert.Equal(t, "Add retry budget", mr.Title)
	assert.Equal(t, domain.MergeRequestOpen, mr.State)
	assert.Equal(t, "feature/retries", mr.SourceBranch)
	assert.Equal(t, "main", mr.TargetBranch)
	assert.Equal(t, "abc123", mr.HeadSHA)
	assert.Equal(t, "dev", mr.Author.Login)
	assert.Equal(t, "u-9", mr.Author.ID)
	assert.Len(t, mr.Reviewers, 1)
	assert.False(t, mr.CreatedAt.IsZero())
}

func TestGetMergeRequestDeclinedReadsClosed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 7, "state": "DECLINED"}`))
	})

	mr, err := client.GetMergeRequest(context.Background(), "acme", "widgets", 7)
	require.NoError(t, err)
	assert.Equal(t, domain.MergeRequestClosed, mr.State)
}

func TestGetChangedFilesMapsDiffstat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repositories/acme/widgets/pullrequests/42/diffstat", r.URL.Path)
		w.Write([]byte(`{"values":[
			{"status":"modified","lines_added":3,"lines_removed":1,"old":{"path":"main.go"},"new":{"path":"main.go"}},
			{"status":"added","lines_added":10,"lines_removed":0,"new":{"path":"new.go"}},
			{"status":"renamed","lines_added":0,"lines_removed":0,"old":{"path":"old_name.go"},"new":{"path":"new_name.go"}},
			{"status":"removed","lines_added":0,"lines_removed":5,"old":{"path":"gone.go"}}
		]}`))
	})

	files, err := client.GetChangedFiles(context.Background(), "acme", "widgets", 42)
	require.NoError(t, err)
	require.Len(t, files, 4)

	assert.Equal(t, domain.FileStatusModified, files[0].Status)
	assert.Equal(t, 3, files[0].Additions)
	assert.Equal(t, 1, files[0].Deletions)
	assert.Equal(t, 4, files[0].Changes)

	assert.Equal(t, domain.FileStatusAdded, files[1].Status)
	assert.Equal(t, "new.go", files[1].Filename)

	assert.Equal(t, domain.FileStatusRenamed, files[2].Status)
	assert.Equal(t, "new_name.go", files[2].Filename)
	assert.Equal(t, "old_name.go", files[2].PreviousFilename)

	assert.Equal(t, domain.FileStatusRemoved, files[3].Status)
	assert.Equal(t, "gone.go", files[3].Filename)
}

func TestGetFileContentReturnsRawBytes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repositories/acme/widgets/src/abc123/cmd/main.go", r.URL.Path)
		w.Write([]byte("package main\n"))
	})

	data, err := client.GetFileContent(context.Background(), "acme", "widgets", "cmd/main.go", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(data))
}

func TestPostSummaryCommentHasNoInline(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repositories/acme/widgets/pullrequests/42/comments", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":1}`))
	})

	err := client.PostComment(context.Background(), "acme", "widgets", 42, domain.Comment{Body: "## Review"})
	require.NoError(t, err)

	content, _ := gotBody["content"].(map[string]any)
	require.NotNil(t, content)
	assert.Equal(t, "## Review", content["raw"])
	assert.NotContains(t, gotBody, "inline")
}

func TestPostLineCommentIsInline(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":2}`))
	})

	err := client.PostComment(context.Background(), "acme", "widgets", 42, domain.Comment{
		Body: "Unchecked error.",
		Path: "main.go",
		Line: 12,
	})
	require.NoError(t, err)

	inline, _ := gotBody["inline"].(map[string]any)
	require.NotNil(t, inline)
	assert.Equal(t, "main.go", inline["path"])
	assert.Equal(t, float64(12), inline["to"])
}

func TestUpdateCommitStatusUsesBuildKey(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repositories/acme/widgets/commit/abc123/statuses/build", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"key":"review-gateway/automated-review"}`))
	})

	err := client.UpdateCommitStatus(context.Background(), "acme", "widgets", "abc123", domain.CommitStatus{
		State:       domain.StatusSuccess,
		Context:     "review-gateway/automated-review",
		Description: "Review passed",
	})
	require.NoError(t, err)

	assert.Equal(t, "SUCCESSFUL", gotBody["state"])
	assert.Equal(t, "review-gateway/automated-review", gotBody["key"])
}

func TestSetBranchProtectionPostsRestrictions(t *testing.T) {
	var kinds []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repositories/acme/widgets/branch-restrictions", r.URL.Path)
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		kinds = append(kinds, body["kind"].(string))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":1}`))
	})

	err := client.SetBranchProtection(context.Background(), "acme", "widgets", "main", domain.BranchProtection{
		RequiredReviewers:   2,
		RequireStatusChecks: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"push", "require_approvals_to_merge", "require_passing_builds_to_merge"}, kinds)
}

func TestCreateWebhookMapsEvents(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repositories/acme/widgets/hooks", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"uuid":"{hook-1}"}`))
	})

	id, err := client.CreateWebhook(context.Background(), "acme", "widgets", domain.WebhookConfig{
		URL:    "https://gateway.example.com/webhooks",
		Secret: "s3cret",
		Events: []string{"push", "pull_request"},
		Active: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "{hook-1}", id)
	events, _ := gotBody["events"].([]any)
	assert.Contains(t, events, "repo:push")
	assert.Contains(t, events, "pullrequest:created")
	assert.Contains(t, events, "pullrequest:updated")
}

func TestErrorsAreTyped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"type":"error","error":{"message":"Repository acme/missing not found"}}`))
	})

	_, err := client.GetRepository(context.Background(), "acme", "missing")
	require.Error(t, err)

	var apiErr *httpx.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, httpx.ErrTypeNotFound, apiErr.Type)
	assert.Equal(t, domain.PlatformBitbucket, apiErr.Platform)
	assert.Contains(t, apiErr.Message, "not found")
}
