package azure_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/review-gateway/internal/adapter/platform/azure"
	"github.com/bkyoung/review-gateway/internal/adapter/platform/httpx"
	"github.com/bkyoung/review-gateway/internal/domain"
)

// newTestClient starts a fake API, answers the validation probe, and
// returns a validated client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) *azure.Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7.0", r.URL.Query().Get("api-version"))
		if r.URL.Path == "/contoso/_apis/projects" {
			w.Write([]byte(`{"count":1,"value":[{"id":"p-1","name":"Platform"}]}`))
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := azure.New(azure.Config{
		Organization: "contoso",
		PAT:          "pat-token",
		BaseURL:      srv.URL,
	})
	require.NoError(t, err)
	require.NoError(t, client.Validate(context.Background()))
	return client
}

func TestNewRequiresOrganizationAndPAT(t *testing.T) {
	_, err := azure.New(azure.Config{PAT: "pat"})
	require.Error(t, err)

	_, err = azure.New(azure.Config{Organization: "contoso"})
	require.Error(t, err)
}

func TestPlatformTag(t *testing.T) {
	client, err := azure.New(azure.Config{Organization: "contoso", PAT: "pat"})
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformAzureDevOps, client.Platform())
}

func TestOperationsFailFastBeforeValidate(t *testing.T) {
	client, err := azure.New(azure.Config{Organization: "contoso", PAT: "pat"})
	require.NoError(t, err)

	_, err = client.GetRepository(context.Background(), "Platform", "widgets")
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrNotValidated)
}

func TestRequestSendsPATBasicAuth(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"id":"r-1","name":"widgets","project":{"name":"Platform"}}`))
	})

	_, err := client.GetRepository(context.Background(), "Platform", "widgets")
	require.NoError(t, err)

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte(":pat-token"))
	assert.Equal(t, want, gotAuth)
}

func TestListRepositoriesSpansProjects(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contoso/_apis/git/repositories", r.URL.Path)
		w.Write([]byte(`{"count":2,"value":[
			{"id":"r-1","name":"widgets","defaultBranch":"refs/heads/main","project":{"id":"p-1","name":"Platform","visibility":"private"}},
			{"id":"r-2","name":"site","defaultBranch":"refs/heads/trunk","project":{"id":"p-2","name":"Web","visibility":"public"}}
		]}`))
	})

	repos, err := client.ListRepositories(context.Background())
	require.NoError(t, err)
	require.Len(t, repos, 2)

	assert.Equal(t, "Platform", repos[0].Owner)
	assert.Equal(t, "Platform/widgets", repos[0].FullName)
	assert.Equal(t, "main", repos[0].DefaultBranch)
	assert.True(t, repos[0].Private)
	assert.Equal(t, "trunk", repos[1].DefaultBranch)
	assert.False(t, repos[1].Private)
}

func TestGetMergeRequestMapsFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contoso/Platform/_apis/git/repositories/widgets/pullrequests/42", r.URL.Path)
		w.Write([]byte(`{
			"pullRequestId": 42,
			"title": "Add retry budget",
			"description": "Bounded retries.",
			"status": "active",
			"isDraft": false,
			"mergeStatus": "succeeded",
			"sourceRefName": "refs/heads/feature/retries",
			"targetRefName": "refs/heads/main",
			"creationDate": "2024-05-01T10:00:00Z",
			"createdBy": {"id": "u-9", "uniqueName": "dev@contoso.com", "displayName": "Dev"},
			"reviewers": [{"id": "u-11", "uniqueName": "qa@contoso.com"}],
			"lastMergeSourceCommit": {"commitId": "abc123"},
			"labels": [{"name": "enhancement"}]
		}`))
	})

	mr, err := client.GetMergeRequest(context.Background(), "Platform", "widgets", 42)
	require.NoError(t, err)

	assert.Equal(t, 42, mr.Number)
	assert.Equal(t, domain.MergeRequestOpen, mr.State)
	assert.Equal(t, "feature/retries", mr.SourceBranch)
	assert.Equal(t, "main", mr.TargetBranch)
	assert.Equal(t, "abc123", mr.HeadSHA)
	assert.Equal(t, "dev@contoso.com", mr.Author.Login)
	assert.Equal(t, []string{"enhancement"}, mr.Labels)
	assert.True(t, mr.Mergeable)
	assert.Nil(t, mr.MergedAt)
}

func TestGetMergeRequestCompletedReadsMerged(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pullRequestId": 7, "status": "completed", "closedDate": "2024-06-01T12:00:00Z"}`))
	})

	mr, err := client.GetMergeRequest(context.Background(), "Platform", "widgets", 7)
	require.NoError(t, err)
	assert.Equal(t, domain.MergeRequestMerged, mr.State)
	require.NotNil(t, mr.MergedAt)
}

func TestGetChangedFilesUsesLatestIteration(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/pullrequests/42/iterations"):
			w.Write([]byte(`{"count":3,"value":[{"id":1},{"id":3},{"id":2}]}`))
		case strings.HasSuffix(r.URL.Path, "/iterations/3/changes"):
			assert.Equal(t, "0", r.URL.Query().Get("$compareTo"))
			w.Write([]byte(`{"changeEntries":[
				{"changeType":"edit","item":{"path":"/main.go"}},
				{"changeType":"add","item":{"path":"/new.go"}},
				{"changeType":"delete","item":{"path":"/gone.go"}},
				{"changeType":"edit, rename","item":{"path":"/new_name.go"},"sourceServerItem":"/old_name.go"}
			]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	files, err := client.GetChangedFiles(context.Background(), "Platform", "widgets", 42)
	require.NoError(t, err)
	require.Len(t, files, 4)

	assert.Equal(t, "main.go", files[0].Filename)
	assert.Equal(t, domain.FileStatusModified, files[0].Status)
	assert.Equal(t, domain.FileStatusAdded, files[1].Status)
	assert.Equal(t, domain.FileStatusRemoved, files[2].Status)
	assert.Equal(t, domain.FileStatusRenamed, files[3].Status)
	assert.Equal(t, "old_name.go", files[3].PreviousFilename)
}

func TestGetFileContentReadsItemEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/items"))
		assert.Equal(t, "cmd/main.go", r.URL.Query().Get("path"))
		assert.Equal(t, "true", r.URL.Query().Get("includeContent"))
		assert.Equal(t, "commit", r.URL.Query().Get("versionDescriptor.versionType"))
		w.Write([]byte(`{"path":"/cmd/main.go","content":"package main\n"}`))
	})

	sha := strings.Repeat("a", 40)
	data, err := client.GetFileContent(context.Background(), "Platform", "widgets", "cmd/main.go", sha)
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(data))
}

func TestGetFileContentBranchRef(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "branch", r.URL.Query().Get("versionDescriptor.versionType"))
		w.Write([]byte(`{"content":"x"}`))
	})

	_, err := client.GetFileContent(context.Background(), "Platform", "widgets", "main.go", "main")
	require.NoError(t, err)
}

func TestPostSummaryCommentHasNoThreadContext(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/pullrequests/42/threads"))
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":1}`))
	})

	err := client.PostComment(context.Background(), "Platform", "widgets", 42, domain.Comment{Body: "## Review"})
	require.NoError(t, err)

	comments, _ := gotBody["comments"].([]any)
	require.Len(t, comments, 1)
	first, _ := comments[0].(map[string]any)
	assert.Equal(t, "## Review", first["content"])
	assert.NotContains(t, gotBody, "threadContext")
}

func TestPostLineCommentAnchorsRightSide(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":2}`))
	})

	err := client.PostComment(context.Background(), "Platform", "widgets", 42, domain.Comment{
		Body: "Unchecked error.",
		Path: "main.go",
		Line: 12,
	})
	require.NoError(t, err)

	tc, _ := gotBody["threadContext"].(map[string]any)
	require.NotNil(t, tc)
	assert.Equal(t, "/main.go", tc["filePath"])
	start, _ := tc["rightFileStart"].(map[string]any)
	require.NotNil(t, start)
	assert.Equal(t, float64(12), start["line"])
}

func TestUpdateCommitStatusSplitsContext(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/commits/abc123/statuses"))
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":1}`))
	})

	err := client.UpdateCommitStatus(context.Background(), "Platform", "widgets", "abc123", domain.CommitStatus{
		State:       domain.StatusSuccess,
		Context:     "review-gateway/automated-review",
		Description: "Review passed",
	})
	require.NoError(t, err)

	assert.Equal(t, "succeeded", gotBody["state"])
	statusContext, _ := gotBody["context"].(map[string]any)
	require.NotNil(t, statusContext)
	assert.Equal(t, "review-gateway", statusContext["genre"])
	assert.Equal(t, "automated-review", statusContext["name"])
}

func TestSetBranchProtectionCreatesPolicies(t *testing.T) {
	var policyTypes []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/repositories/widgets"):
			w.Write([]byte(`{"id":"repo-guid","name":"widgets","project":{"id":"p-1","name":"Platform"}}`))
		case strings.HasSuffix(r.URL.Path, "/policy/configurations"):
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			policyType, _ := body["type"].(map[string]any)
			policyTypes = append(policyTypes, policyType["id"].(string))
			settings, _ := body["settings"].(map[string]any)
			scope, _ := settings["scope"].([]any)
			require.Len(t, scope, 1)
			first, _ := scope[0].(map[string]any)
			assert.Equal(t, "repo-guid", first["repositoryId"])
			assert.Equal(t, "refs/heads/main", first["refName"])
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":1}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	err := client.SetBranchProtection(context.Background(), "Platform", "widgets", "main", domain.BranchProtection{
		RequiredReviewers:   2,
		RequireStatusChecks: true,
		StatusCheckContexts: []string{"review-gateway/automated-review"},
	})
	require.NoError(t, err)
	assert.Len(t, policyTypes, 2)
}

func TestCreateWebhookSubscribesPerEvent(t *testing.T) {
	var eventTypes []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/repositories/widgets"):
			w.Write([]byte(`{"id":"repo-guid","name":"widgets","project":{"id":"p-1","name":"Platform"}}`))
		case strings.HasSuffix(r.URL.Path, "/hooks/subscriptions"):
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			eventTypes = append(eventTypes, body["eventType"].(string))
			assert.Equal(t, "tfs", body["publisherId"])
			inputs, _ := body["publisherInputs"].(map[string]any)
			assert.Equal(t, "p-1", inputs["projectId"])
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"sub-` + body["eventType"].(string) + `"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	id, err := client.CreateWebhook(context.Background(), "Platform", "widgets", domain.WebhookConfig{
		URL:    "https://gateway.example.com/webhooks",
		Events: []string{"push", "pull_request"},
	})
	require.NoError(t, err)

	assert.Equal(t, "sub-git.push", id)
	assert.Equal(t, []string{"git.push", "git.pullrequest.created", "git.pullrequest.updated"}, eventTypes)
}

func TestErrorsAreTyped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"TF401019: repository does not exist","typeKey":"GitRepositoryNotFoundException"}`))
	})

	_, err := client.GetRepository(context.Background(), "Platform", "missing")
	require.Error(t, err)

	var apiErr *httpx.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, httpx.ErrTypeNotFound, apiErr.Type)
	assert.Equal(t, domain.PlatformAzureDevOps, apiErr.Platform)
	assert.Contains(t, apiErr.Message, "TF401019")
}
