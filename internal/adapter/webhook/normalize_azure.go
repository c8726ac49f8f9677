package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/pkg/log"
)

type azureNormalizer struct {
	l log.Logger
}

// Azure DevOps sends no event header; the payload's eventType field carries
// the vocabulary ("git.push", "git.pullrequest.created", ...).
func (n azureNormalizer) Normalize(ctx context.Context, _ string, body []byte) (domain.WebhookEvent, error) {
	var payload struct {
		EventType string `json:"eventType"`
		Resource  struct {
			PullRequestID int    `json:"pullRequestId"`
			Title         string `json:"title"`
			SourceRefName string `json:"sourceRefName"`
			TargetRefName string `json:"targetRefName"`

			LastMergeSourceCommit struct {
				CommitID string `json:"commitId"`
			} `json:"lastMergeSourceCommit"`
			CreatedBy struct {
				ID          string `json:"id"`
				DisplayName string `json:"displayName"`
				UniqueName  string `json:"uniqueName"`
			} `json:"createdBy"`
			PushedBy struct {
				ID          string `json:"id"`
				DisplayName string `json:"displayName"`
				UniqueName  string `json:"uniqueName"`
			} `json:"pushedBy"`
			Repository struct {
				ID            string `json:"id"`
				Name          string `json:"name"`
				RemoteURL     string `json:"remoteUrl"`
				WebURL        string `json:"webUrl"`
				DefaultBranch string `json:"defaultBranch"`
				Project       struct {
					Name       string `json:"name"`
					Visibility string `json:"visibility"`
				} `json:"project"`
			} `json:"repository"`
		} `json:"resource"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.WebhookEvent{}, fmt.Errorf("parsing azure devops payload: %w", err)
	}

	eventType, action := azureEventType(payload.EventType)
	if eventType == "" {
		n.l.Debugf(ctx, "unmapped azure devops event %q falls back to push", payload.EventType)
		eventType = domain.EventPush
	}

	repo := payload.Resource.Repository
	fullName := repo.Name
	if repo.Project.Name != "" {
		fullName = repo.Project.Name + "/" + repo.Name
	}

	sender := payload.Resource.CreatedBy
	if sender.ID == "" && sender.UniqueName == "" {
		sender = payload.Resource.PushedBy
	}

	event := domain.WebhookEvent{
		ID:       uuid.NewString(),
		Type:     eventType,
		Platform: domain.PlatformAzureDevOps,
		Repository: domain.Repository{
			ID:            repo.ID,
			Name:          repo.Name,
			FullName:      fullName,
			Owner:         repo.Project.Name,
			Private:       repo.Project.Visibility != "public",
			DefaultBranch: trimRefPrefix(repo.DefaultBranch),
			URL:           repo.WebURL,
			CloneURL:      repo.RemoteURL,
		},
		Sender: domain.User{
			ID:    sender.ID,
			Login: sender.UniqueName,
			Name:  sender.DisplayName,
		},
		Payload:   json.RawMessage(body),
		Timestamp: time.Now().UTC(),
	}

	if eventType == domain.EventPullRequest {
		event.PullRequest = &domain.PullRequestRef{
			Number:       payload.Resource.PullRequestID,
			Action:       action,
			Title:        payload.Resource.Title,
			HeadSHA:      payload.Resource.LastMergeSourceCommit.CommitID,
			SourceBranch: trimRefPrefix(payload.Resource.SourceRefName),
			TargetBranch: trimRefPrefix(payload.Resource.TargetRefName),
		}
	}
	return event, nil
}

func azureEventType(eventType string) (domain.EventType, string) {
	switch eventType {
	case "git.push":
		return domain.EventPush, ""
	case "git.pullrequest.created":
		return domain.EventPullRequest, domain.ActionOpened
	case "git.pullrequest.updated":
		return domain.EventPullRequest, domain.ActionSynchronized
	case "git.pullrequest.merged":
		return domain.EventPullRequest, "merged"
	case "workitem.created", "workitem.updated":
		return domain.EventIssue, ""
	case "ms.vss-release.release-created-event":
		return domain.EventRelease, ""
	case "build.complete":
		return domain.EventWorkflowRun, ""
	default:
		return "", ""
	}
}

func trimRefPrefix(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}
