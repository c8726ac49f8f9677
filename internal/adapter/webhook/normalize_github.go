package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/pkg/log"
)

var githubEventTypes = map[string]domain.EventType{
	"push":         domain.EventPush,
	"pull_request": domain.EventPullRequest,
	"issues":       domain.EventIssue,
	"release":      domain.EventRelease,
	"workflow_run": domain.EventWorkflowRun,
}

type githubNormalizer struct {
	l log.Logger
}

func (n githubNormalizer) Normalize(ctx context.Context, eventKey string, body []byte) (domain.WebhookEvent, error) {
	eventType, known := githubEventTypes[eventKey]
	if !known {
		n.l.Debugf(ctx, "unmapped github event %q falls back to push", eventKey)
		eventType = domain.EventPush
	}

	var payload struct {
		Action     string `json:"action"`
		Number     int    `json:"number"`
		Repository struct {
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
			} `json:"owner"`
		} `json:"repository"`
		Sender struct {
			ID    int64  `json:"id"`
			Login string `json:"login"`
		} `json:"sender"`
		PullRequest struct {
			Title string `json:"title"`
			Head  struct {
				Ref string `json:"ref"`
				SHA string `json:"sha"`
			} `json:"head"`
			Base struct {
				Ref string `json:"ref"`
			} `json:"base"`
			Labels []struct {
				Name string `json:"name"`
			} `json:"labels"`
		} `json:"pull_request"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.WebhookEvent{}, fmt.Errorf("parsing github payload: %w", err)
	}

	event := domain.WebhookEvent{
		ID:       uuid.NewString(),
		Type:     eventType,
		Platform: domain.PlatformGitHub,
		Repository: domain.Repository{
			ID:            strconv.FormatInt(payload.Repository.ID, 10),
			Name:          payload.Repository.Name,
			FullName:      payload.Repository.FullName,
			Owner:         payload.Repository.Owner.Login,
			Private:       payload.Repository.Private,
			DefaultBranch: payload.Repository.DefaultBranch,
			Language:      payload.Repository.Language,
			URL:           payload.Repository.HTMLURL,
			CloneURL:      payload.Repository.CloneURL,
		},
		Sender: domain.User{
			ID:    strconv.FormatInt(payload.Sender.ID, 10),
			Login: payload.Sender.Login,
		},
		Payload:   json.RawMessage(body),
		Timestamp: time.Now().UTC(),
	}

	if eventType == domain.EventPullRequest {
		labels := make([]string, 0, len(payload.PullRequest.Labels))
		for _, l := range payload.PullRequest.Labels {
			labels = append(labels, l.Name)
		}
		event.PullRequest = &domain.PullRequestRef{
			Number:       payload.Number,
			Action:       canonicalGitHubAction(payload.Action),
			Title:        payload.PullRequest.Title,
			HeadSHA:      payload.PullRequest.Head.SHA,
			SourceBranch: payload.PullRequest.Head.Ref,
			TargetBranch: payload.PullRequest.Base.Ref,
			Labels:       labels,
		}
	}
	return event, nil
}

// GitHub says "synchronize" where the canonical model says "synchronized".
func canonicalGitHubAction(action string) string {
	if action == "synchronize" {
		return domain.ActionSynchronized
	}
	return action
}
