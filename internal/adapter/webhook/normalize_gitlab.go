package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/pkg/log"
)

var gitlabEventTypes = map[string]domain.EventType{
	"Push Hook":          domain.EventPush,
	"Tag Push Hook":      domain.EventPush,
	"Merge Request Hook": domain.EventPullRequest,
	"Issue Hook":         domain.EventIssue,
	"Release Hook":       domain.EventRelease,
	"Pipeline Hook":      domain.EventWorkflowRun,
}

type gitlabNormalizer struct {
	l log.Logger
}

func (n gitlabNormalizer) Normalize(ctx context.Context, eventKey string, body []byte) (domain.WebhookEvent, error) {
	eventType, known := gitlabEventTypes[eventKey]
	if !known {
		n.l.Debugf(ctx, "unmapped gitlab event %q falls back to push", eventKey)
		eventType = domain.EventPush
	}

	// Push hooks carry the user flat; merge request hooks nest it.
	var payload struct {
		User struct {
			ID       int64  `json:"id"`
			Username string `json:"username"`
			Name     string `json:"name"`
		} `json:"user"`
		UserUsername string `json:"user_username"`
		UserName     string `json:"user_name"`
		Project      struct {
			ID                int64  `json:"id"`
			Name              string `json:"name"`
			PathWithNamespace string `json:"path_with_namespace"`
			DefaultBranch     string `json:"default_branch"`
			GitHTTPURL        string `json:"git_http_url"`
			WebURL            string `json:"web_url"`
			VisibilityLevel   int    `json:"visibility_level"`
		} `json:"project"`
		ObjectAttributes struct {
			IID          int    `json:"iid"`
			Title        string `json:"title"`
			Action       string `json:"action"`
			SourceBranch string `json:"source_branch"`
			TargetBranch string `json:"target_branch"`
			LastCommit   struct {
				ID string `json:"id"`
			} `json:"last_commit"`
		} `json:"object_attributes"`
		Labels []struct {
			Title string `json:"title"`
		} `json:"labels"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.WebhookEvent{}, fmt.Errorf("parsing gitlab payload: %w", err)
	}

	owner := payload.Project.PathWithNamespace
	if i := strings.LastIndex(owner, "/"); i >= 0 {
		owner = owner[:i]
	}
	login := payload.User.Username
	if login == "" {
		login = payload.UserUsername
	}
	name := payload.User.Name
	if name == "" {
		name = payload.UserName
	}

	event := domain.WebhookEvent{
		ID:       uuid.NewString(),
		Type:     eventType,
		Platform: domain.PlatformGitLab,
		Repository: domain.Repository{
			ID:            strconv.FormatInt(payload.Project.ID, 10),
			Name:          payload.Project.Name,
			FullName:      payload.Project.PathWithNamespace,
			Owner:         owner,
			Private:       payload.Project.VisibilityLevel == 0,
			DefaultBranch: payload.Project.DefaultBranch,
			URL:           payload.Project.WebURL,
			CloneURL:      payload.Project.GitHTTPURL,
		},
		Sender: domain.User{
			ID:    strconv.FormatInt(payload.User.ID, 10),
			Login: login,
			Name:  name,
		},
		Payload:   json.RawMessage(body),
		Timestamp: time.Now().UTC(),
	}

	if eventType == domain.EventPullRequest {
		labels := make([]string, 0, len(payload.Labels))
		for _, l := range payload.Labels {
			labels = append(labels, l.Title)
		}
		event.PullRequest = &domain.PullRequestRef{
			Number:       payload.ObjectAttributes.IID,
			Action:       canonicalGitLabAction(payload.ObjectAttributes.Action),
			Title:        payload.ObjectAttributes.Title,
			HeadSHA:      payload.ObjectAttributes.LastCommit.ID,
			SourceBranch: payload.ObjectAttributes.SourceBranch,
			TargetBranch: payload.ObjectAttributes.TargetBranch,
			Labels:       labels,
		}
	}
	return event, nil
}

// GitLab's merge request actions are "open" and "update"; the canonical
// model uses GitHub's past-tense vocabulary.
func canonicalGitLabAction(action string) string {
	switch action {
	case "open":
		return domain.ActionOpened
	case "update":
		return domain.ActionSynchronized
	default:
		return action
	}
}
