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

type bitbucketNormalizer struct {
	l log.Logger
}

// Bitbucket event keys are "<subject>:<verb>", e.g. "pullrequest:created".
func (n bitbucketNormalizer) Normalize(ctx context.Context, eventKey string, body []byte) (domain.WebhookEvent, error) {
	subject, verb, _ := strings.Cut(eventKey, ":")

	var eventType domain.EventType
	switch subject {
	case "repo":
		eventType = domain.EventPush
	case "pullrequest":
		eventType = domain.EventPullRequest
	case "issue":
		eventType = domain.EventIssue
	default:
		n.l.Debugf(ctx, "unmapped bitbucket event %q falls back to push", eventKey)
		eventType = domain.EventPush
	}

	var payload struct {
		Actor struct {
			UUID        string `json:"uuid"`
			Nickname    string `json:"nickname"`
			DisplayName string `json:"display_name"`
		} `json:"actor"`
		Repository struct {
			UUID      string `json:"uuid"`
			Name      string `json:"name"`
			FullName  string `json:"full_name"`
			IsPrivate bool   `json:"is_private"`
			Links     struct {
				HTML struct {
					Href string `json:"href"`
				} `json:"html"`
			} `json:"links"`
			MainBranch struct {
				Name string `json:"name"`
			} `json:"mainbranch"`
		} `json:"repository"`
		PullRequest struct {
			ID     int    `json:"id"`
			Title  string `json:"title"`
			Source struct {
				Branch struct {
					Name string `json:"name"`
				} `json:"branch"`
				Commit struct {
					Hash string `json:"hash"`
				} `json:"commit"`
			} `json:"source"`
			Destination struct {
				Branch struct {
					Name string `json:"name"`
				} `json:"branch"`
			} `json:"destination"`
		} `json:"pullrequest"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.WebhookEvent{}, fmt.Errorf("parsing bitbucket payload: %w", err)
	}

	owner := payload.Repository.FullName
	if i := strings.Index(owner, "/"); i >= 0 {
		owner = owner[:i]
	}
	login := payload.Actor.Nickname
	if login == "" {
		login = payload.Actor.DisplayName
	}

	// Webhook payloads carry no clone link.
	cloneURL := ""
	if payload.Repository.FullName != "" {
		cloneURL = "https://bitbucket.org/" + payload.Repository.FullName + ".git"
	}

	event := domain.WebhookEvent{
		ID:       uuid.NewString(),
		Type:     eventType,
		Platform: domain.PlatformBitbucket,
		Repository: domain.Repository{
			ID:            payload.Repository.UUID,
			Name:          payload.Repository.Name,
			FullName:      payload.Repository.FullName,
			Owner:         owner,
			Private:       payload.Repository.IsPrivate,
			DefaultBranch: payload.Repository.MainBranch.Name,
			URL:           payload.Repository.Links.HTML.Href,
			CloneURL:      cloneURL,
		},
		Sender: domain.User{
			ID:    payload.Actor.UUID,
			Login: login,
			Name:  payload.Actor.DisplayName,
		},
		Payload:   json.RawMessage(body),
		Timestamp: time.Now().UTC(),
	}

	if eventType == domain.EventPullRequest {
		event.PullRequest = &domain.PullRequestRef{
			Number:       payload.PullRequest.ID,
			Action:       canonicalBitbucketAction(verb),
			Title:        payload.PullRequest.Title,
			HeadSHA:      payload.PullRequest.Source.Commit.Hash,
			SourceBranch: payload.PullRequest.Source.Branch.Name,
			TargetBranch: payload.PullRequest.Destination.Branch.Name,
		}
	}
	return event, nil
}

func canonicalBitbucketAction(verb string) string {
	switch verb {
	case "created":
		return domain.ActionOpened
	case "updated":
		return domain.ActionSynchronized
	default:
		return verb
	}
}
