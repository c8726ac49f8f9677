package azure

import (
	"strconv"
	"strings"
	"time"

	"github.com/bkyoung/review-gateway/internal/domain"
)

func mapRepository(r RepositoryResponse) domain.Repository {
	return domain.Repository{
		ID:            r.ID,
		Name:          r.Name,
		FullName:      r.Project.Name + "/" + r.Name,
		Owner:         r.Project.Name,
		DefaultBranch: stripRefPrefix(r.DefaultBranch),
		Private:       r.Project.Visibility != "public",
		URL:           r.WebURL,
	}
}

func mapPullRequest(pr PullRequestResponse) domain.MergeRequest {
	out := domain.MergeRequest{
		ID:           strconv.Itoa(pr.PullRequestID),
		Number:       pr.PullRequestID,
		Title:        pr.Title,
		Description:  pr.Description,
		State:        mapPullRequestState(pr.Status),
		SourceBranch: stripRefPrefix(pr.SourceRefName),
		TargetBranch: stripRefPrefix(pr.TargetRefName),
		HeadSHA:      pr.LastMergeSourceCommit.CommitID,
		Author:       mapUser(pr.CreatedBy),
		Draft:        pr.IsDraft,
		Mergeable:    pr.MergeStatus == "succeeded",
		CreatedAt:    parseTime(pr.CreationDate),
	}
	for _, u := range pr.Reviewers {
		out.Reviewers = append(out.Reviewers, mapUser(u))
	}
	for _, l := range pr.Labels {
		out.Labels = append(out.Labels, l.Name)
	}
	if pr.Status == "completed" && pr.ClosedDate != "" {
		t := parseTime(pr.ClosedDate)
		out.MergedAt = &t
	}
	return out
}

func mapPullRequestState(status string) string {
	switch status {
	case "active":
		return domain.MergeRequestOpen
	case "completed":
		return domain.MergeRequestMerged
	default:
		return domain.MergeRequestClosed
	}
}

func mapUser(u UserRef) domain.User {
	return domain.User{
		ID:    u.ID,
		Login: u.UniqueName,
		Name:  u.DisplayName,
	}
}

// mapChangeEntry converts one iteration change. Azure reports neither
// line counts nor patches here, so both stay zero.
func mapChangeEntry(entry ChangeEntry) domain.ChangedFile {
	file := domain.ChangedFile{
		Filename: strings.TrimPrefix(entry.Item.Path, "/"),
		Status:   mapChangeType(entry.ChangeType),
	}
	if file.Status == domain.FileStatusRenamed && entry.SourceServerItem != "" {
		file.PreviousFilename = strings.TrimPrefix(entry.SourceServerItem, "/")
	}
	return file
}

// mapChangeType folds Azure's compound change types, such as
// "edit, rename", onto the canonical four.
func mapChangeType(changeType string) string {
	switch {
	case strings.Contains(changeType, "rename"):
		return domain.FileStatusRenamed
	case strings.Contains(changeType, "add"):
		return domain.FileStatusAdded
	case strings.Contains(changeType, "delete"):
		return domain.FileStatusRemoved
	default:
		return domain.FileStatusModified
	}
}

// mapStatusState translates canonical status states into Azure's
// GitStatusState vocabulary.
func mapStatusState(state string) string {
	switch state {
	case domain.StatusSuccess:
		return "succeeded"
	case domain.StatusFailure:
		return "failed"
	case domain.StatusError:
		return "error"
	default:
		return "pending"
	}
}

func stripRefPrefix(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
