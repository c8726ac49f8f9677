package gitlab

import (
	"strconv"
	"strings"
	"time"

	"github.com/bkyoung/review-gateway/internal/diff"
	"github.com/bkyoung/review-gateway/internal/domain"
)

func mapProject(p ProjectResponse) domain.Repository {
	owner := p.Namespace.Path
	name := p.Path
	if owner == "" || name == "" {
		if idx := strings.LastIndex(p.PathWithNamespace, "/"); idx > 0 {
			owner = p.PathWithNamespace[:idx]
			name = p.PathWithNamespace[idx+1:]
		}
	}
	return domain.Repository{
		ID:            strconv.FormatInt(p.ID, 10),
		Name:          name,
		FullName:      p.PathWithNamespace,
		Owner:         owner,
		Description:   p.Description,
		DefaultBranch: p.DefaultBranch,
		Private:       p.Visibility != "public",
		URL:           p.WebURL,
	}
}

func mapMergeRequest(mr MergeRequestResponse) domain.MergeRequest {
	out := domain.MergeRequest{
		ID:           strconv.Itoa(mr.IID),
		Number:       mr.IID,
		Title:        mr.Title,
		Description:  mr.Description,
		State:        mapMergeRequestState(mr.State),
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		HeadSHA:      mr.SHA,
		Author:       mapUser(mr.Author),
		Labels:       mr.Labels,
		Draft:        mr.Draft,
		Mergeable:    mr.MergeStatus == "can_be_merged",
		CreatedAt:    parseTime(mr.CreatedAt),
		UpdatedAt:    parseTime(mr.UpdatedAt),
	}
	for _, u := range mr.Assignees {
		out.Assignees = append(out.Assignees, mapUser(u))
	}
	for _, u := range mr.Reviewers {
		out.Reviewers = append(out.Reviewers, mapUser(u))
	}
	if mr.MergedAt != "" {
		t := parseTime(mr.MergedAt)
		out.MergedAt = &t
	}
	return out
}

func mapMergeRequestState(state string) string {
	switch state {
	case "opened":
		return domain.MergeRequestOpen
	case "merged":
		return domain.MergeRequestMerged
	default:
		// closed and locked both read as closed.
		return domain.MergeRequestClosed
	}
}

func mapUser(u UserRef) domain.User {
	return domain.User{
		ID:    strconv.FormatInt(u.ID, 10),
		Login: u.Username,
		Name:  u.Name,
	}
}

// mapChange converts one changes entry, deriving line counts from the raw
// diff text.
func mapChange(ch Change) domain.ChangedFile {
	additions, deletions := diff.Stats(ch.Diff)
	file := domain.ChangedFile{
		Filename:  ch.NewPath,
		Status:    changeStatus(ch),
		Additions: additions,
		Deletions: deletions,
		Changes:   additions + deletions,
		Patch:     ch.Diff,
	}
	if ch.RenamedFile {
		file.PreviousFilename = ch.OldPath
	}
	if ch.DeletedFile {
		file.Filename = ch.OldPath
	}
	return file
}

func changeStatus(ch Change) string {
	switch {
	case ch.NewFile:
		return domain.FileStatusAdded
	case ch.DeletedFile:
		return domain.FileStatusRemoved
	case ch.RenamedFile:
		return domain.FileStatusRenamed
	default:
		return domain.FileStatusModified
	}
}

// mapStatusState translates canonical status states into GitLab's
// vocabulary. GitLab has no distinct error state.
func mapStatusState(state string) string {
	switch state {
	case domain.StatusSuccess:
		return "success"
	case domain.StatusFailure, domain.StatusError:
		return "failed"
	default:
		return "pending"
	}
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
