package bitbucket

import (
	"strconv"
	"strings"
	"time"

	"github.com/bkyoung/review-gateway/internal/domain"
)

func mapRepository(r RepositoryResponse) domain.Repository {
	owner := r.Workspace.Slug
	if owner == "" {
		if idx := strings.Index(r.FullName, "/"); idx > 0 {
			owner = r.FullName[:idx]
		}
	}
	return domain.Repository{
		ID:            strings.Trim(r.UUID, "{}"),
		Name:          r.Name,
		FullName:      r.FullName,
		Owner:         owner,
		Description:   r.Description,
		DefaultBranch: r.MainBranch.Name,
		Private:       r.IsPrivate,
		URL:           r.Links.HTML.Href,
	}
}

func mapPullRequest(pr PullRequestResponse) domain.MergeRequest {
	out := domain.MergeRequest{
		ID:           strconv.Itoa(pr.ID),
		Number:       pr.ID,
		Title:        pr.Title,
		Description:  pr.Description,
		State:        mapPullRequestState(pr.State),
		SourceBranch: pr.Source.Branch.Name,
		TargetBranch: pr.Destination.Branch.Name,
		HeadSHA:      pr.Source.Commit.Hash,
		Author:       mapUser(pr.Author),
		Draft:        pr.Draft,
		CreatedAt:    parseTime(pr.CreatedOn),
		UpdatedAt:    parseTime(pr.UpdatedOn),
	}
	for _, u := range pr.Reviewers {
		out.Reviewers = append(out.Reviewers, mapUser(u))
	}
	return out
}

func mapPullRequestState(state string) string {
	switch state {
	case "OPEN":
		return domain.MergeRequestOpen
	case "MERGED":
		return domain.MergeRequestMerged
	default:
		// DECLINED and SUPERSEDED both read as closed.
		return domain.MergeRequestClosed
	}
}

func mapUser(u UserRef) domain.User {
	login := u.Nickname
	if login == "" {
		login = u.DisplayName
	}
	return domain.User{
		ID:    strings.Trim(u.UUID, "{}"),
		Login: login,
		Name:  u.DisplayName,
	}
}

func mapDiffstat(entry DiffstatEntry) domain.ChangedFile {
	file := domain.ChangedFile{
		Status:    normalizeStatus(entry.Status),
		Additions: entry.LinesAdded,
		Deletions: entry.LinesRemoved,
		Changes:   entry.LinesAdded + entry.LinesRemoved,
	}
	if entry.New != nil {
		file.Filename = entry.New.Path
	} else if entry.Old != nil {
		file.Filename = entry.Old.Path
	}
	if file.Status == domain.FileStatusRenamed && entry.Old != nil {
		file.PreviousFilename = entry.Old.Path
	}
	return file
}

func normalizeStatus(status string) string {
	switch status {
	case domain.FileStatusAdded, domain.FileStatusModified, domain.FileStatusRemoved, domain.FileStatusRenamed:
		return status
	default:
		return domain.FileStatusModified
	}
}

// mapStatusState translates canonical status states into Bitbucket's
// build-status vocabulary.
func mapStatusState(state string) string {
	switch state {
	case domain.StatusSuccess:
		return "SUCCESSFUL"
	case domain.StatusFailure, domain.StatusError:
		return "FAILED"
	default:
		return "INPROGRESS"
	}
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
