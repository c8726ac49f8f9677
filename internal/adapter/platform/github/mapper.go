package github

import (
	"strconv"
	"time"

	"github.com/bkyoung/review-gateway/internal/domain"
)

func mapRepository(r RepositoryResponse) domain.Repository {
	return domain.Repository{
		ID:            strconv.FormatInt(r.ID, 10),
		Name:          r.Name,
		FullName:      r.FullName,
		Owner:         r.Owner.Login,
		Private:       r.Private,
		DefaultBranch: r.DefaultBranch,
		Language:      r.Language,
		URL:           r.HTMLURL,
		CloneURL:      r.CloneURL,
	}
}

func mapMergeRequest(pr PullRequestResponse) domain.MergeRequest {
	state := pr.State
	var mergedAt *time.Time
	if pr.MergedAt != "" {
		state = domain.MergeRequestMerged
		if t, err := time.Parse(time.RFC3339, pr.MergedAt); err == nil {
			mergedAt = &t
		}
	}

	mr := domain.MergeRequest{
		ID:           strconv.FormatInt(pr.ID, 10),
		Number:       pr.Number,
		Title:        pr.Title,
		Description:  pr.Body,
		State:        state,
		SourceBranch: pr.Head.Ref,
		TargetBranch: pr.Base.Ref,
		Author:       domain.User{ID: strconv.FormatInt(pr.User.ID, 10), Login: pr.User.Login},
		Draft:        pr.Draft,
		Mergeable:    pr.Mergeable != nil && *pr.Mergeable,
		HeadSHA:      pr.Head.SHA,
		CreatedAt:    parseTime(pr.CreatedAt),
		UpdatedAt:    parseTime(pr.UpdatedAt),
		MergedAt:     mergedAt,
	}

	for _, a := range pr.Assignees {
		mr.Assignees = append(mr.Assignees, domain.User{ID: strconv.FormatInt(a.ID, 10), Login: a.Login})
	}
	for _, r := range pr.RequestedReviewers {
		mr.Reviewers = append(mr.Reviewers, domain.User{ID: strconv.FormatInt(r.ID, 10), Login: r.Login})
	}
	for _, l := range pr.Labels {
		mr.Labels = append(mr.Labels, l.Name)
	}
	return mr
}

func mapChangedFile(f FileResponse) domain.ChangedFile {
	return domain.ChangedFile{
		Filename:         f.Filename,
		Status:           normalizeFileStatus(f.Status),
		Additions:        f.Additions,
		Deletions:        f.Deletions,
		Changes:          f.Changes,
		Patch:            f.Patch,
		PreviousFilename: f.PreviousFilename,
	}
}

// normalizeFileStatus folds GitHub's extended vocabulary (copied, changed,
// unchanged) onto the canonical four statuses.
func normalizeFileStatus(status string) string {
	switch status {
	case domain.FileStatusAdded, domain.FileStatusModified, domain.FileStatusRemoved, domain.FileStatusRenamed:
		return status
	case "copied":
		return domain.FileStatusAdded
	default:
		return domain.FileStatusModified
	}
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
