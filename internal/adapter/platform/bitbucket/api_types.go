package bitbucket

// API request and response shapes for the Bitbucket Cloud REST API 2.0.
// https://developer.atlassian.com/cloud/bitbucket/rest/

// RepositoryPage is one page of a repository listing.
type RepositoryPage struct {
	Values []RepositoryResponse `json:"values"`
	Next   string               `json:"next"`
}

// RepositoryResponse is the subset of the repository resource the
// connector reads.
type RepositoryResponse struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
	MainBranch  struct {
		Name string `json:"name"`
	} `json:"mainbranch"`
	Workspace struct {
		Slug string `json:"slug"`
	} `json:"workspace"`
	Links struct {
		HTML struct {
			Href string `json:"href"`
		} `json:"html"`
	} `json:"links"`
}

// PullRequestResponse is the subset of the pull request resource the
// connector reads. States are upper case: OPEN, MERGED, DECLINED,
// SUPERSEDED.
type PullRequestResponse struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	State       string  `json:"state"`
	Draft       bool    `json:"draft"`
	Author      UserRef `json:"author"`
	Source      struct {
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
	Reviewers []UserRef `json:"reviewers"`
	CreatedOn string    `json:"created_on"`
	UpdatedOn string    `json:"updated_on"`
}

// UserRef identifies a Bitbucket user on nested resources.
type UserRef struct {
	UUID        string `json:"uuid"`
	Nickname    string `json:"nickname"`
	DisplayName string `json:"display_name"`
}

// DiffstatPage is one page of a pull request diffstat listing.
type DiffstatPage struct {
	Values []DiffstatEntry `json:"values"`
	Next   string          `json:"next"`
}

// DiffstatEntry is one changed file. Status is one of added, modified,
// removed, renamed.
type DiffstatEntry struct {
	Status       string `json:"status"`
	LinesAdded   int    `json:"lines_added"`
	LinesRemoved int    `json:"lines_removed"`
	Old          *struct {
		Path string `json:"path"`
	} `json:"old"`
	New *struct {
		Path string `json:"path"`
	} `json:"new"`
}

// CommentRequest posts a pull request comment, optionally inline.
type CommentRequest struct {
	Content CommentContent `json:"content"`
	Inline  *CommentInline `json:"inline,omitempty"`
}

// CommentContent carries the comment markup.
type CommentContent struct {
	Raw string `json:"raw"`
}

// CommentInline anchors a comment to a line on the new side of the diff.
type CommentInline struct {
	Path string `json:"path"`
	To   int    `json:"to"`
}

// BuildStatusRequest sets a build status on a commit. Key is mandatory
// and identifies the status for later updates.
type BuildStatusRequest struct {
	Key         string `json:"key"`
	State       string `json:"state"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// BranchRestrictionRequest creates one branch restriction rule.
type BranchRestrictionRequest struct {
	Kind            string `json:"kind"`
	BranchMatchKind string `json:"branch_match_kind"`
	Pattern         string `json:"pattern"`
	Value           int    `json:"value,omitempty"`
}

// WebhookRequest registers a repository webhook.
type WebhookRequest struct {
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Secret      string   `json:"secret,omitempty"`
	Active      bool     `json:"active"`
	Events      []string `json:"events"`
}

// WebhookResponse carries the created webhook's UUID.
type WebhookResponse struct {
	UUID string `json:"uuid"`
}

// ErrorResponse is Bitbucket's error envelope.
type ErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
