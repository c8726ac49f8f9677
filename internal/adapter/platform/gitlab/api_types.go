package gitlab

// API request and response shapes for the GitLab REST API v4.
// https://docs.gitlab.com/ee/api/rest/

// GitLab protected-branch access levels.
const (
	accessLevelNoOne      = 0
	accessLevelMaintainer = 40
)

// ProjectResponse is the subset of the project resource the connector reads.
type ProjectResponse struct {
	ID                int64  `json:"id"`
	PathWithNamespace string `json:"path_with_namespace"`
	Path              string `json:"path"`
	Description       string `json:"description"`
	DefaultBranch     string `json:"default_branch"`
	Visibility        string `json:"visibility"`
	WebURL            string `json:"web_url"`
	Namespace         struct {
		Path string `json:"path"`
	} `json:"namespace"`
}

// MergeRequestResponse is the subset of the merge request resource the
// connector reads. DiffRefs anchors positioned discussions.
type MergeRequestResponse struct {
	IID          int       `json:"iid"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	State        string    `json:"state"`
	SourceBranch string    `json:"source_branch"`
	TargetBranch string    `json:"target_branch"`
	SHA          string    `json:"sha"`
	Draft        bool      `json:"draft"`
	MergeStatus  string    `json:"merge_status"`
	Labels       []string  `json:"labels"`
	Author       UserRef   `json:"author"`
	Assignees    []UserRef `json:"assignees"`
	Reviewers    []UserRef `json:"reviewers"`
	CreatedAt    string    `json:"created_at"`
	UpdatedAt    string    `json:"updated_at"`
	MergedAt     string    `json:"merged_at"`
	DiffRefs     DiffRefs  `json:"diff_refs"`
}

// UserRef identifies a GitLab user on nested resources.
type UserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// DiffRefs are the three SHAs GitLab requires on a discussion position.
type DiffRefs struct {
	BaseSHA  string `json:"base_sha"`
	HeadSHA  string `json:"head_sha"`
	StartSHA string `json:"start_sha"`
}

// ChangesResponse wraps the merge request changes listing.
type ChangesResponse struct {
	Changes []Change `json:"changes"`
}

// Change is one changed file, carrying the raw diff text instead of
// line counts.
type Change struct {
	OldPath     string `json:"old_path"`
	NewPath     string `json:"new_path"`
	NewFile     bool   `json:"new_file"`
	RenamedFile bool   `json:"renamed_file"`
	DeletedFile bool   `json:"deleted_file"`
	Diff        string `json:"diff"`
}

// FileResponse is the repository file envelope.
type FileResponse struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	Ref      string `json:"ref"`
}

// NoteRequest posts a plain merge request note.
type NoteRequest struct {
	Body string `json:"body"`
}

// DiscussionRequest posts a positioned merge request discussion.
type DiscussionRequest struct {
	Body     string    `json:"body"`
	Position *Position `json:"position,omitempty"`
}

// Position anchors a discussion to a line on the new side of the diff.
type Position struct {
	PositionType string `json:"position_type"`
	BaseSHA      string `json:"base_sha"`
	HeadSHA      string `json:"head_sha"`
	StartSHA     string `json:"start_sha"`
	NewPath      string `json:"new_path"`
	NewLine      int    `json:"new_line"`
}

// StatusRequest sets a commit status.
type StatusRequest struct {
	State       string `json:"state"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	TargetURL   string `json:"target_url,omitempty"`
}

// ProtectBranchRequest protects a branch with explicit access levels.
type ProtectBranchRequest struct {
	Name             string `json:"name"`
	PushAccessLevel  int    `json:"push_access_level"`
	MergeAccessLevel int    `json:"merge_access_level"`
}

// HookRequest registers a project webhook. GitLab models event
// subscriptions as per-event booleans.
type HookRequest struct {
	URL                   string `json:"url"`
	Token                 string `json:"token,omitempty"`
	PushEvents            bool   `json:"push_events"`
	MergeRequestsEvents   bool   `json:"merge_requests_events"`
	IssuesEvents          bool   `json:"issues_events"`
	ReleasesEvents        bool   `json:"releases_events"`
	PipelineEvents        bool   `json:"pipeline_events"`
	EnableSSLVerification bool   `json:"enable_ssl_verification"`
}

// HookResponse carries the created hook's ID.
type HookResponse struct {
	ID int64 `json:"id"`
}
