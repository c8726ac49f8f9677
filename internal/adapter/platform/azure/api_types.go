package azure

// API request and response shapes for the Azure DevOps REST API 7.0.
// https://learn.microsoft.com/en-us/rest/api/azure/devops/

const (
	threadStatusActive = 1
	commentTypeText    = 1
)

// RepositoryListResponse wraps the org-wide repository listing.
type RepositoryListResponse struct {
	Count int                  `json:"count"`
	Value []RepositoryResponse `json:"value"`
}

// RepositoryResponse is the subset of the repository resource the
// connector reads. DefaultBranch arrives fully qualified as refs/heads/x.
type RepositoryResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DefaultBranch string `json:"defaultBranch"`
	WebURL        string `json:"webUrl"`
	Project       struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Visibility string `json:"visibility"`
	} `json:"project"`
}

// PullRequestResponse is the subset of the pull request resource the
// connector reads. Status is one of active, abandoned, completed.
type PullRequestResponse struct {
	PullRequestID int       `json:"pullRequestId"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Status        string    `json:"status"`
	IsDraft       bool      `json:"isDraft"`
	MergeStatus   string    `json:"mergeStatus"`
	SourceRefName string    `json:"sourceRefName"`
	TargetRefName string    `json:"targetRefName"`
	CreationDate  string    `json:"creationDate"`
	ClosedDate    string    `json:"closedDate"`
	CreatedBy     UserRef   `json:"createdBy"`
	Reviewers     []UserRef `json:"reviewers"`

	LastMergeSourceCommit struct {
		CommitID string `json:"commitId"`
	} `json:"lastMergeSourceCommit"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
}

// UserRef identifies an Azure DevOps identity on nested resources.
type UserRef struct {
	ID          string `json:"id"`
	UniqueName  string `json:"uniqueName"`
	DisplayName string `json:"displayName"`
}

// IterationListResponse wraps the pull request iteration listing.
type IterationListResponse struct {
	Count int                 `json:"count"`
	Value []IterationResponse `json:"value"`
}

// IterationResponse carries an iteration's ID; the highest is the
// latest push to the pull request.
type IterationResponse struct {
	ID int `json:"id"`
}

// IterationChangesResponse lists the files changed in an iteration.
type IterationChangesResponse struct {
	ChangeEntries []ChangeEntry `json:"changeEntries"`
}

// ChangeEntry is one changed file. ChangeType can be comma-joined, for
// example "edit, rename".
type ChangeEntry struct {
	ChangeType string `json:"changeType"`
	Item       struct {
		Path string `json:"path"`
	} `json:"item"`
	SourceServerItem string `json:"sourceServerItem"`
}

// ItemResponse is the items endpoint's JSON envelope.
type ItemResponse struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ThreadRequest opens a pull request comment thread.
type ThreadRequest struct {
	Comments      []ThreadComment `json:"comments"`
	Status        int             `json:"status"`
	ThreadContext *ThreadContext  `json:"threadContext,omitempty"`
}

// ThreadComment is one comment inside a thread.
type ThreadComment struct {
	ParentCommentID int    `json:"parentCommentId"`
	Content         string `json:"content"`
	CommentType     int    `json:"commentType"`
}

// ThreadContext anchors a thread to the right side of the diff.
type ThreadContext struct {
	FilePath       string        `json:"filePath"`
	RightFileStart *FilePosition `json:"rightFileStart,omitempty"`
	RightFileEnd   *FilePosition `json:"rightFileEnd,omitempty"`
}

// FilePosition is a one-based line and column pair.
type FilePosition struct {
	Line   int `json:"line"`
	Offset int `json:"offset"`
}

// StatusRequest sets a commit status.
type StatusRequest struct {
	State       string        `json:"state"`
	Description string        `json:"description,omitempty"`
	TargetURL   string        `json:"targetUrl,omitempty"`
	Context     StatusContext `json:"context"`
}

// StatusContext names a status; Azure splits the canonical context into
// a genre and name pair.
type StatusContext struct {
	Genre string `json:"genre,omitempty"`
	Name  string `json:"name"`
}

// PolicyRequest creates one branch policy configuration.
type PolicyRequest struct {
	IsEnabled  bool           `json:"isEnabled"`
	IsBlocking bool           `json:"isBlocking"`
	Type       PolicyType     `json:"type"`
	Settings   PolicySettings `json:"settings"`
}

// PolicyType references a policy by its well-known ID.
type PolicyType struct {
	ID string `json:"id"`
}

// PolicySettings carries the per-policy-type settings the connector
// uses. Unrelated fields are omitted from the payload when zero.
type PolicySettings struct {
	MinimumApproverCount int           `json:"minimumApproverCount,omitempty"`
	CreatorVoteCounts    bool          `json:"creatorVoteCounts,omitempty"`
	StatusGenre          string        `json:"statusGenre,omitempty"`
	StatusName           string        `json:"statusName,omitempty"`
	Scope                []PolicyScope `json:"scope"`
}

// PolicyScope pins a policy to one branch of one repository.
type PolicyScope struct {
	RepositoryID string `json:"repositoryId"`
	RefName      string `json:"refName"`
	MatchKind    string `json:"matchKind"`
}

// SubscriptionRequest registers one service-hook subscription.
type SubscriptionRequest struct {
	PublisherID      string            `json:"publisherId"`
	EventType        string            `json:"eventType"`
	ResourceVersion  string            `json:"resourceVersion"`
	ConsumerID       string            `json:"consumerId"`
	ConsumerActionID string            `json:"consumerActionId"`
	PublisherInputs  map[string]string `json:"publisherInputs"`
	ConsumerInputs   map[string]string `json:"consumerInputs"`
}

// SubscriptionResponse carries the created subscription's ID.
type SubscriptionResponse struct {
	ID string `json:"id"`
}

// ErrorResponse is Azure's error envelope.
type ErrorResponse struct {
	Message string `json:"message"`
	TypeKey string `json:"typeKey"`
}
