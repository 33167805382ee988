package azdo

import (
	"encoding/json"
	"fmt"
	"strings"
)

// IdentityRef identifies a user on the Azure DevOps side.
type IdentityRef struct {
	// DisplayName is the human-readable name.
	DisplayName string `json:"displayName"`
	// UniqueName is the sign-in address, usually an email.
	UniqueName string `json:"uniqueName"`
	// ID is the identity GUID.
	ID string `json:"id"`
}

// Reviewer is an identity attached to a pull request with a review vote.
type Reviewer struct {
	IdentityRef
	// Vote is the review verdict: 10 approved, 5 approved with suggestions,
	// 0 no vote, -5 waiting for author, -10 rejected.
	Vote int `json:"vote"`
	// IsRequired marks reviewers whose approval is mandatory.
	IsRequired bool `json:"isRequired"`
}

// VoteLabel translates a reviewer vote into the label the web UI shows.
func VoteLabel(vote int) string {
	switch vote {
	case 10:
		return "approved"
	case 5:
		return "approved with suggestions"
	case -5:
		return "waiting for author"
	case -10:
		return "rejected"
	default:
		return "no vote"
	}
}

// PullRequest is the pull-request detail snapshot used for review context.
type PullRequest struct {
	// PullRequestID is the numeric PR identifier within the repository.
	PullRequestID int `json:"pullRequestId"`
	// Title is the PR title.
	Title string `json:"title"`
	// Description is the PR description body.
	Description string `json:"description"`
	// Status is "active", "completed", or "abandoned".
	Status string `json:"status"`
	// IsDraft marks draft pull requests.
	IsDraft bool `json:"isDraft"`
	// CreatedBy is the PR author.
	CreatedBy IdentityRef `json:"createdBy"`
	// CreationDate is the ISO timestamp of PR creation.
	CreationDate string `json:"creationDate"`
	// SourceRefName is the full source branch ref (refs/heads/...).
	SourceRefName string `json:"sourceRefName"`
	// TargetRefName is the full target branch ref.
	TargetRefName string `json:"targetRefName"`
	// MergeStatus reports the server-side merge check outcome.
	MergeStatus string `json:"mergeStatus"`
	// Reviewers lists the attached reviewers with their votes.
	Reviewers []Reviewer `json:"reviewers"`
}

// ShortBranch strips the refs/heads/ prefix from a full ref name.
func ShortBranch(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}

// Iteration is one push-delimited revision of the PR diff.
type Iteration struct {
	// ID is the iteration number, ascending with each push.
	ID int `json:"id"`
	// Description is the agent-assigned iteration description.
	Description string `json:"description"`
	// Author is the identity that pushed the iteration.
	Author IdentityRef `json:"author"`
	// CreatedDate is the ISO timestamp of the push.
	CreatedDate string `json:"createdDate"`
}

// ChangeEntry is a single changed item within an iteration.
type ChangeEntry struct {
	// ChangeTrackingID orders entries within the iteration.
	ChangeTrackingID int `json:"changeTrackingId"`
	// ChangeType is "add", "edit", "delete", "rename", or a combination.
	ChangeType string `json:"changeType"`
	// Item carries the repository path of the changed file.
	Item ChangeItem `json:"item"`
}

// ChangeItem locates a changed file in the repository tree.
type ChangeItem struct {
	// Path is the repository-rooted file path.
	Path string `json:"path"`
	// IsFolder marks directory entries, which the reports skip.
	IsFolder bool `json:"isFolder"`
}

// Commit is a single commit reachable from the PR source branch.
type Commit struct {
	// CommitID is the full SHA.
	CommitID string `json:"commitId"`
	// Comment is the commit message.
	Comment string `json:"comment"`
	// Author is the git author stamp.
	Author GitUserDate `json:"author"`
}

// GitUserDate is the name/email/date triple git stamps on commits.
type GitUserDate struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Date  string `json:"date"`
}

// ThreadStatus is the lifecycle state of a PR comment thread.
type ThreadStatus int

const (
	// StatusActive marks a thread awaiting resolution.
	StatusActive ThreadStatus = 1
	// StatusFixed marks a thread resolved by a change.
	StatusFixed ThreadStatus = 2
	// StatusWontFix marks a thread closed without a change.
	StatusWontFix ThreadStatus = 3
	// StatusClosed marks a thread closed outright.
	StatusClosed ThreadStatus = 4
	// StatusPending marks a thread not yet published to reviewers.
	StatusPending ThreadStatus = 5
)

var threadStatusNames = map[ThreadStatus]string{
	StatusActive:  "active",
	StatusFixed:   "fixed",
	StatusWontFix: "wontFix",
	StatusClosed:  "closed",
	StatusPending: "pending",
}

// ParseThreadStatus converts a textual status (as CLI input or API response)
// into its enum value.
func ParseThreadStatus(value string) (ThreadStatus, error) {
	needle := strings.ToLower(strings.TrimSpace(value))
	for status, name := range threadStatusNames {
		if strings.ToLower(name) == needle {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown thread status %q (expected active, fixed, wontFix, closed, or pending)", value)
}

// String returns the wire name of the status, or "unknown".
func (s ThreadStatus) String() string {
	if name, ok := threadStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON writes the numeric enum value the thread-create API expects.
func (s ThreadStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(s))
}

// UnmarshalJSON accepts both the numeric enum and the textual form the
// thread-list API returns.
func (s *ThreadStatus) UnmarshalJSON(data []byte) error {
	var num int
	if err := json.Unmarshal(data, &num); err == nil {
		*s = ThreadStatus(num)
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("thread status must be a number or string: %w", err)
	}
	status, err := ParseThreadStatus(name)
	if err != nil {
		// The API also reports statuses outside the enum (e.g. "byDesign");
		// keep the thread readable instead of failing the whole fetch.
		*s = 0
		return nil
	}
	*s = status
	return nil
}

// Thread is a comment conversation anchored to the pull request.
type Thread struct {
	// ID is the thread identifier within the PR.
	ID int `json:"id"`
	// Status is the thread lifecycle state.
	Status ThreadStatus `json:"status"`
	// IsDeleted marks threads removed from the conversation.
	IsDeleted bool `json:"isDeleted"`
	// Comments lists the thread's comments in publication order.
	Comments []Comment `json:"comments"`
	// ThreadContext anchors the thread to a file and line, when present.
	ThreadContext *ThreadContext `json:"threadContext,omitempty"`
}

// ThreadContext anchors a thread to a position in the diff.
type ThreadContext struct {
	// FilePath is the repository-rooted path the thread is attached to.
	FilePath string `json:"filePath"`
	// RightFileStart is the anchor position in the new file version.
	RightFileStart *FilePosition `json:"rightFileStart,omitempty"`
}

// FilePosition is a 1-based line/offset pair.
type FilePosition struct {
	Line   int `json:"line"`
	Offset int `json:"offset"`
}

// Comment is a single message within a thread.
type Comment struct {
	// ID is the comment identifier within the thread.
	ID int `json:"id"`
	// ParentCommentID is 0 for the root comment.
	ParentCommentID int `json:"parentCommentId"`
	// Author is the comment author identity.
	Author IdentityRef `json:"author"`
	// Content is the raw markdown body.
	Content string `json:"content"`
	// PublishedDate is the ISO timestamp of publication.
	PublishedDate string `json:"publishedDate"`
	// CommentType is "text" for user comments, "system" for events.
	CommentType string `json:"commentType"`
}
