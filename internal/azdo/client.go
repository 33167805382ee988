// Package azdo provides a minimal Azure DevOps Git REST client covering the
// pull-request surface the review task needs: PR detail, iterations, iteration
// changes, commits, and comment threads.
package azdo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	// apiVersion is the Azure DevOps REST API version every call pins.
	apiVersion = "7.1"
	// defaultBaseURL is the dev.azure.com service root.
	defaultBaseURL = "https://dev.azure.com"
)

// ErrUnauthorized reports that the service rejected the supplied credential.
var ErrUnauthorized = errors.New("azure devops authentication failed")

// ErrNotFound reports that the addressed resource does not exist.
var ErrNotFound = errors.New("azure devops resource not found")

// Credential is the bearer or basic credential presented to the service.
type Credential struct {
	scheme string
	token  string
}

// PAT builds a basic credential from a personal access token (empty username,
// the PAT as password).
func PAT(token string) Credential {
	return Credential{scheme: "Basic", token: base64.StdEncoding.EncodeToString([]byte(":" + token))}
}

// Bearer builds a bearer credential, e.g. from System.AccessToken.
func Bearer(token string) Credential {
	return Credential{scheme: "Bearer", token: token}
}

// IsZero reports whether no credential was supplied.
func (c Credential) IsZero() bool {
	return c.token == ""
}

func (c Credential) header() string {
	return c.scheme + " " + c.token
}

// Client talks to the Git REST surface of one repository.
type Client struct {
	logger  *slog.Logger
	httpCli *http.Client
	baseURL string
	project string
	repo    string
	cred    Credential
}

// NewClient constructs a Client for the given organization, project and
// repository.
func NewClient(logger *slog.Logger, organization, project, repository string, cred Credential) (*Client, error) {
	if strings.TrimSpace(organization) == "" {
		return nil, fmt.Errorf("organization is empty")
	}
	baseURL := defaultBaseURL + "/" + url.PathEscape(strings.TrimSpace(organization))
	return NewClientWithBaseURL(logger, baseURL, project, repository, cred, nil)
}

// NewClientWithBaseURL constructs a Client against an explicit service root,
// used by tests to point at a local server. httpCli may be nil.
func NewClientWithBaseURL(logger *slog.Logger, baseURL, project, repository string, cred Credential, httpCli *http.Client) (*Client, error) {
	if strings.TrimSpace(project) == "" {
		return nil, fmt.Errorf("project is empty")
	}
	if strings.TrimSpace(repository) == "" {
		return nil, fmt.Errorf("repository is empty")
	}
	if cred.IsZero() {
		return nil, fmt.Errorf("credential is empty")
	}
	if httpCli == nil {
		httpCli = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		logger:  logger,
		httpCli: httpCli,
		baseURL: strings.TrimRight(baseURL, "/"),
		project: strings.TrimSpace(project),
		repo:    strings.TrimSpace(repository),
		cred:    cred,
	}, nil
}

// FetchPullRequest retrieves the pull-request detail snapshot.
func (c *Client) FetchPullRequest(ctx context.Context, prID int) (*PullRequest, error) {
	var pr PullRequest
	if err := c.do(ctx, http.MethodGet, c.prPath(prID), nil, &pr); err != nil {
		return nil, fmt.Errorf("fetch pull request %d: %w", prID, err)
	}
	return &pr, nil
}

// FetchIterations retrieves all iterations of the pull request.
func (c *Client) FetchIterations(ctx context.Context, prID int) ([]Iteration, error) {
	var list struct {
		Value []Iteration `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, c.prPath(prID)+"/iterations", nil, &list); err != nil {
		return nil, fmt.Errorf("fetch iterations for pull request %d: %w", prID, err)
	}
	return list.Value, nil
}

// LatestIteration returns the iteration with the highest id. The second
// return value is false when the slice is empty.
func LatestIteration(iterations []Iteration) (Iteration, bool) {
	if len(iterations) == 0 {
		return Iteration{}, false
	}
	sorted := make([]Iteration, len(iterations))
	copy(sorted, iterations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID > sorted[j].ID })
	return sorted[0], true
}

// FetchIterationChanges retrieves the changed files of one iteration.
func (c *Client) FetchIterationChanges(ctx context.Context, prID, iterationID int) ([]ChangeEntry, error) {
	var list struct {
		ChangeEntries []ChangeEntry `json:"changeEntries"`
	}
	path := fmt.Sprintf("%s/iterations/%d/changes", c.prPath(prID), iterationID)
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, fmt.Errorf("fetch changes for pull request %d iteration %d: %w", prID, iterationID, err)
	}
	return list.ChangeEntries, nil
}

// FetchCommits retrieves the commits of the pull request.
func (c *Client) FetchCommits(ctx context.Context, prID int) ([]Commit, error) {
	var list struct {
		Value []Commit `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, c.prPath(prID)+"/commits", nil, &list); err != nil {
		return nil, fmt.Errorf("fetch commits for pull request %d: %w", prID, err)
	}
	return list.Value, nil
}

// FetchThreads retrieves the comment threads of the pull request.
func (c *Client) FetchThreads(ctx context.Context, prID int) ([]Thread, error) {
	var list struct {
		Value []Thread `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, c.prPath(prID)+"/threads", nil, &list); err != nil {
		return nil, fmt.Errorf("fetch threads for pull request %d: %w", prID, err)
	}
	return list.Value, nil
}

// createComment is the wire form of a comment in thread create/reply calls.
// CommentType 1 is "text".
type createComment struct {
	ParentCommentID int    `json:"parentCommentId"`
	Content         string `json:"content"`
	CommentType     int    `json:"commentType"`
}

// CreateThread opens a new comment thread on the pull request with the given
// initial content and status.
func (c *Client) CreateThread(ctx context.Context, prID int, content string, status ThreadStatus) (*Thread, error) {
	body := struct {
		Comments []createComment `json:"comments"`
		Status   ThreadStatus    `json:"status"`
	}{
		Comments: []createComment{{ParentCommentID: 0, Content: content, CommentType: 1}},
		Status:   status,
	}
	var thread Thread
	if err := c.do(ctx, http.MethodPost, c.prPath(prID)+"/threads", body, &thread); err != nil {
		return nil, fmt.Errorf("create thread on pull request %d: %w", prID, err)
	}
	return &thread, nil
}

// ReplyToThread appends a reply to an existing thread.
func (c *Client) ReplyToThread(ctx context.Context, prID, threadID int, content string) (*Comment, error) {
	body := createComment{ParentCommentID: 1, Content: content, CommentType: 1}
	path := fmt.Sprintf("%s/threads/%d/comments", c.prPath(prID), threadID)
	var comment Comment
	if err := c.do(ctx, http.MethodPost, path, body, &comment); err != nil {
		return nil, fmt.Errorf("reply to thread %d on pull request %d: %w", threadID, prID, err)
	}
	return &comment, nil
}

func (c *Client) prPath(prID int) string {
	return fmt.Sprintf("%s/%s/_apis/git/repositories/%s/pullRequests/%d",
		c.baseURL, url.PathEscape(c.project), url.PathEscape(c.repo), prID)
}

func (c *Client) do(ctx context.Context, method, rawURL string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	full := rawURL + "?api-version=" + apiVersion
	req, err := http.NewRequestWithContext(ctx, method, full, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.cred.header())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.logger != nil {
		c.logger.Debug("azure devops request", "method", method, "url", full)
	}

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("call azure devops: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := classifyStatus(resp.StatusCode, respBody); err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func classifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w (HTTP 401): verify the personal access token is valid, not expired, and carries Code (Read & Write) scope", ErrUnauthorized)
	case status == http.StatusNonAuthoritativeInfo:
		// A rejected PAT makes the service answer 203 with a sign-in page
		// instead of a plain 401.
		return fmt.Errorf("%w (HTTP 203): the service returned a sign-in page; verify the personal access token", ErrUnauthorized)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w (HTTP 404): verify organization, project, repository, and pull request id", ErrNotFound)
	case status < 200 || status >= 300:
		return fmt.Errorf("azure devops returned HTTP %d: %s", status, strings.TrimSpace(string(body)))
	default:
		return nil
	}
}
