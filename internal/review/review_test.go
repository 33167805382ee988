package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulczy/ado-copilot-code-review/internal/azdo"
	"github.com/paulczy/ado-copilot-code-review/internal/config"
	"github.com/paulczy/ado-copilot-code-review/internal/execx"
)

type fakePreflight struct {
	err    error
	checks int
}

func (f *fakePreflight) Check(context.Context) error {
	f.checks++
	return f.err
}

type fakeTool struct {
	installErr error
	reviewErr  error

	installs   int
	reviews    int
	promptFile string
	model      string
	limit      time.Duration
}

func (f *fakeTool) EnsureInstalled(context.Context) error {
	f.installs++
	return f.installErr
}

func (f *fakeTool) Review(_ context.Context, promptFile, model string, limit time.Duration) error {
	f.reviews++
	f.promptFile = promptFile
	f.model = model
	f.limit = limit
	return f.reviewErr
}

type fakeFetcher struct {
	snap    *azdo.Snapshot
	err     error
	fetches int
	lastPR  int
}

func (f *fakeFetcher) FetchSnapshot(_ context.Context, prID int) (*azdo.Snapshot, error) {
	f.fetches++
	f.lastPR = prID
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func minimalSnapshot() *azdo.Snapshot {
	return &azdo.Snapshot{
		PR: &azdo.PullRequest{
			PullRequestID: 17,
			Title:         "Add retry to uploader",
			Status:        "active",
			CreatedBy:     azdo.IdentityRef{DisplayName: "Jamie Doe", UniqueName: "jamie@fabrikam.example"},
			SourceRefName: "refs/heads/feature/retry",
			TargetRefName: "refs/heads/main",
		},
		Iteration: azdo.Iteration{ID: 3},
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Organization:      "fabrikam",
		Project:           "web",
		Repository:        "app",
		PullRequestID:     17,
		Credential:        config.Credential{Token: "job-token", Bearer: true},
		Model:             "claude-sonnet-4",
		Timeout:           10 * time.Minute,
		RequestedForEmail: "jamie@fabrikam.example",
		TempDir:           t.TempDir(),
		Sources:           map[string]string{},
	}
}

func newTestPipeline(t *testing.T, cfg *config.Config, pre *fakePreflight, tool *fakeTool, fetcher *fakeFetcher) *Pipeline {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := New(logger, cfg, pre, tool, fetcher)
	p.workDir = t.TempDir()
	return p
}

func TestRunHappyPath(t *testing.T) {
	cfg := testConfig(t)
	pre := &fakePreflight{}
	tool := &fakeTool{}
	fetcher := &fakeFetcher{snap: minimalSnapshot()}
	p := newTestPipeline(t, cfg, pre, tool, fetcher)

	outcome := p.Run(context.Background())

	require.Equal(t, KindSucceeded, outcome.Kind)
	assert.NoError(t, outcome.Err)

	assert.Equal(t, 1, pre.checks)
	assert.Equal(t, 1, tool.installs)
	assert.Equal(t, 1, fetcher.fetches)
	assert.Equal(t, 17, fetcher.lastPR)
	assert.Equal(t, 1, tool.reviews)
	assert.Equal(t, "claude-sonnet-4", tool.model)
	assert.Equal(t, 10*time.Minute, tool.limit)

	// Context files land in the working directory before the tool runs.
	_, err := os.Stat(filepath.Join(p.workDir, "copilot-pr-details.md"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(p.workDir, "copilot-pr-changes.md"))
	assert.NoError(t, err)

	// The prompt file lands in the agent temp directory.
	assert.Equal(t, cfg.TempDir, filepath.Dir(tool.promptFile))
	data, err := os.ReadFile(tool.promptFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "copilot-pr-details.md")
}

func TestRunPreflightFailureStopsEverything(t *testing.T) {
	cfg := testConfig(t)
	pre := &fakePreflight{err: errors.New("bash is not available on this agent")}
	tool := &fakeTool{}
	fetcher := &fakeFetcher{snap: minimalSnapshot()}
	p := newTestPipeline(t, cfg, pre, tool, fetcher)

	outcome := p.Run(context.Background())

	assert.Equal(t, KindFailed, outcome.Kind)
	assert.ErrorContains(t, outcome.Err, "bash is not available")
	assert.Zero(t, tool.installs)
	assert.Zero(t, fetcher.fetches)
}

func TestRunAuthorGateSkipsBeforeAnyNetworkOrInstall(t *testing.T) {
	cfg := testConfig(t)
	cfg.AllowedAuthors = []string{"sam@fabrikam.example"}
	pre := &fakePreflight{}
	tool := &fakeTool{}
	fetcher := &fakeFetcher{snap: minimalSnapshot()}
	p := newTestPipeline(t, cfg, pre, tool, fetcher)

	outcome := p.Run(context.Background())

	require.Equal(t, KindSkipped, outcome.Kind)
	assert.Contains(t, outcome.Message, "jamie@fabrikam.example")
	assert.Zero(t, tool.installs)
	assert.Zero(t, fetcher.fetches)
	assert.Zero(t, tool.reviews)
}

func TestRunAuthorGateMatchesCaseInsensitively(t *testing.T) {
	cfg := testConfig(t)
	cfg.AllowedAuthors = []string{"JAMIE@Fabrikam.Example"}
	pre := &fakePreflight{}
	tool := &fakeTool{}
	fetcher := &fakeFetcher{snap: minimalSnapshot()}
	p := newTestPipeline(t, cfg, pre, tool, fetcher)

	outcome := p.Run(context.Background())

	assert.Equal(t, KindSucceeded, outcome.Kind)
	assert.Equal(t, 1, tool.reviews)
}

func TestRunSkipsWhenAuthorUnknown(t *testing.T) {
	cfg := testConfig(t)
	cfg.AllowedAuthors = []string{"sam@fabrikam.example"}
	cfg.RequestedForEmail = ""
	p := newTestPipeline(t, cfg, &fakePreflight{}, &fakeTool{}, &fakeFetcher{snap: minimalSnapshot()})

	outcome := p.Run(context.Background())

	require.Equal(t, KindSkipped, outcome.Kind)
	assert.Contains(t, outcome.Message, "BUILD_REQUESTEDFOREMAIL")
}

func TestRunInstallFailure(t *testing.T) {
	cfg := testConfig(t)
	tool := &fakeTool{installErr: errors.New("install copilot cli: exit status 1")}
	fetcher := &fakeFetcher{snap: minimalSnapshot()}
	p := newTestPipeline(t, cfg, &fakePreflight{}, tool, fetcher)

	outcome := p.Run(context.Background())

	assert.Equal(t, KindFailed, outcome.Kind)
	assert.Zero(t, fetcher.fetches)
}

func TestRunFetchFailure(t *testing.T) {
	cfg := testConfig(t)
	tool := &fakeTool{}
	fetcher := &fakeFetcher{err: fmt.Errorf("fetch pull request 17: %w", azdo.ErrUnauthorized)}
	p := newTestPipeline(t, cfg, &fakePreflight{}, tool, fetcher)

	outcome := p.Run(context.Background())

	require.Equal(t, KindFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, azdo.ErrUnauthorized)
	assert.Zero(t, tool.reviews)
}

func TestRunRejectsQuotedPromptBeforeReviewSpawn(t *testing.T) {
	cfg := testConfig(t)
	cfg.Prompt = `focus on "clever" code`
	tool := &fakeTool{}
	p := newTestPipeline(t, cfg, &fakePreflight{}, tool, &fakeFetcher{snap: minimalSnapshot()})

	outcome := p.Run(context.Background())

	require.Equal(t, KindFailed, outcome.Kind)
	assert.ErrorContains(t, outcome.Err, "double-quote")
	assert.Zero(t, tool.reviews)
}

func TestRunTimeoutKindSurfaces(t *testing.T) {
	cfg := testConfig(t)
	tool := &fakeTool{reviewErr: fmt.Errorf("copilot review timed out: %w", execx.ErrTimedOut)}
	p := newTestPipeline(t, cfg, &fakePreflight{}, tool, &fakeFetcher{snap: minimalSnapshot()})

	outcome := p.Run(context.Background())

	require.Equal(t, KindFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, execx.ErrTimedOut)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "Succeeded", KindSucceeded.String())
	assert.Equal(t, "Skipped", KindSkipped.String())
	assert.Equal(t, "Failed", KindFailed.String())
}
