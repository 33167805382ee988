// Package review orchestrates the end-to-end pull request review: host
// checks, author gate, tool provisioning, context fetch, prompt assembly,
// and the bounded Copilot invocation, in that order. Every failure is
// terminal; nothing retries.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/paulczy/ado-copilot-code-review/internal/azdo"
	"github.com/paulczy/ado-copilot-code-review/internal/config"
	"github.com/paulczy/ado-copilot-code-review/internal/prompt"
	"github.com/paulczy/ado-copilot-code-review/internal/report"
)

// Kind is the terminal state of one review run.
type Kind int

const (
	// KindSucceeded means the review ran to completion.
	KindSucceeded Kind = iota
	// KindSkipped means the author gate ended the run early; the task still
	// reports success.
	KindSkipped
	// KindFailed means a pipeline step failed.
	KindFailed
)

// String returns the result name used in logs and the completion message.
func (k Kind) String() string {
	switch k {
	case KindSucceeded:
		return "Succeeded"
	case KindSkipped:
		return "Skipped"
	case KindFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Outcome is the result of a run: the kind, a skip reason for KindSkipped,
// and the failure for KindFailed.
type Outcome struct {
	Kind    Kind
	Message string
	Err     error
}

// Preflight verifies the agent host before anything else runs.
type Preflight interface {
	Check(ctx context.Context) error
}

// Tool provisions and invokes the review CLI.
type Tool interface {
	EnsureInstalled(ctx context.Context) error
	Review(ctx context.Context, promptFile, model string, limit time.Duration) error
}

// Fetcher gathers the pull-request snapshot from Azure DevOps.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, prID int) (*azdo.Snapshot, error)
}

// Pipeline runs the review steps in order against one pull request.
type Pipeline struct {
	logger    *slog.Logger
	cfg       *config.Config
	preflight Preflight
	tool      Tool
	fetcher   Fetcher

	// workDir receives the context report files; the prompt file goes to
	// cfg.TempDir.
	workDir string

	writeReports   func(dir string, snap *azdo.Snapshot) (string, string, error)
	assemblePrompt func(inline, file string) (string, error)
	writePrompt    func(dir, content string) (string, error)
}

// New assembles the production pipeline writing context files into the
// current working directory.
func New(logger *slog.Logger, cfg *config.Config, pre Preflight, tool Tool, fetcher Fetcher) *Pipeline {
	return &Pipeline{
		logger:         logger,
		cfg:            cfg,
		preflight:      pre,
		tool:           tool,
		fetcher:        fetcher,
		workDir:        ".",
		writeReports:   report.WriteFiles,
		assemblePrompt: prompt.Assemble,
		writePrompt:    prompt.WriteFile,
	}
}

// Run executes the pipeline and returns the terminal outcome.
func (p *Pipeline) Run(ctx context.Context) Outcome {
	if err := p.preflight.Check(ctx); err != nil {
		return p.fail(err)
	}

	if reason, skip := p.authorGate(); skip {
		p.logger.Info("skipping review", "reason", reason)
		return Outcome{Kind: KindSkipped, Message: reason}
	}

	if err := p.tool.EnsureInstalled(ctx); err != nil {
		return p.fail(err)
	}

	p.logger.Info("fetching pull request context",
		"organization", p.cfg.Organization,
		"project", p.cfg.Project,
		"repository", p.cfg.Repository,
		"pullRequest", p.cfg.PullRequestID,
	)
	snap, err := p.fetcher.FetchSnapshot(ctx, p.cfg.PullRequestID)
	if err != nil {
		return p.fail(err)
	}

	detailsPath, changesPath, err := p.writeReports(p.workDir, snap)
	if err != nil {
		return p.fail(err)
	}
	p.logger.Info("wrote review context", "details", detailsPath, "changes", changesPath)

	text, err := p.assemblePrompt(p.cfg.Prompt, p.cfg.PromptFile)
	if err != nil {
		return p.fail(err)
	}
	promptPath, err := p.writePrompt(p.cfg.TempDir, text)
	if err != nil {
		return p.fail(err)
	}

	if err := p.tool.Review(ctx, promptPath, p.cfg.Model, p.cfg.Timeout); err != nil {
		return p.fail(err)
	}

	return Outcome{Kind: KindSucceeded}
}

// authorGate checks the build's requesting author against the allow-list.
// An empty allow-list admits everyone; membership is case-insensitive.
func (p *Pipeline) authorGate() (string, bool) {
	if len(p.cfg.AllowedAuthors) == 0 {
		return "", false
	}

	email := strings.TrimSpace(p.cfg.RequestedForEmail)
	for _, allowed := range p.cfg.AllowedAuthors {
		if strings.EqualFold(strings.TrimSpace(allowed), email) {
			return "", false
		}
	}

	if email == "" {
		return "build author is unknown (BUILD_REQUESTEDFOREMAIL is empty) and an allow-list is configured", true
	}
	return fmt.Sprintf("build author %q is not on the allow-list", email), true
}

func (p *Pipeline) fail(err error) Outcome {
	p.logger.Error("review run failed", "error", err)
	return Outcome{Kind: KindFailed, Err: err}
}
