// Package copilot provisions and invokes the GitHub Copilot CLI on the
// build agent.
package copilot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/paulczy/ado-copilot-code-review/internal/execx"
)

const (
	binaryName = "copilot"
	npmPackage = "@github/copilot"
)

// modelNamePattern bounds what the review command line will carry; the model
// selector is spliced into a bash command.
var modelNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Runner is the subprocess surface the tool needs. *execx.Runner satisfies
// it.
type Runner interface {
	Probe(ctx context.Context, name string, args ...string) error
	Run(ctx context.Context, name string, args ...string) error
	RunBounded(ctx context.Context, limit time.Duration, name string, args ...string) error
}

// Tool manages the Copilot CLI: presence check, installation, and the
// bounded review invocation.
type Tool struct {
	logger *slog.Logger
	runner Runner
}

// New constructs a Tool.
func New(logger *slog.Logger, runner Runner) *Tool {
	return &Tool{logger: logger, runner: runner}
}

// EnsureInstalled probes the CLI and installs it globally through npm when
// the probe fails. A second run with the CLI already present does nothing.
func (t *Tool) EnsureInstalled(ctx context.Context) error {
	if err := t.runner.Probe(ctx, binaryName, "--version"); err == nil {
		t.logger.Info("copilot cli already installed")
		return nil
	}

	t.logger.Info("installing copilot cli", "package", npmPackage)
	if err := t.runner.Run(ctx, "npm", "install", "-g", npmPackage); err != nil {
		return fmt.Errorf("install copilot cli: %w", err)
	}
	t.logger.Info("copilot cli installed")
	return nil
}

// Review runs the CLI against the assembled prompt file, bounded by limit.
// A timer win surfaces as an execx.ErrTimedOut-wrapped error; a non-zero
// exit carries the exit code in the message.
func (t *Tool) Review(ctx context.Context, promptFile, model string, limit time.Duration) error {
	command, err := reviewCommand(promptFile, model)
	if err != nil {
		return err
	}

	t.logger.Info("starting copilot review", "model", valueOrDefault(model), "timeout", limit.String())
	err = t.runner.RunBounded(ctx, limit, "bash", "-c", command)
	switch {
	case err == nil:
		t.logger.Info("copilot review finished")
		return nil
	case errors.Is(err, execx.ErrTimedOut):
		return fmt.Errorf("copilot review timed out: %w", err)
	default:
		if code := execx.ExitCode(err); code > 0 {
			return fmt.Errorf("copilot review failed with exit code %d: %w", code, err)
		}
		return fmt.Errorf("copilot review failed: %w", err)
	}
}

// reviewCommand assembles the single bash -c argument. The prompt itself
// stays in the file and reaches the CLI via command substitution, so prompt
// content never appears on the command line.
func reviewCommand(promptFile, model string) (string, error) {
	if strings.TrimSpace(promptFile) == "" {
		return "", fmt.Errorf("prompt file path is empty")
	}
	if model != "" && !modelNamePattern.MatchString(model) {
		return "", fmt.Errorf("model name %q contains characters the shell invocation cannot carry", model)
	}

	var b strings.Builder
	b.WriteString(binaryName + " --log-level all")
	if model != "" {
		b.WriteString(" --model " + model)
	}
	fmt.Fprintf(&b, ` -p "$(cat '%s')" --allow-all-tools --deny-tool 'shell(git push)'`, promptFile)
	return b.String(), nil
}

func valueOrDefault(model string) string {
	if model == "" {
		return "(cli default)"
	}
	return model
}
