// Package execx provides low-level execution of the external binaries the task
// depends on (bash, node, npm, copilot). Every subprocess the task spawns goes
// through a Runner so output handling and error wrapping stay in one place.
package execx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/paulczy/ado-copilot-code-review/internal/logging"
)

// ErrTimedOut reports that a bounded run hit its wall-clock limit before the
// subprocess finished.
var ErrTimedOut = errors.New("timed out")

// Runner executes external binaries with output forwarded to the task log.
type Runner struct {
	logger *slog.Logger
}

// NewRunner constructs a Runner bound to the provided logger.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes name with args, streaming stdout and stderr into the log.
func (r *Runner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out := logging.NewWriter(r.logger, name+" output")
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s failed: %w", name, strings.Join(args, " "), err)
	}
	return nil
}

// Probe executes name with args discarding all output. It returns the bare
// run error, so callers can use the exit status as a yes/no answer.
func (r *Runner) Probe(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Run()
}

// Capture executes name with args and returns trimmed stdout. Stderr is
// streamed into the log.
func (r *Runner) Capture(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = logging.NewWriter(r.logger, name+" output")

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s %s failed: %w", name, strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// RunBounded executes name with args and races completion against the given
// wall-clock limit. When the limit wins, the subprocess is sent SIGTERM and
// the call returns an ErrTimedOut-wrapped error immediately, without waiting
// for the process to confirm termination. There is no forced-kill escalation.
func (r *Runner) RunBounded(ctx context.Context, limit time.Duration, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	out := logging.NewWriter(r.logger, name+" output")
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s failed: %w", name, err)
		}
		return nil
	case <-timer.C:
		r.terminate(cmd, name)
		return fmt.Errorf("%s did not finish within %s: %w", name, limit, ErrTimedOut)
	case <-ctx.Done():
		r.terminate(cmd, name)
		return ctx.Err()
	}
}

// terminate asks the process to stop. Signal delivery failures (already
// exited, unsupported platform) are logged and otherwise ignored.
func (r *Runner) terminate(cmd *exec.Cmd, name string) {
	if cmd.Process == nil {
		return
	}
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && r.logger != nil {
		r.logger.Warn("failed to signal subprocess", "binary", name, "error", err)
	}
}

// ExitCode extracts the subprocess exit code from a (possibly wrapped) run
// error. It returns -1 when err carries no exit status.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
