// Package preflight verifies the agent host before any network or tool
// work starts: a usable bash and, outside Windows, a recent Node.js.
package preflight

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
)

// minNodeMajor is the oldest Node.js major the Copilot CLI supports.
const minNodeMajor = 22

// Prober runs external binaries for the checks. *execx.Runner satisfies it.
type Prober interface {
	Probe(ctx context.Context, name string, args ...string) error
	Capture(ctx context.Context, name string, args ...string) (string, error)
}

// Checker runs the host checks in order and fails on the first problem.
type Checker struct {
	logger *slog.Logger
	prober Prober
	goos   string
}

// NewChecker builds a Checker for the current platform.
func NewChecker(logger *slog.Logger, prober Prober) *Checker {
	return &Checker{logger: logger, prober: prober, goos: runtime.GOOS}
}

// Check probes bash and, on non-Windows hosts, the Node.js version.
func (c *Checker) Check(ctx context.Context) error {
	if err := c.prober.Probe(ctx, "bash", "--version"); err != nil {
		return fmt.Errorf("bash is not available on this agent (install Git Bash or WSL on Windows pools, or use a Linux/macOS pool): %w", err)
	}
	c.logger.Info("preflight check ok", "tool", "bash")

	if c.goos == "windows" {
		c.logger.Debug("skipping node version check", "os", c.goos)
		return nil
	}

	out, err := c.prober.Capture(ctx, "node", "--version")
	if err != nil {
		return fmt.Errorf("node is not available on this agent (the Copilot CLI needs Node.js %d or newer): %w", minNodeMajor, err)
	}
	major, err := parseNodeMajor(out)
	if err != nil {
		return fmt.Errorf("unable to determine node version: %w", err)
	}
	if major < minNodeMajor {
		return fmt.Errorf("node %s is too old: the Copilot CLI needs Node.js %d or newer", strings.TrimSpace(out), minNodeMajor)
	}
	c.logger.Info("preflight check ok", "tool", "node", "version", strings.TrimSpace(out))

	return nil
}

// parseNodeMajor extracts the major version from `node --version` output,
// which looks like "v22.1.0".
func parseNodeMajor(out string) (int, error) {
	version := strings.TrimPrefix(strings.TrimSpace(out), "v")
	major, _, _ := strings.Cut(version, ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return 0, fmt.Errorf("unexpected node version output %q", strings.TrimSpace(out))
	}
	return n, nil
}
