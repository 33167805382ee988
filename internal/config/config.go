// Package config resolves the task configuration once at startup, from
// explicit flags, INPUT_* task inputs, ambient pipeline variables, an
// optional YAML defaults file, and built-in defaults, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultTimeoutMinutes bounds the review subprocess when no input or
	// defaults file sets a timeout.
	DefaultTimeoutMinutes = 15

	// DefaultConfigFile is the defaults file probed when --config is not set.
	DefaultConfigFile = ".adoreview.yml"
)

// Credential couples the resolved token with how it authenticates: basic
// auth for personal access tokens, bearer for System.AccessToken.
type Credential struct {
	Token  string
	Bearer bool
}

// IsZero reports whether no token was resolved.
func (c Credential) IsZero() bool {
	return c.Token == ""
}

// Config is the fully resolved task configuration. It is immutable after
// Resolve returns.
type Config struct {
	// Organization is the Azure DevOps organization name.
	Organization string
	// Project is the team project name.
	Project string
	// Repository is the repository name within the project.
	Repository string
	// PullRequestID is the pull request under review.
	PullRequestID int
	// Credential authenticates the REST calls.
	Credential Credential
	// Model is the Copilot model selector; empty keeps the CLI default.
	Model string
	// Timeout is the wall-clock bound on the review subprocess.
	Timeout time.Duration
	// Prompt is the inline reviewer focus text, when supplied.
	Prompt string
	// PromptFile is the reviewer focus file path, when supplied.
	PromptFile string
	// AllowedAuthors is the optional author allow-list for the gate.
	AllowedAuthors []string
	// RequestedForEmail is the build-requesting identity the gate checks.
	RequestedForEmail string
	// TempDir is the agent temp directory the prompt file lands in.
	TempDir string
	// Sources records which resolver supplied each field, for debug logs.
	Sources map[string]string
}

// FileConfig is the optional YAML defaults file. It supplies behavior
// defaults only; identifiers and credentials always come from inputs or
// ambient variables.
type FileConfig struct {
	// Model is the default Copilot model selector.
	Model string `yaml:"model"`
	// TimeoutMinutes is the default review timeout in minutes.
	TimeoutMinutes int `yaml:"timeoutMinutes"`
	// PromptFile is the default reviewer focus file path.
	PromptFile string `yaml:"promptFile"`
	// AllowedAuthors is the default author allow-list.
	AllowedAuthors []string `yaml:"allowedAuthors"`
}

// LoadFile reads and parses a YAML defaults file.
func LoadFile(path string) (*FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	if cfg.TimeoutMinutes < 0 {
		return nil, fmt.Errorf("config file %q: timeoutMinutes must not be negative", path)
	}
	return &cfg, nil
}

// LoadFileIfPresent loads path when it exists and returns (nil, nil) when it
// does not, for probing the default config location.
func LoadFileIfPresent(path string) (*FileConfig, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("probe config file %q: %w", path, err)
	}
	return LoadFile(path)
}
