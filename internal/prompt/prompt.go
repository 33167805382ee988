// Package prompt assembles the instruction text handed to the Copilot CLI:
// a fixed instruction template with a single reviewer-focus placeholder,
// filled from the task inputs or a bundled default.
package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// promptFileName is the transient file the merged prompt is written to.
const promptFileName = "copilot-review-prompt.txt"

//go:embed templates/instructions.md.tmpl
var instructionsTemplate string

//go:embed templates/default_focus.md
var defaultFocus string

// DefaultFocus returns the bundled review focus fragment used when the task
// supplies no custom prompt.
func DefaultFocus() string {
	return strings.TrimSpace(defaultFocus)
}

// ResolveFocus picks the reviewer focus text by precedence: inline input
// first, then a prompt file, then the bundled default. A prompt-file path
// that does not exist simply does not match, so resolution falls through
// to the default.
func ResolveFocus(inline, file string) (string, error) {
	if text := strings.TrimSpace(inline); text != "" {
		return text, nil
	}
	if path := strings.TrimSpace(file); path != "" {
		text, ok, err := readFocusFile(path)
		if err != nil {
			return "", err
		}
		if ok {
			return text, nil
		}
	}
	return DefaultFocus(), nil
}

// readFocusFile reads the focus fragment from path. ok is false when the
// path does not exist; an existing file must be a regular, non-empty file.
func readFocusFile(path string) (string, bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("prompt file %q: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", false, fmt.Errorf("prompt file %q is not a regular file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, fmt.Errorf("read prompt file %q: %w", path, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", false, fmt.Errorf("prompt file %q is empty", path)
	}
	return text, true, nil
}

// Validate rejects focus text the downstream invocation cannot carry: the
// prompt is spliced into a double-quoted bash command line, so a literal
// double quote would terminate it early.
func Validate(focus string) error {
	if strings.Contains(focus, `"`) {
		return fmt.Errorf("prompt contains a double-quote character, which breaks the bash wrapping of the copilot invocation; rephrase it without double quotes")
	}
	return nil
}

// Assemble resolves the focus text, validates it, and merges it into the
// instruction template.
func Assemble(inline, file string) (string, error) {
	focus, err := ResolveFocus(inline, file)
	if err != nil {
		return "", err
	}
	if err := Validate(focus); err != nil {
		return "", err
	}

	tmpl, err := template.New("instructions").Parse(instructionsTemplate)
	if err != nil {
		return "", fmt.Errorf("parse instruction template: %w", err)
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, struct{ Focus string }{Focus: focus}); err != nil {
		return "", fmt.Errorf("render instruction template: %w", err)
	}
	return out.String(), nil
}

// WriteFile persists the assembled prompt under dir (the agent temp
// directory; the OS temp directory when empty) readable only by the agent
// user, and returns the file path.
func WriteFile(dir, content string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, promptFileName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("write prompt file %q: %w", path, err)
	}
	return path, nil
}
