package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	t.Run("parses a full defaults file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "adoreview.yml")
		content := `model: claude-sonnet-4
timeoutMinutes: 30
promptFile: .azuredevops/review-prompt.md
allowedAuthors:
  - jamie@fabrikam.example
  - sam@fabrikam.example
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "claude-sonnet-4", cfg.Model)
		assert.Equal(t, 30, cfg.TimeoutMinutes)
		assert.Equal(t, ".azuredevops/review-prompt.md", cfg.PromptFile)
		assert.Equal(t, []string{"jamie@fabrikam.example", "sam@fabrikam.example"}, cfg.AllowedAuthors)
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "adoreview.yml")
		require.NoError(t, os.WriteFile(path, []byte("model: [unterminated"), 0o644))

		_, err := LoadFile(path)
		assert.ErrorContains(t, err, "parse config file")
	})

	t.Run("rejects negative timeout", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "adoreview.yml")
		require.NoError(t, os.WriteFile(path, []byte("timeoutMinutes: -1"), 0o644))

		_, err := LoadFile(path)
		assert.ErrorContains(t, err, "timeoutMinutes must not be negative")
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yml"))
		assert.Error(t, err)
	})
}

func TestLoadFileIfPresent(t *testing.T) {
	t.Run("absent path yields nil without error", func(t *testing.T) {
		cfg, err := LoadFileIfPresent(filepath.Join(t.TempDir(), "absent.yml"))
		require.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("present path is loaded", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "adoreview.yml")
		require.NoError(t, os.WriteFile(path, []byte("model: gpt-5"), 0o644))

		cfg, err := LoadFileIfPresent(path)
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, "gpt-5", cfg.Model)
	})
}
