package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulczy/ado-copilot-code-review/internal/azdo"
	"github.com/paulczy/ado-copilot-code-review/internal/config"
)

func TestRootCommandLayout(t *testing.T) {
	opts := &Options{ConfigPath: config.DefaultConfigFile}
	root := newRootCommand(opts, nil)

	names := make([]string, 0, len(root.Commands()))
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "review")
	assert.Contains(t, names, "comment")
	assert.Contains(t, names, "doctor")

	require.NotNil(t, root.PersistentFlags().Lookup("config"))
	require.NotNil(t, root.PersistentFlags().Lookup("env-file"))
	require.NotNil(t, root.PersistentFlags().Lookup("log-level"))
}

func TestExecuteHelp(t *testing.T) {
	require.NoError(t, Execute([]string{"--help"}, nil))
}

func TestExecuteUnknownCommand(t *testing.T) {
	require.Error(t, Execute([]string{"bogus"}, nil))
}

func TestSnapshotVars(t *testing.T) {
	t.Run("without env file the process environment is returned", func(t *testing.T) {
		t.Setenv("ADOREVIEW_TEST_ONLY", "from-os")

		vars, err := snapshotVars(&Options{})
		require.NoError(t, err)
		assert.Equal(t, "from-os", vars.Get("ADOREVIEW_TEST_ONLY"))
	})

	t.Run("process variables win over the env file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pipeline.env")
		require.NoError(t, os.WriteFile(path, []byte("ADOREVIEW_TEST_ONLY=from-file\nADOREVIEW_FILE_ONLY=kept\n"), 0o600))
		t.Setenv("ADOREVIEW_TEST_ONLY", "from-os")

		vars, err := snapshotVars(&Options{EnvFile: path})
		require.NoError(t, err)
		assert.Equal(t, "from-os", vars.Get("ADOREVIEW_TEST_ONLY"))
		assert.Equal(t, "kept", vars.Get("ADOREVIEW_FILE_ONLY"))
	})

	t.Run("missing env file is an error", func(t *testing.T) {
		_, err := snapshotVars(&Options{EnvFile: filepath.Join(t.TempDir(), "absent.env")})
		require.ErrorContains(t, err, "load env file")
	})
}

func newConfigFlagCommand(defaultPath string) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringP("config", "c", defaultPath, "")
	return cmd
}

func TestLoadDefaultsFile(t *testing.T) {
	t.Run("absent default path resolves to no file config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), config.DefaultConfigFile)
		cmd := newConfigFlagCommand(path)

		fileCfg, err := loadDefaultsFile(cmd, &Options{ConfigPath: path})
		require.NoError(t, err)
		assert.Nil(t, fileCfg)
	})

	t.Run("explicit --config must exist", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yml")
		cmd := newConfigFlagCommand(config.DefaultConfigFile)
		require.NoError(t, cmd.Flags().Set("config", path))

		_, err := loadDefaultsFile(cmd, &Options{ConfigPath: path})
		require.Error(t, err)
	})

	t.Run("explicit --config is parsed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yml")
		require.NoError(t, os.WriteFile(path, []byte("model: claude-sonnet-4\ntimeoutMinutes: 30\n"), 0o600))
		cmd := newConfigFlagCommand(config.DefaultConfigFile)
		require.NoError(t, cmd.Flags().Set("config", path))

		fileCfg, err := loadDefaultsFile(cmd, &Options{ConfigPath: path})
		require.NoError(t, err)
		require.NotNil(t, fileCfg)
		assert.Equal(t, "claude-sonnet-4", fileCfg.Model)
		assert.Equal(t, 30, fileCfg.TimeoutMinutes)
	})
}

func TestAzdoCredential(t *testing.T) {
	assert.Equal(t, azdo.PAT("secret"), azdoCredential(config.Credential{Token: "secret"}))
	assert.Equal(t, azdo.Bearer("oauth"), azdoCredential(config.Credential{Token: "oauth", Bearer: true}))
}

func TestCommentContent(t *testing.T) {
	t.Run("inline message wins", func(t *testing.T) {
		content, err := commentContent("looks good", "ignored.txt")
		require.NoError(t, err)
		assert.Equal(t, "looks good", content)
	})

	t.Run("falls back to the message file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "message.md")
		require.NoError(t, os.WriteFile(path, []byte("from the file\n"), 0o600))

		content, err := commentContent("", path)
		require.NoError(t, err)
		assert.Equal(t, "from the file", content)
	})

	t.Run("empty message and file is an error", func(t *testing.T) {
		_, err := commentContent("", "")
		require.ErrorContains(t, err, "set --message or --message-file")
	})

	t.Run("blank message file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "message.md")
		require.NoError(t, os.WriteFile(path, []byte("   \n"), 0o600))

		_, err := commentContent("", path)
		require.ErrorContains(t, err, "is empty")
	})
}
