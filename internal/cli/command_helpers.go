package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paulczy/ado-copilot-code-review/internal/azdo"
	"github.com/paulczy/ado-copilot-code-review/internal/config"
	"github.com/paulczy/ado-copilot-code-review/internal/env"
)

// snapshotVars captures the process environment, layering an optional dotenv
// file underneath so real pipeline variables always win.
func snapshotVars(opts *Options) (env.Vars, error) {
	osVars := env.FromOS()
	if strings.TrimSpace(opts.EnvFile) == "" {
		return osVars, nil
	}
	fileVars, err := env.LoadEnvFile(opts.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("load env file %q: %w", opts.EnvFile, err)
	}
	return env.Merge(fileVars, osVars), nil
}

// loadDefaultsFile reads the optional defaults file. A path set explicitly
// via --config must exist; the built-in default is allowed to be absent.
func loadDefaultsFile(cmd *cobra.Command, opts *Options) (*config.FileConfig, error) {
	if f := cmd.Flag("config"); f != nil && f.Changed {
		return config.LoadFile(opts.ConfigPath)
	}
	return config.LoadFileIfPresent(opts.ConfigPath)
}

// azdoCredential maps the resolved task credential onto the auth scheme the
// Azure DevOps client expects: OAuth tokens travel as Bearer, personal
// access tokens as Basic.
func azdoCredential(cred config.Credential) azdo.Credential {
	if cred.Bearer {
		return azdo.Bearer(cred.Token)
	}
	return azdo.PAT(cred.Token)
}

// newAzdoClient builds the REST client for the resolved coordinates.
func newAzdoClient(logger *slog.Logger, cfg *config.Config) (*azdo.Client, error) {
	return azdo.NewClient(logger, cfg.Organization, cfg.Project, cfg.Repository, azdoCredential(cfg.Credential))
}
