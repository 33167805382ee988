package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/paulczy/ado-copilot-code-review/internal/config"
	"github.com/paulczy/ado-copilot-code-review/internal/env"
	"github.com/paulczy/ado-copilot-code-review/internal/execx"
	"github.com/paulczy/ado-copilot-code-review/internal/preflight"
)

// newDoctorCommand creates the "doctor" subcommand that runs environment preflight checks.
func newDoctorCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run environment preflight checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			vars, err := snapshotVars(opts)
			if err != nil {
				return err
			}
			fileCfg, err := loadDefaultsFile(cmd, opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			if err := runDoctorChecks(ctx, logger, execx.NewRunner(logger), vars, fileCfg); err != nil {
				return err
			}

			logger.Info("doctor checks completed successfully")
			return nil
		},
	}

	return cmd
}

func runDoctorChecks(ctx context.Context, logger *slog.Logger, prober preflight.Prober, vars env.Vars, fileCfg *config.FileConfig) error {
	var fatalErrs []error

	if err := preflight.NewChecker(logger, prober).Check(ctx); err != nil {
		logger.Error("host preflight failed", "error", err)
		fatalErrs = append(fatalErrs, err)
	} else {
		logger.Info("host preflight ok")
	}

	if err := prober.Probe(ctx, "copilot", "--version"); err != nil {
		if npmErr := prober.Probe(ctx, "npm", "--version"); npmErr != nil {
			err := fmt.Errorf("neither the copilot cli nor npm is available, so the review cannot install the tool: %w", npmErr)
			logger.Error("copilot cli check failed", "error", err)
			fatalErrs = append(fatalErrs, err)
		} else {
			logger.Warn("copilot cli not installed; the review command will install it via npm")
		}
	} else {
		logger.Info("copilot cli ok")
	}

	if vars.Has("SYSTEM_ACCESSTOKEN") {
		logger.Info("job access token present")
	} else {
		logger.Warn("SYSTEM_ACCESSTOKEN is not mapped into the task environment; REST calls need the azureDevOpsToken input")
	}

	cfg, err := config.Resolve(vars, config.Flags{}, fileCfg)
	if err != nil {
		logger.Warn("task configuration incomplete; skipping the Azure DevOps access check", "error", err)
	} else if client, err := newAzdoClient(logger, cfg); err != nil {
		logger.Error("azure devops client check failed", "error", err)
		fatalErrs = append(fatalErrs, err)
	} else if _, err := client.FetchPullRequest(ctx, cfg.PullRequestID); err != nil {
		logger.Error("azure devops access check failed", "error", err)
		fatalErrs = append(fatalErrs, err)
	} else {
		logger.Info("azure devops access ok", "pullRequest", cfg.PullRequestID)
	}

	if len(fatalErrs) > 0 {
		return fmt.Errorf("doctor found %d fatal issue(s); see log for details", len(fatalErrs))
	}

	return nil
}
