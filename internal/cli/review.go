package cli

import (
	"github.com/spf13/cobra"

	"github.com/paulczy/ado-copilot-code-review/internal/azpipeline"
	"github.com/paulczy/ado-copilot-code-review/internal/config"
	"github.com/paulczy/ado-copilot-code-review/internal/copilot"
	"github.com/paulczy/ado-copilot-code-review/internal/execx"
	"github.com/paulczy/ado-copilot-code-review/internal/preflight"
	"github.com/paulczy/ado-copilot-code-review/internal/review"
)

// reviewResultVariable is the output variable downstream pipeline steps can
// read to branch on the review result.
const reviewResultVariable = "reviewResult"

// newReviewCommand constructs the command that runs the full Copilot review
// against the pull request under validation.
func newReviewCommand(opts *Options) *cobra.Command {
	var (
		token          string
		organization   string
		project        string
		repository     string
		pullRequestID  int
		model          string
		timeoutMinutes int
		promptText     string
		promptFile     string
		allowedAuthors string
	)

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review the pull request with the Copilot CLI",
		Long:  "review gathers the pull request context from Azure DevOps, writes the context report files, assembles the review instructions, and runs the Copilot CLI against them. Identifiers and credentials missing from the flags are resolved from task inputs and pipeline variables.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			vars, err := snapshotVars(opts)
			if err != nil {
				return err
			}
			reporter := azpipeline.NewReporter(cmd.OutOrStdout(), azpipeline.OnAgent(vars))

			fileCfg, err := loadDefaultsFile(cmd, opts)
			if err != nil {
				return failTask(reporter, err)
			}

			flags := config.Flags{}
			if cmd.Flags().Changed("token") {
				flags.Token = token
			}
			if cmd.Flags().Changed("organization") {
				flags.Organization = organization
			}
			if cmd.Flags().Changed("project") {
				flags.Project = project
			}
			if cmd.Flags().Changed("repository") {
				flags.Repository = repository
			}
			if cmd.Flags().Changed("pull-request") {
				flags.PullRequestID = pullRequestID
			}
			if cmd.Flags().Changed("model") {
				flags.Model = model
			}
			if cmd.Flags().Changed("timeout-minutes") {
				flags.TimeoutMinutes = timeoutMinutes
			}
			if cmd.Flags().Changed("prompt") {
				flags.Prompt = promptText
			}
			if cmd.Flags().Changed("prompt-file") {
				flags.PromptFile = promptFile
			}
			if cmd.Flags().Changed("allowed-authors") {
				flags.AllowedAuthors = allowedAuthors
			}

			cfg, err := config.Resolve(vars, flags, fileCfg)
			if err != nil {
				return failTask(reporter, err)
			}
			logger.Debug("configuration resolved", "sources", cfg.Sources)

			client, err := newAzdoClient(logger, cfg)
			if err != nil {
				return failTask(reporter, err)
			}

			runner := execx.NewRunner(logger)
			pipeline := review.New(logger, cfg, preflight.NewChecker(logger, runner), copilot.New(logger, runner), client)

			outcome := pipeline.Run(cmd.Context())
			reporter.SetVariable(reviewResultVariable, outcome.Kind.String())

			switch outcome.Kind {
			case review.KindSkipped:
				reporter.Complete(azpipeline.ResultSucceeded, outcome.Message)
				return nil
			case review.KindFailed:
				reporter.LogIssue(azpipeline.IssueError, outcome.Err.Error())
				reporter.Complete(azpipeline.ResultFailed, "copilot review failed")
				return outcome.Err
			default:
				reporter.Complete(azpipeline.ResultSucceeded, "copilot review finished")
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Azure DevOps token; defaults to the azureDevOpsToken input or SYSTEM_ACCESSTOKEN")
	cmd.Flags().StringVar(&organization, "organization", "", "Azure DevOps organization; defaults to the organization input or SYSTEM_COLLECTIONURI")
	cmd.Flags().StringVar(&project, "project", "", "Project name; defaults to the project input or SYSTEM_TEAMPROJECT")
	cmd.Flags().StringVar(&repository, "repository", "", "Repository name; defaults to the repository input or BUILD_REPOSITORY_NAME")
	cmd.Flags().IntVar(&pullRequestID, "pull-request", 0, "Pull request id; defaults to the pullRequestId input or SYSTEM_PULLREQUEST_PULLREQUESTID")
	cmd.Flags().StringVar(&model, "model", "", "Copilot model name; empty keeps the CLI default")
	cmd.Flags().IntVar(&timeoutMinutes, "timeout-minutes", 0, "Review time limit in minutes")
	cmd.Flags().StringVar(&promptText, "prompt", "", "Inline review focus overriding the built-in instructions")
	cmd.Flags().StringVar(&promptFile, "prompt-file", "", "Path to a file with the review focus")
	cmd.Flags().StringVar(&allowedAuthors, "allowed-authors", "", "Comma-separated build author emails allowed to trigger the review")

	return cmd
}

// failTask reports a terminal error to the agent and returns it so the
// process exits non-zero.
func failTask(reporter *azpipeline.Reporter, err error) error {
	reporter.LogIssue(azpipeline.IssueError, err.Error())
	reporter.Complete(azpipeline.ResultFailed, "copilot review failed")
	return err
}
