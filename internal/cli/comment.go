package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paulczy/ado-copilot-code-review/internal/azdo"
	"github.com/paulczy/ado-copilot-code-review/internal/config"
)

// newCommentCommand constructs the command that posts a standalone comment
// onto the pull request, either opening a new thread or replying to an
// existing one.
func newCommentCommand(opts *Options) *cobra.Command {
	var (
		token         string
		organization  string
		project       string
		repository    string
		pullRequestID int
		threadID      int
		statusName    string
		message       string
		messageFile   string
	)

	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Post a comment on the pull request",
		Long:  "comment opens a new thread on the pull request, or replies to an existing thread when --thread is given. Identifiers and credentials missing from the flags are resolved the same way the review command resolves them.",
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

			cfg, err := config.Resolve(vars, flags, fileCfg)
			if err != nil {
				return err
			}

			content, err := commentContent(message, messageFile)
			if err != nil {
				return err
			}

			client, err := newAzdoClient(logger, cfg)
			if err != nil {
				return err
			}

			if threadID > 0 {
				if cmd.Flags().Changed("status") {
					return errors.New("--status applies to new threads; replies keep the thread status")
				}
				comment, err := client.ReplyToThread(cmd.Context(), cfg.PullRequestID, threadID, content)
				if err != nil {
					return err
				}
				logger.Info("reply posted", "pullRequest", cfg.PullRequestID, "thread", threadID, "comment", comment.ID)
				return nil
			}

			status := azdo.StatusActive
			if cmd.Flags().Changed("status") {
				status, err = azdo.ParseThreadStatus(statusName)
				if err != nil {
					return err
				}
			}
			thread, err := client.CreateThread(cmd.Context(), cfg.PullRequestID, content, status)
			if err != nil {
				return err
			}
			logger.Info("thread created", "pullRequest", cfg.PullRequestID, "thread", thread.ID, "status", status)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Azure DevOps token; defaults to the azureDevOpsToken input or SYSTEM_ACCESSTOKEN")
	cmd.Flags().StringVar(&organization, "organization", "", "Azure DevOps organization; defaults to the organization input or SYSTEM_COLLECTIONURI")
	cmd.Flags().StringVar(&project, "project", "", "Project name; defaults to the project input or SYSTEM_TEAMPROJECT")
	cmd.Flags().StringVar(&repository, "repository", "", "Repository name; defaults to the repository input or BUILD_REPOSITORY_NAME")
	cmd.Flags().IntVar(&pullRequestID, "pull-request", 0, "Pull request id; defaults to the pullRequestId input or SYSTEM_PULLREQUEST_PULLREQUESTID")
	cmd.Flags().IntVar(&threadID, "thread", 0, "Existing thread id to reply to; omit to open a new thread")
	cmd.Flags().StringVar(&statusName, "status", "", "Status for a new thread (active, fixed, wontFix, closed, pending); default active")
	cmd.Flags().StringVar(&message, "message", "", "Comment text")
	cmd.Flags().StringVar(&messageFile, "message-file", "", "Path to a file with the comment text")

	return cmd
}

// commentContent resolves the comment text from the flag value or, when that
// is empty, from the message file.
func commentContent(message, messageFile string) (string, error) {
	if strings.TrimSpace(message) != "" {
		return message, nil
	}
	if strings.TrimSpace(messageFile) == "" {
		return "", errors.New("comment message is empty: set --message or --message-file")
	}
	raw, err := os.ReadFile(messageFile)
	if err != nil {
		return "", fmt.Errorf("read message file: %w", err)
	}
	content := strings.TrimSpace(string(raw))
	if content == "" {
		return "", fmt.Errorf("message file %q is empty", messageFile)
	}
	return content, nil
}
