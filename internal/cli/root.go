// Package cli defines the command-line interface for adoreview.
package cli

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paulczy/ado-copilot-code-review/internal/config"
	"github.com/paulczy/ado-copilot-code-review/internal/logging"
)

// Options stores global CLI options shared between commands.
type Options struct {
	ConfigPath string
	EnvFile    string
	LogLevel   logging.Level
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
func Execute(args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}

	rootOpts := &Options{
		ConfigPath: config.DefaultConfigFile,
		LogLevel:   logging.LevelInfo,
	}

	rootCmd := newRootCommand(rootOpts, logger)
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}

// newRootCommand constructs the root cobra.Command with global flags and subcommands.
func newRootCommand(opts *Options, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adoreview",
		Short: "adoreview runs a Copilot CLI code review against an Azure DevOps pull request",
		Long:  "adoreview is an Azure DevOps pipeline task that gathers pull request context, assembles review instructions, and drives the GitHub Copilot CLI to post review feedback back onto the pull request.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			levelName := cmd.Flag("log-level").Value.String()
			if !cmd.Flag("log-level").Changed {
				if v := strings.TrimSpace(os.Getenv("ADOREVIEW_LOG_LEVEL")); v != "" {
					levelName = v
				}
			}
			level := logging.ParseLevel(levelName)
			opts.LogLevel = level
			logger = logging.NewLogger(os.Stderr, level)
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, logger))
			logger.Debug("logger initialized", "level", level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", config.DefaultConfigFile, "Path to the defaults file with review settings")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "Optional dotenv file layered under the process environment")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newReviewCommand(opts),
		newCommentCommand(opts),
		newDoctorCommand(opts),
	)

	return cmd
}

// loggerKey is a private context key used to store a logger in command contexts.
type loggerKey struct{}

// LoggerFromContext extracts a logger from the context or falls back to a default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.NewLogger(os.Stderr, logging.LevelInfo)
}
