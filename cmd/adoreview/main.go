package main

import (
	"os"

	"github.com/paulczy/ado-copilot-code-review/internal/cli"
	"github.com/paulczy/ado-copilot-code-review/internal/logging"
)

// main is the entry point for the adoreview binary.
func main() {
	logger := logging.NewLogger(os.Stderr, logging.LevelInfo)
	if err := cli.Execute(os.Args[1:], logger); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
