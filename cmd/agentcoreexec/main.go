// Package main provides the CLI entry point for agentcoreexec, a
// single-conversation runner over the Agent Session Engine.
//
// # Basic Usage
//
// Run one prompt to completion, streaming events to stdout:
//
//	agentcoreexec exec --prompt "list the files in this directory"
//
// Probe a sandbox tier against a single command, independent of a session:
//
//	agentcoreexec debug-sandbox --mode workspace_write -- ls -la
//
// # Environment Variables
//
//   - OPENAGENTS_HOME: overrides the session home directory (rollout files)
//   - ANTHROPIC_API_KEY, OPENAI_API_KEY: model provider credentials
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached,
// separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agentcoreexec",
		Short: "agentcoreexec - single-conversation agent session runner",
		Long: `agentcoreexec wires one Session per invocation: a Conversation, a
Model Stream Client, a Tool Dispatcher, an Event Bus with rollout
persistence, a Turn Driver, and a Runtime Projector.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildExecCmd(),
		buildDebugSandboxCmd(),
	)
	return rootCmd
}
