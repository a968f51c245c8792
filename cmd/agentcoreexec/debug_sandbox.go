package main

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/openagentsinc/agentcore/internal/tooldispatch/sandbox"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// buildDebugSandboxCmd runs one command through a chosen sandbox tier,
// independent of a Session, for operators diagnosing sandbox behavior —
// the Go-native equivalent of the original CLI's debug seatbelt/landlock
// probe command.
func buildDebugSandboxCmd() *cobra.Command {
	var (
		mode    string
		cwd     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "debug-sandbox -- <command> [args...]",
		Short: "Run a single command under a sandbox tier and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sandboxMode := protocol.SandboxMode(mode)
			runner := sandbox.Dispatch(sandboxMode, probeFirecracker())

			result, err := runner.Run(cmd.Context(), args, cwd, os.Environ(), timeout)
			if err != nil {
				return fmt.Errorf("run under sandbox: %w", err)
			}

			fmt.Printf("exit_code=%d timed_out=%v\n", result.ExitCode, result.TimedOut)
			if result.Stdout != "" {
				fmt.Println("--- stdout ---")
				fmt.Print(result.Stdout)
			}
			if result.Stderr != "" {
				fmt.Println("--- stderr ---")
				fmt.Print(result.Stderr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(protocol.SandboxWorkspaceWrite), "sandbox mode (read_only|workspace_write|full_access)")
	cmd.Flags().StringVar(&cwd, "cwd", "", "working directory for the command")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "command timeout")
	return cmd
}

// probeFirecracker reports whether a firecracker binary is reachable on
// PATH, mirroring internal/session's own probe.
func probeFirecracker() bool {
	_, err := exec.LookPath("firecracker")
	return err == nil
}
