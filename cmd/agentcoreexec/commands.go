package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openagentsinc/agentcore/internal/config"
	"github.com/openagentsinc/agentcore/internal/projector"
	"github.com/openagentsinc/agentcore/internal/projector/pgstore"
	"github.com/openagentsinc/agentcore/internal/projector/sqlitestore"
	"github.com/openagentsinc/agentcore/internal/session"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

func buildExecCmd() *cobra.Command {
	var (
		configPath string
		prompt     string
		model      string
		provider   string
		approval   string
		sandboxArg string
	)

	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Run one prompt to completion and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt == "" {
				return fmt.Errorf("--prompt is required")
			}

			flags := config.SessionFlags{}
			if model != "" {
				flags.Model = &model
			}
			if provider != "" {
				flags.ModelProvider = &provider
			}
			if approval != "" {
				p := protocol.ApprovalPolicy(approval)
				flags.ApprovalPolicy = &p
			}
			if sandboxArg != "" {
				m := protocol.SandboxMode(sandboxArg)
				flags.SandboxMode = &m
			}

			cfg, err := config.Load(config.Layers{UserConfigPath: configPath, Session: flags})
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			client, err := buildClient(cfg)
			if err != nil {
				return err
			}

			pipeline, err := buildPipeline(cfg)
			if err != nil {
				return err
			}

			sess, err := session.New("", session.Deps{
				Config:    cfg,
				Client:    client,
				Projector: pipeline,
				Logger:    slog.Default(),
			})
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}
			defer sess.Shutdown(context.Background())

			return runExecTurn(cmd.Context(), sess, prompt)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a user config file")
	cmd.Flags().StringVar(&prompt, "prompt", "", "the prompt to submit as the turn's UserInput")
	cmd.Flags().StringVar(&model, "model", "", "override the configured model")
	cmd.Flags().StringVar(&provider, "provider", "", "override the configured model provider")
	cmd.Flags().StringVar(&approval, "approval-policy", "", "override the approval policy (never|on_failure|untrusted|always)")
	cmd.Flags().StringVar(&sandboxArg, "sandbox", "", "override the sandbox mode (read_only|workspace_write|full_access)")
	return cmd
}

// runExecTurn submits prompt as the turn's only UserInput item and prints
// every Event received until TaskComplete, TurnAborted or Error, until the
// caller interrupts with SIGINT or SIGTERM, or until five minutes pass with
// no event — mirroring the teacher's service command's signal-aware run
// loop.
func runExecTurn(ctx context.Context, sess *session.Session, prompt string) error {
	sub, unsubscribe := sess.Events()
	defer unsubscribe()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	subID := "exec-1"
	if err := sess.Submit(sigCtx, protocol.Operation{
		Type:  protocol.OpUserInput,
		SubID: subID,
		Items: []protocol.ResponseItem{protocol.TextMessage(protocol.RoleUser, prompt)},
	}); err != nil {
		return fmt.Errorf("submit prompt: %w", err)
	}

	for {
		select {
		case ev := <-sub:
			printEvent(ev)
			switch ev.Msg.Type {
			case protocol.EventTaskComplete:
				return nil
			case protocol.EventTurnAborted:
				return fmt.Errorf("turn aborted: %s", ev.Msg.AbortReason)
			case protocol.EventError:
				if ev.Msg.Error != nil {
					return fmt.Errorf("turn error: %s", ev.Msg.Error.Message)
				}
				return fmt.Errorf("turn error")
			}
		case <-sigCtx.Done():
			_ = sess.Submit(context.Background(), protocol.Operation{Type: protocol.OpInterrupt})
			return fmt.Errorf("interrupted")
		case <-time.After(5 * time.Minute):
			return fmt.Errorf("timed out waiting for the turn to complete")
		}
	}
}

func printEvent(ev protocol.Event) {
	switch ev.Msg.Type {
	case protocol.EventAgentMessageDelta:
		fmt.Print(ev.Msg.Text)
	case protocol.EventTaskComplete:
		fmt.Println()
	case protocol.EventExecCommandBegin:
		if ev.Msg.Exec != nil {
			fmt.Fprintf(os.Stderr, "$ %v\n", ev.Msg.Exec.Command)
		}
	case protocol.EventError, protocol.EventStreamError, protocol.EventWarning:
		if ev.Msg.Error != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", ev.Msg.Error.Message)
		}
	}
}

// buildPipeline selects the Runtime Projector backend named by
// cfg.Storage.Backend, defaulting to an in-memory pipeline.
func buildPipeline(cfg *config.Config) (projector.Pipeline, error) {
	switch cfg.Storage.Backend {
	case "", "memory":
		return projector.NewInMemoryPipeline(slog.Default()), nil
	case "sqlite":
		return sqlitestore.Open(cfg.Storage.SQLitePath)
	case "postgres":
		return pgstore.OpenFromDSN(cfg.Storage.PostgresDSN, nil)
	default:
		return nil, fmt.Errorf("unrecognized storage backend %q", cfg.Storage.Backend)
	}
}
