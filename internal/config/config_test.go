package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

func TestDefault_FillsRecognizedOptions(t *testing.T) {
	cfg := Default()
	if cfg.ApprovalPolicy != protocol.ApprovalOnFailure {
		t.Errorf("ApprovalPolicy = %q, want %q", cfg.ApprovalPolicy, protocol.ApprovalOnFailure)
	}
	if cfg.SandboxMode != protocol.SandboxWorkspaceWrite {
		t.Errorf("SandboxMode = %q, want %q", cfg.SandboxMode, protocol.SandboxWorkspaceWrite)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Storage.Backend = %q, want memory", cfg.Storage.Backend)
	}
}

func TestToTurnContext_ProjectsRecognizedOptions(t *testing.T) {
	cfg := Default()
	cfg.Model = "gpt-5"
	cfg.Cwd = "/workspace"

	tc := cfg.ToTurnContext()
	if tc.Model != "gpt-5" || tc.Cwd != "/workspace" {
		t.Errorf("ToTurnContext() = %+v, want Model=gpt-5 Cwd=/workspace", tc)
	}
	if tc.ApprovalPolicy != cfg.ApprovalPolicy || tc.SandboxMode != cfg.SandboxMode {
		t.Errorf("ToTurnContext() did not carry ApprovalPolicy/SandboxMode: %+v", tc)
	}
}

func TestLoad_MergesLayersLowestToHighest(t *testing.T) {
	dir := t.TempDir()

	userPath := filepath.Join(dir, "user.yaml")
	if err := os.WriteFile(userPath, []byte("model: user-model\napproval_policy: never\n"), 0o644); err != nil {
		t.Fatalf("write user config: %v", err)
	}

	managedPath := filepath.Join(dir, "managed.yaml")
	if err := os.WriteFile(managedPath, []byte("approval_policy: always\n"), 0o644); err != nil {
		t.Fatalf("write managed config: %v", err)
	}

	sandboxFullAccess := protocol.SandboxFullAccess
	cfg, err := Load(Layers{
		UserConfigPath:    userPath,
		Session:           SessionFlags{SandboxMode: &sandboxFullAccess},
		ManagedConfigPath: managedPath,
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Model != "user-model" {
		t.Errorf("Model = %q, want user-model (from user layer)", cfg.Model)
	}
	// The managed layer must win over the user layer's approval_policy.
	if cfg.ApprovalPolicy != protocol.ApprovalAlways {
		t.Errorf("ApprovalPolicy = %q, want always (managed layer wins)", cfg.ApprovalPolicy)
	}
	// The session-flags layer's sandbox_mode is above the user layer and
	// below managed, but managed left sandbox_mode unset, so it survives.
	if cfg.SandboxMode != protocol.SandboxFullAccess {
		t.Errorf("SandboxMode = %q, want full_access (session layer)", cfg.SandboxMode)
	}
	// Left unset by every layer, so the built-in default fills it.
	if cfg.StreamIdleTimeoutMS != Default().StreamIdleTimeoutMS {
		t.Errorf("StreamIdleTimeoutMS = %d, want default %d", cfg.StreamIdleTimeoutMS, Default().StreamIdleTimeoutMS)
	}
}

func TestLoad_MissingOptionalLayersIsNotAnError(t *testing.T) {
	cfg, err := Load(Layers{
		UserConfigPath:    "/nonexistent/user.yaml",
		ManagedConfigPath: "/nonexistent/managed.yaml",
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ApprovalPolicy != Default().ApprovalPolicy {
		t.Errorf("ApprovalPolicy = %q, want the built-in default", cfg.ApprovalPolicy)
	}
}
