package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

func TestNativeRunner_CapturesStdoutAndExitCode(t *testing.T) {
	r := &NativeRunner{}
	result, err := r.Run(context.Background(), []string{"sh", "-c", "echo hi"}, "", nil, 5*time.Second)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stdout != "hi\n" {
		t.Errorf("Stdout = %q, want %q", result.Stdout, "hi\n")
	}
	if result.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", result.ExitCode)
	}
}

func TestNativeRunner_NonZeroExitCode(t *testing.T) {
	r := &NativeRunner{}
	result, err := r.Run(context.Background(), []string{"sh", "-c", "exit 3"}, "", nil, 5*time.Second)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", result.ExitCode)
	}
}

func TestNativeRunner_TimesOut(t *testing.T) {
	r := &NativeRunner{}
	result, err := r.Run(context.Background(), []string{"sleep", "2"}, "", nil, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.TimedOut {
		t.Errorf("TimedOut = false, want true")
	}
}

func TestBuildEnv_IgnoreDefaultsStartsEmpty(t *testing.T) {
	env := BuildEnv(protocol.ShellEnvironmentPolicy{
		Mode: protocol.ShellEnvIgnoreDefaults,
		Env:  map[string]string{"FOO": "bar"},
	})
	if len(env) != 1 || env[0] != "FOO=bar" {
		t.Errorf("env = %v, want [FOO=bar]", env)
	}
}

func TestBuildEnv_InheritExcludesPatterns(t *testing.T) {
	env := BuildEnv(protocol.ShellEnvironmentPolicy{
		Mode:    protocol.ShellEnvInherit,
		Exclude: []string{"PATH"},
	})
	for _, kv := range env {
		if len(kv) >= 5 && kv[:5] == "PATH=" {
			t.Errorf("PATH should have been excluded, got %q", kv)
		}
	}
}

func TestDispatch_FullAccessIsAlwaysNative(t *testing.T) {
	r := Dispatch(protocol.SandboxFullAccess, true)
	if _, ok := r.(*NativeRunner); !ok {
		t.Errorf("full_access runner = %T, want *NativeRunner", r)
	}
}

func TestDispatch_ReadOnlyWithoutFirecrackerFallsBackToNative(t *testing.T) {
	r := Dispatch(protocol.SandboxReadOnly, false)
	nr, ok := r.(*NativeRunner)
	if !ok {
		t.Fatalf("runner = %T, want *NativeRunner", r)
	}
	if nr.Writable {
		t.Errorf("read_only runner should not be writable")
	}
}
