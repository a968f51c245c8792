package sandbox

import (
	"context"
	"sync"
	"time"

	"github.com/openagentsinc/agentcore/internal/tooldispatch/sandbox/firecracker"
)

// FirecrackerRunner adapts a lazily-booted firecracker.Machine to the Runner
// interface, reusing one micro-VM across calls until Close is called.
type FirecrackerRunner struct {
	mu      sync.Mutex
	network bool
	machine *firecracker.Machine
}

// NewFirecrackerRunner returns a Runner that boots (on first Run) a micro-VM
// with the given network access flag.
func NewFirecrackerRunner(networkEnabled bool) *FirecrackerRunner {
	return &FirecrackerRunner{network: networkEnabled}
}

// Run boots the micro-VM on first use and forwards command to it over
// vsock; env is ignored as the guest agent constructs its own environment.
func (r *FirecrackerRunner) Run(ctx context.Context, command []string, cwd string, env []string, timeout time.Duration) (Result, error) {
	r.mu.Lock()
	if r.machine == nil {
		cfg := firecracker.DefaultConfig()
		cfg.NetworkEnabled = r.network
		m, err := firecracker.Boot(ctx, cfg)
		if err != nil {
			r.mu.Unlock()
			return Result{}, err
		}
		r.machine = m
	}
	machine := r.machine
	r.mu.Unlock()

	stdout, stderr, exitCode, err := machine.Run(ctx, command, nil, timeout)
	result := Result{Stdout: string(stdout), Stderr: string(stderr), ExitCode: exitCode}
	if err == context.DeadlineExceeded {
		result.TimedOut = true
		return result, nil
	}
	return result, err
}

// Close shuts down the underlying micro-VM, if one was booted.
func (r *FirecrackerRunner) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.machine == nil {
		return nil
	}
	return r.machine.Shutdown(ctx)
}
