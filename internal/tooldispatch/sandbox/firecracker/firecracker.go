//go:build linux

// Package firecracker provides the micro-VM isolation tier for the Tool
// Dispatcher's sandbox (spec §4.4 / §9's Open Question on sandbox tiers),
// grounded on the teacher's internal/tools/sandbox/firecracker package
// (MicroVM, VMConfig, vsock-based guest communication), generalized from a
// pooled multi-language code runner to a single-command runner invoked
// per dispatched exec call.
package firecracker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	fcsdk "github.com/firecracker-microvm/firecracker-go-sdk"
	"github.com/firecracker-microvm/firecracker-go-sdk/client/models"
	"github.com/google/uuid"
)

// Config describes the boot image and resource envelope for a micro-VM.
type Config struct {
	KernelImagePath string
	RootFSPath      string
	VCPUCount       int64
	MemSizeMB       int64
	NetworkEnabled  bool
	SocketDir       string
}

// DefaultConfig returns conservative single-vCPU, 256MB-memory defaults
// with no network, mirroring the teacher's DefaultVMConfig.
func DefaultConfig() Config {
	return Config{
		KernelImagePath: "/var/lib/agentcore/vmlinux",
		RootFSPath:      "/var/lib/agentcore/rootfs.ext4",
		VCPUCount:       1,
		MemSizeMB:       256,
		NetworkEnabled:  false,
		SocketDir:       "/var/run/agentcore/firecracker",
	}
}

// Machine wraps one booted firecracker-go-sdk Machine with its socket path
// and teardown function.
type Machine struct {
	mu         sync.Mutex
	cfg        Config
	machine    *fcsdk.Machine
	socketPath string
	cancel     context.CancelFunc
}

// Boot starts a fresh micro-VM from cfg and blocks until it is accepting
// vsock connections, grounded on the teacher's MicroVM start sequence.
func Boot(ctx context.Context, cfg Config) (*Machine, error) {
	if err := os.MkdirAll(cfg.SocketDir, 0o700); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}
	socketPath := filepath.Join(cfg.SocketDir, uuid.New().String()+".sock")

	fcCfg := fcsdk.Config{
		SocketPath:      socketPath,
		KernelImagePath: cfg.KernelImagePath,
		Drives: []models.Drive{{
			DriveID:      fcsdk.String("rootfs"),
			PathOnHost:   fcsdk.String(cfg.RootFSPath),
			IsRootDevice: fcsdk.Bool(true),
			IsReadOnly:   fcsdk.Bool(true),
		}},
		MachineCfg: models.MachineConfiguration{
			VcpuCount:  fcsdk.Int64(cfg.VCPUCount),
			MemSizeMib: fcsdk.Int64(cfg.MemSizeMB),
		},
		DisableValidation: true,
	}

	vmCtx, cancel := context.WithCancel(ctx)
	machine, err := fcsdk.NewMachine(vmCtx, fcCfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("new machine: %w", err)
	}
	if err := machine.Start(vmCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("start machine: %w", err)
	}

	return &Machine{cfg: cfg, machine: machine, socketPath: socketPath, cancel: cancel}, nil
}

// Run sends command to the guest agent over vsock and waits for its result
// or ctx's deadline, grounded on the teacher's VsockConnection protocol
// (length-prefixed JSON request/response over CID 3).
func (m *Machine) Run(ctx context.Context, command []string, stdin []byte, timeout time.Duration) ([]byte, []byte, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return runGuestCommand(runCtx, m.socketPath, command, stdin)
}

// Shutdown stops the VMM and releases its socket.
func (m *Machine) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.cancel()
	if m.machine == nil {
		return nil
	}
	return m.machine.StopVMM()
}
