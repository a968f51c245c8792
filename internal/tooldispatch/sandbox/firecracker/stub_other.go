//go:build !linux

// Package firecracker provides the micro-VM isolation tier for the Tool
// Dispatcher's sandbox. This stub is used on non-Linux platforms where
// Firecracker is unavailable, grounded on the teacher's
// internal/tools/sandbox/firecracker/stub_other.go.
package firecracker

import (
	"context"
	"errors"
	"time"
)

// ErrNotSupported is returned for every operation on non-Linux platforms.
var ErrNotSupported = errors.New("firecracker is only supported on linux")

// Config mirrors the linux-only Config's fields for call-site compatibility.
type Config struct {
	KernelImagePath string
	RootFSPath      string
	VCPUCount       int64
	MemSizeMB       int64
	NetworkEnabled  bool
	SocketDir       string
}

// DefaultConfig returns a zero-value Config; it is never bootable on this
// platform.
func DefaultConfig() Config { return Config{} }

// Machine is an unusable stand-in on non-Linux platforms.
type Machine struct{}

// Boot always fails on non-Linux platforms.
func Boot(ctx context.Context, cfg Config) (*Machine, error) {
	return nil, ErrNotSupported
}

// Run always fails on non-Linux platforms.
func (m *Machine) Run(ctx context.Context, command []string, stdin []byte, timeout time.Duration) ([]byte, []byte, int, error) {
	return nil, nil, -1, ErrNotSupported
}

// Shutdown is a no-op on non-Linux platforms.
func (m *Machine) Shutdown(ctx context.Context) error { return nil }
