// Package config implements the recognized configuration map from spec §6:
// a set of options merged lowest-to-highest across five layers (built-in
// defaults, user config file, session flags, system/managed config, MDM
// profile), with managed layers taking precedence. Grounded on the
// teacher's internal/config package: YAML structs via gopkg.in/yaml.v3,
// $include-resolving raw-map merge in loader.go, and an applyDefaults pass
// over the decoded struct.
package config

import (
	"time"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// Config is the recognized option set from spec §6, plus the ambient
// sections (storage, logging) a complete runtime needs but the spec leaves
// to the embedding application.
type Config struct {
	ApprovalPolicy protocol.ApprovalPolicy `yaml:"approval_policy"`
	SandboxMode    protocol.SandboxMode    `yaml:"sandbox_mode"`

	Model         string `yaml:"model"`
	ModelProvider string `yaml:"model_provider"`

	RequestMaxRetries   int `yaml:"request_max_retries"`
	StreamMaxRetries    int `yaml:"stream_max_retries"`
	StreamIdleTimeoutMS int `yaml:"stream_idle_timeout_ms"`

	Cwd                    string                          `yaml:"cwd"`
	ShellEnvironmentPolicy protocol.ShellEnvironmentPolicy `yaml:"shell_environment_policy"`

	TokenBudget int `yaml:"token_budget"`

	GitBacked bool `yaml:"git_backed"`

	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig selects and configures the Runtime Projector's persistence
// backend (spec §4.6's checkpoint store is an implementation detail the
// spec leaves open; this is where a deployment picks one).
type StorageConfig struct {
	// Backend is "memory", "sqlite", or "postgres". Empty defaults to
	// "memory".
	Backend string `yaml:"backend"`

	SQLitePath string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// LoggingConfig configures the ambient slog.Logger every component is
// handed, grounded on the teacher's LoggingConfig.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" | "json"
}

// Default returns the built-in-defaults layer (the lowest layer in spec
// §6's merge order).
func Default() *Config {
	return &Config{
		ApprovalPolicy:      protocol.ApprovalOnFailure,
		SandboxMode:         protocol.SandboxWorkspaceWrite,
		ModelProvider:       "openai",
		RequestMaxRetries:   3,
		StreamMaxRetries:    2,
		StreamIdleTimeoutMS: 60_000,
		ShellEnvironmentPolicy: protocol.ShellEnvironmentPolicy{
			Mode: protocol.ShellEnvInherit,
		},
		Storage: StorageConfig{Backend: "memory"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// applyDefaults fills any zero-valued recognized option left unset after a
// layer merge, mirroring the teacher's applyDefaults/applyServerDefaults
// family of functions (config.go).
func applyDefaults(cfg *Config) {
	d := Default()
	if cfg.ApprovalPolicy == "" {
		cfg.ApprovalPolicy = d.ApprovalPolicy
	}
	if cfg.SandboxMode == "" {
		cfg.SandboxMode = d.SandboxMode
	}
	if cfg.ModelProvider == "" {
		cfg.ModelProvider = d.ModelProvider
	}
	if cfg.RequestMaxRetries == 0 {
		cfg.RequestMaxRetries = d.RequestMaxRetries
	}
	if cfg.StreamMaxRetries == 0 {
		cfg.StreamMaxRetries = d.StreamMaxRetries
	}
	if cfg.StreamIdleTimeoutMS == 0 {
		cfg.StreamIdleTimeoutMS = d.StreamIdleTimeoutMS
	}
	if cfg.ShellEnvironmentPolicy.Mode == "" {
		cfg.ShellEnvironmentPolicy.Mode = d.ShellEnvironmentPolicy.Mode
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = d.Storage.Backend
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = d.Logging.Format
	}
}

// ToTurnContext projects the recognized option set onto the TurnContext
// snapshot the Turn Driver consumes for one turn (spec §3/§6).
func (c *Config) ToTurnContext() protocol.TurnContext {
	return protocol.TurnContext{
		Cwd:                    c.Cwd,
		SandboxMode:            c.SandboxMode,
		ApprovalPolicy:         c.ApprovalPolicy,
		ModelProvider:          c.ModelProvider,
		Model:                  c.Model,
		TokenBudget:            c.TokenBudget,
		RequestMaxRetries:      c.RequestMaxRetries,
		StreamMaxRetries:       c.StreamMaxRetries,
		StreamIdleTimeoutMS:    c.StreamIdleTimeoutMS,
		ShellEnvironmentPolicy: c.ShellEnvironmentPolicy,
		GitBacked:              c.GitBacked,
	}
}

// SessionFlags is the caller-supplied session-flags layer (spec §6's third
// merge tier): a sparse overlay applied after the user config file and
// before the managed/MDM layers.
type SessionFlags struct {
	ApprovalPolicy *protocol.ApprovalPolicy
	SandboxMode    *protocol.SandboxMode
	Model          *string
	ModelProvider  *string
	Cwd            *string
}

func (f SessionFlags) asMap() map[string]any {
	m := map[string]any{}
	if f.ApprovalPolicy != nil {
		m["approval_policy"] = string(*f.ApprovalPolicy)
	}
	if f.SandboxMode != nil {
		m["sandbox_mode"] = string(*f.SandboxMode)
	}
	if f.Model != nil {
		m["model"] = *f.Model
	}
	if f.ModelProvider != nil {
		m["model_provider"] = *f.ModelProvider
	}
	if f.Cwd != nil {
		m["cwd"] = *f.Cwd
	}
	return m
}

// reloadDebounce is the fsnotify event-coalescing window for the
// managed-layer watcher, mirroring the teacher's skills package default.
const reloadDebounce = 250 * time.Millisecond
