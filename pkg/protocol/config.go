package protocol

// ApprovalPolicy controls when a tool call requires caller confirmation.
type ApprovalPolicy string

const (
	ApprovalNever      ApprovalPolicy = "never"
	ApprovalOnFailure  ApprovalPolicy = "on_failure"
	ApprovalUntrusted  ApprovalPolicy = "untrusted"
	ApprovalAlways     ApprovalPolicy = "always"
)

// SandboxMode controls a tool's filesystem/network access when executed.
type SandboxMode string

const (
	SandboxReadOnly      SandboxMode = "read_only"
	SandboxWorkspaceWrite SandboxMode = "workspace_write"
	SandboxFullAccess    SandboxMode = "full_access"
)

// ShellEnvironmentPolicyMode controls how the exec tool constructs the
// child process environment.
type ShellEnvironmentPolicyMode string

const (
	ShellEnvInherit        ShellEnvironmentPolicyMode = "inherit"
	ShellEnvIgnoreDefaults ShellEnvironmentPolicyMode = "ignore_defaults"
)

// ShellEnvironmentPolicy is the recognized shell_environment_policy option.
type ShellEnvironmentPolicy struct {
	Mode    ShellEnvironmentPolicyMode `yaml:"inherit" json:"mode"`
	Exclude []string                   `yaml:"exclude" json:"exclude,omitempty"`
	Env     map[string]string          `yaml:"env" json:"env,omitempty"`
}

// TurnContext is the immutable per-turn configuration snapshot (spec §3).
type TurnContext struct {
	Cwd                    string                 `json:"cwd"`
	SandboxMode            SandboxMode            `json:"sandbox_mode"`
	ApprovalPolicy         ApprovalPolicy         `json:"approval_policy"`
	ModelProvider          string                 `json:"model_provider"`
	Model                  string                 `json:"model"`
	TokenBudget            int                    `json:"token_budget,omitempty"`
	RequestMaxRetries      int                    `json:"request_max_retries"`
	StreamMaxRetries       int                    `json:"stream_max_retries"`
	StreamIdleTimeoutMS    int                    `json:"stream_idle_timeout_ms"`
	ShellEnvironmentPolicy ShellEnvironmentPolicy `json:"shell_environment_policy"`

	// GitBacked gates whether the conversation ever attempts to resolve a
	// real commit for GhostSnapshot items (spec §9 Open Question).
	GitBacked bool `json:"git_backed"`
}
