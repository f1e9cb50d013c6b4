package sandbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Runtime selects where the agent program runs
type Runtime string

const (
	// RuntimeHost runs the program as a local process with a scrubbed environment
	RuntimeHost Runtime = "host"
	// RuntimeDocker runs the program in an ephemeral container
	RuntimeDocker Runtime = "docker"
)

// Config defines sandbox configuration
type Config struct {
	// Runtime specifies where the program runs (host, docker)
	Runtime Runtime `json:"runtime" mapstructure:"runtime"`

	// ResourceLimits defines resource constraints
	ResourceLimits ResourceLimits `json:"resource_limits" mapstructure:"resource_limits"`

	// FilesystemAccess defines filesystem access rules
	FilesystemAccess FilesystemAccess `json:"filesystem_access" mapstructure:"filesystem_access"`

	// NetworkAccess defines network access rules
	NetworkAccess NetworkAccess `json:"network_access" mapstructure:"network_access"`

	// PassEnv lists host environment variables copied into the process
	PassEnv []string `json:"pass_env" mapstructure:"pass_env"`

	// Docker holds container settings, used when Runtime is docker
	Docker DockerConfig `json:"docker" mapstructure:"docker"`
}

// ResourceLimits defines resource constraints for sandboxed execution
type ResourceLimits struct {
	// MaxCPU limits CPU usage (percentage, 0-100)
	MaxCPU int `json:"max_cpu" mapstructure:"max_cpu"`

	// MaxMemoryMB limits memory usage in megabytes
	MaxMemoryMB int `json:"max_memory_mb" mapstructure:"max_memory_mb"`

	// MaxProcesses limits number of processes
	MaxProcesses int `json:"max_processes" mapstructure:"max_processes"`

	// Timeout limits execution time
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// FilesystemAccess defines filesystem access rules
type FilesystemAccess struct {
	// AllowedPaths lists paths that can be accessed
	AllowedPaths []string `json:"allowed_paths" mapstructure:"allowed_paths"`

	// DeniedPaths lists paths that cannot be accessed
	DeniedPaths []string `json:"denied_paths" mapstructure:"denied_paths"`

	// ReadOnly makes all filesystem access read-only
	ReadOnly bool `json:"read_only" mapstructure:"read_only"`
}

// NetworkAccess defines network access rules. The agent usually needs
// the model endpoint, so docker runs default to a bridge network only
// when Enabled is set.
type NetworkAccess struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// DockerConfig holds settings for the docker runtime
type DockerConfig struct {
	Image       string   `json:"image" mapstructure:"image"`
	Network     string   `json:"network" mapstructure:"network"`
	User        string   `json:"user" mapstructure:"user"`
	SecurityOpt []string `json:"security_opt" mapstructure:"security_opt"`
	CapDrop     []string `json:"cap_drop" mapstructure:"cap_drop"`
	ExtraArgs   []string `json:"extra_args" mapstructure:"extra_args"`
}

// ExecuteRequest represents a sandbox execution request
type ExecuteRequest struct {
	// Command is the command to execute
	Command string `json:"command"`

	// Args are the command arguments
	Args []string `json:"args"`

	// Env are environment variables
	Env map[string]string `json:"env"`

	// WorkingDir is the working directory
	WorkingDir string `json:"working_dir"`

	// Mounts are extra paths the program must be able to read, such as
	// the temp store directory holding the variable files
	Mounts []string `json:"mounts"`

	// Stdin is the standard input
	Stdin []byte `json:"stdin"`

	// Timeout is the execution timeout
	Timeout time.Duration `json:"timeout"`
}

// ExecuteResult represents a sandbox execution result
type ExecuteResult struct {
	// Stdout is the standard output
	Stdout []byte `json:"stdout"`

	// Stderr is the standard error
	Stderr []byte `json:"stderr"`

	// ExitCode is the process exit code
	ExitCode int `json:"exit_code"`

	// Duration is the execution duration
	Duration time.Duration `json:"duration"`

	// Error is any execution error
	Error error `json:"error,omitempty"`
}

// Sandbox defines the interface for sandboxed execution
type Sandbox interface {
	// Execute runs a command in the sandbox
	Execute(ctx context.Context, req ExecuteRequest) (ExecuteResult, error)

	// Start initializes the sandbox
	Start(ctx context.Context) error

	// Stop cleans up the sandbox
	Stop(ctx context.Context) error

	// IsRunning returns whether the sandbox is running
	IsRunning() bool

	// GetConfig returns the sandbox configuration
	GetConfig() Config
}

// New returns the sandbox for cfg.Runtime
func New(cfg Config, logger zerolog.Logger) (Sandbox, error) {
	switch cfg.Runtime {
	case RuntimeDocker:
		return NewDockerSandbox(cfg, logger)
	case RuntimeHost, "":
		return NewHostSandbox(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidRuntime, cfg.Runtime)
	}
}

// DefaultConfig returns a default sandbox configuration
func DefaultConfig() Config {
	return Config{
		Runtime: RuntimeHost,
		ResourceLimits: ResourceLimits{
			MaxCPU:       50,
			MaxMemoryMB:  1024,
			MaxProcesses: 32,
			Timeout:      10 * time.Minute,
		},
		FilesystemAccess: FilesystemAccess{
			DeniedPaths: []string{"/etc", "/sys", "/proc"},
		},
		NetworkAccess: NetworkAccess{
			Enabled: true,
		},
		Docker: DockerConfig{
			Image:   "python:3.12-slim",
			CapDrop: []string{"ALL"},
		},
	}
}

// ValidateConfig validates a sandbox configuration
func ValidateConfig(cfg Config) error {
	switch cfg.Runtime {
	case RuntimeHost, RuntimeDocker, "":
	default:
		return ErrInvalidRuntime
	}

	if cfg.Runtime == RuntimeDocker && strings.TrimSpace(cfg.Docker.Image) == "" {
		return ErrDockerImageRequired
	}

	if cfg.ResourceLimits.MaxCPU < 0 || cfg.ResourceLimits.MaxCPU > 100 {
		return ErrInvalidCPULimit
	}

	if cfg.ResourceLimits.MaxMemoryMB < 0 {
		return ErrInvalidMemoryLimit
	}

	if cfg.ResourceLimits.MaxProcesses < 0 {
		return ErrInvalidProcessLimit
	}

	if cfg.ResourceLimits.Timeout < 0 {
		return ErrInvalidTimeout
	}

	return nil
}
