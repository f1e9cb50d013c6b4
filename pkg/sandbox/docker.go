package sandbox

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// CheckDocker verifies that the Docker daemon is available and responsive.
func CheckDocker(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "docker", "ps", "-q")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker is not available or not running: %w", err)
	}
	return nil
}

// DockerSandbox runs each program in an ephemeral Docker container.
type DockerSandbox struct {
	lifecycle
}

// NewDockerSandbox creates a new Docker-based sandbox.
func NewDockerSandbox(config Config, logger zerolog.Logger) (*DockerSandbox, error) {
	if config.Runtime == "" {
		config.Runtime = RuntimeDocker
	}
	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &DockerSandbox{
		lifecycle: lifecycle{
			config: config,
			logger: logger.With().Str("component", "sandbox").Str("image", config.Docker.Image).Logger(),
		},
	}, nil
}

// Start initializes the Docker sandbox.
func (d *DockerSandbox) Start(ctx context.Context) error {
	return d.start(RuntimeDocker)
}

// Stop marks the Docker sandbox as stopped.
func (d *DockerSandbox) Stop(ctx context.Context) error {
	return d.stop()
}

// Execute runs a command inside an ephemeral Docker container.
func (d *DockerSandbox) Execute(ctx context.Context, req ExecuteRequest) (ExecuteResult, error) {
	cfg, err := d.snapshot()
	if err != nil {
		return ExecuteResult{}, err
	}

	if err := checkRequest(cfg, req); err != nil {
		return ExecuteResult{}, err
	}

	args := buildDockerRunArgs(cfg, req)
	result, err := run(ctx, cfg, req, func(execCtx context.Context) *exec.Cmd {
		return exec.CommandContext(execCtx, "docker", args...)
	})
	if err != nil {
		return result, err
	}

	d.logger.Debug().
		Str("command", req.Command).
		Strs("args", req.Args).
		Int("exit_code", result.ExitCode).
		Dur("duration", result.Duration).
		Msg("Command executed in docker sandbox")

	return result, nil
}

func buildDockerRunArgs(cfg Config, req ExecuteRequest) []string {
	args := []string{"run", "--rm", "--init"}

	networkMode := strings.TrimSpace(cfg.Docker.Network)
	if networkMode == "" {
		if cfg.NetworkAccess.Enabled {
			networkMode = "bridge"
		} else {
			networkMode = "none"
		}
	}
	args = append(args, "--network", networkMode)

	if cfg.ResourceLimits.MaxCPU > 0 {
		cpus := float64(cfg.ResourceLimits.MaxCPU) / 100.0
		args = append(args, "--cpus", strconv.FormatFloat(cpus, 'f', 2, 64))
	}
	if cfg.ResourceLimits.MaxMemoryMB > 0 {
		args = append(args, "--memory", fmt.Sprintf("%dm", cfg.ResourceLimits.MaxMemoryMB))
	}
	if cfg.ResourceLimits.MaxProcesses > 0 {
		args = append(args, "--pids-limit", strconv.Itoa(cfg.ResourceLimits.MaxProcesses))
	}

	if cfg.FilesystemAccess.ReadOnly {
		args = append(args, "--read-only")
	}

	if user := strings.TrimSpace(cfg.Docker.User); user != "" {
		args = append(args, "--user", user)
	}
	for _, secOpt := range cfg.Docker.SecurityOpt {
		if trimmed := strings.TrimSpace(secOpt); trimmed != "" {
			args = append(args, "--security-opt", trimmed)
		}
	}
	for _, capability := range cfg.Docker.CapDrop {
		if trimmed := strings.TrimSpace(capability); trimmed != "" {
			args = append(args, "--cap-drop", trimmed)
		}
	}
	args = append(args, cfg.Docker.ExtraArgs...)

	workMode := "rw"
	if cfg.FilesystemAccess.ReadOnly {
		workMode = "ro"
	}

	// Variable files are only ever read by the agent
	mounts := make(map[string]string)
	for _, mount := range req.Mounts {
		if trimmed := strings.TrimSpace(mount); trimmed != "" {
			mounts[filepath.Clean(trimmed)] = "ro"
		}
	}
	for _, allowed := range cfg.FilesystemAccess.AllowedPaths {
		if trimmed := strings.TrimSpace(allowed); trimmed != "" {
			mounts[filepath.Clean(trimmed)] = workMode
		}
	}
	if wd := strings.TrimSpace(req.WorkingDir); wd != "" {
		mounts[filepath.Clean(wd)] = workMode
	}

	paths := make([]string, 0, len(mounts))
	for path := range mounts {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		args = append(args, "-v", fmt.Sprintf("%s:%s:%s", path, path, mounts[path]))
	}

	if wd := strings.TrimSpace(req.WorkingDir); wd != "" {
		args = append(args, "-w", filepath.Clean(wd))
	}

	envKeys := make([]string, 0, len(req.Env))
	for key := range req.Env {
		envKeys = append(envKeys, key)
	}
	sort.Strings(envKeys)
	for _, key := range envKeys {
		args = append(args, "-e", fmt.Sprintf("%s=%s", key, req.Env[key]))
	}

	if len(req.Stdin) > 0 {
		args = append(args, "-i")
	}

	image := strings.TrimSpace(cfg.Docker.Image)
	if image == "" {
		image = DefaultConfig().Docker.Image
	}
	args = append(args, image, req.Command)
	args = append(args, req.Args...)

	return args
}
