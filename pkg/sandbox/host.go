package sandbox

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"

	"github.com/rs/zerolog"
)

// HostSandbox runs programs as local processes with a scrubbed environment
type HostSandbox struct {
	lifecycle
}

// NewHostSandbox creates a new host-based sandbox
func NewHostSandbox(config Config, logger zerolog.Logger) (*HostSandbox, error) {
	if config.Runtime == "" {
		config.Runtime = RuntimeHost
	}
	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &HostSandbox{
		lifecycle: lifecycle{
			config: config,
			logger: logger.With().Str("component", "sandbox").Logger(),
		},
	}, nil
}

// Start initializes the sandbox
func (h *HostSandbox) Start(ctx context.Context) error {
	return h.start(RuntimeHost)
}

// Stop cleans up the sandbox
func (h *HostSandbox) Stop(ctx context.Context) error {
	return h.stop()
}

// Execute runs a command in the sandbox
func (h *HostSandbox) Execute(ctx context.Context, req ExecuteRequest) (ExecuteResult, error) {
	cfg, err := h.snapshot()
	if err != nil {
		return ExecuteResult{}, err
	}

	if err := checkRequest(cfg, req); err != nil {
		return ExecuteResult{}, err
	}

	result, err := run(ctx, cfg, req, func(execCtx context.Context) *exec.Cmd {
		cmd := exec.CommandContext(execCtx, req.Command, req.Args...)
		if req.WorkingDir != "" {
			cmd.Dir = req.WorkingDir
		}
		cmd.Env = buildEnvironment(cfg.PassEnv, req.Env)
		return cmd
	})
	if err != nil {
		return result, err
	}

	h.logger.Debug().
		Str("command", req.Command).
		Strs("args", req.Args).
		Int("exit_code", result.ExitCode).
		Dur("duration", result.Duration).
		Msg("Command executed in sandbox")

	return result, nil
}

// buildEnvironment starts from a minimal environment, copies the passed
// through host variables and then applies the request's variables.
func buildEnvironment(passEnv []string, env map[string]string) []string {
	values := map[string]string{
		"PATH": "/usr/local/bin:/usr/bin:/bin",
		"HOME": os.TempDir(),
	}

	for _, name := range passEnv {
		if value, ok := os.LookupEnv(name); ok {
			values[name] = value
		}
	}

	for key, value := range env {
		values[key] = value
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]string, 0, len(keys))
	for _, key := range keys {
		result = append(result, key+"="+values[key])
	}
	return result
}
