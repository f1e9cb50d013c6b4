package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// lifecycle holds the state shared by every sandbox runtime
type lifecycle struct {
	config  Config
	logger  zerolog.Logger
	running bool
	mu      sync.RWMutex
}

func (l *lifecycle) start(runtime Runtime) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return ErrSandboxAlreadyRunning
	}

	l.logger.Info().
		Str("runtime", string(runtime)).
		Dur("timeout", l.config.ResourceLimits.Timeout).
		Msg("Starting sandbox")

	l.running = true
	return nil
}

func (l *lifecycle) stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return ErrSandboxNotRunning
	}

	l.logger.Info().Msg("Stopping sandbox")
	l.running = false
	return nil
}

// IsRunning returns whether the sandbox is running
func (l *lifecycle) IsRunning() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.running
}

// GetConfig returns the sandbox configuration
func (l *lifecycle) GetConfig() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// snapshot returns the config of a running sandbox
func (l *lifecycle) snapshot() (Config, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.running {
		return Config{}, ErrSandboxNotRunning
	}
	return l.config, nil
}

// Check reports whether path may be accessed under the rules
func (f FilesystemAccess) Check(path string) error {
	if path == "" {
		return nil
	}

	cleanPath := filepath.Clean(path)

	for _, denied := range f.DeniedPaths {
		if within(cleanPath, denied) {
			return fmt.Errorf("%w: %s", ErrFilesystemAccessDenied, path)
		}
	}

	// An empty allow list allows everything not denied
	if len(f.AllowedPaths) == 0 {
		return nil
	}

	for _, allowed := range f.AllowedPaths {
		if within(cleanPath, allowed) {
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrFilesystemAccessDenied, path)
}

func within(path, root string) bool {
	root = filepath.Clean(strings.TrimSpace(root))
	if root == "" || root == "." {
		return false
	}
	if path == root || root == string(filepath.Separator) {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

// checkRequest validates the paths a request touches
func checkRequest(cfg Config, req ExecuteRequest) error {
	if strings.TrimSpace(req.Command) == "" {
		return ErrCommandRequired
	}
	if err := cfg.FilesystemAccess.Check(req.WorkingDir); err != nil {
		return err
	}
	for _, mount := range req.Mounts {
		if err := cfg.FilesystemAccess.Check(mount); err != nil {
			return err
		}
	}
	return nil
}

// run executes the command built by newCmd under the request timeout
func run(ctx context.Context, cfg Config, req ExecuteRequest, newCmd func(context.Context) *exec.Cmd) (ExecuteResult, error) {
	timeout := req.Timeout
	if timeout == 0 {
		timeout = cfg.ResourceLimits.Timeout
	}

	execCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := newCmd(execCtx)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if len(req.Stdin) > 0 {
		cmd.Stdin = bytes.NewReader(req.Stdin)
	}

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	// The caller's cancellation wins over our own deadline
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ExecuteResult{
			Stdout:   stdout.Bytes(),
			Stderr:   stderr.Bytes(),
			ExitCode: -1,
			Duration: duration,
			Error:    ctxErr,
		}, ctxErr
	}

	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return ExecuteResult{
			Stdout:   stdout.Bytes(),
			Stderr:   stderr.Bytes(),
			ExitCode: -1,
			Duration: duration,
			Error:    ErrExecutionTimeout,
		}, ErrExecutionTimeout
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
	}

	result := ExecuteResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
		Duration: duration,
	}
	if err != nil && exitCode == 0 {
		result.Error = err
	}

	return result, nil
}
