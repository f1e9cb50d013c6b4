// Package command runs an external agent program, such as a smolagents
// wrapper script, through a sandbox.
//
// The program receives one JSON document on stdin:
//
//	{"prompt": "...", "additional_args": {"name": "/tmp/name_x.json"},
//	 "max_steps": 10, "authorized_imports": ["pathlib", "json"],
//	 "model": {"model": "...", "api_base": "...", "temperature": 1, "top_p": 1, "seed": 42}}
//
// and answers with a JSON line {"output": <any>, "error": "<message>"} as
// the last non-empty line of stdout. The API key is only ever passed in the
// HANDOFF_API_KEY environment variable.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/harun/handoff/pkg/runtime"
	"github.com/harun/handoff/pkg/sandbox"
	"github.com/rs/zerolog"
)

// APIKeyEnv is the environment variable carrying the model API key
const APIKeyEnv = "HANDOFF_API_KEY"

// maxStderr bounds the stderr excerpt carried in errors
const maxStderr = 2048

// Config configures the agent program
type Config struct {
	Command    string
	Args       []string
	WorkingDir string
	Timeout    time.Duration
	APIKey     string
	Model      runtime.ModelOptions
}

// Runtime is a runtime.Runtime backed by a sandboxed program
type Runtime struct {
	sandbox sandbox.Sandbox
	cfg     Config
	logger  zerolog.Logger
}

// wireRequest is the document written to the program's stdin
type wireRequest struct {
	runtime.Request
	Model runtime.ModelOptions `json:"model"`
}

// wireResponse is the document read back from stdout
type wireResponse struct {
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

// ExitError reports a program that failed without a usable answer
type ExitError struct {
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("agent program exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("agent program exited with code %d: %s", e.ExitCode, e.Stderr)
}

// AgentError is an error reported by the agent program itself
type AgentError struct {
	Message string
}

func (e *AgentError) Error() string {
	return "agent failed: " + e.Message
}

// New creates a runtime and starts sb if it is not running yet
func New(ctx context.Context, sb sandbox.Sandbox, cfg Config, logger zerolog.Logger) (*Runtime, error) {
	if sb == nil {
		return nil, errors.New("sandbox is required")
	}
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, sandbox.ErrCommandRequired
	}
	if !sb.IsRunning() {
		if err := sb.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start sandbox: %w", err)
		}
	}

	return &Runtime{
		sandbox: sb,
		cfg:     cfg,
		logger:  logger.With().Str("component", "runtime.command").Str("command", cfg.Command).Logger(),
	}, nil
}

// Run executes the agent program once for req
func (r *Runtime) Run(ctx context.Context, req runtime.Request) (any, error) {
	stdin, err := json.Marshal(wireRequest{Request: req, Model: r.cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	env := map[string]string{}
	if r.cfg.APIKey != "" {
		env[APIKeyEnv] = r.cfg.APIKey
	}

	result, err := r.sandbox.Execute(ctx, sandbox.ExecuteRequest{
		Command:    r.cfg.Command,
		Args:       r.cfg.Args,
		Env:        env,
		WorkingDir: r.cfg.WorkingDir,
		Mounts:     argDirs(req.Args),
		Stdin:      stdin,
		Timeout:    r.cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("agent program: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to run agent program: %w", result.Error)
	}

	r.logger.Debug().
		Int("exit_code", result.ExitCode).
		Dur("duration", result.Duration).
		Int("stdout_bytes", len(result.Stdout)).
		Msg("Agent program finished")

	resp, ok := lastResponse(result.Stdout)
	if !ok {
		if result.ExitCode != 0 {
			return nil, &ExitError{ExitCode: result.ExitCode, Stderr: tail(result.Stderr)}
		}
		return nil, runtime.ErrNoOutput
	}

	if resp.Error != "" {
		return nil, &AgentError{Message: resp.Error}
	}
	if result.ExitCode != 0 {
		return nil, &ExitError{ExitCode: result.ExitCode, Stderr: tail(result.Stderr)}
	}
	if len(resp.Output) == 0 {
		return nil, runtime.ErrNoOutput
	}

	var output any
	if err := json.Unmarshal(resp.Output, &output); err != nil {
		return nil, fmt.Errorf("failed to decode agent output: %w", err)
	}
	return output, nil
}

// Close stops the sandbox
func (r *Runtime) Close(ctx context.Context) error {
	if !r.sandbox.IsRunning() {
		return nil
	}
	return r.sandbox.Stop(ctx)
}

// lastResponse finds the last stdout line that decodes as a response.
// Agent frameworks print their own progress on stdout.
func lastResponse(stdout []byte) (wireResponse, bool) {
	lines := bytes.Split(stdout, []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var resp wireResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			continue
		}
		if len(resp.Output) == 0 && resp.Error == "" {
			continue
		}
		return resp, true
	}
	return wireResponse{}, false
}

// argDirs returns the directories holding the variable files
func argDirs(args map[string]string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, path := range args {
		dir := filepath.Dir(path)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}

func tail(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if len(s) > maxStderr {
		s = s[len(s)-maxStderr:]
	}
	return s
}
