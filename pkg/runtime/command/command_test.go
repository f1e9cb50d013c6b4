package command

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harun/handoff/pkg/runtime"
	"github.com/harun/handoff/pkg/sandbox"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newScriptRuntime runs script with sh; "$1" is a file in dir
func newScriptRuntime(t *testing.T, script string, dir string, mutate func(*Config)) *Runtime {
	t.Helper()

	sb, err := sandbox.NewHostSandbox(sandbox.DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)

	cfg := Config{
		Command: "sh",
		Args:    []string{"-c", script, "sh", filepath.Join(dir, "request.json")},
		Timeout: 5 * time.Second,
		Model: runtime.ModelOptions{
			Model:       "test-model",
			Temperature: 1.0,
			TopP:        1.0,
			Seed:        42,
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	rt, err := New(context.Background(), sb, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt
}

func TestNew(t *testing.T) {
	sb, err := sandbox.NewHostSandbox(sandbox.DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)

	_, err = New(context.Background(), sb, Config{}, zerolog.Nop())
	assert.ErrorIs(t, err, sandbox.ErrCommandRequired)

	_, err = New(context.Background(), nil, Config{Command: "true"}, zerolog.Nop())
	assert.Error(t, err)

	rt, err := New(context.Background(), sb, Config{Command: "true"}, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, sb.IsRunning())

	require.NoError(t, rt.Close(context.Background()))
	assert.False(t, sb.IsRunning())
	assert.NoError(t, rt.Close(context.Background()))
}

func TestRun_PassesRequestOnStdin(t *testing.T) {
	dir := t.TempDir()
	rt := newScriptRuntime(t, `cat > "$1"; echo '{"output": 5050}'`, dir, func(c *Config) {
		c.APIKey = "secret-key"
	})

	out, err := rt.Run(context.Background(), runtime.Request{
		Prompt:            "sum the numbers",
		Args:              map[string]string{"numbers": filepath.Join(dir, "numbers_abc.json")},
		MaxSteps:          10,
		AuthorizedImports: []string{"pathlib", "json"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 5050, out)

	raw, err := os.ReadFile(filepath.Join(dir, "request.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-key")

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "sum the numbers", got["prompt"])
	assert.Equal(t, map[string]any{"numbers": filepath.Join(dir, "numbers_abc.json")}, got["additional_args"])
	assert.EqualValues(t, 10, got["max_steps"])
	assert.Equal(t, []any{"pathlib", "json"}, got["authorized_imports"])

	model, ok := got["model"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "test-model", model["model"])
	assert.EqualValues(t, 42, model["seed"])
}

func TestRun_APIKeyInEnvironment(t *testing.T) {
	rt := newScriptRuntime(t, `cat > /dev/null; printf '{"output": "%s"}\n' "$HANDOFF_API_KEY"`, t.TempDir(), func(c *Config) {
		c.APIKey = "secret-key"
	})

	out, err := rt.Run(context.Background(), runtime.Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "secret-key", out)
}

func TestRun_LastResponseLineWins(t *testing.T) {
	script := `cat > /dev/null
echo "Step 1: thinking"
echo '{"output": "draft"}'
echo "{not json"
echo '{"output": {"total": 3, "items": [1, 2]}}'
echo ""`
	rt := newScriptRuntime(t, script, t.TempDir(), nil)

	out, err := rt.Run(context.Background(), runtime.Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"total": float64(3), "items": []any{float64(1), float64(2)}}, out)
}

func TestRun_NullOutputIsAnAnswer(t *testing.T) {
	rt := newScriptRuntime(t, `cat > /dev/null; echo '{"output": null}'`, t.TempDir(), nil)

	out, err := rt.Run(context.Background(), runtime.Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "agent reported error",
			script: `cat > /dev/null; echo '{"output": null, "error": "max steps reached"}'`,
			check: func(t *testing.T, err error) {
				var agentErr *AgentError
				require.ErrorAs(t, err, &agentErr)
				assert.Equal(t, "max steps reached", agentErr.Message)
			},
		},
		{
			name:   "crash without answer",
			script: `cat > /dev/null; echo "Traceback: boom" >&2; exit 3`,
			check: func(t *testing.T, err error) {
				var exitErr *ExitError
				require.ErrorAs(t, err, &exitErr)
				assert.Equal(t, 3, exitErr.ExitCode)
				assert.Contains(t, exitErr.Stderr, "boom")
			},
		},
		{
			name:   "answer followed by non-zero exit",
			script: `cat > /dev/null; echo '{"output": 1}'; exit 1`,
			check: func(t *testing.T, err error) {
				var exitErr *ExitError
				assert.ErrorAs(t, err, &exitErr)
			},
		},
		{
			name:   "no answer",
			script: `cat > /dev/null; echo "done"`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, runtime.ErrNoOutput)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newScriptRuntime(t, tt.script, t.TempDir(), nil)

			out, err := rt.Run(context.Background(), runtime.Request{Prompt: "p"})
			assert.Nil(t, out)
			tt.check(t, err)
		})
	}
}

func TestRun_Timeout(t *testing.T) {
	rt := newScriptRuntime(t, `sleep 5`, t.TempDir(), func(c *Config) {
		c.Timeout = 100 * time.Millisecond
	})

	_, err := rt.Run(context.Background(), runtime.Request{Prompt: "p"})
	assert.ErrorIs(t, err, sandbox.ErrExecutionTimeout)
}

func TestArgDirs(t *testing.T) {
	dirs := argDirs(map[string]string{
		"a": "/tmp/x/a_1.json",
		"b": "/tmp/x/b_2.txt",
		"c": "/var/data/c_3.npy",
	})
	assert.Equal(t, []string{"/tmp/x", "/var/data"}, dirs)
	assert.Empty(t, argDirs(nil))
}

func TestTail(t *testing.T) {
	long := make([]byte, maxStderr+100)
	for i := range long {
		long[i] = 'x'
	}
	long[len(long)-1] = 'y'

	got := tail(long)
	assert.Len(t, got, maxStderr)
	assert.Equal(t, byte('y'), got[len(got)-1])
}
