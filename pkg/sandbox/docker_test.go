package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDockerSandbox_StartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runtime = RuntimeDocker
	cfg.Docker.Image = "alpine:3.20"

	sb, err := NewDockerSandbox(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, sb.IsRunning())

	require.NoError(t, sb.Start(context.Background()))
	assert.True(t, sb.IsRunning())

	require.NoError(t, sb.Stop(context.Background()))
	assert.False(t, sb.IsRunning())
}

func TestDockerSandbox_RequiresImage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runtime = RuntimeDocker
	cfg.Docker.Image = " "

	_, err := NewDockerSandbox(cfg, zerolog.Nop())
	assert.ErrorIs(t, err, ErrDockerImageRequired)
}

func TestBuildDockerRunArgs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runtime = RuntimeDocker
	cfg.Docker.Image = "python:3.12-slim"
	cfg.ResourceLimits.MaxCPU = 50
	cfg.ResourceLimits.MaxMemoryMB = 256
	cfg.ResourceLimits.MaxProcesses = 32
	cfg.FilesystemAccess.AllowedPaths = []string{"/srv/work"}
	cfg.NetworkAccess.Enabled = false

	req := ExecuteRequest{
		Command:    "python3",
		Args:       []string{"agent.py"},
		WorkingDir: "/srv/work",
		Mounts:     []string{"/tmp/handoff"},
		Env: map[string]string{
			"HANDOFF_API_KEY": "k",
		},
		Stdin:   []byte("{}"),
		Timeout: 5 * time.Second,
	}

	args := buildDockerRunArgs(cfg, req)

	assert.Equal(t, []string{"run", "--rm", "--init"}, args[:3])
	assert.Contains(t, args, "none")
	assert.Contains(t, args, "--cpus")
	assert.Contains(t, args, "0.50")
	assert.Contains(t, args, "256m")
	assert.Contains(t, args, "--pids-limit")
	assert.Contains(t, args, "--cap-drop")
	assert.NotContains(t, args, "--read-only")
	assert.Contains(t, args, "/srv/work:/srv/work:rw")
	assert.Contains(t, args, "/tmp/handoff:/tmp/handoff:ro")
	assert.Contains(t, args, "-w")
	assert.Contains(t, args, "HANDOFF_API_KEY=k")
	assert.Contains(t, args, "-i")

	tail := args[len(args)-3:]
	assert.Equal(t, []string{"python:3.12-slim", "python3", "agent.py"}, tail)
}

func TestBuildDockerRunArgs_ReadOnlyAndNetwork(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runtime = RuntimeDocker
	cfg.FilesystemAccess.ReadOnly = true
	cfg.FilesystemAccess.AllowedPaths = []string{"/srv/work"}
	cfg.NetworkAccess.Enabled = true

	args := buildDockerRunArgs(cfg, ExecuteRequest{Command: "true"})

	assert.Contains(t, args, "--read-only")
	assert.Contains(t, args, "bridge")
	assert.Contains(t, args, "/srv/work:/srv/work:ro")
	assert.NotContains(t, args, "-i")
}

func TestBuildDockerRunArgs_ExplicitNetwork(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Docker.Network = "handoff-net"

	args := buildDockerRunArgs(cfg, ExecuteRequest{Command: "true"})

	assert.Contains(t, args, "handoff-net")
	assert.NotContains(t, args, "bridge")
}
