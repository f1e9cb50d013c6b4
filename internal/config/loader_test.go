package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.json")
	assert.NotNil(t, loader)
	assert.Equal(t, "/path/to/config.json", loader.configPath)
	assert.Equal(t, "/path/to/config.json", loader.GetConfigPath())
}

func TestLoaderLoad(t *testing.T) {
	t.Run("explicit missing file is an error", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "nonexistent.json")

		_, err := NewLoader(configPath).WithEnvFile("").Load()
		assert.Error(t, err)
	})

	t.Run("load config from file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")

		writeFile(t, configPath, `{
			"model": {"id": "gpt-4o-mini", "temperature": 0.2, "seed": 7},
			"agent": {"max_steps": 4, "authorized_imports": ["numpy", "pandas", "math"], "placement": "prepend"},
			"runtime": {
				"kind": "gateway",
				"gateway_url": "ws://localhost:9000/ws",
				"timeout": "90s",
				"sandbox": {"runtime": "docker", "docker": {"image": "python:3.11"}}
			},
			"logging": {"level": "debug"}
		}`)

		cfg, err := NewLoader(configPath).WithEnvFile("").Load()
		require.NoError(t, err)

		assert.Equal(t, "gpt-4o-mini", cfg.Model.ID)
		assert.Equal(t, 0.2, cfg.Model.Temperature)
		assert.Equal(t, 1.0, cfg.Model.TopP)
		assert.Equal(t, 7, cfg.Model.Seed)
		assert.Equal(t, 4, cfg.Agent.MaxSteps)
		assert.Equal(t, PlacementPrepend, cfg.Agent.Placement)
		assert.Subset(t, cfg.Agent.AuthorizedImports, []string{"numpy", "pandas", "math", "pathlib", "json"})
		assert.Equal(t, RuntimeGateway, cfg.Runtime.Kind)
		assert.Equal(t, 90*time.Second, cfg.Runtime.Timeout)
		assert.Equal(t, "python:3.11", cfg.Runtime.Sandbox.Docker.Image)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("set default paths", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")
		writeFile(t, configPath, `{"data_dir": "`+tmpDir+`"}`)

		cfg, err := NewLoader(configPath).WithEnvFile("").Load()
		require.NoError(t, err)
		assert.Equal(t, tmpDir, cfg.DataDir)
		assert.Equal(t, filepath.Join(tmpDir, "logs"), cfg.Logging.Dir)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")
		writeFile(t, configPath, `{"model": {"id": "from-file"}, "agent": {"max_steps": 3}}`)

		t.Setenv("HANDOFF_MODEL_ID", "from-env")
		t.Setenv("HANDOFF_AGENT_MAX_STEPS", "12")

		cfg, err := NewLoader(configPath).WithEnvFile("").Load()
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.Model.ID)
		assert.Equal(t, 12, cfg.Agent.MaxSteps)
	})

	t.Run("default api variables are fallbacks", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")
		writeFile(t, configPath, `{}`)

		t.Setenv("API_BASE_DEFAULT", "http://localhost:11434/v1")
		t.Setenv("API_KEY_DEFAULT", "fallback-key")
		t.Setenv("HANDOFF_MODEL_API_KEY", "primary-key")

		cfg, err := NewLoader(configPath).WithEnvFile("").Load()
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:11434/v1", cfg.Model.APIBase)
		assert.Equal(t, "primary-key", cfg.Model.APIKey)
	})

	t.Run("dotenv file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")
		envPath := filepath.Join(tmpDir, ".env")
		writeFile(t, configPath, `{}`)
		writeFile(t, envPath, "HANDOFF_DOTENV_TEST_MODEL=unused\nHANDOFF_MODEL_SEED=99\n")

		// Register cleanup for the variables gotenv sets
		t.Setenv("HANDOFF_MODEL_SEED", "")
		require.NoError(t, os.Unsetenv("HANDOFF_MODEL_SEED"))
		t.Setenv("HANDOFF_DOTENV_TEST_MODEL", "")
		require.NoError(t, os.Unsetenv("HANDOFF_DOTENV_TEST_MODEL"))

		cfg, err := NewLoader(configPath).WithEnvFile(envPath).Load()
		require.NoError(t, err)
		assert.Equal(t, 99, cfg.Model.Seed)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "invalid.json")
		writeFile(t, configPath, "invalid json")

		_, err := NewLoader(configPath).WithEnvFile("").Load()
		assert.Error(t, err)
	})
}

func TestLoadFunction(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	writeFile(t, configPath, `{"server": {"port": 9191}}`)

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
}
