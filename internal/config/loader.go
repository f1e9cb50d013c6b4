package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// envBindings lists the keys that can be overridden from the environment.
// Extra names are fallbacks checked after the HANDOFF_ variable.
var envBindings = map[string][]string{
	"model.id":              nil,
	"model.api_base":        {"API_BASE_DEFAULT"},
	"model.api_key":         {"API_KEY_DEFAULT"},
	"model.temperature":     nil,
	"model.top_p":           nil,
	"model.seed":            nil,
	"agent.max_steps":       nil,
	"agent.placement":       nil,
	"agent.temp_dir":        nil,
	"runtime.kind":          nil,
	"runtime.command":       nil,
	"runtime.timeout":       nil,
	"runtime.gateway_url":   nil,
	"runtime.gateway_token": nil,
	"logging.level":         nil,
	"logging.file_level":    nil,
	"logging.dir":           nil,
	"logging.file":          nil,
	"metrics.enabled":       nil,
	"server.host":           nil,
	"server.port":           nil,
	"data_dir":              nil,
}

// Loader handles configuration loading
type Loader struct {
	configPath string
	envFile    string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		envFile:    ".env",
	}
}

// WithEnvFile sets the dotenv file read before the environment is consulted
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

// Load loads the configuration from file and environment
func (l *Loader) Load() (*Config, error) {
	if err := l.loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix("HANDOFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, fallbacks := range envBindings {
		names := append([]string{"HANDOFF_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, fallbacks...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	configPath := l.GetConfigPath()
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if l.configPath != "" {
			// An explicitly requested file must exist
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".handoff")
	}

	if cfg.Logging.File == "" && cfg.Logging.Dir == "" {
		cfg.Logging.Dir = filepath.Join(cfg.DataDir, "logs")
	}

	cfg.Agent.AuthorizedImports = EnsureBaseImports(cfg.Agent.AuthorizedImports)

	return cfg, nil
}

func (l *Loader) loadEnvFile() error {
	if l.envFile == "" {
		return nil
	}
	if _, err := os.Stat(l.envFile); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	// Variables already set in the environment win over the file
	if err := gotenv.Load(l.envFile); err != nil {
		return fmt.Errorf("failed to load %s: %w", l.envFile, err)
	}
	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".handoff", "handoff.json")
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}
