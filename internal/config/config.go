package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harun/handoff/pkg/sandbox"
)

// Config represents the main handoff configuration
type Config struct {
	// Model options forwarded to the agent runtime
	Model ModelConfig `json:"model" mapstructure:"model"`

	// Agent run defaults
	Agent AgentConfig `json:"agent" mapstructure:"agent"`

	// Runtime adapter selection
	Runtime RuntimeConfig `json:"runtime" mapstructure:"runtime"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// HTTP server used by `handoff serve`
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ModelConfig holds the model options of a run
type ModelConfig struct {
	ID          string  `json:"id" mapstructure:"id"`
	APIBase     string  `json:"api_base" mapstructure:"api_base"`
	APIKey      string  `json:"api_key" mapstructure:"api_key"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	TopP        float64 `json:"top_p" mapstructure:"top_p"`
	Seed        int     `json:"seed" mapstructure:"seed"`
}

// AgentConfig holds defaults applied to every run
type AgentConfig struct {
	MaxSteps          int      `json:"max_steps" mapstructure:"max_steps"`
	AuthorizedImports []string `json:"authorized_imports" mapstructure:"authorized_imports"`
	Placement         string   `json:"placement" mapstructure:"placement"` // append, prepend
	TempDir           string   `json:"temp_dir" mapstructure:"temp_dir"`
}

// RuntimeConfig selects and configures the agent runtime adapter
type RuntimeConfig struct {
	Kind         string         `json:"kind" mapstructure:"kind"` // command, gateway
	Command      string         `json:"command" mapstructure:"command"`
	Args         []string       `json:"args" mapstructure:"args"`
	Timeout      time.Duration  `json:"timeout" mapstructure:"timeout"`
	GatewayURL   string         `json:"gateway_url" mapstructure:"gateway_url"`
	GatewayToken string         `json:"gateway_token" mapstructure:"gateway_token"`
	Sandbox      sandbox.Config `json:"sandbox" mapstructure:"sandbox"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	FileLevel string `json:"file_level" mapstructure:"file_level"`
	Dir       string `json:"dir" mapstructure:"dir"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host              string        `json:"host" mapstructure:"host"`
	Port              int           `json:"port" mapstructure:"port"`
	ReadTimeout       time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxBodyBytes      int64         `json:"max_body_bytes" mapstructure:"max_body_bytes"`
	RequestsPerMinute int           `json:"requests_per_minute" mapstructure:"requests_per_minute"` // 0 = unlimited
	MaxConcurrentRuns int           `json:"max_concurrent_runs" mapstructure:"max_concurrent_runs"` // 0 = unlimited
}

// Runtime kinds
const (
	RuntimeCommand = "command"
	RuntimeGateway = "gateway"
)

// Prompt placements
const (
	PlacementAppend  = "append"
	PlacementPrepend = "prepend"
)

// BaseImports are always authorized since the loading snippets use them
var BaseImports = []string{"pathlib", "json"}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Temperature: 1.0,
			TopP:        1.0,
			Seed:        42,
		},
		Agent: AgentConfig{
			MaxSteps:          10,
			AuthorizedImports: append([]string(nil), BaseImports...),
			Placement:         PlacementAppend,
		},
		Runtime: RuntimeConfig{
			Kind:    RuntimeCommand,
			Command: "handoff-agent",
			Timeout: 10 * time.Minute,
			Sandbox: sandbox.DefaultConfig(),
		},
		Logging: LoggingConfig{
			Level:     "info",
			FileLevel: "debug",
			Console:   true,
			Pretty:    true,
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              8080,
			ReadTimeout:       30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			MaxBodyBytes:      64 << 20,
			MaxConcurrentRuns: 8,
		},
	}
}

// String returns a JSON representation of the config with the API key masked
func (c *Config) String() string {
	masked := *c
	if masked.Model.APIKey != "" {
		masked.Model.APIKey = "***"
	}
	if masked.Runtime.GatewayToken != "" {
		masked.Runtime.GatewayToken = "***"
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("agent.max_steps must be positive, got %d", c.Agent.MaxSteps)
	}

	switch c.Agent.Placement {
	case PlacementAppend, PlacementPrepend:
	default:
		return fmt.Errorf("invalid agent.placement %q (must be: append, prepend)", c.Agent.Placement)
	}

	switch c.Runtime.Kind {
	case RuntimeCommand:
		if strings.TrimSpace(c.Runtime.Command) == "" {
			return fmt.Errorf("runtime.command is required for the command runtime")
		}
		if err := sandbox.ValidateConfig(c.Runtime.Sandbox); err != nil {
			return fmt.Errorf("runtime.sandbox: %w", err)
		}
	case RuntimeGateway:
		if strings.TrimSpace(c.Runtime.GatewayURL) == "" {
			return fmt.Errorf("runtime.gateway_url is required for the gateway runtime")
		}
	default:
		return fmt.Errorf("invalid runtime.kind %q (must be: command, gateway)", c.Runtime.Kind)
	}

	if c.Runtime.Timeout < 0 {
		return fmt.Errorf("runtime.timeout must be >= 0")
	}

	if c.Server.RequestsPerMinute < 0 || c.Server.MaxConcurrentRuns < 0 {
		return fmt.Errorf("server limits must be >= 0")
	}

	return nil
}

// EnsureBaseImports adds the always-authorized modules missing from imports
func EnsureBaseImports(imports []string) []string {
	seen := make(map[string]bool, len(imports))
	out := make([]string, 0, len(imports)+len(BaseImports))
	for _, name := range imports {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	for _, name := range BaseImports {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
