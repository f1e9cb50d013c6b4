package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validator validates individual configuration values. Unlike
// Config.Validate it collects every problem instead of stopping early.
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateTemperature validates a sampling temperature
func (v *Validator) ValidateTemperature(temp float64) error {
	if temp < 0 || temp > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", temp)
	}
	return nil
}

// ValidateTopP validates a nucleus sampling value
func (v *Validator) ValidateTopP(topP float64) error {
	if topP <= 0 || topP > 1 {
		return fmt.Errorf("top_p must be in (0, 1], got %g", topP)
	}
	return nil
}

// ValidateAPIBase validates the model API base URL
func (v *Validator) ValidateAPIBase(base string) error {
	if base == "" {
		return nil
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid api_base %q: must be an http(s) URL", base)
	}
	return nil
}

// ValidateGatewayURL validates the websocket URL of the gateway runtime
func (v *Validator) ValidateGatewayURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "ws" && u.Scheme != "wss") {
		return fmt.Errorf("invalid gateway_url %q: must be a ws(s) URL", raw)
	}
	return nil
}

// ValidateImport validates a Python module name
func (v *Validator) ValidateImport(name string) error {
	if name == "" {
		return fmt.Errorf("authorized import cannot be empty")
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return fmt.Errorf("invalid authorized import %q", name)
		}
		for i, r := range part {
			letter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
			digit := r >= '0' && r <= '9'
			if !letter && !(digit && i > 0) {
				return fmt.Errorf("invalid authorized import %q", name)
			}
		}
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidatePort validates a TCP port
func (v *Validator) ValidatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port %d", port)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := cfg.Validate(); err != nil {
		errors = append(errors, err)
	}

	if err := v.ValidateTemperature(cfg.Model.Temperature); err != nil {
		errors = append(errors, fmt.Errorf("model: %w", err))
	}
	if err := v.ValidateTopP(cfg.Model.TopP); err != nil {
		errors = append(errors, fmt.Errorf("model: %w", err))
	}
	if err := v.ValidateAPIBase(cfg.Model.APIBase); err != nil {
		errors = append(errors, fmt.Errorf("model: %w", err))
	}

	for _, name := range cfg.Agent.AuthorizedImports {
		if err := v.ValidateImport(name); err != nil {
			errors = append(errors, fmt.Errorf("agent: %w", err))
		}
	}

	if cfg.Runtime.Kind == RuntimeGateway && cfg.Runtime.GatewayURL != "" {
		if err := v.ValidateGatewayURL(cfg.Runtime.GatewayURL); err != nil {
			errors = append(errors, fmt.Errorf("runtime: %w", err))
		}
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}
	if cfg.Logging.FileLevel != "" {
		if err := v.ValidateLogLevel(cfg.Logging.FileLevel); err != nil {
			errors = append(errors, fmt.Errorf("file_level: %w", err))
		}
	}

	if err := v.ValidatePort(cfg.Server.Port); err != nil {
		errors = append(errors, err)
	}

	return errors
}
