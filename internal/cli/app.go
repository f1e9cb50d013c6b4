package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/harun/handoff/internal/config"
	"github.com/harun/handoff/internal/logger"
	"github.com/harun/handoff/internal/metrics"
	"github.com/harun/handoff/internal/tracing"
	"github.com/harun/handoff/pkg/orchestrator"
	"github.com/harun/handoff/pkg/runtime"
	"github.com/harun/handoff/pkg/runtime/command"
	"github.com/harun/handoff/pkg/runtime/gateway"
	"github.com/harun/handoff/pkg/sandbox"
	"github.com/harun/handoff/pkg/vars"
	"github.com/spf13/cobra"
)

const serviceName = "handoff"

// app is the wiring shared by the commands that execute runs
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	closers []func(context.Context) error
}

// loadConfig loads and validates the configuration. Problems the validator
// finds beyond Validate are returned as warnings.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, []error, error) {
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return nil, nil, err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, config.NewValidator().ValidateConfig(cfg), nil
}

// newApp loads the configuration and sets up logging, tracing and metrics.
func newApp(cmd *cobra.Command, opts *options) (*app, error) {
	cfg, warnings, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(loggerConfig(cfg.Logging))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	for _, w := range warnings {
		log.Warn().Err(w).Msg("Configuration warning")
	}

	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func(context.Context) error { return log.Close() })

	if err := tracing.InitOpenTelemetry(serviceName); err != nil {
		log.Warn().Err(err).Msg("OpenTelemetry disabled")
	} else {
		a.closers = append(a.closers, tracing.ShutdownOpenTelemetry)
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewMetrics()
	}

	return a, nil
}

// Close releases everything the app opened, newest first
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Warn().Err(err).Msg("Shutdown step failed")
		}
	}
}

func loggerConfig(cfg config.LoggingConfig) logger.Config {
	return logger.Config{
		Level:     cfg.Level,
		FileLevel: cfg.FileLevel,
		Dir:       cfg.Dir,
		File:      cfg.File,
		Console:   cfg.Console,
		Pretty:    cfg.Pretty,
		Redaction: cfg.Redaction,
		MaxSize:   cfg.MaxSize,
		MaxAge:    cfg.MaxAge,
		Compress:  cfg.Compress,
	}
}

func modelOptions(cfg config.ModelConfig) runtime.ModelOptions {
	return runtime.ModelOptions{
		Model:       cfg.ID,
		APIBase:     cfg.APIBase,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		Seed:        cfg.Seed,
	}
}

// newRuntime builds the runtime adapter selected by runtime.kind
func (a *app) newRuntime(ctx context.Context) (runtime.Runtime, error) {
	rc := a.cfg.Runtime
	zl := a.log.GetZerolog()

	switch rc.Kind {
	case config.RuntimeCommand:
		sb, err := sandbox.New(rc.Sandbox, zl)
		if err != nil {
			return nil, fmt.Errorf("failed to create sandbox: %w", err)
		}
		rt, err := command.New(ctx, sb, command.Config{
			Command: rc.Command,
			Args:    rc.Args,
			Timeout: rc.Timeout,
			APIKey:  a.cfg.Model.APIKey,
			Model:   modelOptions(a.cfg.Model),
		}, zl)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rt.Close)
		return rt, nil

	case config.RuntimeGateway:
		rt, err := gateway.New(gateway.Config{
			URL:    rc.GatewayURL,
			Secret: rc.GatewayToken,
			Model:  modelOptions(a.cfg.Model),
		}, zl)
		if err != nil {
			return nil, err
		}
		return withTimeout(rt, rc.Timeout), nil
	}

	return nil, fmt.Errorf("unknown runtime kind %q", rc.Kind)
}

// withTimeout bounds every call to rt by d. A zero d means no bound.
func withTimeout(rt runtime.Runtime, d time.Duration) runtime.Runtime {
	if d <= 0 {
		return rt
	}
	return runtime.Func(func(ctx context.Context, req runtime.Request) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return rt.Run(ctx, req)
	})
}

// newOrchestrator wires a store, the runtime and the config defaults
func (a *app) newOrchestrator(rt runtime.Runtime) (*orchestrator.Orchestrator, error) {
	zl := a.log.GetZerolog()

	store, err := vars.NewStore(a.cfg.Agent.TempDir, zl)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp store: %w", err)
	}

	return orchestrator.New(orchestrator.Config{
		Store:             store,
		Runtime:           rt,
		Metrics:           a.metrics,
		Logger:            zl,
		Placement:         orchestrator.Placement(a.cfg.Agent.Placement),
		MaxSteps:          a.cfg.Agent.MaxSteps,
		AuthorizedImports: a.cfg.Agent.AuthorizedImports,
	})
}
