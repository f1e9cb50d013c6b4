package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/harun/handoff/internal/metrics"
	"github.com/harun/handoff/internal/tracing"
	"github.com/harun/handoff/pkg/instructions"
	"github.com/harun/handoff/pkg/runtime"
	"github.com/harun/handoff/pkg/vars"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "handoff.orchestrator"

// DefaultMaxSteps is used when neither the call nor the config sets a step limit
const DefaultMaxSteps = 10

// Placement decides where the instruction block goes relative to the task.
type Placement string

const (
	// PlacementAppend puts the instruction block after the task
	PlacementAppend Placement = "append"
	// PlacementPrepend puts the instruction block before the task
	PlacementPrepend Placement = "prepend"
)

// baseImports are always authorized since every loader template uses them.
var baseImports = []string{"pathlib", "json"}

// Orchestrator hands variables to an agent runtime through temp files
type Orchestrator struct {
	store             *vars.Store
	builder           *instructions.Builder
	runtime           runtime.Runtime
	metrics           *metrics.Metrics
	logger            zerolog.Logger
	placement         Placement
	maxSteps          int
	authorizedImports []string
}

// Config holds orchestrator configuration
type Config struct {
	Store             *vars.Store
	Builder           *instructions.Builder
	Runtime           runtime.Runtime
	Metrics           *metrics.Metrics
	Logger            zerolog.Logger
	Placement         Placement
	MaxSteps          int
	AuthorizedImports []string
}

// New creates an orchestrator. Store and Builder default to a store in the
// OS temp dir and the standard instruction templates.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Runtime == nil {
		return nil, fmt.Errorf("agent runtime is required")
	}

	switch cfg.Placement {
	case "":
		cfg.Placement = PlacementAppend
	case PlacementAppend, PlacementPrepend:
	default:
		return nil, fmt.Errorf("invalid placement: %s", cfg.Placement)
	}

	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}

	store := cfg.Store
	if store == nil {
		var err error
		store, err = vars.NewStore("", cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create temp store: %w", err)
		}
	}

	builder := cfg.Builder
	if builder == nil {
		var err error
		builder, err = instructions.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create instruction builder: %w", err)
		}
	}

	return &Orchestrator{
		store:             store,
		builder:           builder,
		runtime:           cfg.Runtime,
		metrics:           cfg.Metrics,
		logger:            cfg.Logger,
		placement:         cfg.Placement,
		maxSteps:          cfg.MaxSteps,
		authorizedImports: cfg.AuthorizedImports,
	}, nil
}

// Run executes task with bindings handed over as files. Variables are
// processed in name order so the instruction block is reproducible.
func (o *Orchestrator) Run(ctx context.Context, task string, bindings map[string]any, maxSteps int) Result {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	variables := make([]Variable, 0, len(names))
	for _, name := range names {
		variables = append(variables, Variable{Name: name, Value: bindings[name]})
	}

	return o.RunVariables(ctx, task, variables, maxSteps)
}

// stored is a variable that has been written to disk for the current run.
type stored struct {
	name string
	kind vars.Kind
	path string
}

// RunVariables executes task with variables in the order given.
func (o *Orchestrator) RunVariables(ctx context.Context, task string, variables []Variable, maxSteps int) (result Result) {
	start := time.Now()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = tracing.NewRunContext(ctx)
	ctx, span := tracing.StartSpan(
		ctx,
		tracerName,
		"orchestrator.run",
		attribute.Int("variables", len(variables)),
	)
	defer span.End()

	runID := tracing.GetRunID(ctx)
	logger := tracing.LoggerFromContext(ctx, o.logger)
	result.RunID = runID

	var files []stored
	defer func() {
		if r := recover(); r != nil {
			result.Output = nil
			result.Err = fmt.Errorf("run panicked: %v", r)
		}
		result.CleanupWarnings = o.cleanup(logger, files)
		result.Duration = time.Since(start)
		o.metrics.RecordRun(result.Failed(), result.Duration)

		if result.Failed() {
			span.RecordError(result.Err)
			span.SetStatus(codes.Error, result.Err.Error())
			logger.Error().Err(result.Err).Dur("duration", result.Duration).Msg("Run failed")
			return
		}
		logger.Info().Dur("duration", result.Duration).Msg("Run completed")
	}()

	if err := o.storeAll(ctx, logger, variables, &files); err != nil {
		result.Err = err
		return result
	}

	bindings := make([]instructions.Binding, 0, len(files))
	args := make(map[string]string, len(files))
	for _, f := range files {
		bindings = append(bindings, instructions.Binding{Name: f.name, Kind: f.kind})
		args[f.name] = f.path
	}

	if maxSteps <= 0 {
		maxSteps = o.maxSteps
	}

	req := runtime.Request{
		Prompt:            o.assemble(task, bindings),
		Args:              args,
		MaxSteps:          maxSteps,
		AuthorizedImports: o.imports(files),
	}

	if err := ctx.Err(); err != nil {
		result.Err = fmt.Errorf("run canceled before delegation: %w", err)
		return result
	}

	output, err := o.delegate(ctx, logger, req)
	if err != nil {
		result.Err = err
		return result
	}

	result.Output = output
	return result
}

// storeAll classifies and stores each variable, appending every written file
// to files as it goes so cleanup sees them even if a later variable panics.
func (o *Orchestrator) storeAll(ctx context.Context, logger zerolog.Logger, variables []Variable, files *[]stored) error {
	_, span := tracing.StartSpan(ctx, tracerName, "orchestrator.store")
	defer span.End()

	seen := make(map[string]bool, len(variables))

	for _, v := range variables {
		if seen[v.Name] {
			return fmt.Errorf("%w: duplicate name %q", vars.ErrInvalidName, v.Name)
		}
		seen[v.Name] = true

		kind, _ := vars.Classify(v.Value)
		path, err := o.store.Put(v.Name, v.Value, kind)
		if err != nil {
			o.metrics.RecordSerializationError(kind.String())
			span.RecordError(err)
			return err
		}
		o.metrics.RecordStored(kind.String())

		logger.Debug().
			Str("variable", v.Name).
			Str("kind", kind.String()).
			Str("path", path).
			Msg("Variable handed over as file")

		*files = append(*files, stored{name: v.Name, kind: kind, path: path})
	}

	return nil
}

// assemble joins the task and the instruction block according to placement.
func (o *Orchestrator) assemble(task string, bindings []instructions.Binding) string {
	block := o.builder.Build(bindings)
	if o.placement == PlacementPrepend {
		return block + "\n" + task
	}
	return task + block
}

// kindImports are the modules the loader templates need per kind
var kindImports = map[vars.Kind]string{
	vars.KindArray: "numpy",
	vars.KindTable: "pandas",
}

// imports returns the authorized imports for a run without duplicates.
// Kind modules follow vars.Kinds() order regardless of variable order.
func (o *Orchestrator) imports(files []stored) []string {
	result := []string{}
	seen := map[string]bool{}
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			result = append(result, name)
		}
	}

	for _, name := range o.authorizedImports {
		add(name)
	}
	for _, name := range baseImports {
		add(name)
	}
	bound := make(map[vars.Kind]bool, len(files))
	for _, f := range files {
		bound[f.kind] = true
	}
	for _, kind := range vars.Kinds() {
		if bound[kind] {
			add(kindImports[kind])
		}
	}

	return result
}

// delegate calls the runtime and converts errors and panics into a RuntimeError.
func (o *Orchestrator) delegate(ctx context.Context, logger zerolog.Logger, req runtime.Request) (output any, err error) {
	ctx, span := tracing.StartSpan(
		ctx,
		tracerName,
		"orchestrator.delegate",
		attribute.Int("max_steps", req.MaxSteps),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			output = nil
			err = &RuntimeError{Err: fmt.Errorf("panic: %v", r)}
			span.RecordError(err)
		}
	}()

	logger.Info().
		Int("variables", len(req.Args)).
		Int("max_steps", req.MaxSteps).
		Msg("Delegating to agent runtime")

	output, err = o.runtime.Run(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, &RuntimeError{Err: err}
	}

	return output, nil
}

// cleanup removes every stored file, logging failures without returning them as errors.
func (o *Orchestrator) cleanup(logger zerolog.Logger, files []stored) []error {
	var warnings []error

	for _, f := range files {
		if err := o.store.Remove(f.path); err != nil {
			o.metrics.RecordCleanupFailure()
			logger.Warn().Err(err).Str("path", f.path).Msg("Failed to remove temp file")
			warnings = append(warnings, err)
		}
	}

	return warnings
}
