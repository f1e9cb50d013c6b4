// Package server exposes the orchestrator over HTTP. Every POST /v1/runs
// request is one independent run; requests are served concurrently.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/harun/handoff/internal/metrics"
	"github.com/harun/handoff/internal/tracing"
	"github.com/harun/handoff/pkg/orchestrator"
	"github.com/harun/handoff/pkg/vars"
	"github.com/rs/zerolog"
)

// Runner executes one run. *orchestrator.Orchestrator satisfies it.
type Runner interface {
	RunVariables(ctx context.Context, task string, variables []orchestrator.Variable, maxSteps int) orchestrator.Result
}

// Config holds server configuration
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	MetricsPath     string

	// RequestsPerMinute and MaxConcurrentRuns bound admitted runs; zero disables a limit
	RequestsPerMinute int
	MaxConcurrentRuns int

	Runner  Runner
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

// Server serves runs over HTTP
type Server struct {
	cfg     Config
	mux     *http.ServeMux
	limiter *RunLimiter
	logger  zerolog.Logger
}

// New creates a server. Metrics are served only when cfg.Metrics is set.
func New(cfg Config) (*Server, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 20
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	s := &Server{
		cfg:     cfg,
		mux:     http.NewServeMux(),
		limiter: NewRunLimiter(cfg.RequestsPerMinute, cfg.MaxConcurrentRuns),
		logger:  cfg.Logger.With().Str("component", "server").Logger(),
	}

	s.mux.HandleFunc("POST /v1/runs", s.handleRun)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if cfg.Metrics != nil {
		s.mux.Handle("GET "+cfg.MetricsPath, cfg.Metrics.Handler())
	}

	return s, nil
}

// Handler returns the server's routes
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// ListenAndServe serves until ctx is canceled, then drains in-flight runs
// for at most ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("Shutdown timeout reached, forcing close")
		_ = srv.Close()
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-Id")
	if requestID == "" {
		requestID = tracing.NewTraceID()
	}
	ctx := tracing.WithRequestID(tracing.NewRequestContext(r.Context()), requestID)
	logger := tracing.LoggerFromContext(ctx, s.logger)
	w.Header().Set("X-Request-Id", requestID)

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, RunResponse{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, RunResponse{Error: err.Error()})
		return
	}

	req, err := decodeRunRequest(data)
	if err != nil {
		logger.Debug().Err(err).Msg("Rejected run request")
		writeJSON(w, http.StatusBadRequest, RunResponse{Error: err.Error()})
		return
	}

	variables, err := req.toVariables()
	if err != nil {
		logger.Debug().Err(err).Msg("Rejected run request")
		writeJSON(w, http.StatusBadRequest, RunResponse{Error: err.Error()})
		return
	}

	if ok, reason := s.limiter.Acquire(); !ok {
		logger.Warn().Str("reason", reason).Msg("Run refused")
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusTooManyRequests, RunResponse{Error: reason})
		return
	}
	defer s.limiter.Release()

	logger.Info().Int("variables", len(variables)).Msg("Run requested")

	result := s.cfg.Runner.RunVariables(ctx, req.Task, variables, req.MaxSteps)

	resp := RunResponse{
		RunID:      result.RunID,
		DurationMS: result.Duration.Milliseconds(),
	}
	for _, warning := range result.CleanupWarnings {
		resp.CleanupWarnings = append(resp.CleanupWarnings, warning.Error())
	}

	if result.Failed() {
		resp.Error = result.Err.Error()
		writeJSON(w, statusFor(result.Err), resp)
		return
	}

	resp.Output = result.Output
	writeJSON(w, http.StatusOK, resp)
}

// statusFor maps a run error to an HTTP status.
func statusFor(err error) int {
	var serErr *vars.SerializationError
	var rtErr *orchestrator.RuntimeError

	switch {
	case errors.Is(err, vars.ErrInvalidName), errors.As(err, &serErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &rtErr):
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
