// Package gateway is a runtime.Runtime that hands tasks to a remote agent
// gateway over a WebSocket using JSON-RPC 2.0.
//
// Each Run dials its own connection, answers the gateway's authentication
// challenge when a shared secret is configured, sends one agent.run request
// and waits for the response carrying the same id. Event frames that arrive
// in between are logged and skipped.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harun/handoff/internal/tracing"
	"github.com/harun/handoff/pkg/runtime"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// ErrAuthFailed is returned when the gateway rejects the client
var ErrAuthFailed = errors.New("gateway authentication failed")

// Config configures the gateway client
type Config struct {
	URL              string
	Secret           string
	HandshakeTimeout time.Duration
	Model            runtime.ModelOptions
}

// Runtime is a runtime.Runtime backed by a remote gateway
type Runtime struct {
	cfg    Config
	dialer *websocket.Dialer
	logger zerolog.Logger
}

// runParams are the params of an agent.run request
type runParams struct {
	runtime.Request
	Model runtime.ModelOptions `json:"model"`
}

// New creates a gateway runtime
func New(cfg Config, logger zerolog.Logger) (*Runtime, error) {
	if cfg.URL == "" {
		return nil, errors.New("gateway url is required")
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}

	return &Runtime{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger: logger.With().Str("component", "runtime.gateway").Str("url", cfg.URL).Logger(),
	}, nil
}

// Run sends req as an agent.run call and waits for its answer
func (r *Runtime) Run(ctx context.Context, req runtime.Request) (any, error) {
	header := http.Header{}
	if traceID := tracing.GetTraceID(ctx); traceID != "" {
		header.Set("X-Trace-Id", traceID)
	}

	conn, resp, err := r.dialer.DialContext(ctx, r.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect to gateway (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to connect to gateway: %w", err)
	}
	defer conn.Close()

	// Unblock pending reads when the caller gives up
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	logger := tracing.LoggerFromContext(ctx, r.logger)

	if r.cfg.Secret != "" {
		if err := r.authenticate(conn); err != nil {
			return nil, r.contextError(ctx, err)
		}
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request id: %w", err)
	}

	call := RPCRequest{
		ID:      id,
		Method:  MethodRun,
		Params:  runParams{Request: req, Model: r.cfg.Model},
		JSONRPC: "2.0",
	}
	if err := conn.WriteJSON(call); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	logger.Debug().Str("request_id", id).Int("max_steps", req.MaxSteps).Msg("Sent agent.run request")

	for {
		var msg frame
		if err := conn.ReadJSON(&msg); err != nil {
			return nil, r.contextError(ctx, fmt.Errorf("failed to read from gateway: %w", err))
		}

		if msg.Event != "" {
			logger.Debug().Str("event", msg.Event).Msg("Skipping gateway event")
			continue
		}
		// Errors the gateway cannot tie to a request carry no id
		if msg.ID == "" && msg.Error != nil {
			return nil, msg.Error
		}
		if msg.ID != id {
			logger.Warn().Str("id", msg.ID).Msg("Skipping response for unknown request")
			continue
		}

		if msg.Error != nil {
			return nil, msg.Error
		}
		if len(msg.Result) == 0 {
			return nil, runtime.ErrNoOutput
		}

		var output any
		if err := json.Unmarshal(msg.Result, &output); err != nil {
			return nil, fmt.Errorf("failed to decode agent output: %w", err)
		}
		return output, nil
	}
}

// authenticate answers the challenge the gateway sends on connect
func (r *Runtime) authenticate(conn *websocket.Conn) error {
	for {
		var msg frame
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("failed to read auth frame: %w", err)
		}

		switch msg.Event {
		case EventAuthChallenge:
			if err := conn.WriteJSON(AuthResponse{
				Method:    MethodAuthResponse,
				Signature: Sign(r.cfg.Secret, msg.Challenge),
			}); err != nil {
				return fmt.Errorf("failed to send auth response: %w", err)
			}
		case EventAuthSuccess:
			return nil
		case EventAuthFailure:
			return fmt.Errorf("%w: %s", ErrAuthFailed, msg.Message)
		default:
			r.logger.Debug().Str("event", msg.Event).Msg("Skipping frame before authentication")
		}
	}
}

func (r *Runtime) contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
