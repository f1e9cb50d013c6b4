package gateway

import (
	"encoding/json"
	"fmt"
)

// MethodRun is the RPC method that runs one agent task
const MethodRun = "agent.run"

// RPCRequest represents a JSON-RPC 2.0 request
type RPCRequest struct {
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	JSONRPC string `json:"jsonrpc"`
}

// frame is any message the gateway may send: a response, an event or an
// authentication message
type frame struct {
	ID        string          `json:"id,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *RPCError       `json:"error,omitempty"`
	JSONRPC   string          `json:"jsonrpc,omitempty"`
	Event     string          `json:"event,omitempty"`
	Challenge string          `json:"challenge,omitempty"`
	Message   string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface
func (e *RPCError) Error() string {
	return fmt.Sprintf("gateway error %d: %s", e.Code, e.Message)
}

// AuthResponse answers an auth.challenge event
type AuthResponse struct {
	Method    string `json:"method"`
	Signature string `json:"signature"`
}

// Authentication events
const (
	EventAuthChallenge = "auth.challenge"
	EventAuthSuccess   = "auth.success"
	EventAuthFailure   = "auth.failure"
	MethodAuthResponse = "auth.response"
)

// RPC error codes
const (
	ParseError             = -32700
	InvalidRequest         = -32600
	MethodNotFound         = -32601
	InvalidParams          = -32602
	InternalError          = -32603
	AuthenticationRequired = -32001
)
