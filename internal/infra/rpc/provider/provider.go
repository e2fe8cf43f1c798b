// Package provider implements the JSON-RPC transport to the chain node.
//
// This package contains:
//   - RPCProvider interface: the call surface used by the event source
//   - HTTPProvider: JSON-RPC 2.0 over HTTP with health accounting
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrRateLimited is returned when the node answers 429.
var ErrRateLimited = errors.New("rate limited (429)")

// RPCProvider makes JSON-RPC calls against a node.
type RPCProvider interface {
	// GetName returns provider identifier (e.g., "alchemy", "infura")
	GetName() string

	// Call makes a single RPC request and returns the raw result
	Call(ctx context.Context, method string, params []any) (json.RawMessage, error)

	// GetHealth returns current health metrics
	GetHealth() HealthStatus

	// Close cleans up resources
	Close() error
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	Requests      int           `json:"requests"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
	RetryAfter    string        `json:"retry_after,omitempty"`
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
