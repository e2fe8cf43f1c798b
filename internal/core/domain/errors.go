package domain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrConfig marks configuration that prevents startup.
	ErrConfig = errors.New("invalid configuration")

	// ErrProvider marks an RPC failure that survived its retries.
	ErrProvider = errors.New("provider error")

	// ErrDecode marks a log that could not be decoded.
	ErrDecode = errors.New("decode error")

	// ErrDelivery marks a failed webhook post.
	ErrDelivery = errors.New("delivery error")
)

// ConfigError reports an invalid or missing configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// ProviderError reports a failed provider query. Scope is the event kind for
// log queries, or "head" for the block number query.
type ProviderError struct {
	Scope string
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (%s): %v", e.Scope, e.Err)
}

func (e *ProviderError) Unwrap() []error { return []error{ErrProvider, e.Err} }

// DecodeError reports a log that does not match any known event layout.
type DecodeError struct {
	Topic  common.Hash
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: %s: %v", e.Topic.Hex(), e.Reason, e.Err)
	}
	return fmt.Sprintf("decode %s: %s", e.Topic.Hex(), e.Reason)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDecode}
	}
	return []error{ErrDecode, e.Err}
}

// DeliveryError reports a failed webhook attempt. StatusCode is 0 for transport failures.
type DeliveryError struct {
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("delivery failed: %v", e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("delivery failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("delivery failed with status %d", e.StatusCode)
}

func (e *DeliveryError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDelivery}
	}
	return []error{ErrDelivery, e.Err}
}

