package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/vietddude/lottowatch/internal/infra/rpc/budget"
	"github.com/vietddude/lottowatch/internal/infra/rpc/provider"
)

// RetryConfig defines retry behavior for a single provider query.
type RetryConfig struct {
	MaxRetries uint64
	Delay      time.Duration
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxRetries: 3,
	Delay:      1 * time.Second,
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionThrottled
	ActionFatal
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionThrottled:
		return "throttled"
	case ActionFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ClassifyError determines the action for a given error.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionRetry // Should not happen
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, budget.ErrExhausted) {
		return ActionFatal
	}

	var rpcErr *provider.RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		// -32700: Parse error, -32600: Invalid Request, -32601: Method not found, -32602: Invalid params
		case -32700, -32600, -32601, -32602:
			return ActionFatal
		}
	}

	if errors.Is(err, provider.ErrRateLimited) {
		return ActionThrottled
	}

	sLower := strings.ToLower(err.Error())
	if strings.Contains(sLower, "too many requests") ||
		strings.Contains(sLower, "rate limit") ||
		strings.Contains(sLower, "quota") ||
		strings.Contains(sLower, "count exceeded") {
		return ActionThrottled
	}

	// Default to Retry (Network, 5xx, malformed responses, etc)
	return ActionRetry
}

// CallWithRetry executes an RPC call and decodes its result into T, retrying
// transient failures (including undecodable results) with a constant delay.
func CallWithRetry[T any](
	ctx context.Context,
	p provider.RPCProvider,
	method string,
	params []any,
	config RetryConfig,
) (T, error) {
	var out T

	delay := config.Delay
	if delay <= 0 {
		delay = time.Millisecond
	}
	backoff := retry.WithMaxRetries(config.MaxRetries, retry.NewConstant(delay))

	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++

		raw, err := p.Call(ctx, method, params)
		if err != nil {
			if ClassifyError(err) == ActionFatal {
				return err
			}
			return retry.RetryableError(err)
		}

		var result T
		if err := decodeResult(raw, &result); err != nil {
			return retry.RetryableError(fmt.Errorf("malformed %s result: %w", method, err))
		}
		out = result
		return nil
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed after %d attempts: %w", attempts, err)
	}

	return out, nil
}

func decodeResult(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return errors.New("empty result")
	}
	return json.Unmarshal(raw, v)
}
