package budget

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/vietddude/lottowatch/internal/infra/rpc/provider"
)

// ErrExhausted is returned when a call is refused because the window's budget is spent.
var ErrExhausted = errors.New("call budget exhausted")

// BudgetedProvider charges every call, retries included, against a RateLimiter.
type BudgetedProvider struct {
	inner   provider.RPCProvider
	limiter *RateLimiter
}

// NewBudgetedProvider wraps p so that each Call consumes one unit of l.
func NewBudgetedProvider(p provider.RPCProvider, l *RateLimiter) *BudgetedProvider {
	return &BudgetedProvider{inner: p, limiter: l}
}

// Call forwards to the wrapped provider, or returns ErrExhausted without
// touching the network when the budget is spent.
func (p *BudgetedProvider) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if !p.limiter.TryAcquire() {
		return nil, ErrExhausted
	}
	return p.inner.Call(ctx, method, params)
}

func (p *BudgetedProvider) GetName() string {
	return p.inner.GetName()
}

func (p *BudgetedProvider) GetHealth() provider.HealthStatus {
	return p.inner.GetHealth()
}

func (p *BudgetedProvider) Close() error {
	return p.inner.Close()
}
