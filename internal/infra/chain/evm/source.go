// Package evm fetches contract logs from an EVM JSON-RPC node.
package evm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vietddude/lottowatch/internal/core/domain"
	"github.com/vietddude/lottowatch/internal/indexing/metrics"
	"github.com/vietddude/lottowatch/internal/infra/rpc/budget"
	"github.com/vietddude/lottowatch/internal/infra/rpc/provider"
	"github.com/vietddude/lottowatch/internal/infra/rpc/routing"
)

// Config holds event source settings.
type Config struct {
	Contract      common.Address
	Topics        map[domain.Kind]common.Hash
	Confirmations uint64
	Retry         routing.RetryConfig
}

// KindLogs is the outcome of the log query for one kind.
type KindLogs struct {
	Kind     domain.Kind
	Logs     []types.Log
	Err      error
	Deferred bool
}

// FetchResult holds the per-kind outcomes for one chunk, in request order.
type FetchResult struct {
	Chunk domain.Chunk
	Kinds []KindLogs
}

// Incomplete reports whether any kind failed or was deferred.
func (r FetchResult) Incomplete() bool {
	for _, k := range r.Kinds {
		if k.Err != nil || k.Deferred {
			return true
		}
	}
	return false
}

// Deferred reports whether the call budget cut the fetch short.
func (r FetchResult) Deferred() bool {
	for _, k := range r.Kinds {
		if k.Deferred {
			return true
		}
	}
	return false
}

// Source queries the contract logs of each event kind through a budgeted provider.
// limiter is kept for usage reporting; the provider does the charging.
type Source struct {
	provider provider.RPCProvider
	limiter  *budget.RateLimiter
	cfg      Config
	log      *slog.Logger
}

// NewSource creates an event source. Every call to p, retries included, is
// charged against limiter.
func NewSource(p provider.RPCProvider, limiter *budget.RateLimiter, cfg Config) *Source {
	return &Source{
		provider: budget.NewBudgetedProvider(p, limiter),
		limiter:  limiter,
		cfg:      cfg,
		log:      slog.Default().With("component", "evm-source"),
	}
}

// Head returns the latest block minus the confirmation lag. deferred is true
// when the call budget runs out before an attempt succeeds.
func (s *Source) Head(ctx context.Context) (head uint64, deferred bool, err error) {
	start := time.Now()
	latest, err := routing.CallWithRetry[hexutil.Uint64](ctx, s.provider, "eth_blockNumber", nil, s.cfg.Retry)
	if errors.Is(err, budget.ErrExhausted) {
		metrics.BudgetDeferrals.Inc()
		return 0, true, nil
	}
	s.observe("eth_blockNumber", start)
	if err != nil {
		metrics.RPCErrorsTotal.WithLabelValues(s.provider.GetName(), "head").Inc()
		return 0, false, &domain.ProviderError{Scope: "head", Err: err}
	}

	if uint64(latest) < s.cfg.Confirmations {
		return 0, false, nil
	}
	head = uint64(latest) - s.cfg.Confirmations
	metrics.ChainHead.Set(float64(head))
	return head, false, nil
}

// Fetch issues one log query per kind over chunk. A failing kind does not
// affect the others. Once the budget is spent, the kind being queried and the
// remaining kinds are marked deferred without further queries.
func (s *Source) Fetch(ctx context.Context, kinds []domain.Kind, chunk domain.Chunk) FetchResult {
	result := FetchResult{Chunk: chunk, Kinds: make([]KindLogs, 0, len(kinds))}

	exhausted := false
	for _, kind := range kinds {
		if exhausted {
			metrics.BudgetDeferrals.Inc()
			result.Kinds = append(result.Kinds, KindLogs{Kind: kind, Deferred: true})
			continue
		}

		logs, err := s.fetchKind(ctx, kind, chunk)
		if errors.Is(err, budget.ErrExhausted) {
			exhausted = true
			metrics.BudgetDeferrals.Inc()
			result.Kinds = append(result.Kinds, KindLogs{Kind: kind, Deferred: true})
			continue
		}
		if err != nil {
			metrics.RPCErrorsTotal.WithLabelValues(s.provider.GetName(), kind.String()).Inc()
			s.log.Warn("Log query failed", "kind", kind, "chunk", chunk, "error", err)
			result.Kinds = append(result.Kinds, KindLogs{Kind: kind, Err: &domain.ProviderError{Scope: kind.String(), Err: err}})
			continue
		}
		result.Kinds = append(result.Kinds, KindLogs{Kind: kind, Logs: logs})
	}

	if exhausted {
		s.log.Info("Call budget exhausted, chunk deferred", "chunk", chunk, "next_reset", s.limiter.Usage().NextResetAt)
	}
	metrics.BudgetRemaining.Set(float64(s.limiter.Usage().RemainingCalls))
	return result
}

func (s *Source) fetchKind(ctx context.Context, kind domain.Kind, chunk domain.Chunk) ([]types.Log, error) {
	topic, ok := s.cfg.Topics[kind]
	if !ok {
		return nil, fmt.Errorf("no topic configured for %s", kind)
	}

	filter := map[string]any{
		"address":   s.cfg.Contract.Hex(),
		"fromBlock": hexutil.EncodeUint64(chunk.From),
		"toBlock":   hexutil.EncodeUint64(chunk.To),
		"topics":    []string{topic.Hex()},
	}

	start := time.Now()
	logs, err := routing.CallWithRetry[[]types.Log](ctx, s.provider, "eth_getLogs", []any{filter}, s.cfg.Retry)
	if errors.Is(err, budget.ErrExhausted) {
		return nil, err
	}
	s.observe("eth_getLogs", start)
	if err != nil {
		return nil, err
	}

	kept := logs[:0]
	for _, l := range logs {
		if l.Removed {
			s.log.Debug("Skipping removed log", "kind", kind, "tx", l.TxHash.Hex(), "index", l.Index)
			continue
		}
		kept = append(kept, l)
	}
	return kept, nil
}

func (s *Source) observe(method string, start time.Time) {
	name := s.provider.GetName()
	metrics.RPCCallsTotal.WithLabelValues(name, method).Inc()
	metrics.RPCLatency.WithLabelValues(name, method).Observe(time.Since(start).Seconds())
}
