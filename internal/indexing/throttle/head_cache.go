// Package throttle reduces call-budget spend of the event source.
package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/lottowatch/internal/core/domain"
	"github.com/vietddude/lottowatch/internal/infra/chain/evm"
)

// Source is the event source being wrapped.
type Source interface {
	Head(ctx context.Context) (uint64, bool, error)
	Fetch(ctx context.Context, kinds []domain.Kind, chunk domain.Chunk) evm.FetchResult
}

// HeadCache caches the confirmed head of a Source to save head queries while
// the cursor works through a backlog. Deferrals and errors are never cached.
type HeadCache struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	cached   uint64
	cachedAt time.Time
}

// NewHeadCache creates a new head cache with the given TTL.
func NewHeadCache(source Source, ttl time.Duration) *HeadCache {
	return &HeadCache{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Head returns the cached head if within TTL, otherwise queries the source.
func (c *HeadCache) Head(ctx context.Context) (uint64, bool, error) {
	c.mu.RLock()
	if c.cached > 0 && c.now().Sub(c.cachedAt) < c.ttl {
		cached := c.cached
		c.mu.RUnlock()
		return cached, false, nil
	}
	c.mu.RUnlock()

	head, deferred, err := c.source.Head(ctx)
	if err != nil || deferred {
		return head, deferred, err
	}

	c.mu.Lock()
	c.cached = head
	c.cachedAt = c.now()
	c.mu.Unlock()

	return head, false, nil
}

// Fetch passes through to the source.
func (c *HeadCache) Fetch(ctx context.Context, kinds []domain.Kind, chunk domain.Chunk) evm.FetchResult {
	return c.source.Fetch(ctx, kinds, chunk)
}
