package memory

import (
	"context"
	"sync"
)

// Store keeps the watermark and delivery ledger in process memory.
type Store struct {
	mu        sync.RWMutex
	watermark uint64
	has       bool
	delivered map[string]struct{}
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{delivered: make(map[string]struct{})}
}

func (s *Store) Load(ctx context.Context) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watermark, s.has, nil
}

func (s *Store) Save(ctx context.Context, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watermark = block
	s.has = true
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watermark = 0
	s.has = false
	return nil
}

func (s *Store) MarkDelivered(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.delivered[key]; ok {
		return false, nil
	}
	s.delivered[key] = struct{}{}
	return true, nil
}

func (s *Store) Delivered(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.delivered[key]
	return ok, nil
}

func (s *Store) Close() error { return nil }
