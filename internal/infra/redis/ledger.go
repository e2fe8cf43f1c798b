package redis

import (
	"context"
	"fmt"
	"time"
)

// DefaultDedupeTTL bounds how long a delivered key is remembered.
const DefaultDedupeTTL = 7 * 24 * time.Hour

// Ledger implements storage.DeliveryLedger with SETNX keys that expire.
type Ledger struct {
	client *Client
	ttl    time.Duration
}

// NewLedger creates a delivery ledger.
func NewLedger(client *Client, ttl time.Duration) *Ledger {
	if ttl <= 0 {
		ttl = DefaultDedupeTTL
	}
	return &Ledger{client: client, ttl: ttl}
}

func (l *Ledger) MarkDelivered(ctx context.Context, key string) (bool, error) {
	ok, err := l.client.rdb.SetNX(ctx, key, time.Now().Unix(), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

func (l *Ledger) Delivered(ctx context.Context, key string) (bool, error) {
	n, err := l.client.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("exists failed: %w", err)
	}
	return n > 0, nil
}
