package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// WatermarkStore implements storage.WatermarkStore on a Redis string key.
type WatermarkStore struct {
	client *Client
	key    string
}

// NewWatermarkStore creates a watermark store for contract.
func NewWatermarkStore(client *Client, contract string) *WatermarkStore {
	return &WatermarkStore{client: client, key: watermarkKey(contract)}
}

func (s *WatermarkStore) Load(ctx context.Context) (uint64, bool, error) {
	val, err := s.client.rdb.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get failed: %w", err)
	}
	block, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid watermark %q: %w", val, err)
	}
	return block, true, nil
}

func (s *WatermarkStore) Save(ctx context.Context, block uint64) error {
	if err := s.client.rdb.Set(ctx, s.key, strconv.FormatUint(block, 10), 0).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

func (s *WatermarkStore) Clear(ctx context.Context) error {
	return s.client.rdb.Del(ctx, s.key).Err()
}

func (s *WatermarkStore) Close() error {
	return s.client.Close()
}
