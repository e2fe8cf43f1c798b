// Package storage defines persistence for the scan watermark and the
// delivered-notification ledger.
package storage

import "context"

// WatermarkStore persists the highest fully processed block for a contract.
type WatermarkStore interface {
	// Load returns the persisted watermark. ok is false when none was saved.
	Load(ctx context.Context) (block uint64, ok bool, err error)

	// Save records a new watermark.
	Save(ctx context.Context, block uint64) error

	// Clear removes the persisted watermark.
	Clear(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

// DeliveryLedger remembers notifications that were already delivered so a
// replayed chunk does not notify twice.
type DeliveryLedger interface {
	// MarkDelivered records key. It returns false when key was already present.
	MarkDelivered(ctx context.Context, key string) (bool, error)

	// Delivered reports whether key was recorded.
	Delivered(ctx context.Context, key string) (bool, error)
}
