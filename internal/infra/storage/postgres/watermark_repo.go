package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type watermarkRow struct {
	Contract    string    `db:"contract"`
	BlockNumber int64     `db:"block_number"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// WatermarkRepo implements storage.WatermarkStore using PostgreSQL.
type WatermarkRepo struct {
	db       *DB
	contract string
}

// NewWatermarkRepo creates a watermark repository keyed by contract address.
func NewWatermarkRepo(db *DB, contract string) *WatermarkRepo {
	return &WatermarkRepo{db: db, contract: contract}
}

func (r *WatermarkRepo) Load(ctx context.Context) (uint64, bool, error) {
	var row watermarkRow
	err := r.db.GetContext(ctx, &row,
		`SELECT contract, block_number, updated_at FROM watermarks WHERE contract = $1`,
		r.contract,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get watermark: %w", err)
	}
	return uint64(row.BlockNumber), true, nil
}

func (r *WatermarkRepo) Save(ctx context.Context, block uint64) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO watermarks (contract, block_number, updated_at)
		VALUES (:contract, :block_number, :updated_at)
		ON CONFLICT (contract) DO UPDATE
		SET block_number = EXCLUDED.block_number, updated_at = EXCLUDED.updated_at`,
		watermarkRow{
			Contract:    r.contract,
			BlockNumber: int64(block),
			UpdatedAt:   time.Now().UTC(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to save watermark: %w", err)
	}
	return nil
}

func (r *WatermarkRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM watermarks WHERE contract = $1`, r.contract); err != nil {
		return fmt.Errorf("failed to clear watermark: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (r *WatermarkRepo) Close() error {
	return r.db.Close()
}
