// Package cursor owns the scan watermark and partitions the unscanned range into chunks.
//
// # Purpose
//
// The watermark is the highest block whose events were fully delivered. Scanning
// resumes at watermark+1, one chunk at a time:
//
//	c := cursor.New(99, 100)
//	chunk, ok := c.NextChunk(250) // [100,199], true
//	c.Advance(chunk.To)           // watermark = 199
//	chunk, ok = c.NextChunk(250)  // [200,250], true
//	c.Advance(chunk.To)           // watermark = 250
//	_, ok = c.NextChunk(250)      // false, nothing to scan
//
// Advance never moves the watermark backwards; a stale call is logged and ignored.
//
// # Package Structure
//
//   - cursor.go   - BlockRangeCursor and start-point resolution
//   - progress.go - scan throughput (blocks/sec) and range completion
package cursor

import (
	"errors"
	"log/slog"

	"github.com/vietddude/lottowatch/internal/core/domain"
)

// ErrRegression is returned when Advance is asked to move the watermark backwards.
var ErrRegression = errors.New("watermark regression")

// DefaultChunkSize is used when no chunk size is configured.
const DefaultChunkSize = 1000

// BlockRangeCursor tracks the watermark of a single scan. It is owned by one
// control loop and is not safe for concurrent use.
type BlockRangeCursor struct {
	watermark uint64
	chunkSize uint64
	log       *slog.Logger
}

// New creates a cursor positioned at watermark.
func New(watermark, chunkSize uint64) *BlockRangeCursor {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	return &BlockRangeCursor{
		watermark: watermark,
		chunkSize: chunkSize,
		log:       slog.Default().With("component", "cursor"),
	}
}

// Watermark returns the highest fully processed block.
func (c *BlockRangeCursor) Watermark() uint64 {
	return c.watermark
}

// NextChunk returns the next range to scan below head, or false when the
// cursor has caught up.
func (c *BlockRangeCursor) NextChunk(head uint64) (domain.Chunk, bool) {
	if c.watermark >= head {
		return domain.Chunk{}, false
	}

	to := c.watermark + c.chunkSize
	if to > head || to < c.watermark {
		to = head
	}

	return domain.Chunk{From: c.watermark + 1, To: to}, true
}

// Advance moves the watermark to to.
func (c *BlockRangeCursor) Advance(to uint64) error {
	if to < c.watermark {
		c.log.Warn("Ignoring watermark regression", "watermark", c.watermark, "to", to)
		return ErrRegression
	}
	c.watermark = to
	return nil
}

// Origin describes where a fresh scan should start.
type Origin struct {
	Persisted    uint64
	HasPersisted bool
	StartBlock   uint64 // 0 means unset
	Lookback     uint64
}

// Resolve returns the initial watermark: the persisted one when present,
// otherwise StartBlock-1, otherwise head-Lookback (floored at zero).
func (o Origin) Resolve(head uint64) uint64 {
	switch {
	case o.HasPersisted:
		return o.Persisted
	case o.StartBlock > 0:
		return o.StartBlock - 1
	case o.Lookback >= head:
		return 0
	default:
		return head - o.Lookback
	}
}
