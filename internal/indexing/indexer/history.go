package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/vietddude/lottowatch/internal/core/cursor"
	"github.com/vietddude/lottowatch/internal/core/domain"
)

// ErrRangeIncomplete is returned when a historical run gives up on a chunk.
var ErrRangeIncomplete = errors.New("range incomplete")

// RunRange scans [start, end] once and returns when the range is delivered.
// An end of 0 means the current confirmed head. A chunk that stays deferred or
// incomplete for maxAttempts consecutive tries aborts the run.
func (o *Orchestrator) RunRange(ctx context.Context, start, end uint64, maxAttempts int) (Stats, error) {
	if !o.running.CompareAndSwap(false, true) {
		return Stats{}, ErrAlreadyRunning
	}
	defer o.running.Store(false)

	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	// Block 0 never carries contract logs.
	if start == 0 {
		start = 1
	}

	head, deferred, err := o.cfg.Source.Head(ctx)
	if err != nil {
		return o.Stats(), fmt.Errorf("failed to query chain head: %w", err)
	}
	if deferred {
		return o.Stats(), errors.New("failed to query chain head: call budget exhausted")
	}
	o.setHead(head)

	if end == 0 {
		end = head
	}
	if end > head {
		return o.Stats(), &domain.ConfigError{
			Field:  "end_block",
			Reason: fmt.Sprintf("end block %d is beyond the confirmed head %d", end, head),
		}
	}
	if start > end {
		return o.Stats(), &domain.ConfigError{
			Field:  "start_block",
			Reason: fmt.Sprintf("start block %d is after end block %d", start, end),
		}
	}

	o.cursor = cursor.New(start-1, o.cfg.ChunkSize)
	o.setWatermark(start - 1)
	o.progress.SetTarget(start, end)

	o.log.Info("Starting historical scan", "start", start, "end", end, "chunk_size", o.cfg.ChunkSize)

	attempts := 0
	for o.cursor.Watermark() < end {
		if err := ctx.Err(); err != nil {
			o.logStats("Historical scan interrupted")
			return o.Stats(), err
		}

		switch outcome := o.step(context.WithoutCancel(ctx), end); outcome {
		case OutcomeAdvanced:
			attempts = 0
			continue
		default:
			attempts++
			chunk, _ := o.cursor.NextChunk(end)
			if attempts >= maxAttempts {
				o.logStats("Historical scan failed")
				return o.Stats(), fmt.Errorf("%w: chunk %s %s after %d attempts", ErrRangeIncomplete, chunk, outcome, attempts)
			}
			o.log.Warn("Retrying chunk", "chunk", chunk, "outcome", outcome, "attempt", attempts, "max_attempts", maxAttempts)
		}

		if err := o.sleep(ctx, o.cfg.PollInterval); err != nil {
			o.logStats("Historical scan interrupted")
			return o.Stats(), err
		}
	}

	o.logStats("Historical scan complete")
	return o.Stats(), nil
}
