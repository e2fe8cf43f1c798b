package indexer

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vietddude/lottowatch/internal/core/domain"
	"github.com/vietddude/lottowatch/internal/indexing/emitter"
	"github.com/vietddude/lottowatch/internal/infra/chain/evm"
	"github.com/vietddude/lottowatch/internal/infra/storage"
)

// EventSource supplies the chain head and the raw logs of a chunk.
type EventSource interface {
	Head(ctx context.Context) (head uint64, deferred bool, err error)
	Fetch(ctx context.Context, kinds []domain.Kind, chunk domain.Chunk) evm.FetchResult
}

// EventDecoder turns a raw log into a typed event.
type EventDecoder interface {
	Decode(l types.Log) (domain.Event, error)
}

// Formatter renders a typed event as a notification.
type Formatter interface {
	Format(ev domain.Event) (domain.Payload, error)
}

// Ordering selects the delivery sequence within a chunk.
type Ordering int

const (
	// OrderByKind delivers kind by kind in domain.Kinds order.
	OrderByKind Ordering = iota
	// OrderChronological merges all kinds by (block, log index).
	OrderChronological
)

// Config holds orchestrator dependencies and settings.
type Config struct {
	Source    EventSource
	Decoder   EventDecoder
	Formatter Formatter
	Emitter   emitter.Emitter

	// Store persists the watermark of live runs. Optional.
	Store storage.WatermarkStore
	// Ledger skips events that were already delivered. Optional.
	Ledger storage.DeliveryLedger

	ChunkSize      uint64
	PollInterval   time.Duration
	StartBlock     uint64 // 0 = unset
	LookbackBlocks uint64
	Ordering       Ordering
}

// Outcome is the result of one cycle.
type Outcome int

const (
	// OutcomeIdle means the cursor had caught up with the head.
	OutcomeIdle Outcome = iota
	// OutcomeAdvanced means a chunk completed and the watermark moved.
	OutcomeAdvanced
	// OutcomeDeferred means the call budget was spent; nothing was delivered.
	OutcomeDeferred
	// OutcomeIncomplete means a provider query failed; the chunk will be retried.
	OutcomeIncomplete
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomeAdvanced:
		return "advanced"
	case OutcomeDeferred:
		return "deferred"
	case OutcomeIncomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

// Status is a point-in-time view of the scan.
type Status struct {
	RunID           string
	Running         bool
	Watermark       uint64
	Head            uint64
	Lag             int64
	BlocksPerSecond float64
	LastOutcome     string
	LastCycleAt     time.Time
}
