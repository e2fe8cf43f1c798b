// Package indexer drives the scan loop: it asks the cursor for the next
// chunk, pulls the chunk's logs for every kind, decodes, formats and delivers
// them, and advances the watermark only when every kind was fetched.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/lottowatch/internal/core/cursor"
	"github.com/vietddude/lottowatch/internal/core/domain"
	"github.com/vietddude/lottowatch/internal/indexing/emitter"
	"github.com/vietddude/lottowatch/internal/indexing/metrics"
	"github.com/vietddude/lottowatch/internal/infra/chain/evm"
)

// ErrAlreadyRunning is returned when Run is called on a running orchestrator.
var ErrAlreadyRunning = errors.New("orchestrator already running")

// Orchestrator sequences the pipeline. The cursor is owned by the goroutine
// calling Run or RunRange; Status and Stats may be read concurrently.
type Orchestrator struct {
	cfg      Config
	runID    string
	cursor   *cursor.BlockRangeCursor
	progress *cursor.ProgressCollector
	stats    *statsRecorder
	running  atomic.Bool
	log      *slog.Logger

	mu     sync.RWMutex
	status Status

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an orchestrator. The cursor is positioned by Init.
func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = cursor.DefaultChunkSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 12 * time.Second
	}

	runID := uuid.NewString()
	return &Orchestrator{
		cfg:      cfg,
		runID:    runID,
		progress: cursor.NewProgressCollector(20),
		stats:    newStatsRecorder(runID, time.Now()),
		log:      slog.Default().With("component", "orchestrator", "run_id", runID),
		status:   Status{RunID: runID},
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Init positions the cursor: the persisted watermark when one exists,
// otherwise StartBlock-1, otherwise head minus LookbackBlocks.
func (o *Orchestrator) Init(ctx context.Context) error {
	origin := cursor.Origin{
		StartBlock: o.cfg.StartBlock,
		Lookback:   o.cfg.LookbackBlocks,
	}

	if o.cfg.Store != nil {
		wm, ok, err := o.cfg.Store.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load watermark: %w", err)
		}
		origin.Persisted, origin.HasPersisted = wm, ok
	}

	var head uint64
	if !origin.HasPersisted && origin.StartBlock == 0 {
		h, deferred, err := o.cfg.Source.Head(ctx)
		if err != nil {
			return fmt.Errorf("failed to query chain head: %w", err)
		}
		if deferred {
			return errors.New("failed to query chain head: call budget exhausted")
		}
		head = h
		o.setHead(head)
	}

	wm := origin.Resolve(head)
	o.cursor = cursor.New(wm, o.cfg.ChunkSize)
	o.setWatermark(wm)

	o.log.Info("Cursor initialized",
		"watermark", wm,
		"persisted", origin.HasPersisted,
		"start_block", origin.StartBlock,
		"chunk_size", o.cfg.ChunkSize,
	)
	return nil
}

// Run drives the live loop until ctx is cancelled. An in-flight chunk always
// runs to completion; cancellation is observed between cycles.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer o.running.Store(false)

	if o.cursor == nil {
		if err := o.Init(ctx); err != nil {
			return err
		}
	}

	o.log.Info("Starting live scan", "watermark", o.cursor.Watermark(), "poll_interval", o.cfg.PollInterval)

	for {
		if ctx.Err() != nil {
			o.logStats("Live scan stopped")
			return nil
		}

		started := o.now()
		outcome := o.RunCycle(ctx)

		// Catch up without pausing while a backlog remains.
		if outcome == OutcomeAdvanced && o.backlog() {
			continue
		}

		wait := o.cfg.PollInterval - o.now().Sub(started)
		if wait < 0 {
			wait = 0
		}
		if err := o.sleep(ctx, wait); err != nil {
			o.logStats("Live scan stopped")
			return nil
		}
	}
}

// RunCycle performs one Idle → Scanning → Decoding → Delivering → Advanced
// pass over at most one chunk.
func (o *Orchestrator) RunCycle(ctx context.Context) Outcome {
	head, deferred, err := o.cfg.Source.Head(ctx)
	if deferred {
		o.log.Info("Call budget exhausted, skipping cycle")
		return o.finish(OutcomeDeferred, 0)
	}
	if err != nil {
		o.stats.providerError()
		o.log.Warn("Failed to query chain head", "error", err)
		return o.finish(OutcomeIncomplete, 0)
	}
	o.setHead(head)

	// The chunk runs to completion once started.
	return o.step(context.WithoutCancel(ctx), head)
}

// step processes the next chunk below head.
func (o *Orchestrator) step(ctx context.Context, head uint64) Outcome {
	chunk, ok := o.cursor.NextChunk(head)
	if !ok {
		o.log.Debug("Caught up with head", "watermark", o.cursor.Watermark(), "head", head)
		return o.finish(OutcomeIdle, 0)
	}

	outcome := o.processChunk(ctx, chunk)
	if outcome != OutcomeAdvanced {
		return o.finish(outcome, 0)
	}

	if err := o.cursor.Advance(chunk.To); err != nil {
		o.log.Error("Failed to advance cursor", "chunk", chunk, "error", err)
		return o.finish(OutcomeIncomplete, 0)
	}
	o.setWatermark(chunk.To)
	o.persist(ctx, chunk.To)

	o.progress.RecordChunk(chunk.To, chunk.Size(), o.now())
	p := o.progress.Snapshot()
	o.mu.Lock()
	o.status.BlocksPerSecond = p.BlocksPerSecond
	o.mu.Unlock()

	o.log.Info("Chunk complete",
		"from", chunk.From,
		"to", chunk.To,
		"head", head,
		"percent", fmt.Sprintf("%.2f", p.Percent),
		"blocks_per_second", fmt.Sprintf("%.2f", p.BlocksPerSecond),
	)
	return o.finish(OutcomeAdvanced, chunk.Size())
}

// processChunk fetches, decodes and delivers one chunk and reports whether it
// may be considered complete.
func (o *Orchestrator) processChunk(ctx context.Context, chunk domain.Chunk) Outcome {
	o.log.Debug("Scanning chunk", "from", chunk.From, "to", chunk.To)

	res := o.cfg.Source.Fetch(ctx, domain.Kinds, chunk)
	if res.Deferred() {
		o.log.Info("Chunk deferred by call budget", "chunk", chunk)
		return OutcomeDeferred
	}

	events := o.decode(res)
	for _, ev := range events {
		o.deliver(ctx, ev)
	}

	if res.Incomplete() {
		for _, k := range res.Kinds {
			if k.Err != nil {
				o.stats.providerError()
				o.log.Warn("Kind failed, chunk will be retried", "chunk", chunk, "kind", k.Kind, "error", k.Err)
			}
		}
		return OutcomeIncomplete
	}
	return OutcomeAdvanced
}

// decode turns the fetched logs into events in delivery order. Logs that fail
// to decode are dropped and counted.
func (o *Orchestrator) decode(res evm.FetchResult) []domain.Event {
	var events []domain.Event
	for _, k := range res.Kinds {
		if k.Err != nil || k.Deferred {
			continue
		}

		var kindEvents []domain.Event
		for _, l := range k.Logs {
			ev, err := o.cfg.Decoder.Decode(l)
			if err != nil {
				metrics.DecodeErrors.Inc()
				o.stats.decodeError()
				o.log.Warn("Dropping undecodable log",
					"kind", k.Kind,
					"block", l.BlockNumber,
					"tx", l.TxHash.Hex(),
					"log_index", l.Index,
					"error", err,
				)
				continue
			}
			metrics.EventsDecoded.WithLabelValues(ev.Kind().String()).Inc()
			o.stats.decoded(ev.Kind())
			kindEvents = append(kindEvents, ev)
		}

		sort.SliceStable(kindEvents, func(i, j int) bool { return domain.Before(kindEvents[i], kindEvents[j]) })
		if len(kindEvents) > 0 {
			o.log.Info("Found events", "kind", k.Kind, "count", len(kindEvents), "chunk", res.Chunk)
		}
		events = append(events, kindEvents...)
	}

	if o.cfg.Ordering == OrderChronological {
		sort.SliceStable(events, func(i, j int) bool { return domain.Before(events[i], events[j]) })
	}
	return events
}

// deliver formats and posts one event, consulting the ledger when configured.
func (o *Orchestrator) deliver(ctx context.Context, ev domain.Event) {
	key := "delivered:" + domain.DedupeKey(ev)

	if o.cfg.Ledger != nil {
		done, err := o.cfg.Ledger.Delivered(ctx, key)
		if err != nil {
			o.log.Warn("Ledger lookup failed, delivering anyway", "key", key, "error", err)
		} else if done {
			metrics.LedgerSkips.Inc()
			o.stats.skipped()
			o.log.Debug("Skipping delivered event", "key", key)
			return
		}
	}

	payload, err := o.cfg.Formatter.Format(ev)
	if err != nil {
		o.log.Error("Failed to format event", "kind", ev.Kind(), "key", key, "error", err)
		return
	}

	result := o.cfg.Emitter.Deliver(ctx, payload)
	o.stats.delivered(payload.Channel, result)

	if result == emitter.ResultSent && o.cfg.Ledger != nil {
		if _, err := o.cfg.Ledger.MarkDelivered(ctx, key); err != nil {
			o.log.Warn("Failed to record delivery", "key", key, "error", err)
		}
	}
}

// persist saves the watermark. A failure is logged; the in-memory cursor stays
// authoritative and the next successful save catches up.
func (o *Orchestrator) persist(ctx context.Context, wm uint64) {
	if o.cfg.Store == nil {
		return
	}
	if err := o.cfg.Store.Save(ctx, wm); err != nil {
		metrics.WatermarkSaves.WithLabelValues("error").Inc()
		o.log.Error("Failed to persist watermark", "watermark", wm, "error", err)
		return
	}
	metrics.WatermarkSaves.WithLabelValues("ok").Inc()
}

func (o *Orchestrator) finish(outcome Outcome, blocks uint64) Outcome {
	metrics.ChunksProcessed.WithLabelValues(outcome.String()).Inc()
	if outcome == OutcomeAdvanced {
		metrics.BlocksProcessed.Add(float64(blocks))
	}
	o.stats.outcome(outcome, blocks)

	o.mu.Lock()
	o.status.LastOutcome = outcome.String()
	o.status.LastCycleAt = o.now()
	o.mu.Unlock()
	return outcome
}

func (o *Orchestrator) backlog() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status.Watermark < o.status.Head
}

func (o *Orchestrator) setHead(head uint64) {
	o.mu.Lock()
	o.status.Head = head
	o.status.Lag = int64(head) - int64(o.status.Watermark)
	o.mu.Unlock()
}

func (o *Orchestrator) setWatermark(wm uint64) {
	metrics.Watermark.Set(float64(wm))
	o.mu.Lock()
	o.status.Watermark = wm
	o.status.Lag = int64(o.status.Head) - int64(wm)
	o.mu.Unlock()
}

// Status returns the current scan position.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s := o.status
	s.Running = o.running.Load()
	return s
}

// Stats returns the counters of this run.
func (o *Orchestrator) Stats() Stats {
	return o.stats.snapshot()
}

func (o *Orchestrator) logStats(msg string) {
	s := o.stats.snapshot()
	o.log.Info(msg,
		"chunks", s.Chunks,
		"blocks", s.BlocksScanned,
		"elapsed", o.now().Sub(s.StartedAt).Round(time.Second),
		"decoded", s.Decoded,
		"decode_errors", s.DecodeErrors,
		"sent", s.Sent,
		"dropped", s.Dropped,
		"skipped", s.Skipped,
		"deferrals", s.Deferrals,
		"provider_errors", s.ProviderErrors,
	)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
