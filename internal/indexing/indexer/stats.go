package indexer

import (
	"sync"
	"time"

	"github.com/vietddude/lottowatch/internal/core/domain"
	"github.com/vietddude/lottowatch/internal/indexing/emitter"
)

// Stats summarises one run.
type Stats struct {
	RunID          string         `json:"run_id"`
	StartedAt      time.Time      `json:"started_at"`
	Chunks         int            `json:"chunks"`
	BlocksScanned  uint64         `json:"blocks_scanned"`
	Deferrals      int            `json:"deferrals"`
	Incomplete     int            `json:"incomplete"`
	ProviderErrors int            `json:"provider_errors"`
	Decoded        map[string]int `json:"decoded"`
	DecodeErrors   int            `json:"decode_errors"`
	Sent           map[string]int `json:"sent"`
	Dropped        map[string]int `json:"dropped"`
	Skipped        int            `json:"skipped"`
}

type statsRecorder struct {
	mu sync.Mutex
	s  Stats
}

func newStatsRecorder(runID string, now time.Time) *statsRecorder {
	return &statsRecorder{s: Stats{
		RunID:     runID,
		StartedAt: now,
		Decoded:   make(map[string]int),
		Sent:      make(map[string]int),
		Dropped:   make(map[string]int),
	}}
}

func (r *statsRecorder) outcome(o Outcome, blocks uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch o {
	case OutcomeAdvanced:
		r.s.Chunks++
		r.s.BlocksScanned += blocks
	case OutcomeDeferred:
		r.s.Deferrals++
	case OutcomeIncomplete:
		r.s.Incomplete++
	}
}

func (r *statsRecorder) providerError() {
	r.mu.Lock()
	r.s.ProviderErrors++
	r.mu.Unlock()
}

func (r *statsRecorder) decoded(k domain.Kind) {
	r.mu.Lock()
	r.s.Decoded[k.String()]++
	r.mu.Unlock()
}

func (r *statsRecorder) decodeError() {
	r.mu.Lock()
	r.s.DecodeErrors++
	r.mu.Unlock()
}

func (r *statsRecorder) delivered(ch domain.Channel, res emitter.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res == emitter.ResultSent {
		r.s.Sent[ch.String()]++
	} else {
		r.s.Dropped[ch.String()]++
	}
}

func (r *statsRecorder) skipped() {
	r.mu.Lock()
	r.s.Skipped++
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.s
	out.Decoded = copyCounts(r.s.Decoded)
	out.Sent = copyCounts(r.s.Sent)
	out.Dropped = copyCounts(r.s.Dropped)
	return out
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
