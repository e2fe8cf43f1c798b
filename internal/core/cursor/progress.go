package cursor

import (
	"time"
)

type chunkRecord struct {
	To          uint64
	Blocks      uint64
	ProcessedAt time.Time
}

// Progress reports scan throughput over a window of recent chunks.
type Progress struct {
	BlocksPerSecond float64
	BlocksScanned   uint64
	Percent         float64 // of the target range; 0 when there is no target
}

// ProgressCollector tracks how fast the watermark moves.
type ProgressCollector struct {
	windowSize int
	records    []chunkRecord // ring buffer of recent chunks
	scanned    uint64
	from       uint64
	target     uint64
}

// NewProgressCollector creates a collector over the given window of chunks.
func NewProgressCollector(windowSize int) *ProgressCollector {
	if windowSize <= 0 {
		windowSize = 20
	}
	return &ProgressCollector{
		windowSize: windowSize,
		records:    make([]chunkRecord, 0, windowSize),
	}
}

// SetTarget fixes the block range used for the completion percentage.
func (pc *ProgressCollector) SetTarget(from, to uint64) {
	pc.from = from
	pc.target = to
}

// RecordChunk records a completed chunk.
func (pc *ProgressCollector) RecordChunk(chunkTo, blocks uint64, processedAt time.Time) {
	pc.scanned += blocks

	record := chunkRecord{To: chunkTo, Blocks: blocks, ProcessedAt: processedAt}
	if len(pc.records) >= pc.windowSize {
		// Shift elements left, drop oldest
		copy(pc.records, pc.records[1:])
		pc.records[len(pc.records)-1] = record
	} else {
		pc.records = append(pc.records, record)
	}
}

// Snapshot returns the current progress.
func (pc *ProgressCollector) Snapshot() Progress {
	p := Progress{BlocksScanned: pc.scanned}

	if len(pc.records) >= 2 {
		first := pc.records[0]
		last := pc.records[len(pc.records)-1]
		duration := last.ProcessedAt.Sub(first.ProcessedAt)
		if duration > 0 {
			var blocks uint64
			for _, r := range pc.records[1:] {
				blocks += r.Blocks
			}
			p.BlocksPerSecond = float64(blocks) / duration.Seconds()
		}
	}

	if pc.target >= pc.from && pc.target > 0 && len(pc.records) > 0 {
		total := pc.target - pc.from + 1
		done := pc.records[len(pc.records)-1].To
		if done >= pc.from {
			p.Percent = float64(done-pc.from+1) / float64(total) * 100
		}
		if p.Percent > 100 {
			p.Percent = 100
		}
	}

	return p
}
