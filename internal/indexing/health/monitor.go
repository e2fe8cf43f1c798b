package health

import (
	"fmt"
	"time"

	"github.com/vietddude/lottowatch/internal/indexing/indexer"
	"github.com/vietddude/lottowatch/internal/infra/rpc/budget"
	"github.com/vietddude/lottowatch/internal/infra/rpc/provider"
)

// ScanReporter exposes the orchestrator's position and counters.
type ScanReporter interface {
	Status() indexer.Status
	Stats() indexer.Stats
}

// UsageReporter exposes the provider call budget.
type UsageReporter interface {
	Usage() budget.UsageStats
}

// ProviderReporter exposes node health counters.
type ProviderReporter interface {
	GetHealth() provider.HealthStatus
}

// Thresholds decide when the scan is degraded or critical.
type Thresholds struct {
	DegradedLag uint64
	CriticalLag uint64
	// StaleAfter is how long without a completed cycle before the loop is
	// considered stuck.
	StaleAfter time.Duration
}

// DefaultThresholds returns lag limits suited to 1000-block chunks.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DegradedLag: 100,
		CriticalLag: 5000,
		StaleAfter:  5 * time.Minute,
	}
}

// Monitor aggregates health status from the scan and the call budget.
type Monitor struct {
	scan       ScanReporter
	usage      UsageReporter
	provider   ProviderReporter
	thresholds Thresholds
	now        func() time.Time
}

// NewMonitor creates a new health monitor. usage may be nil.
func NewMonitor(scan ScanReporter, usage UsageReporter, thresholds Thresholds) *Monitor {
	return &Monitor{
		scan:       scan,
		usage:      usage,
		thresholds: thresholds,
		now:        time.Now,
	}
}

// WithProvider adds node health to the report.
func (m *Monitor) WithProvider(p ProviderReporter) *Monitor {
	m.provider = p
	return m
}

// CheckHealth evaluates the current state.
func (m *Monitor) CheckHealth() HealthReport {
	st := m.scan.Status()
	now := m.now()

	scan := ScanHealth{
		Status:      StatusHealthy,
		Running:     st.Running,
		Watermark:   st.Watermark,
		Head:        st.Head,
		LastOutcome: st.LastOutcome,
		LastCycleAt: st.LastCycleAt,
	}
	if st.Lag > 0 {
		scan.BlockLag = uint64(st.Lag)
	}

	worsen := func(s SystemStatus, reason string) {
		if s == StatusCritical || scan.Status == StatusHealthy {
			scan.Status = s
		}
		scan.Reasons = append(scan.Reasons, reason)
	}

	if !st.Running {
		worsen(StatusCritical, "scan loop is not running")
	}
	switch {
	case scan.BlockLag > m.thresholds.CriticalLag:
		worsen(StatusCritical, fmt.Sprintf("lag of %d blocks", scan.BlockLag))
	case scan.BlockLag > m.thresholds.DegradedLag:
		worsen(StatusDegraded, fmt.Sprintf("lag of %d blocks", scan.BlockLag))
	}
	if !st.LastCycleAt.IsZero() && m.thresholds.StaleAfter > 0 && now.Sub(st.LastCycleAt) > m.thresholds.StaleAfter {
		worsen(StatusCritical, fmt.Sprintf("no cycle for %s", now.Sub(st.LastCycleAt).Round(time.Second)))
	}
	if st.LastOutcome == indexer.OutcomeDeferred.String() || st.LastOutcome == indexer.OutcomeIncomplete.String() {
		worsen(StatusDegraded, "last cycle "+st.LastOutcome)
	}

	var usage *budget.UsageStats
	if m.usage != nil {
		u := m.usage.Usage()
		usage = &u
		if u.Limit > 0 && u.RemainingCalls == 0 {
			worsen(StatusDegraded, "call budget exhausted")
		}
	}

	var node *provider.HealthStatus
	if m.provider != nil {
		ph := m.provider.GetHealth()
		node = &ph
		if !ph.Available {
			worsen(StatusDegraded, "provider unavailable")
		}
	}

	report := HealthReport{
		SystemStatus: scan.Status,
		RunID:        st.RunID,
		Scan:         scan,
		Stats:        m.scan.Stats(),
		Budget:       usage,
		Provider:     node,
		CheckedAt:    now,
	}

	return report
}
