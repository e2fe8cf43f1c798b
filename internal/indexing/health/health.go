// Package health provides system health monitoring and status reporting.
package health

import (
	"time"

	"github.com/vietddude/lottowatch/internal/indexing/indexer"
	"github.com/vietddude/lottowatch/internal/infra/rpc/budget"
	"github.com/vietddude/lottowatch/internal/infra/rpc/provider"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// ScanHealth describes the position of the live scan.
type ScanHealth struct {
	Status      SystemStatus `json:"status"`
	Running     bool         `json:"running"`
	Watermark   uint64       `json:"watermark"`
	Head        uint64       `json:"head"`
	BlockLag    uint64       `json:"block_lag"`
	LastOutcome string       `json:"last_outcome"`
	LastCycleAt time.Time    `json:"last_cycle_at"`
	Reasons     []string     `json:"reasons,omitempty"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus           `json:"system_status"`
	RunID        string                 `json:"run_id"`
	Scan         ScanHealth             `json:"scan"`
	Budget       *budget.UsageStats     `json:"budget,omitempty"`
	Provider     *provider.HealthStatus `json:"provider,omitempty"`
	Stats        indexer.Stats          `json:"stats"`
	CheckedAt    time.Time              `json:"checked_at"`
}
