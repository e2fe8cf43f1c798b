package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChunksProcessed tracks scanned chunks by outcome (advanced, incomplete, deferred)
	ChunksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottowatch_chunks_processed_total",
			Help: "Total number of scanned chunks by outcome",
		},
		[]string{"outcome"},
	)

	// BlocksProcessed tracks blocks covered by advanced chunks
	BlocksProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lottowatch_blocks_processed_total",
			Help: "Total number of blocks fully processed",
		},
	)

	// EventsDecoded tracks decoded events per kind
	EventsDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottowatch_events_decoded_total",
			Help: "Total number of decoded contract events",
		},
		[]string{"kind"},
	)

	// DecodeErrors tracks logs dropped by the decoder
	DecodeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lottowatch_decode_errors_total",
			Help: "Total number of logs that failed to decode",
		},
	)

	// NotificationsTotal tracks delivery results per channel
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottowatch_notifications_total",
			Help: "Total number of notifications by channel and result",
		},
		[]string{"channel", "result"},
	)

	// WebhookAttempts tracks individual webhook posts by status class
	WebhookAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottowatch_webhook_attempts_total",
			Help: "Total number of webhook POST attempts",
		},
		[]string{"channel", "status"},
	)

	// RPCCallsTotal tracks RPC calls per method
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottowatch_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"provider", "method"},
	)

	// RPCErrorsTotal tracks RPC errors that survived retries
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottowatch_rpc_errors_total",
			Help: "Total number of failed RPC calls after retries",
		},
		[]string{"provider", "scope"},
	)

	// RPCLatency tracks RPC call latency including retries
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lottowatch_rpc_latency_seconds",
			Help:    "RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "method"},
	)

	// BudgetDeferrals tracks queries skipped because the call budget was spent
	BudgetDeferrals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lottowatch_budget_deferrals_total",
			Help: "Total number of provider queries deferred by the call budget",
		},
	)

	// BudgetRemaining tracks the remaining provider calls in the current window
	BudgetRemaining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lottowatch_budget_remaining_calls",
			Help: "Remaining provider calls in the current budget window",
		},
	)

	// ChainHead tracks the confirmed chain head
	ChainHead = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lottowatch_chain_head_block",
			Help: "Confirmed head block of the chain",
		},
	)

	// Watermark tracks the highest fully processed block
	Watermark = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lottowatch_watermark_block",
			Help: "Highest block whose events were fully delivered",
		},
	)

	// WatermarkSaves counts persisted watermark writes
	WatermarkSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottowatch_watermark_saves_total",
			Help: "Total watermark persistence attempts",
		},
		[]string{"result"},
	)

	// LedgerSkips counts notifications skipped because they were already delivered
	LedgerSkips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lottowatch_ledger_skips_total",
			Help: "Notifications skipped by the delivered ledger",
		},
	)

	// DBConnectionPoolUsage tracks database pool usage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lottowatch_db_connection_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)
