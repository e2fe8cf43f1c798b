package config

import (
	"time"

	redisclient "github.com/vietddude/lottowatch/internal/infra/redis"
	"github.com/vietddude/lottowatch/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server      ServerConfig       `yaml:"server"`
	Logging     LoggingConfig      `yaml:"logging"`
	Chain       ChainConfig        `yaml:"chain"`
	Webhooks    WebhookConfig      `yaml:"webhooks"`
	ExplorerURL string             `yaml:"explorer_url"`
	Storage     StorageConfig      `yaml:"storage"`
	Redis       redisclient.Config `yaml:"redis"`
	Database    postgres.Config    `yaml:"database"`
}

// Retry defaults applied when the setting is absent.
const (
	DefaultFetchRetries uint64 = 3
	DefaultMaxRetries   int    = 3
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"` // -1 disables the health server; 0 takes the default
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Ordering selects how events of one chunk are sequenced for delivery.
type Ordering string

const (
	OrderingKind          Ordering = "kind"
	OrderingChronological Ordering = "chronological"
)

// ChainConfig holds the node and contract settings.
type ChainConfig struct {
	RPCURL          string        `yaml:"rpc_url"`
	Contract        string        `yaml:"contract"`
	Confirmations   uint64        `yaml:"confirmations"`
	ChunkSize       uint64        `yaml:"chunk_size"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	LookbackBlocks  uint64        `yaml:"lookback_blocks"`
	StartBlock      uint64        `yaml:"start_block"` // 0 = unset
	DailyCallLimit  int           `yaml:"daily_call_limit"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	FetchRetries    *uint64       `yaml:"fetch_retries"` // nil takes the default; 0 disables retries
	FetchRetryDelay time.Duration `yaml:"fetch_retry_delay"`
	HeadCacheTTL    time.Duration `yaml:"head_cache_ttl"` // 0 disables
	Ordering        Ordering      `yaml:"ordering"`
}

// Retries returns the number of retries of a failed provider query.
func (c ChainConfig) Retries() uint64 {
	if c.FetchRetries == nil {
		return DefaultFetchRetries
	}
	return *c.FetchRetries
}

// WebhookConfig holds delivery settings for both channels.
type WebhookConfig struct {
	TicketsURL     string        `yaml:"tickets_url"`
	EventsURL      string        `yaml:"events_url"`
	MaxRetries     *int          `yaml:"max_retries"` // nil takes the default; 0 disables retries
	BackoffBase    time.Duration `yaml:"backoff_base"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	MaxRetryAfter  time.Duration `yaml:"max_retry_after"`
	RetryAfterUnit string        `yaml:"retry_after_unit"` // ms or s
	MinInterval    time.Duration `yaml:"min_interval"`
	Timeout        time.Duration `yaml:"timeout"`
}

// Retries returns the number of retries after a failed post.
func (w WebhookConfig) Retries() int {
	if w.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *w.MaxRetries
}

// RetryAfterDuration returns the unit of the retry_after body field.
func (w WebhookConfig) RetryAfterDuration() time.Duration {
	if w.RetryAfterUnit == "s" {
		return time.Second
	}
	return time.Millisecond
}

// StorageType selects the watermark store backend.
type StorageType string

const (
	StorageMemory   StorageType = "memory"
	StorageFile     StorageType = "file"
	StorageRedis    StorageType = "redis"
	StoragePostgres StorageType = "postgres"
)

// StorageConfig selects where the watermark is persisted.
type StorageConfig struct {
	Type StorageType `yaml:"type"`
	Path string      `yaml:"path"` // file backend only
}
