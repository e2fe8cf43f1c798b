package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"

	"github.com/vietddude/lottowatch/internal/core/domain"
)

// Load reads configuration from a YAML file, applies defaults and validates it.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset values.
func (c *AppConfig) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	ch := &c.Chain
	if ch.ChunkSize == 0 {
		ch.ChunkSize = 1000
	}
	if ch.PollInterval == 0 {
		ch.PollInterval = 12 * time.Second
	}
	if ch.DailyCallLimit == 0 {
		ch.DailyCallLimit = 100000
	}
	if ch.RequestTimeout == 0 {
		ch.RequestTimeout = 30 * time.Second
	}
	if ch.FetchRetries == nil {
		n := DefaultFetchRetries
		ch.FetchRetries = &n
	}
	if ch.FetchRetryDelay == 0 {
		ch.FetchRetryDelay = time.Second
	}
	if ch.Ordering == "" {
		ch.Ordering = OrderingKind
	}

	wh := &c.Webhooks
	if wh.MaxRetries == nil {
		n := DefaultMaxRetries
		wh.MaxRetries = &n
	}
	if wh.BackoffBase == 0 {
		wh.BackoffBase = time.Second
	}
	if wh.MaxBackoff == 0 {
		wh.MaxBackoff = 30 * time.Second
	}
	if wh.MaxRetryAfter == 0 {
		wh.MaxRetryAfter = 60 * time.Second
	}
	if wh.RetryAfterUnit == "" {
		wh.RetryAfterUnit = "ms"
	}
	if wh.MinInterval == 0 {
		wh.MinInterval = time.Second
	}
	if wh.Timeout == 0 {
		wh.Timeout = 10 * time.Second
	}

	if c.ExplorerURL == "" {
		c.ExplorerURL = "https://etherscan.io"
	}
	if c.Storage.Type == "" {
		c.Storage.Type = StorageMemory
	}
	if c.Storage.Type == StorageFile && c.Storage.Path == "" {
		c.Storage.Path = "watermark.json"
	}
	if c.Redis.DedupeTTL == 0 {
		c.Redis.DedupeTTL = 7 * 24 * time.Hour
	}
}

// Validate reports the first value that prevents startup as a *domain.ConfigError.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Chain.RPCURL) == "" {
		return &domain.ConfigError{Field: "chain.rpc_url", Reason: "is required"}
	}
	if !common.IsHexAddress(c.Chain.Contract) {
		return &domain.ConfigError{Field: "chain.contract", Reason: fmt.Sprintf("%q is not a hex address", c.Chain.Contract)}
	}
	if c.Chain.ChunkSize == 0 {
		return &domain.ConfigError{Field: "chain.chunk_size", Reason: "must be positive"}
	}
	if c.Chain.DailyCallLimit < 0 {
		return &domain.ConfigError{Field: "chain.daily_call_limit", Reason: "must not be negative"}
	}
	switch c.Chain.Ordering {
	case OrderingKind, OrderingChronological:
	default:
		return &domain.ConfigError{Field: "chain.ordering", Reason: fmt.Sprintf("unknown ordering %q", c.Chain.Ordering)}
	}

	if strings.TrimSpace(c.Webhooks.TicketsURL) == "" {
		return &domain.ConfigError{Field: "webhooks.tickets_url", Reason: "is required"}
	}
	if strings.TrimSpace(c.Webhooks.EventsURL) == "" {
		return &domain.ConfigError{Field: "webhooks.events_url", Reason: "is required"}
	}
	if c.Webhooks.Retries() < 0 {
		return &domain.ConfigError{Field: "webhooks.max_retries", Reason: "must not be negative"}
	}
	if u := c.Webhooks.RetryAfterUnit; u != "ms" && u != "s" {
		return &domain.ConfigError{Field: "webhooks.retry_after_unit", Reason: fmt.Sprintf("unknown unit %q", u)}
	}

	switch c.Storage.Type {
	case StorageMemory, StorageFile:
	case StorageRedis:
		if c.Redis.URL == "" {
			return &domain.ConfigError{Field: "redis.url", Reason: "is required for redis storage"}
		}
	case StoragePostgres:
		if c.Database.URL == "" {
			return &domain.ConfigError{Field: "database.url", Reason: "is required for postgres storage"}
		}
	default:
		return &domain.ConfigError{Field: "storage.type", Reason: fmt.Sprintf("unknown storage %q", c.Storage.Type)}
	}
	return nil
}

// ValidateRange checks the bounds of a historical run.
func ValidateRange(start, end uint64) error {
	if start > end {
		return &domain.ConfigError{
			Field:  "start_block",
			Reason: fmt.Sprintf("start block %d is after end block %d", start, end),
		}
	}
	return nil
}
