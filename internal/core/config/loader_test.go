package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vietddude/lottowatch/internal/core/domain"
)

const validConfig = `
chain:
  rpc_url: ${TEST_NODE_URL}
  contract: "0x043c9ae2764B5a7c2d685bc0262F8cF2f6D86008"
webhooks:
  tickets_url: https://hooks.example/tickets
  events_url: https://hooks.example/events
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_NODE_URL", "https://eth.example/v1/key")

	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Chain.RPCURL != "https://eth.example/v1/key" {
		t.Errorf("Expected URL https://eth.example/v1/key, got %s", cfg.Chain.RPCURL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TEST_NODE_URL", "https://eth.example")

	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Chain.ChunkSize != 1000 {
		t.Errorf("chunk_size = %d, want 1000", cfg.Chain.ChunkSize)
	}
	if cfg.Chain.PollInterval != 12*time.Second {
		t.Errorf("poll_interval = %v, want 12s", cfg.Chain.PollInterval)
	}
	if cfg.Chain.Ordering != OrderingKind {
		t.Errorf("ordering = %q, want kind", cfg.Chain.Ordering)
	}
	if cfg.Webhooks.Retries() != 3 || cfg.Webhooks.MaxRetryAfter != 60*time.Second {
		t.Errorf("webhook retry defaults = %d, %v", cfg.Webhooks.Retries(), cfg.Webhooks.MaxRetryAfter)
	}
	if cfg.Chain.Retries() != 3 {
		t.Errorf("fetch_retries = %d, want 3", cfg.Chain.Retries())
	}
	if cfg.Webhooks.RetryAfterDuration() != time.Millisecond {
		t.Errorf("retry_after unit = %v, want 1ms", cfg.Webhooks.RetryAfterDuration())
	}
	if cfg.ExplorerURL != "https://etherscan.io" {
		t.Errorf("explorer_url = %q", cfg.ExplorerURL)
	}
	if cfg.Storage.Type != StorageMemory {
		t.Errorf("storage = %q, want memory", cfg.Storage.Type)
	}
}

func TestLoad_Durations(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
chain:
  rpc_url: https://eth.example
  contract: "0x043c9ae2764B5a7c2d685bc0262F8cF2f6D86008"
  poll_interval: 30s
  fetch_retry_delay: 250ms
webhooks:
  tickets_url: https://hooks.example/tickets
  events_url: https://hooks.example/events
  retry_after_unit: s
storage:
  type: file
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Chain.PollInterval != 30*time.Second || cfg.Chain.FetchRetryDelay != 250*time.Millisecond {
		t.Errorf("durations = %v, %v", cfg.Chain.PollInterval, cfg.Chain.FetchRetryDelay)
	}
	if cfg.Webhooks.RetryAfterDuration() != time.Second {
		t.Errorf("retry_after unit = %v, want 1s", cfg.Webhooks.RetryAfterDuration())
	}
	if cfg.Storage.Path != "watermark.json" {
		t.Errorf("storage path = %q", cfg.Storage.Path)
	}
}

func TestLoad_ZeroRetries(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
chain:
  rpc_url: https://eth.example
  contract: "0x043c9ae2764B5a7c2d685bc0262F8cF2f6D86008"
  fetch_retries: 0
webhooks:
  tickets_url: https://hooks.example/tickets
  events_url: https://hooks.example/events
  max_retries: 0
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Chain.Retries() != 0 {
		t.Errorf("fetch_retries = %d, want 0", cfg.Chain.Retries())
	}
	if cfg.Webhooks.Retries() != 0 {
		t.Errorf("max_retries = %d, want 0", cfg.Webhooks.Retries())
	}
}

func TestLoad_HealthPort(t *testing.T) {
	tests := []struct {
		name   string
		server string
		want   int
	}{
		{"omitted takes default", "", 8080},
		{"zero takes default", "server:\n  port: 0\n", 8080},
		{"minus one disables", "server:\n  port: -1\n", -1},
		{"explicit", "server:\n  port: 9100\n", 9100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, `
chain:
  rpc_url: https://eth.example
  contract: "0x043c9ae2764B5a7c2d685bc0262F8cF2f6D86008"
webhooks:
  tickets_url: https://hooks.example/tickets
  events_url: https://hooks.example/events
`+tt.server))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.Server.Port != tt.want {
				t.Errorf("port = %d, want %d", cfg.Server.Port, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	base := func() AppConfig {
		c := AppConfig{
			Chain: ChainConfig{
				RPCURL:   "https://eth.example",
				Contract: "0x043c9ae2764B5a7c2d685bc0262F8cF2f6D86008",
			},
			Webhooks: WebhookConfig{
				TicketsURL: "https://hooks.example/t",
				EventsURL:  "https://hooks.example/e",
			},
		}
		c.ApplyDefaults()
		return c
	}

	tests := []struct {
		name   string
		mutate func(c *AppConfig)
		field  string
	}{
		{"valid", func(c *AppConfig) {}, ""},
		{"missing rpc url", func(c *AppConfig) { c.Chain.RPCURL = "" }, "chain.rpc_url"},
		{"bad contract", func(c *AppConfig) { c.Chain.Contract = "0x1234" }, "chain.contract"},
		{"missing tickets webhook", func(c *AppConfig) { c.Webhooks.TicketsURL = "" }, "webhooks.tickets_url"},
		{"missing events webhook", func(c *AppConfig) { c.Webhooks.EventsURL = " " }, "webhooks.events_url"},
		{"unknown ordering", func(c *AppConfig) { c.Chain.Ordering = "random" }, "chain.ordering"},
		{"unknown unit", func(c *AppConfig) { c.Webhooks.RetryAfterUnit = "min" }, "webhooks.retry_after_unit"},
		{"negative retries", func(c *AppConfig) { n := -1; c.Webhooks.MaxRetries = &n }, "webhooks.max_retries"},
		{"redis without url", func(c *AppConfig) { c.Storage.Type = StorageRedis }, "redis.url"},
		{"postgres without url", func(c *AppConfig) { c.Storage.Type = StoragePostgres }, "database.url"},
		{"unknown storage", func(c *AppConfig) { c.Storage.Type = "s3" }, "storage.type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()

			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var cerr *domain.ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cerr.Field != tt.field {
				t.Errorf("field = %q, want %q", cerr.Field, tt.field)
			}
			if !errors.Is(err, domain.ErrConfig) {
				t.Error("error should match ErrConfig")
			}
		})
	}
}

func TestValidateRange(t *testing.T) {
	if err := ValidateRange(10, 10); err != nil {
		t.Errorf("single block range: %v", err)
	}
	if err := ValidateRange(11, 10); !errors.Is(err, domain.ErrConfig) {
		t.Errorf("inverted range error = %v, want ErrConfig", err)
	}
}
