package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/vietddude/lottowatch/internal/core/config"
	redisclient "github.com/vietddude/lottowatch/internal/infra/redis"
	"github.com/vietddude/lottowatch/internal/infra/storage"
	"github.com/vietddude/lottowatch/internal/infra/storage/file"
	"github.com/vietddude/lottowatch/internal/infra/storage/memory"
	"github.com/vietddude/lottowatch/internal/infra/storage/postgres"
)

// Ledger backends reported by Stores.LedgerBackend.
const (
	LedgerRedis  = "redis"
	LedgerMemory = "memory"
)

// Stores holds the persistence backends selected by configuration.
type Stores struct {
	Watermark storage.WatermarkStore
	// Ledger is redis backed when redis is reachable and in-process otherwise.
	Ledger        storage.DeliveryLedger
	LedgerBackend string

	DB    *postgres.DB
	Redis *redisclient.Client

	closers []io.Closer
}

// OpenStores connects the configured watermark store and the delivery ledger.
// Without redis the ledger lives in memory, which still stops an event from
// being announced twice while the process runs.
func OpenStores(ctx context.Context, cfg *config.AppConfig) (*Stores, error) {
	s := &Stores{}

	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			if cfg.Storage.Type == config.StorageRedis {
				return nil, err
			}
			slog.Warn("Failed to connect to Redis, using in-memory delivery ledger", "error", err)
		} else {
			s.Redis = client
			s.closers = append(s.closers, client)
			s.Ledger = redisclient.NewLedger(client, cfg.Redis.DedupeTTL)
			s.LedgerBackend = LedgerRedis
			slog.Info("Delivery ledger enabled", "backend", LedgerRedis, "ttl", cfg.Redis.DedupeTTL)
		}
	}

	switch cfg.Storage.Type {
	case config.StorageMemory, "":
		ms := memory.NewStore()
		s.Watermark = ms
		if s.Ledger == nil {
			s.Ledger = ms
			s.LedgerBackend = LedgerMemory
		}
		slog.Info("Using memory watermark storage")

	case config.StorageFile:
		fs, err := file.NewStore(cfg.Storage.Path, cfg.Chain.Contract)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Watermark = fs
		slog.Info("Using file watermark storage", "path", cfg.Storage.Path)

	case config.StorageRedis:
		s.Watermark = redisclient.NewWatermarkStore(s.Redis, cfg.Chain.Contract)
		slog.Info("Using Redis watermark storage")

	case config.StoragePostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		s.DB = db
		s.closers = append(s.closers, db)
		s.Watermark = postgres.NewWatermarkRepo(db, cfg.Chain.Contract)
		slog.Info("Using PostgreSQL watermark storage")

	default:
		s.Close()
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}

	if s.Ledger == nil {
		s.Ledger = memory.NewStore()
		s.LedgerBackend = LedgerMemory
		slog.Info("Delivery ledger enabled", "backend", LedgerMemory)
	}

	return s, nil
}

// Close releases every opened connection.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
