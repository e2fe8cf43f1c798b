package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/lottowatch/internal/core/config"
	"github.com/vietddude/lottowatch/internal/core/domain"
	"github.com/vietddude/lottowatch/internal/indexing/decoder"
	"github.com/vietddude/lottowatch/internal/indexing/emitter"
	"github.com/vietddude/lottowatch/internal/indexing/formatter"
	"github.com/vietddude/lottowatch/internal/indexing/health"
	"github.com/vietddude/lottowatch/internal/indexing/indexer"
	"github.com/vietddude/lottowatch/internal/indexing/metrics"
	"github.com/vietddude/lottowatch/internal/indexing/throttle"
	"github.com/vietddude/lottowatch/internal/infra/chain/evm"
	"github.com/vietddude/lottowatch/internal/infra/rpc/budget"
	"github.com/vietddude/lottowatch/internal/infra/rpc/provider"
	"github.com/vietddude/lottowatch/internal/infra/rpc/routing"
)

// Options adjust how the watcher is assembled.
type Options struct {
	// DryRun logs payloads instead of posting them.
	DryRun bool
	// Historical builds a watcher for RunHistorical: the persisted watermark
	// is left untouched and no health server is started.
	Historical bool
}

// Watcher is the main application struct that manages the pipeline lifecycle.
type Watcher struct {
	cfg          *config.AppConfig
	opts         Options
	orchestrator *indexer.Orchestrator
	provider     *provider.HTTPProvider
	limiter      *budget.RateLimiter
	emitter      emitter.Emitter
	stores       *Stores
	healthServer *health.Server
	log          *slog.Logger

	cancel    context.CancelFunc
	group     *errgroup.Group
	closeOnce sync.Once
}

// NewWatcher creates a new Watcher instance with all dependencies initialized.
func NewWatcher(ctx context.Context, cfg *config.AppConfig, opts Options) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 1. Decoder and topics
	dec, err := decoder.New()
	if err != nil {
		return nil, err
	}

	// 2. Provider behind the call budget
	rpcProvider := provider.NewHTTPProvider("primary", cfg.Chain.RPCURL, cfg.Chain.RequestTimeout)
	limiter := budget.NewRateLimiter(cfg.Chain.DailyCallLimit, budget.DefaultWindow)
	source := evm.NewSource(rpcProvider, limiter, evm.Config{
		Contract:      common.HexToAddress(cfg.Chain.Contract),
		Topics:        dec.Topics(),
		Confirmations: cfg.Chain.Confirmations,
		Retry: routing.RetryConfig{
			MaxRetries: cfg.Chain.Retries(),
			Delay:      cfg.Chain.FetchRetryDelay,
		},
	})

	// 3. Delivery
	var em emitter.Emitter
	if opts.DryRun {
		em = emitter.NewLogEmitter()
	} else {
		wh := cfg.Webhooks
		em = emitter.NewDeliveryClient(emitter.Config{
			URLs: map[domain.Channel]string{
				domain.ChannelTickets: wh.TicketsURL,
				domain.ChannelEvents:  wh.EventsURL,
			},
			MaxRetries:     wh.Retries(),
			BackoffBase:    wh.BackoffBase,
			MaxBackoff:     wh.MaxBackoff,
			MaxRetryAfter:  wh.MaxRetryAfter,
			RetryAfterUnit: wh.RetryAfterDuration(),
			MinInterval:    wh.MinInterval,
			Timeout:        wh.Timeout,
		})
	}

	// 4. Storage
	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ordering := indexer.OrderByKind
	if cfg.Chain.Ordering == config.OrderingChronological {
		ordering = indexer.OrderChronological
	}

	var eventSource indexer.EventSource = source
	if cfg.Chain.HeadCacheTTL > 0 {
		eventSource = throttle.NewHeadCache(source, cfg.Chain.HeadCacheTTL)
	}

	idxCfg := indexer.Config{
		Source:         eventSource,
		Decoder:        dec,
		Formatter:      formatter.New(cfg.ExplorerURL),
		Emitter:        em,
		Ledger:         stores.Ledger,
		ChunkSize:      cfg.Chain.ChunkSize,
		PollInterval:   cfg.Chain.PollInterval,
		StartBlock:     cfg.Chain.StartBlock,
		LookbackBlocks: cfg.Chain.LookbackBlocks,
		Ordering:       ordering,
	}
	if !opts.Historical {
		idxCfg.Store = stores.Watermark
	}

	w := &Watcher{
		cfg:          cfg,
		opts:         opts,
		orchestrator: indexer.NewOrchestrator(idxCfg),
		provider:     rpcProvider,
		limiter:      limiter,
		emitter:      em,
		stores:       stores,
		log:          slog.Default().With("component", "watcher"),
	}

	// 5. Health server
	if !opts.Historical && cfg.Server.Port > 0 {
		monitor := health.NewMonitor(w.orchestrator, limiter, health.DefaultThresholds()).WithProvider(rpcProvider)
		w.healthServer = health.NewServer(monitor, cfg.Server.Port)
	}

	return w, nil
}

// Start launches the live loop and its supporting goroutines. It returns once
// they are running; use Wait to block until they exit.
func (w *Watcher) Start(ctx context.Context) error {
	if w.group != nil {
		return errors.New("watcher already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	w.cancel, w.group = cancel, g

	if w.healthServer != nil {
		g.Go(func() error {
			w.log.Info("Starting health server", "port", w.cfg.Server.Port)
			if err := w.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("health server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return w.healthServer.Stop(shutdownCtx)
		})
	}

	if w.stores.DB != nil {
		w.stores.DB.StartMetricsCollector(gctx)
	}

	g.Go(func() error {
		w.runMetricsUpdater(gctx)
		return nil
	})

	g.Go(func() error {
		// The orchestrator exits nil on cancellation; an error means it could not start.
		if err := w.orchestrator.Run(gctx); err != nil {
			return fmt.Errorf("orchestrator failed: %w", err)
		}
		cancel()
		return nil
	})

	return nil
}

// Wait blocks until every goroutine started by Start has returned.
func (w *Watcher) Wait() error {
	if w.group == nil {
		return nil
	}
	return w.group.Wait()
}

// Stop signals shutdown, waits for the in-flight chunk to finish and releases resources.
func (w *Watcher) Stop(ctx context.Context) error {
	w.log.Info("Stopping watcher...")
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan error, 1)
	go func() { done <- w.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}

	w.close()
	return err
}

// RunHistorical scans [start, end] once. end 0 means the confirmed head.
func (w *Watcher) RunHistorical(ctx context.Context, start, end uint64, maxAttempts int) (indexer.Stats, error) {
	defer w.close()
	return w.orchestrator.RunRange(ctx, start, end, maxAttempts)
}

// Status returns the orchestrator position.
func (w *Watcher) Status() indexer.Status {
	return w.orchestrator.Status()
}

func (w *Watcher) close() {
	w.closeOnce.Do(func() {
		if err := w.emitter.Close(); err != nil {
			w.log.Warn("Failed to close emitter", "error", err)
		}
		if err := w.provider.Close(); err != nil {
			w.log.Warn("Failed to close provider", "error", err)
		}
		if err := w.stores.Close(); err != nil {
			w.log.Warn("Failed to close storage", "error", err)
		}
	})
}

func (w *Watcher) runMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			usage := w.limiter.Usage()
			metrics.BudgetRemaining.Set(float64(usage.RemainingCalls))
			h := w.provider.GetHealth()
			slog.Debug("Updating RPC metrics",
				"calls", usage.TotalCalls,
				"remaining", usage.RemainingCalls,
				"provider_available", h.Available,
				"provider_error_rate", h.ErrorRate,
			)
		}
	}
}
