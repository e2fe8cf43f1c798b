package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/lottowatch/internal/control"
	"github.com/vietddude/lottowatch/internal/core/config"
)

var (
	startBlock  uint64
	endBlock    uint64
	maxAttempts int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Scan a fixed block range once and deliver its notifications",
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().Uint64Var(&startBlock, "start-block", 0, "first block to scan (required)")
	historyCmd.Flags().Uint64Var(&endBlock, "end-block", 0, "last block to scan (default: confirmed head)")
	historyCmd.Flags().IntVar(&maxAttempts, "max-attempts", 3, "tries per chunk before giving up")
	_ = historyCmd.MarkFlagRequired("start-block")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	if endBlock != 0 {
		if err := config.ValidateRange(startBlock, endBlock); err != nil {
			slog.Error("Invalid range", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := control.NewWatcher(ctx, cfg, control.Options{DryRun: dryRun, Historical: true})
	if err != nil {
		slog.Error("Failed to initialize Watcher", "error", err)
		os.Exit(1)
	}

	started := time.Now()
	stats, err := app.RunHistorical(ctx, startBlock, endBlock, maxAttempts)
	if err != nil {
		slog.Error("Historical scan did not complete", "error", err, "blocks", stats.BlocksScanned)
		os.Exit(1)
	}

	slog.Info("Historical scan finished",
		"blocks", stats.BlocksScanned,
		"elapsed", time.Since(started).Round(time.Millisecond),
		"sent", stats.Sent,
		"dropped", stats.Dropped,
	)
}
