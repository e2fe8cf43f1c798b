package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/lottowatch/internal/control"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted watermark",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx := context.Background()
	stores, err := control.OpenStores(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = stores.Close()
	}()

	wm, ok, err := stores.Watermark.Load(ctx)
	if err != nil {
		slog.Error("Failed to load watermark", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CONTRACT\tSTORAGE\tWATERMARK\tLEDGER")

	watermark := "none"
	if ok {
		watermark = fmt.Sprintf("%d", wm)
	}
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", cfg.Chain.Contract, cfg.Storage.Type, watermark, stores.LedgerBackend)
	_ = w.Flush()
}
