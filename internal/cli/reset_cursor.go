package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vietddude/lottowatch/internal/control"
)

var clearCursor bool

var resetCursorCmd = &cobra.Command{
	Use:   "reset-cursor [block_height]",
	Short: "Overwrite the persisted watermark",
	Long: `Overwrite the persisted watermark so the next live run resumes at block_height+1.
With --clear the watermark is removed and the next run starts from start_block or the lookback.`,
	Args: cobra.RangeArgs(0, 1),
	Run:  runResetCursor,
}

func init() {
	resetCursorCmd.Flags().BoolVar(&clearCursor, "clear", false, "remove the persisted watermark")
	rootCmd.AddCommand(resetCursorCmd)
}

func runResetCursor(cmd *cobra.Command, args []string) {
	if clearCursor == (len(args) == 1) {
		fmt.Println("Provide either a block height or --clear")
		os.Exit(1)
	}

	var height uint64
	if len(args) == 1 {
		var err error
		height, err = strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			fmt.Printf("Invalid block height: %v\n", err)
			os.Exit(1)
		}
	}

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

	if clearCursor {
		if err := stores.Watermark.Clear(ctx); err != nil {
			slog.Error("Failed to clear watermark", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Cleared watermark for %s\n", cfg.Chain.Contract)
		return
	}

	if err := stores.Watermark.Save(ctx, height); err != nil {
		slog.Error("Failed to reset watermark", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully reset watermark for %s to block %d\n", cfg.Chain.Contract, height)
}
