package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kettleworks/shiplog/internal/pipeline"
)

var syncInterval time.Duration

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch the recent channel window and extract releases",
	Long: `Fetches the recent message window from the ingestion channel, hydrates
threads, and runs classification and extraction over anything new or
edited. Safe to run repeatedly: already-processed messages are skipped.

With --interval the command loops forever, running one batch per tick
until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := loadConfig()
		store := openStore(ctx, cfg)
		defer store.Close()

		pipe, err := buildPipeline(ctx, cfg, store)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := runOnce(ctx, pipe); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if syncInterval <= 0 {
			return
		}

		ticker := time.NewTicker(syncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("sync loop stopped")
				return
			case <-ticker.C:
				// Keep the loop alive across transient failures.
				if err := runOnce(ctx, pipe); err != nil {
					slog.Error("sync run failed", "error", err)
				}
			}
		}
	},
}

func runOnce(ctx context.Context, pipe *pipeline.Pipeline) error {
	summary, err := pipe.RunBatch(ctx)
	if err != nil {
		return err
	}
	printSummary(summary)
	return nil
}

func init() {
	syncCmd.Flags().DurationVar(&syncInterval, "interval", 0, "re-run every interval (e.g. 15m); 0 runs once")
	rootCmd.AddCommand(syncCmd)
}
