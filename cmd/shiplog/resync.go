package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kettleworks/shiplog/internal/types"
)

var (
	resyncThread  string
	resyncMessage string
)

var resyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Re-run extraction for a specific thread or message",
	Long: `Forces re-extraction of one thread or one message, bypassing the recent
window. Useful after a prompt change or a bad extraction: edited
messages replace their prior releases, unchanged ones are no-ops.`,
	Run: func(cmd *cobra.Command, args []string) {
		if (resyncThread == "") == (resyncMessage == "") {
			fmt.Fprintln(os.Stderr, "Error: exactly one of --thread or --message is required")
			os.Exit(1)
		}

		ctx := context.Background()
		cfg := loadConfig()
		store := openStore(ctx, cfg)
		defer store.Close()

		pipe, err := buildPipeline(ctx, cfg, store)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		var summary *types.RunSummary
		if resyncThread != "" {
			summary, err = pipe.RunThread(ctx, resyncThread)
		} else {
			summary, err = pipe.RunMessage(ctx, resyncMessage)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printSummary(summary)
	},
}

func init() {
	resyncCmd.Flags().StringVar(&resyncThread, "thread", "", "root message ID of the thread to re-extract")
	resyncCmd.Flags().StringVar(&resyncMessage, "message", "", "message ID to re-extract")
	rootCmd.AddCommand(resyncCmd)
}
