package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kettleworks/shiplog/internal/webhook"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server for event-push ingestion",
	Long: `Listens for chat platform event callbacks and processes each pushed
message individually. Processing is synchronous: a failed extraction
returns a retryable error so the platform redelivers the event.`,
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

		addr := serveAddr
		if addr == "" {
			addr = cfg.Webhook.ListenAddr
		}

		srv := webhook.NewServer(pipe, cfg.Chat.ChannelID, cfg.Webhook.Token)
		slog.Info("webhook server starting", "addr", addr)
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
