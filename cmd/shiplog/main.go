// shiplog watches a chat channel for shipped-change announcements and
// turns them into structured release records.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kettleworks/shiplog/internal/ai"
	"github.com/kettleworks/shiplog/internal/chat"
	"github.com/kettleworks/shiplog/internal/config"
	"github.com/kettleworks/shiplog/internal/notify"
	"github.com/kettleworks/shiplog/internal/pipeline"
	"github.com/kettleworks/shiplog/internal/prompts"
	"github.com/kettleworks/shiplog/internal/storage"
	"github.com/kettleworks/shiplog/internal/types"
)

var (
	cfgPath string
	dbPath  string

	rootCmd = &cobra.Command{
		Use:   "shiplog",
		Short: "Extract structured release records from a ship channel",
		Long: `shiplog ingests messages from a chat channel, classifies which ones
describe shipped software changes, and extracts structured release
records via LLM calls. Repeated, overlapping, and out-of-order runs
are safe: unchanged messages are skipped and edited messages replace
their prior extractions.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "shiplog.yaml", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads and validates configuration, exiting on failure.
// Validation is eager and aggregated, so a misconfigured process dies
// here before any side effect.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	return cfg
}

func openStore(ctx context.Context, cfg *config.Config) storage.Storage {
	store, err := storage.New(ctx, &storage.Config{Path: cfg.Database.Path})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	return store
}

// buildPipeline wires the full ingestion flow from configuration.
func buildPipeline(ctx context.Context, cfg *config.Config, store storage.Storage) (*pipeline.Pipeline, error) {
	client := chat.NewClient(cfg.Chat.BaseURL, cfg.Chat.Token)
	adapter := chat.NewAdapter(client, cfg)
	hydrator := chat.NewHydrator(adapter)

	engine, err := ai.NewEngine(ai.Config{
		APIKey:             cfg.Extractor.APIKey,
		Model:              cfg.Extractor.Model,
		MaxTokens:          cfg.Extractor.MaxTokens,
		MaxConcurrentCalls: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("build extraction engine: %w", err)
	}

	promptStore, err := prompts.NewStore(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("build prompt store: %w", err)
	}

	var notifier pipeline.Notifier
	if cfg.Notify.ChannelID != "" {
		n, err := notify.New(client, cfg.Notify.ChannelID, cfg.Chat.ChannelID, cfg.Notify.MaxItems)
		if err != nil {
			return nil, fmt.Errorf("build notifier: %w", err)
		}
		notifier = n
	}

	return pipeline.New(adapter, hydrator, engine, store, promptStore, notifier, cfg.Chat.Window), nil
}

// printSummary renders a run summary for the terminal.
func printSummary(summary *types.RunSummary) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\nRun complete in %s (prompt %s)\n",
		summary.FinishedAt.Sub(summary.StartedAt).Round(10*time.Millisecond), summary.PromptVersion)
	fmt.Printf("  fetched:           %d\n", summary.Fetched)
	fmt.Printf("  already processed: %s\n", gray(fmt.Sprint(summary.AlreadyProcessed)))
	fmt.Printf("  processed:         %d\n", summary.Processed)
	fmt.Printf("  extracted:         %s\n", green(fmt.Sprint(summary.Extracted)))
	fmt.Printf("  skipped:           %d\n", summary.Skipped)
	fmt.Printf("  edited:            %s\n", yellow(fmt.Sprint(summary.Edited)))

	if len(summary.Errors) > 0 {
		fmt.Printf("  errors:            %s\n", red(fmt.Sprint(len(summary.Errors))))
		for _, e := range summary.Errors {
			fmt.Printf("    %s\n", red(e))
		}
	}
}
