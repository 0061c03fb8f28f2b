package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored releases and the last run",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()
		store := openStore(ctx, cfg)
		defer store.Close()

		bold := color.New(color.Bold).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		total, err := store.CountReleases(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s %d\n", bold("Releases:"), total)

		releases, err := store.ListReleases(ctx, cfg.Chat.ChannelID, statusLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, r := range releases {
			fmt.Printf("  %s %s %s %s\n", gray(r.Date.Format("2006-01-02")), cyan(string(r.Type)), r.Title, gray(r.SourceMessageID))
		}

		last, err := store.LastRun(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if last == nil {
			fmt.Printf("\n%s never\n", bold("Last run:"))
			return
		}
		fmt.Printf("\n%s %s\n", bold("Last run:"), last.FinishedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  fetched %d, processed %d, extracted %d, skipped %d\n",
			last.Fetched, last.Processed, last.Extracted, last.Skipped)
		if len(last.Errors) > 0 {
			fmt.Printf("  %s %d\n", red("errors:"), len(last.Errors))
		}
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 15, "number of recent releases to show")
	rootCmd.AddCommand(statusCmd)
}
