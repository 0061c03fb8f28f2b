package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/kettleworks/shiplog/internal/config"
	"github.com/kettleworks/shiplog/internal/storage"
	"github.com/kettleworks/shiplog/internal/storage/sqlite"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and database health",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ok := true

		pass := color.New(color.FgGreen).SprintFunc()("ok")
		fail := color.New(color.FgRed).SprintFunc()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			fmt.Printf("config: %s\n", fail(err.Error()))
			os.Exit(1)
		}
		if dbPath != "" {
			cfg.Database.Path = dbPath
		}
		fmt.Printf("config: %s (%s)\n", pass, cfgPath)
		fmt.Printf("  channel:  %s\n", cfg.Chat.ChannelID)
		fmt.Printf("  model:    %s\n", cfg.Extractor.Model)
		fmt.Printf("  database: %s\n", cfg.Database.Path)
		if cfg.Notify.ChannelID == "" {
			fmt.Printf("  notify:   disabled\n")
		} else {
			fmt.Printf("  notify:   %s\n", cfg.Notify.ChannelID)
		}

		store, err := storage.New(ctx, &storage.Config{Path: cfg.Database.Path})
		if err != nil {
			fmt.Printf("database: %s\n", fail(err.Error()))
			os.Exit(1)
		}
		defer store.Close()

		stored, err := store.SchemaVersion(ctx)
		if err != nil {
			fmt.Printf("database: %s\n", fail(err.Error()))
			os.Exit(1)
		}
		fmt.Printf("database: %s (schema %s)\n", pass, stored)

		// A database written by a newer binary is refused rather than
		// silently read with stale assumptions.
		switch semver.Compare(stored, sqlite.SchemaVersion) {
		case 1:
			fmt.Printf("schema:   %s\n", fail(fmt.Sprintf(
				"database schema %s is newer than this binary (%s); upgrade shiplog", stored, sqlite.SchemaVersion)))
			ok = false
		case -1:
			fmt.Printf("schema:   upgraded on next open (%s -> %s)\n", stored, sqlite.SchemaVersion)
		default:
			fmt.Printf("schema:   %s\n", pass)
		}

		count, err := store.CountReleases(ctx)
		if err != nil {
			fmt.Printf("releases: %s\n", fail(err.Error()))
			ok = false
		} else {
			fmt.Printf("releases: %d stored\n", count)
		}

		if !ok {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
