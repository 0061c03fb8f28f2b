package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kettleworks/shiplog/internal/prompts"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect and update the stored LLM prompts",
}

var promptsShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Print a stored prompt and its version",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()
		store := openStore(ctx, cfg)
		defer store.Close()

		ps, err := prompts.NewStore(ctx, store)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		names := []string{prompts.NameClassify, prompts.NameExtract}
		if len(args) == 1 {
			names = []string{args[0]}
		}

		bold := color.New(color.Bold).SprintFunc()
		for _, name := range names {
			p, err := ps.Fetch(ctx, name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("%s (%s)\n%s\n\n", bold(p.Name), p.Version, p.Text)
		}
	},
}

var promptsSetCmd = &cobra.Command{
	Use:   "set <name> <file>",
	Short: "Replace a prompt from a file and bump its version",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()
		store := openStore(ctx, cfg)
		defer store.Close()

		ps, err := prompts.NewStore(ctx, store)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		text, err := os.ReadFile(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		version, err := ps.Set(ctx, args[0], string(text))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s updated to %s\n", args[0], version)
	},
}

func init() {
	promptsCmd.AddCommand(promptsShowCmd)
	promptsCmd.AddCommand(promptsSetCmd)
	rootCmd.AddCommand(promptsCmd)
}
