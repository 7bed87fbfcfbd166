package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/term-sync/internal/catalog"
	"github.com/jonathan/term-sync/internal/observability"
)

var prefixesCommand = &cobra.Command{
	Use:   "prefixes",
	Short: "List departments and their prefixes in processing order",
	RunE:  runPrefixesCmd,
}

var prefixesDatabaseURL string

func init() {
	prefixesCommand.Flags().StringVar(&prefixesDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	rootCmd.AddCommand(prefixesCommand)
}

func runPrefixesCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = prefixesDatabaseURL
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}

	ctx := context.Background()
	database, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	return listPrefixes(ctx, cmd, database)
}

func listPrefixes(ctx context.Context, cmd *cobra.Command, store catalog.Store) error {
	depts, err := store.ListDepartments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list departments: %w", err)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintDepartments(depts)
	return nil
}
