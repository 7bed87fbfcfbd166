package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jonathan/term-sync/internal/browser"
	"github.com/jonathan/term-sync/internal/config"
	"github.com/jonathan/term-sync/internal/db"
	"github.com/jonathan/term-sync/internal/observability"
	"github.com/jonathan/term-sync/internal/pipeline"
	"github.com/jonathan/term-sync/internal/site"
	"github.com/jonathan/term-sync/internal/types"
)

var syncCommand = &cobra.Command{
	Use:   "sync",
	Short: "Run one term sync over every department prefix",
	Long: `Signs in, opens the class search and, for every prefix in catalog order, searches,
extracts course codes and tags matching courses with the term.

Interrupting (Ctrl-C) lets the prefix in progress finish, then stops. When a session aborts
the error names the last completed prefix to pass to --resume-after.`,
	RunE: runSyncCmd,
}

var syncFlags runFlags

func init() {
	syncFlags.register(syncCommand)
	rootCmd.AddCommand(syncCommand)
}

func runSyncCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, func(c *config.Config) { syncFlags.apply(cmd, c) })
	if err != nil {
		return err
	}
	if err := cfg.RequireRunFields(); err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	p := buildPipeline(cfg, site.PeopleSoft(), database, database, log)
	_, err = executeSync(ctx, p, newLauncher(cfg, log), cfg, cmd.OutOrStdout(), log)
	return err
}

// openCatalog connects to PostgreSQL and makes sure the tables exist.
func openCatalog(ctx context.Context, cfg config.Config) (*db.DB, error) {
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// executeSync runs the pipeline once and prints the verbose output. The summary is
// returned even when the run aborts.
func executeSync(ctx context.Context, p *pipeline.Pipeline, launcher browser.Launcher, cfg config.Config, out io.Writer, log zerolog.Logger) (*types.RunSummary, error) {
	opts := runOptions(cfg)
	printer := observability.NewPrinter(out)
	if cfg.Verbose {
		// workers report concurrently
		var mu sync.Mutex
		opts.OnProgress = func(ev pipeline.ProgressEvent) {
			if ev.Step != pipeline.StepPrefix || ev.Report == nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			printer.PrintPrefixReport(ev.Report)
		}
	}

	summary, err := p.Run(ctx, launcher, opts)
	if summary != nil && cfg.Verbose {
		printer.PrintRunSummary(summary)
	}

	var abort *pipeline.AbortError
	switch {
	case err == nil && summary != nil && summary.Cancelled:
		log.Warn().Str("last_prefix", summary.LastPrefix).Msg("Run interrupted")
		if summary.LastPrefix != "" {
			_, _ = fmt.Fprintf(out, "Interrupted. Resume with: --resume-after %s\n", summary.LastPrefix)
		}
	case errors.As(err, &abort):
		return summary, err
	case err != nil:
		return summary, fmt.Errorf("term sync failed: %w", err)
	}
	return summary, nil
}
