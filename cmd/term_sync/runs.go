package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/term-sync/internal/db"
)

var runsCommand = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "Show recorded sync runs, or the per-prefix results of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRunsCmd,
}

var (
	runsDatabaseURL string
	runsLimit       int
)

func init() {
	runsCommand.Flags().StringVar(&runsDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	runsCommand.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Number of runs to list")
	rootCmd.AddCommand(runsCommand)
}

func runRunsCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runsDatabaseURL
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}

	var runID uuid.UUID
	if len(args) == 1 {
		if runID, err = uuid.Parse(args[0]); err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
	}

	ctx := context.Background()
	database, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	out := cmd.OutOrStdout()
	if runID == uuid.Nil {
		runs, err := database.ListSyncRuns(ctx, runsLimit)
		if err != nil {
			return err
		}
		return writeRuns(out, runs)
	}

	run, err := database.GetSyncRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}
	prefixes, err := database.ListSyncRunPrefixes(ctx, runID)
	if err != nil {
		return err
	}
	return writeRunDetail(out, run, prefixes)
}

func writeRuns(out io.Writer, runs []db.SyncRun) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTERM\tSTATUS\tSTARTED\tPREFIXES\tUPDATED\tSYNCED\tANOMALIES\tFAILED\tLAST")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.TermTag, r.Status, r.StartedAt.Local().Format(time.DateTime),
			len(r.Prefixes), r.Updated, r.AlreadySynced, r.Anomalies, r.Failed, deref(r.LastPrefix))
	}
	return w.Flush()
}

func writeRunDetail(out io.Writer, run *db.SyncRun, prefixes []db.SyncRunPrefix) error {
	_, _ = fmt.Fprintf(out, "Run %s (%s, %s)\n", run.ID, run.TermTag, run.Status)
	if run.ErrorMessage != nil {
		_, _ = fmt.Fprintf(out, "Error: %s\n", *run.ErrorMessage)
	}
	if run.LastPrefix != nil && run.Status != db.RunStatusCompleted {
		_, _ = fmt.Fprintf(out, "Resume with: --resume-after %s\n", *run.LastPrefix)
	}
	_, _ = fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PREFIX\tOUTCOME\tCODES\tUPDATED\tSYNCED\tFAILED\tTOOK\tUNMATCHED")
	for _, p := range prefixes {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			p.Prefix, p.Outcome, len(p.Codes), p.Updated, p.AlreadySynced, p.Failed,
			(time.Duration(p.DurationMs) * time.Millisecond).String(), strings.Join(p.AnomalyCodes, " "))
	}
	return w.Flush()
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
