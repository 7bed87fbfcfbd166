package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jonathan/term-sync/internal/catalog"
	"github.com/jonathan/term-sync/internal/config"
	"github.com/jonathan/term-sync/internal/extract"
	"github.com/jonathan/term-sync/internal/observability"
	"github.com/jonathan/term-sync/internal/site"
	"github.com/jonathan/term-sync/internal/termsync"
	"github.com/jonathan/term-sync/internal/types"
)

var applyHTMLCommand = &cobra.Command{
	Use:   "apply-html FILE",
	Short: "Tag courses from a saved class search results page",
	Long: `Reads a results page saved from the browser, extracts its course codes and tags the
matching catalog courses with the term, exactly as a live search for the prefix would.

With --dry-run nothing is written; each code is listed with its current catalog terms.`,
	Args: cobra.ExactArgs(1),
	RunE: runApplyHTMLCmd,
}

var (
	applyHTMLPrefix      string
	applyHTMLTerm        string
	applyHTMLDatabaseURL string
	applyHTMLDryRun      bool
)

func init() {
	applyHTMLCommand.Flags().StringVarP(&applyHTMLPrefix, "prefix", "p", "", "Prefix the page was searched for (required)")
	applyHTMLCommand.Flags().StringVarP(&applyHTMLTerm, "term", "t", "", "Term tag to apply (Fall, Winter, Spring, Summer)")
	applyHTMLCommand.Flags().StringVar(&applyHTMLDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	applyHTMLCommand.Flags().BoolVar(&applyHTMLDryRun, "dry-run", false, "List the extracted codes without updating the catalog")
	_ = applyHTMLCommand.MarkFlagRequired("prefix")
	rootCmd.AddCommand(applyHTMLCommand)
}

func runApplyHTMLCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, func(c *config.Config) {
		if cmd.Flags().Changed("term") {
			c.TermTag = applyHTMLTerm
		}
		if cmd.Flags().Changed("db-url") {
			c.DatabaseURL = applyHTMLDatabaseURL
		}
	})
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open results page: %w", err)
	}
	defer f.Close()

	ctx := context.Background()
	database, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	return applyHTML(ctx, f, database, htmlApply{
		Prefix: strings.ToUpper(strings.TrimSpace(applyHTMLPrefix)),
		Tag:    cfg.TermTag,
		DryRun: applyHTMLDryRun,
	}, cmd.OutOrStdout(), log)
}

type htmlApply struct {
	Prefix string
	Tag    string
	DryRun bool
}

// rowSelector is the structural locator of the result rows; a saved page has no
// accessibility tree to resolve the semantic ones against.
func rowSelector() string {
	rows := site.PeopleSoft().Markers.Rows.Locators
	return rows[len(rows)-1].Selector()
}

func applyHTML(ctx context.Context, page io.Reader, store catalog.Store, opts htmlApply, out io.Writer, log zerolog.Logger) error {
	start := time.Now()
	rows, err := extract.RowsFromHTML(page, rowSelector())
	if err != nil {
		return err
	}
	codes := extract.Codes(rows)
	log.Info().Str("prefix", opts.Prefix).Int("rows", len(rows)).Int("codes", len(codes)).Msg("results page parsed")

	if opts.DryRun {
		return writeCodeStatus(ctx, out, store, opts.Tag, codes)
	}

	report := types.PrefixReport{Prefix: opts.Prefix, Outcome: types.OutcomeNoResults, Codes: codes}
	if len(codes) > 0 {
		report.Outcome = types.OutcomeResults
		report.Tally, err = termsync.New(store, opts.Tag, log).Apply(ctx, opts.Prefix, codes)
		if err != nil {
			return err
		}
	}
	report.Duration = time.Since(start)
	observability.NewPrinter(out).PrintPrefixReport(&report)
	return nil
}

func writeCodeStatus(ctx context.Context, out io.Writer, store catalog.Store, tag string, codes []string) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tTERMS\tACTION")
	for _, code := range codes {
		course, err := store.FindCourseByCode(ctx, code)
		if err != nil {
			return fmt.Errorf("failed to look up %s: %w", code, err)
		}
		switch {
		case course == nil:
			fmt.Fprintf(w, "%s\t-\tnot in catalog\n", code)
		case course.HasTermTag(tag):
			fmt.Fprintf(w, "%s\t%s\talready synced\n", code, strings.Join(course.TermTags, ","))
		default:
			fmt.Fprintf(w, "%s\t%s\twould add %s\n", code, strings.Join(course.TermTags, ","), tag)
		}
	}
	return w.Flush()
}
