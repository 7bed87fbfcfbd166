// Package pipeline runs the term sync: sign in once per session, walk to the search frame,
// then search, extract, sync and reset for every prefix.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/term-sync/internal/auth"
	"github.com/jonathan/term-sync/internal/browser"
	"github.com/jonathan/term-sync/internal/catalog"
	"github.com/jonathan/term-sync/internal/navigator"
	"github.com/jonathan/term-sync/internal/recovery"
	"github.com/jonathan/term-sync/internal/search"
	"github.com/jonathan/term-sync/internal/termsync"
	"github.com/jonathan/term-sync/internal/types"
)

// MaxWorkers caps parallel sessions against one remote account.
const MaxWorkers = 8

// Recorder persists run bookkeeping. Implementations must be safe for concurrent use.
type Recorder interface {
	StartRun(ctx context.Context, termTag string, prefixes []string) (uuid.UUID, error)
	RecordPrefix(ctx context.Context, runID uuid.UUID, report types.PrefixReport) error
	FinishRun(ctx context.Context, runID uuid.UUID, summary *types.RunSummary, runErr error) error
}

// Pipeline wires the components. Components hold configuration only, so one Pipeline
// can drive several sessions at once.
type Pipeline struct {
	Store     catalog.Store
	Auth      *auth.Authenticator
	Navigator *navigator.Navigator
	Search    *search.Driver
	Reset     *recovery.Controller
	Sync      *termsync.Engine

	// Recorder is optional; failures are logged and never end a run.
	Recorder Recorder
	// DiagnosticsDir receives a screenshot when a session aborts. Empty disables.
	DiagnosticsDir string

	Log zerolog.Logger
}

// RunOptions holds configuration for one run.
type RunOptions struct {
	// Only restricts the run to these prefixes.
	Only        []string
	ResumeAfter string
	Workers     int
	OnProgress  ProgressCallback
}

// Run resolves prefixes, launches one browser session per worker and returns the merged
// summary. The summary is non-nil whenever prefixes were resolved, even on abort.
func (p *Pipeline) Run(ctx context.Context, launcher browser.Launcher, opts RunOptions) (*types.RunSummary, error) {
	log := p.Log.With().Str("component", "pipeline").Logger()

	prefixes, err := ResolvePrefixes(ctx, p.Store, opts.Only, opts.ResumeAfter)
	if err != nil {
		return nil, err
	}
	summary := &types.RunSummary{TermTag: p.Sync.TermTag, StartedAt: time.Now()}
	if len(prefixes) == 0 {
		log.Warn().Msg("no prefixes to process")
		summary.FinishedAt = time.Now()
		return summary, nil
	}

	runID := p.startRun(ctx, prefixes, log)
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	slices := Partition(prefixes, workers)
	log.Info().
		Str("term", p.Sync.TermTag).
		Int("prefixes", len(prefixes)).
		Int("workers", len(slices)).
		Msg("starting term sync")

	results := make([]*types.RunSummary, len(slices))
	g, gCtx := errgroup.WithContext(ctx)
	for i, slice := range slices {
		s := &session{
			p:        p,
			worker:   i,
			prefixes: slice,
			opts:     opts,
			runID:    runIDString(runID),
			runUUID:  runID,
			log:      log.With().Int("worker", i).Logger(),
		}
		g.Go(func() error {
			win, release, err := launcher.Launch(gCtx)
			if err != nil {
				results[s.worker] = s.skipAll(gCtx, err)
				return &AbortError{Stage: StageLaunch, Cause: fmt.Errorf("failed to launch browser: %w", err)}
			}
			defer release()
			res, err := s.run(gCtx, win)
			results[s.worker] = res
			return err
		})
	}
	runErr := g.Wait()

	for _, r := range results {
		summary.Merge(r)
	}
	summary.LastPrefix = lastCompleted(prefixes, summary)
	summary.FinishedAt = time.Now()
	p.finishRun(runID, summary, runErr, log)

	log.Info().
		Int("updated", summary.Totals.Updated).
		Int("already_synced", summary.Totals.AlreadySynced).
		Int("anomalies", summary.Totals.Anomalies).
		Int("failed", summary.Totals.Failed).
		Bool("cancelled", summary.Cancelled).
		Bool("aborted", summary.Aborted).
		Dur("elapsed", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("term sync finished")
	if opts.OnProgress != nil {
		opts.OnProgress(ProgressEvent{Step: StepComplete, Message: "run finished", RunID: runIDString(runID)})
	}
	return summary, runErr
}

// lastCompleted returns the latest prefix in processing order that succeeded, so a
// manual resume never skips a prefix that has not run.
func lastCompleted(order []string, summary *types.RunSummary) string {
	done := make(map[string]bool, len(summary.Prefixes))
	for _, r := range summary.Prefixes {
		if r.Succeeded() {
			done[r.Prefix] = true
		}
	}
	last := ""
	for _, p := range order {
		if !done[p] {
			break
		}
		last = p
	}
	return last
}

func (p *Pipeline) startRun(ctx context.Context, prefixes []string, log zerolog.Logger) uuid.UUID {
	if p.Recorder == nil {
		return uuid.Nil
	}
	id, err := p.Recorder.StartRun(ctx, p.Sync.TermTag, prefixes)
	if err != nil {
		log.Warn().Err(err).Msg("failed to record run start, continuing without bookkeeping")
		return uuid.Nil
	}
	log.Debug().Str("run_id", id.String()).Msg("run recorded")
	return id
}

func (p *Pipeline) finishRun(runID uuid.UUID, summary *types.RunSummary, runErr error, log zerolog.Logger) {
	if p.Recorder == nil || runID == uuid.Nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.Recorder.FinishRun(ctx, runID, summary, runErr); err != nil {
		log.Warn().Err(err).Msg("failed to record run completion")
	}
}

func runIDString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
