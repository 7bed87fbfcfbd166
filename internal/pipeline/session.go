package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jonathan/term-sync/internal/browser"
	"github.com/jonathan/term-sync/internal/extract"
	"github.com/jonathan/term-sync/internal/navigator"
	"github.com/jonathan/term-sync/internal/types"
)

// session owns one window, its route and its current frame handle. It is never shared
// between goroutines.
type session struct {
	p        *Pipeline
	worker   int
	prefixes []string
	opts     RunOptions
	runID    string
	runUUID  uuid.UUID
	log      zerolog.Logger

	route *navigator.Route
	frame browser.Surface
}

func (s *session) run(ctx context.Context, win browser.Window) (*types.RunSummary, error) {
	summary := &types.RunSummary{TermTag: s.p.Sync.TermTag, StartedAt: time.Now()}
	defer func() { summary.FinishedAt = time.Now() }()

	if err := s.open(ctx, win); err != nil {
		if ctx.Err() != nil {
			summary.Cancelled = true
			s.skipRemaining(ctx, summary, 0)
			return summary, nil
		}
		summary.Aborted = true
		s.skipRemaining(ctx, summary, 0)
		s.diagnose(win, err)
		return summary, err
	}

	// In-flight remote work is bounded by per-operation timeouts and finishes even if
	// ctx is cancelled; cancellation is only observed between prefixes.
	work := context.WithoutCancel(ctx)

	for i, prefix := range s.prefixes {
		if ctx.Err() != nil {
			s.log.Info().Str("next_prefix", prefix).Msg("cancellation requested, stopping before next prefix")
			summary.Cancelled = true
			s.skipRemaining(ctx, summary, i)
			return summary, nil
		}

		report := s.process(work, prefix)
		summary.Record(report)
		s.record(work, report)

		if i == len(s.prefixes)-1 {
			break
		}
		frame, err := s.p.Reset.Reset(work, s.route, s.frame)
		if err != nil {
			last := lastCompleted(s.prefixes, summary)
			s.log.Error().Err(err).Str("last_prefix", last).Msg("search frame lost, aborting run")
			summary.Aborted = true
			s.skipRemaining(work, summary, i+1)
			aerr := &AbortError{Stage: StageReset, LastPrefix: last, Cause: err}
			s.diagnose(s.route.Window(), aerr)
			return summary, aerr
		}
		s.frame = frame
		s.emit(StepReset, prefix, "search reset", nil)
	}
	return summary, nil
}

// open signs in, walks the menu path and acquires the first frame. Every failure here is
// fatal for the session.
func (s *session) open(ctx context.Context, win browser.Window) error {
	if err := s.p.Auth.Login(ctx, win); err != nil {
		return &AbortError{Stage: StageLogin, Cause: err}
	}
	s.emit(StepLogin, "", "signed in", nil)

	route, err := s.p.Navigator.Open(ctx, win)
	if err != nil {
		return &AbortError{Stage: StageNavigate, Cause: err}
	}
	s.route = route

	frame, err := route.AcquireFrame(ctx)
	if err != nil {
		return &AbortError{Stage: StageFrame, Cause: err}
	}
	s.frame = frame
	s.emit(StepNavigate, "", "search frame acquired", nil)
	return nil
}

// process runs search, extraction and sync for one prefix. Failures stay inside the
// report.
func (s *session) process(ctx context.Context, prefix string) types.PrefixReport {
	start := time.Now()
	log := s.log.With().Str("prefix", prefix).Logger()
	report := types.PrefixReport{Prefix: prefix}

	res, err := s.p.Search.Search(ctx, s.frame, prefix)
	if err != nil {
		report.Outcome = types.OutcomeFailed
		report.Error = err.Error()
		report.Duration = time.Since(start)
		log.Error().Err(err).Str("outcome", string(report.Outcome)).Msg("search failed, continuing with next prefix")
		s.emit(StepPrefix, prefix, "search failed", &report)
		return report
	}
	report.Outcome = res.Outcome

	if res.Outcome != types.OutcomeNoResults {
		report.Codes = extract.Codes(res.Rows)
		tally, err := s.p.Sync.Apply(ctx, prefix, report.Codes)
		report.Tally = tally
		if err != nil {
			report.Error = err.Error()
		}
	}
	report.Duration = time.Since(start)

	log.Info().
		Str("outcome", string(report.Outcome)).
		Int("codes", len(report.Codes)).
		Int("updated", report.Tally.Updated).
		Int("already_synced", report.Tally.AlreadySynced).
		Int("anomalies", report.Tally.Anomalies).
		Int("failed", report.Tally.Failed).
		Dur("elapsed", report.Duration).
		Msg("prefix processed")
	s.emit(StepPrefix, prefix, fmt.Sprintf("%s: %d updated", report.Outcome, report.Tally.Updated), &report)
	return report
}

// skipRemaining marks prefixes from index from on as skipped, in the summary and in the
// run bookkeeping. ctx may already be cancelled.
func (s *session) skipRemaining(ctx context.Context, summary *types.RunSummary, from int) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	for _, prefix := range s.prefixes[from:] {
		report := types.PrefixReport{Prefix: prefix, Outcome: types.OutcomeSkipped}
		summary.Record(report)
		s.record(ctx, report)
	}
}

// skipAll builds the summary of a session that never started.
func (s *session) skipAll(ctx context.Context, cause error) *types.RunSummary {
	summary := &types.RunSummary{TermTag: s.p.Sync.TermTag, StartedAt: time.Now(), Aborted: true}
	s.skipRemaining(ctx, summary, 0)
	if cause != nil {
		s.log.Error().Err(cause).Msg("session could not start")
	}
	summary.FinishedAt = time.Now()
	return summary
}

func (s *session) record(ctx context.Context, report types.PrefixReport) {
	if s.p.Recorder == nil || s.runUUID == uuid.Nil {
		return
	}
	if err := s.p.Recorder.RecordPrefix(ctx, s.runUUID, report); err != nil {
		s.log.Warn().Err(err).Str("prefix", report.Prefix).Msg("failed to record prefix result")
	}
}

// diagnose saves a screenshot and the frame list of win for a fatal error.
func (s *session) diagnose(win browser.Window, cause error) {
	if win == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	ev := s.log.Error().Err(cause)
	if urls, err := win.FrameURLs(ctx); err == nil {
		ev = ev.Strs("frames", urls)
	}
	if loc, err := win.Location(ctx); err == nil {
		ev = ev.Str("url", loc)
	}

	if s.p.DiagnosticsDir != "" {
		path, err := s.screenshot(ctx, win)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to save diagnostics screenshot")
		} else {
			ev = ev.Str("screenshot", path)
		}
	}
	ev.Msg("session aborted")
}

func (s *session) screenshot(ctx context.Context, win browser.Window) (string, error) {
	png, err := win.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.p.DiagnosticsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create diagnostics directory: %w", err)
	}
	name := fmt.Sprintf("abort-w%d-%s.png", s.worker, time.Now().Format("20060102-150405"))
	path := filepath.Join(s.p.DiagnosticsDir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, nil
}
