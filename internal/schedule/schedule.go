// Package schedule runs the sync unattended on a cron expression. At most one run is in
// flight at a time; a tick that fires while the previous run is still going is skipped.
package schedule

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// RunFunc performs one sync run.
type RunFunc func(ctx context.Context) error

// Scheduler wraps a cron runner around a RunFunc.
type Scheduler struct {
	run     RunFunc
	log     zerolog.Logger
	cron    *cron.Cron
	job     cron.Job
	runs    atomic.Int64
	skipped atomic.Int64
}

// New creates a Scheduler. The cron runner is not started until Run.
func New(run RunFunc, log zerolog.Logger) *Scheduler {
	s := &Scheduler{
		run: run,
		log: log.With().Str("component", "schedule").Logger(),
	}
	cl := cronLogger{log: s.log}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)
	return s
}

// Validate parses expr with the standard five-field parser (descriptors such as @daily and
// @every 6h are accepted).
func Validate(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

// Next returns the first activation of expr after from.
func Next(expr string, from time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return sched.Next(from), nil
}

// Run registers the job, starts the cron runner and blocks until ctx is done. On return
// any in-flight run has finished.
func (s *Scheduler) Run(ctx context.Context, expr string) error {
	if err := Validate(expr); err != nil {
		return err
	}
	if _, err := s.cron.AddJob(expr, s.wrap(ctx)); err != nil {
		return fmt.Errorf("failed to schedule sync: %w", err)
	}

	s.cron.Start()
	entries := s.cron.Entries()
	if len(entries) > 0 {
		s.log.Info().Str("schedule", expr).Time("next", entries[0].Next).Msg("Scheduler started")
	}

	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopping, waiting for in-flight run")
	<-s.cron.Stop().Done()
	s.log.Info().
		Int64("runs", s.runs.Load()).
		Int64("skipped", s.skipped.Load()).
		Msg("Scheduler stopped")
	return nil
}

// Stats returns the number of completed and skipped runs.
func (s *Scheduler) Stats() (runs, skipped int64) {
	return s.runs.Load(), s.skipped.Load()
}

// wrap builds the job the cron runner invokes: the run itself guarded by SkipIfStillRunning.
func (s *Scheduler) wrap(ctx context.Context) cron.Job {
	if s.job != nil {
		return s.job
	}
	inner := cron.FuncJob(func() {
		started := time.Now()
		s.log.Info().Msg("Scheduled sync starting")
		err := s.run(ctx)
		s.runs.Add(1)
		if err != nil {
			s.log.Error().Err(err).Dur("duration", time.Since(started)).Msg("Scheduled sync failed")
			return
		}
		s.log.Info().Dur("duration", time.Since(started)).Msg("Scheduled sync completed")
	})
	s.job = cron.NewChain(cron.SkipIfStillRunning(skipLogger{s: s})).Then(inner)
	return s.job
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

// skipLogger counts ticks dropped by SkipIfStillRunning, which reports them through Info.
type skipLogger struct {
	s *Scheduler
}

func (l skipLogger) Info(msg string, keysAndValues ...any) {
	if msg == "skip" {
		l.s.skipped.Add(1)
		l.s.log.Warn().Msg("Previous sync still running, skipping this tick")
		return
	}
	l.s.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l skipLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
