// Package termsync merges a term tag into the catalog for the course codes a search
// returned. Every update is a fresh read followed by a compare-and-swap on the term set,
// so repeated runs and concurrent writers never produce duplicate tags.
package termsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jonathan/term-sync/internal/catalog"
	"github.com/jonathan/term-sync/internal/types"
)

// DefaultMaxAttempts bounds compare-and-swap attempts per code.
const DefaultMaxAttempts = 3

// Result is the fate of one code.
type Result int

const (
	ResultUpdated Result = iota
	ResultAlreadySynced
	ResultNotFound
)

func (r Result) String() string {
	switch r {
	case ResultUpdated:
		return "updated"
	case ResultAlreadySynced:
		return "already_synced"
	case ResultNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// ConflictError is returned when every compare-and-swap attempt lost a race.
type ConflictError struct {
	Code     string
	Attempts int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("term tags for %s kept changing (%d attempts)", e.Code, e.Attempts)
}

func (e *ConflictError) Unwrap() error {
	return catalog.ErrTermConflict
}

// Engine is the Sync Engine.
type Engine struct {
	Store       catalog.Store
	TermTag     string
	MaxAttempts int
	Log         zerolog.Logger
}

// New creates an engine tagging courses with tag.
func New(store catalog.Store, tag string, log zerolog.Logger) *Engine {
	return &Engine{
		Store:       store,
		TermTag:     tag,
		MaxAttempts: DefaultMaxAttempts,
		Log:         log.With().Str("component", "termsync").Logger(),
	}
}

// Apply syncs every code found for prefix. Unknown codes and per-code store failures are
// counted, never returned; the error is non-nil only when ctx ended, in which case the
// tally covers the codes handled so far.
func (e *Engine) Apply(ctx context.Context, prefix string, codes []string) (types.SyncTally, error) {
	var tally types.SyncTally
	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return tally, err
		}
		log := e.Log.With().Str("prefix", prefix).Str("code", code).Str("tag", e.TermTag).Logger()

		res, err := e.SyncCode(ctx, code)
		switch {
		case err != nil && ctx.Err() != nil:
			return tally, ctx.Err()
		case err != nil:
			tally.Failed++
			log.Error().Err(err).Msg("course update failed")
		case res == ResultNotFound:
			tally.Anomalies++
			tally.AnomalyCodes = append(tally.AnomalyCodes, code)
			log.Warn().Msg("anomaly: no course record for code")
		case res == ResultAlreadySynced:
			tally.AlreadySynced++
			log.Debug().Msg("already synchronized")
		default:
			tally.Updated++
			log.Info().Msg("term tag added")
		}
	}
	return tally, nil
}

// SyncCode adds the engine's tag to one course. The course is re-read on every attempt.
func (e *Engine) SyncCode(ctx context.Context, code string) (Result, error) {
	attempts := e.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	for i := 1; i <= attempts; i++ {
		course, err := e.Store.FindCourseByCode(ctx, code)
		if err != nil {
			return 0, fmt.Errorf("failed to read course %s: %w", code, err)
		}
		if course == nil {
			return ResultNotFound, nil
		}
		if course.HasTermTag(e.TermTag) {
			return ResultAlreadySynced, nil
		}

		next, _ := catalog.AddTermTag(catalog.NormalizeTermTags(course.TermTags), e.TermTag)
		err = e.Store.CompareAndSwapTermTags(ctx, code, course.TermTags, next)
		switch {
		case err == nil:
			return ResultUpdated, nil
		case errors.Is(err, catalog.ErrCourseNotFound):
			return ResultNotFound, nil
		case errors.Is(err, catalog.ErrTermConflict):
			e.Log.Debug().Str("code", code).Int("attempt", i).Msg("term set changed underneath, re-reading")
			continue
		default:
			return 0, fmt.Errorf("failed to update course %s: %w", code, err)
		}
	}
	return 0, &ConflictError{Code: code, Attempts: attempts}
}
