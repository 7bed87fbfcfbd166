// Package recovery returns the search frame to a clean state between prefixes.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonathan/term-sync/internal/browser"
)

// DefaultSettle follows the new-search click when no readiness control is configured.
const DefaultSettle = time.Second

// DefaultReadyTimeout bounds the wait for a fresh search form.
const DefaultReadyTimeout = 15 * time.Second

// Route is the part of a navigation route the controller drives.
type Route interface {
	AcquireFrame(ctx context.Context) (browser.Surface, error)
	Reopen(ctx context.Context) error
}

// ResetError means the frame could not be re-acquired; the run cannot continue.
type ResetError struct {
	Cause error
}

func (e *ResetError) Error() string {
	return fmt.Sprintf("search frame lost after reset: %v", e.Cause)
}

func (e *ResetError) Unwrap() error {
	return e.Cause
}

// Controller is the Reset/Recovery Controller.
type Controller struct {
	// NewSearch is tried on the current frame first. It is treated as non-essential: when
	// unavailable the menu path is replayed instead.
	NewSearch browser.Control
	// Ready is present only on a freshly rendered search form (the subject field). When it
	// has locators the controller polls for it instead of waiting Settle.
	Ready        browser.Control
	ReadyTimeout time.Duration
	PollInterval time.Duration
	Settle       time.Duration // negative disables
	Log          zerolog.Logger
}

// Reset puts the search tool back into a fresh state and returns the new frame handle.
// frame may be nil or detached (for instance after a failed search).
func (c *Controller) Reset(ctx context.Context, route Route, frame browser.Surface) (browser.Surface, error) {
	log := c.Log.With().Str("component", "reset").Logger()

	reset := false
	if frame != nil {
		ctl := c.NewSearch
		ctl.Essential = false
		done, err := browser.Click(ctx, frame, ctl, log)
		if err != nil {
			return nil, err
		}
		reset = done
	}

	if reset {
		next, err := c.awaitForm(ctx, route)
		if err == nil {
			log.Debug().Msg("new search ready")
			return next, nil
		}
		log.Warn().Err(err).Msg("frame not re-acquired after new search, replaying menu path")
	} else {
		log.Info().Bool("fallback_attempted", true).Msg("new search unavailable, replaying menu path")
	}

	if err := route.Reopen(ctx); err != nil {
		return nil, &ResetError{Cause: err}
	}
	next, err := c.awaitForm(ctx, route)
	if err != nil {
		return nil, &ResetError{Cause: err}
	}
	return next, nil
}

// awaitForm re-acquires the frame until the Ready control shows on it. The previous
// handle can still resolve for a moment after a reset, so a frame without the control
// does not count.
func (c *Controller) awaitForm(ctx context.Context, route Route) (browser.Surface, error) {
	if len(c.Ready.Locators) == 0 {
		if err := browser.Settle(ctx, c.settle()); err != nil {
			return nil, err
		}
		return route.AcquireFrame(ctx)
	}

	timeout := c.ReadyTimeout
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	var frame browser.Surface
	var lastErr error
	err := browser.Poll(ctx, timeout, c.PollInterval, func(ctx context.Context) (bool, error) {
		f, err := route.AcquireFrame(ctx)
		if err != nil {
			lastErr = err
			return false, nil
		}
		if browser.Present(ctx, f, c.Ready) == nil {
			lastErr = nil
			return false, nil
		}
		frame = f
		return true, nil
	})
	switch {
	case err == nil:
		return frame, nil
	case errors.Is(err, browser.ErrTimeout) && lastErr != nil:
		return nil, lastErr
	case errors.Is(err, browser.ErrTimeout):
		return nil, fmt.Errorf("search form not ready (%s missing): %w", c.Ready.Name, err)
	default:
		return nil, err
	}
}

func (c *Controller) settle() time.Duration {
	switch {
	case c.Settle > 0:
		return c.Settle
	case c.Settle < 0:
		return 0
	default:
		return DefaultSettle
	}
}
