// Package navigator walks from the authenticated landing page to the embedded search tool:
// it opens the secondary window, clicks through the menu panels and locates the search
// frame by address marker.
package navigator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonathan/term-sync/internal/browser"
)

// Default waits.
const (
	DefaultPopupTimeout = 30 * time.Second
	DefaultSettle       = 3 * time.Second
	DefaultStepTimeout  = 15 * time.Second
	DefaultFrameTimeout = 15 * time.Second
)

// State is the position along the navigation path.
type State int

const (
	StateAuthenticated State = iota
	StateMenuStep1
	StateMenuStep2
	StateFrameAcquired
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateMenuStep1:
		return "menu_step_1"
	case StateMenuStep2:
		return "menu_step_2"
	case StateFrameAcquired:
		return "frame_acquired"
	default:
		return "unknown"
	}
}

// Step is one menu click. When ReadyWhen is set, the step polls for it instead of waiting
// the fixed Settle delay. A zero Settle means DefaultSettle, a negative one means none.
type Step struct {
	Name      string
	Control   browser.Control
	ReadyWhen browser.Control
	Settle    time.Duration
}

// Navigator is the Frame Navigator configuration. It holds no session state; every
// Open returns a Route bound to the window it opened.
type Navigator struct {
	PopupLauncher browser.Control
	Steps         []Step
	FrameMarker   string
	// LoadSettle is waited once before the first menu step (same zero/negative rules as
	// Step.Settle).
	LoadSettle time.Duration

	PopupTimeout time.Duration
	StepTimeout  time.Duration
	FrameTimeout time.Duration
	PollInterval time.Duration

	Log zerolog.Logger
}

// Route is one live path to the search frame.
type Route struct {
	nav   *Navigator
	win   browser.Window
	home  string
	state State
	frame browser.Surface
	log   zerolog.Logger
}

// Open clicks the launcher on the authenticated window, waits for the popup and walks
// the menu steps. The frame is not acquired yet.
func (n *Navigator) Open(ctx context.Context, win browser.Window) (*Route, error) {
	log := n.Log.With().Str("component", "navigator").Logger()

	popup, err := n.openPopup(ctx, win, log)
	if err != nil {
		return nil, err
	}
	home, err := popup.Location(ctx)
	if err != nil {
		return nil, &StepError{Step: "popup", Cause: err}
	}
	log.Info().Str("url", home).Msg("search window opened")

	r := &Route{nav: n, win: popup, home: home, state: StateAuthenticated, log: log}
	if err := r.walk(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (n *Navigator) openPopup(ctx context.Context, win browser.Window, log zerolog.Logger) (browser.Window, error) {
	timeout := n.PopupTimeout
	if timeout <= 0 {
		timeout = DefaultPopupTimeout
	}
	var attempts []browser.Attempt
	for i, loc := range n.PopupLauncher.Locators {
		popup, err := win.ClickForPopup(ctx, loc, timeout)
		if err == nil {
			if i > 0 {
				log.Debug().Str("locator", loc.String()).Bool("fallback_attempted", true).Msg("popup opened through fallback locator")
			}
			return popup, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		attempts = append(attempts, browser.Attempt{Locator: loc.String(), Err: err})
	}
	if len(attempts) == 0 {
		attempts = append(attempts, browser.Attempt{Locator: "(none)", Err: browser.ErrNotFound})
	}
	return nil, &StepError{
		Step:  "popup",
		Cause: &browser.ControlError{Control: n.PopupLauncher.Name, Action: "open popup", Attempts: attempts},
	}
}

// Window is the secondary window the route lives in.
func (r *Route) Window() browser.Window {
	return r.win
}

// State returns the current navigation state.
func (r *Route) State() State {
	return r.state
}

// Frame returns the last acquired frame handle, or nil.
func (r *Route) Frame() browser.Surface {
	return r.frame
}

// AcquireFrame locates the search frame by address marker. It may be called again after
// any navigation that invalidated the previous handle.
func (r *Route) AcquireFrame(ctx context.Context) (browser.Surface, error) {
	n := r.nav
	timeout := n.FrameTimeout
	if timeout <= 0 {
		timeout = DefaultFrameTimeout
	}

	var frame browser.Surface
	err := browser.Poll(ctx, timeout, n.PollInterval, func(ctx context.Context) (bool, error) {
		f, err := r.win.FindFrame(ctx, n.FrameMarker)
		if err != nil {
			return false, err
		}
		frame = f
		return true, nil
	})
	if err != nil {
		r.frame = nil
		if !errors.Is(err, browser.ErrTimeout) {
			return nil, err
		}
		seen, _ := r.win.FrameURLs(ctx)
		ferr := &FrameError{Marker: n.FrameMarker, Seen: seen}
		r.log.Error().Str("marker", n.FrameMarker).Strs("frames", seen).Msg("search frame not found")
		return nil, ferr
	}

	r.frame = frame
	r.state = StateFrameAcquired
	r.log.Debug().Str("marker", n.FrameMarker).Msg("search frame acquired")
	return frame, nil
}

// Reopen returns the window to the landing address and walks the menu path again. Any
// previously acquired frame is dropped.
func (r *Route) Reopen(ctx context.Context) error {
	r.frame = nil
	if err := r.win.Navigate(ctx, r.home); err != nil {
		return &StepError{Step: "reopen", Cause: err}
	}
	r.state = StateAuthenticated
	r.log.Info().Str("url", r.home).Msg("reopening search panel through menu path")
	return r.walk(ctx)
}

func (r *Route) walk(ctx context.Context) error {
	n := r.nav
	if err := browser.Settle(ctx, settle(n.LoadSettle)); err != nil {
		return err
	}
	for i, step := range n.Steps {
		if _, err := browser.Click(ctx, r.win, step.Control, r.log); err != nil {
			return &StepError{Step: step.Name, Cause: err}
		}
		if err := n.await(ctx, r.win, step, r.log); err != nil {
			return &StepError{Step: step.Name, Cause: err}
		}
		r.state = menuState(i)
		r.log.Debug().Str("step", step.Name).Stringer("state", r.state).Msg("menu step done")
	}
	return nil
}

func (n *Navigator) await(ctx context.Context, win browser.Window, step Step, log zerolog.Logger) error {
	if len(step.ReadyWhen.Locators) == 0 {
		return browser.Settle(ctx, settle(step.Settle))
	}
	timeout := n.StepTimeout
	if timeout <= 0 {
		timeout = DefaultStepTimeout
	}
	_, err := browser.WaitForAny(ctx, win, timeout, n.PollInterval, step.ReadyWhen.Locators...)
	if errors.Is(err, browser.ErrTimeout) {
		log.Warn().Str("step", step.Name).Str("control", step.ReadyWhen.Name).Msg("readiness signal not seen, continuing")
		return nil
	}
	return err
}

func settle(d time.Duration) time.Duration {
	switch {
	case d > 0:
		return d
	case d < 0:
		return 0
	default:
		return DefaultSettle
	}
}

func menuState(i int) State {
	if i == 0 {
		return StateMenuStep1
	}
	return StateMenuStep2
}
