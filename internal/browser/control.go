package browser

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Control is one interaction point on the remote UI with its locators in priority order:
// a semantic (role or label) locator first, structural fallbacks after it.
//
// When every locator fails, an essential control returns a *ControlError; a non-essential
// one logs a warning and reports nothing done.
type Control struct {
	Name      string
	Essential bool
	Locators  []Locator
}

// NewControl builds an essential control.
func NewControl(name string, locators ...Locator) Control {
	return Control{Name: name, Essential: true, Locators: locators}
}

// Optional builds a non-essential control.
func Optional(name string, locators ...Locator) Control {
	return Control{Name: name, Locators: locators}
}

// Click clicks the control. done is false when a non-essential control was unavailable.
func Click(ctx context.Context, s Surface, c Control, log zerolog.Logger) (done bool, err error) {
	return apply(ctx, c, "click", log, func(loc Locator) error {
		return s.Click(ctx, loc)
	})
}

// Fill types value into the control.
func Fill(ctx context.Context, s Surface, c Control, value string, log zerolog.Logger) (bool, error) {
	return apply(ctx, c, "fill", log, func(loc Locator) error {
		return s.Fill(ctx, loc, value)
	})
}

// Select chooses value in the control.
func Select(ctx context.Context, s Surface, c Control, value string, log zerolog.Logger) (bool, error) {
	return apply(ctx, c, "select", log, func(loc Locator) error {
		return s.Select(ctx, loc, value)
	})
}

// SetChecked puts the control's checkbox into the wanted state.
func SetChecked(ctx context.Context, s Surface, c Control, checked bool, log zerolog.Logger) (bool, error) {
	return apply(ctx, c, "check", log, func(loc Locator) error {
		return s.SetChecked(ctx, loc, checked)
	})
}

// Present reports which locator of c currently matches, or nil.
func Present(ctx context.Context, s Surface, c Control) Locator {
	for _, loc := range c.Locators {
		if ok, err := s.Exists(ctx, loc); err == nil && ok {
			return loc
		}
	}
	return nil
}

func apply(ctx context.Context, c Control, action string, log zerolog.Logger, do func(Locator) error) (bool, error) {
	var attempts []Attempt
	for i, loc := range c.Locators {
		err := do(loc)
		if err == nil {
			if i > 0 {
				log.Debug().
					Str("control", c.Name).
					Str("locator", loc.String()).
					Bool("fallback_attempted", true).
					Msg("control reached through fallback locator")
			}
			return true, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		attempts = append(attempts, Attempt{Locator: loc.String(), Err: err})
	}

	if len(attempts) == 0 {
		attempts = append(attempts, Attempt{Locator: "(none)", Err: ErrNotFound})
	}
	cerr := &ControlError{Control: c.Name, Action: action, Attempts: attempts}
	if c.Essential {
		return false, cerr
	}

	ev := log.Warn().
		Str("control", c.Name).
		Str("action", action).
		Bool("fallback_attempted", len(attempts) > 1)
	if last := attempts[len(attempts)-1]; !errors.Is(last.Err, ErrNotFound) {
		ev = ev.AnErr("last_error", last.Err)
	}
	ev.Msg("non-essential control unavailable, continuing")
	return false, nil
}
