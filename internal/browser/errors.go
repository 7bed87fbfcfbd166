// Package browser drives the remote web application: chromedp sessions, windows and
// frames, locator strategies with ordered fallbacks, and bounded polling.
package browser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means a locator matched no element.
	ErrNotFound = errors.New("element not found")
	// ErrTimeout means a bounded wait elapsed before its condition held.
	ErrTimeout = errors.New("timed out waiting")
	// ErrFrameNotFound means no nested frame address contained the marker.
	ErrFrameNotFound = errors.New("frame not found")
	// ErrDetached means the frame handle no longer refers to a live document.
	ErrDetached = errors.New("frame detached")
	// ErrNoOption means a <select> has no option with the requested value.
	ErrNoOption = errors.New("option not available")
)

// Attempt records one locator tried for a control and why it failed.
type Attempt struct {
	Locator string
	Err     error
}

// ControlError reports that every locator for an essential control failed.
type ControlError struct {
	Control  string
	Action   string
	Attempts []Attempt
}

func (e *ControlError) Error() string {
	tried := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		tried = append(tried, fmt.Sprintf("%s (%v)", a.Locator, a.Err))
	}
	return fmt.Sprintf("control %q unavailable for %s: tried %s", e.Control, e.Action, strings.Join(tried, ", "))
}

// Unwrap returns the last attempt's error.
func (e *ControlError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}
