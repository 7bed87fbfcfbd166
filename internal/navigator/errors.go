package navigator

import (
	"fmt"
	"strings"

	"github.com/jonathan/term-sync/internal/browser"
)

// ErrFrameNotFound is matched by every FrameError.
var ErrFrameNotFound = browser.ErrFrameNotFound

// FrameError reports that no nested frame matched the marker within the wait.
type FrameError struct {
	Marker string
	Seen   []string
}

func (e *FrameError) Error() string {
	if len(e.Seen) == 0 {
		return fmt.Sprintf("no frame address contains %q (no frames attached)", e.Marker)
	}
	return fmt.Sprintf("no frame address contains %q (frames: %s)", e.Marker, strings.Join(e.Seen, ", "))
}

func (e *FrameError) Unwrap() error {
	return ErrFrameNotFound
}

// StepError wraps a failure while walking the menu path.
type StepError struct {
	Step  string
	Cause error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("navigation step %q failed: %v", e.Step, e.Cause)
}

func (e *StepError) Unwrap() error {
	return e.Cause
}
