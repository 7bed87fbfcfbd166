package pipeline

import (
	"errors"
	"fmt"
)

// Stages a run can abort at.
const (
	StageLaunch   = "launch"
	StageLogin    = "login"
	StageNavigate = "navigate"
	StageFrame    = "frame"
	StageReset    = "reset"
)

// ErrUnknownPrefix is returned when --resume-after names a prefix that is not in the list.
var ErrUnknownPrefix = errors.New("prefix not in processing order")

// AbortError ends a run early. LastPrefix is the last prefix whose search and sync
// completed, empty when none did.
type AbortError struct {
	Stage      string
	LastPrefix string
	Cause      error
}

func (e *AbortError) Error() string {
	msg := fmt.Sprintf("run aborted at %s: %v", e.Stage, e.Cause)
	if e.LastPrefix != "" {
		msg += fmt.Sprintf(" (last completed prefix %s; rerun with --resume-after %s)", e.LastPrefix, e.LastPrefix)
	}
	return msg
}

func (e *AbortError) Unwrap() error {
	return e.Cause
}
