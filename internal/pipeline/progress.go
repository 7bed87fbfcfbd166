package pipeline

import "github.com/jonathan/term-sync/internal/types"

// Progress steps.
const (
	StepLogin    = "login"
	StepNavigate = "navigate"
	StepPrefix   = "prefix"
	StepReset    = "reset"
	StepComplete = "complete"
)

// ProgressEvent represents a progress update during a run.
type ProgressEvent struct {
	Step    string              `json:"step"`
	Worker  int                 `json:"worker"`
	Prefix  string              `json:"prefix,omitempty"`
	Message string              `json:"message"`
	RunID   string              `json:"run_id,omitempty"`
	Report  *types.PrefixReport `json:"report,omitempty"`
}

// ProgressCallback is called when run progress occurs. It may be called from several
// worker goroutines at once.
type ProgressCallback func(event ProgressEvent)

func (s *session) emit(step, prefix, message string, report *types.PrefixReport) {
	if s.opts.OnProgress == nil {
		return
	}
	s.opts.OnProgress(ProgressEvent{
		Step:    step,
		Worker:  s.worker,
		Prefix:  prefix,
		Message: message,
		RunID:   s.runID,
		Report:  report,
	})
}
