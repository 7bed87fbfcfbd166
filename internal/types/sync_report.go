package types

import "time"

// SearchOutcome is the observed result of one submitted search.
type SearchOutcome string

const (
	// OutcomeResults means result-list markers appeared.
	OutcomeResults SearchOutcome = "results"
	// OutcomePaginated means a truncation indicator appeared and "view all" was attempted.
	OutcomePaginated SearchOutcome = "paginated"
	// OutcomeNoResults means neither marker appeared before the outcome wait elapsed.
	OutcomeNoResults SearchOutcome = "no_results"
	// OutcomeFailed means the prefix could not be searched (essential control missing).
	OutcomeFailed SearchOutcome = "failed"
	// OutcomeSkipped means the prefix was never attempted.
	OutcomeSkipped SearchOutcome = "skipped"
)

// SyncTally counts per-code results of one sync batch.
type SyncTally struct {
	Updated       int      `json:"updated"`
	AlreadySynced int      `json:"already_synced"`
	Anomalies     int      `json:"anomalies"`
	Failed        int      `json:"failed"`
	AnomalyCodes  []string `json:"anomaly_codes,omitempty"`
}

// Add folds other into t.
func (t *SyncTally) Add(other SyncTally) {
	t.Updated += other.Updated
	t.AlreadySynced += other.AlreadySynced
	t.Anomalies += other.Anomalies
	t.Failed += other.Failed
	t.AnomalyCodes = append(t.AnomalyCodes, other.AnomalyCodes...)
}

// PrefixReport is the per-prefix progress record.
type PrefixReport struct {
	Prefix   string        `json:"prefix"`
	Outcome  SearchOutcome `json:"outcome"`
	Codes    []string      `json:"codes,omitempty"`
	Tally    SyncTally     `json:"tally"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Succeeded reports whether the prefix completed search and sync.
func (r PrefixReport) Succeeded() bool {
	return r.Outcome != OutcomeFailed && r.Outcome != OutcomeSkipped
}

// RunSummary aggregates every prefix processed in a run.
type RunSummary struct {
	TermTag    string         `json:"term_tag"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Prefixes   []PrefixReport `json:"prefixes"`
	Totals     SyncTally      `json:"totals"`
	LastPrefix string         `json:"last_prefix,omitempty"`
	Cancelled  bool           `json:"cancelled,omitempty"`
	Aborted    bool           `json:"aborted,omitempty"`
}

// Record appends a prefix report and updates totals and LastPrefix.
func (s *RunSummary) Record(r PrefixReport) {
	s.Prefixes = append(s.Prefixes, r)
	s.Totals.Add(r.Tally)
	if r.Succeeded() {
		s.LastPrefix = r.Prefix
	}
}

// Merge folds a worker's summary into s. Prefix reports keep worker order.
func (s *RunSummary) Merge(other *RunSummary) {
	if other == nil {
		return
	}
	s.Prefixes = append(s.Prefixes, other.Prefixes...)
	s.Totals.Add(other.Totals)
	s.Cancelled = s.Cancelled || other.Cancelled
	s.Aborted = s.Aborted || other.Aborted
}

// CountOutcome returns how many prefixes ended with outcome o.
func (s *RunSummary) CountOutcome(o SearchOutcome) int {
	n := 0
	for _, p := range s.Prefixes {
		if p.Outcome == o {
			n++
		}
	}
	return n
}
