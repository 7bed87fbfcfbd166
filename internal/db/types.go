package db

import (
	"time"

	"github.com/google/uuid"
)

// Run status constants
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusCancelled = "cancelled"
	RunStatusAborted   = "aborted"
	RunStatusFailed    = "failed"
)

// SyncRun represents one term sync run
type SyncRun struct {
	ID            uuid.UUID  `json:"id"`
	TermTag       string     `json:"term_tag"`
	Status        string     `json:"status"`
	Prefixes      []string   `json:"prefixes"`
	LastPrefix    *string    `json:"last_prefix,omitempty"`
	Updated       int        `json:"updated"`
	AlreadySynced int        `json:"already_synced"`
	Anomalies     int        `json:"anomalies"`
	Failed        int        `json:"failed"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// SyncRunPrefix is the stored result of one prefix within a run
type SyncRunPrefix struct {
	RunID         uuid.UUID `json:"run_id"`
	Prefix        string    `json:"prefix"`
	Outcome       string    `json:"outcome"`
	Codes         []string  `json:"codes"`
	Updated       int       `json:"updated"`
	AlreadySynced int       `json:"already_synced"`
	AnomalyCodes  []string  `json:"anomaly_codes"`
	Failed        int       `json:"failed"`
	ErrorMessage  *string   `json:"error_message,omitempty"`
	DurationMs    int       `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}
