package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/term-sync/internal/types"
)

// -----------------------------------------------------------------------------
// Sync Run Methods
// -----------------------------------------------------------------------------

// StartRun creates a sync run record in the running state and returns its ID
func (db *DB) StartRun(ctx context.Context, termTag string, prefixes []string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := db.pool.Exec(ctx,
		`INSERT INTO sync_runs (id, term_tag, status, prefixes)
		 VALUES ($1, $2, $3, $4)`,
		id, termTag, RunStatusRunning, termsArg(prefixes),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create sync run: %w", err)
	}
	return id, nil
}

// RecordPrefix stores the result of one prefix. Recording the same prefix twice keeps
// the latest result.
func (db *DB) RecordPrefix(ctx context.Context, runID uuid.UUID, r types.PrefixReport) error {
	var errMsg *string
	if r.Error != "" {
		errMsg = &r.Error
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO sync_run_prefixes
		     (run_id, prefix, outcome, codes, updated_count, already_synced,
		      anomaly_codes, failed_count, error_message, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (run_id, prefix) DO UPDATE SET
		     outcome = $3, codes = $4, updated_count = $5, already_synced = $6,
		     anomaly_codes = $7, failed_count = $8, error_message = $9, duration_ms = $10`,
		runID, r.Prefix, string(r.Outcome), termsArg(r.Codes), r.Tally.Updated, r.Tally.AlreadySynced,
		termsArg(r.Tally.AnomalyCodes), r.Tally.Failed, errMsg, int(r.Duration.Milliseconds()),
	)
	if err != nil {
		return fmt.Errorf("failed to record prefix: %w", err)
	}
	return nil
}

// FinishRun stores totals and the final status of a run
func (db *DB) FinishRun(ctx context.Context, runID uuid.UUID, summary *types.RunSummary, runErr error) error {
	var errMsg, lastPrefix *string
	if runErr != nil {
		msg := runErr.Error()
		errMsg = &msg
	}
	if summary.LastPrefix != "" {
		lastPrefix = &summary.LastPrefix
	}
	_, err := db.pool.Exec(ctx,
		`UPDATE sync_runs SET status = $1, last_prefix = $2, updated_count = $3,
		     already_synced = $4, anomaly_count = $5, failed_count = $6,
		     error_message = $7, completed_at = NOW()
		 WHERE id = $8`,
		RunStatus(summary, runErr), lastPrefix, summary.Totals.Updated, summary.Totals.AlreadySynced,
		summary.Totals.Anomalies, summary.Totals.Failed, errMsg, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete sync run: %w", err)
	}
	return nil
}

// RunStatus derives the stored status of a finished run.
func RunStatus(summary *types.RunSummary, runErr error) string {
	switch {
	case summary != nil && summary.Aborted:
		return RunStatusAborted
	case runErr != nil:
		return RunStatusFailed
	case summary != nil && summary.Cancelled:
		return RunStatusCancelled
	default:
		return RunStatusCompleted
	}
}

// GetSyncRun retrieves a sync run by ID
func (db *DB) GetSyncRun(ctx context.Context, runID uuid.UUID) (*SyncRun, error) {
	var run SyncRun
	err := db.pool.QueryRow(ctx,
		`SELECT id, term_tag, status, prefixes, last_prefix, updated_count, already_synced,
		        anomaly_count, failed_count, error_message, started_at, completed_at
		 FROM sync_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.TermTag, &run.Status, &run.Prefixes, &run.LastPrefix, &run.Updated,
		&run.AlreadySynced, &run.Anomalies, &run.Failed, &run.ErrorMessage, &run.StartedAt, &run.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sync run: %w", err)
	}
	return &run, nil
}

// ListSyncRuns retrieves recent sync runs, newest first
func (db *DB) ListSyncRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, term_tag, status, prefixes, last_prefix, updated_count, already_synced,
		        anomaly_count, failed_count, error_message, started_at, completed_at
		 FROM sync_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		var run SyncRun
		if err := rows.Scan(&run.ID, &run.TermTag, &run.Status, &run.Prefixes, &run.LastPrefix, &run.Updated,
			&run.AlreadySynced, &run.Anomalies, &run.Failed, &run.ErrorMessage, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// ListSyncRunPrefixes retrieves the per-prefix results of a run in recording order
func (db *DB) ListSyncRunPrefixes(ctx context.Context, runID uuid.UUID) ([]SyncRunPrefix, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT run_id, prefix, outcome, codes, updated_count, already_synced,
		        anomaly_codes, failed_count, error_message, duration_ms, created_at
		 FROM sync_run_prefixes WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync run prefixes: %w", err)
	}
	defer rows.Close()

	var out []SyncRunPrefix
	for rows.Next() {
		var p SyncRunPrefix
		if err := rows.Scan(&p.RunID, &p.Prefix, &p.Outcome, &p.Codes, &p.Updated, &p.AlreadySynced,
			&p.AnomalyCodes, &p.Failed, &p.ErrorMessage, &p.DurationMs, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync run prefix: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}
