package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/term-sync/internal/catalog"
	"github.com/jonathan/term-sync/internal/db"
	"github.com/jonathan/term-sync/internal/types"
)

func TestListPrefixes(t *testing.T) {
	store := catalog.NewMemoryStore([]types.Department{
		{ID: 1, Name: "Computer Science", Prefixes: []string{"CPS", "CCPS"}},
		{ID: 2, Name: "Mathematics", Prefixes: []string{"MTH"}},
	}, nil)

	var out bytes.Buffer
	cmd := &cobra.Command{Use: "prefixes"}
	cmd.SetOut(&out)

	require.NoError(t, listPrefixes(context.Background(), cmd, store))
	assert.Contains(t, out.String(), "Computer Science: CPS, CCPS")
	assert.Contains(t, out.String(), "Processing order (3): CPS CCPS MTH")
}

func TestControlsCommand(t *testing.T) {
	var out bytes.Buffer
	controlsCommand.SetOut(&out)
	t.Cleanup(func() { controlsCommand.SetOut(nil) })

	require.NoError(t, controlsCommand.RunE(controlsCommand, nil))
	assert.Contains(t, out.String(), "CONTROLS: peoplesoft")
	assert.Contains(t, out.String(), "subject (essential)")
}

func TestWriteRuns(t *testing.T) {
	last := "MTH"
	runs := []db.SyncRun{{
		ID:         uuid.MustParse("7d9f1c2e-3b4a-4c5d-8e6f-0a1b2c3d4e5f"),
		TermTag:    "Fall",
		Status:     db.RunStatusAborted,
		Prefixes:   []string{"CPS", "MTH", "PHL"},
		LastPrefix: &last,
		Updated:    12,
		StartedAt:  time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC),
	}}

	var out bytes.Buffer
	require.NoError(t, writeRuns(&out, runs))

	assert.Contains(t, out.String(), "STATUS")
	assert.Contains(t, out.String(), "7d9f1c2e-3b4a-4c5d-8e6f-0a1b2c3d4e5f")
	assert.Contains(t, out.String(), "aborted")
	assert.Contains(t, out.String(), "MTH")
}

func TestWriteRunDetail(t *testing.T) {
	last := "CPS"
	msg := "run aborted at reset: frame not found"
	run := &db.SyncRun{
		ID:           uuid.New(),
		TermTag:      "Fall",
		Status:       db.RunStatusAborted,
		LastPrefix:   &last,
		ErrorMessage: &msg,
	}
	prefixes := []db.SyncRunPrefix{
		{Prefix: "CPS", Outcome: "results", Codes: []string{"CPS 109", "CPS 999"}, Updated: 1, AnomalyCodes: []string{"CPS 999"}, DurationMs: 1500},
		{Prefix: "MTH", Outcome: "skipped"},
	}

	var out bytes.Buffer
	require.NoError(t, writeRunDetail(&out, run, prefixes))

	assert.Contains(t, out.String(), "Error: run aborted at reset")
	assert.Contains(t, out.String(), "Resume with: --resume-after CPS")
	assert.Contains(t, out.String(), "CPS 999")
	assert.Contains(t, out.String(), "1.5s")
	assert.Contains(t, out.String(), "skipped")
}

func TestDeref(t *testing.T) {
	s := "CPS"
	assert.Equal(t, "CPS", deref(&s))
	assert.Equal(t, "-", deref(nil))
}
