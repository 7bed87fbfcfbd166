//go:build integration
// +build integration

package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/term-sync/internal/catalog"
	"github.com/jonathan/term-sync/internal/types"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := Connect(ctx, dbURL)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to DB: %v", err)
	}
	require.NoError(t, db.EnsureSchema(ctx))
	return db
}

// seedCourse inserts a course with a unique code and removes it when the test ends.
func seedCourse(t *testing.T, db *DB, terms []string) string {
	t.Helper()
	ctx := context.Background()
	code := "TST " + uuid.NewString()[:8]
	_, err := db.pool.Exec(ctx, `INSERT INTO courses (code, name, term) VALUES ($1, 'Test', $2)`, code, terms)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.pool.Exec(context.Background(), `DELETE FROM courses WHERE code = $1`, code)
	})
	return code
}

func TestFindCourseByCode_Integration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	code := seedCourse(t, db, nil)

	c, err := db.FindCourseByCode(ctx, code)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, code, c.Code)
	assert.Empty(t, c.TermTags)

	missing, err := db.FindCourseByCode(ctx, "NOPE "+uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCompareAndSwapTermTags_Integration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	code := seedCourse(t, db, nil)

	// NULL term column matches an empty expected set
	require.NoError(t, db.CompareAndSwapTermTags(ctx, code, nil, []string{"Fall"}))

	err := db.CompareAndSwapTermTags(ctx, code, nil, []string{"Winter"})
	assert.ErrorIs(t, err, catalog.ErrTermConflict)

	require.NoError(t, db.CompareAndSwapTermTags(ctx, code, []string{"Fall"}, []string{"Fall", "Winter"}))
	c, err := db.FindCourseByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fall", "Winter"}, c.TermTags)

	err = db.CompareAndSwapTermTags(ctx, "NOPE "+uuid.NewString(), nil, []string{"Fall"})
	assert.ErrorIs(t, err, catalog.ErrCourseNotFound)
}

func TestUpdateCourseTermTags_Integration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	code := seedCourse(t, db, []string{"Winter"})
	require.NoError(t, db.UpdateCourseTermTags(ctx, code, []string{"Winter", "Fall"}))

	c, err := db.FindCourseByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, []string{"Winter", "Fall"}, c.TermTags)

	err = db.UpdateCourseTermTags(ctx, "NOPE "+uuid.NewString(), []string{"Fall"})
	assert.ErrorIs(t, err, catalog.ErrCourseNotFound)
}

func TestListDepartments_Integration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	name := "Test Dept " + uuid.NewString()[:8]
	_, err := db.pool.Exec(ctx, `INSERT INTO departments (name, prefixes) VALUES ($1, $2)`, name, []string{"TST", "TSX"})
	require.NoError(t, err)
	defer func() {
		_, _ = db.pool.Exec(context.Background(), `DELETE FROM departments WHERE name = $1`, name)
	}()

	depts, err := db.ListDepartments(ctx)
	require.NoError(t, err)

	var found *types.Department
	for i := range depts {
		if depts[i].Name == name {
			found = &depts[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, []string{"TST", "TSX"}, found.Prefixes)
}

func TestSyncRunBookkeeping_Integration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	runID, err := db.StartRun(ctx, "Fall", []string{"CPS", "MTH"})
	require.NoError(t, err)
	defer func() {
		_, _ = db.pool.Exec(context.Background(), `DELETE FROM sync_runs WHERE id = $1`, runID)
	}()

	report := types.PrefixReport{
		Prefix:   "CPS",
		Outcome:  types.OutcomeResults,
		Codes:    []string{"CPS 109", "CPS 999"},
		Tally:    types.SyncTally{Updated: 1, Anomalies: 1, AnomalyCodes: []string{"CPS 999"}},
		Duration: 1500 * time.Millisecond,
	}
	require.NoError(t, db.RecordPrefix(ctx, runID, report))
	require.NoError(t, db.RecordPrefix(ctx, runID, types.PrefixReport{Prefix: "MTH", Outcome: types.OutcomeNoResults}))

	summary := &types.RunSummary{TermTag: "Fall", LastPrefix: "MTH"}
	summary.Totals.Add(report.Tally)
	require.NoError(t, db.FinishRun(ctx, runID, summary, nil))

	run, err := db.GetSyncRun(ctx, runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, RunStatusCompleted, run.Status)
	assert.Equal(t, []string{"CPS", "MTH"}, run.Prefixes)
	require.NotNil(t, run.LastPrefix)
	assert.Equal(t, "MTH", *run.LastPrefix)
	assert.Equal(t, 1, run.Updated)
	assert.Equal(t, 1, run.Anomalies)
	assert.NotNil(t, run.CompletedAt)

	prefixes, err := db.ListSyncRunPrefixes(ctx, runID)
	require.NoError(t, err)
	require.Len(t, prefixes, 2)
	assert.Equal(t, "CPS", prefixes[0].Prefix)
	assert.Equal(t, []string{"CPS 999"}, prefixes[0].AnomalyCodes)
	assert.Equal(t, 1500, prefixes[0].DurationMs)
	assert.Equal(t, string(types.OutcomeNoResults), prefixes[1].Outcome)

	runs, err := db.ListSyncRuns(ctx, 50)
	require.NoError(t, err)
	assert.NotEmpty(t, runs)
}
