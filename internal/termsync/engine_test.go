package termsync

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/term-sync/internal/catalog"
	"github.com/jonathan/term-sync/internal/types"
)

func seed() *catalog.MemoryStore {
	return catalog.NewMemoryStore(nil, []types.Course{
		{Code: "CPS 109"},
		{Code: "CPS 209", TermTags: []string{}},
		{Code: "CPS 310", TermTags: []string{"Winter"}},
		{Code: "CPS 412", TermTags: []string{"Fall"}},
	})
}

func TestApply_Tally(t *testing.T) {
	store := seed()
	e := New(store, "Fall", zerolog.Nop())

	tally, err := e.Apply(context.Background(), "CPS", []string{"CPS 109", "CPS 209", "CPS 310", "CPS 412", "CPS 999"})
	require.NoError(t, err)

	assert.Equal(t, 3, tally.Updated)
	assert.Equal(t, 1, tally.AlreadySynced)
	assert.Equal(t, 1, tally.Anomalies)
	assert.Equal(t, []string{"CPS 999"}, tally.AnomalyCodes)
	assert.Zero(t, tally.Failed)

	snap := store.Snapshot()
	assert.Equal(t, []string{"Fall"}, snap["CPS 109"])
	assert.Equal(t, []string{"Fall"}, snap["CPS 209"])
	assert.Equal(t, []string{"Winter", "Fall"}, snap["CPS 310"])
	assert.Equal(t, []string{"Fall"}, snap["CPS 412"])
}

func TestApply_Idempotent(t *testing.T) {
	store := seed()
	e := New(store, "Fall", zerolog.Nop())
	codes := []string{"CPS 109", "CPS 209", "CPS 310"}

	_, err := e.Apply(context.Background(), "CPS", codes)
	require.NoError(t, err)
	first := store.Snapshot()
	writes := store.Writes()

	tally, err := e.Apply(context.Background(), "CPS", codes)
	require.NoError(t, err)

	assert.Equal(t, first, store.Snapshot())
	assert.Equal(t, writes, store.Writes())
	assert.Equal(t, 3, tally.AlreadySynced)
	assert.Zero(t, tally.Updated)
}

func TestApply_DuplicateCodesInBatch(t *testing.T) {
	store := seed()
	e := New(store, "Fall", zerolog.Nop())

	tally, err := e.Apply(context.Background(), "CPS", []string{"CPS 109", "CPS 109"})
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Updated)
	assert.Equal(t, 1, tally.AlreadySynced)
	assert.Equal(t, []string{"Fall"}, store.Snapshot()["CPS 109"])
}

func TestApply_NormalizesDirtyTermSet(t *testing.T) {
	store := catalog.NewMemoryStore(nil, []types.Course{{Code: "MTH 110", TermTags: []string{"Winter", "Winter", ""}}})
	e := New(store, "Fall", zerolog.Nop())

	res, err := e.SyncCode(context.Background(), "MTH 110")
	require.NoError(t, err)
	assert.Equal(t, ResultUpdated, res)
	assert.Equal(t, []string{"Winter", "Fall"}, store.Snapshot()["MTH 110"])
}

// racingStore interleaves a competing write before the first n compare-and-swaps.
type racingStore struct {
	*catalog.MemoryStore
	mu    sync.Mutex
	races int
	tag   string
}

func (r *racingStore) CompareAndSwapTermTags(ctx context.Context, code string, expected, tags []string) error {
	r.mu.Lock()
	if r.races > 0 {
		r.races--
		r.mu.Unlock()
		cur, _ := r.MemoryStore.FindCourseByCode(ctx, code)
		next, _ := catalog.AddTermTag(cur.TermTags, r.tag)
		_ = r.MemoryStore.UpdateCourseTermTags(ctx, code, next)
	} else {
		r.mu.Unlock()
	}
	return r.MemoryStore.CompareAndSwapTermTags(ctx, code, expected, tags)
}

func TestSyncCode_ConcurrentWriterPreserved(t *testing.T) {
	store := &racingStore{MemoryStore: seed(), races: 1, tag: "Winter"}
	e := New(store, "Fall", zerolog.Nop())

	res, err := e.SyncCode(context.Background(), "CPS 109")
	require.NoError(t, err)
	assert.Equal(t, ResultUpdated, res)
	assert.Equal(t, []string{"Winter", "Fall"}, store.Snapshot()["CPS 109"])
}

func TestSyncCode_ConcurrentWriterAddsSameTag(t *testing.T) {
	store := &racingStore{MemoryStore: seed(), races: 1, tag: "Fall"}
	e := New(store, "Fall", zerolog.Nop())

	res, err := e.SyncCode(context.Background(), "CPS 109")
	require.NoError(t, err)
	assert.Equal(t, ResultAlreadySynced, res)
	assert.Equal(t, []string{"Fall"}, store.Snapshot()["CPS 109"])
}

// contendedStore always reports a lost race.
type contendedStore struct {
	*catalog.MemoryStore
	calls int
}

func (c *contendedStore) CompareAndSwapTermTags(context.Context, string, []string, []string) error {
	c.calls++
	return catalog.ErrTermConflict
}

func TestSyncCode_GivesUpAfterMaxAttempts(t *testing.T) {
	store := &contendedStore{MemoryStore: seed()}
	e := New(store, "Fall", zerolog.Nop())

	_, err := e.SyncCode(context.Background(), "CPS 109")

	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, catalog.ErrTermConflict)
	assert.Equal(t, DefaultMaxAttempts, store.calls)

	tally, err := e.Apply(context.Background(), "CPS", []string{"CPS 109", "CPS 999"})
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Failed)
	assert.Equal(t, 1, tally.Anomalies)
}

// brokenStore fails every read.
type brokenStore struct{ catalog.MemoryStore }

func (b *brokenStore) FindCourseByCode(context.Context, string) (*types.Course, error) {
	return nil, errors.New("connection reset")
}

func TestApply_StoreErrorsAreCountedNotReturned(t *testing.T) {
	e := New(&brokenStore{}, "Fall", zerolog.Nop())

	tally, err := e.Apply(context.Background(), "CPS", []string{"CPS 109", "CPS 209"})
	require.NoError(t, err)
	assert.Equal(t, 2, tally.Failed)
}

func TestApply_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tally, err := New(seed(), "Fall", zerolog.Nop()).Apply(ctx, "CPS", []string{"CPS 109"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, tally.Updated)
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "updated", ResultUpdated.String())
	assert.Equal(t, "already_synced", ResultAlreadySynced.String())
	assert.Equal(t, "not_found", ResultNotFound.String())
}
