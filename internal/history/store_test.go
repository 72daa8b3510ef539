package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/szurutag/internal/model"
	errs "github.com/xxxsen/szurutag/internal/pkg/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStartRun_AppearsInRecentRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.StartRun(ctx, "standalone", "tag-count:0")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	runs, err := store.RecentRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, id, runs[0].ID)
	require.Equal(t, "standalone", runs[0].Mode)
	require.Equal(t, "tag-count:0", runs[0].Query)
	require.NotZero(t, runs[0].StartedAt)
	require.Zero(t, runs[0].FinishedAt)
}

func TestFinishRun_StoresCounters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.StartRun(ctx, "standalone", "tagme")
	require.NoError(t, err)
	require.NoError(t, store.FinishRun(ctx, id, model.Stats{
		Tagged:           3,
		TaggedClassifier: 2,
		Untagged:         1,
		Skipped:          4,
	}))

	runs, err := store.RecentRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, 3, runs[0].Tagged)
	require.Equal(t, 2, runs[0].TaggedClassifier)
	require.Equal(t, 1, runs[0].Untagged)
	require.Equal(t, 4, runs[0].Skipped)
	require.NotZero(t, runs[0].FinishedAt)
}

func TestRecordPost_BacksPostProcessedLookup(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.StartRun(ctx, "standalone", "tagme")
	require.NoError(t, err)

	processed, err := store.IsPostProcessed(ctx, 42)
	require.NoError(t, err)
	require.False(t, processed)

	require.NoError(t, store.RecordPost(ctx, id, 42, OutcomeTagged))
	processed, err = store.IsPostProcessed(ctx, 42)
	require.NoError(t, err)
	require.True(t, processed)
}

func TestRecordPost_DuplicateIsConflict(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.StartRun(ctx, "upload", "id:42")
	require.NoError(t, err)
	require.NoError(t, store.RecordPost(ctx, id, 42, OutcomeUntagged))

	err = store.RecordPost(ctx, id, 42, OutcomeTagged)
	require.True(t, errs.IsConflict(err))
}

func TestRecentRuns_OrdersNewestFirstAndLimits(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.StartRun(ctx, "daemon", "tag-count:0")
		require.NoError(t, err)
	}

	runs, err := store.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
}
