package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/rampart/internal/netfilter"
	"grimm.is/rampart/internal/reconcile"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"), 30)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)

	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	res := &reconcile.Result{
		CycleID:       "c-1",
		Started:       started,
		Finished:      started.Add(3 * time.Second),
		DriftDetected: true,
		RestoreRan:    true,
	}
	require.NoError(t, store.Record(res))

	entries, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "c-1", entries[0].CycleID)
	assert.True(t, entries[0].Drift)
	assert.True(t, entries[0].Restored)
	assert.False(t, entries[0].Alerted)
	assert.Empty(t, entries[0].Errors)
}

func TestRecordSerializesErrors(t *testing.T) {
	store := openTestStore(t)

	res := &reconcile.Result{
		CycleID:  "c-2",
		Started:  time.Now().UTC(),
		Finished: time.Now().UTC(),
		Alerted:  true,
	}
	res.Errors.Add(reconcile.KindRestoreFailed, netfilter.FamilyV4, errors.New("exit status 2"))
	res.Errors.Add(reconcile.KindDependencyTimeout, "", nil)
	require.NoError(t, store.Record(res))

	entries, err := store.Recent(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Alerted)
	require.Len(t, entries[0].Errors, 2)
	assert.Contains(t, entries[0].Errors[0], "restore_failed(v4)")
}

func TestRecentOrdering(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		res := &reconcile.Result{
			CycleID:  string(rune('a' + i)),
			Started:  base.Add(time.Duration(i) * time.Hour),
			Finished: base.Add(time.Duration(i)*time.Hour + time.Second),
		}
		require.NoError(t, store.Record(res))
	}

	entries, err := store.Recent(3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "e", entries[0].CycleID)
	assert.Equal(t, "c", entries[2].CycleID)
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)

	old := &reconcile.Result{
		CycleID:  "old",
		Started:  time.Now().AddDate(0, 0, -60),
		Finished: time.Now().AddDate(0, 0, -60),
	}
	recent := &reconcile.Result{
		CycleID:  "recent",
		Started:  time.Now(),
		Finished: time.Now(),
	}
	require.NoError(t, store.Record(old))
	require.NoError(t, store.Record(recent))

	n, err := store.Prune()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entries, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "recent", entries[0].CycleID)
}
