package runstore

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simbench/pkg/apierr"
	"simbench/pkg/models"
)

// Property #1: run ids are unique and lexicographically sorted in
// creation order (§8).
func TestAllocateIDsAreUniqueAndSorted(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	seen := map[string]bool{}
	var ids []string
	for i := 0; i < 20; i++ {
		run, err := store.Allocate(models.KindSim)
		require.NoError(t, err)
		require.False(t, seen[run.RunID], "run id %s reused", run.RunID)
		seen[run.RunID] = true
		ids = append(ids, run.RunID)
	}

	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i], "run ids must sort in creation order")
	}
}

func TestAllocateCreatesDirectorySkeleton(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	run, err := store.Allocate(models.KindRis)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInitializing, run.Status)

	for _, sub := range []string{"data", "plots", "viewer"} {
		dir, err := store.Open(run.RunID)
		require.NoError(t, err)
		assertIsDir(t, dir+"/"+sub)
	}
}

func TestOpenUnknownRunReturnsNotFound(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open("does-not-exist")
	require.Error(t, err)
	assert.ErrorAs(t, err, new(*apierr.NotFound))
}

// Property #2: artifact writes are atomic — a reader never observes a
// partial file, even racing a writer (§8).
func TestWriteAtomicNeverExposesPartialFile(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	run, err := store.Allocate(models.KindSim)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			payload := make([]byte, 4096)
			for j := range payload {
				payload[j] = byte(i)
			}
			require.NoError(t, store.WriteAtomic(run.RunID, "summary.json", payload))
		}
	}()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-done:
			return
		case <-deadline:
			t.Fatal("timed out waiting for concurrent writes")
		default:
			data, err := store.ReadFile(run.RunID, "summary.json")
			if err != nil {
				continue
			}
			// Every observed read must be internally consistent: all
			// 4096 bytes carry the same value, never a half-written mix
			// of two generations.
			if len(data) == 0 {
				continue
			}
			want := data[0]
			for _, b := range data {
				require.Equal(t, want, b, "partial write observed")
			}
		}
	}
}

func TestListTreatsMissingSummaryAsInitializing(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	run, err := store.Allocate(models.KindSim)
	require.NoError(t, err)

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, run.RunID, entries[0].RunID)
	assert.Equal(t, models.StatusInitializing, entries[0].Status)
}

func assertIsDir(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
