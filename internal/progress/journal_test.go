package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simbench/pkg/models"
)

// memStore is a minimal in-memory Writer for journal tests, avoiding a
// dependency on the real runstore package.
type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStore() *memStore { return &memStore{files: map[string][]byte{}} }

func (m *memStore) WriteAtomic(runID, relPath string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[runID+"/"+relPath] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) AppendLine(runID, relPath, line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[runID+"/"+relPath] = append(m.files[runID+"/"+relPath], []byte(line+"\n")...)
	return nil
}

func (m *memStore) ReadFile(runID, relPath string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files[runID+"/"+relPath], nil
}

func ptr(f float64) *float64 { return &f }

// Property #3: progress is monotone in (step_index, progress); a regressing
// update is dropped rather than moving the observable state backward (§8).
func TestUpdateDropsRegressingProgress(t *testing.T) {
	j := New(newMemStore())
	runID := "20260101-000000-00000"

	require.NoError(t, j.Update(runID, models.ProgressRecord{Status: models.StatusRunning, StepIndex: 1, Progress: ptr(0.5)}))
	require.NoError(t, j.Update(runID, models.ProgressRecord{Status: models.StatusRunning, StepIndex: 1, Progress: ptr(0.2)}))

	rec, err := j.Snapshot(runID)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.StepIndex)
	assert.Equal(t, 0.5, *rec.Progress, "regressing update must be dropped")
}

func TestUpdateAcceptsNonDecreasingProgress(t *testing.T) {
	j := New(newMemStore())
	runID := "20260101-000000-00001"

	require.NoError(t, j.Update(runID, models.ProgressRecord{Status: models.StatusRunning, StepIndex: 1, Progress: ptr(0.2)}))
	require.NoError(t, j.Update(runID, models.ProgressRecord{Status: models.StatusRunning, StepIndex: 2, Progress: ptr(0.1)}))

	rec, err := j.Snapshot(runID)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.StepIndex)
}

func TestTerminalStatusIsNeverReplaced(t *testing.T) {
	j := New(newMemStore())
	runID := "20260101-000000-00002"

	require.NoError(t, j.Update(runID, models.ProgressRecord{Status: models.StatusCompleted, StepIndex: 5}))
	require.NoError(t, j.Update(runID, models.ProgressRecord{Status: models.StatusRunning, StepIndex: 6}))

	rec, err := j.Snapshot(runID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, rec.Status)
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	j := New(newMemStore())
	runID := "20260101-000000-00003"

	ch, unsub := j.Subscribe(runID)
	defer unsub()

	require.NoError(t, j.Update(runID, models.ProgressRecord{Status: models.StatusRunning, StepIndex: 1}))

	select {
	case rec := <-ch:
		assert.Equal(t, models.StatusRunning, rec.Status)
	default:
		t.Fatal("expected a buffered update on the subscriber channel")
	}
}

func TestSnapshotFallsBackToDiskWhenNotInMemory(t *testing.T) {
	store := newMemStore()
	_ = store.WriteAtomic("run-x", progressFile, []byte(`{"status":"running","step_index":3}`))

	j := New(store)
	rec, err := j.Snapshot("run-x")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.StepIndex)
}
