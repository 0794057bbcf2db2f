// Package progress implements C2: the single-writer, many-reader,
// file-backed progress+log channel keyed by run id, plus an in-process
// broadcast fan-out for live viewers (§4.2, §9).
package progress

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"simbench/pkg/models"
)

// Writer is the subset of runstore.Store the journal needs: atomic JSON
// replace and serialized log appends.
type Writer interface {
	WriteAtomic(runID, relPath string, data []byte) error
	AppendLine(runID, relPath, line string) error
	ReadFile(runID, relPath string) ([]byte, error)
}

const progressFile = "progress.json"
const logFile = "run.log"

// Journal is the concrete ProgressJournal (§4.2).
type Journal struct {
	store Writer

	mu       sync.Mutex
	current  map[string]models.ProgressRecord
	logLocks map[string]*sync.Mutex
	subs     map[string][]chan models.ProgressRecord
}

// New returns a Journal backed by store.
func New(store Writer) *Journal {
	return &Journal{
		store:    store,
		current:  make(map[string]models.ProgressRecord),
		logLocks: make(map[string]*sync.Mutex),
		subs:     make(map[string][]chan models.ProgressRecord),
	}
}

// Update overwrites progress.json atomically, enforcing the transition
// rules of §4.2: any -> running once from queued; running -> running with
// non-decreasing (step_index, progress); running -> completed|failed.
// Out-of-order updates are clamped: dropped if they would move the
// observable state backward, never moving status backward.
func (j *Journal) Update(runID string, rec models.ProgressRecord) error {
	j.mu.Lock()
	prev, hadPrev := j.current[runID]
	accepted := j.applyTransition(prev, hadPrev, rec)
	if accepted == nil {
		j.mu.Unlock()
		return nil // clamped: silently dropped, status never moves backward
	}
	rec = *accepted
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	j.current[runID] = rec
	subs := append([]chan models.ProgressRecord(nil), j.subs[runID]...)
	j.mu.Unlock()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("progress: marshal: %w", err)
	}
	if err := j.store.WriteAtomic(runID, progressFile, data); err != nil {
		return err
	}

	for _, ch := range subs {
		select {
		case ch <- rec:
		default:
			// slow subscriber: drop rather than block the writer
		}
	}
	return nil
}

// applyTransition returns the record that should actually be written, or
// nil if the incoming update must be dropped under the monotonicity rule.
func (j *Journal) applyTransition(prev models.ProgressRecord, hadPrev bool, next models.ProgressRecord) *models.ProgressRecord {
	if !hadPrev {
		return &next
	}
	if prev.Status.Terminal() {
		return nil // terminal status, once written, is never replaced
	}
	if next.Status.Terminal() {
		return &next
	}
	if prev.Status == models.StatusQueued && next.Status == models.StatusRunning {
		return &next
	}
	if prev.Status == models.StatusRunning && next.Status == models.StatusRunning {
		// non-decreasing (step_index, progress): drop anything that would
		// regress either component, accept everything else
		if next.StepIndex < prev.StepIndex {
			return nil
		}
		if next.StepIndex == prev.StepIndex {
			np, pp := 0.0, 0.0
			if next.Progress != nil {
				np = *next.Progress
			}
			if prev.Progress != nil {
				pp = *prev.Progress
			}
			if np < pp {
				return nil // clamp: drop the regression
			}
		}
		return &next
	}
	// any other transition that would move status backward (running ->
	// queued, anything -> initializing) is dropped; what remains (e.g. a
	// duplicate queued -> queued) is accepted as written
	if prev.Status == models.StatusRunning || next.Status == models.StatusInitializing {
		return nil
	}
	return &next
}

// AppendLog appends a UTF-8 line to run.log, prefixed with a monotonic
// RFC3339-millisecond timestamp. Appends to a single run are serialized.
func (j *Journal) AppendLog(runID, line string) error {
	lock := j.lockFor(runID)
	lock.Lock()
	defer lock.Unlock()

	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	return j.store.AppendLine(runID, logFile, fmt.Sprintf("%s %s", ts, line))
}

func (j *Journal) lockFor(runID string) *sync.Mutex {
	j.mu.Lock()
	defer j.mu.Unlock()
	l, ok := j.logLocks[runID]
	if !ok {
		l = &sync.Mutex{}
		j.logLocks[runID] = l
	}
	return l
}

// Snapshot returns the latest record without blocking writers. If nothing
// has been written in-process yet (e.g. after a restart), it falls back to
// reading progress.json from disk.
func (j *Journal) Snapshot(runID string) (models.ProgressRecord, error) {
	j.mu.Lock()
	rec, ok := j.current[runID]
	j.mu.Unlock()
	if ok {
		return rec, nil
	}

	data, err := j.store.ReadFile(runID, progressFile)
	if err != nil {
		return models.ProgressRecord{}, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.ProgressRecord{}, fmt.Errorf("progress: decode: %w", err)
	}
	return rec, nil
}

// Subscribe registers ch to receive every future Update for runID. The
// caller must call the returned unsubscribe func when done. This is the
// in-memory broadcast channel §9 permits as a supplement to (never a
// replacement for) the file-on-disk contract.
func (j *Journal) Subscribe(runID string) (<-chan models.ProgressRecord, func()) {
	ch := make(chan models.ProgressRecord, 8)
	j.mu.Lock()
	j.subs[runID] = append(j.subs[runID], ch)
	j.mu.Unlock()

	unsub := func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		subs := j.subs[runID]
		for i, c := range subs {
			if c == ch {
				j.subs[runID] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}
	return ch, unsub
}
