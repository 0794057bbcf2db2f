package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simbench/internal/progress"
	"simbench/internal/runstore"
	"simbench/pkg/models"
)

// writeScript writes an executable shell script that appends a line to
// logPath and exits 0, with an optional sleep so concurrency tests can
// observe overlap (or its absence).
func writeScript(t *testing.T, logPath string, sleep time.Duration) string {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "worker.sh")
	body := fmt.Sprintf("#!/bin/sh\necho start >> %q\nsleep %f\necho done >> %q\nexit 0\n", logPath, sleep.Seconds(), logPath)
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}

// S6: two sim jobs submitted back to back with SimConcurrency=1 complete
// strictly in submission order — the second job's worker never starts
// before the first one's has finished (§5, §8).
func TestTwoSimJobsOneSlotRunSerially(t *testing.T) {
	root := t.TempDir()
	store, err := runstore.New(root)
	require.NoError(t, err)
	journal := progress.New(store)

	logPath := filepath.Join(t.TempDir(), "order.log")
	script := writeScript(t, logPath, 100*time.Millisecond)

	sched := New(store, journal, nil, Config{
		SimConcurrency: 1,
		RisConcurrency: 1,
		SimWorkerBin:   script,
		RisWorkerBin:   script,
	})
	defer sched.Close()

	sub1, err := sched.SubmitSim(models.SimJobRequest{Profile: "p1", Scene: "s1"})
	require.NoError(t, err)
	sub2, err := sched.SubmitSim(models.SimJobRequest{Profile: "p2", Scene: "s2"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return allTerminal(sched, sub1.RunID, sub2.RunID, journal)
	}, 5*time.Second, 10*time.Millisecond)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	// With one slot, job 1 fully starts and finishes before job 2 starts:
	// the log must read start,done,start,done, never interleaved.
	assert.Equal(t, "start\ndone\nstart\ndone\n", string(data))
}

func allTerminal(sched *Scheduler, runA, runB string, journal *progress.Journal) bool {
	recA, errA := journal.Snapshot(runA)
	recB, errB := journal.Snapshot(runB)
	return errA == nil && errB == nil && recA.Status.Terminal() && recB.Status.Terminal()
}

// Property #7: identical payloads hash identically regardless of Go map
// key iteration order (§8).
func TestDispatchWritesDeterministicConfigHash(t *testing.T) {
	root := t.TempDir()
	store, err := runstore.New(root)
	require.NoError(t, err)
	journal := progress.New(store)

	script := writeScript(t, filepath.Join(t.TempDir(), "ignored.log"), 0)
	sched := New(store, journal, nil, Config{SimConcurrency: 1, RisConcurrency: 1, SimWorkerBin: script, RisWorkerBin: script})
	defer sched.Close()

	sub, err := sched.SubmitSim(models.SimJobRequest{Profile: "p", Scene: "s"})
	require.NoError(t, err)
	sub2, err := sched.SubmitSim(models.SimJobRequest{Profile: "p", Scene: "s"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return allTerminal(sched, sub.RunID, sub2.RunID, journal)
	}, 5*time.Second, 10*time.Millisecond)

	hash, err := store.ReadFile(sub.RunID, "config_hash")
	require.NoError(t, err)
	assert.Len(t, string(hash), 64, "sha256 hex digest")

	hash2, err := store.ReadFile(sub2.RunID, "config_hash")
	require.NoError(t, err)
	assert.Equal(t, string(hash), string(hash2), "identical payloads must hash identically")
}
