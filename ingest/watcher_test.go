package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
)

func TestWatcherEnqueuesDayFile(t *testing.T) {
	dir := t.TempDir()
	queue := NewQueue(testDB(t))

	w, err := NewWatcher(dir, queue, 50*time.Millisecond, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer w.Close()

	writeDayFile(t, dir, dataset.Monday,
		"timestamp;customer_no;location\n2019-09-02 07:03:00;1;dairy\n")

	require.Eventually(t, func() bool {
		job, err := queue.FindActiveJobBySource(filepath.Join(dir, "monday.csv"), CSVDayHandlerName)
		return err == nil && job != nil
	}, 5*time.Second, 50*time.Millisecond, "watcher should enqueue a csv-day job")
}

func TestWatcherIgnoresNonWeekdayFiles(t *testing.T) {
	dir := t.TempDir()
	queue := NewQueue(testDB(t))

	w, err := NewWatcher(dir, queue, 50*time.Millisecond, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.csv"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "monday.txt"), []byte("x"), 0o644))

	time.Sleep(300 * time.Millisecond)

	jobs, err := queue.ListJobs(nil, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestWatcherDeduplicatesActiveSource(t *testing.T) {
	dir := t.TempDir()
	queue := NewQueue(testDB(t))

	path := writeDayFile(t, dir, dataset.Monday,
		"timestamp;customer_no;location\n2019-09-02 07:03:00;1;dairy\n")

	existing, err := NewJob(CSVDayHandlerName, path)
	require.NoError(t, err)
	require.NoError(t, queue.Enqueue(existing))

	w, err := NewWatcher(dir, queue, 50*time.Millisecond, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer w.Close()

	// Touch the file again; the active job should absorb the event.
	require.NoError(t, os.WriteFile(path, []byte("timestamp;customer_no;location\n"), 0o644))
	time.Sleep(300 * time.Millisecond)

	jobs, err := queue.ListJobs(nil, 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), NewQueue(testDB(t)), 0, zap.NewNop().Sugar())
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
