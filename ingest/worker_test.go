package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
	"github.com/OliverSieweke/supermarket-customer-behavior/store"
)

func fastPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{Workers: 1, PollInterval: 10 * time.Millisecond}
}

func TestWorkerPoolProcessesJob(t *testing.T) {
	database := testDB(t)
	pool := NewWorkerPool(context.Background(), database, fastPoolConfig(), zap.NewNop().Sugar())
	visits := store.NewVisitStore(database)
	pool.Registry().Register(NewCSVDayHandler(pool.GetQueue(), visits, zap.NewNop().Sugar()))

	path := writeDayFile(t, t.TempDir(), dataset.Monday,
		"timestamp;customer_no;location\n"+
			"2019-09-02 07:03:00;1;dairy\n"+
			"2019-09-02 07:05:00;1;checkout\n")

	job, err := NewJob(CSVDayHandlerName, path)
	require.NoError(t, err)
	require.NoError(t, pool.GetQueue().Enqueue(job))

	pool.Start()
	defer pool.Stop()

	require.Eventually(t, func() bool {
		got, err := pool.GetQueue().GetJob(job.ID)
		return err == nil && got.Status == JobStatusCompleted
	}, 5*time.Second, 20*time.Millisecond, "job should complete")

	stored, err := visits.VisitsForDay(context.Background(), dataset.Monday)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestWorkerPoolFailsJobWithoutHandler(t *testing.T) {
	pool := NewWorkerPool(context.Background(), testDB(t), fastPoolConfig(), zap.NewNop().Sugar())

	job, err := NewJob("unregistered", "data/monday.csv")
	require.NoError(t, err)
	require.NoError(t, pool.GetQueue().Enqueue(job))

	pool.Start()
	defer pool.Stop()

	require.Eventually(t, func() bool {
		got, err := pool.GetQueue().GetJob(job.ID)
		return err == nil && got.Status == JobStatusFailed
	}, 5*time.Second, 20*time.Millisecond)

	failed, err := pool.GetQueue().GetJob(job.ID)
	require.NoError(t, err)
	assert.Contains(t, failed.Error, "no handler registered")
}

func TestWorkerPoolRecoversOrphanedJobs(t *testing.T) {
	database := testDB(t)
	queue := NewQueue(database)

	// Simulate a crash: a job left in running state with no worker.
	job, err := NewJob("unregistered", "data/monday.csv")
	require.NoError(t, err)
	require.NoError(t, queue.Enqueue(job))
	_, err = queue.Dequeue()
	require.NoError(t, err)

	pool := NewWorkerPool(context.Background(), database, fastPoolConfig(), zap.NewNop().Sugar())
	require.NoError(t, pool.recoverOrphanedJobs())

	recovered, err := pool.GetQueue().GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusQueued, recovered.Status)
}

func TestWorkerPoolStopIsIdempotentAndRestartable(t *testing.T) {
	pool := NewWorkerPool(context.Background(), testDB(t), fastPoolConfig(), zap.NewNop().Sugar())

	pool.Start()
	pool.Stop()

	// Restart recreates the worker context.
	pool.Start()
	pool.Stop()
}

func TestCalculateSafeWorkerCount(t *testing.T) {
	assert.Equal(t, 1, calculateSafeWorkerCount(0.5), "below buffer keeps one worker")
	assert.Equal(t, 2, calculateSafeWorkerCount(2.0))
	assert.Equal(t, 10, calculateSafeWorkerCount(64.0), "capped at ten")
}
