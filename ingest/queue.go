package ingest

import (
	"database/sql"
	"sync"
	"time"

	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
)

const (
	// MaxJobsLimit is the maximum number of jobs that can be listed at once
	MaxJobsLimit = 10000
	// SubscriberChannelBufferSize is the buffer size for subscriber channels
	SubscriberChannelBufferSize = 100
)

// Queue is the sqlite-backed ingestion job queue. Every state change is
// persisted and fanned out to subscribers.
type Queue struct {
	store       *jobStore
	mu          sync.RWMutex
	subscribers []chan *Job
}

// NewQueue creates a new job queue
func NewQueue(db *sql.DB) *Queue {
	return &Queue{
		store:       newJobStore(db),
		subscribers: make([]chan *Job, 0),
	}
}

// Enqueue adds a new job to the queue
func (q *Queue) Enqueue(job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.store.CreateJob(job); err != nil {
		err = errors.Wrap(err, "failed to enqueue job")
		err = errors.WithDetail(err, "Job ID: "+job.ID)
		err = errors.WithDetail(err, "Source: "+job.Source)
		return err
	}

	q.notifySubscribers(job)
	return nil
}

// Dequeue gets the oldest queued job and marks it as running. Returns nil
// when no job is available.
func (q *Queue) Dequeue() (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.OldestQueuedJob()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get queued jobs")
	}
	if job == nil {
		return nil, nil
	}

	job.Start()
	if err := q.store.UpdateJob(job); err != nil {
		err = errors.Wrap(err, "failed to mark job as running")
		err = errors.WithDetail(err, "Job ID: "+job.ID)
		return nil, err
	}

	q.notifySubscribers(job)
	return job, nil
}

// GetJob retrieves a job by ID
func (q *Queue) GetJob(id string) (*Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return q.store.GetJob(id)
}

// UpdateJob updates a job's state
func (q *Queue) UpdateJob(job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.store.UpdateJob(job); err != nil {
		err = errors.Wrap(err, "failed to update job")
		err = errors.WithDetail(err, "Job ID: "+job.ID)
		return err
	}

	q.notifySubscribers(job)
	return nil
}

// CheckpointProgress persists a job's progress without touching its status
// and returns the job as persisted. Handlers checkpoint through this instead
// of UpdateJob so a pause issued mid-run is not overwritten; they inspect the
// returned status to know whether to keep going.
func (q *Queue) CheckpointProgress(id string, current, total int) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.store.UpdateJobProgress(id, current, total); err != nil {
		return nil, errors.Wrapf(err, "failed to checkpoint job %s", id)
	}

	job, err := q.store.GetJob(id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to checkpoint job %s", id)
	}

	q.notifySubscribers(job)
	return job, nil
}

// PauseJob pauses a queued or running job
func (q *Queue) PauseJob(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.GetJob(id)
	if err != nil {
		return errors.Wrapf(err, "failed to pause job %s", id)
	}

	if job.Status != JobStatusRunning && job.Status != JobStatusQueued {
		return errors.Newf("job %s is not pausable (status: %s)", id, job.Status)
	}

	job.Pause()
	if err := q.store.UpdateJob(job); err != nil {
		return errors.Wrapf(err, "failed to pause job %s", id)
	}

	q.notifySubscribers(job)
	return nil
}

// ResumeJob re-queues a paused job
func (q *Queue) ResumeJob(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.GetJob(id)
	if err != nil {
		return errors.Wrapf(err, "failed to resume job %s", id)
	}

	if job.Status != JobStatusPaused {
		return errors.Newf("job %s is not paused (status: %s)", id, job.Status)
	}

	// Back to queued so a worker picks it up through the normal path.
	job.Status = JobStatusQueued
	job.UpdatedAt = time.Now()
	if err := q.store.UpdateJob(job); err != nil {
		return errors.Wrapf(err, "failed to resume job %s", id)
	}

	q.notifySubscribers(job)
	return nil
}

// CompleteJob marks a job as completed
func (q *Queue) CompleteJob(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.GetJob(id)
	if err != nil {
		return errors.Wrapf(err, "failed to complete job %s", id)
	}

	job.Complete()
	if err := q.store.UpdateJob(job); err != nil {
		return errors.Wrapf(err, "failed to complete job %s", id)
	}

	q.notifySubscribers(job)
	return nil
}

// FailJob marks a job as failed with an error
func (q *Queue) FailJob(id string, jobErr error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.GetJob(id)
	if err != nil {
		return errors.Wrapf(err, "failed to mark job %s as failed", id)
	}

	job.Fail(jobErr)
	if err := q.store.UpdateJob(job); err != nil {
		err = errors.Wrapf(err, "failed to mark job %s as failed", id)
		err = errors.WithDetail(err, "Job error: "+jobErr.Error())
		return err
	}

	q.notifySubscribers(job)
	return nil
}

// ListJobs returns jobs, optionally filtered by status
func (q *Queue) ListJobs(status *JobStatus, limit int) ([]*Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return q.store.ListJobs(status, limit)
}

// ListActiveJobs returns all active (queued, running, paused) jobs
func (q *Queue) ListActiveJobs(limit int) ([]*Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return q.store.ListActiveJobs(limit)
}

// FindActiveJobBySource finds an active job for a source and handler.
// Returns nil when no active job exists for this source.
func (q *Queue) FindActiveJobBySource(source, handlerName string) (*Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return q.store.FindActiveJobBySource(source, handlerName)
}

// Cleanup removes old completed/failed jobs
func (q *Queue) Cleanup(olderThan time.Duration) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.store.CleanupOldJobs(olderThan)
}

// Subscribe returns a channel that receives job updates.
// The caller is responsible for calling Unsubscribe when done.
// The returned channel is buffered to prevent blocking the notifier.
func (q *Queue) Subscribe() chan *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch := make(chan *Job, SubscriberChannelBufferSize)
	q.subscribers = append(q.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber channel from the queue.
// The channel is NOT closed by this method - callers should close it
// themselves after unsubscribing if needed.
func (q *Queue) Unsubscribe(ch chan *Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, sub := range q.subscribers {
		if sub == ch {
			q.subscribers = append(q.subscribers[:i], q.subscribers[i+1:]...)
			return
		}
	}
}

// notifySubscribers sends job updates to all subscribers.
// REQUIRES: q.mu must be held by caller (either Lock or RLock).
// Uses non-blocking send to avoid stalling if a subscriber is slow.
func (q *Queue) notifySubscribers(job *Job) {
	for _, ch := range q.subscribers {
		select {
		case ch <- job:
		default:
			// Channel full, skip
		}
	}
}

// QueueStats returns statistics about the queue
type QueueStats struct {
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Paused    int `json:"paused"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// GetStats returns queue statistics
func (q *Queue) GetStats() (*QueueStats, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	stats := &QueueStats{}
	for _, status := range []JobStatus{
		JobStatusQueued, JobStatusRunning, JobStatusPaused,
		JobStatusCompleted, JobStatusFailed,
	} {
		jobs, err := q.store.ListJobs(&status, MaxJobsLimit)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to count %s jobs", status)
		}

		count := len(jobs)
		switch status {
		case JobStatusQueued:
			stats.Queued = count
		case JobStatusRunning:
			stats.Running = count
		case JobStatusPaused:
			stats.Paused = count
		case JobStatusCompleted:
			stats.Completed = count
		case JobStatusFailed:
			stats.Failed = count
		}
		stats.Total += count
	}
	return stats, nil
}
