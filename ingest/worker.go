package ingest

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/OliverSieweke/supermarket-customer-behavior/db"
	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
	"github.com/OliverSieweke/supermarket-customer-behavior/sym"
)

// MaxOrphanedJobsToRecover limits how many orphaned jobs are recovered on
// startup after a crash.
const MaxOrphanedJobsToRecover = 1000

// stopTimeout bounds how long Stop waits for workers to checkpoint and exit.
const stopTimeout = 30 * time.Second

// poolLogger wraps zap.SugaredLogger with lifecycle methods:
// - DEBUG level → opening (✿) events
// - WARN level → closing (❀) events
type poolLogger struct {
	*zap.SugaredLogger
}

func (l poolLogger) Starting(msg string, keysAndValues ...interface{}) {
	l.Debugw(sym.PulseOpen+" "+msg, keysAndValues...)
}

func (l poolLogger) Closing(msg string, keysAndValues ...interface{}) {
	l.Warnw(sym.PulseClose+" "+msg, keysAndValues...)
}

// WorkerPoolConfig contains configuration for the worker pool
type WorkerPoolConfig struct {
	Workers       int           `json:"workers"`         // Number of concurrent workers
	PollInterval  time.Duration `json:"poll_interval"`   // How often to check for new jobs
	JobsPerMinute int           `json:"jobs_per_minute"` // Dequeue rate limit, 0 = unlimited
}

// DefaultWorkerPoolConfig returns sensible defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		Workers:      1,
		PollInterval: 2 * time.Second,
	}
}

// WorkerPool polls the queue and executes jobs through registered handlers.
// Orphaned running jobs (left over from a crash) are re-queued on Start.
type WorkerPool struct {
	queue      *Queue
	registry   *Registry
	limiter    *rate.Limiter
	poolConfig WorkerPoolConfig
	workers    int

	parentCtx context.Context
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	activeWorkers int
	logger        poolLogger
	mu            sync.Mutex
}

// NewWorkerPool creates a worker pool over a database connection.
// Callers register handlers via Registry() before calling Start().
func NewWorkerPool(ctx context.Context, database *sql.DB, poolCfg WorkerPoolConfig, logger *zap.SugaredLogger) *WorkerPool {
	if poolCfg.Workers <= 0 {
		poolCfg.Workers = 1
	}
	if poolCfg.PollInterval <= 0 {
		poolCfg.PollInterval = DefaultWorkerPoolConfig().PollInterval
	}

	var limiter *rate.Limiter
	if poolCfg.JobsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(poolCfg.JobsPerMinute)/60.0), 1)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		queue:      NewQueue(database),
		registry:   NewRegistry(),
		limiter:    limiter,
		poolConfig: poolCfg,
		workers:    poolCfg.Workers,
		parentCtx:  ctx,
		ctx:        workerCtx,
		cancel:     cancel,
		logger:     poolLogger{logger.Named("ingest")},
	}
}

// Start begins processing jobs. Orphaned running jobs are re-queued first.
func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	// A pool restarted after Stop() needs a fresh context.
	select {
	case <-wp.ctx.Done():
		wp.ctx, wp.cancel = context.WithCancel(wp.parentCtx)
		wp.logger.Starting("Recreated worker context after previous shutdown")
	default:
	}
	wp.mu.Unlock()

	if err := wp.recoverOrphanedJobs(); err != nil {
		wp.logger.Warnw("Failed to recover orphaned jobs", "error", err)
	}

	if warning := wp.checkMemoryPressure(); warning != "" {
		wp.logger.Warnw("Memory pressure warning", "warning", warning, "workers", wp.workers)
	}

	wp.logger.Starting("Worker pool starting",
		"workers", wp.workers,
		"poll_interval", wp.poolConfig.PollInterval)

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// recoverOrphanedJobs re-queues jobs stuck in "running" state after an
// ungraceful shutdown.
func (wp *WorkerPool) recoverOrphanedJobs() error {
	runningStatus := JobStatusRunning
	orphaned, err := wp.queue.ListJobs(&runningStatus, MaxOrphanedJobsToRecover)
	if err != nil {
		return errors.Wrap(err, "failed to list running jobs")
	}
	if len(orphaned) == 0 {
		return nil
	}

	wp.logger.Starting("Found orphaned jobs from previous run", "count", len(orphaned))
	for _, job := range orphaned {
		job.Status = JobStatusQueued
		job.Error = ""
		if err := wp.queue.UpdateJob(job); err != nil {
			wp.logger.Warnw("Failed to recover orphaned job", "job_id", job.ID, "error", err)
			continue
		}
		wp.logger.Starting("Recovered orphaned job", "job_id", job.ID, "source", job.Source)
	}
	return nil
}

// Stop gracefully stops the worker pool. Workers checkpoint and exit on
// context cancellation; Stop returns after stopTimeout even if one is stuck.
func (wp *WorkerPool) Stop() {
	wp.cancel()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.logger.Infow(sym.PulseClose + " Worker pool stopped, all workers exited cleanly")
	case <-time.After(stopTimeout):
		wp.logger.Closing("Worker pool stop timeout, workers may still be checkpointing",
			"timeout", stopTimeout)
	}
}

// worker polls for jobs until the pool context is cancelled.
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	ticker := time.NewTicker(wp.poolConfig.PollInterval)
	defer ticker.Stop()

	errorCount := 0
	const maxConsecutiveErrors = 5
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-wp.ctx.Done():
			return
		case <-ticker.C:
			if err := wp.processNextJob(); err != nil {
				select {
				case <-wp.ctx.Done():
					return
				default:
				}
				if errors.Is(err, sql.ErrConnDone) || db.IsDatabaseClosed(err) {
					// Database closed during shutdown
					return
				}

				errorCount++
				wp.logger.Errorw("Worker error processing job",
					"worker_id", id,
					"error", err,
					"consecutive_errors", errorCount)
				if errorCount >= maxConsecutiveErrors {
					wp.logger.Warnw("Worker backing off after consecutive errors",
						"worker_id", id,
						"backoff", backoff)
					time.Sleep(backoff)
					backoff = min(backoff*2, maxBackoff)
				}
				continue
			}

			if errorCount > 0 {
				wp.logger.Infow("Worker recovered from errors",
					"worker_id", id,
					"previous_error_count", errorCount)
			}
			errorCount = 0
			backoff = time.Second
		}
	}
}

// processNextJob dequeues and executes one job, honoring the dequeue rate
// limit.
func (wp *WorkerPool) processNextJob() error {
	select {
	case <-wp.ctx.Done():
		return nil
	default:
	}

	if wp.limiter != nil && !wp.limiter.Allow() {
		// Rate limited, leave the job queued for a later tick.
		return nil
	}

	job, err := wp.queue.Dequeue()
	if err != nil {
		return errors.Wrap(err, "failed to dequeue job")
	}
	if job == nil {
		return nil
	}

	wp.mu.Lock()
	wp.activeWorkers++
	wp.mu.Unlock()
	defer func() {
		wp.mu.Lock()
		wp.activeWorkers--
		wp.mu.Unlock()
	}()

	if err := wp.registry.execute(wp.ctx, job); err != nil {
		if errors.Is(err, errors.ErrJobPaused) {
			// The handler stopped at a checkpoint; the job stays paused with
			// its progress intact until someone resumes it.
			wp.logger.Infow("Job paused during execution", "job_id", job.ID)
			return nil
		}
		select {
		case <-wp.ctx.Done():
			// Cancelled mid-job: re-queue with checkpointed progress intact.
			wp.logger.Closing("Job cancelled during execution, re-queuing", "job_id", job.ID)
			job.Status = JobStatusQueued
			if updateErr := wp.queue.UpdateJob(job); updateErr != nil {
				wp.logger.Errorw("Failed to re-queue cancelled job",
					"job_id", job.ID, "error", updateErr)
			}
			return nil
		default:
			return wp.queue.FailJob(job.ID, err)
		}
	}

	return wp.queue.CompleteJob(job.ID)
}

// GetQueue returns the job queue (useful for enqueuing jobs)
func (wp *WorkerPool) GetQueue() *Queue {
	return wp.queue
}

// Registry returns the handler registry for registering job handlers before
// Start().
func (wp *WorkerPool) Registry() *Registry {
	return wp.registry
}

// Workers returns the number of concurrent workers configured for this pool
func (wp *WorkerPool) Workers() int {
	return wp.workers
}
