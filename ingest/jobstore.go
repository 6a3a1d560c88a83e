package ingest

import (
	"database/sql"
	"time"

	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
)

// jobStore handles persistence of ingestion jobs in the ingest_jobs table.
type jobStore struct {
	db *sql.DB
}

const jobColumns = `id, handler_name, source, status,
	progress_current, progress_total, error,
	created_at, started_at, completed_at, updated_at`

func newJobStore(db *sql.DB) *jobStore {
	return &jobStore{db: db}
}

func (s *jobStore) CreateJob(job *Job) error {
	query := `
		INSERT INTO ingest_jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		job.ID,
		job.HandlerName,
		job.Source,
		job.Status,
		job.Progress.Current,
		job.Progress.Total,
		job.Error,
		job.CreatedAt,
		job.StartedAt,
		job.CompletedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create job")
	}
	return nil
}

func (s *jobStore) GetJob(id string) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM ingest_jobs WHERE id = ?`

	job, err := scanJob(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "job %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get job")
	}
	return job, nil
}

func (s *jobStore) UpdateJob(job *Job) error {
	query := `
		UPDATE ingest_jobs
		SET handler_name = ?,
		    source = ?,
		    status = ?,
		    progress_current = ?,
		    progress_total = ?,
		    error = ?,
		    started_at = ?,
		    completed_at = ?,
		    updated_at = ?
		WHERE id = ?
	`
	_, err := s.db.Exec(query,
		job.HandlerName,
		job.Source,
		job.Status,
		job.Progress.Current,
		job.Progress.Total,
		job.Error,
		job.StartedAt,
		job.CompletedAt,
		job.UpdatedAt,
		job.ID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update job")
	}
	return nil
}

// UpdateJobProgress persists only the progress columns. Status and the rest
// of the row stay untouched, so a concurrent pause is not overwritten.
func (s *jobStore) UpdateJobProgress(id string, current, total int) error {
	_, err := s.db.Exec(`
		UPDATE ingest_jobs
		SET progress_current = ?,
		    progress_total = ?,
		    updated_at = ?
		WHERE id = ?`,
		current, total, time.Now(), id)
	if err != nil {
		return errors.Wrap(err, "failed to update job progress")
	}
	return nil
}

// ListJobs returns jobs newest first, optionally filtered by status.
func (s *jobStore) ListJobs(status *JobStatus, limit int) ([]*Job, error) {
	var query string
	var args []interface{}

	baseQuery := `SELECT ` + jobColumns + ` FROM ingest_jobs`
	if status != nil {
		query = baseQuery + ` WHERE status = ? ORDER BY created_at DESC LIMIT ?`
		args = []interface{}{*status, limit}
	} else {
		query = baseQuery + ` ORDER BY created_at DESC LIMIT ?`
		args = []interface{}{limit}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list jobs")
	}
	defer rows.Close()

	return scanJobs(rows)
}

// ListActiveJobs returns queued, running and paused jobs newest first.
func (s *jobStore) ListActiveJobs(limit int) ([]*Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM ingest_jobs
		WHERE status IN ('queued', 'running', 'paused')
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active jobs")
	}
	defer rows.Close()

	return scanJobs(rows)
}

// OldestQueuedJob returns the next job to run, nil when the queue is empty.
func (s *jobStore) OldestQueuedJob() (*Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM ingest_jobs
		WHERE status = 'queued'
		ORDER BY created_at ASC
		LIMIT 1`

	job, err := scanJob(s.db.QueryRow(query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get oldest queued job")
	}
	return job, nil
}

// FindActiveJobBySource finds an active job for a source and handler, nil
// when there is none. Used to deduplicate watcher enqueues.
func (s *jobStore) FindActiveJobBySource(source, handlerName string) (*Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM ingest_jobs
		WHERE source = ?
		  AND handler_name = ?
		  AND status IN ('queued', 'running', 'paused')
		ORDER BY created_at DESC
		LIMIT 1`

	job, err := scanJob(s.db.QueryRow(query, source, handlerName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find active job by source")
	}
	return job, nil
}

// CleanupOldJobs removes completed/failed jobs older than the given duration.
func (s *jobStore) CleanupOldJobs(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	result, err := s.db.Exec(`
		DELETE FROM ingest_jobs
		WHERE status IN ('completed', 'failed')
		  AND updated_at < ?`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to cleanup old jobs")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return int(rows), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var startedAt, completedAt sql.NullTime
	err := row.Scan(
		&job.ID,
		&job.HandlerName,
		&job.Source,
		&job.Status,
		&job.Progress.Current,
		&job.Progress.Total,
		&job.Error,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return &job, nil
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan job")
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating jobs")
	}
	return jobs, nil
}
