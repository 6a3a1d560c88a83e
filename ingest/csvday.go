package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
	"github.com/OliverSieweke/supermarket-customer-behavior/store"
	"github.com/OliverSieweke/supermarket-customer-behavior/sym"
)

// CSVDayHandlerName identifies the day-file ingestion handler.
const CSVDayHandlerName = "csv-day"

// insertBatchSize is how many visits go into one transaction before progress
// is checkpointed.
const insertBatchSize = 500

// CSVDayHandler ingests one weekday CSV (job.Source is the file path) into
// the visit store, checkpointing progress per batch.
type CSVDayHandler struct {
	queue  *Queue
	visits *store.VisitStore
	logger *zap.SugaredLogger
}

func NewCSVDayHandler(queue *Queue, visits *store.VisitStore, logger *zap.SugaredLogger) *CSVDayHandler {
	return &CSVDayHandler{queue: queue, visits: visits, logger: logger}
}

func (h *CSVDayHandler) Name() string { return CSVDayHandlerName }

func (h *CSVDayHandler) Execute(ctx context.Context, job *Job) error {
	day, err := DayFromSource(job.Source)
	if err != nil {
		return err
	}

	f, err := os.Open(job.Source)
	if err != nil {
		return errors.Wrapf(err, "open %s", job.Source)
	}
	defer f.Close()

	visits, err := dataset.ReadDay(f, day, true)
	if err != nil {
		return errors.Wrapf(err, "parse %s", job.Source)
	}

	if err := h.checkpoint(job, 0, len(visits)); err != nil {
		return err
	}

	var written int64
	for start := 0; start < len(visits); start += insertBatchSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := start + insertBatchSize
		if end > len(visits) {
			end = len(visits)
		}

		n, err := h.visits.InsertVisits(ctx, visits[start:end])
		if err != nil {
			return errors.Wrapf(err, "insert batch at row %d", start)
		}
		written += n

		if err := h.checkpoint(job, end, len(visits)); err != nil {
			return err
		}
	}

	h.logger.Infow(sym.IX+" Ingested day file",
		"day", day,
		"source", job.Source,
		"rows", len(visits),
		"written", written)
	return nil
}

// checkpoint persists progress and re-reads the job. The persisted status is
// authoritative: a pause issued while the handler runs surfaces here, and the
// handler stops with ErrJobPaused instead of running the pause over.
func (h *CSVDayHandler) checkpoint(job *Job, current, total int) error {
	fresh, err := h.queue.CheckpointProgress(job.ID, current, total)
	if err != nil {
		return err
	}

	job.Progress = fresh.Progress
	if fresh.Status == JobStatusPaused {
		return errors.Wrapf(errors.ErrJobPaused, "job %s", job.ID)
	}
	return nil
}

// DayFromSource derives the weekday from a day file path, e.g.
// "data/monday.csv" → monday. Only .csv files qualify.
func DayFromSource(source string) (dataset.Weekday, error) {
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	if !strings.EqualFold(ext, ".csv") {
		return "", errors.Newf("not a day csv file: %s", base)
	}
	return dataset.ParseWeekday(strings.TrimSuffix(base, ext))
}
