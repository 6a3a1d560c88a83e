package ingest

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
	"github.com/OliverSieweke/supermarket-customer-behavior/sym"
)

// defaultWatchDebounce coalesces the event bursts editors and copies produce
// for a single file.
const defaultWatchDebounce = 500 * time.Millisecond

// Watcher watches the data directory and enqueues a csv-day job whenever a
// weekday file appears or changes. Enqueues are debounced per file and
// deduplicated against active jobs for the same source.
type Watcher struct {
	watcher  *fsnotify.Watcher
	queue    *Queue
	logger   *zap.SugaredLogger
	debounce time.Duration

	mu       sync.Mutex
	pending  map[string]*time.Timer
	done     chan struct{}
	closeErr error
	once     sync.Once
}

// NewWatcher creates a watcher over dataDir. debounce <= 0 selects the
// default.
func NewWatcher(dataDir string, queue *Queue, debounce time.Duration, logger *zap.SugaredLogger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}
	if err := fsWatcher.Add(dataDir); err != nil {
		fsWatcher.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", dataDir)
	}

	w := &Watcher{
		watcher:  fsWatcher,
		queue:    queue,
		logger:   logger.Named("watcher"),
		debounce: debounce,
		pending:  map[string]*time.Timer{},
		done:     make(chan struct{}),
	}

	go w.loop()
	w.logger.Infow(sym.IX+" Watching data directory", "dir", dataDir)
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if _, err := DayFromSource(event.Name); err != nil {
				continue // Not a weekday file
			}
			w.scheduleEnqueue(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("File watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// scheduleEnqueue (re)arms the debounce timer for one file.
func (w *Watcher) scheduleEnqueue(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.enqueue(path)
	})
}

func (w *Watcher) enqueue(path string) {
	path = filepath.Clean(path)

	active, err := w.queue.FindActiveJobBySource(path, CSVDayHandlerName)
	if err != nil {
		w.logger.Errorw("Failed to check for active job", "source", path, "error", err)
		return
	}
	if active != nil {
		w.logger.Debugw("Skipping enqueue, active job exists",
			"source", path, "job_id", active.ID, "status", active.Status)
		return
	}

	job, err := NewJob(CSVDayHandlerName, path)
	if err != nil {
		w.logger.Errorw("Failed to create job", "source", path, "error", err)
		return
	}
	if err := w.queue.Enqueue(job); err != nil {
		w.logger.Errorw("Failed to enqueue job", "source", path, "error", err)
		return
	}
	w.logger.Infow(sym.IX+" Enqueued day file", "source", path, "job_id", job.ID)
}

// Close stops the watcher and cancels pending debounce timers.
func (w *Watcher) Close() error {
	w.once.Do(func() {
		close(w.done)
		w.closeErr = w.watcher.Close()

		w.mu.Lock()
		for path, timer := range w.pending {
			timer.Stop()
			delete(w.pending, path)
		}
		w.mu.Unlock()
	})
	return w.closeErr
}
