package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/OliverSieweke/supermarket-customer-behavior/am"
	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
	"github.com/OliverSieweke/supermarket-customer-behavior/display"
	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
	"github.com/OliverSieweke/supermarket-customer-behavior/ingest"
	"github.com/OliverSieweke/supermarket-customer-behavior/logger"
	"github.com/OliverSieweke/supermarket-customer-behavior/store"
	"github.com/OliverSieweke/supermarket-customer-behavior/sym"
)

// IngestCmd represents the ingest command
var IngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: sym.IX + " Ingest weekday visit CSVs",
	Long: sym.IX + ` ingest — Ingest weekday visit CSVs

Loads <weekday>.csv files from the configured data directory into the visit
database. Customer numbers are prefixed with the weekday (monday_1) so the
same number on different days stays distinct. Re-ingesting a day is
idempotent; duplicate rows are skipped.

Ingestion runs through the job queue: day/all drain the queue inline, watch
starts a worker pool that picks up files as they land in the data directory.

Examples:
  scb ingest day monday           # Ingest data/monday.csv
  scb ingest all                  # Ingest every weekday file present
  scb ingest watch                # Watch the data dir and ingest on change
  scb ingest ls --status failed   # List failed jobs
  scb ingest status <job-id>      # Inspect one job
  scb ingest resume <job-id>      # Re-queue a paused job`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var ingestDayCmd = &cobra.Command{
	Use:   "day <weekday>",
	Short: "Ingest one weekday CSV",
	Long:  "Enqueue and ingest the CSV for one weekday (monday..friday) from the data directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestDay,
}

var ingestAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Ingest every weekday CSV present",
	Long:  "Enqueue and ingest every <weekday>.csv found in the data directory",
	RunE:  runIngestAll,
}

var ingestWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the data directory and ingest on change",
	Long: `Start the ingest worker pool and a data directory watcher.

New or modified weekday CSVs are debounced and enqueued automatically.
Runs until interrupted (Ctrl+C).`,
	RunE: runIngestWatch,
}

var ingestLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List ingestion jobs",
	Long:  "List ingestion jobs, newest first, optionally filtered by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngestLs(cmd, ingestStatusFlag, ingestLimitFlag)
	},
}

var ingestStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show one ingestion job",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestStatus,
}

var ingestPauseCmd = &cobra.Command{
	Use:   "pause <job-id>",
	Short: "Pause a queued or running job",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestPause,
}

var ingestResumeCmd = &cobra.Command{
	Use:   "resume <job-id>",
	Short: "Re-queue a paused job",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestResume,
}

var (
	ingestStatusFlag string
	ingestLimitFlag  int
)

func init() {
	ingestLsCmd.Flags().StringVar(&ingestStatusFlag, "status", "", "Filter by status (queued, running, paused, completed, failed, cancelled)")
	ingestLsCmd.Flags().IntVar(&ingestLimitFlag, "limit", 20, "Maximum number of jobs to list")

	IngestCmd.AddCommand(ingestDayCmd)
	IngestCmd.AddCommand(ingestAllCmd)
	IngestCmd.AddCommand(ingestWatchCmd)
	IngestCmd.AddCommand(ingestLsCmd)
	IngestCmd.AddCommand(ingestStatusCmd)
	IngestCmd.AddCommand(ingestPauseCmd)
	IngestCmd.AddCommand(ingestResumeCmd)
}

func runIngestDay(cmd *cobra.Command, args []string) error {
	day, err := dataset.ParseWeekday(args[0])
	if err != nil {
		return err
	}

	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	return ingestDays(cfg, []dataset.Weekday{day})
}

func runIngestAll(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	var days []dataset.Weekday
	for _, day := range dataset.Weekdays() {
		if _, err := os.Stat(dataset.DayFilePath(cfg.Data.Dir, day)); err == nil {
			days = append(days, day)
		}
	}
	if len(days) == 0 {
		return errors.Newf("no weekday CSVs found in %s", cfg.Data.Dir)
	}

	return ingestDays(cfg, days)
}

// ingestDays enqueues one job per day and drains the queue inline.
func ingestDays(cfg *am.Config, days []dataset.Weekday) error {
	database, err := openDatabase("")
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	queue := ingest.NewQueue(database)
	handler := ingest.NewCSVDayHandler(queue, store.NewVisitStore(database), logger.Logger)

	for _, day := range days {
		job, err := ingest.NewJob(handler.Name(), dataset.DayFilePath(cfg.Data.Dir, day))
		if err != nil {
			return err
		}
		if err := queue.Enqueue(job); err != nil {
			return errors.Wrapf(err, "failed to enqueue %s", day)
		}
	}

	ctx := context.Background()
	for {
		job, err := queue.Dequeue()
		if err != nil {
			return errors.Wrap(err, "failed to dequeue job")
		}
		if job == nil {
			return nil
		}

		if job.HandlerName != handler.Name() {
			queue.FailJob(job.ID, errors.Newf("no handler registered for name: %s", job.HandlerName))
			continue
		}

		if err := handler.Execute(ctx, job); err != nil {
			if errors.Is(err, errors.ErrJobPaused) {
				fmt.Printf("%s Ingest paused for %s\n", sym.IX, job.Source)
				continue
			}
			queue.FailJob(job.ID, err)
			fmt.Printf("%s Ingest failed for %s: %v\n", sym.IX, job.Source, err)
			continue
		}
		if err := queue.CompleteJob(job.ID); err != nil {
			return errors.Wrap(err, "failed to complete job")
		}
		fmt.Printf("%s Ingested %s (%d rows)\n", sym.IX, job.Source, job.Progress.Total)
	}
}

func runIngestWatch(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	database, err := openDatabase("")
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := ingest.NewWorkerPool(ctx, database, ingest.WorkerPoolConfig{
		Workers:       cfg.Ingest.Workers,
		PollInterval:  time.Duration(cfg.Ingest.PollIntervalSeconds) * time.Second,
		JobsPerMinute: cfg.Ingest.JobsPerMinute,
	}, logger.Logger)
	pool.Registry().Register(ingest.NewCSVDayHandler(pool.GetQueue(), store.NewVisitStore(database), logger.Logger))

	pool.Start()
	defer pool.Stop()

	watcher, err := ingest.NewWatcher(cfg.Data.Dir, pool.GetQueue(),
		time.Duration(cfg.Ingest.WatchDebounceMs)*time.Millisecond, logger.Logger)
	if err != nil {
		return errors.Wrapf(err, "failed to watch %s", cfg.Data.Dir)
	}
	defer watcher.Close()

	fmt.Printf("%s Watching %s for weekday CSVs (Ctrl+C to stop)\n", sym.IX, cfg.Data.Dir)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Printf("\n%s Shutting down\n", sym.PulseClose)
	return nil
}

func runIngestLs(cmd *cobra.Command, statusFilter string, limit int) error {
	database, err := openDatabase("")
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	queue := ingest.NewQueue(database)

	var status *ingest.JobStatus
	if statusFilter != "" {
		if !ingest.IsValidStatus(statusFilter) {
			return errors.Newf("invalid status filter: %s", statusFilter)
		}
		s := ingest.JobStatus(statusFilter)
		status = &s
	}

	jobs, err := queue.ListJobs(status, limit)
	if err != nil {
		return errors.Wrap(err, "failed to list jobs")
	}

	if display.ShouldOutputJSON(cmd) {
		if jobs == nil {
			jobs = []*ingest.Job{}
		}
		return display.OutputJSON(jobs)
	}

	if len(jobs) == 0 {
		fmt.Printf("%s No jobs found\n", sym.IX)
		return nil
	}

	fmt.Printf("%-38s %-10s %-10s %-12s %s\n", "JOB ID", "STATUS", "PROGRESS", "CREATED", "SOURCE")
	for _, job := range jobs {
		progress := fmt.Sprintf("%d/%d", job.Progress.Current, job.Progress.Total)
		fmt.Printf("%-38s %-10s %-10s %-12s %s\n",
			job.ID, job.Status, progress,
			job.CreatedAt.Format("01-02 15:04"), job.Source)
	}
	fmt.Printf("\nTotal: %d job(s)\n", len(jobs))
	return nil
}

func runIngestStatus(cmd *cobra.Command, args []string) error {
	database, err := openDatabase("")
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	job, err := ingest.NewQueue(database).GetJob(args[0])
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(job)
	}

	fmt.Printf("%s Job %s\n", sym.IX, job.ID)
	fmt.Printf("  Status:   %s\n", job.Status)
	fmt.Printf("  Handler:  %s\n", job.HandlerName)
	fmt.Printf("  Source:   %s\n", job.Source)
	fmt.Printf("  Progress: %d/%d (%.0f%%)\n",
		job.Progress.Current, job.Progress.Total, job.Progress.Percentage())
	fmt.Printf("  Created:  %s\n", job.CreatedAt.Format(time.RFC3339))
	if job.StartedAt != nil {
		fmt.Printf("  Started:  %s\n", job.StartedAt.Format(time.RFC3339))
	}
	if job.CompletedAt != nil {
		fmt.Printf("  Finished: %s\n", job.CompletedAt.Format(time.RFC3339))
	}
	if job.Error != "" {
		fmt.Printf("  Error:    %s\n", job.Error)
	}
	return nil
}

func runIngestPause(cmd *cobra.Command, args []string) error {
	database, err := openDatabase("")
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	if err := ingest.NewQueue(database).PauseJob(args[0]); err != nil {
		return err
	}
	fmt.Printf("%s Paused job %s\n", sym.IX, args[0])
	return nil
}

func runIngestResume(cmd *cobra.Command, args []string) error {
	database, err := openDatabase("")
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	if err := ingest.NewQueue(database).ResumeJob(args[0]); err != nil {
		return err
	}
	fmt.Printf("%s Re-queued job %s\n", sym.IX, args[0])
	return nil
}
