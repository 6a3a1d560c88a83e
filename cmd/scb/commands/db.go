package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
	"github.com/OliverSieweke/supermarket-customer-behavior/display"
	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
	"github.com/OliverSieweke/supermarket-customer-behavior/ingest"
	"github.com/OliverSieweke/supermarket-customer-behavior/store"
	"github.com/OliverSieweke/supermarket-customer-behavior/sym"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: sym.DB + " Manage the visit database",
	Long: sym.DB + ` db — Manage the visit database

Database operations: statistics, migrations and per-day cleanup.

Examples:
  scb db stats                    # Visit and job counts
  scb db migrate                  # Apply pending schema migrations
  scb db rm monday                # Delete all visits for one weekday`,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Long:  "Display visit counts per weekday, distinct customers, and ingestion job totals",
	RunE:  runDbStats,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long:  "Open the configured database and apply any schema migrations it is missing",
	RunE:  runDbMigrate,
}

var dbRmCmd = &cobra.Command{
	Use:   "rm <weekday>",
	Short: "Delete all visits for one weekday",
	Long:  "Delete every stored visit for the given weekday so the day can be re-ingested from scratch",
	Args:  cobra.ExactArgs(1),
	RunE:  runDbRm,
}

func init() {
	DbCmd.AddCommand(dbStatsCmd)
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbRmCmd)
}

func runDbStats(cmd *cobra.Command, args []string) error {
	database, err := openDatabase("")
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	ctx := context.Background()
	visitStats, err := store.NewVisitStore(database).Stats(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load visit statistics")
	}

	jobStats, err := ingest.NewQueue(database).GetStats()
	if err != nil {
		return errors.Wrap(err, "failed to load job statistics")
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(map[string]interface{}{
			"visits": visitStats,
			"jobs":   jobStats,
		})
	}

	separator := strings.Repeat("━", 50)

	fmt.Println(separator)
	fmt.Println(sym.DB + " Visit statistics")
	fmt.Println(separator)
	fmt.Printf("  Total visits:      %d\n", visitStats.TotalVisits)
	fmt.Printf("  Distinct customers: %d\n", visitStats.Customers)
	for _, day := range dataset.Weekdays() {
		if count, ok := visitStats.ByDay[day]; ok {
			fmt.Printf("    %-10s %d\n", day, count)
		}
	}

	fmt.Println(separator)
	fmt.Println(sym.IX + " Ingestion jobs")
	fmt.Println(separator)
	fmt.Printf("  Queued:    %d\n", jobStats.Queued)
	fmt.Printf("  Running:   %d\n", jobStats.Running)
	fmt.Printf("  Paused:    %d\n", jobStats.Paused)
	fmt.Printf("  Completed: %d\n", jobStats.Completed)
	fmt.Printf("  Failed:    %d\n", jobStats.Failed)
	fmt.Printf("  Total:     %d\n", jobStats.Total)

	return nil
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	// openDatabase already migrates; opening is the whole job
	database, err := openDatabase("")
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	fmt.Println(sym.DB + " Database schema is up to date")
	return nil
}

func runDbRm(cmd *cobra.Command, args []string) error {
	day, err := dataset.ParseWeekday(args[0])
	if err != nil {
		return err
	}

	database, err := openDatabase("")
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	deleted, err := store.NewVisitStore(database).DeleteDay(context.Background(), day)
	if err != nil {
		return errors.Wrapf(err, "failed to delete visits for %s", day)
	}

	fmt.Printf("%s Deleted %d visits for %s\n", sym.DB, deleted, day)
	return nil
}
