package commands

import (
	"context"
	"database/sql"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OliverSieweke/supermarket-customer-behavior/am"
	"github.com/OliverSieweke/supermarket-customer-behavior/analysis"
	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
	"github.com/OliverSieweke/supermarket-customer-behavior/display"
	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
	"github.com/OliverSieweke/supermarket-customer-behavior/sym"
)

// ReportCmd represents the report command
var ReportCmd = &cobra.Command{
	Use:   "report",
	Short: sym.OC + " Customer behavior reports",
	Long: sym.OC + ` report — Customer behavior reports

Reports over the ingested visits. Customers that never reached checkout are
excluded; entry and exit events are derived from each customer's first
appearance and their checkout visit.

Examples:
  scb report occupancy                       # Customers per section over time
  scb report occupancy --locations dairy     # One section only
  scb report totals --day monday             # In-store total over time
  scb report time-in-store --json            # Stay lengths per customer`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var reportOccupancyCmd = &cobra.Command{
	Use:   "occupancy",
	Short: "Customers per section over time",
	RunE:  runReportOccupancy,
}

var reportTotalsCmd = &cobra.Command{
	Use:   "totals",
	Short: "Running in-store customer count over time",
	RunE:  runReportTotals,
}

var reportTimeInStoreCmd = &cobra.Command{
	Use:   "time-in-store",
	Short: "Per-customer stay lengths and the mean",
	RunE:  runReportTimeInStore,
}

var (
	reportDayFlag       string
	reportLocationsFlag string
)

func init() {
	ReportCmd.PersistentFlags().StringVar(&reportDayFlag, "day", "", "Restrict to one weekday (monday..friday)")
	reportOccupancyCmd.Flags().StringVar(&reportLocationsFlag, "locations", "", "Comma-separated section filter (e.g. dairy,fruit)")

	ReportCmd.AddCommand(reportOccupancyCmd)
	ReportCmd.AddCommand(reportTotalsCmd)
	ReportCmd.AddCommand(reportTimeInStoreCmd)
}

// reportVisits opens the database and loads the annotated visits every report
// starts from. Callers close the returned handle.
func reportVisits() (*sql.DB, []dataset.Visit, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load configuration")
	}

	database, err := openDatabase("")
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open database")
	}

	visits, err := loadAnnotatedVisits(context.Background(), database, reportDayFlag, cfg.Data.Layout())
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return database, visits, nil
}

func runReportOccupancy(cmd *cobra.Command, args []string) error {
	database, visits, err := reportVisits()
	if err != nil {
		return err
	}
	defer database.Close()

	var locations []string
	if reportLocationsFlag != "" {
		locations = strings.Split(reportLocationsFlag, ",")
	}

	points := analysis.Occupancy(visits, locations)
	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(points)
	}
	return display.RenderOccupancyTable(points, locations)
}

func runReportTotals(cmd *cobra.Command, args []string) error {
	database, visits, err := reportVisits()
	if err != nil {
		return err
	}
	defer database.Close()

	points := analysis.CustomerTotals(visits)
	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(points)
	}
	return display.RenderTotalsTable(points)
}

func runReportTimeInStore(cmd *cobra.Command, args []string) error {
	database, visits, err := reportVisits()
	if err != nil {
		return err
	}
	defer database.Close()

	durations := analysis.TimeInStore(visits)
	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(map[string]interface{}{
			"customers":    durations,
			"mean_minutes": analysis.MeanMinutes(durations),
		})
	}
	return display.RenderDurationsTable(durations)
}
