package display

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/OliverSieweke/supermarket-customer-behavior/analysis"
	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
)

const reportTimeLayout = "Mon 15:04"

// RenderOccupancyTable prints customers per location over time, one row per
// timestamp. Columns follow the requested locations, or the report order when
// none were requested.
func RenderOccupancyTable(points []analysis.OccupancyPoint, locations []string) error {
	if len(locations) == 0 {
		locations = dataset.Locations()
	}

	rows := pterm.TableData{append([]string{"time"}, locations...)}
	for _, point := range points {
		row := []string{point.TS.Format(reportTimeLayout)}
		for _, loc := range locations {
			row = append(row, strconv.FormatInt(point.Counts[loc], 10))
		}
		rows = append(rows, row)
	}

	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

// RenderTotalsTable prints the running in-store customer count over time.
func RenderTotalsTable(points []analysis.TotalPoint) error {
	rows := pterm.TableData{{"time", "customers"}}
	for _, point := range points {
		rows = append(rows, []string{
			point.TS.Format(reportTimeLayout),
			strconv.FormatInt(point.Customers, 10),
		})
	}

	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

// RenderDurationsTable prints per-customer stay lengths and the mean.
func RenderDurationsTable(durations []analysis.CustomerDuration) error {
	rows := pterm.TableData{{"customer", "entry", "exit", "minutes"}}
	for _, d := range durations {
		rows = append(rows, []string{
			d.Customer,
			d.Entry.Format(reportTimeLayout),
			d.Exit.Format(reportTimeLayout),
			fmt.Sprintf("%.1f", d.Minutes),
		})
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return err
	}
	fmt.Printf("\nMean time in store: %.1f minutes (%d customers)\n",
		analysis.MeanMinutes(durations), len(durations))
	return nil
}
