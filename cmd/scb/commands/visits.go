package commands

import (
	"context"
	"database/sql"

	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
	"github.com/OliverSieweke/supermarket-customer-behavior/store"
)

// loadAnnotatedVisits loads stored visits (one weekday, or all when day is
// empty), annotates entry/exit against the configured layout and drops
// customers that never reached checkout. This is the shared front half of
// every report.
func loadAnnotatedVisits(ctx context.Context, database *sql.DB, dayArg string, layout dataset.Layout) ([]dataset.Visit, error) {
	visits := store.NewVisitStore(database)

	var (
		loaded []dataset.Visit
		err    error
	)
	if dayArg == "" {
		loaded, err = visits.AllVisits(ctx)
	} else {
		var day dataset.Weekday
		day, err = dataset.ParseWeekday(dayArg)
		if err != nil {
			return nil, err
		}
		loaded, err = visits.VisitsForDay(ctx, day)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load visits")
	}
	if len(loaded) == 0 {
		return nil, errors.WithHint(errors.ErrNoVisits, "run 'scb ingest all' first")
	}

	return dataset.FilterNonExiting(dataset.MarkEntryExit(loaded, layout), layout), nil
}
