// Package store persists raw visits in SQLite and serves them back to the
// analysis layer and the reporting server.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
)

// VisitStore wraps the visits table. All reads return visits ordered by
// customer then timestamp, the order the analysis layer expects.
type VisitStore struct {
	db *sql.DB
}

func NewVisitStore(db *sql.DB) *VisitStore {
	return &VisitStore{db: db}
}

// InsertVisits upserts a batch in one transaction. Re-inserting rows already
// present is a no-op thanks to the visit identity index; the returned count is
// the number of rows actually written.
func (s *VisitStore) InsertVisits(ctx context.Context, visits []dataset.Visit) (int64, error) {
	if len(visits) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin visit insert")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO visits (day, customer_no, ts, location)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, errors.Wrap(err, "prepare visit insert")
	}
	defer stmt.Close()

	var inserted int64
	for _, v := range visits {
		res, err := stmt.ExecContext(ctx,
			string(v.Day), v.Customer, v.TS.Format(dataset.TimestampLayout), v.Location)
		if err != nil {
			return 0, errors.Wrapf(err, "insert visit %s@%s", v.Customer, v.Location)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, errors.Wrap(err, "rows affected")
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit visit insert")
	}
	return inserted, nil
}

// VisitsForDay returns every stored visit of one weekday.
func (s *VisitStore) VisitsForDay(ctx context.Context, day dataset.Weekday) ([]dataset.Visit, error) {
	return s.queryVisits(ctx, `
		SELECT day, customer_no, ts, location FROM visits
		WHERE day = ? ORDER BY customer_no, ts, id`, string(day))
}

// AllVisits returns every stored visit across all days.
func (s *VisitStore) AllVisits(ctx context.Context) ([]dataset.Visit, error) {
	return s.queryVisits(ctx, `
		SELECT day, customer_no, ts, location FROM visits
		ORDER BY customer_no, ts, id`)
}

func (s *VisitStore) queryVisits(ctx context.Context, query string, args ...any) ([]dataset.Visit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query visits")
	}
	defer rows.Close()

	visits := []dataset.Visit{}
	for rows.Next() {
		var (
			day, customer, location string
			ts                      time.Time
		)
		// The ts column is declared TIMESTAMP, so the sqlite driver hands the
		// value back as a time.Time regardless of the text we stored.
		if err := rows.Scan(&day, &customer, &ts, &location); err != nil {
			return nil, errors.Wrap(err, "scan visit")
		}
		visits = append(visits, dataset.Visit{
			Day:      dataset.Weekday(day),
			Customer: customer,
			TS:       ts,
			Location: location,
		})
	}
	return visits, rows.Err()
}

// Days lists the weekdays that have at least one stored visit, in calendar
// order.
func (s *VisitStore) Days(ctx context.Context) ([]dataset.Weekday, error) {
	counts, err := s.CountByDay(ctx)
	if err != nil {
		return nil, err
	}
	days := []dataset.Weekday{}
	for _, day := range dataset.Weekdays() {
		if counts[day] > 0 {
			days = append(days, day)
		}
	}
	return days, nil
}

// CountByDay returns the stored visit count per weekday.
func (s *VisitStore) CountByDay(ctx context.Context) (map[dataset.Weekday]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day, COUNT(*) FROM visits GROUP BY day`)
	if err != nil {
		return nil, errors.Wrap(err, "count visits by day")
	}
	defer rows.Close()

	counts := map[dataset.Weekday]int64{}
	for rows.Next() {
		var day string
		var n int64
		if err := rows.Scan(&day, &n); err != nil {
			return nil, errors.Wrap(err, "scan day count")
		}
		counts[dataset.Weekday(day)] = n
	}
	return counts, rows.Err()
}

// DeleteDay removes every visit of one weekday and returns how many rows went.
func (s *VisitStore) DeleteDay(ctx context.Context, day dataset.Weekday) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM visits WHERE day = ?`, string(day))
	if err != nil {
		return 0, errors.Wrapf(err, "delete visits for %s", day)
	}
	return res.RowsAffected()
}

// Stats summarizes the stored dataset for `scb db stats` and /api/days.
type Stats struct {
	TotalVisits int64                     `json:"total_visits"`
	Customers   int64                     `json:"customers"`
	ByDay       map[dataset.Weekday]int64 `json:"by_day"`
}

func (s *VisitStore) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT customer_no) FROM visits`,
	).Scan(&stats.TotalVisits, &stats.Customers); err != nil {
		return Stats{}, errors.Wrap(err, "visit totals")
	}

	byDay, err := s.CountByDay(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.ByDay = byDay
	return stats, nil
}
