package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
	"github.com/OliverSieweke/supermarket-customer-behavior/db"
)

func testStore(t *testing.T) *VisitStore {
	t.Helper()
	database, err := db.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewVisitStore(database)
}

func sampleVisits() []dataset.Visit {
	ts := func(hh, mm int) time.Time {
		return time.Date(2019, 9, 2, hh, mm, 0, 0, time.UTC)
	}
	return []dataset.Visit{
		{Day: dataset.Monday, Customer: "monday_1", TS: ts(7, 3), Location: "dairy"},
		{Day: dataset.Monday, Customer: "monday_1", TS: ts(7, 5), Location: "checkout"},
		{Day: dataset.Monday, Customer: "monday_2", TS: ts(7, 4), Location: "fruit"},
	}
}

func TestInsertVisitsIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	inserted, err := s.InsertVisits(ctx, sampleVisits())
	require.NoError(t, err)
	assert.EqualValues(t, 3, inserted)

	inserted, err = s.InsertVisits(ctx, sampleVisits())
	require.NoError(t, err)
	assert.EqualValues(t, 0, inserted, "re-ingesting the same day writes nothing")
}

func TestVisitsForDayOrdering(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.InsertVisits(ctx, sampleVisits())
	require.NoError(t, err)

	visits, err := s.VisitsForDay(ctx, dataset.Monday)
	require.NoError(t, err)
	require.Len(t, visits, 3)

	// Ordered by customer then timestamp.
	assert.Equal(t, "monday_1", visits[0].Customer)
	assert.Equal(t, "dairy", visits[0].Location)
	assert.Equal(t, "checkout", visits[1].Location)
	assert.Equal(t, "monday_2", visits[2].Customer)

	none, err := s.VisitsForDay(ctx, dataset.Friday)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTimestampSurvivesRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	want := time.Date(2019, 9, 2, 7, 3, 0, 0, time.UTC)
	_, err := s.InsertVisits(ctx, []dataset.Visit{
		{Day: dataset.Monday, Customer: "monday_1", TS: want, Location: "dairy"},
	})
	require.NoError(t, err)

	visits, err := s.AllVisits(ctx)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.True(t, visits[0].TS.Equal(want), "stored %s, got back %s", want, visits[0].TS)
}

func TestDaysAndStats(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.InsertVisits(ctx, sampleVisits())
	require.NoError(t, err)

	days, err := s.Days(ctx)
	require.NoError(t, err)
	assert.Equal(t, []dataset.Weekday{dataset.Monday}, days)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalVisits)
	assert.EqualValues(t, 2, stats.Customers)
	assert.EqualValues(t, 3, stats.ByDay[dataset.Monday])
}

func TestDeleteDay(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.InsertVisits(ctx, sampleVisits())
	require.NoError(t, err)

	deleted, err := s.DeleteDay(ctx, dataset.Monday)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.TotalVisits)
}

func TestInsertVisitsRollsBackOnFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT OR IGNORE INTO visits").
		ExpectExec().
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	s := NewVisitStore(mockDB)
	_, err = s.InsertVisits(context.Background(), sampleVisits()[:1])
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
