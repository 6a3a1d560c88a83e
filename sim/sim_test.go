package sim

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OliverSieweke/supermarket-customer-behavior/analysis"
	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
)

func fittedMatrix(t *testing.T) *analysis.Matrix {
	t.Helper()
	at := func(hh, mm int) time.Time {
		return time.Date(2019, 9, 2, hh, mm, 0, 0, time.UTC)
	}
	layout := dataset.DefaultLayout()
	visits := dataset.WithEntranceRows(dataset.MarkEntryExit([]dataset.Visit{
		{Day: dataset.Monday, Customer: "1", TS: at(7, 3), Location: "dairy"},
		{Day: dataset.Monday, Customer: "1", TS: at(7, 5), Location: "checkout"},
		{Day: dataset.Monday, Customer: "2", TS: at(7, 4), Location: "fruit"},
		{Day: dataset.Monday, Customer: "2", TS: at(7, 6), Location: "checkout"},
	}, layout), layout)
	m, err := analysis.FitTransitionMatrix(visits, layout)
	require.NoError(t, err)
	return m
}

func TestWalkEndsAtCheckout(t *testing.T) {
	s := New(fittedMatrix(t), dataset.DefaultLayout(), 0)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 20; i++ {
		path, err := s.Walk(rng)
		require.NoError(t, err)
		assert.Equal(t, dataset.LocationEntrance, path[0])
		assert.Equal(t, dataset.LocationCheckout, path[len(path)-1])
		for _, loc := range path[1 : len(path)-1] {
			assert.NotEqual(t, dataset.LocationCheckout, loc)
		}
	}
}

func TestRunIsDeterministicForSeed(t *testing.T) {
	s := New(fittedMatrix(t), dataset.DefaultLayout(), 0)
	start := time.Date(2019, 9, 2, 7, 0, 0, 0, time.UTC)

	first, err := s.Run(50, 42, start)
	require.NoError(t, err)
	second, err := s.Run(50, 42, start)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := s.Run(50, 43, start)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestRunAnnotatesVisits(t *testing.T) {
	s := New(fittedMatrix(t), dataset.DefaultLayout(), 0)
	start := time.Date(2019, 9, 2, 7, 0, 0, 0, time.UTC)

	visits, err := s.Run(3, 7, start)
	require.NoError(t, err)
	require.NotEmpty(t, visits)

	entries, exits := 0, 0
	for _, v := range visits {
		assert.Equal(t, Day, v.Day)
		if v.Entry {
			entries++
		}
		if v.Exit {
			exits++
		}
	}
	assert.Equal(t, 3, entries)
	assert.Equal(t, 3, exits)
}

func TestWalkDeadEnd(t *testing.T) {
	// A dataset whose only non-exiting customer never reaches checkout leaves
	// dairy with no outgoing transitions.
	visits := []dataset.Visit{
		{Day: dataset.Monday, Customer: "1",
			TS:       time.Date(2019, 9, 2, 7, 3, 0, 0, time.UTC),
			Location: dataset.LocationEntrance},
		{Day: dataset.Monday, Customer: "1",
			TS:       time.Date(2019, 9, 2, 7, 4, 0, 0, time.UTC),
			Location: "dairy"},
	}
	m, err := analysis.FitTransitionMatrix(visits, dataset.DefaultLayout())
	require.NoError(t, err)

	s := New(m, dataset.DefaultLayout(), 10)
	_, err = s.Walk(rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, errors.ErrCheckoutUnreachable)
}

func TestWalkCustomLayout(t *testing.T) {
	// Walks over a renamed layout start and end at its own terminals.
	layout := dataset.Layout{Entrance: "door", Checkout: "till"}
	at := func(hh, mm int) time.Time {
		return time.Date(2019, 9, 2, hh, mm, 0, 0, time.UTC)
	}
	visits := dataset.WithEntranceRows(dataset.MarkEntryExit([]dataset.Visit{
		{Day: dataset.Monday, Customer: "1", TS: at(7, 3), Location: "dairy"},
		{Day: dataset.Monday, Customer: "1", TS: at(7, 5), Location: "till"},
	}, layout), layout)
	m, err := analysis.FitTransitionMatrix(visits, layout)
	require.NoError(t, err)

	path, err := New(m, layout, 0).Walk(rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, "door", path[0])
	assert.Equal(t, "till", path[len(path)-1])
}

func TestLiveStepsUntilAllCheckedOut(t *testing.T) {
	live := NewLive(fittedMatrix(t), dataset.DefaultLayout(), 10, 42, 0)

	var done bool
	var frame Frame
	var err error
	for i := 0; i < DefaultMaxSteps && !done; i++ {
		frame, done, err = live.Step()
		require.NoError(t, err)
		assert.Equal(t, 10, frame.Active+frame.Completed)
	}
	assert.True(t, done)
	assert.Equal(t, 10, frame.Completed)
}
