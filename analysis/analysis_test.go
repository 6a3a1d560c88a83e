package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
)

func at(hh, mm int) time.Time {
	return time.Date(2019, 9, 2, hh, mm, 0, 0, time.UTC)
}

func visit(customer string, ts time.Time, location string) dataset.Visit {
	return dataset.Visit{Day: dataset.Monday, Customer: customer, TS: ts, Location: location}
}

// Two customers with known paths:
//
//	1: entrance → dairy → checkout
//	2: entrance → dairy → fruit → checkout
func fixtureVisits() []dataset.Visit {
	layout := dataset.DefaultLayout()
	return dataset.WithEntranceRows(dataset.MarkEntryExit([]dataset.Visit{
		visit("1", at(7, 3), "dairy"),
		visit("1", at(7, 5), "checkout"),
		visit("2", at(7, 4), "dairy"),
		visit("2", at(7, 6), "fruit"),
		visit("2", at(7, 8), "checkout"),
	}, layout), layout)
}

func TestFitTransitionMatrix(t *testing.T) {
	m, err := FitTransitionMatrix(fixtureVisits(), dataset.DefaultLayout())
	require.NoError(t, err)

	assert.Equal(t, []string{"entrance", "dairy", "fruit", "checkout"}, m.Locations)

	// Both customers went entrance→dairy.
	assert.Equal(t, 1.0, m.Prob("entrance", "dairy"))
	// From dairy: one customer to checkout, one to fruit.
	assert.Equal(t, 0.5, m.Prob("dairy", "checkout"))
	assert.Equal(t, 0.5, m.Prob("dairy", "fruit"))
	assert.Equal(t, 1.0, m.Prob("fruit", "checkout"))

	// Checkout is absorbing.
	row, err := m.Row("checkout")
	require.NoError(t, err)
	for _, p := range row {
		assert.Zero(t, p)
	}
}

func TestFitTransitionMatrixRowSums(t *testing.T) {
	m, err := FitTransitionMatrix(fixtureVisits(), dataset.DefaultLayout())
	require.NoError(t, err)

	for i, loc := range m.Locations {
		var sum float64
		for _, p := range m.Probs[i] {
			sum += p
		}
		if loc == dataset.LocationCheckout {
			assert.Zero(t, sum)
			continue
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "row %s", loc)
	}
}

func TestFitTransitionMatrixErrors(t *testing.T) {
	_, err := FitTransitionMatrix(nil, dataset.DefaultLayout())
	assert.ErrorIs(t, err, errors.ErrNoVisits)

	m, err := FitTransitionMatrix(fixtureVisits(), dataset.DefaultLayout())
	require.NoError(t, err)
	_, err = m.Row("freezer")
	assert.ErrorIs(t, err, errors.ErrUnknownLocation)
	assert.Zero(t, m.Prob("freezer", "dairy"))
}

func TestFitTransitionMatrixCustomLayout(t *testing.T) {
	// A renamed checkout must still be the absorbing state.
	layout := dataset.Layout{Entrance: "door", Checkout: "till"}
	visits := dataset.WithEntranceRows(dataset.MarkEntryExit([]dataset.Visit{
		visit("1", at(7, 3), "dairy"),
		visit("1", at(7, 5), "till"),
	}, layout), layout)

	m, err := FitTransitionMatrix(visits, layout)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Prob("door", "dairy"))
	assert.Equal(t, 1.0, m.Prob("dairy", "till"))

	row, err := m.Row("till")
	require.NoError(t, err)
	for _, p := range row {
		assert.Zero(t, p)
	}
}

func TestOccupancy(t *testing.T) {
	points := Occupancy([]dataset.Visit{
		visit("1", at(7, 3), "dairy"),
		visit("2", at(7, 3), "dairy"),
		visit("3", at(7, 3), "fruit"),
		visit("1", at(7, 4), "checkout"),
	}, nil)

	require.Len(t, points, 2)
	assert.Equal(t, at(7, 3), points[0].TS)
	assert.EqualValues(t, 2, points[0].Counts["dairy"])
	assert.EqualValues(t, 1, points[0].Counts["fruit"])
	assert.EqualValues(t, 1, points[1].Counts["checkout"])
}

func TestOccupancyLocationFilter(t *testing.T) {
	points := Occupancy([]dataset.Visit{
		visit("1", at(7, 3), "dairy"),
		visit("2", at(7, 3), "fruit"),
	}, []string{"fruit"})

	require.Len(t, points, 1)
	assert.EqualValues(t, 1, points[0].Counts["fruit"])
	assert.NotContains(t, points[0].Counts, "dairy")
}

func TestCustomerTotals(t *testing.T) {
	visits := dataset.MarkEntryExit([]dataset.Visit{
		visit("1", at(7, 3), "dairy"),
		visit("2", at(7, 3), "fruit"),
		visit("1", at(7, 4), "checkout"),
		visit("2", at(7, 6), "checkout"),
	}, dataset.DefaultLayout())

	points := CustomerTotals(visits)
	require.Len(t, points, 3)

	// Two entries collapse onto the shared first timestamp.
	assert.EqualValues(t, 2, points[0].Customers)
	assert.EqualValues(t, 1, points[1].Customers)
	assert.EqualValues(t, 0, points[2].Customers)
}

func TestTimeInStore(t *testing.T) {
	durations := TimeInStore(dataset.MarkEntryExit([]dataset.Visit{
		visit("1", at(7, 3), "dairy"),
		visit("1", at(7, 8), "checkout"),
		visit("2", at(7, 4), "fruit"), // never checks out
	}, dataset.DefaultLayout()))

	require.Len(t, durations, 1)
	assert.Equal(t, "1", durations[0].Customer)
	assert.Equal(t, 5.0, durations[0].Minutes)

	assert.Equal(t, 5.0, MeanMinutes(durations))
	assert.Zero(t, MeanMinutes(nil))
}

func TestTimeInStoreFirstCheckoutWins(t *testing.T) {
	// A duplicated checkout row must not stretch the stay; the first exit
	// closes it.
	durations := TimeInStore(dataset.MarkEntryExit([]dataset.Visit{
		visit("1", at(7, 3), "dairy"),
		visit("1", at(7, 8), "checkout"),
		visit("1", at(7, 20), "checkout"),
	}, dataset.DefaultLayout()))

	require.Len(t, durations, 1)
	assert.Equal(t, at(7, 8), durations[0].Exit)
	assert.Equal(t, 5.0, durations[0].Minutes)
}
