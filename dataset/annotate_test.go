package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hh, mm int) time.Time {
	return time.Date(2019, 9, 2, hh, mm, 0, 0, time.UTC)
}

func visit(customer string, ts time.Time, location string) Visit {
	return Visit{Day: Monday, Customer: customer, TS: ts, Location: location}
}

func TestMarkEntryExit(t *testing.T) {
	visits := MarkEntryExit([]Visit{
		visit("1", at(7, 5), "checkout"),
		visit("1", at(7, 3), "dairy"),
		visit("2", at(7, 4), "fruit"),
	}, DefaultLayout())

	require.Len(t, visits, 3)

	// Sorted by time: dairy, fruit, checkout.
	assert.Equal(t, "dairy", visits[0].Location)
	assert.True(t, visits[0].Entry)
	assert.False(t, visits[0].Exit)
	assert.Equal(t, 1, visits[0].CountChange)

	assert.True(t, visits[1].Entry, "customer 2 first appearance")
	assert.Equal(t, 1, visits[1].CountChange)

	assert.False(t, visits[2].Entry)
	assert.True(t, visits[2].Exit)
	assert.Equal(t, -1, visits[2].CountChange)
}

func TestMarkEntryExitEntryAtCheckout(t *testing.T) {
	// A customer whose only visit is checkout enters and exits in one row.
	// Entry wins the count change, matching the one-row-one-delta invariant.
	visits := MarkEntryExit([]Visit{visit("1", at(7, 3), "checkout")}, DefaultLayout())

	assert.True(t, visits[0].Entry)
	assert.True(t, visits[0].Exit)
	assert.Equal(t, 1, visits[0].CountChange)
}

func TestFilterNonExiting(t *testing.T) {
	visits := FilterNonExiting([]Visit{
		visit("stays", at(7, 3), "dairy"),
		visit("stays", at(7, 4), "drinks"),
		visit("leaves", at(7, 3), "fruit"),
		visit("leaves", at(7, 5), "checkout"),
	}, DefaultLayout())

	require.Len(t, visits, 2)
	for _, v := range visits {
		assert.Equal(t, "leaves", v.Customer)
	}
}

func TestWithEntranceRows(t *testing.T) {
	visits := WithEntranceRows(MarkEntryExit([]Visit{
		visit("1", at(7, 3), "dairy"),
		visit("1", at(7, 5), "checkout"),
	}, DefaultLayout()), DefaultLayout())

	require.Len(t, visits, 3)

	assert.Equal(t, LocationEntrance, visits[0].Location)
	assert.Equal(t, at(7, 2), visits[0].TS)
	assert.True(t, visits[0].Entry)
	assert.Equal(t, 1, visits[0].CountChange)

	// The first real visit loses its entry flag to the synthetic row.
	assert.Equal(t, "dairy", visits[1].Location)
	assert.False(t, visits[1].Entry)
	assert.Equal(t, 0, visits[1].CountChange)

	assert.True(t, visits[2].Exit)
	assert.Equal(t, -1, visits[2].CountChange)
}

func TestWithEntranceRowsSingleCheckoutVisit(t *testing.T) {
	visits := WithEntranceRows(MarkEntryExit([]Visit{
		visit("1", at(7, 3), "checkout"),
	}, DefaultLayout()), DefaultLayout())

	require.Len(t, visits, 2)
	assert.Equal(t, LocationEntrance, visits[0].Location)
	assert.Equal(t, 1, visits[0].CountChange)
	assert.Equal(t, -1, visits[1].CountChange, "checkout row reverts to exit delta")
}

func TestAnnotateCustomLayout(t *testing.T) {
	// Stores with renamed terminal locations annotate against their own layout.
	layout := Layout{Entrance: "door", Checkout: "till"}

	visits := WithEntranceRows(MarkEntryExit([]Visit{
		visit("1", at(7, 3), "dairy"),
		visit("1", at(7, 5), "till"),
	}, layout), layout)

	require.Len(t, visits, 3)
	assert.Equal(t, "door", visits[0].Location)
	assert.True(t, visits[0].Entry)
	assert.True(t, visits[2].Exit)
	assert.Equal(t, -1, visits[2].CountChange)

	kept := FilterNonExiting([]Visit{
		visit("2", at(7, 3), "dairy"),
		visit("3", at(7, 4), "fruit"),
		visit("3", at(7, 6), "till"),
	}, layout)
	require.Len(t, kept, 2)
	for _, v := range kept {
		assert.Equal(t, "3", v.Customer)
	}
}
