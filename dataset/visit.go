package dataset

import (
	"sort"
	"time"
)

// Store locations. Entrance is synthetic (see WithEntranceRows); the raw logs
// only record section and checkout visits.
const (
	LocationEntrance = "entrance"
	LocationDairy    = "dairy"
	LocationDrinks   = "drinks"
	LocationFruit    = "fruit"
	LocationSpices   = "spices"
	LocationCheckout = "checkout"
)

// Locations returns every store location in report order, entrance first and
// checkout last.
func Locations() []string {
	return []string{
		LocationEntrance,
		LocationDairy,
		LocationDrinks,
		LocationFruit,
		LocationSpices,
		LocationCheckout,
	}
}

// Layout names the two locations that delimit a store visit: the entrance
// customers start from and the absorbing checkout they end at. Annotation,
// the transition matrix and the simulator take a Layout so datasets with
// renamed locations (data.entrance_location / data.checkout_location) work
// unchanged.
type Layout struct {
	Entrance string `json:"entrance"`
	Checkout string `json:"checkout"`
}

// DefaultLayout returns the standard store layout.
func DefaultLayout() Layout {
	return Layout{Entrance: LocationEntrance, Checkout: LocationCheckout}
}

// Visit is one observation: a customer seen at a location at a point in time.
// Entry, Exit and CountChange are zero until MarkEntryExit annotates the slice.
type Visit struct {
	Day      Weekday   `json:"day"`
	Customer string    `json:"customer_no"`
	TS       time.Time `json:"timestamp"`
	Location string    `json:"location"`

	Entry       bool `json:"entry,omitempty"`
	Exit        bool `json:"exit,omitempty"`
	CountChange int  `json:"count_change,omitempty"`
}

// SortByTime orders visits by timestamp, preserving file order for ties.
func SortByTime(visits []Visit) {
	sort.SliceStable(visits, func(i, j int) bool {
		return visits[i].TS.Before(visits[j].TS)
	})
}

// SortByCustomerTime orders visits by customer then timestamp, the order the
// transition matrix walks them in.
func SortByCustomerTime(visits []Visit) {
	sort.SliceStable(visits, func(i, j int) bool {
		if visits[i].Customer != visits[j].Customer {
			return visits[i].Customer < visits[j].Customer
		}
		return visits[i].TS.Before(visits[j].TS)
	})
}
