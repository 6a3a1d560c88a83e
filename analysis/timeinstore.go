package analysis

import (
	"sort"
	"time"

	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
)

// CustomerDuration is one customer's stay, entry to checkout.
type CustomerDuration struct {
	Customer string    `json:"customer_no"`
	Entry    time.Time `json:"entry"`
	Exit     time.Time `json:"exit"`
	Minutes  float64   `json:"minutes"`
}

// TimeInStore measures entry-to-exit duration per customer over visits
// annotated by dataset.MarkEntryExit. The first exit visit closes the stay;
// customers without one are skipped, filter them out up front with
// dataset.FilterNonExiting when they should be excluded from other statistics
// too. Results are ordered by customer number.
func TimeInStore(visits []dataset.Visit) []CustomerDuration {
	sorted := make([]dataset.Visit, len(visits))
	copy(sorted, visits)
	dataset.SortByTime(sorted)

	entries := map[string]time.Time{}
	exits := map[string]time.Time{}
	for _, v := range sorted {
		if _, ok := entries[v.Customer]; !ok {
			entries[v.Customer] = v.TS
		}
		if v.Exit {
			if _, ok := exits[v.Customer]; !ok {
				exits[v.Customer] = v.TS
			}
		}
	}

	durations := make([]CustomerDuration, 0, len(exits))
	for customer, exit := range exits {
		entry := entries[customer]
		durations = append(durations, CustomerDuration{
			Customer: customer,
			Entry:    entry,
			Exit:     exit,
			Minutes:  exit.Sub(entry).Minutes(),
		})
	}
	sort.Slice(durations, func(i, j int) bool {
		return durations[i].Customer < durations[j].Customer
	})
	return durations
}

// MeanMinutes averages the stay length, zero for no customers.
func MeanMinutes(durations []CustomerDuration) float64 {
	if len(durations) == 0 {
		return 0
	}
	var total float64
	for _, d := range durations {
		total += d.Minutes
	}
	return total / float64(len(durations))
}
