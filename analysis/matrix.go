// Package analysis computes customer-behavior statistics over annotated
// visit slices: the location transition matrix, occupancy and total counts
// over time, and per-customer time in store.
package analysis

import (
	"sort"

	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
)

// Matrix is a first-order Markov transition matrix over store locations.
// Probs is row-normalized: Probs[i][j] is the probability of moving from
// Locations[i] to Locations[j] in the next observation. Checkout is absorbing
// and emits no outgoing transitions, so its row is all zeros.
type Matrix struct {
	Locations []string    `json:"locations"`
	Counts    [][]int64   `json:"counts"`
	Probs     [][]float64 `json:"probabilities"`

	index map[string]int
}

// FitTransitionMatrix counts location→next-location transitions per customer
// and normalizes rows. Visits should carry synthetic entrance rows (see
// dataset.WithEntranceRows) so entrance→section moves are represented. The
// layout's checkout is the absorbing state and emits no transitions.
func FitTransitionMatrix(visits []dataset.Visit, layout dataset.Layout) (*Matrix, error) {
	if len(visits) == 0 {
		return nil, errors.Wrap(errors.ErrNoVisits, "fit transition matrix")
	}

	locations := observedLocations(visits)
	m := &Matrix{
		Locations: locations,
		Counts:    make([][]int64, len(locations)),
		Probs:     make([][]float64, len(locations)),
		index:     map[string]int{},
	}
	for i, loc := range locations {
		m.Counts[i] = make([]int64, len(locations))
		m.Probs[i] = make([]float64, len(locations))
		m.index[loc] = i
	}

	sorted := make([]dataset.Visit, len(visits))
	copy(sorted, visits)
	dataset.SortByCustomerTime(sorted)

	for i := 0; i < len(sorted)-1; i++ {
		cur, next := sorted[i], sorted[i+1]
		if cur.Customer != next.Customer {
			continue
		}
		if cur.Location == layout.Checkout {
			continue
		}
		m.Counts[m.index[cur.Location]][m.index[next.Location]]++
	}

	for i := range m.Counts {
		var total int64
		for _, n := range m.Counts[i] {
			total += n
		}
		if total == 0 {
			continue
		}
		for j, n := range m.Counts[i] {
			m.Probs[i][j] = float64(n) / float64(total)
		}
	}
	return m, nil
}

// observedLocations returns the locations present in visits, known store
// locations first in report order, then any unknown ones alphabetically.
func observedLocations(visits []dataset.Visit) []string {
	seen := map[string]bool{}
	for _, v := range visits {
		seen[v.Location] = true
	}

	locations := []string{}
	for _, loc := range dataset.Locations() {
		if seen[loc] {
			locations = append(locations, loc)
			delete(seen, loc)
		}
	}
	extra := []string{}
	for loc := range seen {
		extra = append(extra, loc)
	}
	sort.Strings(extra)
	return append(locations, extra...)
}

// Prob returns the transition probability from one location to another, zero
// when either is unknown.
func (m *Matrix) Prob(from, to string) float64 {
	i, ok := m.index[from]
	if !ok {
		return 0
	}
	j, ok := m.index[to]
	if !ok {
		return 0
	}
	return m.Probs[i][j]
}

// Row returns the outgoing probability row of a location.
func (m *Matrix) Row(from string) ([]float64, error) {
	i, ok := m.index[from]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownLocation, "%q", from)
	}
	return m.Probs[i], nil
}
