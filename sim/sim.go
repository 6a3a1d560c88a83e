// Package sim replays synthetic customers through a fitted transition matrix.
// Walks start at the entrance, follow the row probabilities, and end at
// checkout. A fixed seed gives a reproducible run.
package sim

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/OliverSieweke/supermarket-customer-behavior/analysis"
	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
)

// Day tags simulated visits so they are distinguishable from ingested data.
const Day = dataset.Weekday("simulated")

// stepInterval is the simulated time between two observations of a customer.
const stepInterval = time.Minute

// DefaultMaxSteps caps a single walk. The fitted matrices reach checkout in a
// handful of steps; hitting the cap means checkout is unreachable from some
// state.
const DefaultMaxSteps = 100

type Simulator struct {
	matrix   *analysis.Matrix
	layout   dataset.Layout
	maxSteps int
}

// New builds a simulator over a fitted matrix. Walks start at the layout's
// entrance and end at its checkout. maxSteps <= 0 selects DefaultMaxSteps.
func New(matrix *analysis.Matrix, layout dataset.Layout, maxSteps int) *Simulator {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Simulator{matrix: matrix, layout: layout, maxSteps: maxSteps}
}

// Walk runs one customer entrance→checkout and returns the visited locations,
// entrance first and checkout last.
func (s *Simulator) Walk(rng *rand.Rand) ([]string, error) {
	path := []string{s.layout.Entrance}
	current := s.layout.Entrance

	for step := 0; step < s.maxSteps; step++ {
		next, err := s.next(current, rng)
		if err != nil {
			return nil, err
		}
		path = append(path, next)
		if next == s.layout.Checkout {
			return path, nil
		}
		current = next
	}
	return nil, errors.Wrapf(errors.ErrCheckoutUnreachable,
		"no checkout within %d steps", s.maxSteps)
}

// next samples the successor location from the current row.
func (s *Simulator) next(current string, rng *rand.Rand) (string, error) {
	row, err := s.matrix.Row(current)
	if err != nil {
		return "", err
	}

	r := rng.Float64()
	var cumulative float64
	for j, p := range row {
		cumulative += p
		if r < cumulative {
			return s.matrix.Locations[j], nil
		}
	}
	// A row summing to zero has no outgoing transitions.
	return "", errors.Wrapf(errors.ErrCheckoutUnreachable,
		"dead end at %q", current)
}

// Run walks the given number of customers and returns their visits as a
// combined slice, one visit per minute-spaced step starting at start.
// Customers are named sim_1..sim_N.
func (s *Simulator) Run(customers int, seed int64, start time.Time) ([]dataset.Visit, error) {
	rng := rand.New(rand.NewSource(seed))

	visits := []dataset.Visit{}
	for n := 1; n <= customers; n++ {
		path, err := s.Walk(rng)
		if err != nil {
			return nil, errors.Wrapf(err, "customer %d", n)
		}
		customer := "sim_" + strconv.Itoa(n)
		for step, location := range path {
			visits = append(visits, dataset.Visit{
				Day:      Day,
				Customer: customer,
				TS:       start.Add(time.Duration(step) * stepInterval),
				Location: location,
			})
		}
	}
	return dataset.MarkEntryExit(visits, s.layout), nil
}
