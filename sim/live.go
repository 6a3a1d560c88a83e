package sim

import (
	"math/rand"

	"github.com/OliverSieweke/supermarket-customer-behavior/analysis"
	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
)

// Live steps a whole cohort of customers one transition at a time, producing
// an occupancy frame per step. The server drives it from a ticker and
// broadcasts the frames over WebSocket.
type Live struct {
	sim       *Simulator
	rng       *rand.Rand
	positions []string // current location per customer, "" once checked out
	step      int
}

// Frame is one step's occupancy snapshot.
type Frame struct {
	Step      int              `json:"step"`
	Counts    map[string]int64 `json:"counts"`
	Active    int              `json:"active"`
	Completed int              `json:"completed"`
}

// NewLive places customers at the layout's entrance. The first Step moves
// everyone to their first section.
func NewLive(matrix *analysis.Matrix, layout dataset.Layout, customers int, seed int64, maxSteps int) *Live {
	positions := make([]string, customers)
	for i := range positions {
		positions[i] = layout.Entrance
	}
	return &Live{
		sim:       New(matrix, layout, maxSteps),
		rng:       rand.New(rand.NewSource(seed)),
		positions: positions,
	}
}

// Step advances every active customer by one transition and returns the
// resulting frame. done is true once every customer has checked out; checkout
// visits are counted in the frame they happen in and the customer leaves
// afterwards.
func (l *Live) Step() (Frame, bool, error) {
	l.step++
	if l.step > l.sim.maxSteps {
		return Frame{}, false, errors.Wrapf(errors.ErrCheckoutUnreachable,
			"no full checkout within %d steps", l.sim.maxSteps)
	}

	frame := Frame{Step: l.step, Counts: map[string]int64{}}
	for i, current := range l.positions {
		if current == "" {
			frame.Completed++
			continue
		}
		next, err := l.sim.next(current, l.rng)
		if err != nil {
			return Frame{}, false, err
		}
		frame.Counts[next]++
		if next == l.sim.layout.Checkout {
			l.positions[i] = ""
			frame.Completed++
		} else {
			l.positions[i] = next
			frame.Active++
		}
	}
	return frame, frame.Active == 0, nil
}
