package dataset

import "time"

// entranceLead is how long before a customer's first recorded visit their
// synthetic entrance visit is placed.
const entranceLead = time.Minute

// MarkEntryExit sorts visits by timestamp and annotates each one: Entry on a
// customer's first appearance, Exit at the layout's checkout, CountChange +1
// on entry and -1 on exit. The input slice is modified and returned.
func MarkEntryExit(visits []Visit, layout Layout) []Visit {
	SortByTime(visits)

	seen := map[string]bool{}
	for i := range visits {
		v := &visits[i]
		v.Entry = !seen[v.Customer]
		seen[v.Customer] = true
		v.Exit = v.Location == layout.Checkout

		switch {
		case v.Entry:
			v.CountChange = 1
		case v.Exit:
			v.CountChange = -1
		default:
			v.CountChange = 0
		}
	}
	return visits
}

// FilterNonExiting drops every visit of customers whose last appearance is not
// checkout. Those customers were still in the store when recording stopped and
// would skew occupancy and time-in-store downward-open.
func FilterNonExiting(visits []Visit, layout Layout) []Visit {
	SortByTime(visits)

	lastLocation := map[string]string{}
	for _, v := range visits {
		lastLocation[v.Customer] = v.Location
	}

	kept := visits[:0]
	for _, v := range visits {
		if lastLocation[v.Customer] == layout.Checkout {
			kept = append(kept, v)
		}
	}
	return kept
}

// WithEntranceRows inserts one synthetic entrance visit per customer, one
// minute before their first real visit, so entrance→section transitions are
// represented. The entrance visit takes over the customer's Entry flag.
func WithEntranceRows(visits []Visit, layout Layout) []Visit {
	SortByTime(visits)

	out := make([]Visit, 0, len(visits)*2)
	seen := map[string]bool{}
	for _, v := range visits {
		if !seen[v.Customer] {
			seen[v.Customer] = true
			out = append(out, Visit{
				Day:         v.Day,
				Customer:    v.Customer,
				TS:          v.TS.Add(-entranceLead),
				Location:    layout.Entrance,
				Entry:       true,
				CountChange: 1,
			})
			v.Entry = false
			v.CountChange = 0
			if v.Exit {
				v.CountChange = -1
			}
		}
		out = append(out, v)
	}

	SortByTime(out)
	return out
}
