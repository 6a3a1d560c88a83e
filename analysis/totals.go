package analysis

import (
	"time"

	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
)

// TotalPoint is the number of customers inside the store at one timestamp.
type TotalPoint struct {
	TS        time.Time `json:"timestamp"`
	Customers int64     `json:"customers"`
}

// CustomerTotals runs the cumulative sum of entry/exit deltas over the
// time-sorted visits and keeps the last value per timestamp. Visits must be
// annotated with dataset.MarkEntryExit first.
func CustomerTotals(visits []dataset.Visit) []TotalPoint {
	sorted := make([]dataset.Visit, len(visits))
	copy(sorted, visits)
	dataset.SortByTime(sorted)

	points := []TotalPoint{}
	var running int64
	for _, v := range sorted {
		running += int64(v.CountChange)
		if n := len(points); n > 0 && points[n-1].TS.Equal(v.TS) {
			points[n-1].Customers = running
			continue
		}
		points = append(points, TotalPoint{TS: v.TS, Customers: running})
	}
	return points
}
