package analysis

import (
	"sort"
	"time"

	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
)

// OccupancyPoint is the customer count per location at one timestamp.
type OccupancyPoint struct {
	TS     time.Time        `json:"timestamp"`
	Counts map[string]int64 `json:"counts"`
}

// Occupancy counts customers per location per timestamp. Only timestamps with
// at least one visit appear; locations restricts the counted locations when
// non-empty.
func Occupancy(visits []dataset.Visit, locations []string) []OccupancyPoint {
	wanted := map[string]bool{}
	for _, loc := range locations {
		wanted[loc] = true
	}

	byTS := map[time.Time]map[string]int64{}
	for _, v := range visits {
		if len(wanted) > 0 && !wanted[v.Location] {
			continue
		}
		counts, ok := byTS[v.TS]
		if !ok {
			counts = map[string]int64{}
			byTS[v.TS] = counts
		}
		counts[v.Location]++
	}

	points := make([]OccupancyPoint, 0, len(byTS))
	for ts, counts := range byTS {
		points = append(points, OccupancyPoint{TS: ts, Counts: counts})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].TS.Before(points[j].TS)
	})
	return points
}
