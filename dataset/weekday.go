// Package dataset loads the per-weekday visit logs and annotates them with
// entry/exit bookkeeping. All higher layers (storage, analysis, simulation)
// consume the Visit slices produced here.
package dataset

import (
	"path/filepath"

	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
)

// Weekday names one trading day. The raw data ships as one CSV per weekday,
// named <weekday>.csv.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
)

// Weekdays returns the trading days in calendar order.
func Weekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}
}

// ParseWeekday validates a user-supplied day name.
func ParseWeekday(s string) (Weekday, error) {
	for _, day := range Weekdays() {
		if string(day) == s {
			return day, nil
		}
	}
	return "", errors.Wrapf(errors.ErrUnknownWeekday, "%q", s)
}

// DayFilePath returns the CSV file path for a day inside dataDir.
func DayFilePath(dataDir string, day Weekday) string {
	return filepath.Join(dataDir, string(day)+".csv")
}

func (d Weekday) String() string { return string(d) }
