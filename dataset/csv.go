package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"time"

	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
)

// TimestampLayout is the timestamp format used by the raw day files.
const TimestampLayout = "2006-01-02 15:04:05"

// ReadDay parses one day file: `;`-separated CSV with the header
// `timestamp;customer_no;location`. With prefixCustomer the customer number
// becomes `<day>_<n>`, which keeps customers distinct when days are combined.
func ReadDay(r io.Reader, day Weekday, prefixCustomer bool) ([]Visit, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = 3

	header, err := reader.Read()
	if err == io.EOF {
		return []Visit{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	if header[0] != "timestamp" || header[1] != "customer_no" || header[2] != "location" {
		return nil, errors.Wrapf(errors.ErrInvalidRecord,
			"unexpected header %v, want [timestamp customer_no location]", header)
	}

	visits := []Visit{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}

		ts, err := time.Parse(TimestampLayout, record[0])
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidRecord,
				"line %d: bad timestamp %q", line, record[0])
		}
		customer := record[1]
		if customer == "" || record[2] == "" {
			return nil, errors.Wrapf(errors.ErrInvalidRecord,
				"line %d: empty customer or location", line)
		}
		if prefixCustomer {
			customer = string(day) + "_" + customer
		}

		visits = append(visits, Visit{
			Day:      day,
			Customer: customer,
			TS:       ts,
			Location: record[2],
		})
	}
	return visits, nil
}

// LoadDay reads <dataDir>/<day>.csv.
func LoadDay(dataDir string, day Weekday, prefixCustomer bool) ([]Visit, error) {
	path := DayFilePath(dataDir, day)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "no data file for %s at %s", day, path)
		}
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	visits, err := ReadDay(f, day, prefixCustomer)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return visits, nil
}

// LoadAll reads every weekday file in dataDir, prefixing customer numbers so
// the combined slice has no cross-day collisions. Missing day files are an
// error; the dataset ships all five.
func LoadAll(dataDir string) ([]Visit, error) {
	all := []Visit{}
	for _, day := range Weekdays() {
		visits, err := LoadDay(dataDir, day, true)
		if err != nil {
			return nil, err
		}
		all = append(all, visits...)
	}
	return all, nil
}
