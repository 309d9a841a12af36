// Package mockdata generates deterministic synthetic weather datasets shaped
// like the global weather repository export. It backs cmd/genmock and the
// end-to-end pipeline tests.
package mockdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"slices"
	"strconv"
	"time"
)

// DefaultStart is the first last_updated value of a generated dataset.
var DefaultStart = time.Date(2024, time.May, 16, 0, 0, 0, 0, time.UTC)

// Interval separates consecutive last_updated values.
const Interval = 15 * time.Minute

// Header is the full column set, in output order.
var Header = []string{
	"country",
	"location_name",
	"latitude",
	"longitude",
	"last_updated",
	"temperature_celsius",
	"condition_text",
	"humidity",
	"pressure",
}

type city struct {
	name    string
	country string
	lat     float64
	lon     float64
}

var cities = []city{
	{"Kabul", "Afghanistan", 34.52, 69.18},
	{"Tirana", "Albania", 41.33, 19.82},
	{"Algiers", "Algeria", 36.76, 3.05},
	{"Buenos Aires", "Argentina", -34.61, -58.38},
	{"Canberra", "Australia", -35.28, 149.13},
	{"Vienna", "Austria", 48.2, 16.37},
	{"Brasilia", "Brazil", -15.78, -47.93},
	{"Ottawa", "Canada", 45.42, -75.7},
	{"Lima", "Peru", -12.05, -77.04},
	{"Nairobi", "Kenya", -1.28, 36.82},
}

var conditions = []string{"Sunny", "Partly cloudy", "Overcast", "Light rain", "Mist"}

// Options controls the generated dataset.
type Options struct {
	Rows int
	Seed int64

	// MissingHumidity rows get a blank humidity cell.
	MissingHumidity int

	// Outliers rows get a temperature far above the normal 10-30 °C range.
	Outliers int

	// OmitColumns are left out of the output entirely.
	OmitColumns []string

	Start time.Time
}

func (o Options) withDefaults() Options {
	if o.Rows <= 0 {
		o.Rows = 100
	}
	if o.Start.IsZero() {
		o.Start = DefaultStart
	}
	return o
}

// Generate returns the dataset as CSV records, header first.
func Generate(opts Options) ([][]string, error) {
	opts = opts.withDefaults()
	if opts.MissingHumidity+opts.Outliers > opts.Rows {
		return nil, fmt.Errorf("mockdata: %d missing and %d outlier rows exceed %d rows",
			opts.MissingHumidity, opts.Outliers, opts.Rows)
	}

	rng := rand.New(rand.NewSource(opts.Seed)) //nolint:gosec // deterministic fixtures

	// Missing and outlier rows are disjoint so each is counted once by the cleaner.
	perm := rng.Perm(opts.Rows)
	missing := make(map[int]bool, opts.MissingHumidity)
	for _, i := range perm[:opts.MissingHumidity] {
		missing[i] = true
	}
	outliers := make(map[int]bool, opts.Outliers)
	for _, i := range perm[opts.MissingHumidity : opts.MissingHumidity+opts.Outliers] {
		outliers[i] = true
	}

	keep := make([]int, 0, len(Header))
	for i, col := range Header {
		if !slices.Contains(opts.OmitColumns, col) {
			keep = append(keep, i)
		}
	}

	records := make([][]string, 0, opts.Rows+1)
	records = append(records, pick(Header, keep))
	for i := range opts.Rows {
		c := cities[i%len(cities)]

		temp := 10 + rng.Float64()*20
		if outliers[i] {
			temp = 60 + rng.Float64()*10
		}
		humidity := strconv.Itoa(30 + rng.Intn(61))
		if missing[i] {
			humidity = ""
		}

		row := []string{
			c.country,
			c.name,
			strconv.FormatFloat(c.lat, 'f', 2, 64),
			strconv.FormatFloat(c.lon, 'f', 2, 64),
			opts.Start.Add(time.Duration(i) * Interval).Format("2006-01-02 15:04"),
			strconv.FormatFloat(temp, 'f', 1, 64),
			conditions[rng.Intn(len(conditions))],
			humidity,
			strconv.FormatFloat(1000+rng.Float64()*25, 'f', 1, 64),
		}
		records = append(records, pick(row, keep))
	}
	return records, nil
}

// WriteCSV writes a generated dataset to w.
func WriteCSV(w io.Writer, opts Options) error {
	records, err := Generate(opts)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("mockdata: write csv: %w", err)
	}
	return nil
}

func pick(row []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = row[j]
	}
	return out
}
