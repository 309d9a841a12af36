// Command genmock writes a seeded synthetic weather CSV shaped like the
// global weather repository export. The same seed always yields the same file.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock/weather.csv \
//	  -rows 500 -seed 42 -missing-humidity 3 -outliers 2
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/weather-eda/internal/mockdata"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the generated CSV (stdout when empty)")
	rows := flag.Int("rows", 100, "number of data rows")
	seed := flag.Int64("seed", 42, "random seed")
	missing := flag.Int("missing-humidity", 0, "rows with a blank humidity cell")
	outliers := flag.Int("outliers", 0, "rows with an out-of-range temperature")
	omit := flag.String("omit", "", "comma-separated columns to leave out")
	start := flag.String("start", mockdata.DefaultStart.Format(time.RFC3339), "first last_updated timestamp (RFC 3339)")
	flag.Parse()

	startTime, err := time.Parse(time.RFC3339, *start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	opts := mockdata.Options{
		Rows:            *rows,
		Seed:            *seed,
		MissingHumidity: *missing,
		Outliers:        *outliers,
		Start:           startTime.UTC(),
	}
	if *omit != "" {
		for _, c := range strings.Split(*omit, ",") {
			opts.OmitColumns = append(opts.OmitColumns, strings.TrimSpace(c))
		}
	}

	if *out == "" {
		return mockdata.WriteCSV(os.Stdout, opts)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}
	if err := mockdata.WriteCSV(f, opts); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", *out, err)
	}
	log.Printf("wrote %d rows to %s", *rows, *out)
	return nil
}
