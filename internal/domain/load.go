package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
)

// missingTokens load as missing values in every column.
var missingTokens = []string{"", "NA", "NaN", "N/A", "nan", "null", "<nil>"}

// LoadCSV reads a weather CSV from disk. A missing or unreadable file is an
// ErrIO; a malformed file is an ErrParse.
func LoadCSV(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	defer f.Close()

	ds, err := ReadCSV(f)
	if err != nil {
		return Dataset{}, fmt.Errorf("load %s: %w", path, err)
	}
	return ds, nil
}

// ReadCSV parses CSV content with a header row, detecting column types.
func ReadCSV(r io.Reader) (Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return Dataset{}, fmt.Errorf("%w: %w", ErrParse, err)
		}
		return Dataset{}, fmt.Errorf("%w: read csv: %w", ErrIO, err)
	}
	if len(records) == 0 {
		return Dataset{}, fmt.Errorf("%w: no header row", ErrParse)
	}
	if _, j, ok := duplicateName(records[0]); ok {
		return Dataset{}, fmt.Errorf("%w: duplicate column %q", ErrParse, records[0][j])
	}

	frame := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(missingTokens),
	)
	if frame.Err != nil {
		return Dataset{}, fmt.Errorf("%w: %w", ErrParse, frame.Err)
	}
	return NewDataset(frame), nil
}
