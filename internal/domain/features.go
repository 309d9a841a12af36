package domain

import "fmt"

// DeriveTimestamp adds a timestamp column holding the Unix seconds of last_updated.
func DeriveTimestamp(ds Dataset) (Dataset, error) {
	times, err := ds.Times(ColLastUpdated)
	if err != nil {
		return Dataset{}, fmt.Errorf("derive timestamp: %w", err)
	}
	stamps := make([]int, len(times))
	for i, t := range times {
		stamps[i] = int(t.Unix())
	}
	return ds.WithInts(ColTimestamp, stamps), nil
}
