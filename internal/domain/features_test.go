package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveTimestamp(t *testing.T) {
	ds := mustReadCSV(t, `
last_updated,temperature_celsius
2024-05-16 10:00,20
2024-05-16T10:15:00Z,21
2024-05-16 10:15:30,22
`)

	got, err := DeriveTimestamp(ds)
	require.NoError(t, err)

	stamps, err := got.Ints(ColTimestamp)
	require.NoError(t, err)
	assert.Equal(t, []int{1715853600, 1715854500, 1715854530}, stamps)
}

func TestDeriveTimestamp_PreservesOrder(t *testing.T) {
	cleaned, _, err := Clean(mustReadCSV(t, dirtyCSV))
	require.NoError(t, err)

	got, err := DeriveTimestamp(cleaned)
	require.NoError(t, err)

	times, err := got.Times(ColLastUpdated)
	require.NoError(t, err)
	stamps, err := got.Ints(ColTimestamp)
	require.NoError(t, err)

	for i := 1; i < len(times); i++ {
		assert.Equal(t, times[i].Compare(times[i-1]), compareInts(stamps[i], stamps[i-1]))
	}
}

func TestDeriveTimestamp_MissingColumn(t *testing.T) {
	ds := mustReadCSV(t, `
temperature_celsius
20
`)

	_, err := DeriveTimestamp(ds)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
