package domain

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustReadCSV(t *testing.T, content string) Dataset {
	t.Helper()
	ds, err := ReadCSV(strings.NewReader(strings.TrimSpace(content) + "\n"))
	require.NoError(t, err)
	return ds
}

const dirtyCSV = `
location_name,last_updated,Temperature_Celsius,humidity,pressure
Alpha,2024-05-16 10:00,20,50,1010
Alpha,2024-05-16 10:15,21,,1011
Bravo,2024-05-16 10:30,22,55,1012
Bravo,2024-05-16 10:45,100,60,1013
Charlie,2024-05-16 11:00,19,65,1014
Charlie,2024-05-16 11:15,abc,70,1015
`
