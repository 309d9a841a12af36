package minio

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/weather-eda/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ sharedobs.ReadinessChecker = (*Store)(nil)

func TestNew(t *testing.T) {
	cfg := &config.Config{
		MinioEndpoint:  "localhost:9000",
		MinioAccessKey: "minioadmin",
		MinioSecretKey: "minioadmin",
		MinioBucket:    "weather-eda",
	}
	s, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Equal(t, "weather-eda", s.bucket)
}

func TestContentType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"output/weather_map.html", "text/html; charset=utf-8"},
		{"output/city_averages.png", "image/png"},
		{"output/run_summary.json", "application/json"},
		{"output/artifact", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, contentType(tt.path))
		})
	}
}

func TestCheckReadiness_UnreachableEndpoint(t *testing.T) {
	cfg := &config.Config{
		MinioEndpoint:  "127.0.0.1:1",
		MinioAccessKey: "minioadmin",
		MinioSecretKey: "minioadmin",
		MinioBucket:    "weather-eda",
	}
	s, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	err = s.CheckReadiness(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minio not reachable")
}
