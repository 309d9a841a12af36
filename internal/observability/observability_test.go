package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown", "step", "city_averages")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "city_averages", entry["step"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "text")

	logger.Debug("loaded", "rows", 97)

	assert.Contains(t, buf.String(), "msg=loaded")
	assert.Contains(t, buf.String(), "rows=97")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetricsForTesting()
	m.StepsTotal.WithLabelValues("city_averages", "succeeded").Inc()
	m.ModelMAE.WithLabelValues("random_forest").Set(1.25)

	path := filepath.Join(t.TempDir(), "weather_eda.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `weather_eda_steps_total{outcome="succeeded",step="city_averages"} 1`)
	assert.Contains(t, string(data), `weather_eda_model_mae{model="random_forest"} 1.25`)
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.Anomalies.Set(3)

	assert.Equal(t, 3.0, testutil.ToFloat64(a.Anomalies))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Anomalies))
}
