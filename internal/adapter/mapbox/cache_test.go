package mapbox

import (
	"context"
	"testing"

	"github.com/couchcryptid/weather-eda/internal/domain"
	"github.com/couchcryptid/weather-eda/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingGeocoder struct {
	forwardCalls int
	reverseCalls int
	result       domain.GeocodingResult
}

func (m *countingGeocoder) ForwardGeocode(_ context.Context, _, _ string) (domain.GeocodingResult, error) {
	m.forwardCalls++
	return m.result, nil
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.reverseCalls++
	return m.result, nil
}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_ForwardCacheHit(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{Lat: -12.05, Lon: -77.04, PlaceName: "Lima", FormattedAddress: "Lima, Peru"},
	}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedGeocoder(inner, 10, metrics)

	r1, err := cached.ForwardGeocode(context.Background(), "Lima", "Peru")
	require.NoError(t, err)
	assert.Equal(t, "Lima", r1.PlaceName)

	r2, err := cached.ForwardGeocode(context.Background(), "Lima", "Peru")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)

	assert.Equal(t, 1, inner.forwardCalls, "should only call inner once")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues(domain.GeocodeForward, "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues(domain.GeocodeForward, "miss")))
}

func TestCachedGeocoder_ReverseCacheHit(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{PlaceName: "Nairobi", FormattedAddress: "Nairobi, Kenya"},
	}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.ReverseGeocode(context.Background(), -1.28, 36.82)
	require.NoError(t, err)

	_, err = cached.ReverseGeocode(context.Background(), -1.28, 36.82)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.reverseCalls, "should only call inner once")
}

func TestCachedGeocoder_EmptyResultNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ForwardGeocode(context.Background(), "Atlantis", "")
	_, _ = cached.ForwardGeocode(context.Background(), "Atlantis", "")

	assert.Equal(t, 2, inner.forwardCalls)
}

func TestCachedGeocoder_CountryIsPartOfKey(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{Lat: -31.42, Lon: -64.18, PlaceName: "Cordoba"},
	}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ForwardGeocode(context.Background(), "Cordoba", "Argentina")
	_, _ = cached.ForwardGeocode(context.Background(), "Cordoba", "Spain")

	assert.Equal(t, 2, inner.forwardCalls)
}

func TestCachedGeocoder_NamesFoldCaseAndSpace(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{Lat: -34.61, Lon: -58.38, PlaceName: "Buenos Aires"},
	}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ForwardGeocode(context.Background(), "Buenos Aires", "Argentina")
	_, _ = cached.ForwardGeocode(context.Background(), " buenos  AIRES", "argentina ")

	assert.Equal(t, 1, inner.forwardCalls)
}

func TestCachedGeocoder_InvalidCoordinatesNotCached(t *testing.T) {
	tests := []struct {
		name   string
		result domain.GeocodingResult
	}{
		{"null island", domain.GeocodingResult{PlaceName: "Atlantis", FormattedAddress: "Atlantis"}},
		{"latitude out of range", domain.GeocodingResult{Lat: 91, Lon: 10, PlaceName: "Nowhere"}},
		{"longitude out of range", domain.GeocodingResult{Lat: 10, Lon: -181, PlaceName: "Nowhere"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &countingGeocoder{result: tt.result}
			cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

			_, _ = cached.ForwardGeocode(context.Background(), "x", "")
			_, _ = cached.ForwardGeocode(context.Background(), "x", "")

			assert.Equal(t, 2, inner.forwardCalls)
		})
	}
}

func TestCachedGeocoder_NearbyCoordinatesShareEntry(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{PlaceName: "Quito"}}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ReverseGeocode(context.Background(), -0.18000001, -78.47)
	_, _ = cached.ReverseGeocode(context.Background(), -0.18, -78.46999999)

	assert.Equal(t, 1, inner.reverseCalls)
}

func TestCachedGeocoder_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{Lat: 1, Lon: 1, PlaceName: "P"}}
	cached := NewCachedGeocoder(inner, 2, observability.NewMetricsForTesting())
	ctx := context.Background()

	_, _ = cached.ForwardGeocode(ctx, "a", "")
	_, _ = cached.ForwardGeocode(ctx, "b", "")
	_, _ = cached.ForwardGeocode(ctx, "a", "")
	_, _ = cached.ForwardGeocode(ctx, "c", "") // evicts b
	require.Equal(t, 3, inner.forwardCalls)

	_, _ = cached.ForwardGeocode(ctx, "a", "")
	assert.Equal(t, 3, inner.forwardCalls, "a was used recently")
	_, _ = cached.ForwardGeocode(ctx, "b", "")
	assert.Equal(t, 4, inner.forwardCalls, "b should have been evicted")
}

func TestCoordKey(t *testing.T) {
	assert.Equal(t, "rev:0.0000,0.0000", coordKey(-0.00001, 0.00001))
	assert.Equal(t, "rev:-1.2800,36.8200", coordKey(-1.28, 36.82))
}

func TestNewCachedGeocoder_NonPositiveSize(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{Lat: 1, Lon: 1}}
	cached := NewCachedGeocoder(inner, 0, observability.NewMetricsForTesting())

	_, _ = cached.ForwardGeocode(context.Background(), "a", "")
	_, _ = cached.ForwardGeocode(context.Background(), "a", "")

	assert.Equal(t, 1, inner.forwardCalls)
}
