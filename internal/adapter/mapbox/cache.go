package mapbox

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/couchcryptid/weather-eda/internal/domain"
	"github.com/couchcryptid/weather-eda/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// coordPrecision rounds reverse lookups to about 11 m, so readings from one
// station share a cache entry.
const coordPrecision = 1e4

// CachedGeocoder memoizes location lookups for one run. Weather exports repeat
// the same handful of cities across thousands of rows.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lru.Cache[string, domain.GeocodingResult]
	metrics *observability.Metrics
}

// NewCachedGeocoder wraps inner with an LRU of at most maxEntries locations.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	// lru.New only rejects a non-positive size.
	cache, _ := lru.New[string, domain.GeocodingResult](max(maxEntries, 1))
	return &CachedGeocoder{inner: inner, cache: cache, metrics: metrics}
}

func (c *CachedGeocoder) ForwardGeocode(ctx context.Context, name, country string) (domain.GeocodingResult, error) {
	key := placeKey(name, country)
	if result, ok := c.lookup(domain.GeocodeForward, key); ok {
		return result, nil
	}
	result, err := c.inner.ForwardGeocode(ctx, name, country)
	if err != nil {
		return result, err
	}
	// Misses stay uncached so a later row can retry them.
	if usableCoordinates(result) {
		c.cache.Add(key, result)
	}
	return result, nil
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	key := coordKey(lat, lon)
	if result, ok := c.lookup(domain.GeocodeReverse, key); ok {
		return result, nil
	}
	result, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return result, err
	}
	if result.PlaceName != "" {
		c.cache.Add(key, result)
	}
	return result, nil
}

func (c *CachedGeocoder) lookup(method, key string) (domain.GeocodingResult, bool) {
	result, ok := c.cache.Get(key)
	outcome := "miss"
	if ok {
		outcome = "hit"
	}
	c.metrics.GeocodeCache.WithLabelValues(method, outcome).Inc()
	return result, ok
}

// placeKey folds case and whitespace so "Buenos  Aires" and "buenos aires"
// share an entry.
func placeKey(name, country string) string {
	fold := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	return "fwd:" + fold(name) + "|" + fold(country)
}

func coordKey(lat, lon float64) string {
	round := func(v float64) float64 {
		r := math.Round(v*coordPrecision) / coordPrecision
		if r == 0 {
			return 0 // fold -0
		}
		return r
	}
	return fmt.Sprintf("rev:%.4f,%.4f", round(lat), round(lon))
}

// usableCoordinates rejects the null island placeholder and out-of-range
// points, which the enrichment treats as a failed lookup.
func usableCoordinates(r domain.GeocodingResult) bool {
	if r.Lat == 0 && r.Lon == 0 {
		return false
	}
	return math.Abs(r.Lat) <= 90 && math.Abs(r.Lon) <= 180
}
