// Package mapbox resolves place names and coordinates with the Mapbox
// Geocoding API and supplies Mapbox raster tiles for the weather map.
package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/weather-eda/internal/domain"
	"github.com/couchcryptid/weather-eda/internal/observability"
)

const (
	defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"
	tileTemplate   = "https://api.mapbox.com/styles/v1/mapbox/streets-v12/tiles/{z}/{x}/{y}?access_token=%s"

	// minRelevance drops partial matches, such as a street named after a city.
	minRelevance = 0.5

	// TileAttribution credits Mapbox and OpenStreetMap on tiled maps.
	TileAttribution = `© <a href="https://www.mapbox.com/about/maps/">Mapbox</a> © <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a>`
)

var errEmptyLocation = errors.New("forward geocode: empty location name")

// TileURL returns the Leaflet tile URL template for the Mapbox streets style.
func TileURL(token string) string {
	return fmt.Sprintf(tileTemplate, url.QueryEscape(token))
}

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// ForwardGeocode resolves a weather export's location_name, narrowed by its
// country when present, to the coordinates of the best matching place.
func (c *Client) ForwardGeocode(ctx context.Context, name, country string) (domain.GeocodingResult, error) {
	query := strings.Join(strings.Fields(name), " ")
	if query == "" {
		return domain.GeocodingResult{}, errEmptyLocation
	}
	if country = strings.TrimSpace(country); country != "" {
		query += ", " + country
	}
	return c.search(ctx, domain.GeocodeForward, url.PathEscape(query))
}

// ReverseGeocode names the place nearest to a station's coordinates.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	if math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return domain.GeocodingResult{}, fmt.Errorf("reverse geocode: coordinate %v,%v out of range", lat, lon)
	}
	// Mapbox uses lon,lat order.
	return c.search(ctx, domain.GeocodeReverse, fmt.Sprintf("%.4f,%.4f", lon, lat))
}

// search queries the places endpoint for a single city-level feature.
func (c *Client) search(ctx context.Context, method, path string) (domain.GeocodingResult, error) {
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"place,locality"},
	}
	fullURL := fmt.Sprintf("%s/%s.json?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("%s geocode request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.GeocodingResult{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var places response
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("decode response: %w", err)
	}

	if len(places.Features) == 0 || len(places.Features[0].Center) != 2 {
		c.metrics.GeocodeRequests.WithLabelValues(method, "empty").Inc()
		c.logger.Debug("mapbox returned no place", "method", method)
		return domain.GeocodingResult{}, nil
	}
	f := places.Features[0]
	if f.Relevance < minRelevance {
		c.metrics.GeocodeRequests.WithLabelValues(method, "low_relevance").Inc()
		c.logger.Debug("mapbox match below relevance floor", "method", method, "place", f.PlaceName, "relevance", f.Relevance)
		return domain.GeocodingResult{}, nil
	}
	c.metrics.GeocodeRequests.WithLabelValues(method, "success").Inc()

	return domain.GeocodingResult{
		Lat:              f.Center[1],
		Lon:              f.Center[0],
		FormattedAddress: f.PlaceName,
		PlaceName:        f.Text,
		Confidence:       f.Relevance,
	}, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
