// Package leaflet renders the weather map as a standalone Leaflet HTML page
// and a GeoJSON companion file.
package leaflet

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/weather-eda/internal/adapter/mapbox"
	"github.com/couchcryptid/weather-eda/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Output file names.
const (
	HTMLFile    = "weather_map.html"
	GeoJSONFile = "weather_map.geojson"
)

const (
	osmTileURL     = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	osmAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`
	defaultZoom    = 3
)

var page = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Weather Map</title>
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map("map").setView([{{.Center.Lat}}, {{.Center.Lon}}], {{.Zoom}});
L.tileLayer({{.TileURL}}, {attribution: {{.Attribution}}, maxZoom: 19}).addTo(map);
{{range .Markers}}L.marker([{{.Lat}}, {{.Lon}}]).addTo(map).bindPopup({{.Popup}});
{{end}}</script>
</body>
</html>
`))

type point struct {
	Lat float64
	Lon float64
}

type pageMarker struct {
	point
	Popup string
}

type pageData struct {
	Center      point
	Zoom        int
	TileURL     string
	Attribution string
	Markers     []pageMarker
}

// Renderer writes map files into a directory.
type Renderer struct {
	dir         string
	tileURL     string
	attribution string
}

// NewRenderer returns a Renderer using OpenStreetMap tiles, or Mapbox tiles
// when mapboxToken is set.
func NewRenderer(dir, mapboxToken string) *Renderer {
	r := &Renderer{dir: dir, tileURL: osmTileURL, attribution: osmAttribution}
	if mapboxToken != "" {
		r.tileURL = mapbox.TileURL(mapboxToken)
		r.attribution = mapbox.TileAttribution
	}
	return r
}

// Render writes the HTML map and the GeoJSON feature collection and returns
// their paths.
func (r *Renderer) Render(markers []domain.Marker) ([]string, error) {
	if len(markers) == 0 {
		return nil, fmt.Errorf("weather map: no markers")
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("weather map: create output dir: %w", err)
	}

	htmlPath := filepath.Join(r.dir, HTMLFile)
	if err := r.writeHTML(htmlPath, markers); err != nil {
		return nil, err
	}
	geoPath := filepath.Join(r.dir, GeoJSONFile)
	if err := writeGeoJSON(geoPath, markers); err != nil {
		return nil, err
	}
	return []string{htmlPath, geoPath}, nil
}

func (r *Renderer) writeHTML(path string, markers []domain.Marker) error {
	center, _ := planar.CentroidArea(multiPoint(markers))
	data := pageData{
		Center:      point{Lat: center.Lat(), Lon: center.Lon()},
		Zoom:        defaultZoom,
		TileURL:     r.tileURL,
		Attribution: r.attribution,
		Markers:     make([]pageMarker, len(markers)),
	}
	for i, m := range markers {
		data.Markers[i] = pageMarker{point: point{Lat: m.Lat, Lon: m.Lon}, Popup: popup(m)}
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return fmt.Errorf("weather map: render html: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("weather map: write html: %w", err)
	}
	return nil
}

func writeGeoJSON(path string, markers []domain.Marker) error {
	mp := multiPoint(markers)
	fc := geojson.NewFeatureCollection()
	for i, m := range markers {
		f := geojson.NewFeature(mp[i])
		f.Properties["temperature_celsius"] = m.Temperature
		if m.Label != "" {
			f.Properties["location_name"] = m.Label
		}
		fc.Append(f)
	}
	fc.BBox = geojson.NewBBox(mp.Bound())

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("weather map: encode geojson: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("weather map: write geojson: %w", err)
	}
	return nil
}

// multiPoint converts markers to lon/lat points.
func multiPoint(markers []domain.Marker) orb.MultiPoint {
	mp := make(orb.MultiPoint, len(markers))
	for i, m := range markers {
		mp[i] = orb.Point{m.Lon, m.Lat}
	}
	return mp
}

func popup(m domain.Marker) string {
	text := "Temp: " + strconv.FormatFloat(m.Temperature, 'f', -1, 64)
	if m.Label != "" {
		return "<b>" + html.EscapeString(m.Label) + "</b><br>" + text
	}
	return text
}
