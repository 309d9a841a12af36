package domain

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

// Geocoding modes reported in GeocodeSummary.
const (
	GeocodeNone    = "none"
	GeocodeForward = "forward"
	GeocodeReverse = "reverse"
)

// GeocodeSummary reports what EnrichWithGeocoding did.
type GeocodeSummary struct {
	Mode     string `json:"mode"`
	Lookups  int    `json:"lookups"`
	Resolved int    `json:"resolved"`
	Failed   int    `json:"failed"`
}

// EnrichWithGeocoding fills in the location columns the dataset lacks.
// Without latitude/longitude but with location_name, each distinct
// (location_name, country) pair is forward geocoded. With coordinates but no
// location_name, each distinct coordinate is reverse geocoded.
//
// It runs on the cleaned dataset, so a failed lookup never removes a row: the
// row keeps a missing coordinate (or an empty name) and only location-based
// output skips it. If every lookup fails the dataset is returned unchanged. A
// nil geocoder is a no-op.
func EnrichWithGeocoding(ctx context.Context, ds Dataset, geocoder Geocoder, logger *slog.Logger) (Dataset, GeocodeSummary) {
	summary := GeocodeSummary{Mode: GeocodeNone}
	if geocoder == nil {
		return ds, summary
	}

	hasCoords := ds.HasColumn(ColLatitude) && ds.HasColumn(ColLongitude)
	hasName := ds.HasColumn(ColLocationName)

	switch {
	case !hasCoords && hasName:
		summary.Mode = GeocodeForward
		return forwardGeocode(ctx, ds, geocoder, logger, summary)
	case hasCoords && !hasName:
		summary.Mode = GeocodeReverse
		return reverseGeocode(ctx, ds, geocoder, logger, summary)
	default:
		return ds, summary
	}
}

func forwardGeocode(ctx context.Context, ds Dataset, geocoder Geocoder, logger *slog.Logger, summary GeocodeSummary) (Dataset, GeocodeSummary) {
	names, _ := ds.Strings(ColLocationName)
	nameMissing := ds.Missing(ColLocationName)
	var countries []string
	if ds.HasColumn(ColCountry) {
		countries, _ = ds.Strings(ColCountry)
	}

	type place struct{ name, country string }
	resolved := make(map[place]*GeocodingResult)

	lats := make([]float64, ds.Len())
	lons := make([]float64, ds.Len())
	for i := range names {
		lats[i], lons[i] = math.NaN(), math.NaN()
		if nameMissing[i] {
			continue
		}
		key := place{name: names[i]}
		if countries != nil {
			key.country = countries[i]
		}

		result, seen := resolved[key]
		if !seen {
			summary.Lookups++
			r, err := geocoder.ForwardGeocode(ctx, key.name, key.country)
			switch {
			case err != nil:
				logger.Warn("forward geocoding failed",
					"location", key.name,
					"country", key.country,
					"error", err,
				)
				summary.Failed++
			case r.Lat == 0 && r.Lon == 0:
				logger.Debug("forward geocoding found no match", "location", key.name, "country", key.country)
				summary.Failed++
			default:
				result = &r
				summary.Resolved++
			}
			resolved[key] = result
		}
		if result != nil {
			lats[i], lons[i] = result.Lat, result.Lon
		}
	}

	if summary.Resolved == 0 {
		return ds, summary
	}
	return ds.WithFloats(ColLatitude, lats).WithFloats(ColLongitude, lons), summary
}

func reverseGeocode(ctx context.Context, ds Dataset, geocoder Geocoder, logger *slog.Logger, summary GeocodeSummary) (Dataset, GeocodeSummary) {
	lats, _ := ds.Floats(ColLatitude)
	lons, _ := ds.Floats(ColLongitude)

	resolved := make(map[string]string)
	names := make([]string, ds.Len())
	for i := range lats {
		if math.IsNaN(lats[i]) || math.IsNaN(lons[i]) {
			continue
		}
		key := fmt.Sprintf("%.6f,%.6f", lats[i], lons[i])

		name, seen := resolved[key]
		if !seen {
			summary.Lookups++
			r, err := geocoder.ReverseGeocode(ctx, lats[i], lons[i])
			switch {
			case err != nil:
				logger.Warn("reverse geocoding failed",
					"lat", lats[i],
					"lon", lons[i],
					"error", err,
				)
				summary.Failed++
			case r.PlaceName == "":
				summary.Failed++
			default:
				name = r.PlaceName
				summary.Resolved++
			}
			resolved[key] = name
		}
		names[i] = name
	}

	if summary.Resolved == 0 {
		return ds, summary
	}
	return ds.WithStrings(ColLocationName, names), summary
}
