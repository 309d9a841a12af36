// Package domain models the tabular weather dataset and the pure functions that
// load, clean, and enrich it before analysis.
//
// # Data Source
//
// The input is a flat CSV in the layout of the public "Global Weather
// Repository" export: one row per location per observation, with a header row.
// Columns the analysis depends on:
//
//	location_name        city or station name           ("Kabul")
//	country              country name, used by geocoding ("Afghanistan")
//	last_updated         local observation time          ("2024-05-16 13:15")
//	temperature_celsius  air temperature in °C           (26.6)
//	humidity             relative humidity in %          (24)
//	pressure             barometric pressure             (1012.0)
//	latitude, longitude  WGS-84 coordinates              (34.52, 69.18)
//
// Every other column is carried through untouched and takes part in the
// correlation matrix when numeric.
//
// # Missing Values
//
// Empty cells and the tokens NA, NaN, N/A, nan, null and <nil> load as missing.
// Numeric cells that cannot be parsed load as missing in numeric columns; a
// single unparsable value in temperature_celsius turns the whole column into
// text, which [Clean] coerces back to numbers.
//
// # Cleaning Order
//
// [Clean] always runs the same sequence:
//
//  1. trim and lower-case column names
//  2. coerce temperature_celsius to numeric (unparsable -> missing)
//  3. drop every row holding a missing value in any column
//  4. parse last_updated (fatal on failure) and store it as RFC 3339 UTC
//  5. compute Q1, Q3 and IQR of temperature_celsius (linear interpolation)
//  6. keep rows within [Q1 - 1.5*IQR, Q3 + 1.5*IQR]
//
// The bounds from step 5 travel with the cleaned [Dataset]. Cleaning it again
// reuses them, so a second pass drops nothing.
//
// # Time Handling
//
// Timestamps without a zone are interpreted as UTC. The derived timestamp
// column holds Unix seconds, so it orders rows exactly as last_updated does
// at one-second resolution.
package domain
