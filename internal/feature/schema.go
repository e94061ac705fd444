// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package feature

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Dimension names, in vector order. Appending a dimension or renaming one
// changes the schema hash and invalidates previously trained models.
var dimensionNames = []string{
	// Lagged sales statistics for this product at this venue
	"lag_mean_7d",
	"lag_mean_14d",
	"lag_mean_30d",
	"same_weekday_mean",
	"days_since_last_sale",
	"product_mean_all",
	"product_max_all",
	"product_variance",

	// Venue data-recency block
	"venue_sample_count",
	"venue_recency_days",
	"venue_tenure_days",
	"venue_typical_attendance",

	// Calendar block
	"dow_sin",
	"dow_cos",
	"month_sin",
	"month_cos",
	"is_weekend",
	"is_us_holiday",
	"day_of_month",
	"week_of_year",

	// Weather block
	"temp_f",
	"feels_like_f",
	"humidity",
	"precip_probability",
	"is_sunny",
	"is_rainy",
	"weather_fallback",

	// Event block
	"event_count",
	"max_event_attendance",
	"has_large_event",
	"min_event_distance_km",
	"manual_event_count",

	// Seasonality block
	"seasonality_z",
	"is_seasonal_product",

	// Product block
	"unit_price",
}

// VectorSize is the number of dimensions in a feature vector.
var VectorSize = len(dimensionNames)

// DimensionNames returns a copy of the ordered dimension names.
func DimensionNames() []string {
	out := make([]string, len(dimensionNames))
	copy(out, dimensionNames)
	return out
}

// SchemaHash returns the hex SHA-256 of the ordered dimension list. It is
// recorded on every model version and checked before the model serves.
func SchemaHash() string {
	sum := sha256.Sum256([]byte(strings.Join(dimensionNames, "\n")))
	return hex.EncodeToString(sum[:])
}

// Index returns the vector position of a named dimension, or -1 if the
// name is unknown. Used by tests and diagnostics, not the hot path.
func Index(name string) int {
	for i, n := range dimensionNames {
		if n == name {
			return i
		}
	}
	return -1
}
