// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package models

import (
	"time"
)

// ConfidenceTier is the discrete confidence label attached to each
// recommendation.
type ConfidenceTier int

const (
	// ConfidenceLow indicates a cold or stale venue, or a missing model.
	ConfidenceLow ConfidenceTier = iota
	// ConfidenceMedium indicates a warm venue or elevated model uncertainty.
	ConfidenceMedium
	// ConfidenceHigh indicates a hot venue with fresh data and a confident
	// model.
	ConfidenceHigh
)

// String returns a human-readable tier name.
func (t ConfidenceTier) String() string {
	switch t {
	case ConfidenceLow:
		return "low"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceHigh:
		return "high"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the tier as its string name.
func (t ConfidenceTier) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON decodes the tier from its string name.
func (t *ConfidenceTier) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"medium"`:
		*t = ConfidenceMedium
	case `"high"`:
		*t = ConfidenceHigh
	default:
		*t = ConfidenceLow
	}
	return nil
}

// Explanation tags attached to recommendations. Tags communicate which
// signals materially influenced the estimate and whether fallbacks were
// involved.
const (
	// TagWeatherAdjusted marks estimates materially moved by weather.
	TagWeatherAdjusted = "weather-adjusted"

	// TagEventBoosted marks estimates lifted by a nearby event.
	TagEventBoosted = "event-boosted"

	// TagLowDataFallback marks cold-venue conservative estimates.
	TagLowDataFallback = "low-data-fallback"

	// TagHistoricalWeather marks degraded weather (fallback adapter served).
	TagHistoricalWeather = "historical-weather"

	// TagStaleVenue marks venues whose last sample exceeds the staleness
	// threshold.
	TagStaleVenue = "stale-venue"

	// TagBlendedAverage marks warm-venue model/moving-average blends.
	TagBlendedAverage = "blended-average"

	// TagDegradedModel marks predictions made without a loadable active
	// model.
	TagDegradedModel = "degraded-model"

	// TagSeasonalProduct marks products in a detected seasonal peak month.
	TagSeasonalProduct = "seasonal-product"
)

// Recommendation is one per-product quantity suggestion. Rows are
// insert-only: regeneration creates a new row with a new ID.
type Recommendation struct {
	// ID is the unique recommendation identifier.
	ID string `json:"id"`

	// VendorID, VenueID, ProductID, Date form the request key.
	VendorID  string    `json:"vendor_id"`
	VenueID   string    `json:"venue_id"`
	ProductID string    `json:"product_id"`
	Date      time.Time `json:"date"`

	// RecommendedQuantity is the suggested quantity, always >= 0 and a
	// multiple of the product's minimum order increment.
	RecommendedQuantity int `json:"recommended_quantity"`

	// ConfidenceTier is the discrete confidence label.
	ConfidenceTier ConfidenceTier `json:"confidence_tier"`

	// ModelVersionID identifies the model version that produced the
	// estimate, empty when the conservative fallback served.
	ModelVersionID string `json:"model_version_id,omitempty"`

	// ExplanationTags lists the signals that shaped the estimate.
	ExplanationTags []string `json:"explanation_tags"`

	// CreatedAt is when the recommendation was generated.
	CreatedAt time.Time `json:"created_at"`
}

// HasTag reports whether the recommendation carries the given tag.
func (r *Recommendation) HasTag(tag string) bool {
	for _, t := range r.ExplanationTags {
		if t == tag {
			return true
		}
	}
	return false
}

// FeedbackRecord captures the actual outcome for a recommendation.
// At most one feedback exists per recommendation.
type FeedbackRecord struct {
	// ID is the feedback identifier.
	ID string `json:"id"`

	// RecommendationID links back to the recommendation.
	RecommendationID string `json:"recommendation_id"`

	// ActualQuantity is the quantity the vendor actually sold.
	ActualQuantity int `json:"actual_quantity"`

	// SubmittedAt is when the vendor submitted the outcome.
	SubmittedAt time.Time `json:"submitted_at"`
}

// ModelVersion is the metadata for one immutable trained parameter set.
// Exactly one version is active at a time; activation is an atomic pointer
// swap performed by the model registry.
type ModelVersion struct {
	// ID is the version identifier.
	ID string `json:"id"`

	// TrainedAt is when training completed.
	TrainedAt time.Time `json:"trained_at"`

	// TrainingRowCount is the number of rows the version was fit on.
	TrainingRowCount int `json:"training_row_count"`

	// FeatureSchemaHash is the hash of the feature layout the version was
	// trained against. A version can only be activated while this matches
	// the feature store's current schema.
	FeatureSchemaHash string `json:"feature_schema_hash"`

	// HoldoutMAE is the mean absolute error on the held-out validation
	// slice measured at training time.
	HoldoutMAE float64 `json:"holdout_mae"`

	// Checksum is the SHA-256 checksum of the serialized parameters.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed parameter blob size.
	SizeBytes int64 `json:"size_bytes"`
}
