// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package models

import (
	"time"
)

// VenueState classifies a venue's data sufficiency. The state gates both
// the prediction strategy and the confidence tier.
type VenueState int

const (
	// VenueCold indicates too little history to trust the trained model.
	VenueCold VenueState = iota
	// VenueWarm indicates enough history to use the model blended with a
	// moving-average fallback.
	VenueWarm
	// VenueHot indicates enough history to score with the model directly.
	VenueHot
)

// String returns a human-readable state name.
func (s VenueState) String() string {
	switch s {
	case VenueCold:
		return "cold"
	case VenueWarm:
		return "warm"
	case VenueHot:
		return "hot"
	default:
		return "unknown"
	}
}

// ProductStats holds per-product aggregates within a venue profile.
type ProductStats struct {
	// SampleCount is the number of product-days observed.
	SampleCount int `json:"sample_count"`

	// MeanQuantity is the mean daily quantity sold.
	MeanQuantity float64 `json:"mean_quantity"`

	// MaxQuantity is the maximum daily quantity sold.
	MaxQuantity int `json:"max_quantity"`

	// Variance is the sales quantity variance (population).
	Variance float64 `json:"variance"`

	// LastSaleDate is the most recent sale day for this product.
	LastSaleDate time.Time `json:"last_sale_date"`
}

// VenueProfile is a derived aggregate of a venue's sales history. It is
// recomputed whenever new sales or feedback land for the venue, never
// mutated directly by users.
type VenueProfile struct {
	// VenueID is the venue this profile describes.
	VenueID string `json:"venue_id"`

	// SampleCount is the total number of product-day observations.
	SampleCount int `json:"sample_count"`

	// FirstSampleDate is the earliest observed sale day.
	FirstSampleDate time.Time `json:"first_sample_date"`

	// LastSampleDate is the latest observed sale day.
	LastSampleDate time.Time `json:"last_sample_date"`

	// ByProduct holds per-product aggregates keyed by product ID.
	ByProduct map[string]*ProductStats `json:"by_product"`

	// ComputedAt is when this profile was derived.
	ComputedAt time.Time `json:"computed_at"`
}

// DataRecencyDays returns the number of whole days between the last sample
// and the given reference date. Venues with no samples report a very large
// recency so that staleness rules treat them as cold.
func (p *VenueProfile) DataRecencyDays(ref time.Time) int {
	if p.SampleCount == 0 || p.LastSampleDate.IsZero() {
		return 1 << 20
	}
	d := int(TruncateToDay(ref).Sub(TruncateToDay(p.LastSampleDate)).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// DaysSinceFirstSample returns the age of the venue's history in days,
// or 0 when the venue has no samples.
func (p *VenueProfile) DaysSinceFirstSample(ref time.Time) int {
	if p.SampleCount == 0 || p.FirstSampleDate.IsZero() {
		return 0
	}
	d := int(TruncateToDay(ref).Sub(TruncateToDay(p.FirstSampleDate)).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
