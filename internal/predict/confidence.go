// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package predict

import (
	"github.com/stockpilot/stockpilot/internal/models"
)

// ConfidenceInput gathers everything the estimator looks at for one
// recommendation.
type ConfidenceInput struct {
	State models.VenueState
	// Stale is true when the venue's data recency exceeds the staleness
	// window.
	Stale bool
	// Uncertainty is the ensemble coefficient of variation.
	Uncertainty float64
	// Degraded is true when no model served (missing active version or
	// schema mismatch).
	Degraded bool
}

// Estimator assigns confidence tiers with a fixed rule order. Staleness
// and degradation dominate: a HOT venue with months-old data never reports
// HIGH no matter how tight the ensemble agreement is.
type Estimator struct {
	// UncertaintyCutoff is the coefficient of variation above which a
	// prediction drops to MEDIUM.
	UncertaintyCutoff float64
}

// NewEstimator creates a confidence estimator.
func NewEstimator(uncertaintyCutoff float64) *Estimator {
	return &Estimator{UncertaintyCutoff: uncertaintyCutoff}
}

// Tier applies the rules in order; the first match wins.
func (e *Estimator) Tier(in ConfidenceInput) models.ConfidenceTier {
	switch {
	case in.Degraded:
		return models.ConfidenceLow
	case in.State == models.VenueCold:
		return models.ConfidenceLow
	case in.Stale:
		return models.ConfidenceLow
	case in.State == models.VenueWarm:
		return models.ConfidenceMedium
	case in.Uncertainty > e.UncertaintyCutoff:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceHigh
	}
}
