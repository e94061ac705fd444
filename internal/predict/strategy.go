// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package predict

import (
	"math"

	"github.com/stockpilot/stockpilot/internal/models"
)

// ResolverConfig holds quantity resolution parameters.
type ResolverConfig struct {
	// ColdThreshold and WarmThreshold are the venue state boundaries,
	// used to position a WARM venue on the blend ramp.
	ColdThreshold int
	WarmThreshold int
	// ColdDefaultQuantity is the last-resort suggestion for a product
	// with no history anywhere.
	ColdDefaultQuantity int
}

// Resolver turns a raw model output into a final suggested quantity
// according to the venue's state.
type Resolver struct {
	cfg ResolverConfig
}

// NewResolver creates a quantity resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	return &Resolver{cfg: cfg}
}

// Resolution carries the resolved quantity and which path produced it.
type Resolution struct {
	Quantity int
	// Blended is true when a WARM venue mixed model output with its
	// moving average.
	Blended bool
	// Fallback is true when a COLD venue used the peer median or the
	// configured default instead of the model.
	Fallback bool
}

// Resolve computes the final quantity.
//
//   - HOT: model output as-is.
//   - WARM: linear blend between the model and the venue's own moving
//     average; the model's share grows with sample count across the
//     WARM band.
//   - COLD: the product's cross-venue median when peers exist, else the
//     configured default. The model is not consulted.
//
// The result is floored at zero and rounded up to the product's minimum
// order increment.
func (r *Resolver) Resolve(state models.VenueState, sampleCount int, modelQty, movingAvg, peerMedian float64, increment int) Resolution {
	var res Resolution

	switch state {
	case models.VenueHot:
		res.Quantity = roundToIncrement(modelQty, increment)
	case models.VenueWarm:
		w := r.warmWeight(sampleCount)
		blended := w*modelQty + (1-w)*movingAvg
		res.Quantity = roundToIncrement(blended, increment)
		res.Blended = true
	default: // VenueCold
		qty := peerMedian
		if qty <= 0 {
			qty = float64(r.cfg.ColdDefaultQuantity)
		}
		res.Quantity = roundToIncrement(qty, increment)
		res.Fallback = true
	}
	return res
}

// warmWeight maps a WARM venue's sample count onto [0, 1]: at the cold
// boundary the model contributes nothing, at the warm boundary everything.
func (r *Resolver) warmWeight(sampleCount int) float64 {
	span := r.cfg.WarmThreshold - r.cfg.ColdThreshold
	if span <= 0 {
		return 1
	}
	w := float64(sampleCount-r.cfg.ColdThreshold) / float64(span)
	return math.Max(0, math.Min(1, w))
}

// roundToIncrement floors negative quantities at zero and rounds up to
// the next multiple of the order increment. A zero prediction stays zero;
// rounding never invents demand that is not there.
func roundToIncrement(qty float64, increment int) int {
	if qty <= 0 {
		return 0
	}
	if increment < 1 {
		increment = 1
	}
	units := int(math.Ceil(qty / float64(increment)))
	return units * increment
}

// ScaleToIncrement applies a demand multiplier to an already-resolved
// quantity and re-rounds to the order increment. Used for the heuristic
// adjustments on the fallback path.
func ScaleToIncrement(qty int, multiplier float64, increment int) int {
	return roundToIncrement(float64(qty)*multiplier, increment)
}

// PeerMedian computes the median of the per-venue mean quantities for a
// product across venues. Used for COLD venues, where the venue's own
// history is too thin to trust.
func PeerMedian(means []float64) float64 {
	if len(means) == 0 {
		return 0
	}
	sorted := make([]float64, len(means))
	copy(sorted, means)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
