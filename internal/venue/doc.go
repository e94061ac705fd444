// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

// Package venue maintains per-venue sales profiles and classifies venues
// by data richness.
//
// A profile aggregates a venue's full sales history into per-product
// statistics (mean, max, variance, last sale date) using Welford's online
// algorithm. Profiles are cached in memory with a TTL and persisted so a
// restart does not force a recompute before the first recommendation.
//
// Classification is by total sample count: COLD venues have too little
// history for the model, WARM venues get blended predictions, HOT venues
// get direct model output. Staleness (days since the last sample) is
// tracked separately and caps confidence downstream regardless of state.
package venue
