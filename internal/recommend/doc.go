// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

// Package recommend orchestrates recommendation generation.
//
// A batch run gathers the venue profile, weather, and events once, then
// walks the vendor's active products in trailing-revenue order. Each
// product flows through feature assembly, prediction, venue-state
// quantity resolution, demand-shift multipliers, and confidence scoring,
// and the surviving recommendations are persisted in one insert-only
// write. A failure on one product is recorded as a per-product error and
// never fails the batch; a missing or unloadable model degrades the whole
// batch to cold-start behavior instead of erroring.
package recommend
