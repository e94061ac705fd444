// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

// Package storage provides BadgerDB-backed repositories for all durable
// state: the product and venue catalog, sales history, recommendations,
// feedback, venue profiles, model versions, and the weather cache.
//
// Every repository shares a single *badger.DB handle opened by Open.
// Keys are namespaced by prefix (see keys.go) and values are JSON-encoded
// with goccy/go-json, except model blobs which are stored as raw bytes.
//
// Write invariants enforced here rather than by callers:
//   - Recommendations are insert-only; Insert rejects duplicate IDs.
//   - At most one feedback record exists per recommendation; a second
//     submission fails with ErrFeedbackExists inside a single transaction,
//     so no partial state is ever visible.
//   - Model version records are immutable once written; only the active
//     pointer moves.
package storage
