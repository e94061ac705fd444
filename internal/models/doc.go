// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

// Package models defines the shared data structures for Stockpilot.
//
// The package contains the persisted domain entities (sales, weather and
// event signals, venue profiles, recommendations, feedback, model versions)
// plus the standardized API response envelope. It has no dependencies on
// other internal packages so that every layer can import it freely.
//
// # Entity Ownership
//
// SalesRecord and Product rows are owned by the ingestion and catalog
// collaborators; the recommendation core only reads them. Recommendation
// rows are insert-only: regenerating for an identical (vendor, venue, date)
// key creates a new row rather than mutating a prior one. FeedbackRecord is
// at-most-one per recommendation.
package models
