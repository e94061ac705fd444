// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

// Package feature assembles the model input vector for one product at one
// venue on one target date.
//
// The schema is a fixed, ordered list of named dimensions covering lagged
// sales statistics, calendar structure, weather, nearby events, venue
// data-recency, and a monthly seasonality score. Training and prediction
// both build vectors through this package, and the schema hash recorded on
// each model version pins the exact dimension list a model was trained
// against; the registry refuses to serve a model against a different
// schema.
//
// Missing signals never abort a build: every dimension has a defined
// fallback value (for example days_since_last_sale defaults to 999 when
// the product has never sold at the venue). Only a missing product or
// venue identity produces a GapError.
package feature
