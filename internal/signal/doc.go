// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

// Package signal provides external signal adapters for weather forecasts
// and nearby public events.
//
// Live adapters call upstream HTTP APIs behind a client-side rate limiter
// and a circuit breaker. The Resilient decorators wrap a live adapter with
// a historical fallback: any upstream failure (timeout, HTTP error, open
// breaker) degrades to climatological averages rather than failing the
// recommendation run. Degraded weather is marked with
// models.SourceHistoricalAverage so downstream confidence scoring and
// explanation tags can account for it.
package signal
