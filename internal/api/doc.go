// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

// Package api provides the HTTP surface of the recommendation engine using
// the chi router: recommendation generation, feedback submission, listing,
// retraining status, health, and Prometheus metrics. All endpoints respond
// with the models.APIResponse envelope.
package api
