// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

// Package feedback closes the learning loop.
//
// The Collector records what actually sold against a recommendation. A
// submission is accepted at most once per recommendation; the duplicate
// gate lives in a single storage transaction, so a rejected second
// submission leaves no partial state. Accepted feedback also lands in the
// sales ledger as ground truth and invalidates the venue's cached
// profile.
//
// The Scheduler is a supervised background service cycling through
// ACCUMULATING, TRAINING, and VALIDATING. A cycle starts when pending
// feedback reaches the batch threshold or the max interval elapses with
// anything pending. The candidate model must beat the active model's
// recorded holdout error within the configured tolerance to activate;
// otherwise it is discarded and the active model keeps serving. TryLock
// keeps cycles single-flight: a trigger landing mid-cycle is skipped,
// not queued.
package feedback
