// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

// Package predict implements the demand model and the version registry.
//
// The model is an ensemble of ridge regressors, each fit on a bootstrap
// resample of the training set with closed-form normal equations. The
// ensemble mean is the point prediction; the coefficient of variation
// across members is the uncertainty signal consumed by confidence
// scoring.
//
// Trained models are serialized with gob+gzip, checksummed, and stored as
// immutable versions. The registry gates loading on the feature schema
// hash recorded at training time and snapshots the active version once
// per recommendation batch, so a mid-batch activation never mixes model
// versions within a batch.
//
// Quantity resolution depends on the venue state: HOT venues take the
// model output directly, WARM venues blend linearly toward the venue's
// own moving average as sample count falls, and COLD venues skip the
// model entirely in favor of the cross-venue median (or a configured
// default when the product has no history anywhere).
package predict
