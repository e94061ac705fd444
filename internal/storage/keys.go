// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/stockpilot/stockpilot/internal/models"
)

// Key prefixes for BadgerDB storage. Keys are colon-delimited and sort
// lexicographically, so date components use the fixed-width YYYY-MM-DD
// layout to keep range scans in chronological order.
const (
	productKeyPrefix     = "product:"
	venueKeyPrefix       = "venue:"
	saleKeyPrefix        = "sale:"
	recKeyPrefix         = "rec:"
	recVenueKeyPrefix    = "rec_venue:"
	feedbackKeyPrefix    = "feedback:"
	feedbackSeqKeyPrefix = "feedback_seq:"
	profileKeyPrefix     = "profile:"
	modelMetaKeyPrefix   = "model_meta:"
	modelBlobKeyPrefix   = "model_blob:"
	weatherKeyPrefix     = "weather:"
	modelActiveKey       = "model_active"
	retrainLastRunKey    = "retrain_last_run"
)

func productKey(id string) []byte {
	return []byte(productKeyPrefix + id)
}

func venueKey(id string) []byte {
	return []byte(venueKeyPrefix + id)
}

// saleKey includes the sale date so per-venue scans arrive in
// chronological order, and a unique suffix so multiple sales of the same
// product on the same day never collide.
func saleKey(venueID string, date time.Time, productID, uniq string) []byte {
	return []byte(saleKeyPrefix + venueID + ":" + models.DateKey(date) + ":" + productID + ":" + uniq)
}

func saleVenuePrefix(venueID string) []byte {
	return []byte(saleKeyPrefix + venueID + ":")
}

func recKey(id string) []byte {
	return []byte(recKeyPrefix + id)
}

// recVenueKey is a secondary index for listing a venue's recommendations
// for a target date.
func recVenueKey(venueID string, date time.Time, id string) []byte {
	return []byte(recVenueKeyPrefix + venueID + ":" + models.DateKey(date) + ":" + id)
}

func recVenueDatePrefix(venueID string, date time.Time) []byte {
	return []byte(recVenueKeyPrefix + venueID + ":" + models.DateKey(date) + ":")
}

func feedbackKey(recommendationID string) []byte {
	return []byte(feedbackKeyPrefix + recommendationID)
}

// feedbackSeqKey orders pending feedback by submission time for the
// retraining accumulator. Nanosecond precision plus the feedback ID keeps
// concurrent submissions distinct.
func feedbackSeqKey(submittedAt time.Time, feedbackID string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", feedbackSeqKeyPrefix, submittedAt.UnixNano(), feedbackID))
}

func profileKey(venueID string) []byte {
	return []byte(profileKeyPrefix + venueID)
}

func modelMetaKey(id string) []byte {
	return []byte(modelMetaKeyPrefix + id)
}

func modelBlobKey(id string) []byte {
	return []byte(modelBlobKeyPrefix + id)
}

// weatherKey buckets coordinates to two decimal places (roughly 1km),
// so nearby venues share a cache entry for the same date.
func weatherKey(lat, lon float64, date time.Time) []byte {
	return []byte(fmt.Sprintf("%s%.2f:%.2f:%s", weatherKeyPrefix,
		roundCoord(lat), roundCoord(lon), models.DateKey(date)))
}

func roundCoord(v float64) float64 {
	return math.Round(v*100) / 100
}
