// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package signal

import (
	"context"
	"errors"
	"time"

	"github.com/stockpilot/stockpilot/internal/models"
)

// ErrUpstream indicates the upstream signal API returned a non-success
// response.
var ErrUpstream = errors.New("upstream signal API error")

// ErrMissingAPIKey indicates the live adapter was configured without an
// API key. The adapter is permanently unavailable and every lookup is
// served by the fallback.
var ErrMissingAPIKey = errors.New("signal API key not configured")

// WeatherProvider returns a forecast snapshot for a location and date.
type WeatherProvider interface {
	Forecast(ctx context.Context, lat, lon float64, date time.Time) (*models.WeatherSnapshot, error)
}

// EventProvider returns public events near a location on a date.
type EventProvider interface {
	EventsNear(ctx context.Context, lat, lon, radiusKM float64, date time.Time) ([]*models.EventRecord, error)
}
