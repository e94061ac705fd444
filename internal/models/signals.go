// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package models

import (
	"strings"
	"time"
)

// SnapshotSource identifies where a weather snapshot came from.
type SnapshotSource string

const (
	// SourceLive marks a snapshot fetched from the external forecast API.
	SourceLive SnapshotSource = "live"

	// SourceHistoricalAverage marks a snapshot computed from prior
	// snapshots and sales history. Historical-average snapshots are
	// recomputed periodically as more data accumulates; live snapshots are
	// never mutated after creation.
	SourceHistoricalAverage SnapshotSource = "historical-average"
)

// WeatherSnapshot is the forecast (or fallback average) for a location on a
// market day. Snapshots are cached per (rounded location, date).
type WeatherSnapshot struct {
	// Latitude and Longitude are the venue coordinates, rounded to two
	// decimals for cache keying.
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Date is the market day the forecast applies to.
	Date time.Time `json:"date"`

	// TempF is the forecast temperature in Fahrenheit.
	TempF float64 `json:"temp_f"`

	// FeelsLikeF is the apparent temperature in Fahrenheit.
	FeelsLikeF float64 `json:"feels_like_f"`

	// Humidity is the relative humidity percentage (0-100).
	Humidity float64 `json:"humidity"`

	// PrecipProbability is the precipitation probability (0-1).
	PrecipProbability float64 `json:"precip_probability"`

	// Condition is the coarse condition bucket ("sunny", "cloudy",
	// "rainy", "snowy", "unknown").
	Condition string `json:"condition"`

	// Source records whether this is a live forecast or a fallback average.
	Source SnapshotSource `json:"source"`

	// FetchedAt is when the snapshot was created.
	FetchedAt time.Time `json:"fetched_at"`
}

// IsSunny reports whether the condition bucket counts as sunny.
func (w *WeatherSnapshot) IsSunny() bool {
	c := strings.ToLower(w.Condition)
	return c == "sunny" || c == "clear"
}

// IsRainy reports whether the condition bucket counts as rain.
func (w *WeatherSnapshot) IsRainy() bool {
	c := strings.ToLower(w.Condition)
	return c == "rainy" || c == "rain" || c == "drizzle" || c == "thunderstorm"
}

// EventSource identifies where an event record came from.
type EventSource string

const (
	// EventSourceExternal marks events discovered via the external events API.
	EventSourceExternal EventSource = "external"

	// EventSourceManual marks vendor-entered events. Manual entries are
	// authoritative over external entries for the same (venue, date).
	EventSourceManual EventSource = "manual"
)

// EventRecord is a local event near a venue on a market day.
type EventRecord struct {
	// ID is the event identifier.
	ID string `json:"id"`

	// VenueID is the venue this event is associated with.
	VenueID string `json:"venue_id"`

	// Date is the event day.
	Date time.Time `json:"date"`

	// Name is the event name.
	Name string `json:"name"`

	// ExpectedAttendance is the anticipated crowd size, 0 if unknown.
	ExpectedAttendance int `json:"expected_attendance"`

	// DistanceKM is the distance from the venue in kilometers.
	DistanceKM float64 `json:"distance_km"`

	// Source records whether the event is external or manually entered.
	Source EventSource `json:"source"`
}

// ResolveEvents applies the manual-over-external precedence rule: when a
// manual and an external event exist for the same (venue, date), only the
// manual entries survive. The input order is otherwise preserved.
func ResolveEvents(events []EventRecord) []EventRecord {
	hasManual := make(map[string]bool)
	for i := range events {
		if events[i].Source == EventSourceManual {
			hasManual[events[i].VenueID+"|"+DateKey(events[i].Date)] = true
		}
	}

	resolved := make([]EventRecord, 0, len(events))
	for i := range events {
		e := events[i]
		if e.Source == EventSourceExternal && hasManual[e.VenueID+"|"+DateKey(e.Date)] {
			continue
		}
		resolved = append(resolved, e)
	}
	return resolved
}
