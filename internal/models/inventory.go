// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package models

import (
	"time"
)

// DateLayout is the canonical day-granular date format used for sales,
// recommendations, and cache keys. Market days have no intra-day resolution.
const DateLayout = "2006-01-02"

// DateKey returns the canonical day key for a timestamp.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// TruncateToDay normalizes a timestamp to UTC midnight.
func TruncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Product is a catalog item offered by a vendor.
// Catalog rows are owned by the catalog collaborator and read-only here.
type Product struct {
	// ID is the product identifier.
	ID string `json:"id"`

	// VendorID is the owning vendor.
	VendorID string `json:"vendor_id"`

	// Name is the display name (e.g., "sourdough loaf").
	Name string `json:"name"`

	// UnitPrice is the sale price in the vendor's currency.
	UnitPrice float64 `json:"unit_price"`

	// MinOrderIncrement is the smallest batch the vendor can produce.
	// Recommended quantities are rounded to a multiple of this value.
	// Zero or negative is treated as 1.
	MinOrderIncrement int `json:"min_order_increment"`

	// Active indicates the product is currently offered.
	Active bool `json:"active"`
}

// Increment returns the effective minimum order increment, never below 1.
func (p *Product) Increment() int {
	if p.MinOrderIncrement < 1 {
		return 1
	}
	return p.MinOrderIncrement
}

// Venue is a market or location a vendor sells at.
type Venue struct {
	// ID is the venue identifier.
	ID string `json:"id"`

	// VendorID is the owning vendor.
	VendorID string `json:"vendor_id"`

	// Name is the market or venue name.
	Name string `json:"name"`

	// Latitude and Longitude locate the venue for weather and event lookup.
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// TypicalAttendance is the vendor-estimated customer count, 0 if unknown.
	TypicalAttendance int `json:"typical_attendance"`

	// Active indicates the vendor still attends this venue.
	Active bool `json:"active"`
}

// SalesRecord is one day's sales of a product at a venue.
// Records are immutable once ingested; the ingestion collaborator owns them.
type SalesRecord struct {
	// ProductID identifies the product sold.
	ProductID string `json:"product_id"`

	// VenueID identifies the venue the sale occurred at.
	VenueID string `json:"venue_id"`

	// Date is the market day, normalized to UTC midnight.
	Date time.Time `json:"date"`

	// QuantitySold is the units sold on Date.
	QuantitySold int `json:"quantity_sold"`

	// UnitPrice is the price per unit at time of sale.
	UnitPrice float64 `json:"unit_price"`
}

// Revenue returns the gross revenue of the record.
func (s *SalesRecord) Revenue() float64 {
	return float64(s.QuantitySold) * s.UnitPrice
}
