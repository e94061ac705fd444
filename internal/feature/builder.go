// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package feature

import (
	"fmt"
	"math"
	"time"

	"github.com/stockpilot/stockpilot/internal/models"
)

const (
	// DefaultDaysSinceLastSale is used when the product has never sold
	// at the venue.
	DefaultDaysSinceLastSale = 999

	// LargeEventAttendance is the expected-attendance floor for an event
	// to count as large.
	LargeEventAttendance = 1000

	// SeasonalityZThreshold marks a product as seasonal when the target
	// month's demand sits this many standard deviations above its norm.
	SeasonalityZThreshold = 1.5

	// minSeasonalityMonths is the minimum number of distinct calendar
	// months of history before a seasonality score is computed.
	minSeasonalityMonths = 3
)

// GapError reports that a mandatory identity input was missing. Signal
// gaps (weather, events, thin history) never produce one; they fall back
// to default dimension values instead.
type GapError struct {
	Field string
}

func (e *GapError) Error() string {
	return fmt.Sprintf("feature gap: missing %s", e.Field)
}

// Inputs carries everything the builder needs for one vector.
type Inputs struct {
	Product *models.Product
	Venue   *models.Venue
	Profile *models.VenueProfile

	// Weather may be nil; the weather block then uses fallback values.
	Weather *models.WeatherSnapshot

	// Events is the resolved (manual-over-external) event list for the
	// venue and date.
	Events []*models.EventRecord

	// History holds this product's sales at this venue, any order.
	History []*models.SalesRecord

	// Date is the target date being predicted.
	Date time.Time
}

// Build assembles the feature vector for the inputs. The returned slice
// always has VectorSize entries in schema order.
func Build(in Inputs) ([]float64, error) {
	if in.Product == nil {
		return nil, &GapError{Field: "product"}
	}
	if in.Venue == nil {
		return nil, &GapError{Field: "venue"}
	}

	date := models.TruncateToDay(in.Date)
	vec := make([]float64, 0, VectorSize)

	// Lagged sales statistics
	vec = append(vec,
		windowMean(in.History, date, 7),
		windowMean(in.History, date, 14),
		windowMean(in.History, date, 30),
		sameWeekdayMean(in.History, date),
		daysSinceLastSale(in.History, date),
	)

	var stats *models.ProductStats
	if in.Profile != nil {
		stats = in.Profile.ByProduct[in.Product.ID]
	}
	if stats != nil {
		vec = append(vec, stats.MeanQuantity, float64(stats.MaxQuantity), stats.Variance)
	} else {
		vec = append(vec, 0, 0, 0)
	}

	// Venue data-recency block
	if in.Profile != nil {
		vec = append(vec,
			float64(in.Profile.SampleCount),
			math.Min(float64(in.Profile.DataRecencyDays(date)), DefaultDaysSinceLastSale),
			float64(in.Profile.DaysSinceFirstSample(date)),
		)
	} else {
		vec = append(vec, 0, DefaultDaysSinceLastSale, 0)
	}
	vec = append(vec, float64(in.Venue.TypicalAttendance))

	// Calendar block
	dow := float64(date.Weekday())
	month := float64(date.Month())
	_, week := date.ISOWeek()
	vec = append(vec,
		math.Sin(2*math.Pi*dow/7),
		math.Cos(2*math.Pi*dow/7),
		math.Sin(2*math.Pi*month/12),
		math.Cos(2*math.Pi*month/12),
		boolDim(date.Weekday() == time.Saturday || date.Weekday() == time.Sunday),
		boolDim(isUSHoliday(date)),
		float64(date.Day()),
		float64(week),
	)

	// Weather block
	if in.Weather != nil {
		vec = append(vec,
			in.Weather.TempF,
			in.Weather.FeelsLikeF,
			in.Weather.Humidity,
			in.Weather.PrecipProbability,
			boolDim(in.Weather.IsSunny()),
			boolDim(in.Weather.IsRainy()),
			boolDim(in.Weather.Source == models.SourceHistoricalAverage),
		)
	} else {
		vec = append(vec, 70, 70, 0, 0, 0, 0, 1)
	}

	// Event block
	vec = append(vec, eventDims(in.Events)...)

	// Seasonality block
	z := seasonalityZ(in.History, date.Month())
	vec = append(vec, z, boolDim(z >= SeasonalityZThreshold))

	// Product block
	vec = append(vec, in.Product.UnitPrice)

	return vec, nil
}

func boolDim(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// windowMean averages quantities sold in the `days` days ending the day
// before date. Returns 0 with no records in the window.
func windowMean(history []*models.SalesRecord, date time.Time, days int) float64 {
	start := date.AddDate(0, 0, -days)
	sum, n := 0.0, 0
	for _, rec := range history {
		if rec.Date.Before(date) && !rec.Date.Before(start) {
			sum += float64(rec.QuantitySold)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// sameWeekdayMean averages quantities sold on the target date's weekday.
func sameWeekdayMean(history []*models.SalesRecord, date time.Time) float64 {
	sum, n := 0.0, 0
	for _, rec := range history {
		if rec.Date.Before(date) && rec.Date.Weekday() == date.Weekday() {
			sum += float64(rec.QuantitySold)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func daysSinceLastSale(history []*models.SalesRecord, date time.Time) float64 {
	var last time.Time
	for _, rec := range history {
		if rec.Date.Before(date) && rec.Date.After(last) {
			last = rec.Date
		}
	}
	if last.IsZero() {
		return DefaultDaysSinceLastSale
	}
	days := date.Sub(last).Hours() / 24
	return math.Min(days, DefaultDaysSinceLastSale)
}

func eventDims(events []*models.EventRecord) []float64 {
	count := float64(len(events))
	maxAttendance := 0.0
	hasLarge := false
	minDistance := 0.0
	manualCount := 0.0

	for i, ev := range events {
		if float64(ev.ExpectedAttendance) > maxAttendance {
			maxAttendance = float64(ev.ExpectedAttendance)
		}
		if ev.ExpectedAttendance >= LargeEventAttendance {
			hasLarge = true
		}
		if i == 0 || ev.DistanceKM < minDistance {
			minDistance = ev.DistanceKM
		}
		if ev.Source == models.EventSourceManual {
			manualCount++
		}
	}

	return []float64{count, maxAttendance, boolDim(hasLarge), minDistance, manualCount}
}

// seasonalityZ scores how far the target month's historical mean demand
// sits above the across-month mean, in standard deviations. It requires
// history spanning at least minSeasonalityMonths distinct calendar months
// and returns 0 otherwise.
func seasonalityZ(history []*models.SalesRecord, target time.Month) float64 {
	type monthAgg struct {
		sum float64
		n   int
	}
	byMonth := make(map[time.Month]*monthAgg)
	for _, rec := range history {
		m := rec.Date.Month()
		agg, ok := byMonth[m]
		if !ok {
			agg = &monthAgg{}
			byMonth[m] = agg
		}
		agg.sum += float64(rec.QuantitySold)
		agg.n++
	}
	if len(byMonth) < minSeasonalityMonths {
		return 0
	}

	means := make([]float64, 0, len(byMonth))
	var targetMean float64
	hasTarget := false
	for m, agg := range byMonth {
		mean := agg.sum / float64(agg.n)
		means = append(means, mean)
		if m == target {
			targetMean = mean
			hasTarget = true
		}
	}
	if !hasTarget {
		return 0
	}

	var sum float64
	for _, m := range means {
		sum += m
	}
	overall := sum / float64(len(means))

	var variance float64
	for _, m := range means {
		variance += (m - overall) * (m - overall)
	}
	variance /= float64(len(means))
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return (targetMean - overall) / std
}
