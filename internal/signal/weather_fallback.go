// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package signal

import (
	"context"
	"time"

	"github.com/stockpilot/stockpilot/internal/models"
)

// defaultFallbackTempF is used when no monthly normal is available.
const defaultFallbackTempF = 70

// monthlyNormalTempF holds rough continental-US temperature normals per
// month. A fallback snapshot never pretends to know the condition, so the
// multiplier pipeline treats it as neither sunny nor rainy.
var monthlyNormalTempF = map[time.Month]float64{
	time.January:   38,
	time.February:  42,
	time.March:     50,
	time.April:     58,
	time.May:       66,
	time.June:      74,
	time.July:      80,
	time.August:    78,
	time.September: 71,
	time.October:   60,
	time.November:  48,
	time.December:  40,
}

// HistoricalWeatherProvider produces climatological-average snapshots.
// It never fails and never touches the network, which makes it a safe
// fallback behind ResilientWeatherProvider.
type HistoricalWeatherProvider struct {
	now func() time.Time
}

// NewHistoricalWeatherProvider creates the fallback weather provider.
func NewHistoricalWeatherProvider() *HistoricalWeatherProvider {
	return &HistoricalWeatherProvider{now: time.Now}
}

// Forecast returns the monthly normal for the date's month.
func (p *HistoricalWeatherProvider) Forecast(ctx context.Context, lat, lon float64, date time.Time) (*models.WeatherSnapshot, error) {
	temp, ok := monthlyNormalTempF[date.Month()]
	if !ok {
		temp = defaultFallbackTempF
	}
	return &models.WeatherSnapshot{
		Latitude:   lat,
		Longitude:  lon,
		Date:       models.TruncateToDay(date),
		TempF:      temp,
		FeelsLikeF: temp,
		Condition:  "unknown",
		Source:     models.SourceHistoricalAverage,
		FetchedAt:  p.now().UTC(),
	}, nil
}
