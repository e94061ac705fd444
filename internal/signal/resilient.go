// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package signal

import (
	"context"
	"time"

	"github.com/stockpilot/stockpilot/internal/logging"
	"github.com/stockpilot/stockpilot/internal/metrics"
	"github.com/stockpilot/stockpilot/internal/models"
)

// WeatherCache is the caching surface ResilientWeatherProvider needs.
// Implemented by storage.WeatherCache.
type WeatherCache interface {
	Get(ctx context.Context, lat, lon float64, date time.Time) (*models.WeatherSnapshot, error)
	Put(ctx context.Context, snap *models.WeatherSnapshot) error
}

// ResilientWeatherProvider decorates a live provider with a cache and a
// historical fallback. It never returns an error: when the live path
// fails for any reason the caller gets a climatological snapshot marked
// models.SourceHistoricalAverage instead.
type ResilientWeatherProvider struct {
	live     WeatherProvider
	fallback WeatherProvider
	cache    WeatherCache
}

// NewResilientWeatherProvider wraps live with fallback and cache. The
// cache may be nil, in which case every call goes upstream.
func NewResilientWeatherProvider(live, fallback WeatherProvider, cache WeatherCache) *ResilientWeatherProvider {
	return &ResilientWeatherProvider{live: live, fallback: fallback, cache: cache}
}

// Forecast returns the best available snapshot for the location and date.
func (p *ResilientWeatherProvider) Forecast(ctx context.Context, lat, lon float64, date time.Time) (*models.WeatherSnapshot, error) {
	if p.cache != nil {
		if snap, err := p.cache.Get(ctx, lat, lon, date); err == nil {
			return snap, nil
		}
	}

	snap, err := p.live.Forecast(ctx, lat, lon, date)
	if err == nil {
		if p.cache != nil {
			if cacheErr := p.cache.Put(ctx, snap); cacheErr != nil {
				logging.Ctx(ctx).Warn().Err(cacheErr).Msg("failed to cache weather snapshot")
			}
		}
		return snap, nil
	}

	logging.Ctx(ctx).Warn().Err(err).
		Float64("lat", lat).Float64("lon", lon).Str("date", models.DateKey(date)).
		Msg("live weather unavailable, using historical average")
	metrics.SignalFallbacksTotal.WithLabelValues("weather").Inc()

	return p.fallback.Forecast(ctx, lat, lon, date)
}

// ResilientEventProvider decorates a live event provider. When the live
// path fails the venue simply sees no external events for the date; manual
// events entered by the vendor are merged in by the caller and are not
// affected by upstream health.
type ResilientEventProvider struct {
	live EventProvider
}

// NewResilientEventProvider wraps live with the empty-result fallback.
func NewResilientEventProvider(live EventProvider) *ResilientEventProvider {
	return &ResilientEventProvider{live: live}
}

// EventsNear returns nearby events, or an empty slice when the upstream
// API is unavailable.
func (p *ResilientEventProvider) EventsNear(ctx context.Context, lat, lon, radiusKM float64, date time.Time) ([]*models.EventRecord, error) {
	events, err := p.live.EventsNear(ctx, lat, lon, radiusKM, date)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Float64("lat", lat).Float64("lon", lon).Str("date", models.DateKey(date)).
			Msg("live events unavailable, continuing without external events")
		metrics.SignalFallbacksTotal.WithLabelValues("events").Inc()
		return nil, nil
	}
	return events, nil
}
