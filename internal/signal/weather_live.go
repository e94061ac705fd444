// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package signal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/stockpilot/stockpilot/internal/models"
)

// LiveWeatherProvider fetches daily forecasts from an upstream weather API.
// Calls pass through a token-bucket rate limiter and a circuit breaker;
// callers are expected to wrap it in ResilientWeatherProvider rather than
// handle upstream failures themselves.
type LiveWeatherProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*models.WeatherSnapshot]
	now     func() time.Time
}

// WeatherProviderConfig configures a LiveWeatherProvider.
type WeatherProviderConfig struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	RateLimitRPS    float64
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// NewLiveWeatherProvider creates a live weather adapter.
func NewLiveWeatherProvider(cfg WeatherProviderConfig) *LiveWeatherProvider {
	settings := gobreaker.Settings{
		Name:    "weather-api",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
	}
	return &LiveWeatherProvider{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1),
		breaker: gobreaker.NewCircuitBreaker[*models.WeatherSnapshot](settings),
		now:     time.Now,
	}
}

// forecastResponse mirrors the upstream daily forecast payload.
type forecastResponse struct {
	Daily []struct {
		Date          string  `json:"date"`
		TempF         float64 `json:"temp_f"`
		FeelsLikeF    float64 `json:"feels_like_f"`
		Humidity      float64 `json:"humidity"`
		PrecipPercent float64 `json:"precip_probability"`
		Condition     string  `json:"condition"`
	} `json:"daily"`
}

// Forecast fetches the forecast for the given coordinates and date.
func (p *LiveWeatherProvider) Forecast(ctx context.Context, lat, lon float64, date time.Time) (*models.WeatherSnapshot, error) {
	if p.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("weather rate limiter: %w", err)
	}

	return p.breaker.Execute(func() (*models.WeatherSnapshot, error) {
		return p.fetch(ctx, lat, lon, date)
	})
}

func (p *LiveWeatherProvider) fetch(ctx context.Context, lat, lon float64, date time.Time) (*models.WeatherSnapshot, error) {
	endpoint, err := url.Parse(p.baseURL + "/v1/forecast")
	if err != nil {
		return nil, fmt.Errorf("parse weather base url: %w", err)
	}
	q := endpoint.Query()
	q.Set("lat", fmt.Sprintf("%.4f", lat))
	q.Set("lon", fmt.Sprintf("%.4f", lon))
	q.Set("date", models.DateKey(date))
	q.Set("appid", p.apiKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: weather API status %d", ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}

	var parsed forecastResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}

	want := models.DateKey(date)
	for _, day := range parsed.Daily {
		if day.Date != want {
			continue
		}
		return &models.WeatherSnapshot{
			Latitude:          lat,
			Longitude:         lon,
			Date:              models.TruncateToDay(date),
			TempF:             day.TempF,
			FeelsLikeF:        day.FeelsLikeF,
			Humidity:          day.Humidity,
			PrecipProbability: day.PrecipPercent,
			Condition:         day.Condition,
			Source:            models.SourceLive,
			FetchedAt:         p.now().UTC(),
		}, nil
	}
	return nil, fmt.Errorf("%w: no forecast for %s", ErrUpstream, want)
}
