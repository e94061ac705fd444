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

// LiveEventProvider fetches nearby public events from an upstream
// event-discovery API, with the same rate limiter and circuit breaker
// treatment as the weather adapter.
type LiveEventProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]*models.EventRecord]
}

// EventProviderConfig configures a LiveEventProvider.
type EventProviderConfig struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	RateLimitRPS    float64
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// NewLiveEventProvider creates a live event adapter.
func NewLiveEventProvider(cfg EventProviderConfig) *LiveEventProvider {
	settings := gobreaker.Settings{
		Name:    "events-api",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
	}
	return &LiveEventProvider{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1),
		breaker: gobreaker.NewCircuitBreaker[[]*models.EventRecord](settings),
	}
}

// eventSearchResponse mirrors the upstream event search payload.
type eventSearchResponse struct {
	Events []struct {
		ID         string  `json:"id"`
		Name       string  `json:"name"`
		Date       string  `json:"date"`
		Attendance int     `json:"expected_attendance"`
		DistanceKM float64 `json:"distance_km"`
	} `json:"events"`
}

// EventsNear fetches events within radiusKM of the coordinates on date.
func (p *LiveEventProvider) EventsNear(ctx context.Context, lat, lon, radiusKM float64, date time.Time) ([]*models.EventRecord, error) {
	if p.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("events rate limiter: %w", err)
	}

	return p.breaker.Execute(func() ([]*models.EventRecord, error) {
		return p.fetch(ctx, lat, lon, radiusKM, date)
	})
}

func (p *LiveEventProvider) fetch(ctx context.Context, lat, lon, radiusKM float64, date time.Time) ([]*models.EventRecord, error) {
	endpoint, err := url.Parse(p.baseURL + "/v1/events/search")
	if err != nil {
		return nil, fmt.Errorf("parse events base url: %w", err)
	}
	q := endpoint.Query()
	q.Set("lat", fmt.Sprintf("%.4f", lat))
	q.Set("lon", fmt.Sprintf("%.4f", lon))
	q.Set("radius_km", fmt.Sprintf("%.1f", radiusKM))
	q.Set("date", models.DateKey(date))
	q.Set("token", p.apiKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build events request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("events request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: events API status %d", ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read events response: %w", err)
	}

	var parsed eventSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode events response: %w", err)
	}

	records := make([]*models.EventRecord, 0, len(parsed.Events))
	for _, ev := range parsed.Events {
		records = append(records, &models.EventRecord{
			ID:                 ev.ID,
			Date:               models.TruncateToDay(date),
			Name:               ev.Name,
			ExpectedAttendance: ev.Attendance,
			DistanceKM:         ev.DistanceKM,
			Source:             models.EventSourceExternal,
		})
	}
	return records, nil
}
