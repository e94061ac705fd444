// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package signal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stockpilot/stockpilot/internal/models"
)

func testWeatherConfig(baseURL string) WeatherProviderConfig {
	return WeatherProviderConfig{
		BaseURL:         baseURL,
		APIKey:          "test-key",
		Timeout:         2 * time.Second,
		RateLimitRPS:    1000,
		BreakerFailures: 3,
		BreakerCooldown: time.Minute,
	}
}

func TestLiveWeatherProviderForecast(t *testing.T) {
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("appid"); got != "test-key" {
			t.Errorf("appid = %q, want test-key", got)
		}
		fmt.Fprintf(w, `{"daily":[
			{"date":"2026-08-31","temp_f":60,"condition":"cloudy"},
			{"date":"2026-09-01","temp_f":72,"feels_like_f":70,"humidity":40,"precip_probability":10,"condition":"sunny"}
		]}`)
	}))
	defer srv.Close()

	p := NewLiveWeatherProvider(testWeatherConfig(srv.URL))
	snap, err := p.Forecast(context.Background(), 47.6, -122.3, date)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if snap.TempF != 72 || snap.Condition != "sunny" {
		t.Errorf("Forecast() = %+v, want temp 72 sunny", snap)
	}
	if snap.Source != models.SourceLive {
		t.Errorf("Source = %v, want SourceLive", snap.Source)
	}
	if !snap.IsSunny() {
		t.Error("IsSunny() = false, want true")
	}
}

func TestLiveWeatherProviderUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewLiveWeatherProvider(testWeatherConfig(srv.URL))
	_, err := p.Forecast(context.Background(), 47.6, -122.3, time.Now())
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("Forecast() error = %v, want ErrUpstream", err)
	}
}

func TestLiveWeatherProviderBreakerOpens(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewLiveWeatherProvider(testWeatherConfig(srv.URL))
	for i := 0; i < 5; i++ {
		//nolint:errcheck // failures are the point
		p.Forecast(context.Background(), 1, 1, time.Now())
	}

	// After three consecutive failures the breaker stops calling upstream.
	if calls > 3 {
		t.Errorf("upstream called %d times, want at most 3 before breaker opens", calls)
	}
}

func TestHistoricalWeatherProvider(t *testing.T) {
	p := NewHistoricalWeatherProvider()

	july := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	snap, err := p.Forecast(context.Background(), 40, -100, july)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if snap.TempF != 80 {
		t.Errorf("July TempF = %v, want 80", snap.TempF)
	}
	if snap.Source != models.SourceHistoricalAverage {
		t.Errorf("Source = %v, want SourceHistoricalAverage", snap.Source)
	}
	if snap.Condition != "unknown" {
		t.Errorf("Condition = %q, want unknown", snap.Condition)
	}
	if snap.IsSunny() || snap.IsRainy() {
		t.Error("fallback snapshot must be neither sunny nor rainy")
	}
}

// stubWeather returns a fixed snapshot or error.
type stubWeather struct {
	snap *models.WeatherSnapshot
	err  error
}

func (s *stubWeather) Forecast(ctx context.Context, lat, lon float64, date time.Time) (*models.WeatherSnapshot, error) {
	return s.snap, s.err
}

// memWeatherCache is an in-memory WeatherCache for tests.
type memWeatherCache struct {
	snaps map[string]*models.WeatherSnapshot
}

func newMemWeatherCache() *memWeatherCache {
	return &memWeatherCache{snaps: make(map[string]*models.WeatherSnapshot)}
}

func (c *memWeatherCache) key(lat, lon float64, date time.Time) string {
	return fmt.Sprintf("%.2f:%.2f:%s", lat, lon, models.DateKey(date))
}

func (c *memWeatherCache) Get(ctx context.Context, lat, lon float64, date time.Time) (*models.WeatherSnapshot, error) {
	snap, ok := c.snaps[c.key(lat, lon, date)]
	if !ok {
		return nil, errors.New("miss")
	}
	return snap, nil
}

func (c *memWeatherCache) Put(ctx context.Context, snap *models.WeatherSnapshot) error {
	c.snaps[c.key(snap.Latitude, snap.Longitude, snap.Date)] = snap
	return nil
}

func TestResilientWeatherFallsBack(t *testing.T) {
	live := &stubWeather{err: errors.New("connection refused")}
	p := NewResilientWeatherProvider(live, NewHistoricalWeatherProvider(), nil)

	snap, err := p.Forecast(context.Background(), 40, -100, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Forecast() error = %v, resilient provider must not fail", err)
	}
	if snap.Source != models.SourceHistoricalAverage {
		t.Errorf("Source = %v, want SourceHistoricalAverage", snap.Source)
	}
}

func TestResilientWeatherCaches(t *testing.T) {
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	live := &stubWeather{snap: &models.WeatherSnapshot{
		Latitude: 40, Longitude: -100, Date: date,
		TempF: 65, Condition: "clear", Source: models.SourceLive,
	}}
	cache := newMemWeatherCache()
	p := NewResilientWeatherProvider(live, NewHistoricalWeatherProvider(), cache)

	if _, err := p.Forecast(context.Background(), 40, -100, date); err != nil {
		t.Fatalf("first Forecast() error = %v", err)
	}
	if len(cache.snaps) != 1 {
		t.Fatalf("cache has %d entries after live fetch, want 1", len(cache.snaps))
	}

	// Live path now fails; the cached snapshot still serves.
	live.snap, live.err = nil, errors.New("down")
	snap, err := p.Forecast(context.Background(), 40, -100, date)
	if err != nil {
		t.Fatalf("cached Forecast() error = %v", err)
	}
	if snap.TempF != 65 || snap.Source != models.SourceLive {
		t.Errorf("cached snapshot = %+v, want live temp 65", snap)
	}
}

func TestLiveEventProviderEventsNear(t *testing.T) {
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("radius_km"); got != "5.0" {
			t.Errorf("radius_km = %q, want 5.0", got)
		}
		fmt.Fprintf(w, `{"events":[
			{"id":"ev-1","name":"Street Fair","date":"2026-09-01","expected_attendance":2500,"distance_km":1.2}
		]}`)
	}))
	defer srv.Close()

	p := NewLiveEventProvider(EventProviderConfig{
		BaseURL:         srv.URL,
		APIKey:          "tok",
		Timeout:         2 * time.Second,
		RateLimitRPS:    1000,
		BreakerFailures: 3,
		BreakerCooldown: time.Minute,
	})
	events, err := p.EventsNear(context.Background(), 47.6, -122.3, 5, date)
	if err != nil {
		t.Fatalf("EventsNear() error = %v", err)
	}
	if len(events) != 1 || events[0].ExpectedAttendance != 2500 {
		t.Fatalf("EventsNear() = %v, want one event with attendance 2500", events)
	}
	if events[0].Source != models.EventSourceExternal {
		t.Errorf("Source = %v, want EventSourceExternal", events[0].Source)
	}
}

// stubEvents returns a fixed event list or error.
type stubEvents struct {
	events []*models.EventRecord
	err    error
}

func (s *stubEvents) EventsNear(ctx context.Context, lat, lon, radiusKM float64, date time.Time) ([]*models.EventRecord, error) {
	return s.events, s.err
}

func TestResilientEventsDegradeToEmpty(t *testing.T) {
	p := NewResilientEventProvider(&stubEvents{err: errors.New("timeout")})

	events, err := p.EventsNear(context.Background(), 40, -100, 5, time.Now())
	if err != nil {
		t.Fatalf("EventsNear() error = %v, resilient provider must not fail", err)
	}
	if len(events) != 0 {
		t.Errorf("EventsNear() = %v, want empty on upstream failure", events)
	}
}

func TestLiveWeatherProviderMissingAPIKey(t *testing.T) {
	cfg := testWeatherConfig("http://unreachable.invalid")
	cfg.APIKey = ""

	p := NewLiveWeatherProvider(cfg)
	_, err := p.Forecast(context.Background(), 47.6, -122.3, time.Now())
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Forecast() error = %v, want ErrMissingAPIKey", err)
	}
}
