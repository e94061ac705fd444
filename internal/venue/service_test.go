// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package venue

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stockpilot/stockpilot/internal/models"
	"github.com/stockpilot/stockpilot/internal/storage"
)

// fakeSales serves a fixed record list and counts reads.
type fakeSales struct {
	records []*models.SalesRecord
	reads   int
}

func (f *fakeSales) ListByVenue(ctx context.Context, venueID string, from, to time.Time) ([]*models.SalesRecord, error) {
	f.reads++
	var out []*models.SalesRecord
	for _, rec := range f.records {
		if rec.VenueID == venueID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// fakeProfiles is an in-memory ProfileRepository.
type fakeProfiles struct {
	stored map[string]*models.VenueProfile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{stored: make(map[string]*models.VenueProfile)}
}

func (f *fakeProfiles) Put(ctx context.Context, p *models.VenueProfile) error {
	f.stored[p.VenueID] = p
	return nil
}

func (f *fakeProfiles) Get(ctx context.Context, venueID string) (*models.VenueProfile, error) {
	p, ok := f.stored[venueID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) Delete(ctx context.Context, venueID string) error {
	delete(f.stored, venueID)
	return nil
}

func testConfig() Config {
	return Config{
		ColdThreshold: 10,
		WarmThreshold: 50,
		StalenessDays: 180,
		ProfileTTL:    15 * time.Minute,
	}
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func salesFor(venueID, productID string, quantities []int, start time.Time) []*models.SalesRecord {
	records := make([]*models.SalesRecord, 0, len(quantities))
	for i, q := range quantities {
		records = append(records, &models.SalesRecord{
			ProductID:    productID,
			VenueID:      venueID,
			Date:         start.AddDate(0, 0, i),
			QuantitySold: q,
		})
	}
	return records
}

func TestProfileStatistics(t *testing.T) {
	start := date(t, "2026-08-01")
	sales := &fakeSales{records: salesFor("v1", "p1", []int{10, 12, 14}, start)}
	svc := NewService(sales, newFakeProfiles(), testConfig())

	p, err := svc.Profile(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}

	if p.SampleCount != 3 {
		t.Errorf("SampleCount = %d, want 3", p.SampleCount)
	}
	stats := p.ByProduct["p1"]
	if stats == nil {
		t.Fatal("ByProduct[p1] missing")
	}
	if stats.MeanQuantity != 12 {
		t.Errorf("MeanQuantity = %v, want 12", stats.MeanQuantity)
	}
	if stats.MaxQuantity != 14 {
		t.Errorf("MaxQuantity = %d, want 14", stats.MaxQuantity)
	}
	// Sample variance of {10, 12, 14} is 4.
	if math.Abs(stats.Variance-4) > 1e-9 {
		t.Errorf("Variance = %v, want 4", stats.Variance)
	}
	if !stats.LastSaleDate.Equal(date(t, "2026-08-03")) {
		t.Errorf("LastSaleDate = %v, want 2026-08-03", stats.LastSaleDate)
	}
	if !p.FirstSampleDate.Equal(start) {
		t.Errorf("FirstSampleDate = %v, want %v", p.FirstSampleDate, start)
	}
}

func TestProfileEmptyVenue(t *testing.T) {
	svc := NewService(&fakeSales{}, newFakeProfiles(), testConfig())

	p, err := svc.Profile(context.Background(), "empty")
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if p.SampleCount != 0 {
		t.Errorf("SampleCount = %d, want 0", p.SampleCount)
	}
	if !svc.IsStale(p) {
		t.Error("empty venue must report stale")
	}
	if svc.State(p) != models.VenueCold {
		t.Errorf("State = %v, want COLD", svc.State(p))
	}
}

func TestProfileCaching(t *testing.T) {
	start := date(t, "2026-08-01")
	sales := &fakeSales{records: salesFor("v1", "p1", []int{5, 5}, start)}
	profiles := newFakeProfiles()
	svc := NewService(sales, profiles, testConfig())
	ctx := context.Background()

	if _, err := svc.Profile(ctx, "v1"); err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if _, err := svc.Profile(ctx, "v1"); err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if sales.reads != 1 {
		t.Errorf("sales read %d times, want 1 (cached)", sales.reads)
	}

	svc.Invalidate("v1")
	if _, ok := profiles.stored["v1"]; ok {
		t.Error("stored snapshot survived Invalidate")
	}
	if _, err := svc.Profile(ctx, "v1"); err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if sales.reads != 2 {
		t.Errorf("sales read %d times after Invalidate, want 2", sales.reads)
	}
}

func TestInvalidateSkipsStoredSnapshot(t *testing.T) {
	// Feedback-triggered invalidation must not leave a fresh persisted
	// snapshot serving pre-feedback aggregates.
	start := date(t, "2026-08-01")
	sales := &fakeSales{records: salesFor("v1", "p1", []int{5, 5}, start)}
	profiles := newFakeProfiles()
	svc := NewService(sales, profiles, testConfig())
	ctx := context.Background()

	if _, err := svc.Profile(ctx, "v1"); err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	svc.Invalidate("v1")

	// A second service instance with an empty memory cache sees only the
	// repository; it must recompute, not serve the stale snapshot.
	svc2 := NewService(sales, profiles, testConfig())
	sales.records = salesFor("v1", "p1", []int{5, 5, 9}, start)

	p, err := svc2.Profile(ctx, "v1")
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if p.SampleCount != 3 {
		t.Errorf("SampleCount = %d after invalidation, want recomputed 3", p.SampleCount)
	}
}

func TestProfileServesStoredSnapshot(t *testing.T) {
	sales := &fakeSales{}
	profiles := newFakeProfiles()
	profiles.stored["v1"] = &models.VenueProfile{
		VenueID:     "v1",
		SampleCount: 30,
		ComputedAt:  time.Now().UTC(),
		ByProduct:   map[string]*models.ProductStats{},
	}
	svc := NewService(sales, profiles, testConfig())

	p, err := svc.Profile(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if p.SampleCount != 30 {
		t.Errorf("SampleCount = %d, want stored 30", p.SampleCount)
	}
	if sales.reads != 0 {
		t.Errorf("sales read %d times, want 0 (stored snapshot served)", sales.reads)
	}
}

func TestStateClassification(t *testing.T) {
	svc := NewService(&fakeSales{}, nil, testConfig())

	tests := []struct {
		name    string
		samples int
		want    models.VenueState
	}{
		{"no samples", 0, models.VenueCold},
		{"just below cold threshold", 9, models.VenueCold},
		{"at cold threshold", 10, models.VenueWarm},
		{"just below warm threshold", 49, models.VenueWarm},
		{"at warm threshold", 50, models.VenueHot},
		{"well established", 500, models.VenueHot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.VenueProfile{SampleCount: tt.samples}
			if got := svc.State(p); got != tt.want {
				t.Errorf("State(%d samples) = %v, want %v", tt.samples, got, tt.want)
			}
		})
	}
}

func TestIsStale(t *testing.T) {
	svc := NewService(&fakeSales{}, nil, testConfig())
	now := time.Now().UTC()

	fresh := &models.VenueProfile{SampleCount: 5, LastSampleDate: now.AddDate(0, 0, -30)}
	if svc.IsStale(fresh) {
		t.Error("venue with 30-day-old data must not be stale")
	}

	stale := &models.VenueProfile{SampleCount: 5, LastSampleDate: now.AddDate(0, 0, -200)}
	if !svc.IsStale(stale) {
		t.Error("venue with 200-day-old data must be stale")
	}
}
