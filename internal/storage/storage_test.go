// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/stockpilot/stockpilot/internal/models"
)

func testDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := Open("")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return db
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestCatalogProductRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(testDB(t))

	p := &models.Product{
		ID:                "prod-1",
		VendorID:          "vendor-1",
		Name:              "Sourdough Loaf",
		UnitPrice:         8.50,
		MinOrderIncrement: 1,
		Active:            true,
	}
	if err := c.PutProduct(ctx, p); err != nil {
		t.Fatalf("PutProduct() error = %v", err)
	}

	got, err := c.GetProduct(ctx, "prod-1")
	if err != nil {
		t.Fatalf("GetProduct() error = %v", err)
	}
	if got.Name != p.Name || got.UnitPrice != p.UnitPrice {
		t.Errorf("GetProduct() = %+v, want %+v", got, p)
	}

	if _, err := c.GetProduct(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProduct(missing) error = %v, want ErrNotFound", err)
	}
}

func TestCatalogListActiveProducts(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(testDB(t))

	products := []*models.Product{
		{ID: "p1", VendorID: "v1", Name: "Jam", Active: true},
		{ID: "p2", VendorID: "v1", Name: "Honey", Active: false},
		{ID: "p3", VendorID: "v2", Name: "Bread", Active: true},
	}
	for _, p := range products {
		if err := c.PutProduct(ctx, p); err != nil {
			t.Fatalf("PutProduct(%s) error = %v", p.ID, err)
		}
	}

	got, err := c.ListActiveProducts(ctx, "v1")
	if err != nil {
		t.Fatalf("ListActiveProducts() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "p1" {
		t.Errorf("ListActiveProducts() = %v, want only p1", got)
	}
}

func TestSalesStoreDateRange(t *testing.T) {
	ctx := context.Background()
	s := NewSalesStore(testDB(t))

	dates := []string{"2026-08-01", "2026-08-10", "2026-08-20"}
	for _, d := range dates {
		rec := &models.SalesRecord{
			ProductID:    "p1",
			VenueID:      "venue-1",
			Date:         mustDate(t, d),
			QuantitySold: 10,
			UnitPrice:    5,
		}
		if err := s.Append(ctx, rec); err != nil {
			t.Fatalf("Append(%s) error = %v", d, err)
		}
	}

	got, err := s.ListByVenue(ctx, "venue-1", mustDate(t, "2026-08-05"), mustDate(t, "2026-08-15"))
	if err != nil {
		t.Fatalf("ListByVenue() error = %v", err)
	}
	if len(got) != 1 || !got[0].Date.Equal(mustDate(t, "2026-08-10")) {
		t.Errorf("ListByVenue() returned %d records, want 1 on 2026-08-10", len(got))
	}
}

func TestSalesStoreSameDaySameProduct(t *testing.T) {
	ctx := context.Background()
	s := NewSalesStore(testDB(t))

	for i := 0; i < 3; i++ {
		rec := &models.SalesRecord{
			ProductID:    "p1",
			VenueID:      "venue-1",
			Date:         mustDate(t, "2026-08-01"),
			QuantitySold: 1,
		}
		if err := s.Append(ctx, rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("ListAll() returned %d records, want 3", len(got))
	}
}

func TestRecommendationStoreInsertOnly(t *testing.T) {
	ctx := context.Background()
	s := NewRecommendationStore(testDB(t))

	rec := &models.Recommendation{
		ID:                  "rec-1",
		VendorID:            "v1",
		VenueID:             "venue-1",
		ProductID:           "p1",
		Date:                mustDate(t, "2026-09-01"),
		RecommendedQuantity: 12,
		ConfidenceTier:      models.ConfidenceHigh,
		CreatedAt:           time.Now().UTC(),
	}
	if err := s.Insert(ctx, []*models.Recommendation{rec}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	err := s.Insert(ctx, []*models.Recommendation{rec})
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("second Insert() error = %v, want ErrDuplicateID", err)
	}

	got, err := s.Get(ctx, "rec-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.RecommendedQuantity != 12 {
		t.Errorf("Get().RecommendedQuantity = %d, want 12", got.RecommendedQuantity)
	}
}

func TestRecommendationStoreListByVenueDate(t *testing.T) {
	ctx := context.Background()
	s := NewRecommendationStore(testDB(t))

	date := mustDate(t, "2026-09-01")
	older := &models.Recommendation{
		ID: "rec-old", VenueID: "venue-1", ProductID: "p1", Date: date,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	newer := &models.Recommendation{
		ID: "rec-new", VenueID: "venue-1", ProductID: "p2", Date: date,
		CreatedAt: time.Now().UTC(),
	}
	otherDate := &models.Recommendation{
		ID: "rec-other", VenueID: "venue-1", ProductID: "p1",
		Date: mustDate(t, "2026-09-02"), CreatedAt: time.Now().UTC(),
	}
	if err := s.Insert(ctx, []*models.Recommendation{older, newer, otherDate}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := s.ListByVenueDate(ctx, "venue-1", date)
	if err != nil {
		t.Fatalf("ListByVenueDate() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListByVenueDate() returned %d, want 2", len(got))
	}
	if got[0].ID != "rec-new" {
		t.Errorf("first result = %s, want rec-new (newest first)", got[0].ID)
	}
}

func TestFeedbackStoreAtMostOne(t *testing.T) {
	ctx := context.Background()
	s := NewFeedbackStore(testDB(t))

	fb := &models.FeedbackRecord{
		ID:               "fb-1",
		RecommendationID: "rec-1",
		ActualQuantity:   9,
		SubmittedAt:      time.Now().UTC(),
	}
	if err := s.Put(ctx, fb); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	dup := &models.FeedbackRecord{
		ID:               "fb-2",
		RecommendationID: "rec-1",
		ActualQuantity:   3,
		SubmittedAt:      time.Now().UTC(),
	}
	if err := s.Put(ctx, dup); !errors.Is(err, ErrFeedbackExists) {
		t.Fatalf("duplicate Put() error = %v, want ErrFeedbackExists", err)
	}

	// The rejected duplicate must not leave a queue entry behind.
	count, err := s.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("PendingCount() = %d, want 1", count)
	}

	got, err := s.Get(ctx, "rec-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ActualQuantity != 9 {
		t.Errorf("Get().ActualQuantity = %d, want original 9", got.ActualQuantity)
	}
}

func TestFeedbackStorePendingQueue(t *testing.T) {
	ctx := context.Background()
	s := NewFeedbackStore(testDB(t))

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		fb := &models.FeedbackRecord{
			ID:               "fb-" + string(rune('a'+i)),
			RecommendationID: "rec-" + string(rune('a'+i)),
			SubmittedAt:      base.Add(time.Duration(i) * time.Second),
		}
		if err := s.Put(ctx, fb); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	ids, err := s.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(ids) != 3 || ids[0] != "rec-a" || ids[2] != "rec-c" {
		t.Errorf("ListPending() = %v, want [rec-a rec-b rec-c]", ids)
	}

	if err := s.ClearPending(ctx); err != nil {
		t.Fatalf("ClearPending() error = %v", err)
	}
	count, err := s.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount() error = %v", err)
	}
	if count != 0 {
		t.Errorf("PendingCount() after clear = %d, want 0", count)
	}

	// Feedback records survive the queue drain.
	if _, err := s.Get(ctx, "rec-a"); err != nil {
		t.Errorf("Get(rec-a) after clear error = %v", err)
	}
}

func TestModelStoreVersionsAndActivation(t *testing.T) {
	ctx := context.Background()
	s := NewModelStore(testDB(t))

	if _, err := s.ActiveID(ctx); !errors.Is(err, ErrNoActiveModel) {
		t.Errorf("ActiveID() on empty store error = %v, want ErrNoActiveModel", err)
	}

	v1 := &models.ModelVersion{ID: "mv-1", TrainedAt: time.Now().UTC().Add(-time.Hour), TrainingRowCount: 100, FeatureSchemaHash: "schema-a"}
	v2 := &models.ModelVersion{ID: "mv-2", TrainedAt: time.Now().UTC(), TrainingRowCount: 150, FeatureSchemaHash: "schema-a"}
	if err := s.SaveVersion(ctx, v1, []byte("blob-1")); err != nil {
		t.Fatalf("SaveVersion(v1) error = %v", err)
	}
	if err := s.SaveVersion(ctx, v2, []byte("blob-2")); err != nil {
		t.Fatalf("SaveVersion(v2) error = %v", err)
	}

	if err := s.SaveVersion(ctx, v1, []byte("rewrite")); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("overwrite SaveVersion() error = %v, want ErrDuplicateID", err)
	}

	if err := s.SetActive(ctx, "mv-9", "schema-a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetActive(unknown) error = %v, want ErrNotFound", err)
	}
	// A version trained on another schema must never become active.
	if err := s.SetActive(ctx, "mv-1", "schema-b"); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("SetActive(mv-1, schema-b) error = %v, want ErrSchemaMismatch", err)
	}
	if _, err := s.ActiveID(ctx); !errors.Is(err, ErrNoActiveModel) {
		t.Errorf("ActiveID() after rejected activation error = %v, want ErrNoActiveModel", err)
	}
	if err := s.SetActive(ctx, "mv-1", "schema-a"); err != nil {
		t.Fatalf("SetActive(mv-1) error = %v", err)
	}
	if err := s.SetActive(ctx, "mv-2", "schema-a"); err != nil {
		t.Fatalf("SetActive(mv-2) error = %v", err)
	}

	id, err := s.ActiveID(ctx)
	if err != nil {
		t.Fatalf("ActiveID() error = %v", err)
	}
	if id != "mv-2" {
		t.Errorf("ActiveID() = %s, want mv-2", id)
	}

	blob, err := s.GetBlob(ctx, id)
	if err != nil {
		t.Fatalf("GetBlob() error = %v", err)
	}
	if string(blob) != "blob-2" {
		t.Errorf("GetBlob() = %q, want blob-2", blob)
	}

	versions, err := s.ListVersions(ctx)
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	if len(versions) != 2 || versions[0].ID != "mv-2" {
		t.Errorf("ListVersions() = %v, want mv-2 first", versions)
	}
}

func TestWeatherCacheCoordinateBucketing(t *testing.T) {
	ctx := context.Background()
	c := NewWeatherCache(testDB(t), time.Hour)

	date := mustDate(t, "2026-09-01")
	snap := &models.WeatherSnapshot{
		Latitude:  47.6062,
		Longitude: -122.3321,
		Date:      date,
		TempF:     68,
		Condition: "clear",
		Source:    models.SourceLive,
	}
	if err := c.Put(ctx, snap); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Coordinates within the same 0.01-degree bucket hit the cache.
	got, err := c.Get(ctx, 47.608, -122.334, date)
	if err != nil {
		t.Fatalf("Get() nearby error = %v", err)
	}
	if got.TempF != 68 {
		t.Errorf("Get().TempF = %v, want 68", got.TempF)
	}

	// A different date misses.
	if _, err := c.Get(ctx, 47.6062, -122.3321, date.AddDate(0, 0, 1)); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() other date error = %v, want ErrNotFound", err)
	}
}

func TestRetrainStateStore(t *testing.T) {
	ctx := context.Background()
	s := NewRetrainStateStore(testDB(t))

	ts, err := s.LastRunAt(ctx)
	if err != nil {
		t.Fatalf("LastRunAt() error = %v", err)
	}
	if !ts.IsZero() {
		t.Errorf("LastRunAt() on empty store = %v, want zero", ts)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := s.SetLastRunAt(ctx, now); err != nil {
		t.Fatalf("SetLastRunAt() error = %v", err)
	}
	ts, err = s.LastRunAt(ctx)
	if err != nil {
		t.Fatalf("LastRunAt() error = %v", err)
	}
	if !ts.Equal(now) {
		t.Errorf("LastRunAt() = %v, want %v", ts, now)
	}
}
