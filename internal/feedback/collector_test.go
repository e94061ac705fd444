// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package feedback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stockpilot/stockpilot/internal/models"
	"github.com/stockpilot/stockpilot/internal/storage"
)

type fakeInvalidator struct {
	venueIDs []string
}

func (f *fakeInvalidator) Invalidate(venueID string) {
	f.venueIDs = append(f.venueIDs, venueID)
}

type collectorFixture struct {
	recs     *storage.RecommendationStore
	feedback *storage.FeedbackStore
	sales    *storage.SalesStore
	catalog  *storage.Catalog
	profiles *fakeInvalidator
}

func newCollectorFixture(t *testing.T) *collectorFixture {
	t.Helper()
	db, err := storage.Open("")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &collectorFixture{
		recs:     storage.NewRecommendationStore(db),
		feedback: storage.NewFeedbackStore(db),
		sales:    storage.NewSalesStore(db),
		catalog:  storage.NewCatalog(db),
		profiles: &fakeInvalidator{},
	}
}

func (f *collectorFixture) collector() *Collector {
	return NewCollector(f.recs, f.feedback, f.sales, f.catalog, f.profiles)
}

func (f *collectorFixture) seedRecommendation(t *testing.T) *models.Recommendation {
	t.Helper()
	ctx := context.Background()
	if err := f.catalog.PutProduct(ctx, &models.Product{
		ID:        "p1",
		VendorID:  "vendor-1",
		Name:      "sourdough loaf",
		UnitPrice: 8.50,
		Active:    true,
	}); err != nil {
		t.Fatalf("put product: %v", err)
	}
	rec := &models.Recommendation{
		ID:                  "rec-1",
		VendorID:            "vendor-1",
		VenueID:             "venue-1",
		ProductID:           "p1",
		Date:                time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
		RecommendedQuantity: 20,
		ConfidenceTier:      models.ConfidenceHigh,
		CreatedAt:           time.Now().UTC(),
	}
	if err := f.recs.Insert(ctx, []*models.Recommendation{rec}); err != nil {
		t.Fatalf("insert recommendation: %v", err)
	}
	return rec
}

func TestCollectorSubmit(t *testing.T) {
	f := newCollectorFixture(t)
	rec := f.seedRecommendation(t)
	ctx := context.Background()

	fb, err := f.collector().Submit(ctx, rec.ID, 17)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if fb.RecommendationID != rec.ID {
		t.Errorf("recommendation id = %q, want %q", fb.RecommendationID, rec.ID)
	}
	if fb.ActualQuantity != 17 {
		t.Errorf("actual quantity = %d, want 17", fb.ActualQuantity)
	}
	if fb.ID == "" || fb.SubmittedAt.IsZero() {
		t.Error("feedback missing id or timestamp")
	}

	stored, err := f.feedback.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get feedback: %v", err)
	}
	if stored.ActualQuantity != 17 {
		t.Errorf("stored actual = %d, want 17", stored.ActualQuantity)
	}

	// Actuals become ground truth in the sales ledger at the product's
	// catalog price.
	sales, err := f.sales.ListByVenue(ctx, rec.VenueID, rec.Date, rec.Date)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("sales ledger has %d entries, want 1", len(sales))
	}
	if sales[0].QuantitySold != 17 {
		t.Errorf("ledger quantity = %d, want 17", sales[0].QuantitySold)
	}
	if sales[0].UnitPrice != 8.50 {
		t.Errorf("ledger unit price = %.2f, want 8.50", sales[0].UnitPrice)
	}

	if len(f.profiles.venueIDs) != 1 || f.profiles.venueIDs[0] != rec.VenueID {
		t.Errorf("invalidated venues = %v, want [%s]", f.profiles.venueIDs, rec.VenueID)
	}
}

func TestCollectorDuplicateLeavesNoPartialState(t *testing.T) {
	f := newCollectorFixture(t)
	rec := f.seedRecommendation(t)
	ctx := context.Background()

	if _, err := f.collector().Submit(ctx, rec.ID, 17); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := f.collector().Submit(ctx, rec.ID, 3)
	if !errors.Is(err, ErrDuplicateFeedback) {
		t.Fatalf("second submit err = %v, want ErrDuplicateFeedback", err)
	}

	// First submission survives untouched.
	stored, err := f.feedback.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get feedback: %v", err)
	}
	if stored.ActualQuantity != 17 {
		t.Errorf("stored actual = %d, want 17 (duplicate must not overwrite)", stored.ActualQuantity)
	}

	// No second ledger entry, no second queue entry, no second
	// invalidation.
	sales, err := f.sales.ListByVenue(ctx, rec.VenueID, rec.Date, rec.Date)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 1 {
		t.Errorf("sales ledger has %d entries after duplicate, want 1", len(sales))
	}
	pending, err := f.feedback.PendingCount(ctx)
	if err != nil {
		t.Fatalf("pending count: %v", err)
	}
	if pending != 1 {
		t.Errorf("pending count = %d after duplicate, want 1", pending)
	}
	if len(f.profiles.venueIDs) != 1 {
		t.Errorf("invalidations = %d after duplicate, want 1", len(f.profiles.venueIDs))
	}
}

func TestCollectorUnknownRecommendation(t *testing.T) {
	f := newCollectorFixture(t)
	_, err := f.collector().Submit(context.Background(), "no-such-rec", 5)
	if !errors.Is(err, ErrRecommendationNotFound) {
		t.Fatalf("err = %v, want ErrRecommendationNotFound", err)
	}
}

func TestCollectorRejectsNegativeQuantity(t *testing.T) {
	f := newCollectorFixture(t)
	rec := f.seedRecommendation(t)
	ctx := context.Background()

	_, err := f.collector().Submit(ctx, rec.ID, -1)
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("err = %v, want ErrInvalidQuantity", err)
	}
	if _, err := f.feedback.Get(ctx, rec.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("feedback stored despite invalid quantity")
	}
}

func TestCollectorZeroQuantityIsValid(t *testing.T) {
	f := newCollectorFixture(t)
	rec := f.seedRecommendation(t)

	// Selling nothing is a legitimate outcome and valuable signal.
	fb, err := f.collector().Submit(context.Background(), rec.ID, 0)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if fb.ActualQuantity != 0 {
		t.Errorf("actual quantity = %d, want 0", fb.ActualQuantity)
	}
}
