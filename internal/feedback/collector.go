// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stockpilot/stockpilot/internal/logging"
	"github.com/stockpilot/stockpilot/internal/metrics"
	"github.com/stockpilot/stockpilot/internal/models"
	"github.com/stockpilot/stockpilot/internal/storage"
)

// Collector errors.
var (
	// ErrRecommendationNotFound indicates feedback referenced an unknown
	// recommendation.
	ErrRecommendationNotFound = errors.New("recommendation not found")

	// ErrDuplicateFeedback indicates the recommendation already has
	// feedback.
	ErrDuplicateFeedback = errors.New("feedback already submitted")

	// ErrInvalidQuantity indicates a negative actual quantity.
	ErrInvalidQuantity = errors.New("actual quantity must be non-negative")
)

// RecommendationReader resolves recommendations.
type RecommendationReader interface {
	Get(ctx context.Context, id string) (*models.Recommendation, error)
}

// FeedbackWriter stores feedback records.
type FeedbackWriter interface {
	Put(ctx context.Context, fb *models.FeedbackRecord) error
}

// SalesAppender folds actuals into the sales ledger.
type SalesAppender interface {
	Append(ctx context.Context, rec *models.SalesRecord) error
}

// ProductPricer resolves the unit price recorded on the ledger entry.
type ProductPricer interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

// ProfileInvalidator drops a venue's cached profile.
type ProfileInvalidator interface {
	Invalidate(venueID string)
}

// Collector accepts vendor feedback on recommendations.
type Collector struct {
	recs     RecommendationReader
	feedback FeedbackWriter
	sales    SalesAppender
	catalog  ProductPricer
	profiles ProfileInvalidator
	now      func() time.Time
}

// NewCollector wires a feedback collector.
func NewCollector(recs RecommendationReader, feedback FeedbackWriter, sales SalesAppender, catalog ProductPricer, profiles ProfileInvalidator) *Collector {
	return &Collector{
		recs:     recs,
		feedback: feedback,
		sales:    sales,
		catalog:  catalog,
		profiles: profiles,
		now:      time.Now,
	}
}

// Submit records the actual quantity sold against a recommendation. The
// duplicate check and the feedback write share one transaction in the
// store; a duplicate returns ErrDuplicateFeedback and changes nothing.
func (c *Collector) Submit(ctx context.Context, recommendationID string, actualQuantity int) (*models.FeedbackRecord, error) {
	if actualQuantity < 0 {
		return nil, ErrInvalidQuantity
	}

	rec, err := c.recs.Get(ctx, recommendationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRecommendationNotFound
		}
		return nil, fmt.Errorf("load recommendation: %w", err)
	}

	fb := &models.FeedbackRecord{
		ID:               uuid.NewString(),
		RecommendationID: recommendationID,
		ActualQuantity:   actualQuantity,
		SubmittedAt:      c.now().UTC(),
	}
	if err := c.feedback.Put(ctx, fb); err != nil {
		if errors.Is(err, storage.ErrFeedbackExists) {
			metrics.FeedbackSubmissionsTotal.WithLabelValues("duplicate").Inc()
			return nil, ErrDuplicateFeedback
		}
		return nil, fmt.Errorf("store feedback: %w", err)
	}

	if err := c.appendToLedger(ctx, rec, actualQuantity); err != nil {
		// Feedback is already durable; the ledger entry is what feeds
		// retraining, so this failure must surface.
		return nil, fmt.Errorf("append feedback to sales ledger: %w", err)
	}

	if c.profiles != nil {
		c.profiles.Invalidate(rec.VenueID)
	}
	metrics.FeedbackSubmissionsTotal.WithLabelValues("accepted").Inc()

	logging.Ctx(ctx).Info().
		Str("recommendation_id", recommendationID).
		Str("venue_id", rec.VenueID).
		Str("product_id", rec.ProductID).
		Int("recommended", rec.RecommendedQuantity).
		Int("actual", actualQuantity).
		Msg("feedback recorded")
	return fb, nil
}

func (c *Collector) appendToLedger(ctx context.Context, rec *models.Recommendation, actualQuantity int) error {
	unitPrice := 0.0
	if c.catalog != nil {
		if product, err := c.catalog.GetProduct(ctx, rec.ProductID); err == nil {
			unitPrice = product.UnitPrice
		}
	}
	return c.sales.Append(ctx, &models.SalesRecord{
		ProductID:    rec.ProductID,
		VenueID:      rec.VenueID,
		Date:         rec.Date,
		QuantitySold: actualQuantity,
		UnitPrice:    unitPrice,
	})
}
