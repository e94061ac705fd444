// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package venue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stockpilot/stockpilot/internal/logging"
	"github.com/stockpilot/stockpilot/internal/models"
	"github.com/stockpilot/stockpilot/internal/storage"
)

// SalesReader is the slice of the sales store the profile service needs.
type SalesReader interface {
	ListByVenue(ctx context.Context, venueID string, from, to time.Time) ([]*models.SalesRecord, error)
}

// ProfileRepository persists computed profiles across restarts.
type ProfileRepository interface {
	Put(ctx context.Context, p *models.VenueProfile) error
	Get(ctx context.Context, venueID string) (*models.VenueProfile, error)
	Delete(ctx context.Context, venueID string) error
}

// Config holds the classification thresholds.
type Config struct {
	// ColdThreshold is the minimum sample count to leave COLD.
	ColdThreshold int
	// WarmThreshold is the minimum sample count to reach HOT.
	WarmThreshold int
	// StalenessDays is the data recency beyond which a venue is stale.
	StalenessDays int
	// ProfileTTL bounds how long a cached profile serves before recompute.
	ProfileTTL time.Duration
}

type cachedProfile struct {
	profile  *models.VenueProfile
	cachedAt time.Time
}

// Service computes, caches, and classifies venue profiles.
type Service struct {
	sales    SalesReader
	profiles ProfileRepository
	cfg      Config
	now      func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedProfile
}

// NewService creates a profile service.
func NewService(sales SalesReader, profiles ProfileRepository, cfg Config) *Service {
	return &Service{
		sales:    sales,
		profiles: profiles,
		cfg:      cfg,
		now:      time.Now,
		cache:    make(map[string]cachedProfile),
	}
}

// Profile returns the venue's profile, recomputing it when the cached
// copy has aged past the TTL. A venue with no sales history yields an
// empty profile rather than an error.
func (s *Service) Profile(ctx context.Context, venueID string) (*models.VenueProfile, error) {
	now := s.now()

	s.mu.RLock()
	entry, ok := s.cache[venueID]
	s.mu.RUnlock()
	if ok && now.Sub(entry.cachedAt) < s.cfg.ProfileTTL {
		return entry.profile, nil
	}

	// A persisted snapshot still inside the TTL avoids the recompute.
	if !ok && s.profiles != nil {
		if stored, err := s.profiles.Get(ctx, venueID); err == nil {
			if now.Sub(stored.ComputedAt) < s.cfg.ProfileTTL {
				s.cacheProfile(venueID, stored, now)
				return stored, nil
			}
		} else if !errors.Is(err, storage.ErrNotFound) {
			logging.Ctx(ctx).Warn().Err(err).Str("venue_id", venueID).Msg("failed to load stored profile")
		}
	}

	profile, err := s.compute(ctx, venueID)
	if err != nil {
		return nil, err
	}

	if s.profiles != nil {
		if err := s.profiles.Put(ctx, profile); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("venue_id", venueID).Msg("failed to persist profile")
		}
	}
	s.cacheProfile(venueID, profile, now)
	return profile, nil
}

// Invalidate drops the cached profile and the persisted snapshot so the
// next read recomputes. Called after new sales or feedback land for the
// venue; leaving the stored snapshot in place would serve pre-feedback
// aggregates until the TTL expired.
func (s *Service) Invalidate(venueID string) {
	s.mu.Lock()
	delete(s.cache, venueID)
	s.mu.Unlock()

	if s.profiles != nil {
		if err := s.profiles.Delete(context.Background(), venueID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			logging.Warn().Err(err).Str("venue_id", venueID).Msg("failed to drop stored profile")
		}
	}
}

// State classifies a profile by sample count.
func (s *Service) State(p *models.VenueProfile) models.VenueState {
	switch {
	case p.SampleCount < s.cfg.ColdThreshold:
		return models.VenueCold
	case p.SampleCount < s.cfg.WarmThreshold:
		return models.VenueWarm
	default:
		return models.VenueHot
	}
}

// IsStale reports whether the venue's most recent sample is older than
// the staleness window.
func (s *Service) IsStale(p *models.VenueProfile) bool {
	return p.DataRecencyDays(s.now()) > s.cfg.StalenessDays
}

func (s *Service) cacheProfile(venueID string, p *models.VenueProfile, now time.Time) {
	s.mu.Lock()
	s.cache[venueID] = cachedProfile{profile: p, cachedAt: now}
	s.mu.Unlock()
}

// compute builds a profile from the venue's full sales history in a
// single pass using Welford's algorithm per product.
func (s *Service) compute(ctx context.Context, venueID string) (*models.VenueProfile, error) {
	records, err := s.sales.ListByVenue(ctx, venueID, time.Time{}, s.now())
	if err != nil {
		return nil, fmt.Errorf("load sales for profile: %w", err)
	}

	profile := &models.VenueProfile{
		VenueID:    venueID,
		ByProduct:  make(map[string]*models.ProductStats),
		ComputedAt: s.now().UTC(),
	}

	type accumulator struct {
		count int
		mean  float64
		m2    float64
	}
	acc := make(map[string]*accumulator)

	for _, rec := range records {
		profile.SampleCount++
		if profile.FirstSampleDate.IsZero() || rec.Date.Before(profile.FirstSampleDate) {
			profile.FirstSampleDate = rec.Date
		}
		if rec.Date.After(profile.LastSampleDate) {
			profile.LastSampleDate = rec.Date
		}

		stats, ok := profile.ByProduct[rec.ProductID]
		if !ok {
			stats = &models.ProductStats{}
			profile.ByProduct[rec.ProductID] = stats
			acc[rec.ProductID] = &accumulator{}
		}
		a := acc[rec.ProductID]

		q := float64(rec.QuantitySold)
		a.count++
		delta := q - a.mean
		a.mean += delta / float64(a.count)
		a.m2 += delta * (q - a.mean)

		stats.SampleCount = a.count
		stats.MeanQuantity = a.mean
		if rec.QuantitySold > stats.MaxQuantity {
			stats.MaxQuantity = rec.QuantitySold
		}
		if rec.Date.After(stats.LastSaleDate) {
			stats.LastSaleDate = rec.Date
		}
	}

	for productID, a := range acc {
		if a.count > 1 {
			profile.ByProduct[productID].Variance = a.m2 / float64(a.count-1)
		}
	}

	return profile, nil
}
