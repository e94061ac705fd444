// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/stockpilot/stockpilot/internal/models"
)

// RecommendationStore stores generated recommendations. The store is
// insert-only: once written, a recommendation is never mutated or deleted,
// so feedback always refers to exactly what the vendor was shown.
type RecommendationStore struct {
	db *badger.DB
}

// NewRecommendationStore creates a recommendation store backed by db.
func NewRecommendationStore(db *badger.DB) *RecommendationStore {
	return &RecommendationStore{db: db}
}

// Insert persists a batch of recommendations in a single transaction.
// A duplicate ID fails the whole batch with ErrDuplicateID.
func (s *RecommendationStore) Insert(ctx context.Context, recs []*models.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, rec := range recs {
			if rec.ID == "" {
				return fmt.Errorf("recommendation id must not be empty")
			}
			key := recKey(rec.ID)
			if _, err := txn.Get(key); err == nil {
				return fmt.Errorf("recommendation %s: %w", rec.ID, ErrDuplicateID)
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("check recommendation %s: %w", rec.ID, err)
			}

			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshal recommendation: %w", err)
			}
			if err := txn.Set(key, data); err != nil {
				return fmt.Errorf("set recommendation: %w", err)
			}
			if err := txn.Set(recVenueKey(rec.VenueID, rec.Date, rec.ID), []byte(rec.ID)); err != nil {
				return fmt.Errorf("set venue index: %w", err)
			}
		}
		return nil
	})
}

// Get retrieves a recommendation by ID.
func (s *RecommendationStore) Get(ctx context.Context, id string) (*models.Recommendation, error) {
	var rec models.Recommendation
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, recKey(id), &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByVenueDate returns all recommendations for a venue and target date,
// most recently created first.
func (s *RecommendationStore) ListByVenueDate(ctx context.Context, venueID string, date time.Time) ([]*models.Recommendation, error) {
	var recs []*models.Recommendation
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := recVenueDatePrefix(venueID, date)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			item, err := txn.Get(recKey(id))
			if err != nil {
				return fmt.Errorf("resolve recommendation %s: %w", id, err)
			}
			var rec models.Recommendation
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("unmarshal recommendation: %w", err)
			}
			recs = append(recs, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}

	// Newest batch first for display.
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs, nil
}
