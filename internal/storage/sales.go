// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/stockpilot/stockpilot/internal/models"
)

// SalesStore stores per-day sales records.
type SalesStore struct {
	db *badger.DB
}

// NewSalesStore creates a sales store backed by db.
func NewSalesStore(db *badger.DB) *SalesStore {
	return &SalesStore{db: db}
}

// Append records a sale. Multiple sales for the same product, venue, and
// day are all kept; readers aggregate as needed.
func (s *SalesStore) Append(ctx context.Context, rec *models.SalesRecord) error {
	if rec.VenueID == "" || rec.ProductID == "" {
		return fmt.Errorf("sales record requires venue and product ids")
	}
	rec.Date = models.TruncateToDay(rec.Date)

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal sales record: %w", err)
	}
	key := saleKey(rec.VenueID, rec.Date, rec.ProductID, uuid.NewString())
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// ListByVenue returns all sales for a venue with dates in [from, to],
// in chronological order.
func (s *SalesStore) ListByVenue(ctx context.Context, venueID string, from, to time.Time) ([]*models.SalesRecord, error) {
	from = models.TruncateToDay(from)
	to = models.TruncateToDay(to)

	var records []*models.SalesRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := saleVenuePrefix(venueID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec models.SalesRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("unmarshal sales record: %w", err)
			}
			if rec.Date.Before(from) || rec.Date.After(to) {
				continue
			}
			records = append(records, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sales for venue %s: %w", venueID, err)
	}
	return records, nil
}

// ListAll returns every sales record in the store. Used to assemble
// training sets; the scan is sequential and cheap relative to training.
func (s *SalesStore) ListAll(ctx context.Context) ([]*models.SalesRecord, error) {
	var records []*models.SalesRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(saleKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			var rec models.SalesRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("unmarshal sales record: %w", err)
			}
			records = append(records, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list all sales: %w", err)
	}
	return records, nil
}
