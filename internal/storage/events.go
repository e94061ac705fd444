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

	"github.com/stockpilot/stockpilot/internal/models"
)

const manualEventKeyPrefix = "event:"

func manualEventKey(venueID string, date time.Time, id string) []byte {
	return []byte(manualEventKeyPrefix + venueID + ":" + models.DateKey(date) + ":" + id)
}

func manualEventPrefix(venueID string, date time.Time) []byte {
	return []byte(manualEventKeyPrefix + venueID + ":" + models.DateKey(date) + ":")
}

// ManualEventStore stores vendor-entered events. Manual entries take
// precedence over externally discovered events with the same name; the
// merge itself lives in models.ResolveEvents.
type ManualEventStore struct {
	db *badger.DB
}

// NewManualEventStore creates a manual event store backed by db.
func NewManualEventStore(db *badger.DB) *ManualEventStore {
	return &ManualEventStore{db: db}
}

// Put creates or replaces a manual event.
func (s *ManualEventStore) Put(ctx context.Context, ev *models.EventRecord) error {
	if ev.ID == "" || ev.VenueID == "" {
		return fmt.Errorf("manual event requires id and venue id")
	}
	ev.Source = models.EventSourceManual
	ev.Date = models.TruncateToDay(ev.Date)

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(manualEventKey(ev.VenueID, ev.Date, ev.ID), data)
	})
}

// ListByVenueDate returns the manual events for a venue on a date.
func (s *ManualEventStore) ListByVenueDate(ctx context.Context, venueID string, date time.Time) ([]*models.EventRecord, error) {
	var events []*models.EventRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := manualEventPrefix(venueID, date)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var ev models.EventRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			}); err != nil {
				return fmt.Errorf("unmarshal event: %w", err)
			}
			events = append(events, &ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list manual events: %w", err)
	}
	return events, nil
}
