// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// RetrainStateStore persists the retraining scheduler's last-run time so
// the max-interval trigger survives restarts.
type RetrainStateStore struct {
	db *badger.DB
}

// NewRetrainStateStore creates a retrain state store backed by db.
func NewRetrainStateStore(db *badger.DB) *RetrainStateStore {
	return &RetrainStateStore{db: db}
}

// LastRunAt returns the time of the last completed retraining cycle.
// A zero time and nil error mean no cycle has run yet.
func (s *RetrainStateStore) LastRunAt(ctx context.Context) (time.Time, error) {
	var ts time.Time
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(retrainLastRunKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get last run: %w", err)
		}
		return item.Value(func(val []byte) error {
			return ts.UnmarshalText(val)
		})
	})
	if err != nil {
		return time.Time{}, err
	}
	return ts, nil
}

// SetLastRunAt records the completion time of a retraining cycle.
func (s *RetrainStateStore) SetLastRunAt(ctx context.Context, ts time.Time) error {
	data, err := ts.MarshalText()
	if err != nil {
		return fmt.Errorf("marshal timestamp: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(retrainLastRunKey), data)
	})
}
