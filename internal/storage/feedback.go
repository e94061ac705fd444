// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/stockpilot/stockpilot/internal/models"
)

// FeedbackStore stores vendor feedback on recommendations and the pending
// queue consumed by the retraining scheduler.
type FeedbackStore struct {
	db *badger.DB
}

// NewFeedbackStore creates a feedback store backed by db.
func NewFeedbackStore(db *badger.DB) *FeedbackStore {
	return &FeedbackStore{db: db}
}

// Put records feedback for a recommendation. The existence check, the
// feedback write, and the pending-queue append happen in one transaction:
// a duplicate fails with ErrFeedbackExists and leaves nothing behind.
func (s *FeedbackStore) Put(ctx context.Context, fb *models.FeedbackRecord) error {
	if fb.RecommendationID == "" {
		return fmt.Errorf("feedback requires a recommendation id")
	}
	data, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := feedbackKey(fb.RecommendationID)
		if _, err := txn.Get(key); err == nil {
			return ErrFeedbackExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check feedback: %w", err)
		}

		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set feedback: %w", err)
		}
		seqKey := feedbackSeqKey(fb.SubmittedAt, fb.ID)
		if err := txn.Set(seqKey, []byte(fb.RecommendationID)); err != nil {
			return fmt.Errorf("set feedback queue entry: %w", err)
		}
		return nil
	})
}

// Get retrieves the feedback for a recommendation, if any.
func (s *FeedbackStore) Get(ctx context.Context, recommendationID string) (*models.FeedbackRecord, error) {
	var fb models.FeedbackRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, feedbackKey(recommendationID), &fb)
	})
	if err != nil {
		return nil, err
	}
	return &fb, nil
}

// PendingCount returns the number of feedback records awaiting retraining.
func (s *FeedbackStore) PendingCount(ctx context.Context) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(feedbackSeqKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count pending feedback: %w", err)
	}
	return count, nil
}

// ListPending returns the recommendation IDs of all pending feedback, in
// submission order.
func (s *FeedbackStore) ListPending(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(feedbackSeqKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				ids = append(ids, string(val))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list pending feedback: %w", err)
	}
	return ids, nil
}

// ClearPending drains the pending queue after a retraining cycle. The
// feedback records themselves are kept; only the queue entries go.
func (s *FeedbackStore) ClearPending(ctx context.Context) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(feedbackSeqKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan pending feedback: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete queue entry: %w", err)
			}
		}
		return nil
	})
}
