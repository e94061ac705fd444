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

// ProfileStore persists computed venue profiles so restarts do not force
// a full recompute before the first recommendation.
type ProfileStore struct {
	db *badger.DB
}

// NewProfileStore creates a profile store backed by db.
func NewProfileStore(db *badger.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Put stores a venue profile, replacing any previous snapshot.
func (s *ProfileStore) Put(ctx context.Context, p *models.VenueProfile) error {
	if p.VenueID == "" {
		return fmt.Errorf("profile requires a venue id")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(profileKey(p.VenueID), data)
	})
}

// Get retrieves the stored profile for a venue.
func (s *ProfileStore) Get(ctx context.Context, venueID string) (*models.VenueProfile, error) {
	var p models.VenueProfile
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, profileKey(venueID), &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes a stored profile. Missing profiles are not an error.
func (s *ProfileStore) Delete(ctx context.Context, venueID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(profileKey(venueID))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete profile: %w", err)
		}
		return nil
	})
}
