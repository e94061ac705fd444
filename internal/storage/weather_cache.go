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

// WeatherCache caches forecast snapshots so repeated recommendation runs
// for the same venue and date do not hammer the upstream API. Entries
// expire via badger's native TTL.
type WeatherCache struct {
	db  *badger.DB
	ttl time.Duration
}

// NewWeatherCache creates a weather cache with the given entry TTL.
func NewWeatherCache(db *badger.DB, ttl time.Duration) *WeatherCache {
	return &WeatherCache{db: db, ttl: ttl}
}

// Put caches a snapshot keyed by its coordinates and date.
func (c *WeatherCache) Put(ctx context.Context, snap *models.WeatherSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal weather snapshot: %w", err)
	}
	key := weatherKey(snap.Latitude, snap.Longitude, snap.Date)
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, data).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
}

// Get returns the cached snapshot for the coordinates and date, or
// ErrNotFound on a miss or expired entry.
func (c *WeatherCache) Get(ctx context.Context, lat, lon float64, date time.Time) (*models.WeatherSnapshot, error) {
	var snap models.WeatherSnapshot
	err := c.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, weatherKey(lat, lon, date), &snap)
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
