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

// Catalog stores products and venues.
type Catalog struct {
	db *badger.DB
}

// NewCatalog creates a catalog backed by db.
func NewCatalog(db *badger.DB) *Catalog {
	return &Catalog{db: db}
}

// PutProduct creates or replaces a product.
func (c *Catalog) PutProduct(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		return fmt.Errorf("product id must not be empty")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(productKey(p.ID), data)
	})
}

// GetProduct retrieves a product by ID.
func (c *Catalog) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := c.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, productKey(id), &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActiveProducts returns all active products for a vendor.
func (c *Catalog) ListActiveProducts(ctx context.Context, vendorID string) ([]*models.Product, error) {
	var products []*models.Product
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(productKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var p models.Product
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return fmt.Errorf("unmarshal product: %w", err)
			}
			if p.VendorID == vendorID && p.Active {
				products = append(products, &p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// PutVenue creates or replaces a venue.
func (c *Catalog) PutVenue(ctx context.Context, v *models.Venue) error {
	if v.ID == "" {
		return fmt.Errorf("venue id must not be empty")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal venue: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(venueKey(v.ID), data)
	})
}

// GetVenue retrieves a venue by ID.
func (c *Catalog) GetVenue(ctx context.Context, id string) (*models.Venue, error) {
	var v models.Venue
	err := c.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, venueKey(id), &v)
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVenues returns all venues for a vendor.
func (c *Catalog) ListVenues(ctx context.Context, vendorID string) ([]*models.Venue, error) {
	var venues []*models.Venue
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(venueKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var v models.Venue
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &v)
			}); err != nil {
				return fmt.Errorf("unmarshal venue: %w", err)
			}
			if v.VendorID == vendorID {
				venues = append(venues, &v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	return venues, nil
}

// getJSON reads and unmarshals a single key inside a view transaction,
// mapping badger's not-found error to ErrNotFound.
func getJSON(txn *badger.Txn, key []byte, out interface{}) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}
