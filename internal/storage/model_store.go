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

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/stockpilot/stockpilot/internal/models"
)

// ModelStore stores serialized model versions and the active-version
// pointer. Version records and blobs are immutable once written; SaveVersion
// rejects an existing ID. Activation is a single-key write, so readers see
// either the old pointer or the new one, never a half-switched state.
type ModelStore struct {
	db *badger.DB
}

// NewModelStore creates a model store backed by db.
func NewModelStore(db *badger.DB) *ModelStore {
	return &ModelStore{db: db}
}

// SaveVersion stores a model version's metadata and serialized blob.
// Saving does not activate the version.
func (s *ModelStore) SaveVersion(ctx context.Context, meta *models.ModelVersion, blob []byte) error {
	if meta.ID == "" {
		return fmt.Errorf("model version id must not be empty")
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal model version: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := modelMetaKey(meta.ID)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("model version %s: %w", meta.ID, ErrDuplicateID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check model version: %w", err)
		}

		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set model metadata: %w", err)
		}
		if err := txn.Set(modelBlobKey(meta.ID), blob); err != nil {
			return fmt.Errorf("set model blob: %w", err)
		}
		return nil
	})
}

// GetVersion retrieves a model version's metadata.
func (s *ModelStore) GetVersion(ctx context.Context, id string) (*models.ModelVersion, error) {
	var meta models.ModelVersion
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, modelMetaKey(id), &meta)
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// GetBlob retrieves a model version's serialized bytes.
func (s *ModelStore) GetBlob(ctx context.Context, id string) ([]byte, error) {
	var blob []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(modelBlobKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get model blob: %w", err)
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// SetActive points the active-version key at id. The version must exist
// and must have been trained against schemaHash; activating a model built
// on a different feature schema would feed it misaligned vectors.
func (s *ModelStore) SetActive(ctx context.Context, id, schemaHash string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var meta models.ModelVersion
		if err := getJSON(txn, modelMetaKey(id), &meta); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("model version %s: %w", id, ErrNotFound)
			}
			return fmt.Errorf("check model version: %w", err)
		}
		if meta.FeatureSchemaHash != schemaHash {
			return fmt.Errorf("model version %s trained on schema %s, current %s: %w",
				id, meta.FeatureSchemaHash, schemaHash, ErrSchemaMismatch)
		}
		return txn.Set([]byte(modelActiveKey), []byte(id))
	})
}

// ActiveID returns the ID of the active model version, or ErrNoActiveModel
// if none has been activated.
func (s *ModelStore) ActiveID(ctx context.Context) (string, error) {
	var id string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(modelActiveKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoActiveModel
		}
		if err != nil {
			return fmt.Errorf("get active pointer: %w", err)
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListVersions returns all stored model versions, newest first.
func (s *ModelStore) ListVersions(ctx context.Context) ([]*models.ModelVersion, error) {
	var versions []*models.ModelVersion
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(modelMetaKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var meta models.ModelVersion
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				return fmt.Errorf("unmarshal model version: %w", err)
			}
			versions = append(versions, &meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list model versions: %w", err)
	}

	sort.Slice(versions, func(i, j int) bool {
		return versions[i].TrainedAt.After(versions[j].TrainedAt)
	})
	return versions, nil
}
