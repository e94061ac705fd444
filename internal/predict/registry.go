// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package predict

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stockpilot/stockpilot/internal/feature"
	"github.com/stockpilot/stockpilot/internal/models"
)

// Registry errors.
var (
	// ErrSchemaMismatch indicates the active model was trained against a
	// different feature schema than the running binary.
	ErrSchemaMismatch = errors.New("model feature schema mismatch")

	// ErrChecksumMismatch indicates a stored model blob failed its
	// integrity check.
	ErrChecksumMismatch = errors.New("model blob checksum mismatch")
)

// ModelRepository is the slice of the model store the registry needs.
// Implemented by storage.ModelStore.
type ModelRepository interface {
	GetVersion(ctx context.Context, id string) (*models.ModelVersion, error)
	GetBlob(ctx context.Context, id string) ([]byte, error)
	ActiveID(ctx context.Context) (string, error)
}

// ActiveModel is a snapshot of the active version taken at the start of a
// recommendation batch. Holding the snapshot guarantees every product in
// the batch is scored by the same version even if an activation lands
// mid-batch.
type ActiveModel struct {
	Version  *models.ModelVersion
	Ensemble *Ensemble
}

// Registry resolves the active model version, verifying checksum and
// feature schema, and caches the deserialized ensemble.
type Registry struct {
	store ModelRepository

	mu       sync.RWMutex
	cachedID string
	cached   *ActiveModel
}

// NewRegistry creates a registry over the model repository.
func NewRegistry(store ModelRepository) *Registry {
	return &Registry{store: store}
}

// Active returns the currently active model. Errors from the underlying
// store pass through, notably storage.ErrNoActiveModel when nothing has
// been activated; callers degrade to cold-start behavior on that.
func (r *Registry) Active(ctx context.Context) (*ActiveModel, error) {
	id, err := r.store.ActiveID(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	if r.cachedID == id && r.cached != nil {
		cached := r.cached
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	return r.load(ctx, id)
}

// Invalidate drops the cached model so the next Active call reloads.
// Called after an activation.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	r.cachedID = ""
	r.cached = nil
	r.mu.Unlock()
}

func (r *Registry) load(ctx context.Context, id string) (*ActiveModel, error) {
	meta, err := r.store.GetVersion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load model version %s: %w", id, err)
	}
	if meta.FeatureSchemaHash != feature.SchemaHash() {
		return nil, fmt.Errorf("version %s: %w", id, ErrSchemaMismatch)
	}

	blob, err := r.store.GetBlob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load model blob %s: %w", id, err)
	}
	if Checksum(blob) != meta.Checksum {
		return nil, fmt.Errorf("version %s: %w", id, ErrChecksumMismatch)
	}

	ensemble, err := DecodeEnsemble(blob)
	if err != nil {
		return nil, fmt.Errorf("decode model %s: %w", id, err)
	}

	active := &ActiveModel{Version: meta, Ensemble: ensemble}
	r.mu.Lock()
	r.cachedID = id
	r.cached = active
	r.mu.Unlock()
	return active, nil
}
