// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package storage

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/stockpilot/stockpilot/internal/logging"
)

// Sentinel errors returned by the repositories in this package.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateID indicates an insert-only write collided with an
	// existing key.
	ErrDuplicateID = errors.New("duplicate record id")

	// ErrFeedbackExists indicates feedback has already been recorded for
	// the recommendation.
	ErrFeedbackExists = errors.New("feedback already exists for recommendation")

	// ErrNoActiveModel indicates no model version has been activated yet.
	ErrNoActiveModel = errors.New("no active model version")

	// ErrSchemaMismatch indicates an activation attempt for a model trained
	// against a different feature schema than the one currently served.
	ErrSchemaMismatch = errors.New("model feature schema mismatch")
)

// Open opens (or creates) the BadgerDB database at path. An empty path
// opens an in-memory database, which is used by tests.
func Open(path string) (*badger.DB, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(badgerLogger{log: logging.With().Str("component", "badger").Logger()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return db, nil
}

// badgerLogger adapts zerolog to badger's Logger interface. Badger's
// INFO output is chatty, so it is demoted to debug.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}
