// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package predict

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// ErrInsufficientData indicates the training set is below the configured
// minimum row count.
var ErrInsufficientData = errors.New("insufficient training data")

// Row is one training example. Date is the sale day the row was built
// for; holdout splitting uses it to keep validation on recent data.
type Row struct {
	Features []float64
	Target   float64
	Date     time.Time
}

// TrainConfig controls ensemble training.
type TrainConfig struct {
	// EnsembleSize is the number of bootstrap members.
	EnsembleSize int
	// RidgeLambda is the L2 penalty shared by all members.
	RidgeLambda float64
	// MinRows is the minimum training set size.
	MinRows int
	// Seed makes training reproducible.
	Seed int64
}

// Ensemble is a trained demand model: ridge regressors fit on bootstrap
// resamples. Fields are exported for gob.
type Ensemble struct {
	SchemaHash string
	Members    [][]float64
}

// TrainEnsemble fits an ensemble on the rows. Each member sees a bootstrap
// resample of the full set; members whose resample turns out degenerate
// are refit on the full set so the ensemble always reaches full size.
func TrainEnsemble(rows []Row, schemaHash string, cfg TrainConfig) (*Ensemble, error) {
	if len(rows) < cfg.MinRows {
		return nil, fmt.Errorf("%w: %d rows, need %d", ErrInsufficientData, len(rows), cfg.MinRows)
	}

	features := make([][]float64, len(rows))
	targets := make([]float64, len(rows))
	for i, r := range rows {
		features[i] = r.Features
		targets[i] = r.Target
	}

	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducibility, not crypto
	members := make([][]float64, 0, cfg.EnsembleSize)

	for m := 0; m < cfg.EnsembleSize; m++ {
		sampleX := make([][]float64, len(rows))
		sampleY := make([]float64, len(rows))
		for i := range rows {
			j := rng.Intn(len(rows))
			sampleX[i] = features[j]
			sampleY[i] = targets[j]
		}

		coeffs, err := solveRidge(sampleX, sampleY, cfg.RidgeLambda)
		if errors.Is(err, ErrSingularSystem) {
			coeffs, err = solveRidge(features, targets, cfg.RidgeLambda)
		}
		if err != nil {
			return nil, fmt.Errorf("fit ensemble member %d: %w", m, err)
		}
		members = append(members, coeffs)
	}

	return &Ensemble{SchemaHash: schemaHash, Members: members}, nil
}

// Predict returns the ensemble mean and the coefficient of variation
// across members. Negative member outputs are floored at zero before
// aggregating; demand cannot be negative.
func (e *Ensemble) Predict(features []float64) (mean, uncertainty float64, err error) {
	if len(e.Members) == 0 {
		return 0, 0, errors.New("empty ensemble")
	}
	if len(features) != len(e.Members[0])-1 {
		return 0, 0, fmt.Errorf("feature vector has %d dims, model wants %d",
			len(features), len(e.Members[0])-1)
	}

	outputs := make([]float64, len(e.Members))
	var sum float64
	for i, coeffs := range e.Members {
		out := predictRidge(coeffs, features)
		if out < 0 {
			out = 0
		}
		outputs[i] = out
		sum += out
	}
	mean = sum / float64(len(outputs))
	if mean == 0 {
		return 0, 0, nil
	}

	var variance float64
	for _, out := range outputs {
		variance += (out - mean) * (out - mean)
	}
	variance /= float64(len(outputs))
	uncertainty = math.Sqrt(variance) / mean
	return mean, uncertainty, nil
}

// MAE computes the mean absolute error of the ensemble on the rows.
func (e *Ensemble) MAE(rows []Row) (float64, error) {
	if len(rows) == 0 {
		return 0, errors.New("no rows to evaluate")
	}
	var total float64
	for _, r := range rows {
		pred, _, err := e.Predict(r.Features)
		if err != nil {
			return 0, err
		}
		total += math.Abs(pred - r.Target)
	}
	return total / float64(len(rows)), nil
}

// Encode serializes the ensemble with gob and gzip.
func (e *Ensemble) Encode() ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(e); err != nil {
		return nil, fmt.Errorf("gob encode ensemble: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeEnsemble deserializes an ensemble blob produced by Encode.
func DecodeEnsemble(data []byte) (*Ensemble, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip open: %w", err)
	}
	defer gz.Close() //nolint:errcheck // read-only stream

	var e Ensemble
	if err := gob.NewDecoder(gz).Decode(&e); err != nil {
		return nil, fmt.Errorf("gob decode ensemble: %w", err)
	}
	return &e, nil
}

// Checksum returns the hex SHA-256 of a serialized model blob.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
