// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package predict

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stockpilot/stockpilot/internal/models"
)

func TestSolveRidgeRecoversLinear(t *testing.T) {
	// y = 3 + 2a - b, exactly.
	var features [][]float64
	var targets []float64
	for a := 0.0; a < 5; a++ {
		for bb := 0.0; bb < 5; bb++ {
			features = append(features, []float64{a, bb})
			targets = append(targets, 3+2*a-bb)
		}
	}

	coeffs, err := solveRidge(features, targets, 0.001)
	if err != nil {
		t.Fatalf("solveRidge() error = %v", err)
	}
	want := []float64{3, 2, -1}
	for i, w := range want {
		if math.Abs(coeffs[i]-w) > 0.05 {
			t.Errorf("coeffs[%d] = %v, want ~%v", i, coeffs[i], w)
		}
	}
}

func TestSolveRidgeSingular(t *testing.T) {
	// Identical rows with zero lambda leave a rank-deficient system.
	features := [][]float64{{1, 2}, {1, 2}, {1, 2}}
	targets := []float64{5, 5, 5}

	_, err := solveRidge(features, targets, 0)
	if !errors.Is(err, ErrSingularSystem) {
		t.Errorf("solveRidge() error = %v, want ErrSingularSystem", err)
	}

	// A positive penalty regularizes it away.
	if _, err := solveRidge(features, targets, 1); err != nil {
		t.Errorf("solveRidge() with lambda error = %v", err)
	}
}

func linearRows(n int) []Row {
	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		a := float64(i % 10)
		b := float64(i % 7)
		rows = append(rows, Row{
			Features: []float64{a, b},
			Target:   5 + 3*a + b,
		})
	}
	return rows
}

func testTrainConfig() TrainConfig {
	return TrainConfig{EnsembleSize: 8, RidgeLambda: 0.01, MinRows: 25, Seed: 42}
}

func TestTrainEnsembleAndPredict(t *testing.T) {
	e, err := TrainEnsemble(linearRows(100), "schema-a", testTrainConfig())
	if err != nil {
		t.Fatalf("TrainEnsemble() error = %v", err)
	}
	if len(e.Members) != 8 {
		t.Fatalf("ensemble has %d members, want 8", len(e.Members))
	}

	mean, uncertainty, err := e.Predict([]float64{4, 2})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if math.Abs(mean-19) > 1.0 {
		t.Errorf("Predict() mean = %v, want ~19", mean)
	}
	// A clean linear relationship gives tight member agreement.
	if uncertainty > 0.2 {
		t.Errorf("uncertainty = %v, want < 0.2 on clean data", uncertainty)
	}
}

func TestTrainEnsembleInsufficientData(t *testing.T) {
	_, err := TrainEnsemble(linearRows(10), "schema-a", testTrainConfig())
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("TrainEnsemble() error = %v, want ErrInsufficientData", err)
	}
}

func TestTrainEnsembleDeterministic(t *testing.T) {
	e1, err := TrainEnsemble(linearRows(50), "s", testTrainConfig())
	if err != nil {
		t.Fatalf("TrainEnsemble() error = %v", err)
	}
	e2, err := TrainEnsemble(linearRows(50), "s", testTrainConfig())
	if err != nil {
		t.Fatalf("TrainEnsemble() error = %v", err)
	}

	m1, _, _ := e1.Predict([]float64{3, 3})
	m2, _, _ := e2.Predict([]float64{3, 3})
	if m1 != m2 {
		t.Errorf("same seed produced different predictions: %v != %v", m1, m2)
	}
}

func TestPredictNeverNegative(t *testing.T) {
	rows := make([]Row, 30)
	for i := range rows {
		rows[i] = Row{Features: []float64{float64(i)}, Target: float64(30 - i)}
	}
	e, err := TrainEnsemble(rows, "s", TrainConfig{EnsembleSize: 4, RidgeLambda: 0.01, MinRows: 10, Seed: 1})
	if err != nil {
		t.Fatalf("TrainEnsemble() error = %v", err)
	}

	// Far outside the training range the raw line goes negative.
	mean, _, err := e.Predict([]float64{500})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if mean < 0 {
		t.Errorf("Predict() = %v, want >= 0", mean)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	e, err := TrainEnsemble(linearRows(50), "schema-a", testTrainConfig())
	if err != nil {
		t.Fatalf("TrainEnsemble() error = %v", err)
	}

	blob, err := e.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	decoded, err := DecodeEnsemble(blob)
	if err != nil {
		t.Fatalf("DecodeEnsemble() error = %v", err)
	}

	if decoded.SchemaHash != "schema-a" {
		t.Errorf("SchemaHash = %q, want schema-a", decoded.SchemaHash)
	}
	m1, _, _ := e.Predict([]float64{2, 2})
	m2, _, _ := decoded.Predict([]float64{2, 2})
	if m1 != m2 {
		t.Errorf("decoded model predicts %v, original %v", m2, m1)
	}

	if Checksum(blob) != Checksum(blob) {
		t.Error("Checksum() not deterministic")
	}
	if Checksum(blob) == Checksum([]byte("other")) {
		t.Error("Checksum() collision on different inputs")
	}
}

func TestMAE(t *testing.T) {
	e, err := TrainEnsemble(linearRows(100), "s", testTrainConfig())
	if err != nil {
		t.Fatalf("TrainEnsemble() error = %v", err)
	}
	mae, err := e.MAE(linearRows(100))
	if err != nil {
		t.Fatalf("MAE() error = %v", err)
	}
	if mae > 1.0 {
		t.Errorf("MAE = %v, want < 1.0 on training data", mae)
	}
}

func TestResolver(t *testing.T) {
	r := NewResolver(ResolverConfig{ColdThreshold: 10, WarmThreshold: 50, ColdDefaultQuantity: 5})

	tests := []struct {
		name         string
		state        models.VenueState
		samples      int
		modelQty     float64
		movingAvg    float64
		peerMedian   float64
		increment    int
		wantQty      int
		wantBlended  bool
		wantFallback bool
	}{
		{
			name:  "hot uses model",
			state: models.VenueHot, samples: 100, modelQty: 17, increment: 1,
			wantQty: 17,
		},
		{
			name:  "hot rounds up to increment",
			state: models.VenueHot, samples: 100, modelQty: 17, increment: 6,
			wantQty: 18,
		},
		{
			name:  "hot negative clamps to zero",
			state: models.VenueHot, samples: 100, modelQty: -3, increment: 1,
			wantQty: 0,
		},
		{
			name:  "warm midpoint blends evenly",
			state: models.VenueWarm, samples: 30, modelQty: 20, movingAvg: 10, increment: 1,
			wantQty: 15, wantBlended: true,
		},
		{
			name:  "warm near cold boundary leans on average",
			state: models.VenueWarm, samples: 10, modelQty: 20, movingAvg: 10, increment: 1,
			wantQty: 10, wantBlended: true,
		},
		{
			name:  "cold uses peer median",
			state: models.VenueCold, samples: 2, modelQty: 99, peerMedian: 8, increment: 1,
			wantQty: 8, wantFallback: true,
		},
		{
			name:  "cold without peers uses default",
			state: models.VenueCold, samples: 0, modelQty: 99, increment: 1,
			wantQty: 5, wantFallback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(tt.state, tt.samples, tt.modelQty, tt.movingAvg, tt.peerMedian, tt.increment)
			if res.Quantity != tt.wantQty {
				t.Errorf("Quantity = %d, want %d", res.Quantity, tt.wantQty)
			}
			if res.Blended != tt.wantBlended {
				t.Errorf("Blended = %v, want %v", res.Blended, tt.wantBlended)
			}
			if res.Fallback != tt.wantFallback {
				t.Errorf("Fallback = %v, want %v", res.Fallback, tt.wantFallback)
			}
		})
	}
}

func TestPeerMedian(t *testing.T) {
	tests := []struct {
		name  string
		means []float64
		want  float64
	}{
		{"empty", nil, 0},
		{"single", []float64{7}, 7},
		{"odd", []float64{3, 9, 5}, 5},
		{"even", []float64{2, 8, 4, 6}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PeerMedian(tt.means); got != tt.want {
				t.Errorf("PeerMedian(%v) = %v, want %v", tt.means, got, tt.want)
			}
		})
	}
}

func TestConfidenceTierRules(t *testing.T) {
	e := NewEstimator(0.35)

	tests := []struct {
		name string
		in   ConfidenceInput
		want models.ConfidenceTier
	}{
		{"degraded dominates", ConfidenceInput{State: models.VenueHot, Degraded: true}, models.ConfidenceLow},
		{"cold is low", ConfidenceInput{State: models.VenueCold}, models.ConfidenceLow},
		{"stale hot is low", ConfidenceInput{State: models.VenueHot, Stale: true, Uncertainty: 0.01}, models.ConfidenceLow},
		{"warm is medium", ConfidenceInput{State: models.VenueWarm, Uncertainty: 0.01}, models.ConfidenceMedium},
		{"hot uncertain is medium", ConfidenceInput{State: models.VenueHot, Uncertainty: 0.5}, models.ConfidenceMedium},
		{"hot fresh certain is high", ConfidenceInput{State: models.VenueHot, Uncertainty: 0.1}, models.ConfidenceHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Tier(tt.in); got != tt.want {
				t.Errorf("Tier(%+v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitHoldout(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := linearRows(100)
	for i := range rows {
		rows[i].Date = base.AddDate(0, 0, i)
	}
	// Present shuffled so the split has to order by date itself.
	for i := range rows {
		j := (i * 37) % len(rows)
		rows[i], rows[j] = rows[j], rows[i]
	}

	train, holdout := SplitHoldout(rows, 0.2)

	if len(holdout) != 20 {
		t.Errorf("holdout size = %d, want 20", len(holdout))
	}
	if len(train) != 80 {
		t.Errorf("train size = %d, want 80", len(train))
	}

	// The holdout must be the most recent slice: every holdout row dated
	// on or after every training row.
	oldestHoldout := holdout[0].Date
	for _, r := range holdout {
		if r.Date.Before(oldestHoldout) {
			oldestHoldout = r.Date
		}
	}
	for _, r := range train {
		if r.Date.After(oldestHoldout) {
			t.Fatalf("training row dated %v after holdout start %v", r.Date, oldestHoldout)
		}
	}
	if want := base.AddDate(0, 0, 80); !oldestHoldout.Equal(want) {
		t.Errorf("holdout starts %v, want %v", oldestHoldout, want)
	}

	// Tiny input still leaves at least one row on each side.
	train, holdout = SplitHoldout(linearRows(2), 0.2)
	if len(train) != 1 || len(holdout) != 1 {
		t.Errorf("split of 2 rows = %d/%d, want 1/1", len(train), len(holdout))
	}
}
