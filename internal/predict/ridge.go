// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package predict

import (
	"errors"
	"fmt"
	"math"
)

// ErrSingularSystem indicates the normal equations could not be solved,
// which with a positive ridge penalty means degenerate input.
var ErrSingularSystem = errors.New("singular linear system")

// solveRidge fits ridge regression coefficients by solving the normal
// equations (X'X + lambda*I) w = X'y with Gaussian elimination. An
// intercept column is prepended internally and left unpenalized; the
// returned slice is [intercept, w_0, ..., w_{d-1}].
func solveRidge(features [][]float64, targets []float64, lambda float64) ([]float64, error) {
	n := len(features)
	if n == 0 || n != len(targets) {
		return nil, fmt.Errorf("ridge: %d feature rows for %d targets", n, len(targets))
	}
	d := len(features[0]) + 1

	// Build the augmented system [A | b] with A = X'X + lambda*I, b = X'y.
	system := make([][]float64, d)
	for i := range system {
		system[i] = make([]float64, d+1)
	}

	row := make([]float64, d)
	for r := 0; r < n; r++ {
		if len(features[r]) != d-1 {
			return nil, fmt.Errorf("ridge: row %d has %d dims, want %d", r, len(features[r]), d-1)
		}
		row[0] = 1
		copy(row[1:], features[r])
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				system[i][j] += row[i] * row[j]
			}
			system[i][d] += row[i] * targets[r]
		}
	}
	for i := 1; i < d; i++ {
		system[i][i] += lambda
	}

	return gaussianSolve(system)
}

// gaussianSolve solves the augmented system in place with partial
// pivoting.
func gaussianSolve(system [][]float64) ([]float64, error) {
	d := len(system)

	for col := 0; col < d; col++ {
		pivot := col
		for r := col + 1; r < d; r++ {
			if math.Abs(system[r][col]) > math.Abs(system[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(system[pivot][col]) < 1e-12 {
			return nil, ErrSingularSystem
		}
		system[col], system[pivot] = system[pivot], system[col]

		for r := col + 1; r < d; r++ {
			factor := system[r][col] / system[col][col]
			for c := col; c <= d; c++ {
				system[r][c] -= factor * system[col][c]
			}
		}
	}

	coeffs := make([]float64, d)
	for i := d - 1; i >= 0; i-- {
		sum := system[i][d]
		for j := i + 1; j < d; j++ {
			sum -= system[i][j] * coeffs[j]
		}
		coeffs[i] = sum / system[i][i]
	}
	return coeffs, nil
}

// predictRidge evaluates a fitted coefficient vector on a feature vector.
func predictRidge(coeffs, features []float64) float64 {
	out := coeffs[0]
	for i, f := range features {
		out += coeffs[i+1] * f
	}
	return out
}
