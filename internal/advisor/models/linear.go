// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// RidgeRegressor is a regularized linear least-squares regressor solved via
// the normal equations. The small L2 penalty keeps the system well
// conditioned on the near-collinear feature matrices produced by the
// bootstrap dataset.
//
// Coefficients are stored as plain slices so fitted models serialize with
// encoding/gob; gonum matrices are only used transiently during Fit.
type RidgeRegressor struct {
	Lambda float64
	NumOut int

	// Coef holds one column of weights per output, bias term last.
	Coef [][]float64
}

// NewRidgeRegressor creates a ridge regressor with the given penalty.
func NewRidgeRegressor(lambda float64, outputs int) *RidgeRegressor {
	if lambda <= 0 {
		lambda = 1e-6
	}
	if outputs <= 0 {
		outputs = 1
	}
	return &RidgeRegressor{Lambda: lambda, NumOut: outputs}
}

// Fit solves (XᵀX + λI)W = XᵀY for the weight matrix W.
func (r *RidgeRegressor) Fit(x [][]float64, y [][]float64) error {
	if len(x) == 0 {
		return fmt.Errorf("empty training matrix")
	}
	if len(x) != len(y) {
		return fmt.Errorf("feature/target length mismatch: %d != %d", len(x), len(y))
	}

	rows := len(x)
	cols := len(x[0]) + 1 // bias column

	xb := mat.NewDense(rows, cols, nil)
	for i, row := range x {
		if len(row) != cols-1 {
			return fmt.Errorf("feature row %d has %d columns, want %d", i, len(row), cols-1)
		}
		for j, v := range row {
			xb.Set(i, j, v)
		}
		xb.Set(i, cols-1, 1)
	}

	yb := mat.NewDense(rows, r.NumOut, nil)
	for i, row := range y {
		if len(row) != r.NumOut {
			return fmt.Errorf("target row %d has %d outputs, want %d", i, len(row), r.NumOut)
		}
		for j, v := range row {
			yb.Set(i, j, v)
		}
	}

	var xtx mat.Dense
	xtx.Mul(xb.T(), xb)
	for j := 0; j < cols; j++ {
		xtx.Set(j, j, xtx.At(j, j)+r.Lambda)
	}

	var xty mat.Dense
	xty.Mul(xb.T(), yb)

	var w mat.Dense
	if err := w.Solve(&xtx, &xty); err != nil {
		return fmt.Errorf("solve normal equations: %w", err)
	}

	coef := make([][]float64, r.NumOut)
	for out := 0; out < r.NumOut; out++ {
		coef[out] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			coef[out][j] = w.At(j, out)
		}
	}
	r.Coef = coef

	return nil
}

// Outputs returns the number of target outputs.
func (r *RidgeRegressor) Outputs() int {
	return r.NumOut
}

// Predict evaluates the linear model for a single feature vector.
func (r *RidgeRegressor) Predict(x []float64) ([]float64, error) {
	if len(r.Coef) == 0 {
		return nil, fmt.Errorf("regressor not fitted")
	}
	if len(x) != len(r.Coef[0])-1 {
		return nil, fmt.Errorf("feature dimension mismatch: %d != %d", len(x), len(r.Coef[0])-1)
	}

	out := make([]float64, r.NumOut)
	for o, w := range r.Coef {
		v := w[len(w)-1] // bias
		for j, xv := range x {
			v += w[j] * xv
		}
		out[o] = v
	}
	return out, nil
}

// Ensure estimators satisfy the interfaces.
var (
	_ Classifier = (*KNNClassifier)(nil)
	_ Regressor  = (*KNNRegressor)(nil)
	_ Regressor  = (*RidgeRegressor)(nil)
)
