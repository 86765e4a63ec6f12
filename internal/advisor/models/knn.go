// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package models

import (
	"fmt"
	"math"
	"sort"
)

// distanceEpsilon floors neighbour distances so an exact feature match
// dominates the vote without dividing by zero.
const distanceEpsilon = 1e-9

// Classifier predicts a probability distribution over string classes.
type Classifier interface {
	Fit(x [][]float64, labels []string) error
	PredictProba(x []float64) (map[string]float64, error)
	Classes() []string
}

// Regressor predicts one or more continuous targets.
type Regressor interface {
	Fit(x [][]float64, y [][]float64) error
	Predict(x []float64) ([]float64, error)
	Outputs() int
}

// KNNClassifier is a distance-weighted k-nearest-neighbour classifier.
// Neighbour votes are weighted by inverse euclidean distance, so a query
// identical to a training row yields a near-unit probability for its class.
type KNNClassifier struct {
	K         int
	X         [][]float64
	Labels    []string
	ClassList []string
}

// NewKNNClassifier creates a classifier considering up to k neighbours.
func NewKNNClassifier(k int) *KNNClassifier {
	if k <= 0 {
		k = 5
	}
	return &KNNClassifier{K: k}
}

// Fit stores the training matrix and label column.
func (c *KNNClassifier) Fit(x [][]float64, labels []string) error {
	if len(x) == 0 {
		return fmt.Errorf("empty training matrix")
	}
	if len(x) != len(labels) {
		return fmt.Errorf("feature/label length mismatch: %d != %d", len(x), len(labels))
	}

	c.X = copyMatrix(x)
	c.Labels = make([]string, len(labels))
	copy(c.Labels, labels)

	seen := make(map[string]struct{}, len(labels))
	classes := make([]string, 0, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		classes = append(classes, l)
	}
	sort.Strings(classes)
	c.ClassList = classes

	return nil
}

// Classes returns the sorted class set seen at Fit time.
func (c *KNNClassifier) Classes() []string {
	return c.ClassList
}

// PredictProba returns the full class-probability distribution for a query.
// Probabilities sum to 1 across all known classes; classes not represented
// among the k nearest neighbours receive probability 0.
func (c *KNNClassifier) PredictProba(x []float64) (map[string]float64, error) {
	if len(c.X) == 0 {
		return nil, fmt.Errorf("classifier not fitted")
	}
	if len(x) != len(c.X[0]) {
		return nil, fmt.Errorf("feature dimension mismatch: %d != %d", len(x), len(c.X[0]))
	}

	nn := nearest(c.X, x, c.K)

	weights := make(map[string]float64, len(c.ClassList))
	var total float64
	for _, n := range nn {
		w := 1.0 / (n.dist + distanceEpsilon)
		weights[c.Labels[n.idx]] += w
		total += w
	}

	proba := make(map[string]float64, len(c.ClassList))
	for _, class := range c.ClassList {
		proba[class] = weights[class] / total
	}
	return proba, nil
}

// KNNRegressor is a distance-weighted k-nearest-neighbour regressor
// supporting multi-output targets.
type KNNRegressor struct {
	K      int
	NumOut int
	X      [][]float64
	Y      [][]float64
}

// NewKNNRegressor creates a regressor considering up to k neighbours.
func NewKNNRegressor(k, outputs int) *KNNRegressor {
	if k <= 0 {
		k = 3
	}
	if outputs <= 0 {
		outputs = 1
	}
	return &KNNRegressor{K: k, NumOut: outputs}
}

// Fit stores the training matrix and target rows.
func (r *KNNRegressor) Fit(x [][]float64, y [][]float64) error {
	if len(x) == 0 {
		return fmt.Errorf("empty training matrix")
	}
	if len(x) != len(y) {
		return fmt.Errorf("feature/target length mismatch: %d != %d", len(x), len(y))
	}
	for i, row := range y {
		if len(row) != r.NumOut {
			return fmt.Errorf("target row %d has %d outputs, want %d", i, len(row), r.NumOut)
		}
	}

	r.X = copyMatrix(x)
	r.Y = copyMatrix(y)
	return nil
}

// Outputs returns the number of target outputs.
func (r *KNNRegressor) Outputs() int {
	return r.NumOut
}

// Predict returns the inverse-distance-weighted mean of the k nearest
// neighbours' targets.
func (r *KNNRegressor) Predict(x []float64) ([]float64, error) {
	if len(r.X) == 0 {
		return nil, fmt.Errorf("regressor not fitted")
	}
	if len(x) != len(r.X[0]) {
		return nil, fmt.Errorf("feature dimension mismatch: %d != %d", len(x), len(r.X[0]))
	}

	nn := nearest(r.X, x, r.K)

	out := make([]float64, r.NumOut)
	var total float64
	for _, n := range nn {
		w := 1.0 / (n.dist + distanceEpsilon)
		total += w
		for j, v := range r.Y[n.idx] {
			out[j] += w * v
		}
	}
	for j := range out {
		out[j] /= total
	}
	return out, nil
}

type scoredRow struct {
	idx  int
	dist float64
}

// nearest returns up to k rows of x sorted by euclidean distance to q.
func nearest(x [][]float64, q []float64, k int) []scoredRow {
	rows := make([]scoredRow, len(x))
	for i, row := range x {
		rows[i] = scoredRow{idx: i, dist: euclidean(row, q)}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].dist < rows[j].dist })
	if k > len(rows) {
		k = len(rows)
	}
	return rows[:k]
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func copyMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		copy(out[i], row)
	}
	return out
}
