// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package models

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// UnknownCategoryError reports a categorical value absent from the fitted
// label mapping. Callers surface this as a request validation error.
type UnknownCategoryError struct {
	Field string
	Value string
	Known []string
}

// Error implements the error interface.
func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown %s %q (known: %s)", e.Field, e.Value, strings.Join(e.Known, ", "))
}

// LabelEncoder maps categorical string values to numeric codes.
// The class set is fixed at Fit time; Transform of an unseen value fails
// with *UnknownCategoryError.
type LabelEncoder struct {
	// Field names the attribute this encoder covers, used in errors.
	Field string

	// Classes is the sorted set of known values.
	Classes []string

	index map[string]int
}

// NewLabelEncoder creates an encoder for the named categorical field.
func NewLabelEncoder(field string) *LabelEncoder {
	return &LabelEncoder{Field: field}
}

// Fit builds the label mapping from the given values. Re-fitting replaces
// the prior mapping entirely.
func (e *LabelEncoder) Fit(values []string) {
	seen := make(map[string]struct{}, len(values))
	classes := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)

	e.Classes = classes
	e.index = nil
	e.buildIndex()
}

// buildIndex rebuilds the lookup map from Classes. Needed after gob decode,
// which only restores exported fields.
func (e *LabelEncoder) buildIndex() {
	e.index = make(map[string]int, len(e.Classes))
	for i, c := range e.Classes {
		e.index[c] = i
	}
}

// Transform returns the numeric code for a value.
func (e *LabelEncoder) Transform(value string) (float64, error) {
	if e.index == nil {
		e.buildIndex()
	}
	i, ok := e.index[value]
	if !ok {
		return 0, &UnknownCategoryError{Field: e.Field, Value: value, Known: e.Classes}
	}
	return float64(i), nil
}

// Contains reports whether the value is part of the fitted class set.
func (e *LabelEncoder) Contains(value string) bool {
	if e.index == nil {
		e.buildIndex()
	}
	_, ok := e.index[value]
	return ok
}

// StandardScaler normalizes features to zero mean and unit variance.
// Constant features pass through unchanged (standard deviation floor of 1).
type StandardScaler struct {
	Mean []float64
	Std  []float64
}

// NewStandardScaler creates an unfitted scaler.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit computes per-feature mean and standard deviation from the matrix.
// Re-fitting replaces the prior statistics.
func (s *StandardScaler) Fit(x [][]float64) {
	if len(x) == 0 {
		s.Mean, s.Std = nil, nil
		return
	}

	cols := len(x[0])
	mean := make([]float64, cols)
	std := make([]float64, cols)

	for _, row := range x {
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(x))
	for j := range mean {
		mean[j] /= n
	}

	for _, row := range x {
		for j, v := range row {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] == 0 {
			std[j] = 1
		}
	}

	s.Mean, s.Std = mean, std
}

// Transform scales a single feature vector.
func (s *StandardScaler) Transform(x []float64) []float64 {
	if len(s.Mean) != len(x) {
		out := make([]float64, len(x))
		copy(out, x)
		return out
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}

// TransformMatrix scales every row of the matrix.
func (s *StandardScaler) TransformMatrix(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = s.Transform(row)
	}
	return out
}
