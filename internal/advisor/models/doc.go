// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

// Package models implements the estimators and feature preprocessing used by
// the advisor engine.
//
// # Estimators
//
//   - KNNClassifier: distance-weighted k-nearest-neighbour classification
//     returning a full class-probability distribution
//   - KNNRegressor: distance-weighted k-nearest-neighbour regression with
//     one or more outputs
//   - RidgeRegressor: regularized linear least squares (normal equations)
//
// # Preprocessing
//
//   - LabelEncoder: categorical value to numeric code mapping; encoding an
//     unseen category is an error, never a silent default
//   - StandardScaler: per-feature zero-mean unit-variance normalization
//
// All estimator state is held in exported fields of plain Go types so fitted
// models serialize cleanly with encoding/gob.
//
// # Thread Safety
//
// Estimators are immutable after Fit. The registry layer guarantees a fitted
// estimator is never refit in place; retraining always builds a new instance.
package models
