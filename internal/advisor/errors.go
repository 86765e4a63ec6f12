// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package advisor

import (
	"errors"
	"fmt"
)

var (
	// ErrModelUnavailable is returned when no trained model set has been
	// published yet.
	ErrModelUnavailable = errors.New("no trained model available")

	// ErrTrainingFailed wraps failures of the training pipeline.
	ErrTrainingFailed = errors.New("model training failed")

	// ErrPersistence wraps failures of the feedback ledger or training
	// store.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError reports request input the engine cannot work with, such
// as an unknown soil type or an out-of-range rating.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
