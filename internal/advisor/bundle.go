// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package advisor

import (
	"sync/atomic"
	"time"

	"github.com/kisanlabs/agroadvisor/internal/advisor/models"
)

// ModelBundle is one trained estimator with its preprocessing. The crop
// task carries a classifier and no scaler; every other task carries a
// scaler and a regressor.
type ModelBundle struct {
	Task       Task
	Classifier *models.KNNClassifier
	Regressor  models.Regressor
	Scaler     *models.StandardScaler
}

// ModelSet is an immutable snapshot of all trained bundles. Readers obtain
// the current set from the registry; training builds a fresh set and
// publishes it atomically, so a set is never mutated after publication.
type ModelSet struct {
	Version     int
	Codec       *Codec
	Bundles     map[Task]*ModelBundle
	Metrics     Metrics
	RecordCount int
	TrainedAt   time.Time
}

// Bundle returns the bundle for a task, or nil when the task is unknown.
func (s *ModelSet) Bundle(task Task) *ModelBundle {
	return s.Bundles[task]
}

// TaskMetrics returns the quality figures recorded for a task at training
// time.
func (s *ModelSet) TaskMetrics(task Task) TaskMetrics {
	return s.Metrics.Tasks[task]
}

// registry publishes model sets to concurrent readers without locking the
// request path.
type registry struct {
	current atomic.Pointer[ModelSet]
}

// Current returns the published model set, or ErrModelUnavailable before
// the first training completes.
func (r *registry) Current() (*ModelSet, error) {
	set := r.current.Load()
	if set == nil {
		return nil, ErrModelUnavailable
	}
	return set, nil
}

// Publish swaps in a new model set. In-flight requests keep using the set
// they already loaded.
func (r *registry) Publish(set *ModelSet) {
	r.current.Store(set)
}
