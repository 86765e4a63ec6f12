// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package advisor

import (
	"errors"
	"testing"
)

func TestTrainModelSet(t *testing.T) {
	set, err := Train(DefaultConfig(), BootstrapRecords(), 1)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	if set.Version != 1 || set.RecordCount != 12 {
		t.Errorf("set = v%d rows %d, want v1 rows 12", set.Version, set.RecordCount)
	}
	for _, task := range AllTasks() {
		if set.Bundle(task) == nil {
			t.Errorf("no bundle for task %s", task)
		}
	}
	if set.Bundle(TaskCrop).Classifier == nil {
		t.Error("crop bundle has no classifier")
	}
	for _, task := range []Task{TaskYield, TaskFertilizer, TaskPrice, TaskWeatherImpact} {
		b := set.Bundle(task)
		if b.Regressor == nil || b.Scaler == nil {
			t.Errorf("%s bundle missing regressor or scaler", task)
		}
	}
}

func TestTrainModelSetMetrics(t *testing.T) {
	set, err := Train(DefaultConfig(), BootstrapRecords(), 1)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	// In-sample, every query is its own nearest neighbour, so the
	// distance-weighted estimators reproduce the corpus almost exactly.
	if acc := set.TaskMetrics(TaskCrop).Accuracy; acc < 0.99 {
		t.Errorf("crop accuracy = %v, want near 1", acc)
	}
	if r2 := set.TaskMetrics(TaskYield).R2; r2 < 0.99 {
		t.Errorf("yield r2 = %v, want near 1", r2)
	}
	if rmse := set.TaskMetrics(TaskYield).RMSE; rmse > 0.1 {
		t.Errorf("yield rmse = %v, want near 0", rmse)
	}
	if r2 := set.TaskMetrics(TaskFertilizer).R2; r2 < 0.99 {
		t.Errorf("fertilizer r2 = %v, want near 1", r2)
	}
	if set.Metrics.LastUpdated.IsZero() {
		t.Error("metrics timestamp not set")
	}
}

func TestTrainModelSetEmptyCorpus(t *testing.T) {
	_, err := Train(DefaultConfig(), nil, 1)
	if !errors.Is(err, ErrTrainingFailed) {
		t.Errorf("error = %v, want ErrTrainingFailed", err)
	}
}

func TestRegressionQuality(t *testing.T) {
	preds := [][]float64{{1}, {2}, {3}}
	actual := [][]float64{{1}, {2}, {3}}
	r2, rmse, err := regressionQuality(preds, actual)
	if err != nil {
		t.Fatalf("regressionQuality: %v", err)
	}
	if r2 != 1 || rmse != 0 {
		t.Errorf("perfect fit: r2=%v rmse=%v, want 1 and 0", r2, rmse)
	}

	preds = [][]float64{{2}, {2}, {2}}
	r2, _, err = regressionQuality(preds, actual)
	if err != nil {
		t.Fatalf("regressionQuality: %v", err)
	}
	if r2 >= 1 {
		t.Errorf("mean predictor r2 = %v, want below 1", r2)
	}
}

func TestRankScores(t *testing.T) {
	proba := map[string]float64{"rice": 0.6, "wheat": 0.3, "maize": 0.1, "onion": 0.0}
	scores := rankScores(proba, []string{"maize", "onion", "rice", "wheat"}, 3)

	if len(scores) != 3 {
		t.Fatalf("got %d scores, want 3", len(scores))
	}
	if scores[0].Crop != "rice" || scores[1].Crop != "wheat" || scores[2].Crop != "maize" {
		t.Errorf("ranking = %v, want rice, wheat, maize", scores)
	}
	if scores[0].Confidence != "medium" {
		t.Errorf("confidence for 0.6 = %q, want medium", scores[0].Confidence)
	}
}

func TestConfidenceLabel(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0.95, "high"},
		{0.71, "high"},
		{0.7, "medium"},
		{0.41, "medium"},
		{0.4, "low"},
		{0.05, "low"},
	}
	for _, tt := range tests {
		if got := ConfidenceLabel(tt.p); got != tt.want {
			t.Errorf("ConfidenceLabel(%v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}
