// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package advisor

import (
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/kisanlabs/agroadvisor/internal/advisor/models"
)

// Train fits every task's estimator on the corpus and computes in-sample
// quality metrics. The returned set is ready for publication.
func Train(cfg Config, records []TrainingRecord, version int) (*ModelSet, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty training corpus", ErrTrainingFailed)
	}

	codec := newCodec(records)
	x, err := codec.EncodeAll(records)
	if err != nil {
		return nil, fmt.Errorf("%w: encode corpus: %v", ErrTrainingFailed, err)
	}

	labels := make([]string, len(records))
	yYield := make([][]float64, len(records))
	yFert := make([][]float64, len(records))
	yPrice := make([][]float64, len(records))
	yWeather := make([][]float64, len(records))
	for i, r := range records {
		labels[i] = r.Crop
		yYield[i] = []float64{r.Yield}
		yFert[i] = []float64{r.Nitrogen, r.Phosphorus, r.Potassium}
		yPrice[i] = []float64{ReferencePrice(r.Crop)}
		yWeather[i] = []float64{weatherSuitability(r.Crop, r.Conditions)}
	}

	bundles := make(map[Task]*ModelBundle, len(AllTasks()))

	// Crop classification runs on raw encoded features; distance-weighted
	// voting needs an exact query to land on an exact training row.
	classifier := models.NewKNNClassifier(cfg.Neighbors)
	if err := classifier.Fit(x, labels); err != nil {
		return nil, fmt.Errorf("%w: fit %s: %v", ErrTrainingFailed, TaskCrop, err)
	}
	bundles[TaskCrop] = &ModelBundle{Task: TaskCrop, Classifier: classifier}

	regressionTargets := []struct {
		task      Task
		targets   [][]float64
		regressor models.Regressor
	}{
		{TaskYield, yYield, models.NewKNNRegressor(cfg.Neighbors, 1)},
		{TaskFertilizer, yFert, models.NewKNNRegressor(cfg.Neighbors, 3)},
		{TaskPrice, yPrice, models.NewRidgeRegressor(cfg.RidgeLambda, 1)},
		{TaskWeatherImpact, yWeather, models.NewKNNRegressor(cfg.Neighbors, 1)},
	}
	for _, rt := range regressionTargets {
		scaler := models.NewStandardScaler()
		scaler.Fit(x)
		scaled := scaler.TransformMatrix(x)
		if err := rt.regressor.Fit(scaled, rt.targets); err != nil {
			return nil, fmt.Errorf("%w: fit %s: %v", ErrTrainingFailed, rt.task, err)
		}
		bundles[rt.task] = &ModelBundle{Task: rt.task, Regressor: rt.regressor, Scaler: scaler}
	}

	metrics, err := computeMetrics(bundles, x, labels, regressionTargets)
	if err != nil {
		return nil, fmt.Errorf("%w: metrics: %v", ErrTrainingFailed, err)
	}

	return &ModelSet{
		Version:     version,
		Codec:       codec,
		Bundles:     bundles,
		Metrics:     metrics,
		RecordCount: len(records),
		TrainedAt:   time.Now().UTC(),
	}, nil
}

func computeMetrics(bundles map[Task]*ModelBundle, x [][]float64, labels []string, regression []struct {
	task      Task
	targets   [][]float64
	regressor models.Regressor
}) (Metrics, error) {
	tasks := make(map[Task]TaskMetrics, len(bundles))

	acc, err := classifierAccuracy(bundles[TaskCrop].Classifier, x, labels)
	if err != nil {
		return Metrics{}, err
	}
	tasks[TaskCrop] = TaskMetrics{Accuracy: acc}

	for _, rt := range regression {
		bundle := bundles[rt.task]
		preds := make([][]float64, len(x))
		for i, row := range x {
			p, err := bundle.Regressor.Predict(bundle.Scaler.Transform(row))
			if err != nil {
				return Metrics{}, err
			}
			preds[i] = p
		}

		r2, rmse, err := regressionQuality(preds, rt.targets)
		if err != nil {
			return Metrics{}, err
		}
		tm := TaskMetrics{R2: r2}
		if rt.task == TaskYield {
			tm.RMSE = rmse
		}
		tasks[rt.task] = tm
	}

	return Metrics{Tasks: tasks, LastUpdated: time.Now().UTC()}, nil
}

// classifierAccuracy is the in-sample fraction of rows whose top-probability
// class matches the label. Ties break toward the lexically first class.
func classifierAccuracy(c *models.KNNClassifier, x [][]float64, labels []string) (float64, error) {
	correct := 0
	for i, row := range x {
		proba, err := c.PredictProba(row)
		if err != nil {
			return 0, err
		}
		var best string
		bestP := -1.0
		for _, class := range c.Classes() {
			if p := proba[class]; p > bestP {
				best, bestP = class, p
			}
		}
		if best == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(x)), nil
}

// regressionQuality computes R² and RMSE pooled across all output columns.
func regressionQuality(preds, actual [][]float64) (float64, float64, error) {
	var flatPred, flatActual []float64
	for i := range actual {
		flatPred = append(flatPred, preds[i]...)
		flatActual = append(flatActual, actual[i]...)
	}

	mean, err := stats.Mean(flatActual)
	if err != nil {
		return 0, 0, err
	}

	var ssRes, ssTot float64
	sqErrs := make([]float64, len(flatActual))
	for i, a := range flatActual {
		d := a - flatPred[i]
		ssRes += d * d
		sqErrs[i] = d * d
		t := a - mean
		ssTot += t * t
	}

	meanSqErr, err := stats.Mean(sqErrs)
	if err != nil {
		return 0, 0, err
	}
	rmse := math.Sqrt(meanSqErr)

	if ssTot == 0 {
		if ssRes == 0 {
			return 1, rmse, nil
		}
		return 0, rmse, nil
	}
	return 1 - ssRes/ssTot, rmse, nil
}
