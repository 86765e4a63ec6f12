// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package advisor

import (
	"github.com/kisanlabs/agroadvisor/internal/advisor/models"
)

// featureCount is the width of an encoded condition vector: encoded soil,
// encoded season, temperature, rainfall, humidity, pH, organic matter.
const featureCount = 7

// Codec encodes Conditions into the numeric feature vectors the estimators
// consume. The categorical mappings are fixed at training time; all bundles
// of a model set share one codec so their feature spaces agree.
type Codec struct {
	Soil   *models.LabelEncoder
	Season *models.LabelEncoder
}

// newCodec fits soil and season encoders on the training corpus.
func newCodec(records []TrainingRecord) *Codec {
	soils := make([]string, len(records))
	seasons := make([]string, len(records))
	for i, r := range records {
		soils[i] = r.SoilType
		seasons[i] = r.Season
	}

	soil := models.NewLabelEncoder("soil_type")
	soil.Fit(soils)
	season := models.NewLabelEncoder("season")
	season.Fit(seasons)

	return &Codec{Soil: soil, Season: season}
}

// Encode converts conditions to a feature vector. Unknown soil types or
// seasons fail with *models.UnknownCategoryError.
func (c *Codec) Encode(cond Conditions) ([]float64, error) {
	soil, err := c.Soil.Transform(cond.SoilType)
	if err != nil {
		return nil, err
	}
	season, err := c.Season.Transform(cond.Season)
	if err != nil {
		return nil, err
	}
	return []float64{
		soil,
		season,
		cond.Temperature,
		cond.Rainfall,
		cond.Humidity,
		cond.PH,
		cond.OrganicMatter,
	}, nil
}

// EncodeAll converts a training corpus to a feature matrix.
func (c *Codec) EncodeAll(records []TrainingRecord) ([][]float64, error) {
	x := make([][]float64, len(records))
	for i, r := range records {
		row, err := c.Encode(r.Conditions)
		if err != nil {
			return nil, err
		}
		x[i] = row
	}
	return x, nil
}
