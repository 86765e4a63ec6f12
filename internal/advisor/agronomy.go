// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package advisor

import "math"

// Agronomic reference tables derived from published crop research and
// government extension data. They seed the bootstrap corpus and provide
// training targets the feedback loop does not supply directly.

// baseYields maps crop and soil type to expected yield in tonnes/hectare.
var baseYields = map[string]map[string]float64{
	"rice":       {"loamy": 4.5, "clayey": 5.0, "sandy": 3.0, "silty": 4.2},
	"wheat":      {"loamy": 4.0, "clayey": 3.5, "sandy": 2.5, "silty": 3.8},
	"maize":      {"loamy": 6.0, "clayey": 5.5, "sandy": 4.5, "silty": 5.8},
	"tomato":     {"loamy": 25.0, "clayey": 22.0, "sandy": 18.0, "silty": 24.0},
	"onion":      {"loamy": 20.0, "clayey": 18.0, "sandy": 15.0, "silty": 19.0},
	"watermelon": {"loamy": 30.0, "clayey": 25.0, "sandy": 35.0, "silty": 28.0},
	"cucumber":   {"loamy": 15.0, "clayey": 12.0, "sandy": 10.0, "silty": 14.0},
}

const defaultBaseYield = 3.0

// baseYieldFor returns the reference yield for a crop and soil combination.
func baseYieldFor(crop, soil string) float64 {
	if bySoil, ok := baseYields[crop]; ok {
		if y, ok := bySoil[soil]; ok {
			return y
		}
	}
	return defaultBaseYield
}

// baseFertilizers maps a crop to its unadjusted NPK dose in kg/hectare.
var baseFertilizers = map[string]NPK{
	"rice":       {Nitrogen: 100, Phosphorus: 50, Potassium: 50},
	"wheat":      {Nitrogen: 120, Phosphorus: 60, Potassium: 40},
	"maize":      {Nitrogen: 150, Phosphorus: 80, Potassium: 60},
	"tomato":     {Nitrogen: 100, Phosphorus: 60, Potassium: 80},
	"onion":      {Nitrogen: 80, Phosphorus: 40, Potassium: 60},
	"watermelon": {Nitrogen: 60, Phosphorus: 40, Potassium: 40},
	"cucumber":   {Nitrogen: 80, Phosphorus: 50, Potassium: 60},
}

var defaultFertilizer = NPK{Nitrogen: 100, Phosphorus: 50, Potassium: 50}

// soilAdjustments scale the base dose for soil nutrient retention.
var soilAdjustments = map[string]NPK{
	"loamy":  {Nitrogen: 1.0, Phosphorus: 1.0, Potassium: 1.0},
	"clayey": {Nitrogen: 1.2, Phosphorus: 0.8, Potassium: 1.1},
	"sandy":  {Nitrogen: 1.5, Phosphorus: 1.3, Potassium: 1.4},
	"silty":  {Nitrogen: 1.1, Phosphorus: 1.0, Potassium: 1.1},
}

// seasonAdjustments scale the base dose for the cropping season.
var seasonAdjustments = map[string]NPK{
	"kharif": {Nitrogen: 1.1, Phosphorus: 1.0, Potassium: 1.0},
	"rabi":   {Nitrogen: 1.0, Phosphorus: 1.1, Potassium: 1.0},
	"zaid":   {Nitrogen: 1.2, Phosphorus: 1.0, Potassium: 1.1},
}

var unitAdjustment = NPK{Nitrogen: 1, Phosphorus: 1, Potassium: 1}

// fertilizerFor computes the adjusted NPK dose for a crop, soil, and season.
func fertilizerFor(crop, soil, season string) NPK {
	base, ok := baseFertilizers[crop]
	if !ok {
		base = defaultFertilizer
	}
	soilAdj, ok := soilAdjustments[soil]
	if !ok {
		soilAdj = unitAdjustment
	}
	seasonAdj, ok := seasonAdjustments[season]
	if !ok {
		seasonAdj = unitAdjustment
	}
	return NPK{
		Nitrogen:   base.Nitrogen * soilAdj.Nitrogen * seasonAdj.Nitrogen,
		Phosphorus: base.Phosphorus * soilAdj.Phosphorus * seasonAdj.Phosphorus,
		Potassium:  base.Potassium * soilAdj.Potassium * seasonAdj.Potassium,
	}
}

// soilPHTable maps soil type to a typical pH when the caller has no
// measurement.
var soilPHTable = map[string]float64{
	"clay":   6.5,
	"clayey": 6.5,
	"loamy":  6.8,
	"sandy":  7.0,
	"silty":  6.7,
	"black":  7.2,
	"red":    6.3,
}

const defaultSoilPH = 6.8

// SoilPH returns a typical pH for the soil type.
func SoilPH(soil string) float64 {
	if ph, ok := soilPHTable[soil]; ok {
		return ph
	}
	return defaultSoilPH
}

// organicMatterTable maps soil type to typical organic matter percent.
var organicMatterTable = map[string]float64{
	"clay":   2.5,
	"clayey": 2.5,
	"loamy":  3.0,
	"sandy":  1.5,
	"silty":  2.8,
	"black":  4.0,
	"red":    2.0,
}

const defaultOrganicMatter = 2.5

// OrganicMatterFor returns a typical organic matter percent for the soil
// type.
func OrganicMatterFor(soil string) float64 {
	if om, ok := organicMatterTable[soil]; ok {
		return om
	}
	return defaultOrganicMatter
}

// referencePrices maps a crop to its reference mandi price in rupees per
// quintal. Used as the price model's training target and by the market
// reranker when no live quote is available.
var referencePrices = map[string]float64{
	"rice":       2200,
	"wheat":      2400,
	"maize":      1850,
	"tomato":     3200,
	"onion":      2800,
	"watermelon": 1500,
	"cucumber":   2050,
}

const defaultReferencePrice = 2000

// ReferencePrice returns the reference mandi price for a crop.
func ReferencePrice(crop string) float64 {
	if p, ok := referencePrices[crop]; ok {
		return p
	}
	return defaultReferencePrice
}

// cropClimate holds the temperature (°C) and seasonal rainfall (mm) optimum
// per crop, used to derive the weather impact training target.
var cropClimate = map[string]struct {
	temp float64
	rain float64
}{
	"rice":       {temp: 29, rain: 1100},
	"wheat":      {temp: 22, rain: 320},
	"maize":      {temp: 30, rain: 700},
	"tomato":     {temp: 33, rain: 220},
	"onion":      {temp: 32, rain: 180},
	"watermelon": {temp: 36, rain: 120},
	"cucumber":   {temp: 33, rain: 200},
}

// weatherSuitability scores how well the conditions match a crop's climate
// optimum, in (0, 1]. A perfect match scores 1.
func weatherSuitability(crop string, cond Conditions) float64 {
	opt, ok := cropClimate[crop]
	if !ok {
		opt.temp = 28
		opt.rain = 600
	}
	tempPenalty := math.Abs(cond.Temperature-opt.temp) / 20
	rainPenalty := math.Abs(cond.Rainfall-opt.rain) / 1000
	return 1 / (1 + tempPenalty + rainPenalty)
}
