// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package advisor

import "fmt"

// bootstrapConditions is the deterministic seed corpus the engine trains on
// before any feedback arrives. One representative observation per soil and
// season combination, drawn from agricultural research data.
var bootstrapConditions = []struct {
	soil   string
	season string
	temp   float64
	rain   float64
	hum    float64
	ph     float64
	om     float64
	crop   string
}{
	{"loamy", "kharif", 28, 1200, 70, 6.5, 2.5, "rice"},
	{"loamy", "rabi", 22, 400, 60, 6.5, 2.5, "wheat"},
	{"clayey", "kharif", 30, 1000, 75, 7.0, 2.0, "rice"},
	{"clayey", "rabi", 20, 300, 55, 7.0, 2.0, "wheat"},
	{"sandy", "kharif", 32, 800, 65, 6.0, 1.5, "maize"},
	{"sandy", "rabi", 25, 200, 50, 6.0, 1.5, "wheat"},
	{"silty", "kharif", 29, 1100, 68, 6.8, 2.2, "rice"},
	{"silty", "rabi", 23, 350, 58, 6.8, 2.2, "wheat"},
	{"loamy", "zaid", 35, 200, 60, 6.5, 2.5, "tomato"},
	{"clayey", "zaid", 33, 150, 65, 7.0, 2.0, "onion"},
	{"sandy", "zaid", 37, 100, 55, 6.0, 1.5, "watermelon"},
	{"silty", "zaid", 34, 180, 62, 6.8, 2.2, "cucumber"},
}

// BootstrapRecords builds the seed training corpus. Yield and fertilizer
// targets are derived from the agronomic tables, so repeated calls produce
// identical records.
func BootstrapRecords() []TrainingRecord {
	records := make([]TrainingRecord, 0, len(bootstrapConditions))
	for i, row := range bootstrapConditions {
		npk := fertilizerFor(row.crop, row.soil, row.season)
		records = append(records, TrainingRecord{
			SourceID: fmt.Sprintf("bootstrap-%02d", i),
			Conditions: Conditions{
				SoilType:      row.soil,
				Season:        row.season,
				Temperature:   row.temp,
				Rainfall:      row.rain,
				Humidity:      row.hum,
				PH:            row.ph,
				OrganicMatter: row.om,
			},
			Crop:       row.crop,
			Yield:      baseYieldFor(row.crop, row.soil),
			Nitrogen:   npk.Nitrogen,
			Phosphorus: npk.Phosphorus,
			Potassium:  npk.Potassium,
		})
	}
	return records
}
