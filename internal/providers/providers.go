// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

// Package providers defines the external data collaborators the engine
// consults at request time: weather observations used to fill missing
// field conditions, and wholesale market quotes used to rerank
// recommendations by profitability. Implementations here are static
// reference tables; production deployments swap in API-backed ones.
package providers

import (
	"context"
	"time"
)

// Observation is a current-weather snapshot for a location. Rainfall is
// the expected annual total in millimetres, matching the training corpus.
type Observation struct {
	TemperatureC float64
	RainfallMM   float64
	Humidity     float64
	Station      string
}

// Quote is a wholesale price for a commodity in rupees per quintal.
type Quote struct {
	Crop       string
	PriceINR   float64
	Market     string
	ObservedAt time.Time
}

// WeatherProvider resolves current conditions for a coordinate pair.
type WeatherProvider interface {
	Current(ctx context.Context, latitude, longitude float64) (Observation, error)
}

// MarketProvider resolves the current wholesale quote for a crop.
// Implementations return (Quote{}, false, nil) when no quote is listed.
type MarketProvider interface {
	Quote(ctx context.Context, crop string) (Quote, bool, error)
}
