// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package providers

import (
	"context"
	"strings"
	"time"
)

// StaticWeather derives conditions from coarse latitude bands. It stands
// in for a meteorological API and is deterministic so the engine's
// outputs stay reproducible in tests and demos.
type StaticWeather struct{}

// NewStaticWeather returns the table-backed weather provider.
func NewStaticWeather() *StaticWeather { return &StaticWeather{} }

// Current maps the latitude band to a regional climate normal. Northern
// plains run cooler and drier than the southern coastal belt.
func (s *StaticWeather) Current(ctx context.Context, latitude, longitude float64) (Observation, error) {
	if err := ctx.Err(); err != nil {
		return Observation{}, err
	}

	obs := Observation{TemperatureC: 25, RainfallMM: 900, Humidity: 65, Station: "central"}
	switch {
	case latitude > 30:
		obs = Observation{TemperatureC: 20, RainfallMM: 650, Humidity: 55, Station: "northern"}
	case latitude < 20:
		obs = Observation{TemperatureC: 30, RainfallMM: 1400, Humidity: 75, Station: "southern"}
	}
	return obs, nil
}

// staticQuotes carries wholesale mandi prices in rupees per quintal.
var staticQuotes = map[string]float64{
	"rice":       3500,
	"wheat":      2200,
	"maize":      1900,
	"tomato":     3200,
	"onion":      2800,
	"watermelon": 1500,
	"cucumber":   2050,
}

// StaticMarket serves quotes from a fixed price table.
type StaticMarket struct {
	market string
	now    func() time.Time
}

// NewStaticMarket returns the table-backed market provider.
func NewStaticMarket() *StaticMarket {
	return &StaticMarket{market: "delhi", now: time.Now}
}

// Quote looks the crop up case-insensitively. Crops without a listing
// return ok=false so callers can fall back to reference prices.
func (s *StaticMarket) Quote(ctx context.Context, crop string) (Quote, bool, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, false, err
	}

	price, ok := staticQuotes[strings.ToLower(strings.TrimSpace(crop))]
	if !ok {
		return Quote{}, false, nil
	}
	return Quote{
		Crop:       strings.ToLower(strings.TrimSpace(crop)),
		PriceINR:   price,
		Market:     s.market,
		ObservedAt: s.now(),
	}, true, nil
}

var (
	_ WeatherProvider = (*StaticWeather)(nil)
	_ MarketProvider  = (*StaticMarket)(nil)
)
