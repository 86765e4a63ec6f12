// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package providers

import (
	"context"
	"testing"
	"time"
)

func TestStaticWeatherLatitudeBands(t *testing.T) {
	tests := []struct {
		name     string
		latitude float64
		wantTemp float64
		wantRain float64
	}{
		{name: "northern plains", latitude: 31.1, wantTemp: 20, wantRain: 650},
		{name: "central belt", latitude: 24.5, wantTemp: 25, wantRain: 900},
		{name: "southern coast", latitude: 13.0, wantTemp: 30, wantRain: 1400},
	}

	w := NewStaticWeather()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			obs, err := w.Current(context.Background(), tc.latitude, 77.2)
			if err != nil {
				t.Fatalf("Current: %v", err)
			}
			if obs.TemperatureC != tc.wantTemp {
				t.Errorf("temperature = %v, want %v", obs.TemperatureC, tc.wantTemp)
			}
			if obs.RainfallMM != tc.wantRain {
				t.Errorf("rainfall = %v, want %v", obs.RainfallMM, tc.wantRain)
			}
			if obs.Humidity <= 0 || obs.Humidity > 100 {
				t.Errorf("humidity = %v, want within (0, 100]", obs.Humidity)
			}
		})
	}
}

func TestStaticWeatherHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewStaticWeather().Current(ctx, 25, 77); err == nil {
		t.Error("Current with cancelled context succeeded, want error")
	}
}

func TestStaticMarketQuotes(t *testing.T) {
	m := NewStaticMarket()

	quote, ok, err := m.Quote(context.Background(), "Rice")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !ok {
		t.Fatal("rice not listed")
	}
	if quote.PriceINR != 3500 {
		t.Errorf("rice price = %v, want 3500", quote.PriceINR)
	}
	if quote.Crop != "rice" {
		t.Errorf("crop normalized to %q, want rice", quote.Crop)
	}

	_, ok, err = m.Quote(context.Background(), "saffron")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if ok {
		t.Error("unlisted crop reported as listed")
	}
}

type countingMarket struct {
	calls int
	inner MarketProvider
}

func (c *countingMarket) Quote(ctx context.Context, crop string) (Quote, bool, error) {
	c.calls++
	return c.inner.Quote(ctx, crop)
}

func TestCachedMarketMemoizes(t *testing.T) {
	counting := &countingMarket{inner: NewStaticMarket()}
	cached := NewCachedMarket(counting, time.Minute)

	for i := 0; i < 3; i++ {
		quote, ok, err := cached.Quote(context.Background(), "wheat")
		if err != nil {
			t.Fatalf("Quote %d: %v", i, err)
		}
		if !ok || quote.PriceINR != 2200 {
			t.Fatalf("Quote %d = %v ok=%v, want 2200", i, quote.PriceINR, ok)
		}
	}
	if counting.calls != 1 {
		t.Errorf("underlying calls = %d, want 1", counting.calls)
	}

	// Different crops are cached independently, including negatives.
	if _, _, err := cached.Quote(context.Background(), "saffron"); err != nil {
		t.Fatalf("Quote saffron: %v", err)
	}
	if _, _, err := cached.Quote(context.Background(), "saffron"); err != nil {
		t.Fatalf("Quote saffron: %v", err)
	}
	if counting.calls != 2 {
		t.Errorf("underlying calls = %d, want 2", counting.calls)
	}
}

func TestCachedMarketExpires(t *testing.T) {
	counting := &countingMarket{inner: NewStaticMarket()}
	cached := NewCachedMarket(counting, time.Minute)

	clock := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	cached.now = func() time.Time { return clock }

	if _, _, err := cached.Quote(context.Background(), "maize"); err != nil {
		t.Fatalf("Quote: %v", err)
	}
	clock = clock.Add(2 * time.Minute)
	if _, _, err := cached.Quote(context.Background(), "maize"); err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if counting.calls != 2 {
		t.Errorf("underlying calls = %d, want 2 after expiry", counting.calls)
	}
}
