// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

// Package reranking post-processes ranked crop lists with signals the
// estimators never see, currently wholesale market prices.
package reranking

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/kisanlabs/agroadvisor/internal/advisor"
	"github.com/kisanlabs/agroadvisor/internal/providers"
)

// Price bands in rupees per quintal and the boost each band earns.
const (
	highPriceINR   = 3000
	mediumPriceINR = 2000
	highBoost      = 1.2
	mediumBoost    = 1.1
)

// MarketReranker boosts crops that currently fetch strong wholesale
// prices. Quotes come from the market provider; crops without a listing
// fall back to the built-in reference price table. Prices influence
// ranking only and never feed back into training.
type MarketReranker struct {
	market providers.MarketProvider
	log    zerolog.Logger
}

// NewMarketReranker builds the reranker around a market provider.
func NewMarketReranker(market providers.MarketProvider, log zerolog.Logger) *MarketReranker {
	return &MarketReranker{
		market: market,
		log:    log.With().Str("component", "market_reranker").Logger(),
	}
}

func (r *MarketReranker) Name() string { return "market" }

// Rerank scales each score by its price band, caps at 1, and re-sorts.
// A provider error fails the whole pass so the caller can fall back to
// the model ordering.
func (r *MarketReranker) Rerank(ctx context.Context, cond advisor.Conditions, scores []advisor.CropScore) ([]advisor.CropScore, error) {
	out := make([]advisor.CropScore, len(scores))
	copy(out, scores)

	for i := range out {
		price, err := r.priceFor(ctx, out[i].Crop)
		if err != nil {
			return nil, err
		}

		boost := 1.0
		switch {
		case price > highPriceINR:
			boost = highBoost
		case price > mediumPriceINR:
			boost = mediumBoost
		}
		if boost == 1.0 {
			continue
		}

		boosted := out[i].Probability * boost
		if boosted > 1 {
			boosted = 1
		}
		r.log.Debug().
			Str("crop", out[i].Crop).
			Float64("price_inr", price).
			Float64("probability", out[i].Probability).
			Float64("boosted", boosted).
			Msg("market boost applied")
		out[i].Probability = boosted
		out[i].Confidence = advisor.ConfidenceLabel(boosted)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Probability > out[j].Probability
	})
	return out, nil
}

func (r *MarketReranker) priceFor(ctx context.Context, crop string) (float64, error) {
	if r.market != nil {
		quote, ok, err := r.market.Quote(ctx, crop)
		if err != nil {
			return 0, err
		}
		if ok {
			return quote.PriceINR, nil
		}
	}
	return advisor.ReferencePrice(crop), nil
}

var _ advisor.Reranker = (*MarketReranker)(nil)
