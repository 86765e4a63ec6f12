// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package providers

import (
	"context"
	"strings"
	"sync"
	"time"
)

type cachedQuote struct {
	quote     Quote
	listed    bool
	expiresAt time.Time
}

// CachedMarket memoizes quotes from an underlying provider with a TTL,
// so API-backed providers are not hit on every recommendation.
type CachedMarket struct {
	inner MarketProvider
	ttl   time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	entries map[string]cachedQuote
}

// NewCachedMarket wraps inner with a quote cache. A non-positive ttl
// defaults to 15 minutes.
func NewCachedMarket(inner MarketProvider, ttl time.Duration) *CachedMarket {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CachedMarket{
		inner:   inner,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedQuote),
	}
}

// Quote returns the cached quote when fresh, otherwise consults the
// underlying provider. Negative lookups are cached too.
func (c *CachedMarket) Quote(ctx context.Context, crop string) (Quote, bool, error) {
	key := strings.ToLower(strings.TrimSpace(crop))

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		return entry.quote, entry.listed, nil
	}

	quote, listed, err := c.inner.Quote(ctx, crop)
	if err != nil {
		return Quote{}, false, err
	}

	c.mu.Lock()
	c.entries[key] = cachedQuote{quote: quote, listed: listed, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return quote, listed, nil
}

var _ MarketProvider = (*CachedMarket)(nil)
