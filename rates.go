package lnpos

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultRateRefreshInterval is how often the exchange rate is refreshed.
const DefaultRateRefreshInterval = 60 * time.Second

// RateSource fetches the current fiat-per-bitcoin exchange rate.
type RateSource interface {
	FetchRate(ctx context.Context) (decimal.Decimal, error)
}

// RateCache holds the most recently fetched exchange rate. Readers always
// see the last successful fetch, or zero before the first one; a failed
// refresh leaves the previous value in place.
type RateCache struct {
	mu         sync.RWMutex
	fiatPerBTC decimal.Decimal
}

// NewRateCache creates an empty cache. Rate returns zero until the first
// successful refresh.
func NewRateCache() *RateCache {
	return &RateCache{}
}

// Rate returns the cached fiat-per-bitcoin rate, or zero when unknown.
func (c *RateCache) Rate() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fiatPerBTC
}

// Set stores a rate. Non-positive values are ignored so a bad fetch can
// never clobber a known-good rate.
func (c *RateCache) Set(fiatPerBTC decimal.Decimal) {
	if fiatPerBTC.Sign() <= 0 {
		return
	}
	c.mu.Lock()
	c.fiatPerBTC = fiatPerBTC
	c.mu.Unlock()
}

// Run refreshes the cache from src immediately and then on the given
// interval until the context is cancelled. Fetch errors are swallowed; the
// cache simply keeps its previous value. A non-positive interval falls back
// to DefaultRateRefreshInterval.
func (c *RateCache) Run(ctx context.Context, src RateSource, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRateRefreshInterval
	}
	c.refresh(ctx, src)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refresh(ctx, src)
		}
	}
}

func (c *RateCache) refresh(ctx context.Context, src RateSource) {
	rate, err := src.FetchRate(ctx)
	if err != nil {
		return
	}
	c.Set(rate)
}
