package nse

import (
	"context"
	"strings"
	"sync"
	"time"

	"chainpulse/internal/logger"
)

// Fetcher retrieves a raw option-chain document.
type Fetcher interface {
	FetchChain(ctx context.Context, symbol string, isIndex bool) ([]byte, error)
}

// Key identifies one cached chain: the normalized symbol plus the
// index/equity flag.
type Key struct {
	Symbol  string
	IsIndex bool
}

// NewKey normalizes the inbound symbol (upper-cased, trimmed).
func NewKey(symbol string, isIndex bool) Key {
	return Key{Symbol: strings.ToUpper(strings.TrimSpace(symbol)), IsIndex: isIndex}
}

type cacheEntry struct {
	mu        sync.Mutex
	raw       []byte
	fetchedAt time.Time
}

// Cache memoizes fetched documents for a fixed wall-clock interval per
// key. The per-entry mutex doubles as a single-flight guard: concurrent
// callers for the same key wait for the one in-flight fetch instead of
// issuing duplicates. Fetch errors are not cached; a failed refresh
// leaves the entry empty so the next caller retries.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*cacheEntry

	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time
}

// NewCache wraps fetcher with TTL memoization.
func NewCache(fetcher Fetcher, ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[Key]*cacheEntry),
		fetcher: fetcher,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached document for (symbol, isIndex), refreshing it
// through the fetcher on miss or expiry.
func (c *Cache) Get(ctx context.Context, symbol string, isIndex bool) ([]byte, error) {
	key := NewKey(symbol, isIndex)

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &cacheEntry{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.raw != nil && c.now().Sub(e.fetchedAt) < c.ttl {
		logger.Debug("Cache hit for %s (age %v)", key.Symbol, c.now().Sub(e.fetchedAt))
		return e.raw, nil
	}

	raw, err := c.fetcher.FetchChain(ctx, key.Symbol, key.IsIndex)
	if err != nil {
		return nil, err
	}
	e.raw = raw
	e.fetchedAt = c.now()
	return raw, nil
}
