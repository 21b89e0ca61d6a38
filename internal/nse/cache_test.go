package nse

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeFetcher struct {
	calls int
	err   error
}

func (f *fakeFetcher) FetchChain(ctx context.Context, symbol string, isIndex bool) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte(fmt.Sprintf(`{"symbol":%q,"call":%d}`, symbol, f.calls)), nil
}

func TestCache_MemoizesWithinTTL(t *testing.T) {
	f := &fakeFetcher{}
	c := NewCache(f, time.Minute)

	first, err := c.Get(context.Background(), "NIFTY", true)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := c.Get(context.Background(), "NIFTY", true)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if f.calls != 1 {
		t.Errorf("fetcher called %d times, want 1", f.calls)
	}
	if string(first) != string(second) {
		t.Error("cached document should be returned verbatim")
	}
}

func TestCache_RefreshesAfterExpiry(t *testing.T) {
	f := &fakeFetcher{}
	c := NewCache(f, time.Minute)

	now := time.Now()
	c.now = func() time.Time { return now }

	if _, err := c.Get(context.Background(), "NIFTY", true); err != nil {
		t.Fatalf("Get: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := c.Get(context.Background(), "NIFTY", true); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if f.calls != 2 {
		t.Errorf("fetcher called %d times, want 2 after expiry", f.calls)
	}
}

func TestCache_DistinctKeys(t *testing.T) {
	f := &fakeFetcher{}
	c := NewCache(f, time.Minute)
	ctx := context.Background()

	if _, err := c.Get(ctx, "RELIANCE", false); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := c.Get(ctx, "RELIANCE", true); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if f.calls != 2 {
		t.Errorf("(symbol, isIndex) must key separately: %d calls, want 2", f.calls)
	}
}

func TestCache_NormalizesSymbol(t *testing.T) {
	f := &fakeFetcher{}
	c := NewCache(f, time.Minute)
	ctx := context.Background()

	if _, err := c.Get(ctx, "  nifty ", true); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := c.Get(ctx, "NIFTY", true); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if f.calls != 1 {
		t.Errorf("normalized symbols must share an entry: %d calls, want 1", f.calls)
	}
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	f := &fakeFetcher{err: errors.New("boom")}
	c := NewCache(f, time.Minute)
	ctx := context.Background()

	if _, err := c.Get(ctx, "NIFTY", true); err == nil {
		t.Fatal("expected fetch error")
	}

	f.err = nil
	raw, err := c.Get(ctx, "NIFTY", true)
	if err != nil {
		t.Fatalf("Get after recovery: %v", err)
	}
	if raw == nil {
		t.Error("expected fresh document after failed fetch")
	}
	if f.calls != 2 {
		t.Errorf("failed fetch must not be cached: %d calls, want 2", f.calls)
	}
}

func TestNewKey(t *testing.T) {
	k := NewKey("  banknifty ", true)
	if k.Symbol != "BANKNIFTY" || !k.IsIndex {
		t.Errorf("NewKey = %+v", k)
	}
}
