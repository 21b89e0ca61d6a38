// Package chain parses raw option-chain documents into snapshots and
// filters them to top-K-by-volume strike sets.
package chain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"chainpulse/internal/models"
)

// rawDocument mirrors the upstream option-chain JSON. The "filtered"
// block carries the current-expiry rows; older payloads put the rows at
// the top level instead.
type rawDocument struct {
	Filtered struct {
		Data []rawEntry `json:"data"`
	} `json:"filtered"`
	Data    []rawEntry `json:"data"`
	Records struct {
		UnderlyingValue any    `json:"underlyingValue"`
		Timestamp       string `json:"timestamp"`
	} `json:"records"`
}

type rawEntry struct {
	StrikePrice any      `json:"strikePrice"`
	CE          *rawSide `json:"CE"`
	PE          *rawSide `json:"PE"`
}

type rawSide struct {
	LastPrice         any `json:"lastPrice"`
	TotalTradedVolume any `json:"totalTradedVolume"`
	OpenInterest      any `json:"openInterest"`
	OpenInterestQty   any `json:"openInterestQty"`
	TotalBuyQuantity  any `json:"totalBuyQuantity"`
	TotalSellQuantity any `json:"totalSellQuantity"`
}

// Parse converts a raw option-chain document into a ChainSnapshot.
// Row sources are tried in priority order: filtered.data, then top-level
// data; neither present yields an empty snapshot, not an error. Entries
// without a numeric strike are dropped. A strike missing one side still
// produces a zero-filled record on that side so call/put alignment is
// preserved.
func Parse(raw []byte) (models.ChainSnapshot, error) {
	var doc rawDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return models.ChainSnapshot{}, fmt.Errorf("failed to decode option chain: %w", err)
	}

	entries := doc.Filtered.Data
	if len(entries) == 0 {
		entries = doc.Data
	}

	snap := models.ChainSnapshot{
		Underlying: math.NaN(),
		Timestamp:  doc.Records.Timestamp,
	}
	if v, ok := asNumber(doc.Records.UnderlyingValue); ok {
		snap.Underlying = v
	}

	for _, e := range entries {
		strike, ok := asNumber(e.StrikePrice)
		if !ok {
			continue
		}
		snap.Calls = append(snap.Calls, sideRecord(strike, e.CE))
		snap.Puts = append(snap.Puts, sideRecord(strike, e.PE))
	}

	return snap, nil
}

// sideRecord builds one StrikeRecord from an optional CE/PE sub-object.
// A nil side yields a zero-filled record at the strike.
func sideRecord(strike float64, side *rawSide) models.StrikeRecord {
	rec := models.StrikeRecord{
		Strike:       strike,
		LastPrice:    math.NaN(),
		BuySellRatio: math.NaN(),
	}
	if side == nil {
		return rec
	}

	if v, ok := asNumber(side.LastPrice); ok {
		rec.LastPrice = v
	}
	rec.Volume = asCount(side.TotalTradedVolume)
	if oi, ok := asNumber(side.OpenInterest); ok {
		rec.OpenInterest = int64(oi)
	} else {
		rec.OpenInterest = asCount(side.OpenInterestQty)
	}
	rec.TotalBuyQty = asCount(side.TotalBuyQuantity)
	rec.TotalSellQty = asCount(side.TotalSellQuantity)

	// Ratio is defined only against a non-zero sell quantity; it is never
	// reported as zero or infinity.
	if rec.TotalSellQty > 0 {
		ratio := float64(rec.TotalBuyQty) / float64(rec.TotalSellQty)
		rec.BuySellRatio = math.Round(ratio*100) / 100
	}

	return rec
}

// asNumber coerces a decoded JSON value to float64. Numbers and numeric
// strings are accepted; anything else reports false.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// asCount coerces a decoded JSON value to a non-negative integer count.
// Coercion failures degrade to zero rather than erroring.
func asCount(v any) int64 {
	f, ok := asNumber(v)
	if !ok || math.IsNaN(f) || f < 0 {
		return 0
	}
	return int64(f)
}
