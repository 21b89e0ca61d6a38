// Package models defines the core domain entities: strike records, chain
// snapshots, derived metrics, and persisted history entries.
package models

import (
	"errors"
	"math"
	"time"
)

// StrikeRecord holds one option side's quoted figures at a single strike.
// Price-like fields use NaN to mark an absent quote; count fields default
// to zero when the upstream document omits them.
type StrikeRecord struct {
	Strike       float64
	LastPrice    float64
	Volume       int64
	OpenInterest int64
	TotalBuyQty  int64
	TotalSellQty int64
	BuySellRatio float64
}

// HasLastPrice reports whether a last traded price was quoted.
func (r StrikeRecord) HasLastPrice() bool {
	return !math.IsNaN(r.LastPrice)
}

// HasBuySellRatio reports whether the buy/sell ratio is defined.
// The ratio is absent whenever TotalSellQty is zero.
func (r StrikeRecord) HasBuySellRatio() bool {
	return !math.IsNaN(r.BuySellRatio)
}

// ChainSnapshot is one parsed option-chain document: per-strike call and
// put records plus the underlying quote. Calls and puts need not cover
// identical strike sets.
type ChainSnapshot struct {
	Calls []StrikeRecord
	Puts  []StrikeRecord

	Underlying float64 // NaN when the document carries no underlying value
	Timestamp  string  // upstream quote timestamp, verbatim
}

// HasUnderlying reports whether the document carried an underlying quote.
func (s ChainSnapshot) HasUnderlying() bool {
	return !math.IsNaN(s.Underlying)
}

// PCRValue is one put/call-ratio computation. Available is false when the
// call-side sum was zero; Value is meaningless in that case.
type PCRValue struct {
	Value     float64
	Basis     string
	Available bool
}

// MaxPainResult is the strike minimizing aggregate writer payout.
type MaxPainResult struct {
	Strike    float64
	TotalPain float64
}

// PcrEntry is one persisted point of the PCR time series.
// RecordedAt is an ISO-8601 string and round-trips byte-identical
// through the history log.
type PcrEntry struct {
	ID         string
	RecordedAt string
	Value      float64
}

// Validate checks history entry field constraints.
func (e *PcrEntry) Validate() error {
	if e.RecordedAt == "" {
		return errors.New("entry timestamp must not be empty")
	}
	if _, err := time.Parse(time.RFC3339, e.RecordedAt); err != nil {
		return errors.New("entry timestamp must be ISO-8601")
	}
	if e.Value < 0 {
		return errors.New("entry value must not be negative")
	}
	if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
		return errors.New("entry value must be finite")
	}
	return nil
}

// CycleView is everything one fetch-compute cycle hands to the
// presentation layer. Recomputed every cycle, never persisted.
type CycleView struct {
	Symbol  string
	IsIndex bool

	Underlying    float64
	HasUnderlying bool
	QuoteTime     string

	PCROpenInterest PCRValue // top-display-K union, OI basis
	PCRVolume       PCRValue // top-display-K union, volume basis
	PCRRecorded     PCRValue // top-history-K union, OI basis

	MaxPain          MaxPainResult
	MaxPainAvailable bool

	TopCalls []StrikeRecord // highest-volume call rows from the filtered set
	TopPuts  []StrikeRecord

	GeneratedAt time.Time
}
