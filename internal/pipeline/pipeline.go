// Package pipeline runs one fetch-parse-filter-compute cycle and hands
// the result to the presentation and history layers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainpulse/internal/chain"
	"chainpulse/internal/history"
	"chainpulse/internal/logger"
	"chainpulse/internal/metrics"
	"chainpulse/internal/models"
	"chainpulse/internal/nse"
)

// ErrEmptyChain marks a cycle that fetched successfully but yielded no
// usable rows on one side, before or after filtering. Distinct from a
// fetch failure; the cycle aborts gracefully.
var ErrEmptyChain = errors.New("option chain has no usable rows")

// Config tunes one runner.
type Config struct {
	DisplayTopK int // filtered set for displayed metrics and tables
	HistoryTopK int // filtered set for the recorded PCR
	TableRows   int // rows per top-volume table
}

func DefaultConfig() Config {
	return Config{DisplayTopK: 20, HistoryTopK: 10, TableRows: 5}
}

// Runner executes cycles against a cached chain source.
type Runner struct {
	cache   *nse.Cache
	history history.Log
	config  Config
	now     func() time.Time
}

func New(cache *nse.Cache, hist history.Log, config Config) *Runner {
	return &Runner{cache: cache, history: hist, config: config, now: time.Now}
}

// Run performs one cycle for (symbol, isIndex). When record is true and
// the history-K OI-basis PCR is available, exactly one entry is appended
// to the history log; an unavailable ratio records nothing.
//
// Unavailable metrics inside the returned view are values, not errors:
// the rest of the view still renders.
func (r *Runner) Run(ctx context.Context, symbol string, isIndex bool, record bool) (*models.CycleView, error) {
	raw, err := r.cache.Get(ctx, symbol, isIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch option chain for %s: %w", symbol, err)
	}

	snap, err := chain.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse option chain for %s: %w", symbol, err)
	}
	if len(snap.Calls) == 0 || len(snap.Puts) == 0 {
		return nil, fmt.Errorf("%w: %s has %d call and %d put rows",
			ErrEmptyChain, symbol, len(snap.Calls), len(snap.Puts))
	}

	display, _ := chain.FilterTopK(snap, r.config.DisplayTopK)
	if len(display.Calls) == 0 || len(display.Puts) == 0 {
		return nil, fmt.Errorf("%w: top-%d filtering emptied a side for %s",
			ErrEmptyChain, r.config.DisplayTopK, symbol)
	}

	recorded, _ := chain.FilterTopK(snap, r.config.HistoryTopK)

	view := &models.CycleView{
		Symbol:          nse.NewKey(symbol, isIndex).Symbol,
		IsIndex:         isIndex,
		Underlying:      snap.Underlying,
		HasUnderlying:   snap.HasUnderlying(),
		QuoteTime:       snap.Timestamp,
		PCROpenInterest: metrics.ComputePCR(display.Calls, display.Puts, metrics.OpenInterest),
		PCRVolume:       metrics.ComputePCR(display.Calls, display.Puts, metrics.Volume),
		PCRRecorded:     metrics.ComputePCR(recorded.Calls, recorded.Puts, metrics.OpenInterest),
		TopCalls:        chain.TopByVolume(display.Calls, r.config.TableRows),
		TopPuts:         chain.TopByVolume(display.Puts, r.config.TableRows),
		GeneratedAt:     r.now(),
	}
	view.MaxPain, view.MaxPainAvailable = metrics.ComputeMaxPain(display.Calls, display.Puts)

	if record {
		if view.PCRRecorded.Available {
			entry := models.PcrEntry{
				RecordedAt: view.GeneratedAt.UTC().Format(time.RFC3339),
				Value:      view.PCRRecorded.Value,
			}
			if err := r.history.Append(&entry); err != nil {
				logger.Warn("Failed to record PCR history entry: %v", err)
			}
		} else {
			logger.Debug("Top-%d OI PCR unavailable for %s, nothing recorded", r.config.HistoryTopK, symbol)
		}
	}

	return view, nil
}
