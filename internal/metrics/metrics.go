// Package metrics derives sentiment figures from filtered option-chain
// snapshots: put/call ratios and the max-pain strike.
package metrics

import (
	"sort"

	"chainpulse/internal/models"
)

// Basis selects the aggregate field a PCR is computed over.
type Basis int

const (
	OpenInterest Basis = iota
	Volume
)

func (b Basis) String() string {
	if b == Volume {
		return "Volume"
	}
	return "OI"
}

func (b Basis) sum(records []models.StrikeRecord) int64 {
	var total int64
	for _, r := range records {
		if b == Volume {
			total += r.Volume
		} else {
			total += r.OpenInterest
		}
	}
	return total
}

// ComputePCR sums the basis field across both sides and returns
// puts/calls. The ratio is unavailable whenever the call-side sum is
// zero; division by zero is never approximated as infinity or a clamped
// value. Each invocation is independent: callers may compute several
// ratios over differently filtered sets in one cycle.
func ComputePCR(calls, puts []models.StrikeRecord, basis Basis) models.PCRValue {
	result := models.PCRValue{Basis: basis.String()}

	sumCalls := basis.sum(calls)
	if sumCalls == 0 {
		return result
	}

	result.Value = float64(basis.sum(puts)) / float64(sumCalls)
	result.Available = true
	return result
}

// ClassifyPCR returns the advisory reading of a put/call ratio.
func ClassifyPCR(v float64) string {
	switch {
	case v < 1:
		return "PCR < 1: more calls than puts (generally bearish)"
	case v > 1:
		return "PCR > 1: more puts than calls (generally bullish)"
	default:
		return "PCR = 1: balanced positioning"
	}
}

// ComputeMaxPain scans the sorted union of strikes quoted on either side
// and returns the strike minimizing total writer payout, weighting each
// row by its traded volume. Ties resolve to the first minimum in
// ascending-strike order, so the result is deterministic. An empty
// candidate union reports ok=false; that is a normal empty result, not
// an error.
//
// The scan is deliberately brute force: candidate and row counts are
// bounded by upstream top-K filtering.
func ComputeMaxPain(calls, puts []models.StrikeRecord) (models.MaxPainResult, bool) {
	seen := make(map[float64]bool)
	var candidates []float64
	for _, r := range calls {
		if !seen[r.Strike] {
			seen[r.Strike] = true
			candidates = append(candidates, r.Strike)
		}
	}
	for _, r := range puts {
		if !seen[r.Strike] {
			seen[r.Strike] = true
			candidates = append(candidates, r.Strike)
		}
	}
	if len(candidates) == 0 {
		return models.MaxPainResult{}, false
	}
	sort.Float64s(candidates)

	best := models.MaxPainResult{}
	for i, p := range candidates {
		var pain float64
		for _, c := range calls {
			if c.Strike > p {
				pain += (c.Strike - p) * float64(c.Volume)
			}
		}
		for _, q := range puts {
			if p > q.Strike {
				pain += (p - q.Strike) * float64(q.Volume)
			}
		}
		if i == 0 || pain < best.TotalPain {
			best = models.MaxPainResult{Strike: p, TotalPain: pain}
		}
	}
	return best, true
}
