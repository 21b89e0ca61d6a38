package chain

import (
	"sort"

	"chainpulse/internal/models"
)

// TopStrikes returns the strikes of the k highest-volume records on one
// side. The sort is stable: ties keep original document order. k larger
// than the side takes everything.
func TopStrikes(records []models.StrikeRecord, k int) []float64 {
	if k > len(records) {
		k = len(records)
	}
	if k <= 0 {
		return nil
	}

	ranked := make([]models.StrikeRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Volume > ranked[j].Volume
	})

	strikes := make([]float64, 0, k)
	for _, r := range ranked[:k] {
		strikes = append(strikes, r.Strike)
	}
	return strikes
}

// FilterTopK restricts a snapshot to the union of the top-k-by-volume
// strike sets of each side, returning the filtered snapshot and the
// union sorted ascending. It is a pure function of (snapshot, k):
// repeated invocations with different k values never interfere.
// Strikes in the union that one side never quoted are simply absent from
// that side's filtered records; no zero rows are synthesized here.
func FilterTopK(snap models.ChainSnapshot, k int) (models.ChainSnapshot, []float64) {
	union := make(map[float64]bool)
	for _, s := range TopStrikes(snap.Calls, k) {
		union[s] = true
	}
	for _, s := range TopStrikes(snap.Puts, k) {
		union[s] = true
	}

	strikes := make([]float64, 0, len(union))
	for s := range union {
		strikes = append(strikes, s)
	}
	sort.Float64s(strikes)

	filtered := models.ChainSnapshot{
		Calls:      restrict(snap.Calls, union),
		Puts:       restrict(snap.Puts, union),
		Underlying: snap.Underlying,
		Timestamp:  snap.Timestamp,
	}
	return filtered, strikes
}

func restrict(records []models.StrikeRecord, union map[float64]bool) []models.StrikeRecord {
	var out []models.StrikeRecord
	for _, r := range records {
		if union[r.Strike] {
			out = append(out, r)
		}
	}
	return out
}

// TopByVolume returns copies of the n highest-volume records, stable on
// ties, for the dashboard tables.
func TopByVolume(records []models.StrikeRecord, n int) []models.StrikeRecord {
	if n > len(records) {
		n = len(records)
	}
	if n <= 0 {
		return nil
	}
	ranked := make([]models.StrikeRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Volume > ranked[j].Volume
	})
	return ranked[:n]
}
