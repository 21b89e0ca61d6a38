package metrics

import (
	"testing"

	"chainpulse/internal/models"
)

func row(strike float64, volume, oi int64) models.StrikeRecord {
	return models.StrikeRecord{Strike: strike, Volume: volume, OpenInterest: oi}
}

// The worked scenario: OI-basis PCR = (150+300)/(200+100) = 1.5, and max
// pain sits at 100 with total pain 300.
func TestScenario(t *testing.T) {
	calls := []models.StrikeRecord{row(100, 50, 200), row(110, 30, 100)}
	puts := []models.StrikeRecord{row(100, 40, 150), row(110, 60, 300)}

	pcr := ComputePCR(calls, puts, OpenInterest)
	if !pcr.Available {
		t.Fatal("expected available PCR")
	}
	if pcr.Value != 1.5 {
		t.Errorf("PCR = %v, want 1.5", pcr.Value)
	}
	if pcr.Basis != "OI" {
		t.Errorf("basis = %q, want OI", pcr.Basis)
	}

	mp, ok := ComputeMaxPain(calls, puts)
	if !ok {
		t.Fatal("expected available max pain")
	}
	if mp.Strike != 100 {
		t.Errorf("max pain strike = %v, want 100", mp.Strike)
	}
	if mp.TotalPain != 300 {
		t.Errorf("total pain = %v, want 300", mp.TotalPain)
	}
}

func TestComputePCR_VolumeBasis(t *testing.T) {
	calls := []models.StrikeRecord{row(100, 50, 0), row(110, 30, 0)}
	puts := []models.StrikeRecord{row(100, 40, 0), row(110, 60, 0)}

	pcr := ComputePCR(calls, puts, Volume)
	if !pcr.Available {
		t.Fatal("expected available PCR")
	}
	if pcr.Value != 1.25 {
		t.Errorf("PCR = %v, want 1.25", pcr.Value)
	}
	if pcr.Basis != "Volume" {
		t.Errorf("basis = %q, want Volume", pcr.Basis)
	}
}

func TestComputePCR_UnavailableWhenCallSumZero(t *testing.T) {
	calls := []models.StrikeRecord{row(100, 10, 0)}
	puts := []models.StrikeRecord{row(100, 10, 500)}

	// Puts positive, calls zero: still unavailable, never infinity
	if pcr := ComputePCR(calls, puts, OpenInterest); pcr.Available {
		t.Errorf("expected unavailable PCR, got %v", pcr.Value)
	}

	// Both sums zero
	if pcr := ComputePCR(nil, nil, OpenInterest); pcr.Available {
		t.Error("expected unavailable PCR for empty sides")
	}
}

func TestComputePCR_ZeroPutsIsAvailableZero(t *testing.T) {
	calls := []models.StrikeRecord{row(100, 0, 200)}
	pcr := ComputePCR(calls, nil, OpenInterest)
	if !pcr.Available || pcr.Value != 0 {
		t.Errorf("got (%v, %v), want available 0", pcr.Value, pcr.Available)
	}
}

func TestComputePCR_IndependentInvocations(t *testing.T) {
	calls := []models.StrikeRecord{row(100, 50, 200)}
	puts := []models.StrikeRecord{row(100, 40, 150)}

	a := ComputePCR(calls, puts, OpenInterest)
	b := ComputePCR(calls, puts, Volume)
	c := ComputePCR(calls, puts, OpenInterest)

	if a.Value != c.Value || a.Available != c.Available {
		t.Error("repeated OI invocation must be unaffected by interleaved volume invocation")
	}
	if b.Value != 0.8 {
		t.Errorf("volume PCR = %v, want 0.8", b.Value)
	}
}

func TestClassifyPCR(t *testing.T) {
	if got := ClassifyPCR(0.5); got != "PCR < 1: more calls than puts (generally bearish)" {
		t.Errorf("unexpected classification: %q", got)
	}
	if got := ClassifyPCR(1.5); got != "PCR > 1: more puts than calls (generally bullish)" {
		t.Errorf("unexpected classification: %q", got)
	}
	if got := ClassifyPCR(1.0); got != "PCR = 1: balanced positioning" {
		t.Errorf("unexpected classification: %q", got)
	}
}

func TestComputeMaxPain_EmptyUnion(t *testing.T) {
	if _, ok := ComputeMaxPain(nil, nil); ok {
		t.Error("empty candidate union must report unavailable")
	}
}

func TestComputeMaxPain_AllZeroVolumesTieToLowestStrike(t *testing.T) {
	calls := []models.StrikeRecord{row(110, 0, 0), row(100, 0, 0)}
	puts := []models.StrikeRecord{row(120, 0, 0)}

	mp, ok := ComputeMaxPain(calls, puts)
	if !ok {
		t.Fatal("strikes exist, result must be available")
	}
	if mp.Strike != 100 {
		t.Errorf("all-zero pains tie to the lowest strike: got %v", mp.Strike)
	}
	if mp.TotalPain != 0 {
		t.Errorf("total pain = %v, want 0", mp.TotalPain)
	}
}

func TestComputeMaxPain_Deterministic(t *testing.T) {
	calls := []models.StrikeRecord{row(100, 50, 0), row(110, 30, 0), row(120, 10, 0)}
	puts := []models.StrikeRecord{row(105, 40, 0), row(115, 60, 0)}

	first, ok := ComputeMaxPain(calls, puts)
	if !ok {
		t.Fatal("expected available max pain")
	}
	for i := 0; i < 5; i++ {
		again, ok := ComputeMaxPain(calls, puts)
		if !ok || again != first {
			t.Fatalf("iteration %d: got (%+v, %v), want (%+v, true)", i, again, ok, first)
		}
	}
}

func TestComputeMaxPain_OneSidedChain(t *testing.T) {
	calls := []models.StrikeRecord{row(100, 10, 0), row(110, 10, 0)}

	mp, ok := ComputeMaxPain(calls, nil)
	if !ok {
		t.Fatal("call-only chain still has candidates")
	}
	// Highest strike minimizes call-side pain when no puts exist
	if mp.Strike != 110 {
		t.Errorf("strike = %v, want 110", mp.Strike)
	}
}
