package game

import (
	"math"
	"testing"
)

func TestMarginDriftStart(t *testing.T) {
	tests := []struct {
		maxRounds, want int
	}{
		{maxRounds: 0, want: 4},
		{maxRounds: 5, want: 2},
		{maxRounds: 10, want: 2},
		{maxRounds: 20, want: 4},
		{maxRounds: 30, want: 6},
	}
	for _, tc := range tests {
		if got := MarginDriftStart(tc.maxRounds); got != tc.want {
			t.Fatalf("maxRounds=%d got %d want %d", tc.maxRounds, got, tc.want)
		}
	}
}

func TestApplyOrganicGrowthNeutralDraws(t *testing.T) {
	b := testBusiness(SectorAgency, 1000, 0.30)
	b.AcquisitionEbitda = 100
	b.RevenueGrowthRate = 0.05

	early := ApplyOrganicGrowth(b, GrowthInputs{CurrentRound: 2, MaxRounds: 20}, NewSequence(0.5))
	if early.Revenue != 1050 {
		t.Fatalf("revenue=%d want 1050", early.Revenue)
	}
	if early.EbitdaMargin != 0.30 {
		t.Fatalf("margin drifted before drift start: %v", early.EbitdaMargin)
	}

	late := ApplyOrganicGrowth(b, GrowthInputs{CurrentRound: 4, MaxRounds: 20}, NewSequence(0.5))
	if math.Abs(late.EbitdaMargin-0.295) > 1e-9 {
		t.Fatalf("high-margin business should revert: %v", late.EbitdaMargin)
	}

	unknown := ApplyOrganicGrowth(b, GrowthInputs{MaxRounds: 20}, NewSequence(0.5))
	if unknown.EbitdaMargin != late.EbitdaMargin {
		t.Fatalf("unset round should drift like a late round: %v vs %v", unknown.EbitdaMargin, late.EbitdaMargin)
	}
}

func TestApplyOrganicGrowthModifiers(t *testing.T) {
	base := testBusiness(SectorAgency, 1000, 0.20)
	base.RevenueGrowthRate = 0.05
	in := GrowthInputs{CurrentRound: 2, MaxRounds: 20}

	leader := base
	leader.DueDiligence.CompetitivePosition = PositionLeader
	if got := ApplyOrganicGrowth(leader, in, NewSequence(0.5)).Revenue; got != 1065 {
		t.Fatalf("leader revenue=%d want 1065", got)
	}

	inflated := in
	inflated.InflationActive = true
	if got := ApplyOrganicGrowth(base, inflated, NewSequence(0.5)).Revenue; got != 1020 {
		t.Fatalf("inflation revenue=%d want 1020", got)
	}

	integrating := base
	integrating.IntegrationRoundsRemaining = 2
	out := ApplyOrganicGrowth(integrating, in, NewSequence(0.5, 0.0))
	if out.Revenue != 1020 || out.IntegrationRoundsRemaining != 1 {
		t.Fatalf("integration revenue=%d remaining=%d", out.Revenue, out.IntegrationRoundsRemaining)
	}
}

func TestApplyOrganicGrowthSkipsInactive(t *testing.T) {
	b := testBusiness(SectorAgency, 1000, 0.20)
	b.Status = StatusSold
	out := ApplyOrganicGrowth(b, GrowthInputs{}, NewSequence(0.9))
	if out.Revenue != b.Revenue || out.EbitdaMargin != b.EbitdaMargin {
		t.Fatalf("sold business grew: %+v", out)
	}
}

func TestApplyOrganicGrowthInvariantsAcrossSeeds(t *testing.T) {
	for seed := int64(1); seed <= 200; seed++ {
		rng := NewRNG(seed)
		b := NewBusiness(Sectors[int(seed)%len(Sectors)].ID, 0, DefaultDealTerms, "growth", rng)
		floor := roundInt(float64(b.AcquisitionEbitda) * EbitdaFloorFraction)
		for round := 1; round <= 20; round++ {
			in := GrowthInputs{CurrentRound: round, MaxRounds: 20, InflationActive: round%5 == 0}
			next := ApplyOrganicGrowth(b, in, rng)
			if next.Ebitda < floor {
				t.Fatalf("seed=%d round=%d ebitda %d under floor %d", seed, round, next.Ebitda, floor)
			}
			if next.EbitdaMargin < MinMargin || next.EbitdaMargin > MaxMargin {
				t.Fatalf("seed=%d round=%d margin %v", seed, round, next.EbitdaMargin)
			}
			if diff := absInt(next.Ebitda - DeriveEbitda(next.Revenue, next.EbitdaMargin)); diff > 1 {
				t.Fatalf("seed=%d round=%d ebitda %d revenue %d margin %v", seed, round, next.Ebitda, next.Revenue, next.EbitdaMargin)
			}
			if next.PeakRevenue < b.PeakRevenue || next.PeakEbitda < b.PeakEbitda {
				t.Fatalf("seed=%d round=%d peaks decreased", seed, round)
			}
			b = next
		}
	}
}

func TestSectorFocusAndDiversification(t *testing.T) {
	var portfolio []Business
	for i, sector := range []string{SectorAgency, SectorHomeServices, SectorB2BServices, SectorSaaS} {
		b := testBusiness(sector, 1000, 0.2)
		b.ID = string(rune('a' + i))
		portfolio = append(portfolio, b)
	}
	if got := SectorFocusBonus(portfolio[0], portfolio); got != 0.01 {
		t.Fatalf("focus bonus=%v want 0.01", got)
	}
	if got := DiversificationBonus(portfolio); got != 0.01 {
		t.Fatalf("diversification=%v want 0.01", got)
	}
	if got := SectorConcentrationCount(portfolio[0], portfolio); got != 1 {
		t.Fatalf("concentration=%d want 1", got)
	}
}
