package game

import (
	"errors"
	"math"
	"testing"
)

func programIDs(ps []TurnaroundProgram) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestGetEligiblePrograms(t *testing.T) {
	b := testBusiness(SectorSaaS, 5000, 0.2)
	tests := []struct {
		name    string
		quality int
		tier    int
		ceiling int
		active  []ActiveTurnaround
		want    []string
	}{
		{name: "tier one", quality: 1, tier: 1, ceiling: 5, want: []string{"t1_stabilize"}},
		{name: "all tiers", quality: 1, tier: 3, ceiling: 5, want: []string{"t1_stabilize", "t2_operational_overhaul", "t3_full_transformation"}},
		{name: "ceiling", quality: 3, tier: 3, ceiling: 4, want: []string{"t2_management_upgrade"}},
		{name: "busy", quality: 1, tier: 3, ceiling: 5, active: []ActiveTurnaround{{BusinessID: b.ID, Status: TurnaroundActive}}},
		{name: "finished program does not block", quality: 2, tier: 1, ceiling: 5, active: []ActiveTurnaround{{BusinessID: b.ID, Status: TurnaroundCompleted}}, want: []string{"t1_cost_out"}},
	}
	for _, tc := range tests {
		b.QualityRating = tc.quality
		got := programIDs(GetEligiblePrograms(b, tc.tier, tc.active, tc.ceiling))
		if len(got) != len(tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
			}
		}
	}
}

func TestCalculateTurnaroundCostUsesAbsoluteEbitda(t *testing.T) {
	p, _ := TurnaroundProgramByID("t1_stabilize")
	b := testBusiness(SectorSaaS, 5000, 0.2)
	b.Ebitda = -500
	if got := CalculateTurnaroundCost(p, b); got != 50 {
		t.Fatalf("cost=%d want 50", got)
	}
}

func TestTurnaroundDuration(t *testing.T) {
	p, _ := TurnaroundProgramByID("t2_operational_overhaul")
	if got := TurnaroundDuration(p, 10); got != p.DurationQuick {
		t.Fatalf("quick duration=%d", got)
	}
	if got := TurnaroundDuration(p, 20); got != p.DurationStandard {
		t.Fatalf("standard duration=%d", got)
	}
}

func TestResolveTurnaroundOutcomes(t *testing.T) {
	p, _ := TurnaroundProgramByID("t2_operational_overhaul")
	tests := []struct {
		roll    float64
		outcome TurnaroundOutcome
		quality int
		mult    float64
	}{
		{roll: 0.10, outcome: OutcomeSuccess, quality: 3, mult: 1.20},
		{roll: 0.60, outcome: OutcomePartial, quality: 2, mult: 1.08},
		{roll: 0.95, outcome: OutcomeFailure, quality: 1, mult: 0.90},
	}
	for _, tc := range tests {
		r := ResolveTurnaround(p, 1, tc.roll)
		if r.Outcome != tc.outcome || r.QualityAfter != tc.quality || math.Abs(r.EbitdaMultiplier-tc.mult) > 1e-9 {
			t.Fatalf("roll=%v got %+v", tc.roll, r)
		}
	}
}

func TestResolveTurnaroundFatigue(t *testing.T) {
	p, _ := TurnaroundProgramByID("t1_stabilize")
	fresh := ResolveTurnaround(p, FatigueThreshold-1, 0.65)
	if fresh.Outcome != OutcomeSuccess {
		t.Fatalf("below threshold outcome=%s", fresh.Outcome)
	}

	tired := ResolveTurnaround(p, FatigueThreshold, 0.65)
	if math.Abs(tired.SuccessRate-0.60) > 1e-9 {
		t.Fatalf("success=%v want 0.60", tired.SuccessRate)
	}
	if math.Abs(tired.PartialRate-0.30) > 1e-9 {
		t.Fatalf("partial=%v want 0.30", tired.PartialRate)
	}
	if sum := tired.SuccessRate + tired.PartialRate + tired.FailureRate; sum > 1+1e-9 {
		t.Fatalf("rates sum to %v", sum)
	}
	if tired.Outcome != OutcomePartial {
		t.Fatalf("fatigued outcome=%s want partial", tired.Outcome)
	}

	weak := p
	weak.SuccessRate, weak.PartialRate, weak.FailureRate = 0.05, 0.25, 0.70
	r := ResolveTurnaround(weak, FatigueThreshold+2, 0.01)
	if r.SuccessRate != 0 || r.Outcome == OutcomeSuccess {
		t.Fatalf("success rate should floor at zero: %+v", r)
	}
}

func TestApplyTurnaroundOutcomeAndExitPremium(t *testing.T) {
	b := testBusiness(SectorSaaS, 5000, 0.20)
	b.QualityRating = 1
	p, _ := TurnaroundProgramByID("t2_operational_overhaul")
	out := ApplyTurnaroundOutcome(b, ResolveTurnaround(p, 1, 0.0))
	if out.QualityRating != 3 || out.QualityImprovedTiers != 2 {
		t.Fatalf("quality=%d tiers=%d", out.QualityRating, out.QualityImprovedTiers)
	}
	if out.Revenue != b.Revenue || out.Ebitda != 1200 {
		t.Fatalf("revenue=%d ebitda=%d", out.Revenue, out.Ebitda)
	}
	if GetTurnaroundExitPremium(out) != TurnaroundExitPremium {
		t.Fatalf("two tiers should earn exit premium")
	}
	if GetTurnaroundExitPremium(b) != 0 {
		t.Fatalf("untouched business earned exit premium")
	}
}

func TestStartTurnaround(t *testing.T) {
	b := testBusiness(SectorSaaS, 5000, 0.20)
	b.QualityRating = 1
	s := eventState(b)
	s.TurnaroundTier = 1

	out, err := StartTurnaround(s, b.ID, "t1_stabilize")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if out.Cash != 4900 {
		t.Fatalf("cash=%d want 4900", out.Cash)
	}
	if len(out.ActiveTurnarounds) != 1 || out.ActiveTurnarounds[0].EndRound != s.Round+2 {
		t.Fatalf("turnarounds=%+v", out.ActiveTurnarounds)
	}
	if len(s.ActiveTurnarounds) != 0 || s.Cash != 5000 {
		t.Fatalf("input state mutated")
	}

	tests := []struct {
		name      string
		state     GameState
		business  string
		program   string
		wantError error
	}{
		{name: "missing business", state: s, business: "nope", program: "t1_stabilize", wantError: ErrBusinessNotFound},
		{name: "missing program", state: s, business: b.ID, program: "nope", wantError: ErrProgramNotFound},
		{name: "already running", state: out, business: b.ID, program: "t1_stabilize", wantError: ErrTurnaroundActive},
		{name: "tier locked", state: s, business: b.ID, program: "t2_operational_overhaul", wantError: ErrProgramIneligible},
	}
	for _, tc := range tests {
		_, err := StartTurnaround(tc.state, tc.business, tc.program)
		if !errors.Is(err, tc.wantError) {
			t.Fatalf("%s: err=%v want %v", tc.name, err, tc.wantError)
		}
	}

	broke := s
	broke.Cash = 10
	if _, err := StartTurnaround(broke, b.ID, "t1_stabilize"); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestAdvanceTurnaroundsResolvesAtEndRound(t *testing.T) {
	b := testBusiness(SectorSaaS, 5000, 0.20)
	b.QualityRating = 1
	s := eventState(b)
	s.TurnaroundTier = 1
	s, err := StartTurnaround(s, b.ID, "t1_stabilize")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	s.Round++
	s, res := AdvanceTurnarounds(s, NewSequence(0.0))
	if len(res) != 0 {
		t.Fatalf("resolved too early: %+v", res)
	}
	if s.Cash != 4850 {
		t.Fatalf("annual cost not charged, cash=%d", s.Cash)
	}

	s.Round++
	s, res = AdvanceTurnarounds(s, NewSequence(0.0))
	if len(res) != 1 || res[0].Outcome != OutcomeSuccess {
		t.Fatalf("resolutions=%+v", res)
	}
	if s.ActiveTurnarounds[0].Status != TurnaroundCompleted {
		t.Fatalf("status=%s", s.ActiveTurnarounds[0].Status)
	}
	if s.Businesses[0].QualityRating != 2 {
		t.Fatalf("quality=%d want 2", s.Businesses[0].QualityRating)
	}
}

func TestAdvanceTurnaroundsFailsOrphans(t *testing.T) {
	s := eventState()
	s.ActiveTurnarounds = []ActiveTurnaround{{ID: "x", BusinessID: "gone", ProgramID: "t1_stabilize", EndRound: 1, Status: TurnaroundActive}}
	out, res := AdvanceTurnarounds(s, NewSequence(0.0))
	if len(res) != 0 || out.ActiveTurnarounds[0].Status != TurnaroundFailed {
		t.Fatalf("orphan not failed: %+v", out.ActiveTurnarounds)
	}
}

func TestAdvanceTurnaroundsStartsFromCurrentQuality(t *testing.T) {
	tests := []struct {
		name    string
		quality int
		roll    float64
		outcome TurnaroundOutcome
		want    int
	}{
		{name: "failure keeps a downgraded rating", quality: 1, roll: 0.99, outcome: OutcomeFailure, want: 1},
		{name: "partial climbs one tier from current", quality: 1, roll: 0.70, outcome: OutcomePartial, want: 2},
		{name: "success lands on target", quality: 1, roll: 0.0, outcome: OutcomeSuccess, want: 3},
		{name: "partial never downgrades", quality: 4, roll: 0.70, outcome: OutcomePartial, want: 4},
	}
	for _, tc := range tests {
		b := testBusiness(SectorSaaS, 5000, 0.20)
		b.QualityRating = tc.quality
		s := eventState(b)
		s.ActiveTurnarounds = []ActiveTurnaround{{ID: "ta", BusinessID: b.ID, ProgramID: "t1_cost_out", StartRound: 1, EndRound: s.Round, Status: TurnaroundActive}}

		out, res := AdvanceTurnarounds(s, NewSequence(tc.roll))
		if len(res) != 1 || res[0].Outcome != tc.outcome {
			t.Fatalf("%s: resolutions=%+v", tc.name, res)
		}
		if res[0].QualityBefore != tc.quality || res[0].QualityAfter != tc.want {
			t.Fatalf("%s: before=%d after=%d want %d->%d", tc.name, res[0].QualityBefore, res[0].QualityAfter, tc.quality, tc.want)
		}
		if got := out.Businesses[0].QualityRating; got != tc.want {
			t.Fatalf("%s: rating=%d want %d", tc.name, got, tc.want)
		}
	}
}
