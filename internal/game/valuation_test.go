package game

import (
	"math"
	"testing"
)

func TestExitValuationUnseasonedAtBase(t *testing.T) {
	b := testBusiness(SectorAgency, 5000, 0.20)
	b.QualityRating = 5
	v := CalculateExitValuation(b, 0, EventBullMarket, nil, nil)
	if v.SeasoningMultiplier != 0 {
		t.Fatalf("seasoning=%v want 0", v.SeasoningMultiplier)
	}
	if v.TotalMultiple != 4.0 {
		t.Fatalf("multiple=%v want 4.0", v.TotalMultiple)
	}
	if v.ExitPrice != 4000 {
		t.Fatalf("exit=%d want 4000", v.ExitPrice)
	}
}

func TestExitValuationSeasoning(t *testing.T) {
	b := testBusiness(SectorAgency, 5000, 0.20)
	b.AcquisitionRound = 5
	tests := []struct {
		round int
		want  float64
	}{
		{round: 5, want: 0},
		{round: 6, want: 0.5},
		{round: 7, want: 1.0},
		{round: 12, want: 1.0},
	}
	for _, tc := range tests {
		v := CalculateExitValuation(b, tc.round, "", nil, nil)
		if v.SeasoningMultiplier != tc.want {
			t.Fatalf("round=%d seasoning=%v want %v", tc.round, v.SeasoningMultiplier, tc.want)
		}
	}
}

func TestExitValuationPremiumComponents(t *testing.T) {
	b := testBusiness(SectorAgency, 5000, 0.20)
	b.QualityRating = 4
	b.Revenue, b.Ebitda = 6000, 1200
	v := CalculateExitValuation(b, 3, EventRecession, nil, nil)

	checks := []struct {
		name      string
		got, want float64
	}{
		{name: "growth", got: v.GrowthPremium, want: 0.16},
		{name: "quality", got: v.QualityPremium, want: 0.4},
		{name: "hold", got: v.HoldPremium, want: 0.3},
		{name: "market", got: v.MarketModifier, want: -0.5},
		{name: "seasoning", got: v.SeasoningMultiplier, want: 1.0},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Fatalf("%s=%v want %v", c.name, c.got, c.want)
		}
	}
	want := 4.0 + v.TotalPremiums
	if math.Abs(v.TotalMultiple-want) > 1e-9 {
		t.Fatalf("multiple=%v want %v", v.TotalMultiple, want)
	}
}

func TestExitValuationFloorsMultiple(t *testing.T) {
	b := testBusiness(SectorAgency, 5000, 0.20)
	b.AcquisitionMultiple = 1.0
	b.QualityRating = 1
	b.Ebitda = 700
	v := CalculateExitValuation(b, 4, EventRecession, nil, nil)
	if v.TotalMultiple != MinExitMultiple {
		t.Fatalf("multiple=%v want floor %v", v.TotalMultiple, MinExitMultiple)
	}
	if v.ExitPrice != 1400 {
		t.Fatalf("exit=%d want 1400", v.ExitPrice)
	}
}

func TestExitValuationCapsPositivePremiums(t *testing.T) {
	b := testBusiness(SectorSaaS, 40000, 0.75)
	b.AcquisitionEbitda = 3000
	b.AcquisitionMargin = 0.30
	b.RevenueGrowthRate = 0.20
	b.QualityRating = 5
	b.IsPlatform = true
	b.PlatformScale = 5
	b.DueDiligence.Concentration = ConcentrationLow
	b.DueDiligence.OperatorQuality = OperatorStrong
	b.DueDiligence.CustomerRetention = 95
	b.Improvements = []OperationalImprovement{{Type: ImprovementRecurringRevenue}, {Type: ImprovementManagementProfessional}, {Type: ImprovementPricingModel}}
	b.QualityImprovedTiers = 2

	v := CalculateExitValuation(b, 10, EventBullMarket, nil, nil)
	if v.RawTotalPremiums <= v.PremiumCap {
		t.Fatalf("fixture should exceed cap: raw=%v cap=%v", v.RawTotalPremiums, v.PremiumCap)
	}
	if v.TotalPremiums != v.PremiumCap {
		t.Fatalf("total=%v want cap %v", v.TotalPremiums, v.PremiumCap)
	}
	if v.PremiumCap != 10 {
		t.Fatalf("cap=%v want 10", v.PremiumCap)
	}
}

func TestExitValuationNegativePremiumsPassThrough(t *testing.T) {
	b := testBusiness(SectorSaaS, 5000, 0.10)
	b.AcquisitionMultiple = 8
	b.AcquisitionMargin = 0.30
	b.AcquisitionEbitda = 1500
	b.QualityRating = 1
	b.RevenueGrowthRate = 0.02
	v := CalculateExitValuation(b, 5, EventRecession, nil, nil)
	if v.RawTotalPremiums >= 0 {
		t.Fatalf("fixture should be negative: %v", v.RawTotalPremiums)
	}
	if v.TotalPremiums != v.RawTotalPremiums {
		t.Fatalf("negative premiums were capped: %v vs %v", v.TotalPremiums, v.RawTotalPremiums)
	}
}

func TestExitValuationNetsDebt(t *testing.T) {
	b := testBusiness(SectorAgency, 5000, 0.20)
	b.SellerNoteBalance = 1000
	b.BankDebtBalance = 2500
	b.EarnoutRemaining = 1000
	v := CalculateExitValuation(b, 0, "", nil, nil)
	if v.DebtPayoff != 4500 {
		t.Fatalf("debt payoff=%d", v.DebtPayoff)
	}
	if v.NetProceeds != 0 {
		t.Fatalf("net proceeds=%d want 0", v.NetProceeds)
	}
}

func TestExitValuationSizeTierNetOfAcquisition(t *testing.T) {
	b := testBusiness(SectorIndustrial, 20000, 0.25)
	b.AcquisitionSizeTierPremium = CalculateSizeTierPremium(b.Ebitda).Premium
	v := CalculateExitValuation(b, 3, "", nil, nil)
	if math.Abs(v.SizeTierPremium) > 1e-9 {
		t.Fatalf("unchanged size should earn no tier premium, got %v", v.SizeTierPremium)
	}

	ctx := &PortfolioContext{TotalPlatformEbitda: 12000}
	v = CalculateExitValuation(b, 3, "", ctx, nil)
	if v.SizeTier != TierInstitutionalPE {
		t.Fatalf("platform context should set tier, got %s", v.SizeTier)
	}
}

func TestRuleOf40Premium(t *testing.T) {
	tests := []struct {
		name           string
		sector         string
		growth, margin float64
		want           float64
	}{
		{name: "other sectors earn nothing", sector: SectorAgency, growth: 0.30, margin: 0.30, want: 0},
		{name: "elite", sector: SectorSaaS, growth: 0.30, margin: 0.25, want: 1.5},
		{name: "interpolated", sector: SectorSaaS, growth: 0.25, margin: 0.20, want: 1.0},
		{name: "band floor", sector: SectorSaaS, growth: 0.20, margin: 0.20, want: 0.5},
		{name: "neutral", sector: SectorEducation, growth: 0.10, margin: 0.20, want: 0},
		{name: "penalty", sector: SectorSaaS, growth: 0.05, margin: 0.15, want: -0.3},
		{name: "education penalty", sector: SectorEducation, growth: 0, margin: 0.10, want: -0.3},
	}
	for _, tc := range tests {
		b := testBusiness(tc.sector, 5000, tc.margin)
		b.RevenueGrowthRate = tc.growth
		if got := ruleOf40Premium(b); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%s: premium=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestMarginExpansionPremium(t *testing.T) {
	tests := []struct {
		delta, want float64
	}{
		{delta: 0.12, want: 0.3},
		{delta: 0.10, want: 0.3},
		{delta: 0.075, want: 0.2},
		{delta: 0.05, want: 0.1},
		{delta: 0.02, want: 0},
		{delta: -0.04, want: 0},
		{delta: -0.05, want: -0.2},
		{delta: -0.20, want: -0.2},
	}
	for _, tc := range tests {
		if got := marginExpansionPremium(tc.delta); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("delta=%v premium=%v want %v", tc.delta, got, tc.want)
		}
	}
}

func TestMergerPremium(t *testing.T) {
	ratio := func(v float64) *float64 { return &v }
	tests := []struct {
		name   string
		merged bool
		ratio  *float64
		want   float64
	}{
		{name: "not merged", merged: false, ratio: ratio(1.5), want: 0},
		{name: "merged without ratio", merged: true, want: 0},
		{name: "balanced", merged: true, ratio: ratio(1.5), want: 0.5},
		{name: "balanced edge", merged: true, ratio: ratio(2.0), want: 0.5},
		{name: "uneven", merged: true, ratio: ratio(2.5), want: 0.4},
		{name: "uneven edge", merged: true, ratio: ratio(3.0), want: 0.4},
		{name: "lopsided", merged: true, ratio: ratio(4.0), want: 0.3},
	}
	for _, tc := range tests {
		b := testBusiness(SectorAgency, 5000, 0.20)
		b.WasMerged = tc.merged
		b.MergerBalanceRatio = tc.ratio
		if got := mergerPremium(b); got != tc.want {
			t.Fatalf("%s: premium=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestImprovementsPremium(t *testing.T) {
	imp := func(types ...ImprovementType) []OperationalImprovement {
		out := make([]OperationalImprovement, 0, len(types))
		for _, ty := range types {
			out = append(out, OperationalImprovement{Type: ty})
		}
		return out
	}
	tests := []struct {
		name string
		in   []OperationalImprovement
		want float64
	}{
		{name: "none", want: 0},
		{name: "unrecognised type takes default", in: imp("white_glove_onboarding"), want: 0.15},
		{name: "recurring revenue", in: imp(ImprovementRecurringRevenue), want: 0.5},
		{name: "summed", in: imp(ImprovementRecurringRevenue, ImprovementManagementProfessional), want: 0.8},
		{name: "capped", in: imp(ImprovementRecurringRevenue, ImprovementManagementProfessional, ImprovementPricingModel, ImprovementOperatingPlaybook), want: 1.0},
	}
	for _, tc := range tests {
		if got := improvementsPremium(tc.in); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%s: premium=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestExitValuationPlatformPremium(t *testing.T) {
	b := testBusiness(SectorHomeServices, 5000, 0.20)
	b.PlatformScale = 3
	if v := CalculateExitValuation(b, 3, "", nil, nil); v.PlatformPremium != 0 {
		t.Fatalf("scale without platform flag earned %v", v.PlatformPremium)
	}
	b.IsPlatform = true
	v := CalculateExitValuation(b, 3, "", nil, nil)
	if math.Abs(v.PlatformPremium-0.6) > 1e-9 {
		t.Fatalf("platform premium=%v want 0.6", v.PlatformPremium)
	}
}

func TestExitValuationCarriesBandPremiums(t *testing.T) {
	b := testBusiness(SectorSaaS, 5000, 0.20)
	b.AcquisitionMargin = 0.125
	b.RevenueGrowthRate = 0.25
	b.WasMerged = true
	ratio := 2.5
	b.MergerBalanceRatio = &ratio
	b.Improvements = []OperationalImprovement{{Type: ImprovementPricingModel}}

	v := CalculateExitValuation(b, 3, "", nil, nil)
	checks := []struct {
		name      string
		got, want float64
	}{
		{name: "rule of 40", got: v.RuleOf40Premium, want: 1.0},
		{name: "margin expansion", got: v.MarginExpansionPremium, want: 0.2},
		{name: "merger", got: v.MergerPremium, want: 0.4},
		{name: "improvements", got: v.ImprovementsPremium, want: 0.15},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Fatalf("%s=%v want %v", c.name, c.got, c.want)
		}
	}
}
