package game

import "math"

var improvementPremiums = map[ImprovementType]float64{
	ImprovementOperatingPlaybook:      0.15,
	ImprovementPricingModel:           0.15,
	ImprovementServiceExpansion:       0.15,
	ImprovementFixUnderperformance:    0.15,
	ImprovementRecurringRevenue:       0.50,
	ImprovementManagementProfessional: 0.30,
	ImprovementDigitalTransformation:  0.15,
}

const defaultImprovementPremium = 0.15

// PortfolioContext overrides the EBITDA used for buyer-pool sizing, e.g. the combined
// EBITDA of a platform and its bolt-ons.
type PortfolioContext struct {
	TotalPlatformEbitda int64 `json:"total_platform_ebitda"`
}

// ExitValuation is computed on demand and never stored on the business.
type ExitValuation struct {
	BusinessID   string  `json:"business_id"`
	BaseMultiple float64 `json:"base_multiple"`
	EbitdaGrowth float64 `json:"ebitda_growth"`
	YearsHeld    int     `json:"years_held"`

	GrowthPremium             float64   `json:"growth_premium"`
	QualityPremium            float64   `json:"quality_premium"`
	PlatformPremium           float64   `json:"platform_premium"`
	HoldPremium               float64   `json:"hold_premium"`
	ImprovementsPremium       float64   `json:"improvements_premium"`
	MarketModifier            float64   `json:"market_modifier"`
	SizeTier                  BuyerTier `json:"size_tier"`
	SizeTierPremium           float64   `json:"size_tier_premium"`
	DeRiskingPremium          float64   `json:"de_risking_premium"`
	RuleOf40Premium           float64   `json:"rule_of_40_premium"`
	MarginExpansionPremium    float64   `json:"margin_expansion_premium"`
	MergerPremium             float64   `json:"merger_premium"`
	IntegratedPlatformPremium float64   `json:"integrated_platform_premium"`
	TurnaroundPremium         float64   `json:"turnaround_premium"`

	RawTotalPremiums    float64 `json:"raw_total_premiums"`
	PremiumCap          float64 `json:"premium_cap"`
	TotalPremiums       float64 `json:"total_premiums"`
	SeasoningMultiplier float64 `json:"seasoning_multiplier"`
	TotalMultiple       float64 `json:"total_multiple"`

	ExitPrice   int64    `json:"exit_price"`
	DebtPayoff  int64    `json:"debt_payoff"`
	NetProceeds int64    `json:"net_proceeds"`
	Commentary  []string `json:"commentary"`
}

func CalculateExitValuation(b Business, currentRound int, lastEventType EventType, portfolio *PortfolioContext, platforms []IntegratedPlatform) ExitValuation {
	v := ExitValuation{
		BusinessID:   b.ID,
		BaseMultiple: b.AcquisitionMultiple,
		YearsHeld:    b.YearsHeld(currentRound),
	}

	if b.AcquisitionEbitda > 0 {
		v.EbitdaGrowth = float64(b.Ebitda-b.AcquisitionEbitda) / float64(b.AcquisitionEbitda)
	}
	if v.EbitdaGrowth > 0 {
		v.GrowthPremium = math.Min(2.5, v.EbitdaGrowth*0.8)
	} else {
		v.GrowthPremium = math.Max(-1.0, v.EbitdaGrowth*0.5)
	}

	v.QualityPremium = float64(b.QualityRating-3) * 0.4
	if b.IsPlatform {
		v.PlatformPremium = float64(b.PlatformScale) * 0.2
	}
	v.HoldPremium = math.Min(0.5, float64(v.YearsHeld)*0.1)
	v.ImprovementsPremium = improvementsPremium(b.Improvements)

	switch lastEventType {
	case EventBullMarket:
		v.MarketModifier = 0.5
	case EventRecession:
		v.MarketModifier = -0.5
	}

	sizingEbitda := b.Ebitda
	if portfolio != nil {
		sizingEbitda = portfolio.TotalPlatformEbitda
	}
	tier := CalculateSizeTierPremium(sizingEbitda)
	v.SizeTier = tier.Tier
	v.SizeTierPremium = tier.Premium - b.AcquisitionSizeTierPremium

	v.DeRiskingPremium = CalculateDeRiskingPremium(b)
	v.RuleOf40Premium = ruleOf40Premium(b)
	v.MarginExpansionPremium = marginExpansionPremium(b.EbitdaMargin - b.AcquisitionMargin)
	v.MergerPremium = mergerPremium(b)
	v.IntegratedPlatformPremium = GetPlatformMultipleExpansion(b, platforms)
	v.TurnaroundPremium = GetTurnaroundExitPremium(b)

	v.RawTotalPremiums = v.GrowthPremium + v.QualityPremium + v.PlatformPremium + v.HoldPremium +
		v.ImprovementsPremium + v.MarketModifier + v.SizeTierPremium + v.DeRiskingPremium +
		v.RuleOf40Premium + v.MarginExpansionPremium + v.MergerPremium +
		v.IntegratedPlatformPremium + v.TurnaroundPremium

	// Only positive runaway is capped; negative totals pass through.
	v.PremiumCap = math.Max(10, v.BaseMultiple*1.5)
	v.TotalPremiums = v.RawTotalPremiums
	if v.RawTotalPremiums > 0 {
		v.TotalPremiums = math.Min(v.RawTotalPremiums, v.PremiumCap)
	}

	v.SeasoningMultiplier = math.Min(1.0, float64(v.YearsHeld)/2)
	v.TotalMultiple = math.Max(MinExitMultiple, v.BaseMultiple+v.TotalPremiums*v.SeasoningMultiplier)

	v.ExitPrice = maxInt(0, roundInt(float64(b.Ebitda)*v.TotalMultiple))
	v.DebtPayoff = b.SellerNoteBalance + b.BankDebtBalance + b.EarnoutRemaining
	v.NetProceeds = maxInt(0, v.ExitPrice-v.DebtPayoff)
	v.Commentary = GenerateValuationCommentary(b, v)
	return v
}

func improvementsPremium(improvements []OperationalImprovement) float64 {
	total := 0.0
	for _, imp := range improvements {
		p, ok := improvementPremiums[imp.Type]
		if !ok {
			p = defaultImprovementPremium
		}
		total += p
	}
	return math.Min(1.0, total)
}

func ruleOf40Premium(b Business) float64 {
	if b.SectorID != SectorSaaS && b.SectorID != SectorEducation {
		return 0
	}
	ro40 := b.RevenueGrowthRate*100 + b.EbitdaMargin*100
	switch {
	case ro40 >= 50:
		return 1.5
	case ro40 >= 40:
		return 0.5 + (ro40-40)/10
	case ro40 < 25:
		return -0.3
	default:
		return 0
	}
}

func marginExpansionPremium(delta float64) float64 {
	switch {
	case delta >= 0.10:
		return 0.3
	case delta >= 0.05:
		return 0.1 + (delta-0.05)*4
	case delta <= -0.05:
		return -0.2
	default:
		return 0
	}
}

func mergerPremium(b Business) float64 {
	if !b.WasMerged || b.MergerBalanceRatio == nil {
		return 0
	}
	switch ratio := *b.MergerBalanceRatio; {
	case ratio <= 2.0:
		return 0.5
	case ratio <= 3.0:
		return 0.4
	default:
		return 0.3
	}
}

// PortfolioContextFor returns the sizing context for platforms with bolt-ons, nil otherwise.
func PortfolioContextFor(b Business, businesses []Business) *PortfolioContext {
	if !b.IsPlatform || len(b.BoltOnIDs) == 0 {
		return nil
	}
	return &PortfolioContext{TotalPlatformEbitda: PlatformEbitda(b, businesses)}
}
