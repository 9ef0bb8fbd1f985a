package game

import (
	"fmt"
	"math"
	"strings"
)

type BuyerTier string

const (
	TierIndividual      BuyerTier = "individual"
	TierSmallPE         BuyerTier = "small_pe"
	TierLowerMiddlePE   BuyerTier = "lower_middle_pe"
	TierInstitutionalPE BuyerTier = "institutional_pe"
	TierLargePE         BuyerTier = "large_pe"
)

type BuyerType string

const (
	BuyerStrategic     BuyerType = "strategic"
	BuyerPrivateEquity BuyerType = "private_equity"
	BuyerFamilyOffice  BuyerType = "family_office"
	BuyerIndividual    BuyerType = "individual"
)

type SizeTierResult struct {
	Tier    BuyerTier `json:"tier"`
	Premium float64   `json:"premium"`
}

type BuyerProfile struct {
	Name             string    `json:"name"`
	Type             BuyerType `json:"type"`
	Tier             BuyerTier `json:"tier"`
	IsStrategic      bool      `json:"is_strategic"`
	StrategicPremium float64   `json:"strategic_premium"`
	InvestmentThesis string    `json:"investment_thesis"`
}

var strategicProbability = map[BuyerTier]float64{
	TierIndividual:      0.10,
	TierSmallPE:         0.20,
	TierLowerMiddlePE:   0.35,
	TierInstitutionalPE: 0.45,
	TierLargePE:         0.55,
}

var (
	privateEquityNames = []string{"Summit Ridge Capital", "Blue Harbor Partners", "Granite Peak Equity", "Northlight Capital", "Ironwood Partners", "Cedar Point Equity"}
	familyOfficeNames  = []string{"Whitmore Family Office", "Hale Legacy Holdings", "Ashford Family Capital", "Bellamy Trust", "Carrow Family Office"}
	individualNames    = []string{"a search fund operator", "a retiring executive", "a first-time acquirer", "a serial entrepreneur", "an industry veteran"}
)

// CalculateSizeTierPremium maps EBITDA (thousands) onto the buyer universe that can
// finance a deal of that size.
func CalculateSizeTierPremium(ebitda int64) SizeTierResult {
	e := float64(ebitda)
	switch {
	case e < 2000:
		return SizeTierResult{Tier: TierIndividual, Premium: 0}
	case e < 5000:
		return SizeTierResult{Tier: TierSmallPE, Premium: lerp(e, 2000, 5000, 0.5, 0.8)}
	case e < 10000:
		return SizeTierResult{Tier: TierLowerMiddlePE, Premium: lerp(e, 5000, 10000, 0.8, 1.5)}
	case e < 20000:
		return SizeTierResult{Tier: TierInstitutionalPE, Premium: lerp(e, 10000, 20000, 1.5, 2.5)}
	default:
		return SizeTierResult{Tier: TierLargePE, Premium: lerp(math.Min(e, 30000), 20000, 30000, 2.5, 3.5)}
	}
}

func lerp(x, x0, x1, y0, y1 float64) float64 {
	return y0 + (x-x0)/(x1-x0)*(y1-y0)
}

func CalculateDeRiskingPremium(b Business) float64 {
	premium := 0.0
	if b.DueDiligence.Concentration == ConcentrationLow {
		premium += 0.3
	}
	if b.DueDiligence.OperatorQuality == OperatorStrong {
		premium += 0.3
	}
	if b.IsPlatform && b.PlatformScale > 0 {
		premium += math.Min(0.6, float64(b.PlatformScale)*0.2)
	}
	if len(b.Improvements) >= 2 {
		premium += 0.2
	}
	if b.DueDiligence.CustomerRetention >= 90 {
		premium += 0.2
	}
	return math.Min(1.5, premium)
}

// GenerateBuyerProfile draws buyer type, name and strategic premium. Draw order is
// strategic roll, type roll, name roll, premium roll.
func GenerateBuyerProfile(b Business, tier BuyerTier, sectorID string, rng RNG) BuyerProfile {
	out := BuyerProfile{Tier: tier}
	sector, _ := SectorByID(sectorID)

	if rng.Float64() < strategicProbability[tier] && len(sector.Acquirers) > 0 {
		out.Type = BuyerStrategic
		out.IsStrategic = true
		out.Name = sector.Acquirers[pickIndex(rng, len(sector.Acquirers))]
		out.StrategicPremium = uniform(rng, 0.5, 1.5)
		out.InvestmentThesis = fmt.Sprintf("%s sees %s as a tuck-in that fills a gap in its %s footprint.", out.Name, b.Name, strings.ToLower(sector.Name))
		return out
	}

	out.Type = financialBuyerType(tier, rng.Float64())
	switch out.Type {
	case BuyerPrivateEquity:
		out.Name = privateEquityNames[pickIndex(rng, len(privateEquityNames))]
		out.InvestmentThesis = fmt.Sprintf("%s wants a %s platform to build around with add-ons.", out.Name, strings.ToLower(sector.Name))
	case BuyerFamilyOffice:
		out.Name = familyOfficeNames[pickIndex(rng, len(familyOfficeNames))]
		out.InvestmentThesis = fmt.Sprintf("%s is looking for durable cash yield and a long hold.", out.Name)
	default:
		out.Name = individualNames[pickIndex(rng, len(individualNames))]
		out.InvestmentThesis = fmt.Sprintf("Backed by SBA financing, %s wants to run the business day to day.", out.Name)
	}
	return out
}

func financialBuyerType(tier BuyerTier, roll float64) BuyerType {
	switch tier {
	case TierIndividual:
		if roll < 0.70 {
			return BuyerIndividual
		}
		return BuyerFamilyOffice
	case TierSmallPE:
		switch {
		case roll < 0.60:
			return BuyerPrivateEquity
		case roll < 0.85:
			return BuyerFamilyOffice
		default:
			return BuyerIndividual
		}
	default:
		if roll < 0.80 {
			return BuyerPrivateEquity
		}
		return BuyerFamilyOffice
	}
}

// GenerateValuationCommentary lists the factors that moved the multiple.
func GenerateValuationCommentary(b Business, v ExitValuation) []string {
	var out []string
	if v.SeasoningMultiplier < 1 {
		out = append(out, fmt.Sprintf("Still seasoning: %s of premiums recognised after %d year(s) held.", FormatPercent(v.SeasoningMultiplier), v.YearsHeld))
	}
	switch {
	case v.EbitdaGrowth > 0.05:
		out = append(out, fmt.Sprintf("EBITDA up %s since acquisition.", FormatPercent(v.EbitdaGrowth)))
	case v.EbitdaGrowth < -0.05:
		out = append(out, fmt.Sprintf("EBITDA down %s since acquisition.", FormatPercent(-v.EbitdaGrowth)))
	}
	if v.QualityPremium > 0 {
		out = append(out, fmt.Sprintf("Quality rating %d/5 commands a premium.", b.QualityRating))
	} else if v.QualityPremium < 0 {
		out = append(out, fmt.Sprintf("Quality rating %d/5 weighs on buyers.", b.QualityRating))
	}
	if v.SizeTierPremium > 0 {
		out = append(out, fmt.Sprintf("Scale opens the %s buyer pool.", strings.ReplaceAll(string(v.SizeTier), "_", " ")))
	}
	if v.DeRiskingPremium > 0 {
		out = append(out, "De-risked profile: "+strings.Join(deRiskingSignals(b), ", ")+".")
	}
	if v.RuleOf40Premium > 0 {
		out = append(out, "Clears the rule of 40.")
	} else if v.RuleOf40Premium < 0 {
		out = append(out, "Falls well short of the rule of 40.")
	}
	if v.MarginExpansionPremium > 0 {
		out = append(out, "Margins expanded under ownership.")
	} else if v.MarginExpansionPremium < 0 {
		out = append(out, "Margins compressed under ownership.")
	}
	if v.MarketModifier > 0 {
		out = append(out, "Bull market lifts every multiple.")
	} else if v.MarketModifier < 0 {
		out = append(out, "Recession discount applied.")
	}
	if v.IntegratedPlatformPremium > 0 {
		out = append(out, "Integrated platform synergies.")
	}
	if v.TurnaroundPremium > 0 {
		out = append(out, "Completed turnaround story.")
	}
	if v.RawTotalPremiums > v.PremiumCap {
		out = append(out, fmt.Sprintf("Premiums capped at %s.", FormatMultiple(v.PremiumCap)))
	}
	if v.TotalMultiple == MinExitMultiple && v.BaseMultiple+v.TotalPremiums*v.SeasoningMultiplier < MinExitMultiple {
		out = append(out, "Multiple held at the 2.0x floor.")
	}
	out = append(out, fmt.Sprintf("Exit at %s for %s, %s net of debt.", FormatMultiple(v.TotalMultiple), FormatMoney(v.ExitPrice), FormatMoney(v.NetProceeds)))
	return out
}

func deRiskingSignals(b Business) []string {
	var out []string
	if b.DueDiligence.Concentration == ConcentrationLow {
		out = append(out, "diversified customers")
	}
	if b.DueDiligence.OperatorQuality == OperatorStrong {
		out = append(out, "strong operator")
	}
	if b.IsPlatform && b.PlatformScale > 0 {
		out = append(out, "platform scale")
	}
	if len(b.Improvements) >= 2 {
		out = append(out, "proven playbook")
	}
	if b.DueDiligence.CustomerRetention >= 90 {
		out = append(out, "sticky customers")
	}
	return out
}
