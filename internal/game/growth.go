package game

import "math"

const inflationDrag = 0.03

// GrowthInputs carries the portfolio-level modifiers for one business's organic year.
// MaxRounds defaults to 20 and CurrentRound 0 means margin drift is always on.
type GrowthInputs struct {
	SharedServicesGrowthBonus   float64 `json:"shared_services_growth_bonus"`
	SectorFocusBonus            float64 `json:"sector_focus_bonus"`
	InflationActive             bool    `json:"inflation_active"`
	ConcentrationCount          int     `json:"concentration_count"`
	DiversificationBonus        float64 `json:"diversification_bonus"`
	CurrentRound                int     `json:"current_round"`
	SharedServicesMarginDefense float64 `json:"shared_services_margin_defense"`
	MaxRounds                   int     `json:"max_rounds"`
}

// MarginDriftStart is the first round in which margins begin to drift.
func MarginDriftStart(maxRounds int) int {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return int(math.Max(2, math.Ceil(float64(maxRounds)*0.20)))
}

// ApplyOrganicGrowth evolves revenue and margin by one year. Draw order is sector
// volatility, integration penalty (when integrating), margin volatility (when drifting).
func ApplyOrganicGrowth(b Business, in GrowthInputs, rng RNG) Business {
	if !b.Active() {
		return b.Clone()
	}
	sector, _ := SectorByID(b.SectorID)

	concentration := 1.0
	if in.ConcentrationCount >= 4 {
		concentration = 1 + float64(in.ConcentrationCount-3)*0.25
	}

	growth := CapGrowthRate(b.RevenueGrowthRate)
	growth += sector.Volatility * signedUnit(rng) * concentration
	growth += in.SharedServicesGrowthBonus
	if in.SharedServicesGrowthBonus > 0 && (b.SectorID == SectorAgency || b.SectorID == SectorConsumer) {
		growth += 0.01
	}
	growth += in.SectorFocusBonus + in.DiversificationBonus

	switch b.DueDiligence.CompetitivePosition {
	case PositionLeader:
		growth += 0.015
	case PositionCommoditized:
		growth -= 0.015
	}
	if b.IntegrationRoundsRemaining > 0 {
		growth -= 0.03 + uniform(rng, 0, 0.05)
	}
	if in.InflationActive {
		growth -= inflationDrag
	}

	revenue := roundInt(float64(b.Revenue) * (1 + growth))

	margin := b.EbitdaMargin
	if in.CurrentRound == 0 || in.CurrentRound >= MarginDriftStart(in.MaxRounds) {
		drift := b.MarginDriftRate + sector.MarginVolatility*signedUnit(rng) + in.SharedServicesMarginDefense
		if margin > sector.MidMargin()+0.10 {
			drift -= 0.005
		}
		margin = ClampMargin(margin + drift)
	}

	out := RecomputeFinancials(b, revenue, margin)
	if out.IntegrationRoundsRemaining > 0 {
		out.IntegrationRoundsRemaining--
	}
	out.RevenueGrowthRate = CapGrowthRate(b.RevenueGrowthRate)
	return out
}

// SectorConcentrationCount is the number of active businesses sharing b's sector.
func SectorConcentrationCount(b Business, businesses []Business) int {
	n := 0
	for _, other := range businesses {
		if other.Active() && other.SectorID == b.SectorID {
			n++
		}
	}
	return n
}

// SectorFocusBonus rewards depth within a focus group.
func SectorFocusBonus(b Business, businesses []Business) float64 {
	sector, ok := SectorByID(b.SectorID)
	if !ok {
		return 0
	}
	n := 0
	for _, other := range businesses {
		if !other.Active() {
			continue
		}
		if otherSector, ok := SectorByID(other.SectorID); ok && otherSector.FocusGroup == sector.FocusGroup {
			n++
		}
	}
	switch {
	case n >= 4:
		return 0.02
	case n >= 2:
		return 0.01
	default:
		return 0
	}
}

// DiversificationBonus rewards breadth across sectors.
func DiversificationBonus(businesses []Business) float64 {
	seen := make(map[string]struct{})
	for _, b := range businesses {
		if b.Active() {
			seen[b.SectorID] = struct{}{}
		}
	}
	switch {
	case len(seen) >= 6:
		return 0.02
	case len(seen) >= 4:
		return 0.01
	default:
		return 0
	}
}
