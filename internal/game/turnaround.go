package game

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

const (
	FatigueThreshold       = 4
	FatiguePenalty         = 0.10
	MinTiersForExitPremium = 2
	TurnaroundExitPremium  = 0.25
	MaxTurnaroundTier      = 3
)

type TurnaroundProgram struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name"`
	Tier                  int     `json:"tier"`
	SourceQuality         int     `json:"source_quality"`
	TargetQuality         int     `json:"target_quality"`
	UpfrontCostFraction   float64 `json:"upfront_cost_fraction"`
	AnnualCostFraction    float64 `json:"annual_cost_fraction"`
	DurationStandard      int     `json:"duration_standard"`
	DurationQuick         int     `json:"duration_quick"`
	SuccessRate           float64 `json:"success_rate"`
	PartialRate           float64 `json:"partial_rate"`
	FailureRate           float64 `json:"failure_rate"`
	EbitdaBoostOnSuccess  float64 `json:"ebitda_boost_on_success"`
	EbitdaBoostOnPartial  float64 `json:"ebitda_boost_on_partial"`
	EbitdaDamageOnFailure float64 `json:"ebitda_damage_on_failure"`
}

var TurnaroundPrograms = []TurnaroundProgram{
	{ID: "t1_stabilize", Name: "Stabilization Sprint", Tier: 1, SourceQuality: 1, TargetQuality: 2,
		UpfrontCostFraction: 0.10, AnnualCostFraction: 0.05, DurationStandard: 2, DurationQuick: 1,
		SuccessRate: 0.70, PartialRate: 0.20, FailureRate: 0.10,
		EbitdaBoostOnSuccess: 0.10, EbitdaBoostOnPartial: 0.05, EbitdaDamageOnFailure: 0.05},
	{ID: "t1_cost_out", Name: "Cost Discipline Program", Tier: 1, SourceQuality: 2, TargetQuality: 3,
		UpfrontCostFraction: 0.12, AnnualCostFraction: 0.05, DurationStandard: 2, DurationQuick: 1,
		SuccessRate: 0.65, PartialRate: 0.25, FailureRate: 0.10,
		EbitdaBoostOnSuccess: 0.12, EbitdaBoostOnPartial: 0.05, EbitdaDamageOnFailure: 0.05},
	{ID: "t2_operational_overhaul", Name: "Operational Overhaul", Tier: 2, SourceQuality: 1, TargetQuality: 3,
		UpfrontCostFraction: 0.20, AnnualCostFraction: 0.08, DurationStandard: 3, DurationQuick: 2,
		SuccessRate: 0.55, PartialRate: 0.30, FailureRate: 0.15,
		EbitdaBoostOnSuccess: 0.20, EbitdaBoostOnPartial: 0.08, EbitdaDamageOnFailure: 0.10},
	{ID: "t2_commercial_reset", Name: "Commercial Reset", Tier: 2, SourceQuality: 2, TargetQuality: 4,
		UpfrontCostFraction: 0.22, AnnualCostFraction: 0.08, DurationStandard: 3, DurationQuick: 2,
		SuccessRate: 0.50, PartialRate: 0.30, FailureRate: 0.20,
		EbitdaBoostOnSuccess: 0.22, EbitdaBoostOnPartial: 0.10, EbitdaDamageOnFailure: 0.10},
	{ID: "t2_management_upgrade", Name: "Management Upgrade", Tier: 2, SourceQuality: 3, TargetQuality: 4,
		UpfrontCostFraction: 0.15, AnnualCostFraction: 0.06, DurationStandard: 2, DurationQuick: 1,
		SuccessRate: 0.60, PartialRate: 0.25, FailureRate: 0.15,
		EbitdaBoostOnSuccess: 0.15, EbitdaBoostOnPartial: 0.06, EbitdaDamageOnFailure: 0.08},
	{ID: "t3_full_transformation", Name: "Full Transformation", Tier: 3, SourceQuality: 1, TargetQuality: 4,
		UpfrontCostFraction: 0.35, AnnualCostFraction: 0.12, DurationStandard: 4, DurationQuick: 2,
		SuccessRate: 0.45, PartialRate: 0.30, FailureRate: 0.25,
		EbitdaBoostOnSuccess: 0.35, EbitdaBoostOnPartial: 0.12, EbitdaDamageOnFailure: 0.15},
	{ID: "t3_excellence", Name: "Operational Excellence", Tier: 3, SourceQuality: 3, TargetQuality: 5,
		UpfrontCostFraction: 0.30, AnnualCostFraction: 0.10, DurationStandard: 3, DurationQuick: 2,
		SuccessRate: 0.45, PartialRate: 0.35, FailureRate: 0.20,
		EbitdaBoostOnSuccess: 0.25, EbitdaBoostOnPartial: 0.10, EbitdaDamageOnFailure: 0.12},
}

var turnaroundTierUnlockCost = map[int]int64{1: 600, 2: 1000, 3: 1500}

// TurnaroundTierUnlockCost is the one-off cost of raising the holdco's turnaround tier to tier.
func TurnaroundTierUnlockCost(tier int) (int64, bool) {
	c, ok := turnaroundTierUnlockCost[tier]
	return c, ok
}

func TurnaroundProgramByID(id string) (TurnaroundProgram, bool) {
	for _, p := range TurnaroundPrograms {
		if p.ID == id {
			return p, true
		}
	}
	return TurnaroundProgram{}, false
}

// GetEligiblePrograms returns nothing while the business already has an active turnaround.
func GetEligiblePrograms(b Business, tier int, active []ActiveTurnaround, sectorCeiling int) []TurnaroundProgram {
	if !b.Active() || hasActiveTurnaround(b.ID, active) {
		return nil
	}
	var out []TurnaroundProgram
	for _, p := range TurnaroundPrograms {
		if p.Tier > tier || p.SourceQuality != b.QualityRating || p.TargetQuality > sectorCeiling {
			continue
		}
		out = append(out, p)
	}
	return out
}

func hasActiveTurnaround(businessID string, active []ActiveTurnaround) bool {
	for _, t := range active {
		if t.BusinessID == businessID && t.Status == TurnaroundActive {
			return true
		}
	}
	return false
}

func CalculateTurnaroundCost(p TurnaroundProgram, b Business) int64 {
	return roundInt(float64(absInt(b.Ebitda)) * p.UpfrontCostFraction)
}

func annualTurnaroundCost(p TurnaroundProgram, b Business) int64 {
	return roundInt(float64(absInt(b.Ebitda)) * p.AnnualCostFraction)
}

// TurnaroundDuration uses the quick schedule for games of ten rounds or fewer.
func TurnaroundDuration(p TurnaroundProgram, maxRounds int) int {
	if maxRounds > 0 && maxRounds <= 10 {
		return p.DurationQuick
	}
	return p.DurationStandard
}

type TurnaroundOutcome string

const (
	OutcomeSuccess TurnaroundOutcome = "success"
	OutcomePartial TurnaroundOutcome = "partial"
	OutcomeFailure TurnaroundOutcome = "failure"
)

type TurnaroundResolution struct {
	BusinessID       string            `json:"business_id,omitempty"`
	ProgramID        string            `json:"program_id"`
	Outcome          TurnaroundOutcome `json:"outcome"`
	Roll             float64           `json:"roll"`
	SuccessRate      float64           `json:"success_rate"`
	PartialRate      float64           `json:"partial_rate"`
	FailureRate      float64           `json:"failure_rate"`
	QualityBefore    int               `json:"quality_before"`
	QualityAfter     int               `json:"quality_after"`
	EbitdaMultiplier float64           `json:"ebitda_multiplier"`
}

// ResolveTurnaround splits randomValue three ways. At or above the fatigue threshold
// the success rate loses FatiguePenalty and the lost share moves to partial.
func ResolveTurnaround(p TurnaroundProgram, activeCount int, randomValue float64) TurnaroundResolution {
	success, partial, failure := p.SuccessRate, p.PartialRate, p.FailureRate
	if activeCount >= FatigueThreshold {
		reduced := math.Max(0, success-FatiguePenalty)
		partial += success - reduced
		success = reduced
		if success+partial+failure > 1 {
			partial = math.Max(0, 1-success-failure)
		}
	}

	r := TurnaroundResolution{
		ProgramID:     p.ID,
		Roll:          randomValue,
		SuccessRate:   success,
		PartialRate:   partial,
		FailureRate:   failure,
		QualityBefore: p.SourceQuality,
	}
	switch {
	case randomValue < success:
		r.Outcome = OutcomeSuccess
		r.EbitdaMultiplier = 1 + p.EbitdaBoostOnSuccess
	case randomValue < success+partial:
		r.Outcome = OutcomePartial
		r.EbitdaMultiplier = 1 + p.EbitdaBoostOnPartial
	default:
		r.Outcome = OutcomeFailure
		r.EbitdaMultiplier = 1 - p.EbitdaDamageOnFailure
	}
	r.QualityAfter = qualityAfter(p, r.Outcome, p.SourceQuality)
	return r
}

// qualityAfter is the rating an outcome leaves on a business rated current. Success
// lands on the target, partial moves at most one tier toward it, failure changes nothing.
func qualityAfter(p TurnaroundProgram, o TurnaroundOutcome, current int) int {
	switch o {
	case OutcomeSuccess:
		return p.TargetQuality
	case OutcomePartial:
		return max(current, min(p.TargetQuality, current+1))
	default:
		return current
	}
}

// ApplyTurnaroundOutcome scales EBITDA through the margin so revenue stays put and the
// floor still applies.
func ApplyTurnaroundOutcome(b Business, r TurnaroundResolution) Business {
	out := RecomputeFinancials(b, b.Revenue, b.EbitdaMargin*r.EbitdaMultiplier)
	if gained := r.QualityAfter - b.QualityRating; gained > 0 {
		out.QualityImprovedTiers += gained
	}
	out.QualityRating = r.QualityAfter
	return out
}

// GetTurnaroundExitPremium is flat once enough tiers have been gained.
func GetTurnaroundExitPremium(b Business) float64 {
	if b.QualityImprovedTiers >= MinTiersForExitPremium {
		return TurnaroundExitPremium
	}
	return 0
}

func StartTurnaround(state GameState, businessID, programID string) (GameState, error) {
	i := state.BusinessIndex(businessID)
	if i < 0 {
		return state, fmt.Errorf("start turnaround %s: %w", businessID, ErrBusinessNotFound)
	}
	b := state.Businesses[i]
	if !b.Active() {
		return state, fmt.Errorf("start turnaround %s: %w", businessID, ErrBusinessInactive)
	}
	p, ok := TurnaroundProgramByID(programID)
	if !ok {
		return state, fmt.Errorf("start turnaround %s: %w", programID, ErrProgramNotFound)
	}
	if hasActiveTurnaround(businessID, state.ActiveTurnarounds) {
		return state, fmt.Errorf("start turnaround %s: %w", businessID, ErrTurnaroundActive)
	}
	sector, _ := SectorByID(b.SectorID)
	eligible := false
	for _, e := range GetEligiblePrograms(b, state.TurnaroundTier, state.ActiveTurnarounds, sector.QualityCeiling) {
		if e.ID == p.ID {
			eligible = true
			break
		}
	}
	if !eligible {
		return state, fmt.Errorf("start turnaround %s on %s: %w", programID, businessID, ErrProgramIneligible)
	}
	cost := CalculateTurnaroundCost(p, b)
	if cost > state.Cash {
		return state, fmt.Errorf("turnaround costs %d, cash %d: %w", cost, state.Cash, ErrInsufficientFunds)
	}

	out := state.Clone()
	out.Cash -= cost
	out.ActiveTurnarounds = append(out.ActiveTurnarounds, ActiveTurnaround{
		ID:         uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("turnaround:%d:%d:%s:%s", state.Seed, state.Round, businessID, programID))).String(),
		BusinessID: businessID,
		ProgramID:  programID,
		StartRound: state.Round,
		EndRound:   state.Round + TurnaroundDuration(p, state.MaxRounds),
		Status:     TurnaroundActive,
	})
	return out, nil
}

// AdvanceTurnarounds charges annual costs for running programs and resolves the ones
// due this round, one draw per resolution in list order.
func AdvanceTurnarounds(state GameState, rng RNG) (GameState, []TurnaroundResolution) {
	out := state.Clone()
	activeCount := 0
	for _, t := range out.ActiveTurnarounds {
		if t.Status == TurnaroundActive {
			activeCount++
		}
	}

	var resolutions []TurnaroundResolution
	for ti, t := range out.ActiveTurnarounds {
		if t.Status != TurnaroundActive {
			continue
		}
		p, ok := TurnaroundProgramByID(t.ProgramID)
		bi := out.BusinessIndex(t.BusinessID)
		if !ok || bi < 0 || !out.Businesses[bi].Active() {
			out.ActiveTurnarounds[ti].Status = TurnaroundFailed
			continue
		}
		b := out.Businesses[bi]

		out.Cash -= minInt(annualTurnaroundCost(p, b), maxInt(0, out.Cash))
		if out.Round < t.EndRound {
			continue
		}

		r := ResolveTurnaround(p, activeCount, rng.Float64())
		r.BusinessID = b.ID
		r.QualityBefore = b.QualityRating
		r.QualityAfter = qualityAfter(p, r.Outcome, b.QualityRating)
		out.Businesses[bi] = ApplyTurnaroundOutcome(b, r)
		switch r.Outcome {
		case OutcomeSuccess:
			out.ActiveTurnarounds[ti].Status = TurnaroundCompleted
		case OutcomePartial:
			out.ActiveTurnarounds[ti].Status = TurnaroundPartial
		default:
			out.ActiveTurnarounds[ti].Status = TurnaroundFailed
		}
		resolutions = append(resolutions, r)
	}
	return out, resolutions
}
