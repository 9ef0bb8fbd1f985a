// Package round advances a holdco game one year at a time on top of the pure engines
// in package game.
package round

import (
	"fmt"

	"holdco/internal/game"
)

// CashFlow itemises how holdco cash moved during one round.
type CashFlow struct {
	Fcf             int64 `json:"fcf"`
	Interest        int64 `json:"interest"`
	SharedServices  int64 `json:"shared_services"`
	Principal       int64 `json:"principal"`
	Earnouts        int64 `json:"earnouts"`
	TurnaroundCosts int64 `json:"turnaround_costs"`
	Net             int64 `json:"net"`
}

type Result struct {
	State       game.GameState              `json:"state"`
	Event       game.GameEvent              `json:"event"`
	Turnarounds []game.TurnaroundResolution `json:"turnarounds,omitempty"`
	CashFlow    CashFlow                    `json:"cash_flow"`
	Metrics     game.Metrics                `json:"metrics"`
}

// Over reports whether the final round has been played.
func Over(s game.GameState) bool {
	return s.Round >= s.EffectiveMaxRounds()
}

// Advance plays the next round: organic growth, debt service, countdowns, turnarounds,
// the round's event, cash flow and finally the metrics snapshot.
func Advance(state game.GameState, rng game.RNG) (Result, error) {
	if state.PendingChoice() {
		return Result{}, fmt.Errorf("advance round %d: %w", state.Round+1, game.ErrPendingChoice)
	}
	if Over(state) {
		return Result{}, fmt.Errorf("advance round %d: %w", state.Round+1, game.ErrGameOver)
	}

	s := state.Clone()
	s.Round++
	s.CurrentEvent = nil
	if s.InterestRate == 0 {
		s.InterestRate = game.DefaultInterestRate
	}

	s = applyGrowth(s, rng)

	var flow CashFlow
	s, flow.Principal, flow.Earnouts = serviceDebt(s)

	if s.InflationRoundsRemaining > 0 {
		s.InflationRoundsRemaining--
	}
	if s.CreditTighteningRoundsRemaining > 0 {
		s.CreditTighteningRoundsRemaining--
	}

	cashBefore := s.Cash
	var resolutions []game.TurnaroundResolution
	s, resolutions = game.AdvanceTurnarounds(s, rng)
	flow.TurnaroundCosts = cashBefore - s.Cash

	event := game.GenerateEvent(s, rng)
	s = game.ApplyEventEffects(s, event)

	active := s.ActiveBusinesses()
	benefits := game.GetSharedServicesBenefits(s.SharedServices)
	flow.SharedServices = game.SharedServicesAnnualCost(s.SharedServices)
	tax := game.CalculatePortfolioTax(active, s.HoldcoDebt, s.InterestRate, flow.SharedServices)
	flow.Interest = tax.TotalInterest
	flow.Fcf = game.CalculatePortfolioFcf(active, benefits.CapexReduction, benefits.CashConversionBonus, s.HoldcoDebt, s.InterestRate, flow.SharedServices)
	s.Cash += flow.Fcf - flow.Interest - flow.SharedServices
	flow.Net = flow.Fcf - flow.Interest - flow.SharedServices - flow.Principal - flow.Earnouts - flow.TurnaroundCosts

	m := game.CalculateMetrics(s)
	s.MetricsHistory = append(s.MetricsHistory, m)

	applied := event
	if s.CurrentEvent != nil {
		applied = s.CurrentEvent.Clone()
	}
	return Result{State: s, Event: applied, Turnarounds: resolutions, CashFlow: flow, Metrics: m}, nil
}

func applyGrowth(s game.GameState, rng game.RNG) game.GameState {
	benefits := game.GetSharedServicesBenefits(s.SharedServices)
	diversification := game.DiversificationBonus(s.Businesses)
	prior := s.Businesses
	next := make([]game.Business, len(prior))
	for i, b := range prior {
		if !b.Active() {
			next[i] = b.Clone()
			continue
		}
		in := game.GrowthInputs{
			SharedServicesGrowthBonus:   benefits.GrowthBonus,
			SectorFocusBonus:            game.SectorFocusBonus(b, prior) + game.GetPlatformGrowthBonus(b, s.IntegratedPlatforms),
			InflationActive:             s.InflationRoundsRemaining > 0,
			ConcentrationCount:          game.SectorConcentrationCount(b, prior),
			DiversificationBonus:        diversification,
			CurrentRound:                s.Round,
			SharedServicesMarginDefense: benefits.MarginDefense,
			MaxRounds:                   s.EffectiveMaxRounds(),
		}
		next[i] = game.ApplyOrganicGrowth(b, in, rng)
	}
	s.Businesses = next
	return s
}

// serviceDebt amortises seller notes and bank debt straight-line over their remaining
// rounds and settles earnouts whose EBITDA growth target has been reached.
func serviceDebt(s game.GameState) (game.GameState, int64, int64) {
	var principal, earnouts int64
	for i := range s.Businesses {
		b := &s.Businesses[i]
		if !b.Active() {
			continue
		}
		if b.SellerNoteRoundsRemaining > 0 && b.SellerNoteBalance > 0 {
			pay := b.SellerNoteBalance / int64(b.SellerNoteRoundsRemaining)
			if b.SellerNoteRoundsRemaining == 1 {
				pay = b.SellerNoteBalance
			}
			b.SellerNoteBalance -= pay
			b.SellerNoteRoundsRemaining--
			principal += pay
		}
		if b.BankDebtRoundsRemaining > 0 && b.BankDebtBalance > 0 {
			pay := b.BankDebtBalance / int64(b.BankDebtRoundsRemaining)
			if b.BankDebtRoundsRemaining == 1 {
				pay = b.BankDebtBalance
			}
			b.BankDebtBalance -= pay
			b.BankDebtRoundsRemaining--
			principal += pay
		}
		if b.EarnoutRemaining > 0 && b.AcquisitionEbitda > 0 {
			growth := float64(b.Ebitda-b.AcquisitionEbitda) / float64(b.AcquisitionEbitda)
			if growth >= b.EarnoutTarget {
				earnouts += b.EarnoutRemaining
				b.EarnoutRemaining = 0
			}
		}
	}
	s.Cash -= principal + earnouts
	return s, principal, earnouts
}
