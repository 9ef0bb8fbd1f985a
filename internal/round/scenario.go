package round

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"holdco/internal/game"
)

var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is a hand-authored starting position. Businesses only need their current
// financials; the acquisition baseline defaults to them.
type Scenario struct {
	Name       string          `json:"name"`
	Seed       int64           `json:"seed"`
	MaxRounds  int             `json:"max_rounds"`
	Cash       int64           `json:"cash"`
	HoldcoDebt int64           `json:"holdco_debt"`
	Businesses []game.Business `json:"businesses"`
}

// LoadScenario decodes a scenario and turns it into a playable round-zero state.
func LoadScenario(r io.Reader) (game.GameState, error) {
	var sc Scenario
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sc); err != nil {
		return game.GameState{}, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	return sc.State()
}

func (sc Scenario) State() (game.GameState, error) {
	if sc.MaxRounds < 0 || sc.MaxRounds > 50 {
		return game.GameState{}, fmt.Errorf("%w: max rounds %d out of range", ErrInvalidScenario, sc.MaxRounds)
	}
	if len(sc.Businesses) == 0 {
		return game.GameState{}, fmt.Errorf("%w: no businesses", ErrInvalidScenario)
	}
	cash := sc.Cash
	if cash == 0 {
		cash = game.StarterCapital
	}
	s := game.GameState{
		Seed:           sc.Seed,
		MaxRounds:      sc.MaxRounds,
		InterestRate:   game.DefaultInterestRate,
		Cash:           cash,
		HoldcoDebt:     sc.HoldcoDebt,
		InitialCapital: cash,
		TurnaroundTier: 1,
	}
	if s.MaxRounds == 0 {
		s.MaxRounds = game.DefaultMaxRounds
	}

	seen := make(map[string]bool, len(sc.Businesses))
	for i, b := range sc.Businesses {
		if b.ID == "" {
			b.ID = fmt.Sprintf("scenario-%d", i+1)
		}
		if seen[b.ID] {
			return game.GameState{}, fmt.Errorf("%w: duplicate business id %q", ErrInvalidScenario, b.ID)
		}
		seen[b.ID] = true
		if _, ok := game.SectorByID(b.SectorID); !ok {
			return game.GameState{}, fmt.Errorf("%w: unknown sector %q", ErrInvalidScenario, b.SectorID)
		}
		if b.Revenue <= 0 {
			return game.GameState{}, fmt.Errorf("%w: business %s needs positive revenue", ErrInvalidScenario, b.ID)
		}
		s.Businesses = append(s.Businesses, normalizeBusiness(b))
	}
	return s, nil
}

func normalizeBusiness(b game.Business) game.Business {
	if b.Status == "" {
		b.Status = game.StatusActive
	}
	if b.Name == "" {
		sector, _ := game.SectorByID(b.SectorID)
		b.Name = sector.Name
	}
	if b.QualityRating == 0 {
		b.QualityRating = 3
	}
	b.QualityRating = min(5, max(1, b.QualityRating))
	b.EbitdaMargin = game.ClampMargin(b.EbitdaMargin)
	b.Ebitda = game.DeriveEbitda(b.Revenue, b.EbitdaMargin)
	b.RevenueGrowthRate = game.CapGrowthRate(b.RevenueGrowthRate)

	if b.AcquisitionRevenue == 0 {
		b.AcquisitionRevenue = b.Revenue
	}
	if b.AcquisitionMargin == 0 {
		b.AcquisitionMargin = b.EbitdaMargin
	}
	if b.AcquisitionEbitda == 0 {
		b.AcquisitionEbitda = b.Ebitda
	}
	if b.AcquisitionMultiple == 0 {
		b.AcquisitionMultiple = 4.0
	}
	if b.AcquisitionPrice == 0 {
		b.AcquisitionPrice = int64(math.Round(float64(b.AcquisitionEbitda) * b.AcquisitionMultiple))
	}
	if b.AcquisitionSizeTierPremium == 0 {
		b.AcquisitionSizeTierPremium = game.CalculateSizeTierPremium(b.AcquisitionEbitda).Premium
	}
	return game.RecomputeFinancials(b, b.Revenue, b.EbitdaMargin)
}
