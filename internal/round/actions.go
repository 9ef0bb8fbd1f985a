package round

import (
	"fmt"
	"math"

	"holdco/internal/game"
)

var starterSectors = []string{game.SectorAgency, game.SectorHomeServices, game.SectorSaaS, game.SectorIndustrial, game.SectorHealthcare}

// NewGame seeds a starting holdco with up to three businesses drawn from the starter
// sectors, skipping deals the remaining capital cannot fund. The same seed always yields
// the same opening portfolio.
func NewGame(seed int64, maxRounds int) game.GameState {
	if maxRounds <= 0 {
		maxRounds = game.DefaultMaxRounds
	}
	rng := game.NewRNG(seed)
	s := game.GameState{
		Seed:           seed,
		MaxRounds:      maxRounds,
		InterestRate:   game.DefaultInterestRate,
		Cash:           game.StarterCapital,
		InitialCapital: game.StarterCapital,
		TurnaroundTier: 1,
	}
	used := make(map[string]bool)
	for n := 0; len(s.Businesses) < 3 && n < 20; n++ {
		sector := starterSectors[int(rng.Float64()*float64(len(starterSectors)))%len(starterSectors)]
		if used[sector] {
			continue
		}
		b := game.NewBusiness(sector, 0, game.DefaultDealTerms, fmt.Sprintf("%d:%d:%d", seed, len(s.Businesses), n), rng)
		equity := game.DefaultDealTerms.Equity(b.AcquisitionPrice)
		if equity > s.Cash {
			continue
		}
		used[sector] = true
		s.Cash -= equity
		s.Businesses = append(s.Businesses, b)
	}
	return s
}

// AcquireReferral closes one pending referral deal at a 10% discount to the sector
// multiple. While credit is tight the deal is funded without bank debt.
func AcquireReferral(state game.GameState, rng game.RNG) (game.GameState, game.Business, error) {
	if state.ReferralDealsPending <= 0 {
		return state, game.Business{}, fmt.Errorf("acquire referral: %w", game.ErrNoReferralDeal)
	}
	active := state.ActiveBusinesses()
	sectorID := game.SectorAgency
	if len(active) > 0 {
		sectorID = active[int(rng.Float64()*float64(len(active)))%len(active)].SectorID
	}
	terms := game.DefaultDealTerms
	if state.CreditTighteningRoundsRemaining > 0 {
		terms.BankDebtFraction, terms.BankDebtRate, terms.BankDebtRounds = 0, 0, 0
	}
	key := fmt.Sprintf("%d:referral:%d:%d", state.Seed, state.Round, state.ReferralDealsPending)
	b := game.NewBusiness(sectorID, state.Round, terms, key, rng)
	b.AcquisitionMultiple = math.Round(b.AcquisitionMultiple*0.9*10) / 10
	b.AcquisitionPrice = int64(math.Round(float64(b.Ebitda) * b.AcquisitionMultiple))
	b.SellerNoteBalance = int64(math.Round(float64(b.AcquisitionPrice) * terms.SellerNoteFraction))
	b.BankDebtBalance = int64(math.Round(float64(b.AcquisitionPrice) * terms.BankDebtFraction))

	equity := terms.Equity(b.AcquisitionPrice)
	if equity > state.Cash {
		return state, game.Business{}, fmt.Errorf("referral deal needs %d equity, cash %d: %w", equity, state.Cash, game.ErrInsufficientFunds)
	}
	s := state.Clone()
	s.Cash -= equity
	s.ReferralDealsPending--
	s.Businesses = append(s.Businesses, b)
	return s, b, nil
}

func UnlockSharedService(state game.GameState, t game.SharedServiceType) (game.GameState, error) {
	spec, ok := game.SharedServiceSpecFor(t)
	if !ok {
		return state, fmt.Errorf("unlock %s: %w", t, game.ErrServiceLocked)
	}
	if game.HasSharedService(state.SharedServices, t) {
		return state, fmt.Errorf("unlock %s: %w", t, game.ErrAlreadyUnlocked)
	}
	if n := len(state.ActiveBusinesses()); n < spec.MinActive {
		return state, fmt.Errorf("unlock %s needs %d active businesses, have %d: %w", t, spec.MinActive, n, game.ErrServiceLocked)
	}
	if spec.UnlockCost > state.Cash {
		return state, fmt.Errorf("unlock %s costs %d, cash %d: %w", t, spec.UnlockCost, state.Cash, game.ErrInsufficientFunds)
	}
	s := state.Clone()
	s.Cash -= spec.UnlockCost
	s.SharedServices = append(s.SharedServices, game.SharedService{Type: t, Active: true, UnlockedRound: s.Round})
	return s, nil
}

func UnlockTurnaroundTier(state game.GameState) (game.GameState, error) {
	next := state.TurnaroundTier + 1
	cost, ok := game.TurnaroundTierUnlockCost(next)
	if !ok || next > game.MaxTurnaroundTier {
		return state, fmt.Errorf("unlock turnaround tier %d: %w", next, game.ErrAlreadyUnlocked)
	}
	if cost > state.Cash {
		return state, fmt.Errorf("turnaround tier %d costs %d, cash %d: %w", next, cost, state.Cash, game.ErrInsufficientFunds)
	}
	s := state.Clone()
	s.Cash -= cost
	s.TurnaroundTier = next
	return s, nil
}

// FormPlatform integrates every qualifying business under recipeID. Members get the
// recipe's margin bonus now and carry an integration drag for its integration rounds.
func FormPlatform(state game.GameState, recipeID string) (game.GameState, game.IntegratedPlatform, error) {
	recipe, ok := game.PlatformRecipeByID(recipeID)
	if !ok {
		return state, game.IntegratedPlatform{}, fmt.Errorf("form platform %s: %w", recipeID, game.ErrPlatformIneligible)
	}
	ids, ok := game.MatchPlatformRecipes(state.ActiveBusinesses())[recipeID]
	if !ok {
		return state, game.IntegratedPlatform{}, fmt.Errorf("form platform %s: %w", recipeID, game.ErrPlatformIneligible)
	}
	var members []game.Business
	for _, id := range ids {
		members = append(members, state.Businesses[state.BusinessIndex(id)])
	}
	cost := game.PlatformIntegrationCost(recipe, members)
	if cost > state.Cash {
		return state, game.IntegratedPlatform{}, fmt.Errorf("platform %s costs %d, cash %d: %w", recipeID, cost, state.Cash, game.ErrInsufficientFunds)
	}

	s := state.Clone()
	s.Cash -= cost
	p := game.NewIntegratedPlatform(recipe, ids, s.Round)
	for _, id := range ids {
		i := s.BusinessIndex(id)
		b := game.RecomputeFinancials(s.Businesses[i], s.Businesses[i].Revenue, s.Businesses[i].EbitdaMargin+recipe.MarginBonus)
		b.IntegratedPlatformID = p.ID
		b.IntegrationRoundsRemaining = recipe.IntegrationRounds
		s.Businesses[i] = b
	}
	s.IntegratedPlatforms = append(s.IntegratedPlatforms, p)
	return s, p, nil
}

// Distribute returns cash to shareholders; distributions count toward the final score.
func Distribute(state game.GameState, amount int64) (game.GameState, error) {
	if amount <= 0 {
		return state, fmt.Errorf("distribute %d: %w", amount, game.ErrInvalidAmount)
	}
	if amount > state.Cash {
		return state, fmt.Errorf("distribute %d, cash %d: %w", amount, state.Cash, game.ErrInsufficientFunds)
	}
	s := state.Clone()
	s.Cash -= amount
	s.TotalDistributions += amount
	return s, nil
}

// ApplyImprovement buys one operational improvement for a business. Each type can be
// applied once; the lift lands on the margin immediately and the improvement counts
// toward the exit premium from then on.
func ApplyImprovement(state game.GameState, businessID string, t game.ImprovementType) (game.GameState, error) {
	spec, ok := game.ImprovementSpecFor(t)
	if !ok {
		return state, fmt.Errorf("improve %s: %w", t, game.ErrUnknownImprovement)
	}
	i := state.BusinessIndex(businessID)
	if i < 0 {
		return state, fmt.Errorf("improve %s: %w", businessID, game.ErrBusinessNotFound)
	}
	b := state.Businesses[i]
	if !b.Active() {
		return state, fmt.Errorf("improve %s: %w", businessID, game.ErrBusinessInactive)
	}
	if game.HasImprovement(b, t) {
		return state, fmt.Errorf("improve %s with %s: %w", businessID, t, game.ErrImprovementApplied)
	}
	cost := game.ImprovementCost(spec, b)
	if cost > state.Cash {
		return state, fmt.Errorf("%s costs %d, cash %d: %w", spec.Name, cost, state.Cash, game.ErrInsufficientFunds)
	}

	s := state.Clone()
	s.Cash -= cost
	next := game.RecomputeFinancials(b, b.Revenue, b.EbitdaMargin+spec.MarginLift)
	next.Improvements = append(next.Improvements, game.OperationalImprovement{Type: t, Round: s.Round, Effect: spec.MarginLift})
	s.Businesses[i] = next
	return s, nil
}

// tuckInCostFraction is charged on the smaller business's revenue for tuck-ins and mergers.
const tuckInCostFraction = 0.05

func combinable(state game.GameState, aID, bID string) (int, int, error) {
	if aID == bID {
		return -1, -1, fmt.Errorf("combine %s with itself: %w", aID, game.ErrTuckInIneligible)
	}
	ai, bi := state.BusinessIndex(aID), state.BusinessIndex(bID)
	if ai < 0 || bi < 0 {
		return -1, -1, fmt.Errorf("combine %s and %s: %w", aID, bID, game.ErrBusinessNotFound)
	}
	a, b := state.Businesses[ai], state.Businesses[bi]
	if !a.Active() || !b.Active() {
		return -1, -1, fmt.Errorf("combine %s and %s: %w", aID, bID, game.ErrBusinessInactive)
	}
	if a.SectorID != b.SectorID {
		return -1, -1, fmt.Errorf("combine %s (%s) and %s (%s): %w", aID, a.SectorID, bID, b.SectorID, game.ErrTuckInIneligible)
	}
	if a.ParentPlatformID != "" || b.ParentPlatformID != "" || a.IntegratedPlatformID != "" || b.IntegratedPlatformID != "" {
		return -1, -1, fmt.Errorf("combine %s and %s: already part of a platform: %w", aID, bID, game.ErrTuckInIneligible)
	}
	return ai, bi, nil
}

// TuckIn attaches boltOnID to platformID as a bolt-on. Both stay active; the platform's
// scale grows with each bolt-on and exit sizing uses the combined EBITDA.
func TuckIn(state game.GameState, platformID, boltOnID string) (game.GameState, error) {
	pi, bi, err := combinable(state, platformID, boltOnID)
	if err != nil {
		return state, err
	}
	platform, bolt := state.Businesses[pi], state.Businesses[bi]
	if bolt.IsPlatform {
		return state, fmt.Errorf("tuck %s into %s: bolt-on is itself a platform: %w", boltOnID, platformID, game.ErrTuckInIneligible)
	}
	if bolt.Ebitda > platform.Ebitda {
		return state, fmt.Errorf("tuck %s into %s: bolt-on is larger than the platform: %w", boltOnID, platformID, game.ErrTuckInIneligible)
	}
	cost := int64(math.Round(float64(bolt.Revenue) * tuckInCostFraction))
	if cost > state.Cash {
		return state, fmt.Errorf("tuck-in costs %d, cash %d: %w", cost, state.Cash, game.ErrInsufficientFunds)
	}

	s := state.Clone()
	s.Cash -= cost
	p := s.Businesses[pi]
	p.IsPlatform = true
	p.BoltOnIDs = append(p.BoltOnIDs, boltOnID)
	p.PlatformScale = len(p.BoltOnIDs)
	s.Businesses[pi] = p
	s.Businesses[bi].ParentPlatformID = platformID
	return s, nil
}

// Merge folds the smaller of two same-sector businesses into the larger. Financials,
// acquisition baselines and debt are summed on the survivor, which records the size
// ratio for its exit premium; the absorbed business ends as merged.
func Merge(state game.GameState, aID, bID string) (game.GameState, game.Business, error) {
	ai, bi, err := combinable(state, aID, bID)
	if err != nil {
		return state, game.Business{}, err
	}
	if state.Businesses[bi].Ebitda > state.Businesses[ai].Ebitda {
		ai, bi = bi, ai
	}
	big, small := state.Businesses[ai], state.Businesses[bi]
	if big.IsPlatform || small.IsPlatform {
		return state, game.Business{}, fmt.Errorf("merge %s and %s: platforms take tuck-ins instead: %w", aID, bID, game.ErrTuckInIneligible)
	}
	cost := int64(math.Round(float64(small.Revenue) * tuckInCostFraction))
	if cost > state.Cash {
		return state, game.Business{}, fmt.Errorf("merger costs %d, cash %d: %w", cost, state.Cash, game.ErrInsufficientFunds)
	}

	s := state.Clone()
	s.Cash -= cost

	ratio := float64(big.Ebitda) / float64(max(int64(1), small.Ebitda))
	acqEbitda := big.AcquisitionEbitda + small.AcquisitionEbitda
	merged := big.Clone()
	merged.AcquisitionRevenue += small.AcquisitionRevenue
	merged.AcquisitionEbitda = acqEbitda
	if merged.AcquisitionRevenue > 0 {
		merged.AcquisitionMargin = float64(acqEbitda) / float64(merged.AcquisitionRevenue)
	}
	if acqEbitda > 0 {
		merged.AcquisitionMultiple = (big.AcquisitionMultiple*float64(big.AcquisitionEbitda) + small.AcquisitionMultiple*float64(small.AcquisitionEbitda)) / float64(acqEbitda)
	}
	merged.AcquisitionPrice += small.AcquisitionPrice
	merged.SellerNoteRate = blendRate(big.SellerNoteBalance, big.SellerNoteRate, small.SellerNoteBalance, small.SellerNoteRate)
	merged.SellerNoteBalance += small.SellerNoteBalance
	merged.SellerNoteRoundsRemaining = max(merged.SellerNoteRoundsRemaining, small.SellerNoteRoundsRemaining)
	merged.BankDebtRate = blendRate(big.BankDebtBalance, big.BankDebtRate, small.BankDebtBalance, small.BankDebtRate)
	merged.BankDebtBalance += small.BankDebtBalance
	merged.BankDebtRoundsRemaining = max(merged.BankDebtRoundsRemaining, small.BankDebtRoundsRemaining)
	merged.EarnoutRemaining += small.EarnoutRemaining
	for _, imp := range small.Improvements {
		if !game.HasImprovement(merged, imp.Type) {
			merged.Improvements = append(merged.Improvements, imp)
		}
	}
	merged.WasMerged = true
	merged.MergerBalanceRatio = &ratio

	revenue := big.Revenue + small.Revenue
	margin := 0.0
	if revenue > 0 {
		margin = float64(big.Ebitda+small.Ebitda) / float64(revenue)
	}
	merged = game.RecomputeFinancials(merged, revenue, margin)
	s.Businesses[ai] = merged

	absorbed := s.Businesses[bi]
	absorbed.Status = game.StatusMerged
	absorbed.ExitRound = s.Round
	s.Businesses[bi] = absorbed
	return s, merged, nil
}

// blendRate weights two instrument rates by their balances.
func blendRate(balA int64, rateA float64, balB int64, rateB float64) float64 {
	if balA+balB <= 0 {
		return max(rateA, rateB)
	}
	return (float64(balA)*rateA + float64(balB)*rateB) / float64(balA+balB)
}
