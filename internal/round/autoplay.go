package round

import (
	"errors"

	"holdco/internal/game"
)

// Policy makes the player's decisions during an unattended run.
type Policy interface {
	Choose(s game.GameState) game.ChoiceAction
	Act(s game.GameState, rng game.RNG) game.GameState
}

// CautiousPolicy takes offers above fair value, pays for cheap fixes and keeps a cash
// reserve before any optional spending.
type CautiousPolicy struct {
	Reserve int64
}

func (p CautiousPolicy) Choose(s game.GameState) game.ChoiceAction {
	ev := s.CurrentEvent
	i := s.BusinessIndex(ev.AffectedBusinessID)
	switch ev.Type {
	case game.EventUnsolicitedOffer:
		if i >= 0 {
			b := s.Businesses[i]
			v := game.CalculateExitValuation(b, s.Round, s.LastEventType, game.PortfolioContextFor(b, s.Businesses), s.IntegratedPlatforms)
			if ev.OfferAmount > v.ExitPrice {
				return game.ActionAcceptOffer
			}
		}
		return game.ActionDeclineOffer
	case game.EventEquityDemand:
		if ev.OfferAmount <= s.Cash-p.Reserve {
			return game.ActionGrantEquity
		}
		return game.ActionDeclineEquity
	case game.EventSellerNoteRenego:
		if ev.OfferAmount <= s.Cash-p.Reserve {
			return game.ActionAcceptRenegotiation
		}
		return game.ActionDeclineRenegotiation
	default:
		return game.ActionDeclineBuyout
	}
}

func (p CautiousPolicy) Act(s game.GameState, rng game.RNG) game.GameState {
	for s.ReferralDealsPending > 0 {
		next, _, err := AcquireReferral(s, rng)
		if err != nil || next.Cash < p.Reserve {
			break
		}
		s = next
	}
	for _, spec := range game.SharedServiceCatalog {
		if s.Cash-spec.UnlockCost < p.Reserve {
			continue
		}
		if next, err := UnlockSharedService(s, spec.Type); err == nil {
			s = next
		}
	}
	pricing, _ := game.ImprovementSpecFor(game.ImprovementPricingModel)
	for _, b := range s.ActiveBusinesses() {
		if game.HasImprovement(b, pricing.Type) || s.Cash-game.ImprovementCost(pricing, b) < p.Reserve {
			continue
		}
		if next, err := ApplyImprovement(s, b.ID, pricing.Type); err == nil {
			s = next
		}
	}
	return s
}

// Autoplay runs rounds until the game ends, letting policy settle every choice and act
// between rounds.
func Autoplay(state game.GameState, rng game.RNG, policy Policy) (game.GameState, []Result, error) {
	s := state
	var results []Result
	for !Over(s) {
		if s.PendingChoice() {
			next, err := ResolveChoice(s, policy.Choose(s), rng)
			if err != nil && !errors.Is(err, game.ErrInsufficientFunds) {
				return s, results, err
			}
			if err != nil {
				next, err = ResolveChoice(s, fallbackDecline(s.CurrentEvent.Type), rng)
				if err != nil {
					return s, results, err
				}
			}
			s = next
		}
		s = policy.Act(s, rng)
		r, err := Advance(s, rng)
		if err != nil {
			return s, results, err
		}
		results = append(results, r)
		s = r.State
	}
	if s.PendingChoice() {
		// Final-round choices still settle so the score reflects them.
		if next, err := ResolveChoice(s, fallbackDecline(s.CurrentEvent.Type), rng); err == nil {
			s = next
		}
	}
	return s, results, nil
}

func fallbackDecline(t game.EventType) game.ChoiceAction {
	switch t {
	case game.EventUnsolicitedOffer:
		return game.ActionDeclineOffer
	case game.EventEquityDemand:
		return game.ActionDeclineEquity
	case game.EventSellerNoteRenego:
		return game.ActionDeclineRenegotiation
	default:
		return game.ActionDeclineBuyout
	}
}

// Snapshot summarises a finished run for leaderboard submission.
func Snapshot(s game.GameState, runID string, challengeID int64) game.ScoreSnapshot {
	m := game.CalculateMetrics(s)
	return game.ScoreSnapshot{
		RunID:              runID,
		ChallengeID:        challengeID,
		Seed:               s.Seed,
		Rounds:             s.Round,
		MaxRounds:          s.EffectiveMaxRounds(),
		EquityValue:        m.EquityValue,
		TotalDistributions: s.TotalDistributions,
		Moic:               m.Moic,
		Roic:               m.Roic,
		Businesses:         m.ActiveBusinesses,
		Score:              game.FinalScore(m, s.TotalDistributions),
	}
}

// ParRun plays seed with the cautious policy and returns the finished run. The worker
// publishes its score as the challenge par.
func ParRun(seed int64, maxRounds int) (game.GameState, error) {
	final, _, err := Autoplay(NewGame(seed, maxRounds), game.NewRNG(seed), CautiousPolicy{Reserve: 1000})
	return final, err
}
