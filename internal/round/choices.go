package round

import (
	"fmt"

	"holdco/internal/game"
)

const (
	operatorLossChance = 0.50
	spurnedTeamChance  = 0.40
)

// ResolveChoice settles the pending event with one of its offered actions. Declines
// that carry a risk draw once from rng.
func ResolveChoice(state game.GameState, action game.ChoiceAction, rng game.RNG) (game.GameState, error) {
	if !state.PendingChoice() {
		return state, fmt.Errorf("resolve %s: no pending choice: %w", action, game.ErrUnknownChoice)
	}
	ev := state.CurrentEvent.Clone()
	if !ev.HasChoice(action) {
		return state, fmt.Errorf("resolve %s on %s: %w", action, ev.Type, game.ErrUnknownChoice)
	}

	s := state.Clone()
	i := s.BusinessIndex(ev.AffectedBusinessID)
	if i < 0 || !s.Businesses[i].Active() {
		// The target left the portfolio since the event fired; nothing to settle.
		return settle(s, ev), nil
	}
	before := s.Businesses[i]

	switch action {
	case game.ActionAcceptOffer, game.ActionAcceptBuyout:
		var proceeds int64
		s, proceeds = sellBusiness(s, i, ev.OfferAmount)
		ev.Impacts = append(ev.Impacts, cashImpact(before.ID, state.Cash, s.Cash), game.EventImpact{
			BusinessID: before.ID, Metric: "sale_proceeds", After: float64(proceeds), Delta: float64(proceeds),
		})
	case game.ActionGrantEquity:
		if ev.OfferAmount > s.Cash {
			return state, fmt.Errorf("grant equity costs %d, cash %d: %w", ev.OfferAmount, s.Cash, game.ErrInsufficientFunds)
		}
		s.Cash -= ev.OfferAmount
		ev.Impacts = append(ev.Impacts, cashImpact(before.ID, state.Cash, s.Cash))
	case game.ActionDeclineEquity:
		if rng.Float64() < operatorLossChance {
			s.Businesses[i] = downgrade(before, 0.03)
			ev.Impacts = append(ev.Impacts, qualityImpacts(before, s.Businesses[i])...)
		}
	case game.ActionAcceptRenegotiation:
		if ev.OfferAmount > s.Cash {
			return state, fmt.Errorf("note payoff costs %d, cash %d: %w", ev.OfferAmount, s.Cash, game.ErrInsufficientFunds)
		}
		s.Cash -= ev.OfferAmount
		b := &s.Businesses[i]
		ev.Impacts = append(ev.Impacts, cashImpact(b.ID, state.Cash, s.Cash), game.EventImpact{
			BusinessID: b.ID, Metric: "seller_note_balance",
			Before: float64(b.SellerNoteBalance), Delta: -float64(b.SellerNoteBalance),
		})
		b.SellerNoteBalance = 0
		b.SellerNoteRoundsRemaining = 0
	case game.ActionDeclineBuyout:
		if rng.Float64() < spurnedTeamChance {
			s.Businesses[i] = downgrade(before, 0.02)
			ev.Impacts = append(ev.Impacts, qualityImpacts(before, s.Businesses[i])...)
		}
	case game.ActionDeclineOffer, game.ActionDeclineRenegotiation:
	}
	return settle(s, ev), nil
}

// settle clears the event's choices so the next round can be played and mirrors the
// resolved impacts into history.
func settle(s game.GameState, ev game.GameEvent) game.GameState {
	ev.Choices = nil
	s.CurrentEvent = &ev
	for i := len(s.EventHistory) - 1; i >= 0; i-- {
		if s.EventHistory[i].ID == ev.ID {
			s.EventHistory[i] = ev.Clone()
			break
		}
	}
	return s
}

// sellBusiness closes a sale at price, repays the business's debt out of the proceeds
// and detaches it from any platform.
func sellBusiness(s game.GameState, i int, price int64) (game.GameState, int64) {
	b := &s.Businesses[i]
	proceeds := max(0, price-b.TotalDebt())
	s.Cash += proceeds
	b.Status = game.StatusSold
	b.ExitPrice = price
	b.ExitRound = s.Round
	b.SellerNoteBalance, b.BankDebtBalance, b.EarnoutRemaining = 0, 0, 0
	b.SellerNoteRoundsRemaining, b.BankDebtRoundsRemaining = 0, 0

	if b.IntegratedPlatformID != "" {
		for pi := range s.IntegratedPlatforms {
			p := &s.IntegratedPlatforms[pi]
			if p.ID != b.IntegratedPlatformID {
				continue
			}
			kept := p.BusinessIDs[:0:0]
			for _, id := range p.BusinessIDs {
				if id != b.ID {
					kept = append(kept, id)
				}
			}
			p.BusinessIDs = kept
		}
	}
	return s, proceeds
}

func downgrade(b game.Business, marginHit float64) game.Business {
	out := game.RecomputeFinancials(b, b.Revenue, b.EbitdaMargin-marginHit)
	out.QualityRating = max(1, b.QualityRating-1)
	return out
}

func qualityImpacts(before, after game.Business) []game.EventImpact {
	out := game.DiffBusiness(before, after)
	if before.QualityRating != after.QualityRating {
		out = append(out, game.EventImpact{
			BusinessID: before.ID, Metric: "quality_rating",
			Before: float64(before.QualityRating), After: float64(after.QualityRating),
			Delta: float64(after.QualityRating - before.QualityRating),
		})
	}
	return out
}

func cashImpact(businessID string, before, after int64) game.EventImpact {
	return game.EventImpact{BusinessID: businessID, Metric: "cash", Before: float64(before), After: float64(after), Delta: float64(after - before)}
}
