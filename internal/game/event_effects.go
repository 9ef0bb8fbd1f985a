package game

import "math"

const rateStep = 0.01

// ApplyEventEffects returns a new state with the event's effects applied. Events that
// carry choices are recorded but left pending until ResolveChoice runs.
func ApplyEventEffects(state GameState, event GameEvent) GameState {
	out := state.Clone()
	ev := event.Clone()
	ev.Impacts = nil
	out.LastEventType = ev.Type

	if len(ev.Choices) == 0 {
		applyEffect(&out, &ev)
	}
	out.CurrentEvent = &ev
	out.EventHistory = append(out.EventHistory, ev.Clone())
	return out
}

func applyEffect(s *GameState, ev *GameEvent) {
	switch ev.Type {
	case EventBullMarket:
		for i := range s.Businesses {
			if s.Businesses[i].Active() {
				shiftBusiness(s, ev, i, 1.05, 0.01)
			}
		}
	case EventRecession:
		for i := range s.Businesses {
			b := s.Businesses[i]
			if !b.Active() {
				continue
			}
			sector, _ := SectorByID(b.SectorID)
			modifier := GetPlatformRecessionModifier(b, s.IntegratedPlatforms)
			shiftBusiness(s, ev, i, 1-0.10*sector.RecessionSensitivity*modifier, -0.02*sector.RecessionSensitivity)
		}
	case EventInterestHike:
		shiftRate(s, ev, rateStep)
	case EventInterestCut:
		shiftRate(s, ev, -rateStep)
	case EventInflation:
		ev.Impacts = append(ev.Impacts, counterImpact("inflation_rounds", s.InflationRoundsRemaining, 2))
		s.InflationRoundsRemaining = 2
	case EventCreditTightening:
		n := creditTighteningRounds(s.MaxRounds)
		ev.Impacts = append(ev.Impacts, counterImpact("credit_tightening_rounds", s.CreditTighteningRoundsRemaining, n))
		s.CreditTighteningRoundsRemaining = n
	case EventReferralDeal:
		ev.Impacts = append(ev.Impacts, counterImpact("referral_deals", s.ReferralDealsPending, s.ReferralDealsPending+1))
		s.ReferralDealsPending++
	case EventStarJoins:
		shiftTarget(s, ev, 1+ev.Magnitude, 0.01)
	case EventTalentLeaves:
		shiftTarget(s, ev, 1, -ev.Magnitude)
	case EventClientSigns:
		shiftTarget(s, ev, 1+ev.Magnitude, 0)
	case EventClientChurns:
		shiftTarget(s, ev, 1-ev.Magnitude, 0)
	case EventBreakthrough:
		shiftTarget(s, ev, 1, ev.Magnitude)
	case EventComplianceIssue:
		paid := minInt(ev.OfferAmount, maxInt(0, s.Cash))
		ev.Impacts = append(ev.Impacts, EventImpact{
			BusinessID: ev.AffectedBusinessID,
			Metric:     "cash",
			Before:     float64(s.Cash),
			After:      float64(s.Cash - paid),
			Delta:      -float64(paid),
		})
		s.Cash -= paid
	case EventSector:
		def, ok := sectorEventDefinition(ev.SectorID, ev.SectorEventID)
		if !ok {
			return
		}
		for i, b := range s.Businesses {
			if !b.Active() || b.SectorID != ev.SectorID {
				continue
			}
			if ev.AffectedBusinessID != "" && b.ID != ev.AffectedBusinessID {
				continue
			}
			shiftBusiness(s, ev, i, 1+def.RevenueEffect, def.MarginEffect)
		}
	case EventQuiet:
	case EventEquityDemand, EventSellerNoteRenego, EventManagementBuyout, EventUnsolicitedOffer:
		// Only reachable without choices, e.g. a replayed event stripped of them.
	}
}

func shiftTarget(s *GameState, ev *GameEvent, revenueFactor, marginDelta float64) {
	i := s.BusinessIndex(ev.AffectedBusinessID)
	if i < 0 || !s.Businesses[i].Active() {
		return
	}
	shiftBusiness(s, ev, i, revenueFactor, marginDelta)
}

func shiftBusiness(s *GameState, ev *GameEvent, i int, revenueFactor, marginDelta float64) {
	before := s.Businesses[i]
	revenue := roundInt(float64(before.Revenue) * revenueFactor)
	after := RecomputeFinancials(before, revenue, before.EbitdaMargin+marginDelta)
	s.Businesses[i] = after
	ev.Impacts = append(ev.Impacts, DiffBusiness(before, after)...)
}

// DiffBusiness records the revenue, margin and EBITDA changes between two versions of a business.
func DiffBusiness(before, after Business) []EventImpact {
	var out []EventImpact
	add := func(metric string, b, a float64) {
		if b == a {
			return
		}
		out = append(out, EventImpact{BusinessID: before.ID, Metric: metric, Before: b, After: a, Delta: a - b})
	}
	add("revenue", float64(before.Revenue), float64(after.Revenue))
	add("ebitda_margin", before.EbitdaMargin, after.EbitdaMargin)
	add("ebitda", float64(before.Ebitda), float64(after.Ebitda))
	return out
}

func shiftRate(s *GameState, ev *GameEvent, delta float64) {
	before := s.InterestRate
	if before == 0 {
		before = DefaultInterestRate
	}
	after := clamp(math.Round((before+delta)*1000)/1000, MinInterestRate, MaxInterestRate)
	ev.Impacts = append(ev.Impacts, EventImpact{Metric: "interest_rate", Before: before, After: after, Delta: after - before})
	s.InterestRate = after
}

func counterImpact(metric string, before, after int) EventImpact {
	return EventImpact{Metric: metric, Before: float64(before), After: float64(after), Delta: float64(after - before)}
}

func sectorEventDefinition(sectorID, eventID string) (SectorEvent, bool) {
	sector, ok := SectorByID(sectorID)
	if !ok {
		return SectorEvent{}, false
	}
	for _, def := range sector.Events {
		if def.ID == eventID {
			return def, true
		}
	}
	return SectorEvent{}, false
}
