package game

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

type EventType string

const (
	EventBullMarket       EventType = "global_bull_market"
	EventRecession        EventType = "global_recession"
	EventInterestHike     EventType = "global_interest_hike"
	EventInterestCut      EventType = "global_interest_cut"
	EventInflation        EventType = "global_inflation"
	EventCreditTightening EventType = "global_credit_tightening"
	EventQuiet            EventType = "global_quiet"

	EventStarJoins        EventType = "portfolio_star_joins"
	EventTalentLeaves     EventType = "portfolio_talent_leaves"
	EventClientSigns      EventType = "portfolio_client_signs"
	EventClientChurns     EventType = "portfolio_client_churns"
	EventBreakthrough     EventType = "portfolio_breakthrough"
	EventComplianceIssue  EventType = "portfolio_compliance_issue"
	EventReferralDeal     EventType = "portfolio_referral_deal"
	EventEquityDemand     EventType = "portfolio_equity_demand"
	EventSellerNoteRenego EventType = "portfolio_seller_note_renego"
	EventManagementBuyout EventType = "mbo_proposal"

	EventSector           EventType = "sector_event"
	EventUnsolicitedOffer EventType = "unsolicited_offer"
)

// EventTypes lists every variant ApplyEventEffects must handle.
var EventTypes = []EventType{
	EventBullMarket, EventRecession, EventInterestHike, EventInterestCut, EventInflation,
	EventCreditTightening, EventQuiet, EventStarJoins, EventTalentLeaves, EventClientSigns,
	EventClientChurns, EventBreakthrough, EventComplianceIssue, EventReferralDeal,
	EventEquityDemand, EventSellerNoteRenego, EventManagementBuyout, EventSector,
	EventUnsolicitedOffer,
}

type ChoiceAction string

const (
	ActionAcceptOffer          ChoiceAction = "accept_offer"
	ActionDeclineOffer         ChoiceAction = "decline_offer"
	ActionGrantEquity          ChoiceAction = "grant_equity"
	ActionDeclineEquity        ChoiceAction = "decline_equity"
	ActionAcceptRenegotiation  ChoiceAction = "accept_renegotiation"
	ActionDeclineRenegotiation ChoiceAction = "decline_renegotiation"
	ActionAcceptBuyout         ChoiceAction = "accept_mbo"
	ActionDeclineBuyout        ChoiceAction = "decline_mbo"
)

type EventChoice struct {
	Label       string       `json:"label"`
	Description string       `json:"description"`
	Action      ChoiceAction `json:"action"`
	Variant     string       `json:"variant"`
}

// EventImpact is one before/after record produced while applying an event.
type EventImpact struct {
	BusinessID string  `json:"business_id,omitempty"`
	Metric     string  `json:"metric"`
	Before     float64 `json:"before"`
	After      float64 `json:"after"`
	Delta      float64 `json:"delta"`
}

type GameEvent struct {
	ID                 string        `json:"id"`
	Type               EventType     `json:"type"`
	Round              int           `json:"round"`
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	Effect             string        `json:"effect"`
	AffectedBusinessID string        `json:"affected_business_id,omitempty"`
	SectorID           string        `json:"sector_id,omitempty"`
	SectorEventID      string        `json:"sector_event_id,omitempty"`
	Magnitude          float64       `json:"magnitude,omitempty"`
	OfferAmount        int64         `json:"offer_amount,omitempty"`
	OfferMultiple      float64       `json:"offer_multiple,omitempty"`
	BuyerName          string        `json:"buyer_name,omitempty"`
	BuyerType          BuyerType     `json:"buyer_type,omitempty"`
	Impacts            []EventImpact `json:"impacts,omitempty"`
	Choices            []EventChoice `json:"choices,omitempty"`
}

func (e GameEvent) Clone() GameEvent {
	out := e
	out.Impacts = append([]EventImpact(nil), e.Impacts...)
	out.Choices = append([]EventChoice(nil), e.Choices...)
	return out
}

func (e GameEvent) HasChoice(action ChoiceAction) bool {
	for _, c := range e.Choices {
		if c.Action == action {
			return true
		}
	}
	return false
}

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("holdco.game"))

type globalDefinition struct {
	Type        EventType
	Probability float64
	Title       string
	Description string
	Effect      string
}

// Evaluated in declaration order against one cumulative roll.
var globalEvents = []globalDefinition{
	{Type: EventBullMarket, Probability: 0.10, Title: "Bull market", Description: "Credit is cheap and buyers are hungry.", Effect: "Revenue +5% and margins +1pt across the portfolio; exit multiples +0.5x."},
	{Type: EventRecession, Probability: 0.08, Title: "Recession", Description: "Demand contracts across the economy.", Effect: "Revenue and margins fall by sector sensitivity; exit multiples -0.5x."},
	{Type: EventInterestHike, Probability: 0.09, Title: "Rate hike", Description: "The central bank tightens.", Effect: "Holdco borrowing rate +1pt."},
	{Type: EventInterestCut, Probability: 0.08, Title: "Rate cut", Description: "The central bank eases.", Effect: "Holdco borrowing rate -1pt."},
	{Type: EventInflation, Probability: 0.06, Title: "Inflation spike", Description: "Input costs and wages run hot.", Effect: "Organic growth -3pts for the next 2 rounds."},
	{Type: EventCreditTightening, Probability: 0.05, Title: "Credit tightening", Description: "Lenders pull back from leveraged deals."},
}

func creditTighteningRounds(maxRounds int) int {
	if maxRounds > 0 && maxRounds <= 10 {
		return 1
	}
	return 2
}

type portfolioDefinition struct {
	Type        EventType
	Probability float64
	// eligible returns the businesses the event may target. nil means any active business.
	eligible func(state GameState, active []Business) []Business
}

var portfolioEvents = []portfolioDefinition{
	{Type: EventStarJoins, Probability: 0.05},
	{Type: EventTalentLeaves, Probability: 0.05},
	{Type: EventClientSigns, Probability: 0.06},
	{Type: EventClientChurns, Probability: 0.05, eligible: concentratedBusinesses},
	{Type: EventBreakthrough, Probability: 0.04},
	{Type: EventComplianceIssue, Probability: 0.04},
	{Type: EventReferralDeal, Probability: 0.04, eligible: referralEligible},
	{Type: EventEquityDemand, Probability: 0.03, eligible: equityDemandEligible},
	{Type: EventSellerNoteRenego, Probability: 0.03, eligible: sellerNoteEligible},
	{Type: EventManagementBuyout, Probability: 0.02, eligible: buyoutEligible},
}

func concentratedBusinesses(_ GameState, active []Business) []Business {
	return filterBusinesses(active, func(b Business) bool {
		return b.DueDiligence.Concentration == ConcentrationHigh || b.DueDiligence.Concentration == ConcentrationMedium
	})
}

func referralEligible(_ GameState, active []Business) []Business {
	if len(active) < 4 {
		return nil
	}
	return active
}

func equityDemandEligible(_ GameState, active []Business) []Business {
	return filterBusinesses(active, func(b Business) bool {
		return b.DueDiligence.OperatorQuality == OperatorStrong && b.QualityRating >= 4
	})
}

func sellerNoteEligible(_ GameState, active []Business) []Business {
	return filterBusinesses(active, func(b Business) bool {
		return b.SellerNoteBalance > 0 && b.SellerNoteRoundsRemaining >= 2
	})
}

func buyoutEligible(state GameState, active []Business) []Business {
	return filterBusinesses(active, func(b Business) bool {
		return b.QualityRating >= 4 && b.YearsHeld(state.Round) >= 3
	})
}

func filterBusinesses(in []Business, keep func(Business) bool) []Business {
	var out []Business
	for _, b := range in {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

// selectCumulative walks probabilities in order and returns the first index whose
// running sum exceeds roll, or -1. The running sum is clamped at 1.0 so over-scaled
// tables can never make two entries match the same roll.
func selectCumulative(probabilities []float64, roll float64) int {
	cumulative := 0.0
	for i, p := range probabilities {
		cumulative = math.Min(1.0, cumulative+math.Max(0, p))
		if roll < cumulative {
			return i
		}
	}
	return -1
}

// GenerateEvent runs the global, portfolio, sector and unsolicited-offer lotteries in
// that order. The first to trigger wins; otherwise a quiet year is returned.
func GenerateEvent(state GameState, rng RNG) GameEvent {
	if ev, ok := rollGlobalEvent(state, rng); ok {
		return ev
	}
	active := state.ActiveBusinesses()
	if len(active) == 0 {
		return quietEvent(state)
	}
	if ev, ok := rollPortfolioEvent(state, active, rng); ok {
		return ev
	}
	if ev, ok := rollSectorEvent(state, active, rng); ok {
		return ev
	}
	if ev, ok := rollUnsolicitedOffer(state, active, rng); ok {
		return ev
	}
	return quietEvent(state)
}

func rollGlobalEvent(state GameState, rng RNG) (GameEvent, bool) {
	probs := make([]float64, len(globalEvents))
	for i, def := range globalEvents {
		probs[i] = def.Probability
	}
	i := selectCumulative(probs, rng.Float64())
	if i < 0 {
		return GameEvent{}, false
	}
	def := globalEvents[i]
	ev := newEvent(state, def.Type, "")
	ev.Title = def.Title
	ev.Description = def.Description
	ev.Effect = def.Effect
	if def.Type == EventCreditTightening {
		ev.Effect = fmt.Sprintf("New bank debt unavailable for %d round(s).", creditTighteningRounds(state.MaxRounds))
	}
	return ev, true
}

func rollPortfolioEvent(state GameState, active []Business, rng RNG) (GameEvent, bool) {
	benefits := GetSharedServicesBenefits(state.SharedServices)
	probs := make([]float64, len(portfolioEvents))
	pools := make([][]Business, len(portfolioEvents))
	for i, def := range portfolioEvents {
		p := def.Probability
		pools[i] = active
		if def.eligible != nil {
			pools[i] = def.eligible(state, active)
			if len(pools[i]) == 0 {
				p = 0
			}
		}
		switch def.Type {
		case EventStarJoins:
			p *= 1 + benefits.TalentGainBonus
		case EventTalentLeaves:
			p *= math.Max(0, 1-benefits.TalentRetentionBonus)
		}
		probs[i] = p
	}
	i := selectCumulative(probs, rng.Float64())
	if i < 0 {
		return GameEvent{}, false
	}
	def := portfolioEvents[i]
	if def.Type == EventReferralDeal {
		ev := newEvent(state, def.Type, "")
		ev.Title = "Referral deal"
		ev.Description = "A portfolio CEO introduces an off-market seller."
		ev.Effect = "A proprietary deal joins next round's pipeline."
		return ev, true
	}
	pool := pools[i]
	if len(pool) == 0 {
		pool = active
	}
	target := pool[pickIndex(rng, len(pool))]
	return buildPortfolioEvent(state, def.Type, target, rng), true
}

func buildPortfolioEvent(state GameState, t EventType, b Business, rng RNG) GameEvent {
	ev := newEvent(state, t, b.ID)
	switch t {
	case EventStarJoins:
		ev.Magnitude = uniform(rng, 0.05, 0.10)
		ev.Title = "Star hire"
		ev.Description = fmt.Sprintf("A standout executive joins %s.", b.Name)
		ev.Effect = fmt.Sprintf("Revenue +%s and margin +1pt.", FormatPercent(ev.Magnitude))
	case EventTalentLeaves:
		ev.Magnitude = uniform(rng, 0.02, 0.04)
		ev.Title = "Key talent departs"
		ev.Description = fmt.Sprintf("A senior leader at %s leaves for a competitor.", b.Name)
		ev.Effect = fmt.Sprintf("Margin -%s.", FormatPercent(ev.Magnitude))
	case EventClientSigns:
		ev.Magnitude = uniform(rng, 0.08, 0.15)
		ev.Title = "Major client win"
		ev.Description = fmt.Sprintf("%s lands a marquee account.", b.Name)
		ev.Effect = fmt.Sprintf("Revenue +%s.", FormatPercent(ev.Magnitude))
	case EventClientChurns:
		ev.Magnitude = uniform(rng, 0.10, 0.20)
		ev.Title = "Client churn"
		ev.Description = fmt.Sprintf("A large customer of %s walks.", b.Name)
		ev.Effect = fmt.Sprintf("Revenue -%s.", FormatPercent(ev.Magnitude))
	case EventBreakthrough:
		ev.Magnitude = uniform(rng, 0.02, 0.04)
		ev.Title = "Operational breakthrough"
		ev.Description = fmt.Sprintf("%s finds a step change in efficiency.", b.Name)
		ev.Effect = fmt.Sprintf("Margin +%s.", FormatPercent(ev.Magnitude))
	case EventComplianceIssue:
		ev.Magnitude = uniform(rng, 0.05, 0.15)
		ev.OfferAmount = roundInt(float64(maxInt(0, b.Ebitda)) * ev.Magnitude)
		ev.Title = "Compliance issue"
		ev.Description = fmt.Sprintf("Regulators flag a problem at %s.", b.Name)
		ev.Effect = fmt.Sprintf("Remediation costs %s of holdco cash.", FormatMoney(ev.OfferAmount))
	case EventEquityDemand:
		ev.Magnitude = uniform(rng, 0.15, 0.30)
		ev.OfferAmount = roundInt(float64(maxInt(0, b.Ebitda)) * ev.Magnitude)
		ev.Title = "Operator wants equity"
		ev.Description = fmt.Sprintf("The CEO of %s asks for a stake to stay.", b.Name)
		ev.Effect = fmt.Sprintf("Granting costs %s; declining risks losing the operator.", FormatMoney(ev.OfferAmount))
		ev.Choices = []EventChoice{
			{Label: "Grant equity", Description: fmt.Sprintf("Pay %s to lock in the operator.", FormatMoney(ev.OfferAmount)), Action: ActionGrantEquity, Variant: "positive"},
			{Label: "Decline", Description: "Keep the equity and hope they stay.", Action: ActionDeclineEquity, Variant: "negative"},
		}
	case EventSellerNoteRenego:
		ev.Magnitude = uniform(rng, 0.10, 0.20)
		ev.OfferAmount = roundInt(float64(b.SellerNoteBalance) * (1 - ev.Magnitude))
		ev.Title = "Seller note payoff offer"
		ev.Description = fmt.Sprintf("The former owner of %s offers a discount for early payoff.", b.Name)
		ev.Effect = fmt.Sprintf("Retire %s of seller note for %s.", FormatMoney(b.SellerNoteBalance), FormatMoney(ev.OfferAmount))
		ev.Choices = []EventChoice{
			{Label: "Pay it off", Description: fmt.Sprintf("%s discount on the remaining balance.", FormatPercent(ev.Magnitude)), Action: ActionAcceptRenegotiation, Variant: "positive"},
			{Label: "Keep the note", Description: "Stay on the original schedule.", Action: ActionDeclineRenegotiation, Variant: "neutral"},
		}
	case EventManagementBuyout:
		v := CalculateExitValuation(b, state.Round, state.LastEventType, PortfolioContextFor(b, state.Businesses), state.IntegratedPlatforms)
		ev.Magnitude = uniform(rng, 0.10, 0.20)
		ev.OfferMultiple = math.Max(MinExitMultiple, v.TotalMultiple*(1-ev.Magnitude))
		ev.OfferAmount = maxInt(0, roundInt(float64(b.Ebitda)*ev.OfferMultiple))
		ev.BuyerName = "Management team"
		ev.BuyerType = BuyerIndividual
		ev.Title = "Management buyout proposal"
		ev.Description = fmt.Sprintf("The management of %s wants to buy the company.", b.Name)
		ev.Effect = fmt.Sprintf("Offer of %s (%s).", FormatMoney(ev.OfferAmount), FormatMultiple(ev.OfferMultiple))
		ev.Choices = []EventChoice{
			{Label: "Accept buyout", Description: "Sell at a discount to fair value.", Action: ActionAcceptBuyout, Variant: "neutral"},
			{Label: "Decline", Description: "Keep the business; a spurned team may underperform.", Action: ActionDeclineBuyout, Variant: "negative"},
		}
	}
	return ev
}

func rollSectorEvent(state GameState, active []Business, rng RNG) (GameEvent, bool) {
	owned := make(map[string]bool)
	for _, b := range active {
		owned[b.SectorID] = true
	}
	var candidates []struct {
		sector Sector
		def    SectorEvent
	}
	for _, s := range Sectors {
		if !owned[s.ID] {
			continue
		}
		for _, def := range s.Events {
			candidates = append(candidates, struct {
				sector Sector
				def    SectorEvent
			}{s, def})
		}
	}
	if len(candidates) == 0 {
		return GameEvent{}, false
	}
	probs := make([]float64, len(candidates))
	for i, c := range candidates {
		probs[i] = c.def.Probability
	}
	i := selectCumulative(probs, rng.Float64())
	if i < 0 {
		return GameEvent{}, false
	}
	c := candidates[i]
	target := ""
	if !c.def.AffectsAll {
		inSector := filterBusinesses(active, func(b Business) bool { return b.SectorID == c.sector.ID })
		target = inSector[pickIndex(rng, len(inSector))].ID
	}
	ev := newEvent(state, EventSector, target)
	ev.ID = eventID(state, EventSector, target+":"+c.def.ID)
	ev.SectorID = c.sector.ID
	ev.SectorEventID = c.def.ID
	ev.Title = c.def.Title
	ev.Description = c.def.Description
	ev.Effect = sectorEffectText(c.def)
	return ev, true
}

func sectorEffectText(def SectorEvent) string {
	scope := "one business"
	if def.AffectsAll {
		scope = "every business in the sector"
	}
	switch {
	case def.RevenueEffect != 0 && def.MarginEffect != 0:
		return fmt.Sprintf("Revenue %+.0f%% and margin %+.0fpt for %s.", def.RevenueEffect*100, def.MarginEffect*100, scope)
	case def.RevenueEffect != 0:
		return fmt.Sprintf("Revenue %+.0f%% for %s.", def.RevenueEffect*100, scope)
	default:
		return fmt.Sprintf("Margin %+.0fpt for %s.", def.MarginEffect*100, scope)
	}
}

// UnsolicitedOfferProbability is the chance that at least one of n businesses draws a
// 5% offer.
func UnsolicitedOfferProbability(n int) float64 {
	if n <= 0 {
		return 0
	}
	return 1 - math.Pow(0.95, float64(n))
}

func rollUnsolicitedOffer(state GameState, active []Business, rng RNG) (GameEvent, bool) {
	if rng.Float64() >= UnsolicitedOfferProbability(len(active)) {
		return GameEvent{}, false
	}
	b := active[pickIndex(rng, len(active))]
	v := CalculateExitValuation(b, state.Round, state.LastEventType, PortfolioContextFor(b, state.Businesses), state.IntegratedPlatforms)
	buyer := GenerateBuyerProfile(b, v.SizeTier, b.SectorID, rng)

	multiple := v.TotalMultiple + buyer.StrategicPremium
	multiple *= uniform(rng, 0.9, 1.2)
	multiple = math.Max(MinExitMultiple, multiple)

	ev := newEvent(state, EventUnsolicitedOffer, b.ID)
	ev.OfferMultiple = multiple
	ev.OfferAmount = maxInt(0, roundInt(float64(b.Ebitda)*multiple))
	ev.BuyerName = buyer.Name
	ev.BuyerType = buyer.Type
	ev.Title = "Unsolicited offer"
	ev.Description = fmt.Sprintf("%s wants to buy %s. %s", buyer.Name, b.Name, buyer.InvestmentThesis)
	ev.Effect = fmt.Sprintf("Offer of %s (%s EBITDA).", FormatMoney(ev.OfferAmount), FormatMultiple(multiple))
	ev.Choices = []EventChoice{
		{Label: "Accept", Description: fmt.Sprintf("Sell for %s, %s net of debt.", FormatMoney(ev.OfferAmount), FormatMoney(maxInt(0, ev.OfferAmount-b.TotalDebt()))), Action: ActionAcceptOffer, Variant: "positive"},
		{Label: "Decline", Description: "Keep compounding.", Action: ActionDeclineOffer, Variant: "neutral"},
	}
	return ev, true
}

func quietEvent(state GameState) GameEvent {
	ev := newEvent(state, EventQuiet, "")
	ev.Title = "Quiet year"
	ev.Description = "No major market or portfolio news."
	ev.Effect = "No effect."
	return ev
}

func newEvent(state GameState, t EventType, businessID string) GameEvent {
	return GameEvent{
		ID:                 eventID(state, t, businessID),
		Type:               t,
		Round:              state.Round,
		AffectedBusinessID: businessID,
	}
}

func eventID(state GameState, t EventType, key string) string {
	return uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("%d:%d:%s:%s", state.Seed, state.Round, t, key))).String()
}
