package api

import (
	"fmt"
	"net/http"

	"holdco/internal/game"
	"holdco/internal/round"
)

// Engine endpoints are stateless: the caller posts the whole game state and gets the
// computed result or the next state back. Nothing here touches the store.

type stateRequest struct {
	State      game.GameState `json:"state"`
	BusinessID string         `json:"business_id,omitempty"`
	Seed       int64          `json:"seed,omitempty"`
}

// rngFor seeds a draw from the request, falling back to the game seed and round so a
// replayed request lands on the same outcome.
func rngFor(seed int64, s game.GameState) game.RNG {
	if seed != 0 {
		return game.NewRNG(seed)
	}
	return game.NewRNG(s.Seed*1_000_003 + int64(s.Round))
}

func findBusiness(s game.GameState, id string) (game.Business, error) {
	i := s.BusinessIndex(id)
	if i < 0 {
		return game.Business{}, fmt.Errorf("business %q: %w", id, game.ErrBusinessNotFound)
	}
	return s.Businesses[i], nil
}

func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	var in stateRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	targets := in.State.ActiveBusinesses()
	if in.BusinessID != "" {
		b, err := findBusiness(in.State, in.BusinessID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		targets = []game.Business{b}
	}
	out := make([]game.ExitValuation, 0, len(targets))
	for _, b := range targets {
		out = append(out, game.CalculateExitValuation(b, in.State.Round, in.State.LastEventType,
			game.PortfolioContextFor(b, in.State.Businesses), in.State.IntegratedPlatforms))
	}
	s.metrics.valuations.Add(float64(len(out)))
	writeJSON(w, http.StatusOK, map[string]any{"valuations": out})
}

func (s *Server) handleTax(w http.ResponseWriter, r *http.Request) {
	var in stateRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st := in.State
	benefits := game.GetSharedServicesBenefits(st.SharedServices)
	sharedCost := game.SharedServicesAnnualCost(st.SharedServices)
	writeJSON(w, http.StatusOK, map[string]any{
		"tax": game.CalculatePortfolioTax(st.Businesses, st.HoldcoDebt, st.InterestRate, sharedCost),
		"fcf": game.CalculatePortfolioFcf(st.Businesses, benefits.CapexReduction, benefits.CashConversionBonus,
			st.HoldcoDebt, st.InterestRate, sharedCost),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var in stateRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m := game.CalculateMetrics(in.State)
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics": m,
		"score":   game.FinalScore(m, in.State.TotalDistributions),
	})
}

func (s *Server) handleGenerateEvent(w http.ResponseWriter, r *http.Request) {
	var in stateRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ev := game.GenerateEvent(in.State, rngFor(in.Seed, in.State))
	s.metrics.events.WithLabelValues(string(ev.Type)).Inc()
	writeJSON(w, http.StatusOK, map[string]any{"event": ev})
}

func (s *Server) handleApplyEvent(w http.ResponseWriter, r *http.Request) {
	var in struct {
		State game.GameState `json:"state"`
		Event game.GameEvent `json:"event"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Event.Type == "" {
		writeError(w, http.StatusBadRequest, "event type is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": game.ApplyEventEffects(in.State, in.Event)})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var in stateRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := round.Advance(in.State, rngFor(in.Seed, in.State))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.metrics.rounds.Inc()
	s.metrics.events.WithLabelValues(string(res.Event.Type)).Inc()
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleChoice(w http.ResponseWriter, r *http.Request) {
	var in struct {
		State  game.GameState    `json:"state"`
		Action game.ChoiceAction `json:"action"`
		Seed   int64             `json:"seed,omitempty"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := round.ResolveChoice(in.State, in.Action, rngFor(in.Seed, in.State))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": out})
}

func (s *Server) handleEligibleTurnarounds(w http.ResponseWriter, r *http.Request) {
	var in stateRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := findBusiness(in.State, in.BusinessID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	sector, _ := game.SectorByID(b.SectorID)
	programs := game.GetEligiblePrograms(b, in.State.TurnaroundTier, in.State.ActiveTurnarounds, sector.QualityCeiling)

	type quote struct {
		game.TurnaroundProgram
		Cost     int64 `json:"cost"`
		Duration int   `json:"duration"`
	}
	out := make([]quote, 0, len(programs))
	for _, p := range programs {
		out = append(out, quote{
			TurnaroundProgram: p,
			Cost:              game.CalculateTurnaroundCost(p, b),
			Duration:          game.TurnaroundDuration(p, in.State.EffectiveMaxRounds()),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"programs": out})
}

func (s *Server) handleStartTurnaround(w http.ResponseWriter, r *http.Request) {
	var in struct {
		State      game.GameState `json:"state"`
		BusinessID string         `json:"business_id"`
		ProgramID  string         `json:"program_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := game.StartTurnaround(in.State, in.BusinessID, in.ProgramID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": out})
}
