package game

import "testing"

func TestYearsHeldNeverNegative(t *testing.T) {
	b := testBusiness(SectorAgency, 5000, 0.20)
	b.AcquisitionRound = 5
	if got := b.YearsHeld(3); got != 0 {
		t.Fatalf("years held=%d want 0", got)
	}
	if got := b.YearsHeld(8); got != 3 {
		t.Fatalf("years held=%d want 3", got)
	}
}

func TestGameStateCloneIsDeep(t *testing.T) {
	s := GameState{
		Businesses:   []Business{testBusiness(SectorSaaS, 4000, 0.25)},
		CurrentEvent: &GameEvent{ID: "ev", Choices: []EventChoice{{Action: ActionAcceptOffer}}},
	}
	c := s.Clone()
	c.Businesses[0].Revenue = 1
	c.CurrentEvent.Choices[0].Action = ActionDeclineOffer
	if s.Businesses[0].Revenue != 4000 {
		t.Fatalf("clone shares businesses")
	}
	if s.CurrentEvent.Choices[0].Action != ActionAcceptOffer {
		t.Fatalf("clone shares current event choices")
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []BusinessStatus{StatusSold, StatusIntegrated, StatusMerged} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	if StatusActive.Terminal() {
		t.Fatalf("active is not terminal")
	}
}
