package game

import "testing"

func TestNewBusinessDeterministic(t *testing.T) {
	a := NewBusiness(SectorSaaS, 2, DefaultDealTerms, "k", NewRNG(7))
	b := NewBusiness(SectorSaaS, 2, DefaultDealTerms, "k", NewRNG(7))
	if a.ID != b.ID || a.Revenue != b.Revenue || a.EbitdaMargin != b.EbitdaMargin || a.DueDiligence != b.DueDiligence {
		t.Fatalf("same seed produced different deals:\n%+v\n%+v", a, b)
	}
	if c := NewBusiness(SectorSaaS, 2, DefaultDealTerms, "other", NewRNG(7)); c.ID == a.ID {
		t.Fatalf("different keys share an id")
	}
}

func TestNewBusinessWithinSectorRanges(t *testing.T) {
	for seed := int64(1); seed <= 100; seed++ {
		for _, sector := range Sectors {
			b := NewBusiness(sector.ID, 0, DefaultDealTerms, sector.ID, NewRNG(seed))
			if b.EbitdaMargin < sector.MarginMin || b.EbitdaMargin > sector.MarginMax {
				t.Fatalf("%s margin %v outside range", sector.ID, b.EbitdaMargin)
			}
			if b.QualityRating < 1 || b.QualityRating > sector.QualityCeiling {
				t.Fatalf("%s quality %d above ceiling %d", sector.ID, b.QualityRating, sector.QualityCeiling)
			}
			if b.Ebitda != DeriveEbitda(b.Revenue, b.EbitdaMargin) || b.AcquisitionEbitda != b.Ebitda {
				t.Fatalf("%s ebitda %d inconsistent", sector.ID, b.Ebitda)
			}
			if b.TotalDebt() > b.AcquisitionPrice {
				t.Fatalf("%s debt %d above price %d", sector.ID, b.TotalDebt(), b.AcquisitionPrice)
			}
		}
	}
}

func TestDealTermsEquity(t *testing.T) {
	if got := DefaultDealTerms.Equity(10000); got != 5000 {
		t.Fatalf("equity=%d want 5000", got)
	}
	if got := (DealTerms{}).Equity(10000); got != 10000 {
		t.Fatalf("all-cash equity=%d", got)
	}
}
