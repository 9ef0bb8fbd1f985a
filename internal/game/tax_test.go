package game

import "testing"

func TestCalculatePortfolioTaxAttribution(t *testing.T) {
	profit := testBusiness(SectorAgency, 5000, 0.20)
	loss := testBusiness(SectorSaaS, 2000, 0.10)
	loss.ID = "loss"
	loss.Ebitda = -200

	got := CalculatePortfolioTax([]Business{profit, loss}, 3000, 0.10, 100)
	want := PortfolioTaxBreakdown{
		GrossEbitda:        1000,
		LossOffset:         200,
		NetEbitda:          800,
		HoldcoInterest:     300,
		TotalInterest:      300,
		SharedServicesCost: 100,
		TaxableIncome:      400,
		TaxAmount:          120,
		NaiveTax:           300,
		LossShield:         60,
		InterestShield:     90,
		SharedCostShield:   30,
		TotalTaxSavings:    180,
		EffectiveTaxRate:   0.15,
	}
	if got != want {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
}

func TestCalculatePortfolioTaxShieldsNeverExceedNaive(t *testing.T) {
	a := testBusiness(SectorAgency, 5000, 0.20)
	a.SellerNoteBalance, a.SellerNoteRate = 4000, 0.06
	a.BankDebtBalance, a.BankDebtRate = 6000, 0.08
	b := testBusiness(SectorSaaS, 1000, 0.10)
	b.ID = "b"
	b.Ebitda = -900

	got := CalculatePortfolioTax([]Business{a, b}, 5000, 0.15, 400)
	if got.TaxableIncome != 0 || got.TaxAmount != 0 {
		t.Fatalf("expected no tax, got %+v", got)
	}
	if got.OpcoInterest != 240+480 {
		t.Fatalf("opco interest=%d", got.OpcoInterest)
	}
	shields := got.LossShield + got.InterestShield + got.SharedCostShield
	if shields > got.NaiveTax {
		t.Fatalf("shields %d exceed naive tax %d", shields, got.NaiveTax)
	}
	if got.TotalTaxSavings != got.NaiveTax {
		t.Fatalf("savings=%d naive=%d", got.TotalTaxSavings, got.NaiveTax)
	}
}

func TestCalculatePortfolioTaxSkipsInactive(t *testing.T) {
	sold := testBusiness(SectorAgency, 5000, 0.20)
	sold.Status = StatusSold
	got := CalculatePortfolioTax([]Business{sold}, 0, 0.07, 0)
	if got.GrossEbitda != 0 || got.TaxAmount != 0 {
		t.Fatalf("sold business taxed: %+v", got)
	}
}

func TestBusinessFcf(t *testing.T) {
	b := testBusiness(SectorAgency, 5000, 0.20)
	tests := []struct {
		capexReduction, cashBonus float64
		want                      int64
	}{
		{want: 970},
		{capexReduction: 0.5, want: 985},
		{cashBonus: 0.10, want: 1067},
	}
	for _, tc := range tests {
		if got := BusinessFcf(b, tc.capexReduction, tc.cashBonus); got != tc.want {
			t.Fatalf("capex=%v bonus=%v fcf=%d want %d", tc.capexReduction, tc.cashBonus, got, tc.want)
		}
	}
}

func TestCalculatePortfolioFcfNetsTax(t *testing.T) {
	b := testBusiness(SectorAgency, 5000, 0.20)
	if got := CalculatePortfolioFcf([]Business{b}, 0, 0, 0, 0.07, 0); got != 670 {
		t.Fatalf("portfolio fcf=%d want 670", got)
	}
}
