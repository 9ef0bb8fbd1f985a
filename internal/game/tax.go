package game

// PortfolioTaxBreakdown reports consolidated tax with the shield attributed to each
// deduction bucket.
type PortfolioTaxBreakdown struct {
	GrossEbitda        int64   `json:"gross_ebitda"`
	LossOffset         int64   `json:"loss_offset"`
	NetEbitda          int64   `json:"net_ebitda"`
	HoldcoInterest     int64   `json:"holdco_interest"`
	OpcoInterest       int64   `json:"opco_interest"`
	TotalInterest      int64   `json:"total_interest"`
	SharedServicesCost int64   `json:"shared_services_cost"`
	TaxableIncome      int64   `json:"taxable_income"`
	TaxAmount          int64   `json:"tax_amount"`
	NaiveTax           int64   `json:"naive_tax"`
	LossShield         int64   `json:"loss_shield"`
	InterestShield     int64   `json:"interest_shield"`
	SharedCostShield   int64   `json:"shared_cost_shield"`
	TotalTaxSavings    int64   `json:"total_tax_savings"`
	EffectiveTaxRate   float64 `json:"effective_tax_rate"`
}

// CalculatePortfolioTax consolidates active businesses. Deductions are attributed in
// the fixed order losses, interest, shared services.
func CalculatePortfolioTax(businesses []Business, holdcoDebt int64, holdcoRate float64, sharedServicesCost int64) PortfolioTaxBreakdown {
	var t PortfolioTaxBreakdown
	t.SharedServicesCost = sharedServicesCost
	t.HoldcoInterest = roundInt(float64(holdcoDebt) * holdcoRate)

	for _, b := range businesses {
		if !b.Active() {
			continue
		}
		if b.Ebitda >= 0 {
			t.GrossEbitda += b.Ebitda
		} else {
			t.LossOffset += -b.Ebitda
		}
		t.OpcoInterest += roundInt(float64(b.SellerNoteBalance) * b.SellerNoteRate)
		t.OpcoInterest += roundInt(float64(b.BankDebtBalance) * b.BankDebtRate)
	}
	t.NetEbitda = t.GrossEbitda - t.LossOffset
	t.TotalInterest = t.HoldcoInterest + t.OpcoInterest

	t.TaxableIncome = maxInt(0, t.NetEbitda-t.TotalInterest-sharedServicesCost)
	t.TaxAmount = roundInt(float64(t.TaxableIncome) * TaxRate)
	t.NaiveTax = roundInt(float64(maxInt(0, t.GrossEbitda)) * TaxRate)

	remaining := maxInt(0, t.GrossEbitda)
	shield := func(bucket int64) int64 {
		d := minInt(remaining, maxInt(0, bucket))
		remaining -= d
		return roundInt(float64(d) * TaxRate)
	}
	t.LossShield = shield(t.LossOffset)
	t.InterestShield = shield(t.TotalInterest)
	t.SharedCostShield = shield(sharedServicesCost)

	// Savings come from the two totals so shield rounding never drifts the figure.
	t.TotalTaxSavings = t.NaiveTax - t.TaxAmount
	if t.NetEbitda > 0 {
		t.EffectiveTaxRate = float64(t.TaxAmount) / float64(t.NetEbitda)
	}
	return t
}

// BusinessFcf is pre-tax free cash flow for one business.
func BusinessFcf(b Business, capexReduction, cashConversionBonus float64) int64 {
	sector, _ := SectorByID(b.SectorID)
	capex := roundInt(float64(maxInt(0, b.Ebitda)) * sector.CapexRate)
	return roundInt((float64(b.Ebitda) - float64(capex)*(1-capexReduction)) * (1 + cashConversionBonus))
}

func CalculatePortfolioFcf(businesses []Business, capexReduction, cashConversionBonus float64, holdcoDebt int64, holdcoRate float64, sharedServicesCost int64) int64 {
	var total int64
	for _, b := range businesses {
		if b.Active() {
			total += BusinessFcf(b, capexReduction, cashConversionBonus)
		}
	}
	return total - CalculatePortfolioTax(businesses, holdcoDebt, holdcoRate, sharedServicesCost).TaxAmount
}
