package game

const netDebtSentinel = 99.0

// CalculateMetrics builds the observable snapshot for the state's current round.
func CalculateMetrics(state GameState) Metrics {
	active := state.ActiveBusinesses()
	m := Metrics{
		Round:            state.Round,
		Cash:             state.Cash,
		HoldcoDebt:       state.HoldcoDebt,
		ActiveBusinesses: len(active),
	}

	benefits := GetSharedServicesBenefits(state.SharedServices)
	m.SharedServices = SharedServicesAnnualCost(state.SharedServices)
	m.Tax = CalculatePortfolioTax(active, state.HoldcoDebt, state.InterestRate, m.SharedServices)
	m.InterestExpense = m.Tax.TotalInterest
	m.TotalFcf = CalculatePortfolioFcf(active, benefits.CapexReduction, benefits.CashConversionBonus, state.HoldcoDebt, state.InterestRate, m.SharedServices)

	for _, b := range active {
		m.TotalRevenue += b.Revenue
		m.TotalEbitda += b.Ebitda
		m.OpcoDebt += b.TotalDebt()
		m.InvestedCapital += b.AcquisitionPrice
		v := CalculateExitValuation(b, state.Round, state.LastEventType, PortfolioContextFor(b, state.Businesses), state.IntegratedPlatforms)
		m.PortfolioValue += v.ExitPrice
	}
	m.TotalDebt = m.HoldcoDebt + m.OpcoDebt
	m.NetDebt = m.TotalDebt - m.Cash
	m.EquityValue = maxInt(0, m.PortfolioValue-m.TotalDebt+m.Cash)

	if m.TotalRevenue > 0 {
		m.AvgEbitdaMargin = float64(m.TotalEbitda) / float64(m.TotalRevenue)
	}
	if m.TotalEbitda > 0 {
		m.CashConversion = float64(m.TotalFcf) / float64(m.TotalEbitda)
	}
	if m.InvestedCapital > 0 {
		m.Roic = float64(m.TotalEbitda-m.Tax.TaxAmount) / float64(m.InvestedCapital)
	}
	if state.InitialCapital > 0 {
		m.Moic = float64(m.EquityValue+state.TotalDistributions) / float64(state.InitialCapital)
	}

	switch {
	case m.NetDebt <= 0:
		m.NetDebtToEbitda = 0
	case m.TotalEbitda > 0:
		m.NetDebtToEbitda = float64(m.NetDebt) / float64(m.TotalEbitda)
	default:
		m.NetDebtToEbitda = netDebtSentinel
	}
	m.DistressLevel = distressLevel(m.NetDebtToEbitda, m.Cash)
	return m
}

func distressLevel(leverage float64, cash int64) DistressLevel {
	switch {
	case cash < 0:
		return DistressBreach
	case leverage < 2.5:
		return DistressComfortable
	case leverage < 3.5:
		return DistressElevated
	case leverage < 4.5:
		return DistressStressed
	default:
		return DistressBreach
	}
}

// FinalScore is equity plus cash already returned to shareholders.
func FinalScore(m Metrics, totalDistributions int64) int64 {
	return m.EquityValue + totalDistributions
}
