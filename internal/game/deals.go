package game

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

var dealNameStems = []string{
	"Summit", "Harbor", "Keystone", "Northwind", "Bluegrass", "Ironwood", "Meridian",
	"Lakeshore", "Redline", "Cornerstone", "Granite", "Beacon", "Pinecrest", "Sterling",
}

// DealTerms fixes how an acquisition is financed. Fractions are of the purchase price.
type DealTerms struct {
	SellerNoteFraction float64 `json:"seller_note_fraction"`
	SellerNoteRate     float64 `json:"seller_note_rate"`
	SellerNoteRounds   int     `json:"seller_note_rounds"`
	BankDebtFraction   float64 `json:"bank_debt_fraction"`
	BankDebtRate       float64 `json:"bank_debt_rate"`
	BankDebtRounds     int     `json:"bank_debt_rounds"`
	EarnoutFraction    float64 `json:"earnout_fraction"`
	EarnoutTarget      float64 `json:"earnout_target"`
}

var DefaultDealTerms = DealTerms{
	SellerNoteFraction: 0.20, SellerNoteRate: 0.06, SellerNoteRounds: 4,
	BankDebtFraction: 0.30, BankDebtRate: 0.08, BankDebtRounds: 5,
}

// Equity is the cash the holdco puts in at close.
func (t DealTerms) Equity(price int64) int64 {
	debt := roundInt(float64(price)*t.SellerNoteFraction) + roundInt(float64(price)*t.BankDebtFraction) + roundInt(float64(price)*t.EarnoutFraction)
	return maxInt(0, price-debt)
}

// NewBusiness draws a fresh deal in sector at round. Due diligence is fixed here and
// never regenerated. The draw order is revenue, margin, growth, multiple, quality,
// then the five diligence signals and the name.
func NewBusiness(sectorID string, round int, terms DealTerms, key string, rng RNG) Business {
	sector, _ := SectorByID(sectorID)

	revenue := roundInt(uniform(rng, 2_000, 8_000))
	margin := ClampMargin(uniform(rng, sector.MarginMin, sector.MarginMax))
	growth := CapGrowthRate(uniform(rng, sector.GrowthMin, sector.GrowthMax))
	multiple := math.Round(uniform(rng, sector.MultipleMin, sector.MultipleMax)*10) / 10
	quality := 1 + pickIndex(rng, min(5, max(1, sector.QualityCeiling)))

	dd := DueDiligence{
		Concentration:       []Concentration{ConcentrationLow, ConcentrationMedium, ConcentrationHigh}[pickIndex(rng, 3)],
		OperatorQuality:     []OperatorQuality{OperatorStrong, OperatorModerate, OperatorWeak}[pickIndex(rng, 3)],
		Trend:               []Trend{TrendGrowing, TrendFlat, TrendDeclining}[pickIndex(rng, 3)],
		CustomerRetention:   math.Round(uniform(rng, 70, 98)),
		CompetitivePosition: []CompetitivePosition{PositionLeader, PositionCompetitive, PositionCommoditized}[pickIndex(rng, 3)],
	}
	name := fmt.Sprintf("%s %s", dealNameStems[pickIndex(rng, len(dealNameStems))], sector.Name)

	ebitda := DeriveEbitda(revenue, margin)
	price := roundInt(float64(ebitda) * multiple)
	b := Business{
		ID:                         uuid.NewSHA1(idNamespace, []byte("business:"+key)).String(),
		Name:                       name,
		SectorID:                   sectorID,
		Revenue:                    revenue,
		EbitdaMargin:               margin,
		Ebitda:                     ebitda,
		RevenueGrowthRate:          growth,
		AcquisitionRevenue:         revenue,
		AcquisitionMargin:          margin,
		AcquisitionEbitda:          ebitda,
		AcquisitionMultiple:        multiple,
		AcquisitionPrice:           price,
		AcquisitionRound:           round,
		AcquisitionSizeTierPremium: CalculateSizeTierPremium(ebitda).Premium,
		PeakRevenue:                revenue,
		PeakEbitda:                 ebitda,
		QualityRating:              quality,
		DueDiligence:               dd,
		SellerNoteBalance:          roundInt(float64(price) * terms.SellerNoteFraction),
		SellerNoteRate:             terms.SellerNoteRate,
		SellerNoteRoundsRemaining:  terms.SellerNoteRounds,
		BankDebtBalance:            roundInt(float64(price) * terms.BankDebtFraction),
		BankDebtRate:               terms.BankDebtRate,
		BankDebtRoundsRemaining:    terms.BankDebtRounds,
		EarnoutRemaining:           roundInt(float64(price) * terms.EarnoutFraction),
		EarnoutTarget:              terms.EarnoutTarget,
		Status:                     StatusActive,
	}
	if dd.Trend == TrendDeclining {
		b.MarginDriftRate = -0.005
	}
	if b.SellerNoteBalance == 0 {
		b.SellerNoteRate, b.SellerNoteRoundsRemaining = 0, 0
	}
	if b.BankDebtBalance == 0 {
		b.BankDebtRate, b.BankDebtRoundsRemaining = 0, 0
	}
	return b
}
