package game

// Sector is static configuration for an industry the holdco can own.
type Sector struct {
	ID                   string        `json:"id"`
	Name                 string        `json:"name"`
	FocusGroup           string        `json:"focus_group"`
	CapexRate            float64       `json:"capex_rate"`
	Volatility           float64       `json:"volatility"`
	MarginVolatility     float64       `json:"margin_volatility"`
	RecessionSensitivity float64       `json:"recession_sensitivity"`
	MarginMin            float64       `json:"margin_min"`
	MarginMax            float64       `json:"margin_max"`
	GrowthMin            float64       `json:"growth_min"`
	GrowthMax            float64       `json:"growth_max"`
	MultipleMin          float64       `json:"multiple_min"`
	MultipleMax          float64       `json:"multiple_max"`
	QualityCeiling       int           `json:"quality_ceiling"`
	Acquirers            []string      `json:"acquirers"`
	Events               []SectorEvent `json:"events"`
}

func (s Sector) MidMargin() float64 {
	return (s.MarginMin + s.MarginMax) / 2
}

// SectorEvent is a sector-specific shock. AffectsAll hits every owned business in the
// sector instead of one random pick.
type SectorEvent struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Probability   float64 `json:"probability"`
	RevenueEffect float64 `json:"revenue_effect"`
	MarginEffect  float64 `json:"margin_effect"`
	AffectsAll    bool    `json:"affects_all"`
}

const (
	SectorAgency       = "agency"
	SectorSaaS         = "saas"
	SectorHomeServices = "home_services"
	SectorConsumer     = "consumer"
	SectorIndustrial   = "industrial"
	SectorB2BServices  = "b2b_services"
	SectorHealthcare   = "healthcare"
	SectorRestaurant   = "restaurant"
	SectorRealEstate   = "real_estate"
	SectorEducation    = "education"
	SectorInsurance    = "insurance"
	SectorAutoServices = "auto_services"
)

// Sectors is ordered; sector events are evaluated in this order.
var Sectors = []Sector{
	{
		ID: SectorAgency, Name: "Marketing Agency", FocusGroup: "services",
		CapexRate: 0.03, Volatility: 0.08, MarginVolatility: 0.015, RecessionSensitivity: 1.2,
		MarginMin: 0.10, MarginMax: 0.25, GrowthMin: 0.02, GrowthMax: 0.10,
		MultipleMin: 3.0, MultipleMax: 5.5, QualityCeiling: 4,
		Acquirers: []string{"Omnicom Partners", "Publicis Holdings", "Stagwell Group", "Dentsu Ventures"},
		Events: []SectorEvent{
			{ID: "agency_ai_disruption", Title: "AI creative tools flood the market", Description: "Clients bring more work in-house.", Probability: 0.04, RevenueEffect: -0.06, MarginEffect: -0.01, AffectsAll: true},
			{ID: "agency_award", Title: "Campaign wins an industry award", Description: "Inbound demand spikes.", Probability: 0.03, RevenueEffect: 0.08, MarginEffect: 0.01},
		},
	},
	{
		ID: SectorSaaS, Name: "Vertical SaaS", FocusGroup: "tech",
		CapexRate: 0.05, Volatility: 0.10, MarginVolatility: 0.02, RecessionSensitivity: 0.6,
		MarginMin: 0.15, MarginMax: 0.40, GrowthMin: 0.08, GrowthMax: 0.20,
		MultipleMin: 5.0, MultipleMax: 9.0, QualityCeiling: 5,
		Acquirers: []string{"Constellation Software", "Vista Equity Portfolio", "Roper Technologies", "Tyler Systems"},
		Events: []SectorEvent{
			{ID: "saas_platform_shift", Title: "Platform shift forces rebuild", Description: "Legacy stack needs a costly rewrite.", Probability: 0.03, RevenueEffect: -0.04, MarginEffect: -0.03},
			{ID: "saas_category_leader", Title: "Analysts name the category leader", Description: "Pipeline accelerates across the board.", Probability: 0.03, RevenueEffect: 0.10, AffectsAll: true},
		},
	},
	{
		ID: SectorHomeServices, Name: "Home Services", FocusGroup: "services",
		CapexRate: 0.06, Volatility: 0.06, MarginVolatility: 0.01, RecessionSensitivity: 0.8,
		MarginMin: 0.10, MarginMax: 0.20, GrowthMin: 0.03, GrowthMax: 0.08,
		MultipleMin: 3.5, MultipleMax: 6.0, QualityCeiling: 5,
		Acquirers: []string{"Authority Brands", "Neighborly", "Wrench Group", "Apex Service Partners"},
		Events: []SectorEvent{
			{ID: "home_storm_season", Title: "Severe storm season", Description: "Emergency repair calls surge.", Probability: 0.04, RevenueEffect: 0.07, AffectsAll: true},
			{ID: "home_labor_shortage", Title: "Technician shortage", Description: "Wages climb to keep crews staffed.", Probability: 0.04, MarginEffect: -0.02, AffectsAll: true},
		},
	},
	{
		ID: SectorConsumer, Name: "Consumer Brand", FocusGroup: "consumer",
		CapexRate: 0.04, Volatility: 0.12, MarginVolatility: 0.02, RecessionSensitivity: 1.3,
		MarginMin: 0.08, MarginMax: 0.22, GrowthMin: 0.00, GrowthMax: 0.12,
		MultipleMin: 2.5, MultipleMax: 5.0, QualityCeiling: 4,
		Acquirers: []string{"Unilever Ventures", "Procter Brands", "Helen of Troy", "Spectrum Brands"},
		Events: []SectorEvent{
			{ID: "consumer_viral", Title: "Product goes viral", Description: "Social buzz sells out inventory.", Probability: 0.03, RevenueEffect: 0.15},
			{ID: "consumer_tariff", Title: "Import tariffs raise input costs", Description: "Landed costs jump overnight.", Probability: 0.04, MarginEffect: -0.02, AffectsAll: true},
		},
	},
	{
		ID: SectorIndustrial, Name: "Light Industrial", FocusGroup: "industrial",
		CapexRate: 0.10, Volatility: 0.07, MarginVolatility: 0.01, RecessionSensitivity: 1.4,
		MarginMin: 0.12, MarginMax: 0.22, GrowthMin: 0.01, GrowthMax: 0.06,
		MultipleMin: 4.0, MultipleMax: 6.5, QualityCeiling: 5,
		Acquirers: []string{"Dover Industries", "Indutrade", "Lincoln Electric", "Tenex Capital Partners"},
		Events: []SectorEvent{
			{ID: "industrial_reshoring", Title: "Reshoring wave", Description: "Domestic customers move production home.", Probability: 0.03, RevenueEffect: 0.09, AffectsAll: true},
			{ID: "industrial_equipment_failure", Title: "Critical equipment failure", Description: "A line goes down for weeks.", Probability: 0.04, RevenueEffect: -0.05, MarginEffect: -0.01},
		},
	},
	{
		ID: SectorB2BServices, Name: "B2B Services", FocusGroup: "services",
		CapexRate: 0.03, Volatility: 0.07, MarginVolatility: 0.012, RecessionSensitivity: 1.0,
		MarginMin: 0.12, MarginMax: 0.25, GrowthMin: 0.03, GrowthMax: 0.09,
		MultipleMin: 4.0, MultipleMax: 7.0, QualityCeiling: 5,
		Acquirers: []string{"Cintas Holdings", "ABM Industries", "Aramark Services", "Rentokil Group"},
		Events: []SectorEvent{
			{ID: "b2b_outsourcing", Title: "Outsourcing trend accelerates", Description: "Corporates cut internal teams.", Probability: 0.04, RevenueEffect: 0.06, AffectsAll: true},
			{ID: "b2b_contract_loss", Title: "Key contract rebid", Description: "A major contract goes to a lower bidder.", Probability: 0.03, RevenueEffect: -0.08},
		},
	},
	{
		ID: SectorHealthcare, Name: "Healthcare Services", FocusGroup: "healthcare",
		CapexRate: 0.05, Volatility: 0.05, MarginVolatility: 0.01, RecessionSensitivity: 0.3,
		MarginMin: 0.12, MarginMax: 0.28, GrowthMin: 0.04, GrowthMax: 0.10,
		MultipleMin: 5.0, MultipleMax: 8.5, QualityCeiling: 5,
		Acquirers: []string{"UnitedHealth Optum", "HCA Ventures", "Welsh Carson Health", "Ensign Group"},
		Events: []SectorEvent{
			{ID: "health_reimbursement_cut", Title: "Reimbursement rates cut", Description: "Payers trim fee schedules.", Probability: 0.04, MarginEffect: -0.02, AffectsAll: true},
			{ID: "health_aging_demand", Title: "Demographic tailwind", Description: "Patient volumes rise.", Probability: 0.04, RevenueEffect: 0.06, AffectsAll: true},
		},
	},
	{
		ID: SectorRestaurant, Name: "Restaurant Group", FocusGroup: "consumer",
		CapexRate: 0.08, Volatility: 0.10, MarginVolatility: 0.02, RecessionSensitivity: 1.5,
		MarginMin: 0.06, MarginMax: 0.15, GrowthMin: 0.00, GrowthMax: 0.08,
		MultipleMin: 2.5, MultipleMax: 4.5, QualityCeiling: 4,
		Acquirers: []string{"Darden Concepts", "Inspire Brands", "Fat Brands", "Roark Capital Partners"},
		Events: []SectorEvent{
			{ID: "restaurant_food_costs", Title: "Food cost spike", Description: "Commodity prices surge.", Probability: 0.05, MarginEffect: -0.02, AffectsAll: true},
			{ID: "restaurant_review", Title: "Rave critic review", Description: "Reservations booked for months.", Probability: 0.03, RevenueEffect: 0.10},
		},
	},
	{
		ID: SectorRealEstate, Name: "Property Management", FocusGroup: "financial",
		CapexRate: 0.07, Volatility: 0.05, MarginVolatility: 0.01, RecessionSensitivity: 1.1,
		MarginMin: 0.15, MarginMax: 0.35, GrowthMin: 0.02, GrowthMax: 0.07,
		MultipleMin: 4.0, MultipleMax: 7.0, QualityCeiling: 5,
		Acquirers: []string{"FirstService Residential", "Greystar Holdings", "RealPage Capital", "Associa Group"},
		Events: []SectorEvent{
			{ID: "realestate_rate_squeeze", Title: "Cap rates expand", Description: "Owners cut fees to keep buildings.", Probability: 0.04, RevenueEffect: -0.05, AffectsAll: true},
		},
	},
	{
		ID: SectorEducation, Name: "Education & Training", FocusGroup: "tech",
		CapexRate: 0.04, Volatility: 0.08, MarginVolatility: 0.015, RecessionSensitivity: 0.5,
		MarginMin: 0.12, MarginMax: 0.30, GrowthMin: 0.05, GrowthMax: 0.15,
		MultipleMin: 4.5, MultipleMax: 8.0, QualityCeiling: 5,
		Acquirers: []string{"Pearson Learning", "Bright Horizons", "KKR Education", "Stride Holdings"},
		Events: []SectorEvent{
			{ID: "education_accreditation", Title: "New accreditation secured", Description: "Programs qualify for employer funding.", Probability: 0.03, RevenueEffect: 0.08},
			{ID: "education_enrollment_dip", Title: "Enrollment dip", Description: "A strong job market pulls students away.", Probability: 0.04, RevenueEffect: -0.05, AffectsAll: true},
		},
	},
	{
		ID: SectorInsurance, Name: "Insurance Brokerage", FocusGroup: "financial",
		CapexRate: 0.02, Volatility: 0.04, MarginVolatility: 0.01, RecessionSensitivity: 0.4,
		MarginMin: 0.18, MarginMax: 0.35, GrowthMin: 0.04, GrowthMax: 0.09,
		MultipleMin: 6.0, MultipleMax: 10.0, QualityCeiling: 5,
		Acquirers: []string{"Hub International", "Acrisure", "Gallagher Partners", "BroadStreet Group"},
		Events: []SectorEvent{
			{ID: "insurance_hard_market", Title: "Hard market pricing", Description: "Premiums rise and commissions follow.", Probability: 0.04, RevenueEffect: 0.07, AffectsAll: true},
		},
	},
	{
		ID: SectorAutoServices, Name: "Auto Services", FocusGroup: "industrial",
		CapexRate: 0.09, Volatility: 0.06, MarginVolatility: 0.012, RecessionSensitivity: 0.7,
		MarginMin: 0.10, MarginMax: 0.20, GrowthMin: 0.02, GrowthMax: 0.07,
		MultipleMin: 3.5, MultipleMax: 6.0, QualityCeiling: 4,
		Acquirers: []string{"Driven Brands", "Caliber Collision", "Mavis Holdings", "Valvoline Retail"},
		Events: []SectorEvent{
			{ID: "auto_ev_transition", Title: "EV transition pressure", Description: "Fewer oil changes, more diagnostics.", Probability: 0.03, RevenueEffect: -0.04, MarginEffect: -0.01, AffectsAll: true},
			{ID: "auto_fleet_contract", Title: "Fleet contract awarded", Description: "A delivery fleet signs a multi-year deal.", Probability: 0.03, RevenueEffect: 0.09},
		},
	},
}

var sectorsByID = indexSectors(Sectors)

func indexSectors(sectors []Sector) map[string]int {
	out := make(map[string]int, len(sectors))
	for i, s := range sectors {
		out[s.ID] = i
	}
	return out
}

// SectorByID returns a zero-rate fallback for unknown ids so arithmetic stays total.
func SectorByID(id string) (Sector, bool) {
	i, ok := sectorsByID[id]
	if !ok {
		return Sector{ID: id, Name: id, QualityCeiling: 5, MarginMin: MinMargin, MarginMax: MaxMargin}, false
	}
	return Sectors[i], true
}
