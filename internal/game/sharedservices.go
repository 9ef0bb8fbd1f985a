package game

type SharedServiceType string

const (
	ServiceFinanceReporting  SharedServiceType = "finance_reporting"
	ServiceRecruitingHR      SharedServiceType = "recruiting_hr"
	ServiceProcurement       SharedServiceType = "procurement"
	ServiceMarketingBrand    SharedServiceType = "marketing_brand"
	ServiceTechnologySystems SharedServiceType = "technology_systems"
)

type SharedService struct {
	Type          SharedServiceType `json:"type"`
	Active        bool              `json:"active"`
	UnlockedRound int               `json:"unlocked_round"`
}

// SharedServiceSpec is the catalog entry for one holdco-level capability.
type SharedServiceSpec struct {
	Type       SharedServiceType      `json:"type"`
	Name       string                 `json:"name"`
	UnlockCost int64                  `json:"unlock_cost"`
	AnnualCost int64                  `json:"annual_cost"`
	MinActive  int                    `json:"min_active"`
	Benefits   SharedServicesBenefits `json:"benefits"`
}

type SharedServicesBenefits struct {
	CapexReduction       float64 `json:"capex_reduction"`
	CashConversionBonus  float64 `json:"cash_conversion_bonus"`
	GrowthBonus          float64 `json:"growth_bonus"`
	MarginDefense        float64 `json:"margin_defense"`
	TalentRetentionBonus float64 `json:"talent_retention_bonus"`
	TalentGainBonus      float64 `json:"talent_gain_bonus"`
}

var SharedServiceCatalog = []SharedServiceSpec{
	{Type: ServiceFinanceReporting, Name: "Finance & Reporting", UnlockCost: 600, AnnualCost: 150, MinActive: 3, Benefits: SharedServicesBenefits{CashConversionBonus: 0.05}},
	{Type: ServiceRecruitingHR, Name: "Recruiting & HR", UnlockCost: 500, AnnualCost: 200, MinActive: 3, Benefits: SharedServicesBenefits{TalentRetentionBonus: 0.50, TalentGainBonus: 0.50}},
	{Type: ServiceProcurement, Name: "Procurement", UnlockCost: 700, AnnualCost: 125, MinActive: 3, Benefits: SharedServicesBenefits{CapexReduction: 0.15}},
	{Type: ServiceMarketingBrand, Name: "Marketing & Brand", UnlockCost: 800, AnnualCost: 175, MinActive: 3, Benefits: SharedServicesBenefits{GrowthBonus: 0.015}},
	{Type: ServiceTechnologySystems, Name: "Technology & Systems", UnlockCost: 1000, AnnualCost: 250, MinActive: 4, Benefits: SharedServicesBenefits{MarginDefense: 0.005, GrowthBonus: 0.005}},
}

func SharedServiceSpecFor(t SharedServiceType) (SharedServiceSpec, bool) {
	for _, s := range SharedServiceCatalog {
		if s.Type == t {
			return s, true
		}
	}
	return SharedServiceSpec{}, false
}

// GetSharedServicesBenefits sums the benefits of every active service.
func GetSharedServicesBenefits(services []SharedService) SharedServicesBenefits {
	var out SharedServicesBenefits
	for _, svc := range services {
		if !svc.Active {
			continue
		}
		spec, ok := SharedServiceSpecFor(svc.Type)
		if !ok {
			continue
		}
		out.CapexReduction += spec.Benefits.CapexReduction
		out.CashConversionBonus += spec.Benefits.CashConversionBonus
		out.GrowthBonus += spec.Benefits.GrowthBonus
		out.MarginDefense += spec.Benefits.MarginDefense
		out.TalentRetentionBonus += spec.Benefits.TalentRetentionBonus
		out.TalentGainBonus += spec.Benefits.TalentGainBonus
	}
	out.CapexReduction = clamp(out.CapexReduction, 0, 1)
	out.TalentRetentionBonus = clamp(out.TalentRetentionBonus, 0, 1)
	return out
}

func SharedServicesAnnualCost(services []SharedService) int64 {
	var total int64
	for _, svc := range services {
		if !svc.Active {
			continue
		}
		if spec, ok := SharedServiceSpecFor(svc.Type); ok {
			total += spec.AnnualCost
		}
	}
	return total
}

func HasSharedService(services []SharedService, t SharedServiceType) bool {
	for _, svc := range services {
		if svc.Type == t && svc.Active {
			return true
		}
	}
	return false
}
