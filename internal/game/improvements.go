package game

// ImprovementSpec prices an operational improvement as a share of revenue, paid once,
// and the margin it adds.
type ImprovementSpec struct {
	Type         ImprovementType `json:"type"`
	Name         string          `json:"name"`
	CostFraction float64         `json:"cost_fraction"`
	MarginLift   float64         `json:"margin_lift"`
}

const minImprovementCost int64 = 50

var ImprovementCatalog = []ImprovementSpec{
	{Type: ImprovementOperatingPlaybook, Name: "Operating Playbook", CostFraction: 0.03, MarginLift: 0.010},
	{Type: ImprovementPricingModel, Name: "Pricing Model", CostFraction: 0.02, MarginLift: 0.015},
	{Type: ImprovementServiceExpansion, Name: "Service Expansion", CostFraction: 0.05, MarginLift: 0.005},
	{Type: ImprovementFixUnderperformance, Name: "Fix Underperformance", CostFraction: 0.04, MarginLift: 0.020},
	{Type: ImprovementRecurringRevenue, Name: "Recurring Revenue Conversion", CostFraction: 0.06, MarginLift: 0.010},
	{Type: ImprovementManagementProfessional, Name: "Management Professionalization", CostFraction: 0.05, MarginLift: 0.010},
	{Type: ImprovementDigitalTransformation, Name: "Digital Transformation", CostFraction: 0.06, MarginLift: 0.015},
}

func ImprovementSpecFor(t ImprovementType) (ImprovementSpec, bool) {
	for _, s := range ImprovementCatalog {
		if s.Type == t {
			return s, true
		}
	}
	return ImprovementSpec{}, false
}

func ImprovementCost(spec ImprovementSpec, b Business) int64 {
	return maxInt(minImprovementCost, roundInt(float64(b.Revenue)*spec.CostFraction))
}

func HasImprovement(b Business, t ImprovementType) bool {
	for _, imp := range b.Improvements {
		if imp.Type == t {
			return true
		}
	}
	return false
}
