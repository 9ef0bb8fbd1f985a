package game

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// IntegratedPlatform is a set of owned businesses consolidated under one recipe.
type IntegratedPlatform struct {
	ID                  string   `json:"id"`
	RecipeID            string   `json:"recipe_id"`
	Name                string   `json:"name"`
	BusinessIDs         []string `json:"business_ids"`
	FormedRound         int      `json:"formed_round"`
	MultipleExpansion   float64  `json:"multiple_expansion"`
	MarginBonus         float64  `json:"margin_bonus"`
	GrowthBonus         float64  `json:"growth_bonus"`
	RecessionResistance float64  `json:"recession_resistance"`
}

func (p IntegratedPlatform) Clone() IntegratedPlatform {
	out := p
	out.BusinessIDs = append([]string(nil), p.BusinessIDs...)
	return out
}

// PlatformRecipe names which sectors can be rolled up together and what the combined
// platform earns.
type PlatformRecipe struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	SectorIDs           []string `json:"sector_ids"`
	MinBusinesses       int      `json:"min_businesses"`
	MinQuality          int      `json:"min_quality"`
	IntegrationRounds   int      `json:"integration_rounds"`
	CostFraction        float64  `json:"cost_fraction"`
	MultipleExpansion   float64  `json:"multiple_expansion"`
	MarginBonus         float64  `json:"margin_bonus"`
	GrowthBonus         float64  `json:"growth_bonus"`
	RecessionResistance float64  `json:"recession_resistance"`
}

var PlatformRecipes = []PlatformRecipe{
	{ID: "full_service_marketing", Name: "Full-Service Marketing Group", SectorIDs: []string{SectorAgency, SectorB2BServices}, MinBusinesses: 2, MinQuality: 3, IntegrationRounds: 2, CostFraction: 0.15, MultipleExpansion: 1.0, MarginBonus: 0.02, GrowthBonus: 0.01, RecessionResistance: 0.10},
	{ID: "home_services_rollup", Name: "Home Services Roll-Up", SectorIDs: []string{SectorHomeServices}, MinBusinesses: 3, MinQuality: 3, IntegrationRounds: 2, CostFraction: 0.12, MultipleExpansion: 1.5, MarginBonus: 0.03, GrowthBonus: 0.01, RecessionResistance: 0.20},
	{ID: "vertical_software_suite", Name: "Vertical Software Suite", SectorIDs: []string{SectorSaaS, SectorEducation}, MinBusinesses: 2, MinQuality: 3, IntegrationRounds: 3, CostFraction: 0.20, MultipleExpansion: 2.0, MarginBonus: 0.04, GrowthBonus: 0.02, RecessionResistance: 0.25},
	{ID: "care_network", Name: "Regional Care Network", SectorIDs: []string{SectorHealthcare}, MinBusinesses: 2, MinQuality: 3, IntegrationRounds: 2, CostFraction: 0.15, MultipleExpansion: 1.5, MarginBonus: 0.02, GrowthBonus: 0.01, RecessionResistance: 0.30},
	{ID: "fleet_services", Name: "Fleet & Industrial Services", SectorIDs: []string{SectorIndustrial, SectorAutoServices}, MinBusinesses: 2, MinQuality: 2, IntegrationRounds: 2, CostFraction: 0.10, MultipleExpansion: 1.0, MarginBonus: 0.02, GrowthBonus: 0.005, RecessionResistance: 0.15},
}

func PlatformRecipeByID(id string) (PlatformRecipe, bool) {
	for _, r := range PlatformRecipes {
		if r.ID == id {
			return r, true
		}
	}
	return PlatformRecipe{}, false
}

func (r PlatformRecipe) accepts(b Business) bool {
	if !b.Active() || b.IntegratedPlatformID != "" || b.QualityRating < r.MinQuality {
		return false
	}
	for _, id := range r.SectorIDs {
		if b.SectorID == id {
			return true
		}
	}
	return false
}

// MatchPlatformRecipes returns recipes whose requirements the active portfolio meets,
// with the qualifying business ids for each.
func MatchPlatformRecipes(businesses []Business) map[string][]string {
	out := make(map[string][]string)
	for _, r := range PlatformRecipes {
		var ids []string
		for _, b := range businesses {
			if r.accepts(b) {
				ids = append(ids, b.ID)
			}
		}
		if len(ids) >= r.MinBusinesses {
			out[r.ID] = ids
		}
	}
	return out
}

// NewIntegratedPlatform builds the platform record for a recipe. The cost is charged by
// the caller.
func NewIntegratedPlatform(r PlatformRecipe, businessIDs []string, round int) IntegratedPlatform {
	return IntegratedPlatform{
		ID:                  uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("platform:%s:%d:%v", r.ID, round, businessIDs))).String(),
		RecipeID:            r.ID,
		Name:                r.Name,
		BusinessIDs:         append([]string(nil), businessIDs...),
		FormedRound:         round,
		MultipleExpansion:   r.MultipleExpansion,
		MarginBonus:         r.MarginBonus,
		GrowthBonus:         r.GrowthBonus,
		RecessionResistance: r.RecessionResistance,
	}
}

// PlatformIntegrationCost is the one-off cost of integrating the given businesses.
func PlatformIntegrationCost(r PlatformRecipe, businesses []Business) int64 {
	var ebitda int64
	for _, b := range businesses {
		ebitda += absInt(b.Ebitda)
	}
	return roundInt(float64(ebitda) * r.CostFraction)
}

func platformFor(b Business, platforms []IntegratedPlatform) (IntegratedPlatform, bool) {
	if b.IntegratedPlatformID == "" {
		return IntegratedPlatform{}, false
	}
	for _, p := range platforms {
		if p.ID == b.IntegratedPlatformID {
			return p, true
		}
	}
	return IntegratedPlatform{}, false
}

func GetPlatformMultipleExpansion(b Business, platforms []IntegratedPlatform) float64 {
	p, ok := platformFor(b, platforms)
	if !ok {
		return 0
	}
	return p.MultipleExpansion
}

// GetPlatformRecessionModifier scales recession damage; 1.0 is unprotected.
func GetPlatformRecessionModifier(b Business, platforms []IntegratedPlatform) float64 {
	p, ok := platformFor(b, platforms)
	if !ok {
		return 1.0
	}
	return math.Max(0, 1-p.RecessionResistance)
}

func GetPlatformGrowthBonus(b Business, platforms []IntegratedPlatform) float64 {
	p, ok := platformFor(b, platforms)
	if !ok {
		return 0
	}
	return p.GrowthBonus
}

// PlatformEbitda sums EBITDA across a platform and its active bolt-ons.
func PlatformEbitda(platform Business, businesses []Business) int64 {
	total := platform.Ebitda
	for _, id := range platform.BoltOnIDs {
		for _, b := range businesses {
			if b.ID == id && b.Active() {
				total += b.Ebitda
			}
		}
	}
	return total
}
