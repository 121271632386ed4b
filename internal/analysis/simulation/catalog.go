package simulation

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Disclaimer accompanies every simulation result.
const Disclaimer = "These are simplified projections for educational purposes. Real-world outcomes may vary significantly."

// CatalogDisclaimer accompanies the scenario catalogue.
const CatalogDisclaimer = "Simulations are educational tools with simplified models. Consult experts for policy decisions."

var assumptions = map[Scenario][]string{
	EducationSubsidyIncrease: {
		"Current enrollment trends continue",
		"Infrastructure capacity can support expansion",
		"Teacher recruitment meets demand",
		"No major economic disruptions",
		"Policy implementation is effective",
	},
	HealthcareInfrastructureExpansion: {
		"Healthcare worker availability scales with infrastructure",
		"Land acquisition costs remain stable",
		"No major regulatory changes",
		"Population health trends continue",
		"Equipment and technology costs remain predictable",
	},
	AgriculturalSupportProgram: {
		"Weather patterns remain within normal ranges",
		"Market prices for crops remain stable",
		"Farmer adoption rates meet expectations",
		"No major pest or disease outbreaks",
		"Distribution systems function effectively",
	},
}

// Assumptions returns the modelling assumptions behind scenario. The returned
// slice is a copy.
func Assumptions(scenario Scenario) []string {
	a, ok := assumptions[scenario]
	if !ok {
		return []string{"General economic assumptions apply"}
	}
	return append([]string(nil), a...)
}

// Slider describes one adjustable parameter of a scenario.
type Slider struct {
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// ScenarioInfo describes a scenario for clients building a simulation form.
type ScenarioInfo struct {
	Name        Scenario `json:"name"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Parameters  []Slider `json:"parameters"`
	Outcomes    []string `json:"outcomes"`
}

// Catalog lists the scenarios that have a formula.
func Catalog() []ScenarioInfo {
	return []ScenarioInfo{
		{
			Name:        EducationSubsidyIncrease,
			DisplayName: "Education Subsidy Increase",
			Description: "Analyze the impact of increasing education subsidies on literacy rates, beneficiaries, and budget",
			Parameters: []Slider{
				{Name: "subsidy_increase_percent", Type: "slider", Min: 0, Max: 50, Default: 25},
				{Name: "budget_allocation_percent", Type: "slider", Min: 5, Max: 30, Default: 15},
				{Name: "beneficiary_expansion_percent", Type: "slider", Min: 0, Max: 50, Default: 30},
			},
			Outcomes: []string{"beneficiaries_gained", "literacy_improvement", "implementation_cost", "roi_years"},
		},
		{
			Name:        HealthcareInfrastructureExpansion,
			DisplayName: "Healthcare Infrastructure Expansion",
			Description: "Simulate expansion of healthcare facilities and analyze impact on access and employment",
			Parameters: []Slider{
				{Name: "budget_allocation_percent", Type: "slider", Min: 5, Max: 25, Default: 15},
			},
			Outcomes: []string{"new_hospitals", "new_clinics", "jobs_created", "improved_access_percent"},
		},
		{
			Name:        AgriculturalSupportProgram,
			DisplayName: "Agricultural Support Program",
			Description: "Evaluate agricultural subsidies impact on farmers, crop yields, and food security",
			Parameters: []Slider{
				{Name: "subsidy_increase_percent", Type: "slider", Min: 0, Max: 40, Default: 20},
				{Name: "budget_allocation_percent", Type: "slider", Min: 5, Max: 20, Default: 12},
			},
			Outcomes: []string{"farmers_benefited", "crop_yield_increase_percent", "food_security_improvement_percent"},
		},
	}
}

// Explain is the templated explanation returned when no AI explanation is
// available.
func Explain(outcome Outcome) string {
	var headline string
	switch o := outcome.(type) {
	case EducationOutcome:
		headline = fmt.Sprintf("The education subsidy increase is projected to reach %s additional beneficiaries "+
			"and improve literacy by %.2f points at a cost of %s, with a return on investment in about %.1f years.",
			groupDigits(o.BeneficiariesGained), o.LiteracyImprovement, rupees(o.ImplementationCost), o.ROIYears)
	case HealthcareOutcome:
		headline = fmt.Sprintf("The healthcare expansion is projected to build %d hospitals and %d clinics, "+
			"create %s jobs and improve access by %.1f%% at a cost of %s.",
			o.NewHospitals, o.NewClinics, groupDigits(o.JobsCreated), o.ImprovedAccessPercent, rupees(o.ImplementationCost))
	case AgricultureOutcome:
		headline = fmt.Sprintf("The agricultural support program is projected to benefit %s farmers, "+
			"raise crop yields by %.1f%% and improve food security by %.1f%% at a cost of %s.",
			groupDigits(o.FarmersBenefited), o.CropYieldIncreasePercent, o.FoodSecurityImprovementPercent, rupees(o.ImplementationCost))
	default:
		return fmt.Sprintf("No projection is available for %q. %s", string(outcome.Scenario()), Disclaimer)
	}
	return headline + " " + Disclaimer
}

func rupees(v int64) string {
	return fmt.Sprintf("₹%.1f crore", float64(v)/1e7)
}

// groupDigits renders n with comma thousands separators.
func groupDigits(n int64) string {
	return humanize.Comma(n)
}
