// Package simulation maps a policy scenario and its percentage parameters to a
// fixed set of projected outcome numbers. Every scenario is closed-form
// arithmetic; there is no randomness and no shared state.
package simulation

import (
	"math"
)

// Scenario names a policy-simulation variant.
type Scenario string

const (
	EducationSubsidyIncrease          Scenario = "education_subsidy_increase"
	HealthcareInfrastructureExpansion Scenario = "healthcare_infrastructure_expansion"
	AgriculturalSupportProgram        Scenario = "agricultural_support_program"
	SocialWelfareEnhancement          Scenario = "social_welfare_enhancement"
	InfrastructureDevelopment         Scenario = "infrastructure_development"
)

// AcceptedScenarios are the names a caller may request. Only the first three
// have a formula; the others produce an ErrorOutcome.
var AcceptedScenarios = []Scenario{
	EducationSubsidyIncrease,
	HealthcareInfrastructureExpansion,
	AgriculturalSupportProgram,
	SocialWelfareEnhancement,
	InfrastructureDevelopment,
}

// IsAccepted reports whether name is one of AcceptedScenarios.
func IsAccepted(name string) bool {
	for _, s := range AcceptedScenarios {
		if string(s) == name {
			return true
		}
	}
	return false
}

// FailureMessage marks an outcome that could not be computed.
const FailureMessage = "Simulation calculation failed"

// Parameters are the percentage inputs of a simulation, each in [0,100].
type Parameters struct {
	SubsidyIncreasePercent      float64 `json:"subsidy_increase_percent"`
	BudgetAllocationPercent     float64 `json:"budget_allocation_percent"`
	BeneficiaryExpansionPercent float64 `json:"beneficiary_expansion_percent"`
}

// DefaultParameters are used for fields a request leaves out.
func DefaultParameters() Parameters {
	return Parameters{BudgetAllocationPercent: 10}
}

// Clamp bounds every parameter to [0,100]. NaN becomes 0.
func (p Parameters) Clamp() Parameters {
	return Parameters{
		SubsidyIncreasePercent:      clampPercent(p.SubsidyIncreasePercent),
		BudgetAllocationPercent:     clampPercent(p.BudgetAllocationPercent),
		BeneficiaryExpansionPercent: clampPercent(p.BeneficiaryExpansionPercent),
	}
}

// Outcome is a scenario-specific result. The concrete type is selected by the
// scenario name.
type Outcome interface {
	Scenario() Scenario
}

// EducationOutcome is the result of EducationSubsidyIncrease.
type EducationOutcome struct {
	BeneficiariesGained   int64   `json:"beneficiaries_gained"`
	BudgetDeficitIncrease float64 `json:"budget_deficit_increase"`
	ImplementationCost    int64   `json:"implementation_cost"`
	LiteracyImprovement   float64 `json:"literacy_improvement"`
	ROIYears              float64 `json:"roi_years"`
	SectorImpactScore     float64 `json:"sector_impact_score"`
}

func (EducationOutcome) Scenario() Scenario { return EducationSubsidyIncrease }

// HealthcareOutcome is the result of HealthcareInfrastructureExpansion.
type HealthcareOutcome struct {
	NewHospitals          int64   `json:"new_hospitals"`
	NewClinics            int64   `json:"new_clinics"`
	JobsCreated           int64   `json:"jobs_created"`
	ImprovedAccessPercent float64 `json:"improved_access_percent"`
	ImplementationCost    int64   `json:"implementation_cost"`
	ROIYears              float64 `json:"roi_years"`
	SectorImpactScore     float64 `json:"sector_impact_score"`
}

func (HealthcareOutcome) Scenario() Scenario { return HealthcareInfrastructureExpansion }

// AgricultureOutcome is the result of AgriculturalSupportProgram.
type AgricultureOutcome struct {
	FarmersBenefited               int64   `json:"farmers_benefited"`
	CropYieldIncreasePercent       float64 `json:"crop_yield_increase_percent"`
	FoodSecurityImprovementPercent float64 `json:"food_security_improvement_percent"`
	ImplementationCost             int64   `json:"implementation_cost"`
	ROIYears                       float64 `json:"roi_years"`
	SectorImpactScore              float64 `json:"sector_impact_score"`
}

func (AgricultureOutcome) Scenario() Scenario { return AgriculturalSupportProgram }

// ErrorOutcome is the zeroed result for a scenario without a formula.
type ErrorOutcome struct {
	Requested           Scenario `json:"-"`
	Error               string   `json:"error"`
	BeneficiariesGained int64    `json:"beneficiaries_gained"`
	ImplementationCost  int64    `json:"implementation_cost"`
	ROIYears            float64  `json:"roi_years"`
	SectorImpactScore   float64  `json:"sector_impact_score"`
}

func (e ErrorOutcome) Scenario() Scenario { return e.Requested }

// DefaultOutcome returns the zeroed error outcome for scenario.
func DefaultOutcome(scenario Scenario) ErrorOutcome {
	return ErrorOutcome{Requested: scenario, Error: FailureMessage}
}

// IsError reports whether o is an ErrorOutcome.
func IsError(o Outcome) bool {
	_, ok := o.(ErrorOutcome)
	return ok
}

// Calculator runs simulations. The zero value is ready to use.
type Calculator struct{}

// NewCalculator returns a Calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Run computes the outcome of scenario for params. Parameters are clamped
// into [0,100] first. An unknown scenario yields DefaultOutcome; Run never
// panics.
func (c *Calculator) Run(scenario Scenario, params Parameters) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = DefaultOutcome(scenario)
		}
	}()

	p := params.Clamp()
	switch scenario {
	case EducationSubsidyIncrease:
		return education(p)
	case HealthcareInfrastructureExpansion:
		return healthcare(p)
	case AgriculturalSupportProgram:
		return agriculture(p)
	default:
		return DefaultOutcome(scenario)
	}
}

func education(p Parameters) EducationOutcome {
	const (
		baseBeneficiaries = 10_000_000
		baseBudget        = 50_000_000_000
	)
	subsidy := 1 + p.SubsidyIncreasePercent/100
	budget := 1 + p.BudgetAllocationPercent/100
	expansion := 1 + p.BeneficiaryExpansionPercent/100

	return EducationOutcome{
		BeneficiariesGained:   int64(baseBeneficiaries * expansion * 0.3),
		BudgetDeficitIncrease: round(p.BudgetAllocationPercent*0.6, 2),
		ImplementationCost:    int64(baseBudget * budget * subsidy * 0.15),
		LiteracyImprovement:   round(math.Min(p.SubsidyIncreasePercent*0.5, 25.0), 2),
		ROIYears:              round(math.Max(3.0, 8.0-p.BudgetAllocationPercent/10), 1),
		SectorImpactScore:     round(math.Min(95.0, 60+p.SubsidyIncreasePercent*0.8), 1),
	}
}

func healthcare(p Parameters) HealthcareOutcome {
	b := p.BudgetAllocationPercent
	hospitals := int64(math.Floor(b * 8))
	clinics := int64(math.Floor(b * 25))

	return HealthcareOutcome{
		NewHospitals:          hospitals,
		NewClinics:            clinics,
		JobsCreated:           hospitals*150 + clinics*25,
		ImprovedAccessPercent: round(math.Min(b*1.2, 30.0), 1),
		ImplementationCost:    int64(b * 2_500_000_000),
		ROIYears:              round(math.Max(5.0, 12.0-b/5), 1),
		SectorImpactScore:     round(math.Min(90.0, 50+b*1.5), 1),
	}
}

func agriculture(p Parameters) AgricultureOutcome {
	s := p.SubsidyIncreasePercent
	b := p.BudgetAllocationPercent

	return AgricultureOutcome{
		FarmersBenefited:               int64(math.Floor(b * 50_000)),
		CropYieldIncreasePercent:       round(math.Min(s*0.8, 40.0), 1),
		FoodSecurityImprovementPercent: round(math.Min(b*0.6, 20.0), 1),
		ImplementationCost:             int64(b * 1_800_000_000),
		ROIYears:                       round(math.Max(2.0, 6.0-s/15), 1),
		SectorImpactScore:              round(math.Min(85.0, 55+s*0.9), 1),
	}
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
