package procurement

import (
	"fmt"
	"strings"

	"github.com/terminal-bench/civicsim/internal/analysis/randsrc"
)

// FlagInfo describes one built-in red flag for the public catalogue.
type FlagInfo struct {
	Type        string     `json:"type"`
	Category    string     `json:"category"`
	Severities  []Severity `json:"severities"`
	Explanation string     `json:"explanation"`
}

// Catalogue lists every built-in red flag.
func Catalogue() []FlagInfo {
	return []FlagInfo{
		{FlagHighValueContract, "contract_value", []Severity{SeverityMedium, SeverityHigh}, "Contracts above ₹5 crores need extra scrutiny and above ₹10 crores enhanced oversight"},
		{FlagBypassCompetition, "terminology", []Severity{SeverityHigh}, "Terms suggest avoiding competitive bidding process"},
		{FlagSuspiciousTerminology, "terminology", []Severity{SeverityMedium}, "These terms can indicate bypassing normal procurement processes"},
		{FlagContractModifications, "terminology", []Severity{SeverityLow}, "Multiple modifications may indicate poor initial planning"},
		{FlagVendorProfileRisk, "vendor", []Severity{SeverityHigh}, "Vendor background requires additional verification"},
		{FlagVendorDueDiligence, "vendor", []Severity{SeverityMedium}, "Standard vendor verification recommended"},
		{FlagMissingCriticalInfo, "documentation", []Severity{SeverityMedium}, "Incomplete documentation violates transparency requirements"},
		{FlagIncompleteDocumentation, "documentation", []Severity{SeverityLow}, "Documentation should be complete for full transparency"},
		{FlagServiceContractRisk, "contract_type", []Severity{SeverityMedium}, "Service contracts are harder to verify and monitor"},
		{FlagRoutineVerification, "routine", []Severity{SeverityLow}, "Document follows standard format with minor compliance notes"},
		{FlagVendorConcentration, "vendor_pattern", []Severity{SeverityMedium, SeverityHigh}, fmt.Sprintf("Vendor won at least %.0f%% of the ministry's contracts", ContractConcentrationThreshold*100)},
		{FlagValueConcentration, "vendor_pattern", []Severity{SeverityMedium, SeverityHigh}, fmt.Sprintf("Vendor received at least %.0f%% of the ministry's contract value", ValueConcentrationThreshold*100)},
	}
}

// VendorShare is one vendor line of a ministry overview.
type VendorShare struct {
	Name       string `json:"name"`
	Contracts  int    `json:"contracts"`
	ValueCrore int    `json:"value_crores"`
}

// RiskDistribution counts contracts per risk level.
type RiskDistribution struct {
	HighRisk   int `json:"high_risk"`
	MediumRisk int `json:"medium_risk"`
	LowRisk    int `json:"low_risk"`
}

// FlagCategories counts red flags per category across a ministry.
type FlagCategories struct {
	VendorConcentration  int `json:"vendor_concentration"`
	UnusualContractSizes int `json:"unusual_contract_sizes"`
	RushedProcurements   int `json:"rushed_procurements"`
	MissingDocumentation int `json:"missing_documentation"`
}

// MinistryOverview is the synthetic corruption-risk picture of a ministry.
type MinistryOverview struct {
	MinistryName      string           `json:"ministry_name"`
	AnalysisPeriod    string           `json:"analysis_period"`
	TotalContracts    int              `json:"total_contracts"`
	TotalValueCrores  int              `json:"total_value_crores"`
	RiskDistribution  RiskDistribution `json:"risk_distribution"`
	TopVendors        []VendorShare    `json:"top_vendors"`
	RedFlagCategories FlagCategories   `json:"red_flag_categories"`
	TransparencyScore int              `json:"transparency_score"`
}

// DefaultMinistry is used when no ministry is requested.
const DefaultMinistry = "Agriculture"

// OverviewFor returns the overview of ministry drawn from a source seeded by
// seed and the ministry name.
func OverviewFor(ministry string, seed int64) MinistryOverview {
	ministry = strings.TrimSpace(ministry)
	if ministry == "" {
		ministry = DefaultMinistry
	}
	return Overview(ministry, randsrc.ForInput(seed, strings.ToLower(ministry)))
}

// Overview draws a ministry overview from src.
func Overview(ministry string, src randsrc.Source) MinistryOverview {
	n := func(lo, hi int) int { return randsrc.IntRange(src, lo, hi) }

	return MinistryOverview{
		MinistryName:     "Ministry of " + ministry,
		AnalysisPeriod:   AnalysisPeriod,
		TotalContracts:   n(200, 1000),
		TotalValueCrores: n(500, 5000),
		RiskDistribution: RiskDistribution{
			HighRisk:   n(5, 25),
			MediumRisk: n(30, 80),
			LowRisk:    n(150, 400),
		},
		TopVendors: []VendorShare{
			{Name: ministry + " Vendor A", Contracts: n(20, 80), ValueCrore: n(50, 200)},
			{Name: ministry + " Vendor B", Contracts: n(15, 60), ValueCrore: n(40, 150)},
			{Name: ministry + " Vendor C", Contracts: n(10, 40), ValueCrore: n(30, 100)},
		},
		RedFlagCategories: FlagCategories{
			VendorConcentration:  n(3, 15),
			UnusualContractSizes: n(2, 10),
			RushedProcurements:   n(1, 8),
			MissingDocumentation: n(5, 20),
		},
		TransparencyScore: n(65, 85),
	}
}
