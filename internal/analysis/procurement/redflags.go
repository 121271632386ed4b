package procurement

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/terminal-bench/civicsim/internal/analysis/randsrc"
)

// Severity grades a red flag.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Red flag types raised by the built-in document and vendor checks.
const (
	FlagHighValueContract       = "high_value_contract"
	FlagBypassCompetition       = "bypass_competition"
	FlagSuspiciousTerminology   = "suspicious_terminology"
	FlagContractModifications   = "contract_modifications"
	FlagVendorProfileRisk       = "vendor_profile_risk"
	FlagVendorDueDiligence      = "vendor_due_diligence"
	FlagMissingCriticalInfo     = "missing_critical_info"
	FlagIncompleteDocumentation = "incomplete_documentation"
	FlagServiceContractRisk     = "service_contract_risk"
	FlagRoutineVerification     = "routine_verification"
	FlagVendorConcentration     = "vendor_concentration"
	FlagValueConcentration      = "value_concentration"
)

// RedFlag is one indicator of possible procurement irregularity.
type RedFlag struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Explanation string   `json:"explanation,omitempty"`
	Threshold   string   `json:"threshold,omitempty"`
}

var (
	highValueThreshold   = decimal.New(10, 7)
	mediumValueThreshold = decimal.New(5, 7)

	highRiskTerms   = []string{"single source", "direct award", "no bid", "sole vendor", "exclusive"}
	mediumRiskTerms = []string{"urgent", "emergency", "limited tender", "exceptional circumstances", "time critical"}
	lowRiskTerms    = []string{"amendment", "extension", "modification", "variation"}

	corporateSuffixes = []string{"pvt ltd", "private limited", "enterprises", "solutions", "systems"}
)

// DocumentRedFlags runs the built-in document checks in order: contract
// value, terminology, vendor profile, missing information and contract type.
// When none fire and a vendor was named, a single routine flag is returned.
// The contract-type draw is seeded from seed and the contract type, so the
// result is a pure function of its arguments.
func DocumentRedFlags(f Fields, seed int64) []RedFlag {
	var flags []RedFlag
	flags = appendFlag(flags, valueFlag(f.ValueRupees))
	flags = appendFlag(flags, terminologyFlag(f))
	flags = appendFlag(flags, vendorProfileFlag(f.VendorName))
	flags = appendFlag(flags, missingInfoFlag(f))
	flags = appendFlag(flags, serviceContractFlag(f.ContractType, seed))

	if len(flags) == 0 && f.VendorName != "" {
		flags = append(flags, RedFlag{
			Type:        FlagRoutineVerification,
			Severity:    SeverityLow,
			Description: "Standard procurement verification completed",
			Explanation: "Document follows standard format with minor compliance notes",
		})
	}
	if flags == nil {
		flags = []RedFlag{}
	}
	return flags
}

func appendFlag(flags []RedFlag, f *RedFlag) []RedFlag {
	if f == nil {
		return flags
	}
	return append(flags, *f)
}

func valueFlag(rupees decimal.Decimal) *RedFlag {
	switch {
	case rupees.GreaterThanOrEqual(highValueThreshold):
		return &RedFlag{
			Type:        FlagHighValueContract,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("Very high-value contract: ₹%s crores", Crores(rupees)),
			Explanation: "Contracts above ₹10 crores require enhanced oversight",
		}
	case rupees.GreaterThanOrEqual(mediumValueThreshold):
		return &RedFlag{
			Type:        FlagHighValueContract,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("High-value contract: ₹%s crores", Crores(rupees)),
			Explanation: "Large contracts require extra scrutiny",
		}
	}
	return nil
}

// terminologyFlag raises at most one flag, preferring the most severe tier.
func terminologyFlag(f Fields) *RedFlag {
	text := strings.ToLower(f.VendorName + " " + f.ContractType + " " + strings.Join(f.KeyTerms, " "))

	if found := containedTerms(text, highRiskTerms); len(found) > 0 {
		return &RedFlag{
			Type:        FlagBypassCompetition,
			Severity:    SeverityHigh,
			Description: "Competition bypass indicators: " + strings.Join(found, ", "),
			Explanation: "Terms suggest avoiding competitive bidding process",
		}
	}
	if found := containedTerms(text, mediumRiskTerms); len(found) > 0 {
		return &RedFlag{
			Type:        FlagSuspiciousTerminology,
			Severity:    SeverityMedium,
			Description: "Rushed procurement terms: " + strings.Join(found, ", "),
			Explanation: "These terms can indicate bypassing normal procurement processes",
		}
	}
	if found := containedTerms(text, lowRiskTerms); len(found) > 0 {
		return &RedFlag{
			Type:        FlagContractModifications,
			Severity:    SeverityLow,
			Description: "Contract modification terms: " + strings.Join(found, ", "),
			Explanation: "Multiple modifications may indicate poor initial planning",
		}
	}
	return nil
}

func containedTerms(text string, terms []string) []string {
	var found []string
	for _, t := range terms {
		if strings.Contains(text, t) {
			found = append(found, t)
		}
	}
	return found
}

// vendorProfileFlag buckets corporate-looking vendor names by hash. The same
// name always lands in the same bucket.
func vendorProfileFlag(vendor string) *RedFlag {
	name := strings.ToLower(vendor)
	if name == "" || !containsAny(name, corporateSuffixes) {
		return nil
	}

	switch risk := randsrc.Bucket(name); {
	case risk > 0.7:
		return &RedFlag{
			Type:        FlagVendorProfileRisk,
			Severity:    SeverityHigh,
			Description: "Vendor profile shows potential risk indicators",
			Explanation: "Vendor background requires additional verification",
		}
	case risk > 0.4:
		return &RedFlag{
			Type:        FlagVendorDueDiligence,
			Severity:    SeverityMedium,
			Description: "Vendor requires enhanced due diligence",
			Explanation: "Standard vendor verification recommended",
		}
	}
	return nil
}

func missingInfoFlag(f Fields) *RedFlag {
	var missing []string
	if f.VendorName == "" {
		missing = append(missing, "vendor_name")
	}
	if f.ContractValue == "" {
		missing = append(missing, "contract_value")
	}
	if f.Ministry == "" {
		missing = append(missing, "ministry")
	}

	switch {
	case len(missing) >= 2:
		return &RedFlag{
			Type:        FlagMissingCriticalInfo,
			Severity:    SeverityMedium,
			Description: "Missing critical information: " + strings.Join(missing, ", "),
			Explanation: "Incomplete documentation violates transparency requirements",
		}
	case len(missing) == 1:
		return &RedFlag{
			Type:        FlagIncompleteDocumentation,
			Severity:    SeverityLow,
			Description: "Missing information: " + missing[0],
			Explanation: "Documentation should be complete for full transparency",
		}
	}
	return nil
}

// serviceContractFlag fires for roughly 40% of maintenance and service
// contract types. The draw is deterministic per contract type and seed.
func serviceContractFlag(contractType string, seed int64) *RedFlag {
	ct := strings.ToLower(contractType)
	if !strings.Contains(ct, "maintenance") && !strings.Contains(ct, "service") {
		return nil
	}
	if randsrc.ForInput(seed, ct).Float64() <= 0.6 {
		return nil
	}
	return &RedFlag{
		Type:        FlagServiceContractRisk,
		Severity:    SeverityMedium,
		Description: "Service contracts require enhanced monitoring",
		Explanation: "Service contracts are harder to verify and monitor",
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
