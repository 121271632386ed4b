package procurement

import (
	"fmt"

	"github.com/terminal-bench/civicsim/internal/analysis/randsrc"
)

// Profile is the synthetic risk profile assigned to a vendor.
type Profile string

const (
	ProfileLow      Profile = "low_risk"
	ProfileMedium   Profile = "medium_risk"
	ProfileHigh     Profile = "high_risk"
	ProfileVeryHigh Profile = "very_high_risk"
)

var profiles = []Profile{ProfileLow, ProfileMedium, ProfileHigh, ProfileVeryHigh}

// Bonus is the score added for the profile.
func (p Profile) Bonus() int {
	switch p {
	case ProfileVeryHigh:
		return 25
	case ProfileHigh:
		return 15
	case ProfileMedium:
		return 8
	}
	return 0
}

const (
	// ContractConcentrationThreshold is the share of contracts above which a
	// vendor is flagged.
	ContractConcentrationThreshold = 0.40
	// ValueConcentrationThreshold is the share of contract value above which a
	// vendor is flagged.
	ValueConcentrationThreshold = 0.50

	// AnalysisPeriod labels the synthetic statistics.
	AnalysisPeriod = "2023-2024"
)

// VendorStatistics are the vendor's share of the ministry's contracts. Values
// are in rupees.
type VendorStatistics struct {
	ContractsWon          int     `json:"contracts_won"`
	TotalValueWon         int64   `json:"total_value_won"`
	ContractConcentration float64 `json:"contract_concentration"`
	ValueConcentration    float64 `json:"value_concentration"`
	AverageContractSize   float64 `json:"average_contract_size"`
}

// MinistryComparison puts the vendor's numbers in context.
type MinistryComparison struct {
	MinistryTotalContracts int      `json:"ministry_total_contracts"`
	MinistryTotalValue     int64    `json:"ministry_total_value"`
	OtherMajorVendors      []string `json:"other_major_vendors"`
}

// TimePattern describes how often the vendor wins.
type TimePattern struct {
	ContractsLast6Months   int `json:"contracts_last_6_months"`
	AverageDaysBetweenWins int `json:"average_days_between_wins"`
}

// VendorAnalysis is the vendor-level view of a procurement document.
type VendorAnalysis struct {
	VendorName             string             `json:"vendor_name"`
	Ministry               string             `json:"ministry"`
	AnalysisPeriod         string             `json:"analysis_period"`
	RiskProfile            Profile            `json:"risk_profile"`
	TotalContractsAnalyzed int                `json:"total_contracts_analyzed"`
	Statistics             VendorStatistics   `json:"vendor_statistics"`
	RedFlags               []RedFlag          `json:"red_flags"`
	MinistryComparison     MinistryComparison `json:"ministry_comparison"`
	TimePattern            TimePattern        `json:"time_pattern"`
}

type profileRanges struct {
	total, won     [2]int
	value          [2]int // crores
	wonValue       [2]int // crores
	wonValueDivCap int    // vendor value is capped at total/wonValueDivCap
}

var ranges = map[Profile]profileRanges{
	ProfileVeryHigh: {total: [2]int{80, 200}, won: [2]int{35, 80}, value: [2]int{200, 800}, wonValue: [2]int{120, 600}, wonValueDivCap: 1},
	ProfileHigh:     {total: [2]int{50, 150}, won: [2]int{20, 45}, value: [2]int{150, 600}, wonValue: [2]int{80, 400}, wonValueDivCap: 1},
	ProfileMedium:   {total: [2]int{40, 120}, won: [2]int{8, 25}, value: [2]int{100, 400}, wonValue: [2]int{40, 200}, wonValueDivCap: 1},
	ProfileLow:      {total: [2]int{30, 100}, won: [2]int{3, 12}, value: [2]int{80, 300}, wonValue: [2]int{15, 100}, wonValueDivCap: 2},
}

const croreRupees = 10_000_000

// AnalyzeVendor builds synthetic vendor statistics. Every number is drawn from
// src, so passing a source seeded from the vendor name gives each vendor a
// stable profile.
func AnalyzeVendor(vendor, ministry string, src randsrc.Source) VendorAnalysis {
	profile := randsrc.Pick(src, profiles)
	r := ranges[profile]

	total := randsrc.IntRange(src, r.total[0], r.total[1])
	won := randsrc.IntRange(src, r.won[0], r.won[1])
	totalCr := randsrc.IntRange(src, r.value[0], r.value[1])
	wonCr := randsrc.IntRange(src, r.wonValue[0], min(r.wonValue[1], totalCr/r.wonValueDivCap))

	totalValue := int64(totalCr) * croreRupees
	wonValue := int64(wonCr) * croreRupees

	var contractShare, valueShare, avg float64
	if total > 0 {
		contractShare = float64(won) / float64(total)
	}
	if totalValue > 0 {
		valueShare = float64(wonValue) / float64(totalValue)
	}
	if won > 0 {
		avg = float64(wonValue) / float64(won)
	}

	label := ministry
	if label == "" {
		label = "Govt"
	}
	others := make([]string, 3)
	for i := range others {
		others[i] = fmt.Sprintf("%s Vendor %c", label, 'A'+i)
	}

	return VendorAnalysis{
		VendorName:             vendor,
		Ministry:               ministry,
		AnalysisPeriod:         AnalysisPeriod,
		RiskProfile:            profile,
		TotalContractsAnalyzed: total,
		Statistics: VendorStatistics{
			ContractsWon:          won,
			TotalValueWon:         wonValue,
			ContractConcentration: contractShare,
			ValueConcentration:    valueShare,
			AverageContractSize:   avg,
		},
		RedFlags: VendorRedFlags(contractShare, valueShare),
		MinistryComparison: MinistryComparison{
			MinistryTotalContracts: total,
			MinistryTotalValue:     totalValue,
			OtherMajorVendors:      others,
		},
		TimePattern: TimePattern{
			ContractsLast6Months:   randsrc.IntRange(src, 1, won),
			AverageDaysBetweenWins: randsrc.IntRange(src, 15, 240),
		},
	}
}

// VendorRedFlags flags concentration of contracts or contract value.
func VendorRedFlags(contractShare, valueShare float64) []RedFlag {
	flags := []RedFlag{}
	if contractShare >= ContractConcentrationThreshold {
		sev := SeverityMedium
		if contractShare >= 0.6 {
			sev = SeverityHigh
		}
		flags = append(flags, RedFlag{
			Type:        FlagVendorConcentration,
			Severity:    sev,
			Description: fmt.Sprintf("Vendor won %.1f%% of contracts", contractShare*100),
			Threshold:   fmt.Sprintf("Above %.0f%% threshold", ContractConcentrationThreshold*100),
		})
	}
	if valueShare >= ValueConcentrationThreshold {
		sev := SeverityMedium
		if valueShare >= 0.7 {
			sev = SeverityHigh
		}
		flags = append(flags, RedFlag{
			Type:        FlagValueConcentration,
			Severity:    sev,
			Description: fmt.Sprintf("Vendor received %.1f%% of total contract value", valueShare*100),
			Threshold:   fmt.Sprintf("Above %.0f%% threshold", ValueConcentrationThreshold*100),
		})
	}
	return flags
}
