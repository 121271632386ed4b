package transparency

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxSearchLimit bounds SearchDatasets.
const MaxSearchLimit = 50

// Dataset describes a published government data set.
type Dataset struct {
	ResourceID  string `json:"resource_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Ministry    string `json:"ministry"`
	Sector      string `json:"sector"`
	LastUpdated string `json:"last_updated"`
	Format      string `json:"format"`
	Source      string `json:"source"`
}

// SpendingRecord is one row of a spending data set.
type SpendingRecord struct {
	ID               int    `json:"id"`
	Ministry         string `json:"ministry"`
	BudgetAllocation int64  `json:"budget_allocation"`
	Expenditure      int64  `json:"expenditure"`
	Year             int    `json:"year"`
	Sector           string `json:"sector"`
}

// MinistrySpending previews the data sets that report a ministry's spending.
type MinistrySpending struct {
	ResourceID   string           `json:"resource_id"`
	Title        string           `json:"title"`
	Ministry     string           `json:"ministry"`
	Sector       string           `json:"sector"`
	DataPreview  []SpendingRecord `json:"data_preview"`
	TotalRecords int              `json:"total_records"`
	LastUpdated  string           `json:"last_updated"`
}

var majorMinistries = []string{
	"Ministry of Finance",
	"Ministry of Defence",
	"Ministry of Railways",
	"Ministry of Health and Family Welfare",
	"Ministry of Education",
	"Ministry of Rural Development",
	"Ministry of Road Transport and Highways",
	"Ministry of Agriculture and Farmers Welfare",
	"Ministry of Home Affairs",
	"Ministry of Electronics and Information Technology",
	"Ministry of External Affairs",
	"Ministry of Power",
	"Ministry of Coal",
	"Ministry of Environment, Forest and Climate Change",
}

// MajorMinistries lists the major Union ministries.
func MajorMinistries() []string {
	return append([]string(nil), majorMinistries...)
}

var titler = cases.Title(language.English)

// SearchDatasets returns the catalogue entries matching query, at most limit
// of them. limit is clamped to [1, MaxSearchLimit].
func SearchDatasets(query string, limit int) []Dataset {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	query = strings.TrimSpace(query)
	if query == "" {
		query = "budget"
	}
	title := titler.String(query)

	out := []Dataset{
		{
			ResourceID:  "budget-2024-001",
			Title:       "Budget Dataset - " + title,
			Description: fmt.Sprintf("Dataset for %s containing budgetary information and government spending data.", query),
			Ministry:    "Ministry of Finance",
			Sector:      "Finance",
			LastUpdated: "2024-09-01",
			Format:      "CSV",
			Source:      "data.gov.in",
		},
		{
			ResourceID:  "transparency-001",
			Title:       "Transparency Report - " + title,
			Description: fmt.Sprintf("Transparency dataset for %s with ministry-wise spending and allocation details.", query),
			Ministry:    "Ministry of Statistics and Programme Implementation",
			Sector:      "Administration",
			LastUpdated: "2024-08-15",
			Format:      "JSON",
			Source:      "data.gov.in",
		},
	}
	if limit < len(out) {
		out = out[:limit]
	}
	return out
}

func datasetRecords(string) []SpendingRecord {
	return []SpendingRecord{
		{ID: 1, Ministry: "Ministry of Finance", BudgetAllocation: 50_000_000, Expenditure: 45_000_000, Year: BudgetYear, Sector: "Education"},
		{ID: 2, Ministry: "Ministry of Health", BudgetAllocation: 30_000_000, Expenditure: 28_000_000, Year: BudgetYear, Sector: "Healthcare"},
	}
}

// SpendingFor previews the spending data sets of ministry, or of every
// ministry when ministry is "all" or empty.
func SpendingFor(ministry string) []MinistrySpending {
	query := "ministry expenditure spending"
	if ministry != "" && !strings.EqualFold(ministry, "all") {
		query = fmt.Sprintf("ministry %s expenditure spending", ministry)
	}

	var out []MinistrySpending
	for _, ds := range SearchDatasets(query, 5) {
		if len(out) == 3 {
			break
		}
		records := datasetRecords(ds.ResourceID)
		preview := records
		if len(preview) > 3 {
			preview = preview[:3]
		}
		out = append(out, MinistrySpending{
			ResourceID:   ds.ResourceID,
			Title:        ds.Title,
			Ministry:     ds.Ministry,
			Sector:       ds.Sector,
			DataPreview:  preview,
			TotalRecords: len(records),
			LastUpdated:  ds.LastUpdated,
		})
	}
	return out
}
