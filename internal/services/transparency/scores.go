package transparency

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/terminal-bench/civicsim/internal/analysis/randsrc"
	"github.com/terminal-bench/civicsim/internal/apperr"
)

// ScoreFactors break a sector's transparency score into its parts.
type ScoreFactors struct {
	BudgetDisclosure       float64 `json:"budget_disclosure"`
	ImplementationTracking float64 `json:"implementation_tracking"`
	PublicReporting        float64 `json:"public_reporting"`
	DataAccessibility      float64 `json:"data_accessibility"`
}

// SectorScore is one row of the transparency-scores view.
type SectorScore struct {
	Sector             string       `json:"sector"`
	TransparencyScore  float64      `json:"transparency_score"`
	DeliveryPercentage float64      `json:"delivery_percentage"`
	ScoreFactors       ScoreFactors `json:"score_factors"`
}

// Factors derives the score factors from a transparency score t and a
// delivery percentage d.
func Factors(t, d float64) ScoreFactors {
	return ScoreFactors{
		BudgetDisclosure:       85 + (t-75)*0.5,
		ImplementationTracking: d * 0.9,
		PublicReporting:        t * 0.95,
		DataAccessibility:      78 + (t-70)*0.3,
	}
}

// SectorScores lists every sector's score and factors.
func SectorScores(data *BudgetData) []SectorScore {
	out := make([]SectorScore, 0, len(data.Sectors))
	for _, s := range data.Sectors {
		out = append(out, SectorScore{
			Sector:             s.Sector,
			TransparencyScore:  s.TransparencyScore,
			DeliveryPercentage: s.DeliveryPercentage,
			ScoreFactors:       Factors(s.TransparencyScore, s.DeliveryPercentage),
		})
	}
	return out
}

// Program is a slice of a sector's budget.
type Program struct {
	Name      string  `json:"name"`
	Allocated float64 `json:"allocated"`
	Spent     float64 `json:"spent"`
	Status    string  `json:"status"`
}

// KeyMetrics summarise a sector's performance.
type KeyMetrics struct {
	BudgetUtilization        float64 `json:"budget_utilization"`
	TransparencyScore        float64 `json:"transparency_score"`
	PublicSatisfaction       float64 `json:"public_satisfaction"`
	ImplementationEfficiency float64 `json:"implementation_efficiency"`
}

// Breakdown details one sector.
type Breakdown struct {
	Sector     string     `json:"sector"`
	Summary    Sector     `json:"summary"`
	Programs   []Program  `json:"programs"`
	KeyMetrics KeyMetrics `json:"key_metrics"`
}

// SectorBreakdown finds name (case-insensitively) and splits its budget over
// three programs. It returns apperr.ErrNotFound for unknown sectors.
func SectorBreakdown(data *BudgetData, name string) (*Breakdown, error) {
	for _, s := range data.Sectors {
		if !strings.EqualFold(s.Sector, name) {
			continue
		}
		share := func(label, status string, f float64) Program {
			return Program{
				Name:      s.Sector + " " + label,
				Allocated: float64(s.PromisedBudget) * f,
				Spent:     float64(s.DeliveredBudget) * f,
				Status:    status,
			}
		}
		d := s.DeliveryPercentage
		return &Breakdown{
			Sector:  s.Sector,
			Summary: s,
			Programs: []Program{
				share("Development Program", "ongoing", 0.40),
				share("Infrastructure", "completed", 0.35),
				share("Support Services", "ongoing", 0.25),
			},
			KeyMetrics: KeyMetrics{
				BudgetUtilization:        d,
				TransparencyScore:        s.TransparencyScore,
				PublicSatisfaction:       65 + (d-70)*0.5,
				ImplementationEfficiency: d * 0.9,
			},
		}, nil
	}
	return nil, fmt.Errorf("sector %q: %w", name, apperr.ErrNotFound)
}

// Component weights of the overall transparency score.
const (
	WeightAvailability  = 0.30
	WeightTimeliness    = 0.25
	WeightCompleteness  = 0.20
	WeightAccessibility = 0.15
	WeightAccuracy      = 0.10
)

// Components are the five inputs of the weighted transparency score, each in
// [0,1].
type Components struct {
	DataAvailability float64 `json:"data_availability"`
	Timeliness       float64 `json:"timeliness"`
	Completeness     float64 `json:"completeness"`
	Accessibility    float64 `json:"accessibility"`
	Accuracy         float64 `json:"accuracy"`
}

// Weighted combines the components, clamped to [0,1].
func (c Components) Weighted() float64 {
	v := c.DataAvailability*WeightAvailability +
		c.Timeliness*WeightTimeliness +
		c.Completeness*WeightCompleteness +
		c.Accessibility*WeightAccessibility +
		c.Accuracy*WeightAccuracy
	return math.Max(0, math.Min(1, v))
}

// Score is the graded transparency of a budget data set.
type Score struct {
	Value       float64    `json:"score"`
	Grade       string     `json:"grade"`
	Components  Components `json:"components"`
	Suggestions []string   `json:"suggestions"`
}

// ScoreBudget rates how transparent data is. Availability and completeness
// come from the data itself; timeliness, accessibility and accuracy are drawn
// from src within fixed bands.
func ScoreBudget(data *BudgetData, src randsrc.Source) Score {
	c := Components{
		DataAvailability: availability(data),
		Timeliness:       randsrc.Uniform(src, 0.6, 0.9),
		Completeness:     completeness(data),
		Accessibility:    randsrc.Uniform(src, 0.7, 0.95),
		Accuracy:         randsrc.Uniform(src, 0.75, 0.9),
	}
	v := c.Weighted()
	return Score{
		Value:       v,
		Grade:       Grade(v),
		Components:  c,
		Suggestions: Suggestions(v),
	}
}

func availability(data *BudgetData) float64 {
	if data == nil {
		return 0.2
	}
	present := 0
	for _, ok := range []bool{
		data.TotalPromisedBudget > 0,
		len(data.Ministries()) > 0,
		len(data.Sectors) > 0,
		data.TotalDeliveredBudget > 0,
	} {
		if ok {
			present++
		}
	}
	return float64(present) / 4
}

func completeness(data *BudgetData) float64 {
	if data == nil {
		return 0.3
	}
	present := 0
	for _, ok := range []bool{
		len(data.Ministries()) > 5,
		len(data.Sectors) > 3,
		data.TotalDeliveredBudget > 0,
		data.TotalPromisedBudget > 0,
	} {
		if ok {
			present++
		}
	}
	return float64(present) / 4
}

// Grade maps a score in [0,1] to a letter grade.
func Grade(score float64) string {
	switch {
	case score >= 0.9:
		return "A+"
	case score >= 0.8:
		return "A"
	case score >= 0.7:
		return "B+"
	case score >= 0.6:
		return "B"
	case score >= 0.5:
		return "C+"
	case score >= 0.4:
		return "C"
	case score >= 0.3:
		return "D"
	}
	return "F"
}

// MaxSuggestions caps Suggestions.
const MaxSuggestions = 5

// Suggestions lists improvements for a score, most basic first.
func Suggestions(score float64) []string {
	var out []string
	if score < 0.5 {
		out = append(out,
			"Establish basic data publication standards",
			"Create centralized data portal",
			"Implement regular data update schedules",
		)
	}
	if score < 0.7 {
		out = append(out,
			"Improve data quality and completeness",
			"Enhance citizen access to information",
			"Standardize data formats across departments",
		)
	}
	if score < 0.9 {
		out = append(out,
			"Implement real-time data publishing",
			"Add advanced search and filtering capabilities",
			"Provide data visualization tools",
		)
	}
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}

// TrendPoint is one month of the transparency trend.
type TrendPoint struct {
	Month string  `json:"month"`
	Score float64 `json:"score"`
}

// KeyIndicators are headline portal statistics.
type KeyIndicators struct {
	TotalDatasetsAvailable  int      `json:"total_datasets_available"`
	DatasetsUpdatedMonthly  int      `json:"datasets_updated_monthly"`
	CitizenRequestsResolved string   `json:"citizen_requests_resolved"`
	AverageResponseTime     string   `json:"average_response_time"`
	DataFormatsSupported    []string `json:"data_formats_supported"`
	APIUptime               string   `json:"api_uptime"`
}

// Metrics is the government-wide transparency report.
type Metrics struct {
	OverallTransparencyScore float64            `json:"overall_transparency_score"`
	DataAvailabilityIndex    float64            `json:"data_availability_index"`
	GovernmentResponsiveness float64            `json:"government_responsiveness"`
	InformationQuality       float64            `json:"information_quality"`
	MinistryScores           map[string]float64 `json:"ministry_scores"`
	SectorTransparency       map[string]float64 `json:"sector_transparency"`
	MonthlyTrends            []TrendPoint       `json:"monthly_trends"`
	KeyIndicators            KeyIndicators      `json:"key_indicators"`
	Recommendations          []string           `json:"recommendations"`
	LastUpdated              time.Time          `json:"last_updated"`
	CalculationMethod        string             `json:"calculation_method"`
}

type scoreBand struct {
	name   string
	lo, hi float64
}

var ministryBands = []scoreBand{
	{"Ministry of Finance", 0.8, 0.95},
	{"Ministry of Health", 0.7, 0.85},
	{"Ministry of Education", 0.75, 0.9},
	{"Ministry of Defence", 0.5, 0.7},
	{"Ministry of Agriculture", 0.65, 0.8},
	{"Ministry of Railways", 0.6, 0.8},
	{"Ministry of Rural Development", 0.7, 0.85},
	{"Ministry of External Affairs", 0.55, 0.75},
}

var sectorBands = []scoreBand{
	{"Healthcare", 0.7, 0.85},
	{"Education", 0.75, 0.9},
	{"Infrastructure", 0.6, 0.8},
	{"Agriculture", 0.65, 0.8},
	{"Defense", 0.45, 0.65},
	{"Social Welfare", 0.7, 0.85},
}

var trendBands = []scoreBand{
	{"Jan 2024", 0.6, 0.8},
	{"Feb 2024", 0.62, 0.82},
	{"Mar 2024", 0.64, 0.84},
	{"Apr 2024", 0.66, 0.86},
	{"May 2024", 0.68, 0.88},
	{"Jun 2024", 0.65, 0.85},
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// ComprehensiveMetrics draws the government-wide report from src.
func ComprehensiveMetrics(src randsrc.Source, now time.Time) Metrics {
	draw := func(lo, hi float64) float64 { return round3(randsrc.Uniform(src, lo, hi)) }

	m := Metrics{
		OverallTransparencyScore: draw(0.65, 0.85),
		DataAvailabilityIndex:    draw(0.7, 0.9),
		GovernmentResponsiveness: draw(0.6, 0.8),
		InformationQuality:       draw(0.75, 0.95),
		MinistryScores:           make(map[string]float64, len(ministryBands)),
		SectorTransparency:       make(map[string]float64, len(sectorBands)),
		LastUpdated:              now.UTC(),
		CalculationMethod:        "Weighted Average of Multiple Transparency Indicators",
		Recommendations: []string{
			"Improve data standardization across ministries",
			"Implement real-time budget tracking systems",
			"Enhance citizen feedback mechanisms",
			"Increase frequency of data updates",
			"Expand multilingual data accessibility",
		},
	}
	for _, b := range ministryBands {
		m.MinistryScores[b.name] = draw(b.lo, b.hi)
	}
	for _, b := range sectorBands {
		m.SectorTransparency[b.name] = draw(b.lo, b.hi)
	}
	for _, b := range trendBands {
		m.MonthlyTrends = append(m.MonthlyTrends, TrendPoint{Month: b.name, Score: draw(b.lo, b.hi)})
	}
	m.KeyIndicators = KeyIndicators{
		TotalDatasetsAvailable:  randsrc.IntRange(src, 150, 250),
		DatasetsUpdatedMonthly:  randsrc.IntRange(src, 80, 120),
		CitizenRequestsResolved: fmt.Sprintf("%d%%", randsrc.IntRange(src, 75, 95)),
		AverageResponseTime:     fmt.Sprintf("%d days", randsrc.IntRange(src, 5, 15)),
		DataFormatsSupported:    []string{"JSON", "CSV", "XML", "PDF"},
		APIUptime:               fmt.Sprintf("%.1f%%", randsrc.Uniform(src, 95, 99.5)),
	}
	return m
}

// Overview is the budget overview together with its transparency score.
type Overview struct {
	Budget *BudgetData `json:"budget_overview"`
	Score  Score       `json:"transparency"`
}

// Overview scores the current budget data.
func (s *Service) Overview(ctx context.Context) Overview {
	data := s.BudgetData(ctx)
	return Overview{Budget: data, Score: ScoreBudget(data, s.source())}
}

// Metrics returns the government-wide transparency report.
func (s *Service) Metrics() Metrics {
	return ComprehensiveMetrics(s.source(), s.now())
}

// Scores returns the per-sector transparency scores.
func (s *Service) Scores(ctx context.Context) []SectorScore {
	return SectorScores(s.BudgetData(ctx))
}

// Breakdown details one sector of the current budget data.
func (s *Service) Breakdown(ctx context.Context, sector string) (*Breakdown, error) {
	return SectorBreakdown(s.BudgetData(ctx), sector)
}
