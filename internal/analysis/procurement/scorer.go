package procurement

import (
	"fmt"

	"github.com/terminal-bench/civicsim/internal/analysis/randsrc"
)

// Level is the coarse risk band of a score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Score thresholds and weights.
const (
	BaseScore = 10
	MaxScore  = 100

	HighLevelScore   = 60
	MediumLevelScore = 35

	// compoundFlags document flags or more multiply the score by 6/5.
	compoundFlags = 3
)

// LevelFor maps a risk score to its level.
func LevelFor(score int) Level {
	switch {
	case score >= HighLevelScore:
		return LevelHigh
	case score >= MediumLevelScore:
		return LevelMedium
	}
	return LevelLow
}

// Assessment is the risk verdict for one procurement document.
type Assessment struct {
	RiskScore   int       `json:"risk_score"`
	RiskLevel   Level     `json:"risk_level"`
	RedFlags    []RedFlag `json:"red_flags"`
	Explanation string    `json:"explanation"`
}

// Score aggregates document flags, vendor flags and the vendor profile into a
// score in [0,100]. vendor may be nil.
func Score(docFlags []RedFlag, vendor *VendorAnalysis) int {
	score := BaseScore
	for _, f := range docFlags {
		score += documentWeight(f.Severity)
	}
	if vendor != nil {
		for _, f := range vendor.RedFlags {
			score += vendorWeight(f.Severity)
		}
		score += vendor.RiskProfile.Bonus()
	}
	if len(docFlags) >= compoundFlags {
		score = score * 6 / 5
	}
	return min(MaxScore, score)
}

func documentWeight(s Severity) int {
	switch s {
	case SeverityHigh:
		return 35
	case SeverityMedium:
		return 25
	}
	return 12
}

func vendorWeight(s Severity) int {
	switch s {
	case SeverityHigh:
		return 30
	case SeverityMedium:
		return 20
	}
	return 8
}

// Assessor scores procurement documents. It is safe for concurrent use; the
// only shared state is the rule set, which swaps atomically on reload.
type Assessor struct {
	seed  int64
	rules *RuleSet
}

// NewAssessor returns an assessor whose pseudo-random draws mix in seed. rules
// may be nil.
func NewAssessor(seed int64, rules *RuleSet) *Assessor {
	return &Assessor{seed: seed, rules: rules}
}

// Evaluation is the full result of assessing a set of fields.
type Evaluation struct {
	Assessment Assessment
	Vendor     *VendorAnalysis
}

// Assess scores the fields and returns the risk assessment with its templated
// explanation.
func (a *Assessor) Assess(f Fields) Assessment {
	return a.Evaluate(f, "").Assessment
}

// Evaluate scores the fields extracted from text. Vendor analysis runs when
// a vendor or ministry was found. A fault in any step yields a zero-risk
// assessment whose explanation says the analysis failed.
func (a *Assessor) Evaluate(f Fields, text string) (ev Evaluation) {
	defer func() {
		if r := recover(); r != nil {
			ev = Evaluation{Assessment: failedAssessment(fmt.Sprint(r))}
		}
	}()

	flags := DocumentRedFlags(f, a.seed)
	if a.rules != nil {
		flags = append(flags, a.rules.Evaluate(f.Facts(text))...)
	}

	if f.VendorName != "" || f.Ministry != "" {
		v := AnalyzeVendor(f.VendorName, f.Ministry, randsrc.ForInput(a.seed, f.VendorName))
		ev.Vendor = &v
	}

	score := Score(flags, ev.Vendor)
	ev.Assessment = Assessment{
		RiskScore:   score,
		RiskLevel:   LevelFor(score),
		RedFlags:    flags,
		Explanation: FallbackExplanation(flags, score),
	}
	return ev
}

func failedAssessment(reason string) Assessment {
	return Assessment{
		RiskLevel:   LevelLow,
		RedFlags:    []RedFlag{},
		Explanation: "Procurement analysis failed (" + reason + "). No risk assessment is available.",
	}
}
