// Package authenticity turns a document FeatureSet into a probability that the
// document is an authentic government communication.
package authenticity

import (
	"fmt"
	"math"
	"strings"

	"github.com/terminal-bench/civicsim/internal/analysis/features"
	"github.com/terminal-bench/civicsim/internal/analysis/randsrc"
)

// Verdict is the classification outcome of an authenticity analysis.
type Verdict string

const (
	VerdictVerified     Verdict = "verified"
	VerdictSuspicious   Verdict = "suspicious"
	VerdictInconclusive Verdict = "inconclusive"
)

const (
	// Midpoint and Scale shape the logistic curve so mid-range weighted sums
	// land near probability 0.5.
	Midpoint  = 0.5
	Scale     = 6.0
	Threshold = 0.5
)

// Weights are the per-feature coefficients of the weighted sum. They sum to 1.
type Weights struct {
	Language    float64
	Formatting  float64
	Terminology float64
	Metadata    float64
	Structure   float64
}

// DefaultWeights are the hand-tuned production weights.
var DefaultWeights = Weights{
	Language:    0.25,
	Formatting:  0.20,
	Terminology: 0.25,
	Metadata:    0.15,
	Structure:   0.15,
}

// Score is the numeric part of an analysis.
type Score struct {
	WeightedSum float64 `json:"weighted_sum"`
	Probability float64 `json:"probability"`
	Authentic   bool    `json:"is_authentic"`
}

// Result is the outcome of Analyze.
type Result struct {
	Verdict              Verdict             `json:"verdict"`
	ConfidenceScore      float64             `json:"confidence_score"`
	Probability          float64             `json:"probability"`
	IsAuthentic          bool                `json:"is_authentic"`
	VerificationResult   int                 `json:"verification_result"`
	Features             features.FeatureSet `json:"features"`
	AuthenticIndicators  []string            `json:"authentic_indicators"`
	SuspiciousIndicators []string            `json:"suspicious_indicators"`
	Explanation          string              `json:"explanation"`
}

// Scorer combines features with a fixed set of weights. It holds no mutable
// state and is safe for concurrent use.
type Scorer struct {
	weights Weights
}

// NewScorer returns a scorer using DefaultWeights.
func NewScorer() *Scorer {
	return &Scorer{weights: DefaultWeights}
}

// NewScorerWithWeights returns a scorer with custom weights.
func NewScorerWithWeights(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// WeightedSum returns Σ feature × weight over the clamped feature set.
func (s *Scorer) WeightedSum(fs features.FeatureSet) float64 {
	fs = fs.Clamp()
	w := s.weights
	return fs.LanguagePatterns*w.Language +
		fs.FormattingConsistency*w.Formatting +
		fs.OfficialTerminology*w.Terminology +
		fs.MetadataAnalysis*w.Metadata +
		fs.StructureValidation*w.Structure
}

// Score applies the logistic transform to the weighted sum.
func (s *Scorer) Score(fs features.FeatureSet) Score {
	sum := s.WeightedSum(fs)
	p := Logistic(sum)
	return Score{WeightedSum: sum, Probability: p, Authentic: p >= Threshold}
}

// Logistic maps a weighted sum to a probability in (0,1).
func Logistic(weightedSum float64) float64 {
	return 1 / (1 + math.Exp(-(weightedSum-Midpoint)*Scale))
}

// Analyze extracts features from text and scores them. It always returns a
// well-formed result; an internal fault yields SafeDefault.
func (s *Scorer) Analyze(text, documentType string, src randsrc.Source) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = SafeDefault(fmt.Sprintf("classification failed: %v", r))
		}
	}()

	ex := features.Extract(text, src)
	score := s.Score(ex.Features)

	res = Result{
		Probability:          score.Probability,
		IsAuthentic:          score.Authentic,
		ConfidenceScore:      math.Round(score.Probability*1000) / 10,
		Features:             ex.Features,
		AuthenticIndicators:  AuthenticIndicators(ex.Signals),
		SuspiciousIndicators: SuspiciousIndicators(ex.Signals, documentType),
	}
	switch {
	case score.Authentic:
		res.Verdict = VerdictVerified
		res.VerificationResult = 1
	case ex.Signals.HasSuspicious:
		res.Verdict = VerdictSuspicious
	default:
		res.Verdict = VerdictInconclusive
	}
	res.Explanation = Explain(res, documentType)
	return res
}

// SafeDefault is the worst-case result: not authentic, zero confidence.
func SafeDefault(reason string) Result {
	return Result{
		Verdict:              VerdictSuspicious,
		AuthenticIndicators:  []string{},
		SuspiciousIndicators: []string{},
		Explanation:          "Classification failed due to a technical error (" + reason + "). Document defaulted to not authentic.",
	}
}

// AuthenticIndicators lists the positive signals. They are derived from the
// boolean signals only and do not track the probability threshold.
func AuthenticIndicators(s features.Signals) []string {
	out := []string{}
	if s.HasOfficialTerms {
		out = append(out, "Contains official government terminology")
	}
	if s.HasDate {
		out = append(out, "Includes proper date formatting")
	}
	if s.HasStructure {
		out = append(out, "Follows official document structure")
	}
	if s.Length > 200 {
		out = append(out, "Adequate document length and detail")
	}
	return out
}

// SuspiciousIndicators lists the negative signals.
func SuspiciousIndicators(s features.Signals, documentType string) []string {
	out := []string{}
	if s.HasSuspicious {
		out = append(out, "Contains suspicious language patterns")
	}
	if s.Length < 50 {
		out = append(out, "Document appears too brief for official content")
	}
	if !s.HasDigits && documentType != "policy_statement" {
		out = append(out, "Missing expected numerical references")
	}
	return out
}

// Explain renders the templated analysis report for a result.
func Explain(r Result, documentType string) string {
	var b strings.Builder

	label := "FAKE (0)"
	if r.IsAuthentic {
		label = "AUTHENTIC (1)"
	}
	fmt.Fprintf(&b, "Classification result: %s\n", label)
	fmt.Fprintf(&b, "Confidence level: %.1f%%\n", r.Probability*100)
	if documentType != "" {
		fmt.Fprintf(&b, "Document type: %s\n", humanize(documentType))
	}
	b.WriteString("\n")

	if r.IsAuthentic {
		b.WriteString("This document shows characteristics consistent with authentic government communications. Its language patterns, formatting and structure align with official document standards.\n")
	} else {
		b.WriteString("This document contains elements that raise concerns about its authenticity. Several indicators suggest it may not originate from an official government source.\n")
	}

	b.WriteString("\nKey findings:\n")
	for _, f := range findings {
		v := r.Features.Get(f.name)
		note := f.low
		if v > 0.6 {
			note = f.high
		}
		fmt.Fprintf(&b, "- %s: %.0f%% - %s\n", f.label, v*100, note)
	}

	b.WriteString("\nRecommendation: ")
	if r.IsAuthentic {
		b.WriteString("The document appears authentic. Verify through official channels before relying on it for critical decisions.")
	} else {
		b.WriteString("Exercise caution. Verify this document through official government channels before acting on its contents.")
	}
	return b.String()
}

var findings = []struct {
	name      features.Name
	label     string
	high, low string
}{
	{features.LanguagePatterns, "Language quality", "Professional language patterns detected", "Language quality concerns identified"},
	{features.StructureValidation, "Document structure", "Proper official document structure", "Structural inconsistencies found"},
	{features.OfficialTerminology, "Official terminology", "Appropriate government terminology used", "Limited official terminology detected"},
	{features.FormattingConsistency, "Content formatting", "Consistent professional formatting", "Formatting irregularities noted"},
	{features.MetadataAnalysis, "Metadata validation", "Proper dates and references included", "Missing or irregular metadata elements"},
}

func humanize(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
