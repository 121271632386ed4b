// Package features derives the authenticity signals of a document from its raw
// text: keyword presence, date patterns, length and structure.
package features

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/terminal-bench/civicsim/internal/analysis/randsrc"
)

// Name identifies one entry of a FeatureSet.
type Name string

const (
	LanguagePatterns      Name = "language_patterns"
	FormattingConsistency Name = "formatting_consistency"
	OfficialTerminology   Name = "official_terminology"
	MetadataAnalysis      Name = "metadata_analysis"
	StructureValidation   Name = "structure_validation"
)

// Names lists every feature in extraction order.
var Names = []Name{
	LanguagePatterns,
	FormattingConsistency,
	OfficialTerminology,
	MetadataAnalysis,
	StructureValidation,
}

var (
	officialPattern   = regexp.MustCompile(`(?i)official|government|certificate|license|permit|authority|ministry|department|policy|circular|announcement|budget`)
	datePattern       = regexp.MustCompile(`(?i)\d{1,2}/\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2}|\d{1,2}\s+(january|february|march|april|may|june|july|august|september|october|november|december)`)
	capitalPattern    = regexp.MustCompile(`[A-Z][a-z]+`)
	structuralPattern = regexp.MustCompile(`(?i)subject|reference|dear|sincerely|regards|paragraph|section|article`)
	suspiciousPattern = regexp.MustCompile(`(?i)urgent|immediately|scam|fake|click here|suspicious|urgent action required`)
	whitespaceRun     = regexp.MustCompile(`\s{3,}`)
	digitPattern      = regexp.MustCompile(`\d`)
)

const (
	suspiciousPenalty = 0.3
	penaltyFloor      = 0.1
)

// FeatureSet holds one score in [0,1] per feature. It is built once per call
// and never mutated afterwards.
type FeatureSet struct {
	LanguagePatterns      float64 `json:"language_patterns"`
	FormattingConsistency float64 `json:"formatting_consistency"`
	OfficialTerminology   float64 `json:"official_terminology"`
	MetadataAnalysis      float64 `json:"metadata_analysis"`
	StructureValidation   float64 `json:"structure_validation"`
}

// Get returns the value of the named feature.
func (f FeatureSet) Get(n Name) float64 {
	switch n {
	case LanguagePatterns:
		return f.LanguagePatterns
	case FormattingConsistency:
		return f.FormattingConsistency
	case OfficialTerminology:
		return f.OfficialTerminology
	case MetadataAnalysis:
		return f.MetadataAnalysis
	case StructureValidation:
		return f.StructureValidation
	}
	return 0
}

// Map returns the feature set keyed by name.
func (f FeatureSet) Map() map[Name]float64 {
	m := make(map[Name]float64, len(Names))
	for _, n := range Names {
		m[n] = f.Get(n)
	}
	return m
}

// Signals are the boolean and counting facts the scores are built from.
type Signals struct {
	Length           int  `json:"length"`
	Sentences        int  `json:"sentences"`
	HasDigits        bool `json:"has_digits"`
	HasOfficialTerms bool `json:"has_official_terms"`
	HasDate          bool `json:"has_date"`
	HasCapitalized   bool `json:"has_capitalized"`
	HasStructure     bool `json:"has_structure"`
	HasSuspicious    bool `json:"has_suspicious"`
	HasWhitespaceRun bool `json:"has_whitespace_run"`
}

// Extraction is the result of Extract.
type Extraction struct {
	Features FeatureSet `json:"features"`
	Signals  Signals    `json:"signals"`
}

// Detect computes the signals of text without drawing any randomness.
func Detect(text string) Signals {
	return Signals{
		Length:           utf8.RuneCountInString(text),
		Sentences:        len(strings.Split(text, ".")),
		HasDigits:        digitPattern.MatchString(text),
		HasOfficialTerms: officialPattern.MatchString(text),
		HasDate:          datePattern.MatchString(text),
		HasCapitalized:   capitalPattern.MatchString(text),
		HasStructure:     structuralPattern.MatchString(text),
		HasSuspicious:    suspiciousPattern.MatchString(text),
		HasWhitespaceRun: whitespaceRun.MatchString(text),
	}
}

// Extract scores text. Jitter is drawn from src in a fixed order (language,
// formatting, terminology, metadata, structure) so a seeded source replays
// identical features for identical text.
func Extract(text string, src randsrc.Source) Extraction {
	s := Detect(text)

	fs := FeatureSet{
		LanguagePatterns:      languageScore(s, src),
		FormattingConsistency: formattingScore(s, src),
		OfficialTerminology:   terminologyScore(s, src),
		MetadataAnalysis:      metadataScore(s, src),
		StructureValidation:   structureScore(s, src),
	}
	if s.HasSuspicious {
		fs = Penalize(fs)
	}

	return Extraction{Features: fs.Clamp(), Signals: s}
}

// Penalize lowers every feature by the suspicious-terminology penalty, never
// below the floor.
func Penalize(f FeatureSet) FeatureSet {
	p := func(v float64) float64 { return math.Max(penaltyFloor, v-suspiciousPenalty) }
	return FeatureSet{
		LanguagePatterns:      p(f.LanguagePatterns),
		FormattingConsistency: p(f.FormattingConsistency),
		OfficialTerminology:   p(f.OfficialTerminology),
		MetadataAnalysis:      p(f.MetadataAnalysis),
		StructureValidation:   p(f.StructureValidation),
	}
}

// Clamp bounds every feature to [0,1]. NaN becomes 0.
func (f FeatureSet) Clamp() FeatureSet {
	return FeatureSet{
		LanguagePatterns:      clamp01(f.LanguagePatterns),
		FormattingConsistency: clamp01(f.FormattingConsistency),
		OfficialTerminology:   clamp01(f.OfficialTerminology),
		MetadataAnalysis:      clamp01(f.MetadataAnalysis),
		StructureValidation:   clamp01(f.StructureValidation),
	}
}

func languageScore(s Signals, src randsrc.Source) float64 {
	score := 0.5
	if s.HasCapitalized {
		score += 0.2
	}
	if s.Length > 100 {
		score += 0.1
	}
	if !s.HasWhitespaceRun {
		score += 0.1
	}
	if s.Sentences > 2 {
		score += 0.1
	}
	return math.Min(0.95, score+randsrc.Jitter(src, 0.1))
}

func formattingScore(s Signals, src randsrc.Source) float64 {
	score := 0.4
	if s.HasStructure {
		score += 0.3
	}
	if s.Length > 150 {
		score += 0.2
	}
	return math.Min(0.9, score+randsrc.Jitter(src, 0.15))
}

func terminologyScore(s Signals, src randsrc.Source) float64 {
	if s.HasOfficialTerms {
		return 0.7 + src.Float64()*0.25
	}
	return 0.2 + src.Float64()*0.3
}

func metadataScore(s Signals, src randsrc.Source) float64 {
	score := 0.3
	if s.HasDate {
		score += 0.3
	}
	if s.HasDigits {
		score += 0.2
	}
	return math.Min(0.85, score+randsrc.Jitter(src, 0.2))
}

func structureScore(s Signals, src randsrc.Source) float64 {
	score := 0.4
	if s.HasStructure {
		score += 0.25
	}
	if s.Length > 200 {
		score += 0.15
	}
	if s.Length < 50 {
		score -= 0.2
	}
	return math.Max(0.1, math.Min(0.9, score+randsrc.Jitter(src, 0.1)))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
