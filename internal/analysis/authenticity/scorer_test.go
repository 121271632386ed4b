package authenticity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terminal-bench/civicsim/internal/analysis/features"
	"github.com/terminal-bench/civicsim/internal/analysis/randsrc"
)

const notice = "Government of India, Ministry of Health and Family Welfare\n" +
	"Subject: Public notice on vaccination camps dated 12/08/2024\n" +
	"Reference: Circular No. 44/2024. Dear Citizens, the Department announces free vaccination " +
	"camps across all districts from 1 September. Section 2 lists the eligible age groups. " +
	"Sincerely, Director of Public Health"

func uniform(v float64) features.FeatureSet {
	return features.FeatureSet{
		LanguagePatterns:      v,
		FormattingConsistency: v,
		OfficialTerminology:   v,
		MetadataAnalysis:      v,
		StructureValidation:   v,
	}
}

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights
	assert.InDelta(t, 1.0, w.Language+w.Formatting+w.Terminology+w.Metadata+w.Structure, 1e-9)
}

func TestLogistic(t *testing.T) {
	t.Run("should map the midpoint to one half", func(t *testing.T) {
		assert.InDelta(t, 0.5, Logistic(Midpoint), 1e-12)
	})

	t.Run("should stay strictly inside (0,1) for clamped features", func(t *testing.T) {
		s := NewScorer()
		for i := 0; i <= 100; i++ {
			v := float64(i) / 100
			p := s.Score(uniform(v)).Probability
			assert.Greater(t, p, 0.0)
			assert.Less(t, p, 1.0)
		}
	})

	t.Run("should clamp features before weighting", func(t *testing.T) {
		s := NewScorer()
		assert.Equal(t, s.Score(uniform(1)), s.Score(uniform(7)))
		assert.Equal(t, s.Score(uniform(0)), s.Score(uniform(-3)))
	})

	t.Run("should be monotonic in the weighted sum", func(t *testing.T) {
		prev := 0.0
		for i := 0; i <= 20; i++ {
			p := Logistic(float64(i) / 20)
			assert.Greater(t, p, prev)
			prev = p
		}
	})
}

func TestScore(t *testing.T) {
	s := NewScorer()

	t.Run("should mark authentic at or above the threshold", func(t *testing.T) {
		assert.True(t, s.Score(uniform(0.5)).Authentic)
		assert.True(t, s.Score(uniform(0.9)).Authentic)
		assert.False(t, s.Score(uniform(0.49)).Authentic)
	})

	t.Run("should weight features with custom weights", func(t *testing.T) {
		only := NewScorerWithWeights(Weights{Language: 1})
		assert.InDelta(t, 0.8, only.WeightedSum(features.FeatureSet{LanguagePatterns: 0.8, StructureValidation: 1}), 1e-12)
	})

	t.Run("should give identical scores for identical features", func(t *testing.T) {
		fs := features.Extract(notice, randsrc.New(99)).Features
		assert.Equal(t, s.Score(fs), s.Score(fs))
	})
}

func TestAnalyze(t *testing.T) {
	s := NewScorer()

	t.Run("should verify an official notice", func(t *testing.T) {
		res := s.Analyze(notice, "public_notice", randsrc.New(1))
		assert.Equal(t, VerdictVerified, res.Verdict)
		assert.True(t, res.IsAuthentic)
		assert.Equal(t, 1, res.VerificationResult)
		assert.GreaterOrEqual(t, res.ConfidenceScore, 50.0)
		assert.LessOrEqual(t, res.ConfidenceScore, 100.0)
		assert.Contains(t, res.AuthenticIndicators, "Contains official government terminology")
		assert.Contains(t, res.AuthenticIndicators, "Adequate document length and detail")
		assert.Empty(t, res.SuspiciousIndicators)
		assert.Contains(t, res.Explanation, "AUTHENTIC (1)")
		assert.Contains(t, res.Explanation, "Document type: Public Notice")
	})

	t.Run("should mark scam text suspicious", func(t *testing.T) {
		res := s.Analyze("URGENT!!! click here to claim", "public_notice", randsrc.New(1))
		assert.Equal(t, VerdictSuspicious, res.Verdict)
		assert.False(t, res.IsAuthentic)
		assert.Equal(t, 0, res.VerificationResult)
		assert.Equal(t, []string{
			"Contains suspicious language patterns",
			"Document appears too brief for official content",
			"Missing expected numerical references",
		}, res.SuspiciousIndicators)
		assert.Contains(t, res.Explanation, "FAKE (0)")
	})

	t.Run("should call a weak but clean text inconclusive", func(t *testing.T) {
		res := s.Analyze("hello there", "policy_statement", randsrc.New(3))
		assert.Equal(t, VerdictInconclusive, res.Verdict)
		assert.NotContains(t, res.SuspiciousIndicators, "Missing expected numerical references")
	})

	t.Run("should reproduce results for the same seed", func(t *testing.T) {
		a := s.Analyze(notice, "public_notice", randsrc.ForInput(5, notice))
		b := s.Analyze(notice, "public_notice", randsrc.ForInput(5, notice))
		assert.Equal(t, a, b)
	})

	t.Run("should lower the probability when scam phrases are added", func(t *testing.T) {
		clean := s.Analyze(notice, "public_notice", randsrc.New(11))
		dirty := s.Analyze(notice+" URGENT ACTION REQUIRED - click here", "public_notice", randsrc.New(11))
		assert.Less(t, dirty.Probability, clean.Probability)
		assert.Contains(t, dirty.SuspiciousIndicators, "Contains suspicious language patterns")
	})

	t.Run("should flip a borderline verdict when scam phrases are added", func(t *testing.T) {
		const borderline = "the ministry will publish the revised water policy for all towns"

		clean := s.Analyze(borderline, "policy_statement", midSource{})
		require.Equal(t, VerdictVerified, clean.Verdict)
		assert.InDelta(t, 0.5616, clean.Probability, 0.001)

		dirty := s.Analyze(borderline+" URGENT ACTION REQUIRED - click here", "policy_statement", midSource{})
		assert.Equal(t, VerdictSuspicious, dirty.Verdict)
		assert.False(t, dirty.IsAuthentic)
		assert.Less(t, dirty.Probability, 0.5)
		for _, n := range features.Names {
			assert.Less(t, dirty.Features.Get(n), clean.Features.Get(n), "feature %s", n)
		}
	})

	t.Run("should fall back to the safe default on a faulty source", func(t *testing.T) {
		res := s.Analyze(notice, "public_notice", panicSource{})
		assert.Equal(t, VerdictSuspicious, res.Verdict)
		assert.False(t, res.IsAuthentic)
		assert.Zero(t, res.ConfidenceScore)
		assert.True(t, strings.HasPrefix(res.Explanation, "Classification failed"))
	})
}

func TestExplain(t *testing.T) {
	t.Run("should report every feature", func(t *testing.T) {
		r := Result{IsAuthentic: true, Probability: 0.8, Features: uniform(0.7)}
		text := Explain(r, "")
		require.NotContains(t, text, "Document type")
		for _, label := range []string{"Language quality", "Document structure", "Official terminology", "Content formatting", "Metadata validation"} {
			assert.Contains(t, text, label+": 70%")
		}
		assert.Contains(t, text, "Confidence level: 80.0%")
	})
}

// midSource always draws the midpoint, so jitter is zero.
type midSource struct{}

func (midSource) Float64() float64 { return 0.5 }
func (midSource) Intn(int) int     { return 0 }

type panicSource struct{}

func (panicSource) Float64() float64 { panic("source exhausted") }
func (panicSource) Intn(int) int     { panic("source exhausted") }
