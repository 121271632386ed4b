package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terminal-bench/civicsim/internal/analysis/randsrc"
)

const circular = "Ministry of Finance\n" +
	"Subject: Revised budget circular for fiscal year 2024-25\n" +
	"Reference No. F.1/23/2024-B dated 15/03/2024\n" +
	"Dear Sir, This official circular from the Department of Expenditure announces the revised " +
	"allocation guidelines for all departments. Section 4 of the policy applies to every ministry. " +
	"Sincerely, Joint Secretary"

func TestDetect(t *testing.T) {
	t.Run("should detect official signals in a circular", func(t *testing.T) {
		s := Detect(circular)
		assert.True(t, s.HasOfficialTerms)
		assert.True(t, s.HasDate)
		assert.True(t, s.HasStructure)
		assert.True(t, s.HasCapitalized)
		assert.True(t, s.HasDigits)
		assert.False(t, s.HasSuspicious)
		assert.False(t, s.HasWhitespaceRun)
		assert.Greater(t, s.Length, 200)
		assert.Greater(t, s.Sentences, 2)
	})

	t.Run("should count characters rather than bytes", func(t *testing.T) {
		assert.Equal(t, 3, Detect("₹₹₹").Length)
	})

	t.Run("should flag suspicious phrases case-insensitively", func(t *testing.T) {
		assert.True(t, Detect("URGENT ACTION REQUIRED").HasSuspicious)
		assert.True(t, Detect("please Click Here").HasSuspicious)
	})

	t.Run("should detect whitespace runs", func(t *testing.T) {
		assert.True(t, Detect("a   b").HasWhitespaceRun)
		assert.False(t, Detect("a  b").HasWhitespaceRun)
	})
}

func TestExtract(t *testing.T) {
	t.Run("should keep every feature within bounds", func(t *testing.T) {
		texts := []string{"", "x", circular, "URGENT click here scam", "   \n\n\t  "}
		for seed := int64(0); seed < 50; seed++ {
			for _, text := range texts {
				fs := Extract(text, randsrc.New(seed)).Features
				for _, n := range Names {
					v := fs.Get(n)
					assert.GreaterOrEqual(t, v, 0.0, "%s seed=%d", n, seed)
					assert.LessOrEqual(t, v, 1.0, "%s seed=%d", n, seed)
				}
			}
		}
	})

	t.Run("should replay identical features for the same seed", func(t *testing.T) {
		a := Extract(circular, randsrc.New(7))
		b := Extract(circular, randsrc.New(7))
		assert.Equal(t, a, b)
	})

	t.Run("should respect per-feature ceilings", func(t *testing.T) {
		for seed := int64(0); seed < 50; seed++ {
			fs := Extract(circular, randsrc.New(seed)).Features
			assert.LessOrEqual(t, fs.LanguagePatterns, 0.95)
			assert.LessOrEqual(t, fs.FormattingConsistency, 0.9)
			assert.LessOrEqual(t, fs.OfficialTerminology, 0.95)
			assert.LessOrEqual(t, fs.MetadataAnalysis, 0.85)
			assert.LessOrEqual(t, fs.StructureValidation, 0.9)
			assert.GreaterOrEqual(t, fs.StructureValidation, 0.1)
		}
	})

	t.Run("should score official terminology in its band", func(t *testing.T) {
		for seed := int64(0); seed < 20; seed++ {
			with := Extract("The ministry issued a circular", randsrc.New(seed)).Features
			without := Extract("hello there friend", randsrc.New(seed)).Features
			assert.GreaterOrEqual(t, with.OfficialTerminology, 0.7)
			assert.LessOrEqual(t, without.OfficialTerminology, 0.5)
			assert.GreaterOrEqual(t, without.OfficialTerminology, 0.2)
		}
	})

	t.Run("should lower every feature by the suspicious penalty", func(t *testing.T) {
		tainted := circular + " URGENT ACTION REQUIRED - click here"
		require.Equal(t, Detect(circular).HasDate, Detect(tainted).HasDate)

		for seed := int64(0); seed < 20; seed++ {
			clean := Extract(circular, randsrc.New(seed)).Features
			dirty := Extract(tainted, randsrc.New(seed)).Features
			for _, n := range Names {
				assert.GreaterOrEqual(t, clean.Get(n)-dirty.Get(n), 0.3-1e-9, "%s seed=%d", n, seed)
			}
		}
	})
}

func TestPenalize(t *testing.T) {
	t.Run("should floor penalized values", func(t *testing.T) {
		fs := Penalize(FeatureSet{LanguagePatterns: 0.2, FormattingConsistency: 0.9})
		assert.Equal(t, 0.1, fs.LanguagePatterns)
		assert.InDelta(t, 0.6, fs.FormattingConsistency, 1e-9)
		assert.Equal(t, 0.1, fs.MetadataAnalysis)
	})
}

func TestFeatureSetClamp(t *testing.T) {
	t.Run("should clamp out-of-range and NaN values", func(t *testing.T) {
		fs := FeatureSet{LanguagePatterns: -1, FormattingConsistency: 2, OfficialTerminology: math.NaN()}.Clamp()
		assert.Equal(t, 0.0, fs.LanguagePatterns)
		assert.Equal(t, 1.0, fs.FormattingConsistency)
		assert.Equal(t, 0.0, fs.OfficialTerminology)
	})

	t.Run("should expose features by name", func(t *testing.T) {
		fs := FeatureSet{MetadataAnalysis: 0.4}
		assert.Equal(t, 0.4, fs.Map()[MetadataAnalysis])
		assert.Len(t, fs.Map(), len(Names))
		assert.Equal(t, 0.0, fs.Get(Name("unknown")))
	})
}
