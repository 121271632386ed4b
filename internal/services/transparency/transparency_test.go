package transparency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terminal-bench/civicsim/internal/analysis/randsrc"
	"github.com/terminal-bench/civicsim/internal/apperr"
	"github.com/terminal-bench/civicsim/internal/logging"
)

var fixedNow = time.Date(2024, 9, 15, 12, 0, 0, 0, time.UTC)

type memCache struct {
	mu    sync.Mutex
	items map[string][]byte
	ttl   time.Duration
	gets  int
}

func newMemCache() *memCache { return &memCache{items: map[string][]byte{}} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	v, ok := m.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	m.ttl = ttl
	return nil
}

func unionBudget(t *testing.T) *BudgetData {
	t.Helper()
	data, err := UnionBudget{Now: func() time.Time { return fixedNow }}.Fetch(context.Background())
	require.NoError(t, err)
	return data
}

func TestSummarize(t *testing.T) {
	t.Run("should total the union budget exactly", func(t *testing.T) {
		data := unionBudget(t)
		assert.Len(t, data.Sectors, 8)
		assert.Equal(t, int64(1_830_178_600_000), data.TotalPromisedBudget)
		assert.Equal(t, int64(1_662_503_710_000), data.TotalDeliveredBudget)
		assert.Equal(t, 90.84, data.OverallDeliveryPercentage)
		assert.Equal(t, 81.8, data.OverallTransparency)
		assert.Equal(t, "₹183017.9 Cr", data.TotalPromisedFormatted)
	})

	t.Run("should leave overall figures at zero without sectors", func(t *testing.T) {
		data := &BudgetData{}
		Summarize(data)
		assert.Zero(t, data.OverallDeliveryPercentage)
		assert.Zero(t, data.OverallTransparency)
		assert.Equal(t, "₹0", data.TotalPromisedFormatted)
	})
}

func TestRealistic(t *testing.T) {
	t.Run("should keep scores inside their bands", func(t *testing.T) {
		data := Realistic(randsrc.New(3), fixedNow)
		require.Len(t, data.Sectors, 6)
		assert.GreaterOrEqual(t, data.Sectors[0].TransparencyScore, 70.0)
		assert.Less(t, data.Sectors[0].TransparencyScore, 75.0)
		for _, s := range data.Sectors {
			age := fixedNow.Sub(s.LastUpdated)
			assert.GreaterOrEqual(t, age, 24*time.Hour)
			assert.LessOrEqual(t, age, 7*24*time.Hour)
		}
		assert.Equal(t, 91.42, data.OverallDeliveryPercentage)
	})

	t.Run("should replay for the same seed", func(t *testing.T) {
		assert.Equal(t, Realistic(randsrc.New(9), fixedNow), Realistic(randsrc.New(9), fixedNow))
	})
}

func TestService(t *testing.T) {
	ctx := context.Background()

	t.Run("should serve cached data after the first fetch", func(t *testing.T) {
		calls := 0
		provider := ProviderFunc(func(ctx context.Context) (*BudgetData, error) {
			calls++
			return UnionBudget{}.Fetch(ctx)
		})
		cache := newMemCache()
		svc := NewService(provider, cache, 5*time.Minute, 1, logging.Discard())

		first := svc.BudgetData(ctx)
		second := svc.BudgetData(ctx)
		assert.Equal(t, 1, calls)
		assert.Equal(t, first.TotalPromisedBudget, second.TotalPromisedBudget)
		assert.Equal(t, 5*time.Minute, cache.ttl)
	})

	t.Run("should fall back to the realistic data set", func(t *testing.T) {
		provider := ProviderFunc(func(context.Context) (*BudgetData, error) {
			return nil, errors.New("upstream down")
		})
		svc := NewService(provider, nil, time.Minute, 1, logging.Discard())
		data := svc.BudgetData(ctx)
		assert.Equal(t, "Enhanced Realistic Government Budget Data", data.DataSource)
		assert.Len(t, data.Sectors, 6)
	})

	t.Run("should treat an empty data set as a failure", func(t *testing.T) {
		provider := ProviderFunc(func(context.Context) (*BudgetData, error) { return &BudgetData{}, nil })
		svc := NewService(provider, nil, time.Minute, 1, logging.Discard())
		_, err := svc.Refresh(ctx)
		assert.Error(t, err)
		assert.NotEmpty(t, svc.BudgetData(ctx).Sectors)
	})

	t.Run("should reject an invalid refresh schedule", func(t *testing.T) {
		svc := NewService(UnionBudget{}, nil, time.Minute, 1, logging.Discard())
		assert.Error(t, svc.StartRefresh("not a schedule"))
		require.NoError(t, svc.StartRefresh("@every 1h"))
		assert.NoError(t, svc.Stop(ctx))
		assert.NoError(t, svc.Stop(ctx))
	})

	t.Run("should score the overview", func(t *testing.T) {
		svc := NewService(UnionBudget{}, nil, time.Minute, 1, logging.Discard())
		ov := svc.Overview(ctx)
		assert.Equal(t, 1.0, ov.Score.Components.DataAvailability)
		assert.Equal(t, 1.0, ov.Score.Components.Completeness)
		assert.Equal(t, Grade(ov.Score.Value), ov.Score.Grade)
	})
}

func TestSectorScores(t *testing.T) {
	t.Run("should derive the four factors", func(t *testing.T) {
		f := Factors(80, 90)
		assert.InDelta(t, 87.5, f.BudgetDisclosure, 1e-9)
		assert.InDelta(t, 81.0, f.ImplementationTracking, 1e-9)
		assert.InDelta(t, 76.0, f.PublicReporting, 1e-9)
		assert.InDelta(t, 81.0, f.DataAccessibility, 1e-9)

		scores := SectorScores(unionBudget(t))
		require.Len(t, scores, 8)
		assert.Equal(t, "Defence", scores[0].Sector)
		assert.Equal(t, Factors(72.3, 91.79), scores[0].ScoreFactors)
	})
}

func TestSectorBreakdown(t *testing.T) {
	data := unionBudget(t)

	t.Run("should split the budget 40/35/25", func(t *testing.T) {
		b, err := SectorBreakdown(data, "education")
		require.NoError(t, err)
		assert.Equal(t, "Education", b.Sector)
		require.Len(t, b.Programs, 3)
		assert.Equal(t, "Education Development Program", b.Programs[0].Name)
		assert.InDelta(t, 112_899_000_000*0.40, b.Programs[0].Allocated, 1)
		assert.InDelta(t, 101_609_100_000*0.25, b.Programs[2].Spent, 1)
		assert.Equal(t, "completed", b.Programs[1].Status)
		assert.InDelta(t, 75.0, b.KeyMetrics.PublicSatisfaction, 1e-9)
		assert.InDelta(t, 81.0, b.KeyMetrics.ImplementationEfficiency, 1e-9)
	})

	t.Run("should report unknown sectors as not found", func(t *testing.T) {
		_, err := SectorBreakdown(data, "space")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestScoreBudget(t *testing.T) {
	t.Run("should weight the components", func(t *testing.T) {
		c := Components{DataAvailability: 1, Timeliness: 1, Completeness: 1, Accessibility: 1, Accuracy: 1}
		assert.InDelta(t, 1.0, c.Weighted(), 1e-9)
		assert.InDelta(t, 0.3, Components{DataAvailability: 1}.Weighted(), 1e-9)
	})

	t.Run("should score missing data low", func(t *testing.T) {
		s := ScoreBudget(nil, randsrc.New(1))
		assert.Equal(t, 0.2, s.Components.DataAvailability)
		assert.Equal(t, 0.3, s.Components.Completeness)
		assert.GreaterOrEqual(t, s.Value, 0.0)
		assert.LessOrEqual(t, s.Value, 1.0)
	})

	t.Run("should stay within bounds for any draw", func(t *testing.T) {
		data := unionBudget(t)
		for seed := int64(0); seed < 50; seed++ {
			s := ScoreBudget(data, randsrc.New(seed))
			assert.GreaterOrEqual(t, s.Value, 0.3*1+0.25*0.6+0.2*1+0.15*0.7+0.1*0.75-1e-9)
			assert.LessOrEqual(t, s.Value, 1.0)
			assert.LessOrEqual(t, len(s.Suggestions), MaxSuggestions)
		}
	})
}

func TestGrade(t *testing.T) {
	cases := map[float64]string{
		0.95: "A+", 0.9: "A+", 0.85: "A", 0.7: "B+", 0.65: "B",
		0.5: "C+", 0.45: "C", 0.3: "D", 0.29: "F", 0: "F",
	}
	for score, want := range cases {
		assert.Equal(t, want, Grade(score), "score %v", score)
	}
}

func TestSuggestions(t *testing.T) {
	t.Run("should cap at five", func(t *testing.T) {
		s := Suggestions(0.2)
		assert.Len(t, s, MaxSuggestions)
		assert.Equal(t, "Establish basic data publication standards", s[0])
	})

	t.Run("should only suggest advanced steps for good scores", func(t *testing.T) {
		assert.Equal(t, []string{
			"Implement real-time data publishing",
			"Add advanced search and filtering capabilities",
			"Provide data visualization tools",
		}, Suggestions(0.8))
		assert.Empty(t, Suggestions(0.95))
	})
}

func TestComprehensiveMetrics(t *testing.T) {
	m := ComprehensiveMetrics(randsrc.New(4), fixedNow)
	assert.Len(t, m.MinistryScores, 8)
	assert.Len(t, m.SectorTransparency, 6)
	assert.Len(t, m.MonthlyTrends, 6)
	assert.GreaterOrEqual(t, m.OverallTransparencyScore, 0.65)
	assert.LessOrEqual(t, m.OverallTransparencyScore, 0.85)
	assert.GreaterOrEqual(t, m.KeyIndicators.TotalDatasetsAvailable, 150)
	assert.LessOrEqual(t, m.KeyIndicators.TotalDatasetsAvailable, 250)
	assert.Equal(t, fixedNow, m.LastUpdated)
	assert.Equal(t, m, ComprehensiveMetrics(randsrc.New(4), fixedNow))
}

func TestDatasets(t *testing.T) {
	t.Run("should title-case the query", func(t *testing.T) {
		ds := SearchDatasets("rural roads", 10)
		require.Len(t, ds, 2)
		assert.Equal(t, "Budget Dataset - Rural Roads", ds[0].Title)
	})

	t.Run("should honour the limit", func(t *testing.T) {
		assert.Len(t, SearchDatasets("budget", 1), 1)
		assert.Len(t, SearchDatasets("budget", 0), 1)
		assert.Len(t, SearchDatasets("budget", 500), 2)
	})

	t.Run("should preview ministry spending", func(t *testing.T) {
		sp := SpendingFor("all")
		require.Len(t, sp, 2)
		assert.Equal(t, 2, sp[0].TotalRecords)
		assert.Len(t, sp[0].DataPreview, 2)
	})

	t.Run("should list major ministries", func(t *testing.T) {
		m := MajorMinistries()
		assert.Len(t, m, 14)
		m[0] = "changed"
		assert.Equal(t, "Ministry of Finance", MajorMinistries()[0])
	})
}
