package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[m.Name] += dp.Value
				}
			}
		}
	}
	return totals
}

func TestRecorder(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	r, err := New(provider)
	require.NoError(t, err)

	ctx := context.Background()
	r.DocumentAnalyzed(ctx, "verified")
	r.DocumentAnalyzed(ctx, "suspicious")
	r.ProcurementAssessed(ctx, "high")
	r.SimulationRun(ctx, "education_subsidy_increase")
	r.AIFallback(ctx, "simulation")
	r.Observe(ctx, "document", 0.25)

	totals := collect(t, reader)
	assert.Equal(t, int64(2), totals["civicsim_document_analyses_total"])
	assert.Equal(t, int64(1), totals["civicsim_procurement_assessments_total"])
	assert.Equal(t, int64(1), totals["civicsim_simulations_total"])
	assert.Equal(t, int64(1), totals["civicsim_ai_fallbacks_total"])
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.DocumentAnalyzed(context.Background(), "verified")
		r.AIFallback(context.Background(), "authenticity")
		r.Observe(context.Background(), "document", 1)
	})
}

func TestNewGlobal(t *testing.T) {
	r, err := NewGlobal()
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func TestInitProvider(t *testing.T) {
	t.Run("should be a no-op without an endpoint", func(t *testing.T) {
		shutdown, err := InitProvider(context.Background(), "civicsim", "")
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
	})
}
