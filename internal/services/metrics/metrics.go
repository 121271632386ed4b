// Package metrics holds the OpenTelemetry instruments the services record to.
// Without an installed meter provider every instrument is a no-op.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/terminal-bench/civicsim"

// Recorder counts analyses, simulations and explanation fallbacks. A nil
// *Recorder records nothing.
type Recorder struct {
	documents   metric.Int64Counter
	procurement metric.Int64Counter
	simulations metric.Int64Counter
	fallbacks   metric.Int64Counter
	latency     metric.Float64Histogram
}

// New creates the instruments on mp.
func New(mp metric.MeterProvider) (*Recorder, error) {
	meter := mp.Meter(meterName)
	r := &Recorder{}
	var err error

	if r.documents, err = meter.Int64Counter("civicsim_document_analyses_total",
		metric.WithDescription("Document authenticity analyses by verdict")); err != nil {
		return nil, fmt.Errorf("document counter: %w", err)
	}
	if r.procurement, err = meter.Int64Counter("civicsim_procurement_assessments_total",
		metric.WithDescription("Procurement risk assessments by risk level")); err != nil {
		return nil, fmt.Errorf("procurement counter: %w", err)
	}
	if r.simulations, err = meter.Int64Counter("civicsim_simulations_total",
		metric.WithDescription("Policy simulations by scenario")); err != nil {
		return nil, fmt.Errorf("simulation counter: %w", err)
	}
	if r.fallbacks, err = meter.Int64Counter("civicsim_ai_fallbacks_total",
		metric.WithDescription("AI explanations replaced by the templated text")); err != nil {
		return nil, fmt.Errorf("fallback counter: %w", err)
	}
	if r.latency, err = meter.Float64Histogram("civicsim_analysis_seconds",
		metric.WithDescription("Time spent analysing a document or running a simulation"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("latency histogram: %w", err)
	}
	return r, nil
}

// NewGlobal creates the instruments on the global meter provider.
func NewGlobal() (*Recorder, error) {
	return New(otel.GetMeterProvider())
}

func (r *Recorder) DocumentAnalyzed(ctx context.Context, verdict string) {
	if r == nil {
		return
	}
	r.documents.Add(ctx, 1, metric.WithAttributes(attribute.String("verdict", verdict)))
}

func (r *Recorder) ProcurementAssessed(ctx context.Context, level string) {
	if r == nil {
		return
	}
	r.procurement.Add(ctx, 1, metric.WithAttributes(attribute.String("risk_level", level)))
}

func (r *Recorder) SimulationRun(ctx context.Context, scenario string) {
	if r == nil {
		return
	}
	r.simulations.Add(ctx, 1, metric.WithAttributes(attribute.String("scenario", scenario)))
}

func (r *Recorder) AIFallback(ctx context.Context, kind string) {
	if r == nil {
		return
	}
	r.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// Observe records how long an operation of kind took.
func (r *Recorder) Observe(ctx context.Context, kind string, seconds float64) {
	if r == nil {
		return
	}
	r.latency.Record(ctx, seconds, metric.WithAttributes(attribute.String("kind", kind)))
}
