package explain

import (
	"context"
	"log/slog"

	"github.com/terminal-bench/civicsim/internal/services/metrics"
)

// Fallback wraps an Explainer and never fails: any error yields the
// templated text supplied by the caller.
type Fallback struct {
	explainer Explainer
	logger    *slog.Logger
	metrics   *metrics.Recorder
}

// WithFallback wraps ex. A nil ex always falls back.
func WithFallback(ex Explainer, logger *slog.Logger, rec *metrics.Recorder) *Fallback {
	return &Fallback{explainer: ex, logger: logger, metrics: rec}
}

// Authenticity returns the AI explanation of a document, or fallback. The
// bool reports whether the text came from the AI service.
func (f *Fallback) Authenticity(ctx context.Context, text, documentType, fallback string) (string, bool) {
	if f.explainer == nil {
		return fallback, false
	}
	out, err := f.explainer.ExplainAuthenticity(ctx, text, documentType)
	return f.pick(ctx, "authenticity", out, err, fallback)
}

// Simulation returns the AI explanation of a simulation, or fallback.
func (f *Fallback) Simulation(ctx context.Context, scenario string, params, outcome any, fallback string) (string, bool) {
	if f.explainer == nil {
		return fallback, false
	}
	out, err := f.explainer.ExplainSimulation(ctx, scenario, params, outcome)
	return f.pick(ctx, "simulation", out, err, fallback)
}

func (f *Fallback) pick(ctx context.Context, kind, out string, err error, fallback string) (string, bool) {
	if err == nil && out != "" {
		return out, true
	}
	f.metrics.AIFallback(ctx, kind)
	if err != nil {
		f.logger.Info("using templated explanation", "kind", kind, "error", err)
	}
	return fallback, false
}
