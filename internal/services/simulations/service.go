// Package simulations runs policy simulations for users and keeps their
// history.
package simulations

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/terminal-bench/civicsim/internal/analysis/simulation"
	"github.com/terminal-bench/civicsim/internal/apperr"
	"github.com/terminal-bench/civicsim/internal/models"
	"github.com/terminal-bench/civicsim/internal/repository"
	"github.com/terminal-bench/civicsim/internal/services/events"
	"github.com/terminal-bench/civicsim/internal/services/explain"
	"github.com/terminal-bench/civicsim/internal/services/metrics"
	"github.com/terminal-bench/civicsim/pkg/utils"
)

// ConfidenceLevel is recorded on every run.
const ConfidenceLevel = "medium"

// Repository persists simulation runs.
type Repository interface {
	Create(ctx context.Context, sim *models.Simulation) error
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Simulation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page repository.Page) ([]models.Simulation, error)
	DeleteForUser(ctx context.Context, id, userID uuid.UUID) error
}

// Notifier tells a user that a run finished.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, title, message string, data map[string]any) (models.Notification, error)
}

// Service runs and stores simulations.
type Service struct {
	repo       Repository
	calculator *simulation.Calculator
	explainer  *explain.Fallback
	events     events.Publisher
	notifier   Notifier
	metrics    *metrics.Recorder
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a simulation service. explainer, publisher and notifier
// may be nil.
func NewService(repo Repository, explainer *explain.Fallback, publisher events.Publisher, notifier Notifier, rec *metrics.Recorder, logger *slog.Logger) *Service {
	if explainer == nil {
		explainer = explain.WithFallback(nil, logger, rec)
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		repo:       repo,
		calculator: simulation.NewCalculator(),
		explainer:  explainer,
		events:     publisher,
		notifier:   notifier,
		metrics:    rec,
		logger:     logger,
		now:        time.Now,
	}
}

// Request asks for one simulation run.
type Request struct {
	ScenarioName string                `json:"scenario_name"`
	Parameters   simulation.Parameters `json:"parameters"`
}

// Result is a completed run.
type Result struct {
	Simulation  *models.Simulation `json:"simulation"`
	Outcome     simulation.Outcome `json:"predicted_outcomes"`
	AIGenerated bool               `json:"ai_generated"`
}

// Run validates the scenario, computes the outcome and stores the run.
// Percentages outside [0,100] are clamped by the calculator.
func (s *Service) Run(ctx context.Context, userID uuid.UUID, req Request) (*Result, error) {
	start := s.now()

	name := strings.TrimSpace(req.ScenarioName)
	if !simulation.IsAccepted(name) {
		return nil, fmt.Errorf("%w: scenario must be one of %s", apperr.ErrInvalidInput, scenarioList())
	}
	scenario := simulation.Scenario(name)

	params := req.Parameters.Clamp()
	outcome := s.calculator.Run(scenario, params)
	text, generated := s.explainer.Simulation(ctx, name, params, outcome, simulation.Explain(outcome))

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode parameters: %w", err)
	}
	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return nil, fmt.Errorf("failed to encode outcome: %w", err)
	}

	sim := &models.Simulation{
		ID:                uuid.New(),
		UserID:            userID,
		ScenarioName:      name,
		Parameters:        paramsJSON,
		PredictedOutcomes: outcomeJSON,
		AIExplanation:     text,
		ConfidenceLevel:   ConfidenceLevel,
		Assumptions:       simulation.Assumptions(scenario),
		SimulationVersion: models.SimulationVersion,
		ProcessingTime:    utils.Seconds(s.now().Sub(start)),
		CreatedAt:         start.UTC(),
	}
	if err := s.repo.Create(ctx, sim); err != nil {
		return nil, err
	}

	s.metrics.SimulationRun(ctx, name)
	s.metrics.Observe(ctx, "simulation", sim.ProcessingTime)
	s.completed(ctx, sim, outcome)

	return &Result{Simulation: sim, Outcome: outcome, AIGenerated: generated}, nil
}

func (s *Service) completed(ctx context.Context, sim *models.Simulation, outcome simulation.Outcome) {
	data := map[string]any{"simulation_id": sim.ID, "scenario_name": sim.ScenarioName, "failed": simulation.IsError(outcome)}

	ev, err := events.NewEvent(events.SubjectSimulationCompleted, sim.ID, sim.UserID, data)
	if err == nil {
		err = s.events.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.Warn("failed to publish event", "subject", events.SubjectSimulationCompleted, "error", err)
	}

	if s.notifier == nil {
		return
	}
	message := fmt.Sprintf("Your %s simulation is ready.", strings.ReplaceAll(sim.ScenarioName, "_", " "))
	if _, err := s.notifier.Notify(ctx, sim.UserID, models.NotifySimulationCompleted, "Simulation complete", message, data); err != nil {
		s.logger.Warn("failed to notify user", "user_id", sim.UserID, "error", err)
	}
}

func scenarioList() string {
	names := make([]string, len(simulation.AcceptedScenarios))
	for i, sc := range simulation.AcceptedScenarios {
		names[i] = string(sc)
	}
	return strings.Join(names, ", ")
}

// Scenarios describes the scenarios that have a formula.
func (s *Service) Scenarios() []simulation.ScenarioInfo {
	return simulation.Catalog()
}

// List returns the user's runs, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, page repository.Page) ([]models.Simulation, error) {
	return s.repo.ListByUser(ctx, userID, page.Normalize())
}

// Get returns one of the user's runs.
func (s *Service) Get(ctx context.Context, id, userID uuid.UUID) (*models.Simulation, error) {
	sim, err := s.repo.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if sim == nil {
		return nil, apperr.ErrNotFound
	}
	return sim, nil
}

// Delete removes one of the user's runs.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.DeleteForUser(ctx, id, userID)
}
