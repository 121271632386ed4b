package simulations

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terminal-bench/civicsim/internal/analysis/simulation"
	"github.com/terminal-bench/civicsim/internal/apperr"
	"github.com/terminal-bench/civicsim/internal/logging"
	"github.com/terminal-bench/civicsim/internal/models"
	"github.com/terminal-bench/civicsim/internal/repository"
	"github.com/terminal-bench/civicsim/internal/services/events"
	"github.com/terminal-bench/civicsim/internal/services/explain"
	"github.com/terminal-bench/civicsim/internal/services/notification"
)

type fakeRepo struct {
	mu   sync.Mutex
	sims map[uuid.UUID]models.Simulation
}

func newFakeRepo() *fakeRepo { return &fakeRepo{sims: map[uuid.UUID]models.Simulation{}} }

func (r *fakeRepo) Create(_ context.Context, sim *models.Simulation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sims[sim.ID] = *sim
	return nil
}

func (r *fakeRepo) GetForUser(_ context.Context, id, userID uuid.UUID) (*models.Simulation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sim, ok := r.sims[id]
	if !ok || sim.UserID != userID {
		return nil, nil
	}
	return &sim, nil
}

func (r *fakeRepo) ListByUser(_ context.Context, userID uuid.UUID, page repository.Page) ([]models.Simulation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Simulation{}
	for _, s := range r.sims {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func (r *fakeRepo) DeleteForUser(_ context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sims[id]; !ok || s.UserID != userID {
		return apperr.ErrNotFound
	}
	delete(r.sims, id)
	return nil
}

type stubExplainer struct {
	text string
	err  error
}

func (s stubExplainer) ExplainAuthenticity(context.Context, string, string) (string, error) {
	return s.text, s.err
}

func (s stubExplainer) ExplainSimulation(context.Context, string, any, any) (string, error) {
	return s.text, s.err
}

func newService(ex explain.Explainer) (*Service, *fakeRepo, *events.Memory, *notification.Service) {
	repo := newFakeRepo()
	pub := &events.Memory{}
	notes := notification.NewService(notification.NewMemoryStore(), logging.Discard())
	fb := explain.WithFallback(ex, logging.Discard(), nil)
	return NewService(repo, fb, pub, notes, nil, logging.Discard()), repo, pub, notes
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()

	t.Run("should compute and store the run", func(t *testing.T) {
		svc, repo, pub, notes := newService(nil)
		res, err := svc.Run(ctx, user, Request{
			ScenarioName: string(simulation.EducationSubsidyIncrease),
			Parameters:   simulation.Parameters{SubsidyIncreasePercent: 25, BudgetAllocationPercent: 15, BeneficiaryExpansionPercent: 30},
		})
		require.NoError(t, err)

		edu, ok := res.Outcome.(simulation.EducationOutcome)
		require.True(t, ok)
		assert.Equal(t, int64(3_900_000), edu.BeneficiariesGained)
		assert.Equal(t, ConfidenceLevel, res.Simulation.ConfidenceLevel)
		assert.Equal(t, models.SimulationVersion, res.Simulation.SimulationVersion)
		assert.Len(t, res.Simulation.Assumptions, 5)
		assert.Equal(t, simulation.Explain(res.Outcome), res.Simulation.AIExplanation)
		assert.False(t, res.AIGenerated)

		var stored map[string]any
		require.NoError(t, json.Unmarshal(repo.sims[res.Simulation.ID].PredictedOutcomes, &stored))
		assert.EqualValues(t, 3_900_000, stored["beneficiaries_gained"])

		require.Len(t, pub.Events(), 1)
		assert.Equal(t, events.SubjectSimulationCompleted, pub.Events()[0].Type)
		list, err := notes.List(ctx, user, 10)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("should store clamped parameters", func(t *testing.T) {
		svc, _, _, _ := newService(nil)
		res, err := svc.Run(ctx, user, Request{
			ScenarioName: string(simulation.HealthcareInfrastructureExpansion),
			Parameters:   simulation.Parameters{BudgetAllocationPercent: 400},
		})
		require.NoError(t, err)
		var p simulation.Parameters
		require.NoError(t, json.Unmarshal(res.Simulation.Parameters, &p))
		assert.Equal(t, 100.0, p.BudgetAllocationPercent)
	})

	t.Run("should use the AI explanation when available", func(t *testing.T) {
		svc, _, _, _ := newService(stubExplainer{text: "AI says hello"})
		res, err := svc.Run(ctx, user, Request{ScenarioName: string(simulation.AgriculturalSupportProgram)})
		require.NoError(t, err)
		assert.Equal(t, "AI says hello", res.Simulation.AIExplanation)
		assert.True(t, res.AIGenerated)
	})

	t.Run("should fall back when the AI fails", func(t *testing.T) {
		svc, _, _, _ := newService(stubExplainer{err: errors.New("boom")})
		res, err := svc.Run(ctx, user, Request{ScenarioName: string(simulation.AgriculturalSupportProgram)})
		require.NoError(t, err)
		assert.Equal(t, simulation.Explain(res.Outcome), res.Simulation.AIExplanation)
	})

	t.Run("should store the error outcome for scenarios without a formula", func(t *testing.T) {
		svc, _, _, _ := newService(nil)
		res, err := svc.Run(ctx, user, Request{ScenarioName: string(simulation.SocialWelfareEnhancement)})
		require.NoError(t, err)
		assert.True(t, simulation.IsError(res.Outcome))
		assert.Equal(t, []string{"General economic assumptions apply"}, res.Simulation.Assumptions)
	})

	t.Run("should reject unknown scenarios", func(t *testing.T) {
		svc, repo, _, _ := newService(nil)
		_, err := svc.Run(ctx, user, Request{ScenarioName: "space_program"})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		assert.Empty(t, repo.sims)
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newService(nil)
	owner, other := uuid.New(), uuid.New()

	res, err := svc.Run(ctx, owner, Request{ScenarioName: string(simulation.EducationSubsidyIncrease)})
	require.NoError(t, err)
	id := res.Simulation.ID

	t.Run("should scope access to the owner", func(t *testing.T) {
		_, err := svc.Get(ctx, id, other)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.ErrorIs(t, svc.Delete(ctx, id, other), apperr.ErrNotFound)

		got, err := svc.Get(ctx, id, owner)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
	})

	t.Run("should paginate with the default limit", func(t *testing.T) {
		list, err := svc.List(ctx, owner, repository.Page{})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("should delete", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, id, owner))
		_, err := svc.Get(ctx, id, owner)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestScenarios(t *testing.T) {
	svc, _, _, _ := newService(nil)
	assert.Equal(t, simulation.Catalog(), svc.Scenarios())
}
