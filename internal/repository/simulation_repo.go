package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/terminal-bench/civicsim/internal/models"
)

const simulationColumns = `id, user_id, scenario_name, parameters, predicted_outcomes, ai_explanation,
	confidence_level, assumptions, simulation_version, processing_time, created_at`

// SimulationRepository stores policy simulation runs.
type SimulationRepository struct {
	db *sql.DB
}

// NewSimulationRepository creates a new simulation repository
func NewSimulationRepository(db *sql.DB) *SimulationRepository {
	return &SimulationRepository{db: db}
}

// Create inserts a simulation run.
func (r *SimulationRepository) Create(ctx context.Context, sim *models.Simulation) error {
	assumptions, err := json.Marshal(sim.Assumptions)
	if err != nil {
		return fmt.Errorf("failed to encode assumptions: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO policy_simulations (`+simulationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sim.ID, sim.UserID, sim.ScenarioName, string(sim.Parameters), string(sim.PredictedOutcomes),
		sim.AIExplanation, sim.ConfidenceLevel, string(assumptions), sim.SimulationVersion,
		sim.ProcessingTime, sim.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create simulation: %w", err)
	}
	return nil
}

// GetForUser returns the simulation only if userID owns it.
func (r *SimulationRepository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Simulation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+simulationColumns+` FROM policy_simulations WHERE id = $1 AND user_id = $2`, id, userID)
	sim, err := scanSimulation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get simulation: %w", err)
	}
	return sim, nil
}

// ListByUser returns the user's simulations, newest first.
func (r *SimulationRepository) ListByUser(ctx context.Context, userID uuid.UUID, page Page) ([]models.Simulation, error) {
	page = page.Normalize()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+simulationColumns+` FROM policy_simulations WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, page.Limit, page.Skip,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query simulations: %w", err)
	}
	defer rows.Close()

	sims := []models.Simulation{}
	for rows.Next() {
		sim, err := scanSimulation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan simulation: %w", err)
		}
		sims = append(sims, *sim)
	}
	return sims, rows.Err()
}

// DeleteForUser removes the simulation if userID owns it.
func (r *SimulationRepository) DeleteForUser(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM policy_simulations WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete simulation: %w", err)
	}
	return expectRow(res)
}

func scanSimulation(s scanner) (*models.Simulation, error) {
	var sim models.Simulation
	var params, outcomes, assumptions []byte
	err := s.Scan(&sim.ID, &sim.UserID, &sim.ScenarioName, &params, &outcomes, &sim.AIExplanation,
		&sim.ConfidenceLevel, &assumptions, &sim.SimulationVersion, &sim.ProcessingTime, &sim.CreatedAt)
	if err != nil {
		return nil, err
	}
	sim.Parameters = params
	sim.PredictedOutcomes = outcomes
	if len(assumptions) > 0 {
		if err := json.Unmarshal(assumptions, &sim.Assumptions); err != nil {
			return nil, fmt.Errorf("failed to decode assumptions: %w", err)
		}
	}
	return &sim, nil
}
