package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SimulationVersion tags stored simulations with the formula revision.
const SimulationVersion = "1.0"

// Simulation is a stored policy-simulation run.
type Simulation struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	UserID            uuid.UUID       `json:"user_id" db:"user_id"`
	ScenarioName      string          `json:"scenario_name" db:"scenario_name"`
	Parameters        json.RawMessage `json:"parameters" db:"parameters"`
	PredictedOutcomes json.RawMessage `json:"predicted_outcomes" db:"predicted_outcomes"`
	AIExplanation     string          `json:"ai_explanation" db:"ai_explanation"`
	ConfidenceLevel   string          `json:"confidence_level" db:"confidence_level"`
	Assumptions       []string        `json:"assumptions" db:"assumptions"`
	SimulationVersion string          `json:"simulation_version" db:"simulation_version"`
	ProcessingTime    float64         `json:"processing_time" db:"processing_time"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}
