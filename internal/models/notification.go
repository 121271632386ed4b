package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification kinds.
const (
	NotifyDocumentAnalyzed    = "document_analyzed"
	NotifyProcurementAssessed = "procurement_assessed"
	NotifySimulationCompleted = "simulation_completed"
)

// Notification is a message pushed to a user when background work finishes.
type Notification struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}
