package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Document types accepted for verification.
const (
	DocGovernmentAnnouncement = "government_announcement"
	DocBudgetDocument         = "budget_document"
	DocPolicyStatement        = "policy_statement"
	DocProcurementNotice      = "procurement_notice"
	DocLegislation            = "legislation"
	DocPublicNotice           = "public_notice"
)

// DocumentTypes lists every accepted document type.
var DocumentTypes = []string{
	DocGovernmentAnnouncement,
	DocBudgetDocument,
	DocPolicyStatement,
	DocProcurementNotice,
	DocLegislation,
	DocPublicNotice,
}

// ValidDocumentType reports whether t is one of DocumentTypes.
func ValidDocumentType(t string) bool {
	for _, d := range DocumentTypes {
		if d == t {
			return true
		}
	}
	return false
}

// Processing states of a document.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Metadata check outcomes.
const (
	MetadataPassed       = "passed"
	MetadataReviewNeeded = "review_needed"
)

// Document is an uploaded file and the result of analysing it.
type Document struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	UserID           uuid.UUID       `json:"user_id" db:"user_id"`
	Filename         string          `json:"filename" db:"filename"`
	FileType         string          `json:"file_type" db:"file_type"`
	FileSize         int64           `json:"file_size" db:"file_size"`
	DocumentType     string          `json:"document_type" db:"document_type"`
	StorageKey       string          `json:"-" db:"storage_key"`
	Checksum         string          `json:"checksum" db:"checksum"`
	Encrypted        bool            `json:"encrypted" db:"encrypted"`
	Verdict          string          `json:"verdict,omitempty" db:"verdict"`
	ConfidenceScore  *float64        `json:"confidence_score,omitempty" db:"confidence_score"`
	AIAnalysis       string          `json:"ai_analysis,omitempty" db:"ai_analysis"`
	Analysis         json.RawMessage `json:"analysis,omitempty" db:"analysis"`
	MetadataCheck    string          `json:"metadata_check,omitempty" db:"metadata_check"`
	ProcessingStatus string          `json:"processing_status" db:"processing_status"`
	ProcessingTime   float64         `json:"processing_time" db:"processing_time"`
	ErrorMessage     string          `json:"error_message,omitempty" db:"error_message"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}
