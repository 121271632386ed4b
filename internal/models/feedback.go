package models

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackTypes lists the accepted feedback categories.
var FeedbackTypes = []string{"bug", "feature", "general", "rating", "improvement"}

// FeedbackStatuses lists the states a feedback entry moves through.
var FeedbackStatuses = []string{"open", "in_progress", "resolved", "closed"}

// FeedbackStatusOpen is the status of new feedback.
const FeedbackStatusOpen = "open"

// Feedback is a message left by a user, signed in or not.
type Feedback struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	FeedbackType  string     `json:"feedback_type" db:"feedback_type"`
	Subject       string     `json:"subject" db:"subject"`
	Message       string     `json:"message" db:"message"`
	Rating        *float64   `json:"rating,omitempty" db:"rating"`
	PageURL       string     `json:"page_url,omitempty" db:"page_url"`
	UserAgent     string     `json:"-" db:"user_agent"`
	Status        string     `json:"status" db:"status"`
	AdminResponse string     `json:"admin_response,omitempty" db:"admin_response"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// FeedbackReport summarises all feedback for administrators.
type FeedbackReport struct {
	TotalFeedback  int            `json:"total_feedback"`
	AverageRating  *float64       `json:"average_rating"`
	TypeBreakdown  map[string]int `json:"type_breakdown"`
	StatusCounts   map[string]int `json:"status_breakdown"`
	RecentFeedback []Feedback     `json:"recent_feedback"`
}

// ValidFeedbackType reports whether t is one of FeedbackTypes.
func ValidFeedbackType(t string) bool {
	return contains(FeedbackTypes, t)
}

// ValidFeedbackStatus reports whether s is one of FeedbackStatuses.
func ValidFeedbackStatus(s string) bool {
	return contains(FeedbackStatuses, s)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
