package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/terminal-bench/civicsim/internal/models"
)

const feedbackColumns = `id, user_id, feedback_type, subject, message, rating, page_url, user_agent,
	status, admin_response, created_at, updated_at`

// RecentFeedbackLimit is how many entries a report includes.
const RecentFeedbackLimit = 10

// FeedbackRepository stores user feedback.
type FeedbackRepository struct {
	db *sql.DB
}

// NewFeedbackRepository creates a new feedback repository
func NewFeedbackRepository(db *sql.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create inserts a feedback entry.
func (r *FeedbackRepository) Create(ctx context.Context, fb *models.Feedback) error {
	var userID uuid.NullUUID
	if fb.UserID != nil {
		userID = uuid.NullUUID{UUID: *fb.UserID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO feedback (`+feedbackColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		fb.ID, userID, fb.FeedbackType, fb.Subject, fb.Message, fb.Rating, fb.PageURL,
		fb.UserAgent, fb.Status, fb.AdminResponse, fb.CreatedAt, fb.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

// GetByID retrieves a feedback entry by ID
func (r *FeedbackRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Feedback, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+feedbackColumns+` FROM feedback WHERE id = $1`, id)
	fb, err := scanFeedback(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	return fb, nil
}

// ListByUser returns feedback left by userID, newest first.
func (r *FeedbackRepository) ListByUser(ctx context.Context, userID uuid.UUID, page Page) ([]models.Feedback, error) {
	page = page.Normalize()
	return r.list(ctx,
		`SELECT `+feedbackColumns+` FROM feedback WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, page.Limit, page.Skip,
	)
}

// Report aggregates all feedback for administrators.
func (r *FeedbackRepository) Report(ctx context.Context) (*models.FeedbackReport, error) {
	report := &models.FeedbackReport{
		TypeBreakdown: map[string]int{},
		StatusCounts:  map[string]int{},
	}

	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `SELECT count(*), avg(rating) FROM feedback`).
		Scan(&report.TotalFeedback, &avg)
	if err != nil {
		return nil, fmt.Errorf("failed to count feedback: %w", err)
	}
	if avg.Valid {
		rounded := math.Round(avg.Float64*100) / 100
		report.AverageRating = &rounded
	}

	if err := r.countBy(ctx, "feedback_type", report.TypeBreakdown); err != nil {
		return nil, err
	}
	if err := r.countBy(ctx, "status", report.StatusCounts); err != nil {
		return nil, err
	}

	report.RecentFeedback, err = r.list(ctx,
		`SELECT `+feedbackColumns+` FROM feedback ORDER BY created_at DESC LIMIT $1`, RecentFeedbackLimit)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// UpdateStatus sets the status and, when non-empty, the admin response.
func (r *FeedbackRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status, response string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE feedback SET status = $1,
		 admin_response = CASE WHEN $2 = '' THEN admin_response ELSE $2 END,
		 updated_at = $3 WHERE id = $4`,
		status, response, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}
	return expectRow(res)
}

// countBy fills counts from a GROUP BY over column. column is never user input.
func (r *FeedbackRepository) countBy(ctx context.Context, column string, counts map[string]int) error {
	rows, err := r.db.QueryContext(ctx, `SELECT `+column+`, count(*) FROM feedback GROUP BY `+column)
	if err != nil {
		return fmt.Errorf("failed to group feedback by %s: %w", column, err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("failed to scan feedback count: %w", err)
		}
		counts[key] = n
	}
	return rows.Err()
}

func (r *FeedbackRepository) list(ctx context.Context, query string, args ...any) ([]models.Feedback, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	out := []models.Feedback{}
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		out = append(out, *fb)
	}
	return out, rows.Err()
}

func scanFeedback(s scanner) (*models.Feedback, error) {
	var fb models.Feedback
	var userID uuid.NullUUID
	var rating sql.NullFloat64
	err := s.Scan(&fb.ID, &userID, &fb.FeedbackType, &fb.Subject, &fb.Message, &rating,
		&fb.PageURL, &fb.UserAgent, &fb.Status, &fb.AdminResponse, &fb.CreatedAt, &fb.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		id := userID.UUID
		fb.UserID = &id
	}
	if rating.Valid {
		v := rating.Float64
		fb.Rating = &v
	}
	return &fb, nil
}
