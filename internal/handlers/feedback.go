package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/terminal-bench/civicsim/internal/middleware"
	"github.com/terminal-bench/civicsim/internal/models"
	"github.com/terminal-bench/civicsim/internal/repository"
)

// FeedbackStore persists feedback.
type FeedbackStore interface {
	Create(ctx context.Context, fb *models.Feedback) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Feedback, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page repository.Page) ([]models.Feedback, error)
	Report(ctx context.Context) (*models.FeedbackReport, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status, response string) error
}

// FeedbackHandler handles feedback submission and administration.
type FeedbackHandler struct {
	repo FeedbackStore
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(repo FeedbackStore) *FeedbackHandler {
	return &FeedbackHandler{repo: repo}
}

type submitFeedbackRequest struct {
	FeedbackType string   `json:"feedback_type" binding:"required"`
	Subject      string   `json:"subject" binding:"required,max=200"`
	Message      string   `json:"message" binding:"required,max=5000"`
	Rating       *float64 `json:"rating"`
	PageURL      string   `json:"page_url" binding:"max=500"`
}

// Submit records feedback from a signed-in or anonymous user.
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req submitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidFeedbackType(req.FeedbackType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "feedback_type must be one of " + strings.Join(models.FeedbackTypes, ", ")})
		return
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 5"})
		return
	}

	now := time.Now().UTC()
	fb := &models.Feedback{
		ID:           uuid.New(),
		FeedbackType: req.FeedbackType,
		Subject:      strings.TrimSpace(req.Subject),
		Message:      strings.TrimSpace(req.Message),
		Rating:       req.Rating,
		PageURL:      req.PageURL,
		UserAgent:    c.Request.UserAgent(),
		Status:       models.FeedbackStatusOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if userID, err := middleware.GetUserID(c); err == nil {
		fb.UserID = &userID
	}

	if err := h.repo.Create(c.Request.Context(), fb); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fb)
}

// Mine lists the caller's feedback.
func (h *FeedbackHandler) Mine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.repo.ListByUser(c.Request.Context(), userID, pageOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Report summarises all feedback for administrators.
func (h *FeedbackHandler) Report(c *gin.Context) {
	report, err := h.repo.Report(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type updateFeedbackRequest struct {
	Status        string `json:"status" binding:"required"`
	AdminResponse string `json:"admin_response" binding:"max=5000"`
}

// UpdateStatus moves feedback to a new status with an optional response.
func (h *FeedbackHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "feedback")
	if !ok {
		return
	}
	var req updateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidFeedbackStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of " + strings.Join(models.FeedbackStatuses, ", ")})
		return
	}

	ctx := c.Request.Context()
	if err := h.repo.UpdateStatus(ctx, id, req.Status, strings.TrimSpace(req.AdminResponse)); err != nil {
		respondError(c, err)
		return
	}
	fb, err := h.repo.GetByID(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if fb == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "feedback not found"})
		return
	}
	c.JSON(http.StatusOK, fb)
}
