package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terminal-bench/civicsim/internal/middleware"
	"github.com/terminal-bench/civicsim/internal/models"
)

func feedbackRouter() (*gin.Engine, *fakeFeedback) {
	repo := newFakeFeedback()
	h := NewFeedbackHandler(repo)

	r := gin.New()
	r.POST("/feedback", middleware.OptionalAuth(testSecret), h.Submit)
	api := r.Group("/feedback", middleware.Auth(testSecret))
	api.GET("/mine", h.Mine)
	admin := api.Group("", middleware.RequireRole(models.RoleAdmin))
	admin.GET("/reports", h.Report)
	admin.PUT("/:id", h.UpdateStatus)
	return r, repo
}

func TestFeedbackHandler(t *testing.T) {
	r, repo := feedbackRouter()
	user := newUser(models.RoleCitizen)
	token := tokenFor(t, user)
	adminToken := tokenFor(t, newUser(models.RoleAdmin))

	var feedbackID string

	t.Run("should accept anonymous feedback", func(t *testing.T) {
		w := do(r, "POST", "/feedback", gin.H{"feedback_type": "general", "subject": "Hello", "message": "Nice site"}, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var fb models.Feedback
		decode(t, w, &fb)
		assert.Nil(t, fb.UserID)
		assert.Equal(t, models.FeedbackStatusOpen, fb.Status)
	})

	t.Run("should attach the signed-in user", func(t *testing.T) {
		w := do(r, "POST", "/feedback", gin.H{"feedback_type": "rating", "subject": "Rating", "message": "Good", "rating": 4.5},
			map[string]string{"Authorization": "Bearer " + token, "User-Agent": "civic-test/1.0"})
		require.Equal(t, http.StatusCreated, w.Code)

		var fb models.Feedback
		decode(t, w, &fb)
		require.NotNil(t, fb.UserID)
		assert.Equal(t, user.ID, *fb.UserID)
		assert.Equal(t, "civic-test/1.0", repo.items[fb.ID].UserAgent)
		feedbackID = fb.ID.String()
	})

	t.Run("should validate type and rating", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, do(r, "POST", "/feedback", gin.H{"feedback_type": "rant", "subject": "s", "message": "m"}, nil).Code)
		assert.Equal(t, http.StatusBadRequest, do(r, "POST", "/feedback", gin.H{"feedback_type": "rating", "subject": "s", "message": "m", "rating": 6}, nil).Code)
		assert.Equal(t, http.StatusBadRequest, do(r, "POST", "/feedback", gin.H{"feedback_type": "rating", "subject": "s", "message": "m", "rating": 0}, nil).Code)
		assert.Equal(t, http.StatusBadRequest, do(r, "POST", "/feedback", gin.H{"feedback_type": "bug"}, nil).Code)
	})

	t.Run("should list only the caller's feedback", func(t *testing.T) {
		w := do(r, "GET", "/feedback/mine", nil, authHeader(token))
		require.Equal(t, http.StatusOK, w.Code)
		var list []models.Feedback
		decode(t, w, &list)
		require.Len(t, list, 1)
		assert.Equal(t, "Rating", list[0].Subject)
	})

	t.Run("should restrict administration to admins", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, do(r, "GET", "/feedback/reports", nil, authHeader(token)).Code)
		assert.Equal(t, http.StatusForbidden, do(r, "PUT", "/feedback/"+feedbackID, gin.H{"status": "resolved"}, authHeader(token)).Code)

		w := do(r, "GET", "/feedback/reports", nil, authHeader(adminToken))
		require.Equal(t, http.StatusOK, w.Code)
		var report models.FeedbackReport
		decode(t, w, &report)
		assert.Equal(t, 2, report.TotalFeedback)
	})

	t.Run("should update the status", func(t *testing.T) {
		w := do(r, "PUT", "/feedback/"+feedbackID, gin.H{"status": "resolved", "admin_response": " Thanks! "}, authHeader(adminToken))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var fb models.Feedback
		decode(t, w, &fb)
		assert.Equal(t, "resolved", fb.Status)
		assert.Equal(t, "Thanks!", fb.AdminResponse)

		assert.Equal(t, http.StatusBadRequest, do(r, "PUT", "/feedback/"+feedbackID, gin.H{"status": "archived"}, authHeader(adminToken)).Code)
		assert.Equal(t, http.StatusBadRequest, do(r, "PUT", "/feedback/nope", gin.H{"status": "closed"}, authHeader(adminToken)).Code)
		assert.Equal(t, http.StatusNotFound, do(r, "PUT", "/feedback/"+uuid.NewString(), gin.H{"status": "closed"}, authHeader(adminToken)).Code)
	})
}
