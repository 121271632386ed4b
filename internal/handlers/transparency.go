package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/terminal-bench/civicsim/internal/services/transparency"
)

const defaultSearchLimit = 10

// TransparencyHandler serves the public budget data and the dashboard.
type TransparencyHandler struct {
	svc *transparency.Service
}

// NewTransparencyHandler creates a new transparency handler
func NewTransparencyHandler(svc *transparency.Service) *TransparencyHandler {
	return &TransparencyHandler{svc: svc}
}

// BudgetOverview returns the current budget data with its transparency score.
func (h *TransparencyHandler) BudgetOverview(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Overview(c.Request.Context()))
}

// MinistrySpending returns spending per ministry, optionally narrowed by
// ?ministry=.
func (h *TransparencyHandler) MinistrySpending(c *gin.Context) {
	ministry := strings.TrimSpace(c.Query("ministry"))
	c.JSON(http.StatusOK, gin.H{
		"ministry": ministry,
		"spending": transparency.SpendingFor(ministry),
	})
}

// SearchDatasets searches the open-data catalogue.
func (h *TransparencyHandler) SearchDatasets(c *gin.Context) {
	query := c.DefaultQuery("query", "budget")
	limit := defaultSearchLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > transparency.MaxSearchLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and " + strconv.Itoa(transparency.MaxSearchLimit)})
			return
		}
		limit = n
	}

	results := transparency.SearchDatasets(query, limit)
	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": results,
		"total":   len(results),
	})
}

// Metrics returns the comprehensive transparency metrics.
func (h *TransparencyHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Metrics())
}

// Ministries lists the major ministries.
func (h *TransparencyHandler) Ministries(c *gin.Context) {
	ministries := transparency.MajorMinistries()
	c.JSON(http.StatusOK, gin.H{"ministries": ministries, "total": len(ministries)})
}

// BudgetData returns the raw sector budget data for the dashboard.
func (h *TransparencyHandler) BudgetData(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.BudgetData(c.Request.Context()))
}

// Scores returns per-sector transparency scores.
func (h *TransparencyHandler) Scores(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sectors": h.svc.Scores(c.Request.Context())})
}

// SectorBreakdown returns the program breakdown of one sector.
func (h *TransparencyHandler) SectorBreakdown(c *gin.Context) {
	b, err := h.svc.Breakdown(c.Request.Context(), c.Param("sector"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
