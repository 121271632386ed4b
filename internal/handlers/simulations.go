package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/terminal-bench/civicsim/internal/analysis/simulation"
	"github.com/terminal-bench/civicsim/internal/apperr"
	"github.com/terminal-bench/civicsim/internal/services/simulations"
)

// SimulationHandler handles policy simulations.
type SimulationHandler struct {
	svc *simulations.Service
}

// NewSimulationHandler creates a new simulation handler
func NewSimulationHandler(svc *simulations.Service) *SimulationHandler {
	return &SimulationHandler{svc: svc}
}

// Run computes and stores a simulation. Omitted parameters take their
// slider defaults.
func (h *SimulationHandler) Run(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	req := simulations.Request{Parameters: simulation.DefaultParameters()}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.svc.Run(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Scenarios lists the scenarios with their parameter sliders.
func (h *SimulationHandler) Scenarios(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"scenarios":  h.svc.Scenarios(),
		"disclaimer": simulation.CatalogDisclaimer,
	})
}

// List returns the caller's simulations, newest first.
func (h *SimulationHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	sims, err := h.svc.List(c.Request.Context(), userID, pageOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sims)
}

// Get returns one of the caller's simulations.
func (h *SimulationHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "simulation")
	if !ok {
		return
	}

	sim, err := h.svc.Get(c.Request.Context(), id, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "simulation not found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sim)
}

// Delete removes one of the caller's simulations.
func (h *SimulationHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "simulation")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
