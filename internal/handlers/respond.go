// Package handlers exposes the services over HTTP with Gin.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/terminal-bench/civicsim/internal/apperr"
	"github.com/terminal-bench/civicsim/internal/middleware"
	"github.com/terminal-bench/civicsim/internal/repository"
	"github.com/terminal-bench/civicsim/pkg/utils"
)

// respondError writes err with the status it maps to. Internal errors are
// logged and replaced by a generic message.
func respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, false
	}
	return userID, true
}

func pathID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + what + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

func pageOf(c *gin.Context) repository.Page {
	skip, limit := utils.ParsePagination(c.Query("skip"), c.Query("limit"), repository.DefaultLimit, repository.MaxLimit)
	return repository.Page{Skip: skip, Limit: limit}
}
