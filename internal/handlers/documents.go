package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/terminal-bench/civicsim/internal/analysis/procurement"
	"github.com/terminal-bench/civicsim/internal/apperr"
	"github.com/terminal-bench/civicsim/internal/services/documents"
	"github.com/terminal-bench/civicsim/internal/services/textextract"
	"github.com/terminal-bench/civicsim/pkg/utils"
)

// DocumentHandler handles document verification and procurement analysis.
type DocumentHandler struct {
	svc         *documents.Service
	maxFileSize int64
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(svc *documents.Service, maxFileSize int64) *DocumentHandler {
	return &DocumentHandler{svc: svc, maxFileSize: maxFileSize}
}

// readUpload reads the multipart "file" field. The body is capped one byte
// past the limit so oversize files are reported as such.
func (h *DocumentHandler) readUpload(c *gin.Context, documentType string) (documents.Upload, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return documents.Upload{}, false
	}
	defer file.Close()

	data, err := textextract.ReadLimited(file, h.maxFileSize)
	if err != nil {
		respondError(c, err)
		return documents.Upload{}, false
	}
	filename := utils.SanitizeFilename(header.Filename)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = utils.GetMimeType(filename)
	}
	return documents.Upload{
		Filename:     filename,
		ContentType:  contentType,
		DocumentType: documentType,
		Data:         data,
	}, true
}

// Verify uploads a document and scores its authenticity.
func (h *DocumentHandler) Verify(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	up, ok := h.readUpload(c, strings.TrimSpace(c.PostForm("document_type")))
	if !ok {
		return
	}

	res, err := h.svc.Verify(c.Request.Context(), userID, up)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type analyzeTextRequest struct {
	Text         string `json:"text" binding:"required"`
	DocumentType string `json:"document_type"`
}

// AnalyzeText scores pasted text without storing it.
func (h *DocumentHandler) AnalyzeText(c *gin.Context) {
	var req analyzeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.svc.AnalyzeText(c.Request.Context(), req.Text, req.DocumentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Procurement assesses an uploaded procurement document.
func (h *DocumentHandler) Procurement(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	up, ok := h.readUpload(c, strings.TrimSpace(c.PostForm("document_type")))
	if !ok {
		return
	}

	report, err := h.svc.Procurement(c.Request.Context(), userID, up)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ProcurementText assesses pasted procurement text.
func (h *DocumentHandler) ProcurementText(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req analyzeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.svc.ProcurementText(c.Request.Context(), userID, req.Text, req.DocumentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// MinistryOverview returns the corruption-risk overview of ?ministry=.
func (h *DocumentHandler) MinistryOverview(c *gin.Context) {
	ministry := strings.TrimSpace(c.Query("ministry"))
	if ministry == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ministry is required"})
		return
	}
	c.JSON(http.StatusOK, h.svc.MinistryOverview(ministry))
}

// RedFlags lists the red flags the procurement scorer can raise.
func (h *DocumentHandler) RedFlags(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"red_flags": procurement.Catalogue()})
}

// List returns the caller's documents, newest first.
func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docs, err := h.svc.List(c.Request.Context(), userID, pageOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// Get returns one of the caller's documents.
func (h *DocumentHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "document")
	if !ok {
		return
	}

	doc, err := h.svc.Get(c.Request.Context(), id, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Delete removes one of the caller's documents and its stored file.
func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "document")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
