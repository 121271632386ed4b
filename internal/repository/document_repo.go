package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/terminal-bench/civicsim/internal/models"
)

const documentColumns = `id, user_id, filename, file_type, file_size, document_type, storage_key, checksum,
	encrypted, verdict, confidence_score, ai_analysis, analysis, metadata_check, processing_status,
	processing_time, error_message, created_at, updated_at`

// DocumentRepository stores uploaded documents and their analysis.
type DocumentRepository struct {
	db *sql.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a document record.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		doc.ID, doc.UserID, doc.Filename, doc.FileType, doc.FileSize, doc.DocumentType,
		doc.StorageKey, doc.Checksum, doc.Encrypted, doc.Verdict, doc.ConfidenceScore,
		doc.AIAnalysis, nullJSON(doc.Analysis), doc.MetadataCheck, doc.ProcessingStatus,
		doc.ProcessingTime, doc.ErrorMessage, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// UpdateResult records the outcome of processing a document.
func (r *DocumentRepository) UpdateResult(ctx context.Context, doc *models.Document) error {
	doc.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE documents SET verdict = $1, confidence_score = $2, ai_analysis = $3, analysis = $4,
		 metadata_check = $5, processing_status = $6, processing_time = $7, error_message = $8, updated_at = $9
		 WHERE id = $10`,
		doc.Verdict, doc.ConfidenceScore, doc.AIAnalysis, nullJSON(doc.Analysis), doc.MetadataCheck,
		doc.ProcessingStatus, doc.ProcessingTime, doc.ErrorMessage, doc.UpdatedAt, doc.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return expectRow(res)
}

// GetForUser returns the document only if userID owns it.
func (r *DocumentRepository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 AND user_id = $2`, id, userID)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListByUser returns the user's documents, newest first.
func (r *DocumentRepository) ListByUser(ctx context.Context, userID uuid.UUID, page Page) ([]models.Document, error) {
	page = page.Normalize()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, page.Limit, page.Skip,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// DeleteForUser removes the document if userID owns it.
func (r *DocumentRepository) DeleteForUser(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return expectRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*models.Document, error) {
	var doc models.Document
	var analysis []byte
	err := s.Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.FileType, &doc.FileSize,
		&doc.DocumentType, &doc.StorageKey, &doc.Checksum, &doc.Encrypted, &doc.Verdict,
		&doc.ConfidenceScore, &doc.AIAnalysis, &analysis, &doc.MetadataCheck,
		&doc.ProcessingStatus, &doc.ProcessingTime, &doc.ErrorMessage, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.Analysis = analysis
	return &doc, nil
}

// nullJSON stores an empty document as SQL NULL.
func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
