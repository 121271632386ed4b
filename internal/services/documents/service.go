// Package documents runs the document verification and procurement analysis
// flows and keeps each user's document history.
package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/terminal-bench/civicsim/internal/analysis/authenticity"
	"github.com/terminal-bench/civicsim/internal/analysis/procurement"
	"github.com/terminal-bench/civicsim/internal/analysis/randsrc"
	"github.com/terminal-bench/civicsim/internal/apperr"
	"github.com/terminal-bench/civicsim/internal/models"
	"github.com/terminal-bench/civicsim/internal/repository"
	"github.com/terminal-bench/civicsim/internal/services/events"
	"github.com/terminal-bench/civicsim/internal/services/explain"
	"github.com/terminal-bench/civicsim/internal/services/metrics"
	"github.com/terminal-bench/civicsim/internal/services/storage"
	"github.com/terminal-bench/civicsim/internal/services/textextract"
	"github.com/terminal-bench/civicsim/pkg/utils"
)

// MinTextLength is the shortest extracted text worth analysing.
const MinTextLength = 50

// DefaultProcurementType is assumed when a procurement request names none.
const DefaultProcurementType = "contract"

// Repository persists documents.
type Repository interface {
	Create(ctx context.Context, doc *models.Document) error
	UpdateResult(ctx context.Context, doc *models.Document) error
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Document, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page repository.Page) ([]models.Document, error)
	DeleteForUser(ctx context.Context, id, userID uuid.UUID) error
}

// Notifier tells a user that background work finished.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, title, message string, data map[string]any) (models.Notification, error)
}

// Options configures a Service.
type Options struct {
	Repo      Repository
	Storage   *storage.Service
	Scorer    *authenticity.Scorer
	Assessor  *procurement.Assessor
	Explainer *explain.Fallback
	Events    events.Publisher
	Notifier  Notifier
	Metrics   *metrics.Recorder
	Logger    *slog.Logger

	Seed         int64
	MaxFileSize  int64
	AllowedTypes func(contentType string) bool
}

// Service handles document operations
type Service struct {
	opts Options
	now  func() time.Time
}

// NewService creates a document service. Nil collaborators are replaced by
// no-op ones.
func NewService(opts Options) *Service {
	if opts.Scorer == nil {
		opts.Scorer = authenticity.NewScorer()
	}
	if opts.Assessor == nil {
		opts.Assessor = procurement.NewAssessor(opts.Seed, nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Explainer == nil {
		opts.Explainer = explain.WithFallback(nil, opts.Logger, opts.Metrics)
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if opts.AllowedTypes == nil {
		opts.AllowedTypes = func(string) bool { return true }
	}
	return &Service{opts: opts, now: time.Now}
}

// Upload is a file submitted for analysis.
type Upload struct {
	Filename     string
	ContentType  string
	DocumentType string
	Data         []byte
}

// Verification is the result of verifying one document.
type Verification struct {
	Document      *models.Document    `json:"document"`
	Analysis      authenticity.Result `json:"analysis"`
	AIExplanation string              `json:"ai_explanation"`
	AIGenerated   bool                `json:"ai_generated"`
}

// contentType sniffs data and falls back to the declared type when the
// content is not recognised.
func contentType(declared string, data []byte) string {
	detected := mimetype.Detect(data)
	if detected.Is("application/octet-stream") && declared != "" {
		return declared
	}
	return detected.String()
}

func (s *Service) validateFile(up *Upload) error {
	if s.opts.MaxFileSize > 0 && int64(len(up.Data)) > s.opts.MaxFileSize {
		return fmt.Errorf("%w: limit is %d bytes", apperr.ErrFileTooLarge, s.opts.MaxFileSize)
	}
	up.ContentType = contentType(up.ContentType, up.Data)
	if !s.opts.AllowedTypes(up.ContentType) {
		return fmt.Errorf("%w: %s", apperr.ErrUnsupportedType, up.ContentType)
	}
	return nil
}

// Verify stores the upload, records it and scores its authenticity. A
// document whose text cannot be analysed stays recorded as failed.
func (s *Service) Verify(ctx context.Context, userID uuid.UUID, up Upload) (*Verification, error) {
	start := s.now()

	if !models.ValidDocumentType(up.DocumentType) {
		return nil, fmt.Errorf("%w: document_type must be one of %s", apperr.ErrInvalidInput, strings.Join(models.DocumentTypes, ", "))
	}
	if err := s.validateFile(&up); err != nil {
		return nil, err
	}

	obj, err := s.opts.Storage.Upload(ctx, userID, up.Data, up.ContentType)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:               uuid.New(),
		UserID:           userID,
		Filename:         utils.SanitizeFilename(up.Filename),
		FileType:         up.ContentType,
		FileSize:         int64(len(up.Data)),
		DocumentType:     up.DocumentType,
		StorageKey:       obj.Key,
		Checksum:         obj.Checksum,
		Encrypted:        obj.Encrypted,
		ProcessingStatus: models.StatusProcessing,
		CreatedAt:        start.UTC(),
		UpdatedAt:        start.UTC(),
	}
	if err := s.opts.Repo.Create(ctx, doc); err != nil {
		if rmErr := s.opts.Storage.Delete(ctx, obj.Key); rmErr != nil {
			s.opts.Logger.Warn("failed to remove orphaned object", "key", obj.Key, "error", rmErr)
		}
		return nil, err
	}

	text, err := textextract.Extract(up.Data, up.ContentType)
	if err == nil && len(strings.TrimSpace(text)) < MinTextLength {
		err = apperr.ErrTextTooShort
	}
	if err != nil {
		s.fail(ctx, doc, start, err)
		return nil, err
	}

	res := s.opts.Scorer.Analyze(text, up.DocumentType, randsrc.ForInput(s.opts.Seed, text))
	ai, generated := s.opts.Explainer.Authenticity(ctx, text, up.DocumentType, res.Explanation)

	analysis, err := json.Marshal(res)
	if err != nil {
		s.fail(ctx, doc, start, err)
		return nil, fmt.Errorf("failed to encode analysis: %w", err)
	}
	confidence := res.ConfidenceScore
	doc.Verdict = string(res.Verdict)
	doc.ConfidenceScore = &confidence
	doc.AIAnalysis = ai
	doc.Analysis = analysis
	doc.MetadataCheck = models.MetadataReviewNeeded
	if res.Verdict == authenticity.VerdictVerified {
		doc.MetadataCheck = models.MetadataPassed
	}
	doc.ProcessingStatus = models.StatusCompleted
	doc.ProcessingTime = utils.Seconds(s.now().Sub(start))

	if err := s.opts.Repo.UpdateResult(ctx, doc); err != nil {
		return nil, err
	}

	s.opts.Metrics.DocumentAnalyzed(ctx, doc.Verdict)
	s.opts.Metrics.Observe(ctx, "document", doc.ProcessingTime)
	s.completed(ctx, events.SubjectDocumentAnalyzed, doc.ID, userID, models.NotifyDocumentAnalyzed,
		"Document analyzed",
		fmt.Sprintf("%s was classified as %s (%.1f%% confidence).", doc.Filename, doc.Verdict, confidence),
		map[string]any{"document_id": doc.ID, "verdict": doc.Verdict, "confidence_score": confidence},
	)

	return &Verification{Document: doc, Analysis: res, AIExplanation: ai, AIGenerated: generated}, nil
}

func (s *Service) fail(ctx context.Context, doc *models.Document, start time.Time, cause error) {
	doc.ProcessingStatus = models.StatusFailed
	doc.ErrorMessage = cause.Error()
	doc.ProcessingTime = utils.Seconds(s.now().Sub(start))
	if err := s.opts.Repo.UpdateResult(ctx, doc); err != nil {
		s.opts.Logger.Error("failed to record document failure", "document_id", doc.ID, "error", err)
	}
}

// TextAnalysis is the authenticity analysis of submitted text.
type TextAnalysis struct {
	Analysis      authenticity.Result `json:"analysis"`
	AIExplanation string              `json:"ai_explanation"`
	AIGenerated   bool                `json:"ai_generated"`
	DocumentType  string              `json:"document_type"`
}

// AnalyzeText scores text without storing anything.
func (s *Service) AnalyzeText(ctx context.Context, text, documentType string) (*TextAnalysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", apperr.ErrInvalidInput)
	}
	if documentType != "" && !models.ValidDocumentType(documentType) {
		return nil, fmt.Errorf("%w: unknown document_type %q", apperr.ErrInvalidInput, documentType)
	}

	res := s.opts.Scorer.Analyze(text, documentType, randsrc.ForInput(s.opts.Seed, text))
	ai, generated := s.opts.Explainer.Authenticity(ctx, text, documentType, res.Explanation)
	s.opts.Metrics.DocumentAnalyzed(ctx, string(res.Verdict))
	return &TextAnalysis{Analysis: res, AIExplanation: ai, AIGenerated: generated, DocumentType: documentType}, nil
}

// Procurement assesses an uploaded procurement document for corruption risk.
func (s *Service) Procurement(ctx context.Context, userID uuid.UUID, up Upload) (*procurement.Report, error) {
	if err := s.validateFile(&up); err != nil {
		return nil, err
	}
	text, err := textextract.Extract(up.Data, up.ContentType)
	if err != nil {
		return nil, err
	}
	if text == textextract.ImagePlaceholder || len(strings.TrimSpace(text)) < MinTextLength {
		return nil, apperr.ErrTextTooShort
	}
	return s.ProcurementText(ctx, userID, text, up.DocumentType)
}

// ProcurementText assesses procurement text for corruption risk.
func (s *Service) ProcurementText(ctx context.Context, userID uuid.UUID, text, documentType string) (*procurement.Report, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", apperr.ErrInvalidInput)
	}
	if documentType == "" {
		documentType = DefaultProcurementType
	}

	start := s.now()
	report := s.opts.Assessor.Analyze(text, documentType)
	a := report.Document.Assessment

	s.opts.Metrics.ProcurementAssessed(ctx, string(a.RiskLevel))
	s.opts.Metrics.Observe(ctx, "procurement", utils.Seconds(s.now().Sub(start)))
	s.completed(ctx, events.SubjectProcurementAssessed, uuid.New(), userID, models.NotifyProcurementAssessed,
		"Procurement analysis complete",
		fmt.Sprintf("Risk score %d (%s) with %d red flags.", a.RiskScore, a.RiskLevel, len(a.RedFlags)),
		map[string]any{"risk_score": a.RiskScore, "risk_level": a.RiskLevel, "red_flags": len(a.RedFlags)},
	)
	return &report, nil
}

// MinistryOverview returns the corruption-risk overview of a ministry.
func (s *Service) MinistryOverview(ministry string) procurement.MinistryOverview {
	return procurement.OverviewFor(ministry, s.opts.Seed)
}

// completed publishes the completion event and notifies the user. Neither
// failure affects the caller.
func (s *Service) completed(ctx context.Context, subject string, aggregateID, userID uuid.UUID, kind, title, message string, data map[string]any) {
	ev, err := events.NewEvent(subject, aggregateID, userID, data)
	if err == nil {
		err = s.opts.Events.Publish(ctx, ev)
	}
	if err != nil {
		s.opts.Logger.Warn("failed to publish event", "subject", subject, "error", err)
	}

	if s.opts.Notifier != nil {
		if _, err := s.opts.Notifier.Notify(ctx, userID, kind, title, message, data); err != nil {
			s.opts.Logger.Warn("failed to notify user", "user_id", userID, "error", err)
		}
	}
}

// List returns the user's documents, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, page repository.Page) ([]models.Document, error) {
	return s.opts.Repo.ListByUser(ctx, userID, page.Normalize())
}

// Get returns one of the user's documents.
func (s *Service) Get(ctx context.Context, id, userID uuid.UUID) (*models.Document, error) {
	doc, err := s.opts.Repo.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperr.ErrNotFound
	}
	return doc, nil
}

// Delete removes the stored object and then the record.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	doc, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	if doc.StorageKey != "" {
		if err := s.opts.Storage.Delete(ctx, doc.StorageKey); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
	}
	return s.opts.Repo.DeleteForUser(ctx, id, userID)
}
