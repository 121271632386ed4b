package documents

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terminal-bench/civicsim/internal/analysis/authenticity"
	"github.com/terminal-bench/civicsim/internal/analysis/procurement"
	"github.com/terminal-bench/civicsim/internal/apperr"
	"github.com/terminal-bench/civicsim/internal/config"
	"github.com/terminal-bench/civicsim/internal/logging"
	"github.com/terminal-bench/civicsim/internal/models"
	"github.com/terminal-bench/civicsim/internal/repository"
	"github.com/terminal-bench/civicsim/internal/services/events"
	"github.com/terminal-bench/civicsim/internal/services/notification"
	"github.com/terminal-bench/civicsim/internal/services/storage"
)

const notice = "Government of India, Ministry of Health and Family Welfare\n" +
	"Subject: Public notice on vaccination camps dated 12/08/2024\n" +
	"Reference: Circular No. 44/2024. Dear Citizens, the Department announces free vaccination " +
	"camps across all districts from 1 September. Section 2 lists the eligible age groups. " +
	"Sincerely, Director of Public Health"

const tender = "Ministry of Rural Development\nVendor: Apex Infra Solutions Pvt Ltd\n" +
	"Contract value: Rs. 12 crore\nContract type: works\n" +
	"Awarded as an urgent single source procurement under exceptional circumstances."

type fakeRepo struct {
	mu   sync.Mutex
	docs map[uuid.UUID]models.Document
	fail error
}

func newFakeRepo() *fakeRepo { return &fakeRepo{docs: map[uuid.UUID]models.Document{}} }

func (r *fakeRepo) Create(_ context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.docs[doc.ID] = *doc
	return nil
}

func (r *fakeRepo) UpdateResult(_ context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; !ok {
		return apperr.ErrNotFound
	}
	r.docs[doc.ID] = *doc
	return nil
}

func (r *fakeRepo) GetForUser(_ context.Context, id, userID uuid.UUID) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.UserID != userID {
		return nil, nil
	}
	return &doc, nil
}

func (r *fakeRepo) ListByUser(_ context.Context, userID uuid.UUID, page repository.Page) ([]models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Document
	for _, d := range r.docs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	if page.Skip >= len(out) {
		return []models.Document{}, nil
	}
	out = out[page.Skip:]
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func (r *fakeRepo) DeleteForUser(_ context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.docs[id]; !ok || d.UserID != userID {
		return apperr.ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

type fixture struct {
	svc      *Service
	repo     *fakeRepo
	backend  *storage.MemoryBackend
	events   *events.Memory
	notifier *notification.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{AllowedFileTypes: []string{"application/pdf", "text/plain", "image/png", "image/jpeg"}}
	f := &fixture{
		repo:     newFakeRepo(),
		backend:  storage.NewMemoryBackend(),
		events:   &events.Memory{},
		notifier: notification.NewService(notification.NewMemoryStore(), logging.Discard()),
	}
	f.svc = NewService(Options{
		Repo:         f.repo,
		Storage:      storage.NewService(f.backend, nil),
		Events:       f.events,
		Notifier:     f.notifier,
		Logger:       logging.Discard(),
		Seed:         7,
		MaxFileSize:  1024,
		AllowedTypes: cfg.FileTypeAllowed,
	})
	return f
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()

	t.Run("should store, score and record a document", func(t *testing.T) {
		f := newFixture(t)
		v, err := f.svc.Verify(ctx, user, Upload{Filename: "notice.txt", ContentType: "text/plain", DocumentType: models.DocPublicNotice, Data: []byte(notice)})
		require.NoError(t, err)

		assert.Equal(t, authenticity.VerdictVerified, v.Analysis.Verdict)
		assert.Equal(t, models.StatusCompleted, v.Document.ProcessingStatus)
		assert.Equal(t, models.MetadataPassed, v.Document.MetadataCheck)
		assert.Equal(t, v.Analysis.Explanation, v.AIExplanation)
		assert.False(t, v.AIGenerated)
		require.NotNil(t, v.Document.ConfidenceScore)
		assert.Equal(t, v.Analysis.ConfidenceScore, *v.Document.ConfidenceScore)
		assert.Equal(t, 1, f.backend.Len())

		stored, err := f.svc.Get(ctx, v.Document.ID, user)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, stored.ProcessingStatus)
		assert.NotEmpty(t, stored.Analysis)

		require.Len(t, f.events.Events(), 1)
		assert.Equal(t, events.SubjectDocumentAnalyzed, f.events.Events()[0].Type)
		notes, err := f.notifier.List(ctx, user, 10)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, models.NotifyDocumentAnalyzed, notes[0].Type)
	})

	t.Run("should reproduce the same verdict for the same text", func(t *testing.T) {
		f := newFixture(t)
		up := Upload{Filename: "a.txt", ContentType: "text/plain", DocumentType: models.DocPublicNotice, Data: []byte(notice)}
		a, err := f.svc.Verify(ctx, user, up)
		require.NoError(t, err)
		b, err := f.svc.Verify(ctx, user, up)
		require.NoError(t, err)
		assert.Equal(t, a.Analysis, b.Analysis)
	})

	t.Run("should reject an unknown document type", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Verify(ctx, user, Upload{ContentType: "text/plain", DocumentType: "memo", Data: []byte(notice)})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		assert.Zero(t, f.backend.Len())
	})

	t.Run("should reject large files", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Verify(ctx, user, Upload{ContentType: "text/plain", DocumentType: models.DocPublicNotice, Data: []byte(strings.Repeat("a", 2048))})
		assert.ErrorIs(t, err, apperr.ErrFileTooLarge)
	})

	t.Run("should reject disallowed content", func(t *testing.T) {
		f := newFixture(t)
		zip := []byte("PK\x03\x04\x14\x00\x00\x00\x08\x00")
		_, err := f.svc.Verify(ctx, user, Upload{ContentType: "text/plain", DocumentType: models.DocPublicNotice, Data: zip})
		assert.ErrorIs(t, err, apperr.ErrUnsupportedType)
	})

	t.Run("should record short documents as failed", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Verify(ctx, user, Upload{Filename: "short.txt", ContentType: "text/plain", DocumentType: models.DocPublicNotice, Data: []byte("too short")})
		assert.ErrorIs(t, err, apperr.ErrTextTooShort)

		docs, err := f.svc.List(ctx, user, repository.Page{})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, models.StatusFailed, docs[0].ProcessingStatus)
		assert.Equal(t, apperr.ErrTextTooShort.Error(), docs[0].ErrorMessage)
		assert.Empty(t, f.events.Events())
	})

	t.Run("should remove the object when the record cannot be created", func(t *testing.T) {
		f := newFixture(t)
		f.repo.fail = errors.New("db down")
		_, err := f.svc.Verify(ctx, user, Upload{ContentType: "text/plain", DocumentType: models.DocPublicNotice, Data: []byte(notice)})
		assert.Error(t, err)
		assert.Zero(t, f.backend.Len())
	})
}

func TestAnalyzeText(t *testing.T) {
	f := newFixture(t)

	t.Run("should analyse text without storing it", func(t *testing.T) {
		res, err := f.svc.AnalyzeText(context.Background(), notice, models.DocPublicNotice)
		require.NoError(t, err)
		assert.Equal(t, authenticity.VerdictVerified, res.Analysis.Verdict)
		assert.Zero(t, f.backend.Len())
	})

	t.Run("should require text", func(t *testing.T) {
		_, err := f.svc.AnalyzeText(context.Background(), "   ", "")
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	})

	t.Run("should reject unknown document types", func(t *testing.T) {
		_, err := f.svc.AnalyzeText(context.Background(), notice, "memo")
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	})
}

func TestProcurement(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()

	t.Run("should assess procurement text", func(t *testing.T) {
		f := newFixture(t)
		report, err := f.svc.ProcurementText(ctx, user, tender, "")
		require.NoError(t, err)
		assert.Equal(t, DefaultProcurementType, report.Document.DocumentType)
		assert.Greater(t, report.Document.RiskScore, procurement.BaseScore)
		assert.NotEmpty(t, report.Document.RedFlags)
		require.Len(t, f.events.Events(), 1)
		assert.Equal(t, events.SubjectProcurementAssessed, f.events.Events()[0].Type)
	})

	t.Run("should assess an uploaded file the same way", func(t *testing.T) {
		f := newFixture(t)
		fromFile, err := f.svc.Procurement(ctx, user, Upload{ContentType: "text/plain", DocumentType: "tender", Data: []byte(tender)})
		require.NoError(t, err)
		fromText, err := f.svc.ProcurementText(ctx, user, tender, "tender")
		require.NoError(t, err)
		assert.Equal(t, fromText.Document, fromFile.Document)
	})

	t.Run("should reject image uploads that have no extractable text", func(t *testing.T) {
		f := newFixture(t)
		jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
		report, err := f.svc.Procurement(ctx, user, Upload{Filename: "scan.jpg", ContentType: "image/jpeg", Data: jpeg})
		assert.ErrorIs(t, err, apperr.ErrTextTooShort)
		assert.Nil(t, report)
		assert.Empty(t, f.events.Events())
	})

	t.Run("should reject uploads too short to assess", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Procurement(ctx, user, Upload{ContentType: "text/plain", Data: []byte("Vendor: X")})
		assert.ErrorIs(t, err, apperr.ErrTextTooShort)
	})

	t.Run("should require text", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ProcurementText(ctx, user, "", "")
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	})

	t.Run("should give stable ministry overviews", func(t *testing.T) {
		f := newFixture(t)
		assert.Equal(t, f.svc.MinistryOverview("Railways"), f.svc.MinistryOverview("railways "))
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, other := uuid.New(), uuid.New()

	v, err := f.svc.Verify(ctx, owner, Upload{Filename: "n.txt", ContentType: "text/plain", DocumentType: models.DocPublicNotice, Data: []byte(notice)})
	require.NoError(t, err)

	t.Run("should scope reads to the owner", func(t *testing.T) {
		_, err := f.svc.Get(ctx, v.Document.ID, other)
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		docs, err := f.svc.List(ctx, other, repository.Page{})
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("should not let others delete", func(t *testing.T) {
		assert.ErrorIs(t, f.svc.Delete(ctx, v.Document.ID, other), apperr.ErrNotFound)
		assert.Equal(t, 1, f.backend.Len())
	})

	t.Run("should delete the object and the record", func(t *testing.T) {
		require.NoError(t, f.svc.Delete(ctx, v.Document.ID, owner))
		assert.Zero(t, f.backend.Len())
		_, err := f.svc.Get(ctx, v.Document.ID, owner)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}
