package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/terminal-bench/civicsim/internal/apperr"
	"github.com/terminal-bench/civicsim/internal/middleware"
	"github.com/terminal-bench/civicsim/internal/models"
	"github.com/terminal-bench/civicsim/internal/repository"
)

const testSecret = "handler-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, _, err := middleware.IssueToken(testSecret, user, time.Hour)
	require.NoError(t, err)
	return token
}

func newUser(role models.Role) *models.User {
	return &models.User{ID: uuid.New(), Email: "user-" + uuid.NewString()[:8] + "@example.com", Role: role, IsActive: true}
}

// do sends body as JSON unless it is already a *bytes.Buffer with a preset
// content type in headers.
func do(r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	switch b := body.(type) {
	case nil:
		buf = &bytes.Buffer{}
	case *bytes.Buffer:
		buf = b
	default:
		data, _ := json.Marshal(b)
		buf = bytes.NewBuffer(data)
	}
	req := httptest.NewRequest(method, path, buf)
	if _, raw := body.(*bytes.Buffer); !raw && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func authHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

type fakeUsers struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*models.User
	passwords map[uuid.UUID]string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uuid.UUID]*models.User{}, passwords: map[uuid.UUID]string{}}
}

func (f *fakeUsers) Create(_ context.Context, u *models.User, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return apperr.ErrEmailTaken
		}
	}
	cp := *u
	f.byID[u.ID] = &cp
	f.passwords[u.ID] = password
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) ValidatePassword(u *models.User, password string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.passwords[u.ID] == password
}

func (f *fakeUsers) UpdateLastLogin(context.Context, uuid.UUID) error { return nil }

func (f *fakeUsers) Update(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

type fakeDocs struct {
	mu   sync.Mutex
	docs map[uuid.UUID]models.Document
}

func newFakeDocs() *fakeDocs { return &fakeDocs{docs: map[uuid.UUID]models.Document{}} }

func (f *fakeDocs) Create(_ context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ID] = *doc
	return nil
}

func (f *fakeDocs) UpdateResult(_ context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[doc.ID]; !ok {
		return apperr.ErrNotFound
	}
	f.docs[doc.ID] = *doc
	return nil
}

func (f *fakeDocs) GetForUser(_ context.Context, id, userID uuid.UUID) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.UserID != userID {
		return nil, nil
	}
	return &doc, nil
}

func (f *fakeDocs) ListByUser(_ context.Context, userID uuid.UUID, _ repository.Page) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Document
	for _, d := range f.docs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocs) DeleteForUser(_ context.Context, id, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.UserID != userID {
		return apperr.ErrNotFound
	}
	delete(f.docs, id)
	return nil
}

type fakeSims struct {
	mu   sync.Mutex
	sims map[uuid.UUID]models.Simulation
}

func newFakeSims() *fakeSims { return &fakeSims{sims: map[uuid.UUID]models.Simulation{}} }

func (f *fakeSims) Create(_ context.Context, sim *models.Simulation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sims[sim.ID] = *sim
	return nil
}

func (f *fakeSims) GetForUser(_ context.Context, id, userID uuid.UUID) (*models.Simulation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sim, ok := f.sims[id]
	if !ok || sim.UserID != userID {
		return nil, nil
	}
	return &sim, nil
}

func (f *fakeSims) ListByUser(_ context.Context, userID uuid.UUID, _ repository.Page) ([]models.Simulation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Simulation
	for _, s := range f.sims {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSims) DeleteForUser(_ context.Context, id, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sim, ok := f.sims[id]
	if !ok || sim.UserID != userID {
		return apperr.ErrNotFound
	}
	delete(f.sims, id)
	return nil
}

type fakeFeedback struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.Feedback
}

func newFakeFeedback() *fakeFeedback { return &fakeFeedback{items: map[uuid.UUID]models.Feedback{}} }

func (f *fakeFeedback) Create(_ context.Context, fb *models.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[fb.ID] = *fb
	return nil
}

func (f *fakeFeedback) GetByID(_ context.Context, id uuid.UUID) (*models.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fb, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	return &fb, nil
}

func (f *fakeFeedback) ListByUser(_ context.Context, userID uuid.UUID, _ repository.Page) ([]models.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Feedback
	for _, fb := range f.items {
		if fb.UserID != nil && *fb.UserID == userID {
			out = append(out, fb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out, nil
}

func (f *fakeFeedback) Report(context.Context) (*models.FeedbackReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &models.FeedbackReport{TypeBreakdown: map[string]int{}, StatusCounts: map[string]int{}}
	for _, fb := range f.items {
		r.TotalFeedback++
		r.TypeBreakdown[fb.FeedbackType]++
		r.StatusCounts[fb.Status]++
	}
	return r, nil
}

func (f *fakeFeedback) UpdateStatus(_ context.Context, id uuid.UUID, status, response string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fb, ok := f.items[id]
	if !ok {
		return apperr.ErrNotFound
	}
	fb.Status = status
	if strings.TrimSpace(response) != "" {
		fb.AdminResponse = response
	}
	f.items[id] = fb
	return nil
}
