package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"quizly-backend/internal/middleware"
	"quizly-backend/internal/models"
	"quizly-backend/internal/pipeline"
	"quizly-backend/internal/services"
)

type stubQuizRepo struct {
	quizzes map[uuid.UUID]*models.Quiz
	updated bool
	deleted bool
}

func newStubQuizRepo(quizzes ...*models.Quiz) *stubQuizRepo {
	repo := &stubQuizRepo{quizzes: map[uuid.UUID]*models.Quiz{}}
	for _, q := range quizzes {
		repo.quizzes[q.ID] = q
	}
	return repo
}

func (s *stubQuizRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Quiz, error) {
	q, ok := s.quizzes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *q
	return &copied, nil
}

func (s *stubQuizRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Quiz, error) {
	out := make([]*models.Quiz, 0)
	for _, q := range s.quizzes {
		if q.UserID == userID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *stubQuizRepo) UpdateDetails(ctx context.Context, id uuid.UUID, title, description *string) error {
	s.updated = true
	q := s.quizzes[id]
	if title != nil {
		q.Title = *title
	}
	if description != nil {
		q.Description = description
	}
	return nil
}

func (s *stubQuizRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted = true
	delete(s.quizzes, id)
	return nil
}

type stubGenerator struct {
	quiz   *models.Quiz
	err    error
	gotURL string
	gotID  uuid.UUID
}

func (s *stubGenerator) Run(ctx context.Context, userID uuid.UUID, rawURL string) (*models.Quiz, error) {
	s.gotURL = rawURL
	s.gotID = userID
	return s.quiz, s.err
}

func sampleQuiz(owner uuid.UUID) *models.Quiz {
	desc := "Original description"
	return &models.Quiz{
		ID:          uuid.New(),
		UserID:      owner,
		Title:       "Original title",
		Description: &desc,
		VideoURL:    "https://www.youtube.com/watch?v=abc123",
		Questions: []*models.Question{
			{ID: uuid.New(), QuestionTitle: "Q1", QuestionOptions: []string{"a", "b", "c", "d"}, Answer: "a"},
		},
	}
}

func quizRequest(method, id string, body []byte, userID uuid.UUID) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)

	req := httptest.NewRequest(method, "/api/v1/quizzes/"+id, bytes.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
	return req
}

func TestQuizHandler_NonOwnerIsForbidden(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()
	quiz := sampleQuiz(owner)
	repo := newStubQuizRepo(quiz)
	h := &QuizHandler{quizRepo: repo}

	tests := []struct {
		name    string
		method  string
		body    []byte
		handler http.HandlerFunc
	}{
		{name: "get", method: http.MethodGet, handler: h.Get},
		{name: "patch", method: http.MethodPatch, body: []byte(`{"title":"Hijacked"}`), handler: h.Update},
		{name: "delete", method: http.MethodDelete, handler: h.Delete},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tc.handler(rr, quizRequest(tc.method, quiz.ID.String(), tc.body, other))

			if rr.Code != http.StatusForbidden {
				t.Fatalf("expected status %d, got %d", http.StatusForbidden, rr.Code)
			}
		})
	}

	if repo.updated || repo.deleted {
		t.Fatalf("non-owner must not modify the quiz")
	}
}

func TestQuizHandler_MissingQuizIsNotFound(t *testing.T) {
	h := &QuizHandler{quizRepo: newStubQuizRepo()}

	rr := httptest.NewRecorder()
	h.Get(rr, quizRequest(http.MethodGet, uuid.NewString(), nil, uuid.New()))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Get(rr, quizRequest(http.MethodGet, "not-a-uuid", nil, uuid.New()))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestQuizHandler_OwnerPatchOnlyTouchesTitleAndDescription(t *testing.T) {
	owner := uuid.New()
	quiz := sampleQuiz(owner)
	repo := newStubQuizRepo(quiz)
	h := &QuizHandler{quizRepo: repo}

	body := []byte(`{"title":"New title","video_url":"https://evil.example","questions":[]}`)
	rr := httptest.NewRecorder()
	h.Update(rr, quizRequest(http.MethodPatch, quiz.ID.String(), body, owner))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d body=%s", http.StatusOK, rr.Code, rr.Body.String())
	}

	var got models.Quiz
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Title != "New title" {
		t.Fatalf("expected title to change, got %q", got.Title)
	}
	if got.Description == nil || *got.Description != "Original description" {
		t.Fatalf("description should be untouched, got %v", got.Description)
	}
	if got.VideoURL != "https://www.youtube.com/watch?v=abc123" {
		t.Fatalf("video_url must not change, got %q", got.VideoURL)
	}
	if len(got.Questions) != 1 || got.Questions[0].QuestionTitle != "Q1" {
		t.Fatalf("questions must not change, got %+v", got.Questions)
	}
}

func TestQuizHandler_PatchValidation(t *testing.T) {
	owner := uuid.New()
	quiz := sampleQuiz(owner)
	repo := newStubQuizRepo(quiz)
	h := &QuizHandler{quizRepo: repo}

	longTitle := `{"title":"` + strings.Repeat("a", maxTitleLength+1) + `"}`
	for _, body := range []string{`{}`, `{"title":"   "}`, longTitle} {
		rr := httptest.NewRecorder()
		h.Update(rr, quizRequest(http.MethodPatch, quiz.ID.String(), []byte(body), owner))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %.40s: expected 400, got %d", body, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), `"title"`) {
			t.Fatalf("body %.40s: expected a title field error, got %s", body, rr.Body.String())
		}
	}
	if repo.updated {
		t.Fatal("invalid patches must not reach the repository")
	}
}

func TestQuizHandler_OwnerDeleteReturnsNoContent(t *testing.T) {
	owner := uuid.New()
	quiz := sampleQuiz(owner)
	repo := newStubQuizRepo(quiz)
	h := &QuizHandler{quizRepo: repo}

	rr := httptest.NewRecorder()
	h.Delete(rr, quizRequest(http.MethodDelete, quiz.ID.String(), nil, owner))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
	if !repo.deleted {
		t.Fatal("expected delete to reach the repository")
	}
}

func TestQuizHandler_ListOnlyReturnsOwnQuizzes(t *testing.T) {
	owner := uuid.New()
	repo := newStubQuizRepo(sampleQuiz(owner), sampleQuiz(uuid.New()))
	h := &QuizHandler{quizRepo: repo}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quizzes", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, owner))
	rr := httptest.NewRecorder()
	h.List(rr, req)

	var payload struct {
		Quizzes []models.Quiz `json:"quizzes"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(payload.Quizzes) != 1 {
		t.Fatalf("expected 1 quiz, got %d", len(payload.Quizzes))
	}
}

func createRequest(body string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quizzes", strings.NewReader(body))
	return req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
}

func TestQuizHandler_Create(t *testing.T) {
	owner := uuid.New()
	gen := &stubGenerator{quiz: sampleQuiz(owner)}
	h := &QuizHandler{generator: gen}

	rr := httptest.NewRecorder()
	h.Create(rr, createRequest(`{"url":"https://youtu.be/abc123"}`, owner))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}
	if gen.gotURL != "https://youtu.be/abc123" || gen.gotID != owner {
		t.Fatalf("generator called with url=%q user=%s", gen.gotURL, gen.gotID)
	}

	rr = httptest.NewRecorder()
	h.Create(rr, createRequest(`{}`, owner))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing url, got %d", rr.Code)
	}
}

func TestQuizHandler_CreateMapsPipelineErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		contains string
	}{
		{
			name:     "too long",
			err:      &services.ValidationError{Fields: map[string]string{"url": services.ErrVideoTooLong.Error()}},
			status:   http.StatusBadRequest,
			code:     "VALIDATION_ERROR",
			contains: "Validation failed",
		},
		{
			name:     "download failed",
			err:      &pipeline.StageError{Stage: pipeline.StageDownloading, Err: errors.New("403")},
			status:   http.StatusInternalServerError,
			code:     "PIPELINE_FAILED",
			contains: "downloading: 403",
		},
		{
			name:     "bad model output",
			err:      &pipeline.PersistenceError{Err: pipeline.ErrMalformedOutput},
			status:   http.StatusInternalServerError,
			code:     "PERSISTENCE_FAILED",
			contains: "persisting:",
		},
		{
			name:     "no principal",
			err:      &services.UnauthorizedError{Message: "Authentication credentials were not provided."},
			status:   http.StatusUnauthorized,
			code:     "UNAUTHORIZED",
			contains: "credentials",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := &QuizHandler{generator: &stubGenerator{err: tc.err}}
			rr := httptest.NewRecorder()
			h.Create(rr, createRequest(`{"url":"https://youtu.be/abc123"}`, uuid.New()))

			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
			var resp models.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Error.Code != tc.code || !strings.Contains(resp.Error.Message, tc.contains) {
				t.Fatalf("unexpected error body %+v", resp.Error)
			}
		})
	}
}
