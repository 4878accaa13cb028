package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"quizly-backend/internal/middleware"
	"quizly-backend/internal/models"
	"quizly-backend/internal/services"
)

// maxTitleLength matches quizzes.title VARCHAR(255).
const maxTitleLength = 255

type quizStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Quiz, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Quiz, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, title, description *string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type quizGenerator interface {
	Run(ctx context.Context, userID uuid.UUID, rawURL string) (*models.Quiz, error)
}

type QuizHandler struct {
	quizRepo  quizStore
	generator quizGenerator
}

func NewQuizHandler(quizRepo quizStore, generator quizGenerator) *QuizHandler {
	return &QuizHandler{quizRepo: quizRepo, generator: generator}
}

// Create runs the whole generation pipeline inside the request.
func (h *QuizHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"url": "This field is required."}, r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	quiz, err := h.generator.Run(r.Context(), userID, req.URL)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, quiz)
}

func (h *QuizHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	quizzes, err := h.quizRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch quizzes", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"quizzes": quizzes})
}

func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	quiz, ok := h.ownedQuiz(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, quiz)
}

// Update patches title and/or description only.
func (h *QuizHandler) Update(w http.ResponseWriter, r *http.Request) {
	quiz, ok := h.ownedQuiz(w, r)
	if !ok {
		return
	}

	var req models.UpdateQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fieldErrors := make(map[string]string)
	if req.Title == nil && req.Description == nil {
		fieldErrors["title"] = "Provide a title or a description to update."
	}
	if req.Title != nil {
		switch {
		case strings.TrimSpace(*req.Title) == "":
			fieldErrors["title"] = "This field may not be blank."
		case utf8.RuneCountInString(*req.Title) > maxTitleLength:
			fieldErrors["title"] = fmt.Sprintf("Ensure this field has no more than %d characters.", maxTitleLength)
		}
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fieldErrors, r))
		return
	}

	if err := h.quizRepo.UpdateDetails(r.Context(), quiz.ID, req.Title, req.Description); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update quiz", r))
		return
	}

	updated, err := h.quizRepo.GetByID(r.Context(), quiz.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch quiz", r))
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Delete removes the quiz and its question links; question rows stay.
func (h *QuizHandler) Delete(w http.ResponseWriter, r *http.Request) {
	quiz, ok := h.ownedQuiz(w, r)
	if !ok {
		return
	}

	if err := h.quizRepo.Delete(r.Context(), quiz.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete quiz", r))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ownedQuiz loads the {id} quiz and writes 400/404/403 when it cannot be
// used by the caller.
func (h *QuizHandler) ownedQuiz(w http.ResponseWriter, r *http.Request) (*models.Quiz, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid quiz ID", r))
		return nil, false
	}

	quiz, err := h.quizRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = &services.NotFoundError{Message: "Quiz not found."}
		}
		handleServiceError(w, r, err)
		return nil, false
	}

	if quiz.UserID != middleware.GetUserID(r.Context()) {
		handleServiceError(w, r, &services.ForbiddenError{Message: "Only the owner can access this quiz."})
		return nil, false
	}

	return quiz, true
}
