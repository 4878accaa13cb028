package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuestionOptionCount is the number of answer options every question carries.
const QuestionOptionCount = 4

var ErrQuestionOptionCount = fmt.Errorf("each question must have exactly %d answer options", QuestionOptionCount)

type Quiz struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"-"`
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	VideoURL    string      `json:"video_url"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Questions   []*Question `json:"questions"`
}

type Question struct {
	ID              uuid.UUID `json:"id"`
	QuestionTitle   string    `json:"question_title"`
	QuestionOptions []string  `json:"question_options"`
	Answer          string    `json:"answer"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Validate enforces the write-time invariants of a question. Repositories
// call it before every insert.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.QuestionTitle) == "" {
		return errors.New("question title is required")
	}
	if len(q.QuestionOptions) != QuestionOptionCount {
		return ErrQuestionOptionCount
	}
	if strings.TrimSpace(q.Answer) == "" {
		return errors.New("answer is required")
	}
	return nil
}

// HasAnswerOption reports whether Answer matches one of the options,
// ignoring surrounding whitespace.
func (q *Question) HasAnswerOption() bool {
	answer := strings.TrimSpace(q.Answer)
	for _, opt := range q.QuestionOptions {
		if strings.TrimSpace(opt) == answer {
			return true
		}
	}
	return false
}

type CreateQuizRequest struct {
	URL string `json:"url"`
}

// UpdateQuizRequest is a partial update; nil fields are left untouched.
type UpdateQuizRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}
