package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"quizly-backend/internal/models"
)

var (
	ErrMalformedOutput  = errors.New("generated quiz is not valid JSON")
	ErrIncompleteOutput = errors.New("generated quiz is missing a title or questions")
	ErrInvalidQuestion  = errors.New("generated question is invalid")
)

// QuestionError points at the offending question, 1-based.
type QuestionError struct {
	Index  int
	Reason string
}

func (e *QuestionError) Error() string {
	return fmt.Sprintf("question %d: %s", e.Index, e.Reason)
}

func (e *QuestionError) Unwrap() error { return ErrInvalidQuestion }

// Payload is the JSON document the model is asked to produce.
type Payload struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Questions   []PayloadQuestion `json:"questions"`
}

type PayloadQuestion struct {
	QuestionTitle   string   `json:"question_title"`
	QuestionOptions []string `json:"question_options"`
	Answer          string   `json:"answer"`
}

// ParsePayload decodes and validates sanitized model output. Nothing is
// returned unless every question passes.
func ParsePayload(text string, requireAnswerInOptions bool) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	if strings.TrimSpace(p.Title) == "" || len(p.Questions) == 0 {
		return nil, ErrIncompleteOutput
	}

	for i, q := range p.Questions {
		if err := q.validate(requireAnswerInOptions); err != nil {
			return nil, &QuestionError{Index: i + 1, Reason: err.Error()}
		}
	}
	return &p, nil
}

func (q PayloadQuestion) validate(requireAnswerInOptions bool) error {
	mq := q.model()
	if err := mq.Validate(); err != nil {
		return err
	}
	if requireAnswerInOptions && !mq.HasAnswerOption() {
		return errors.New("answer is not one of the options")
	}
	return nil
}

func (q PayloadQuestion) model() *models.Question {
	return &models.Question{
		QuestionTitle:   strings.TrimSpace(q.QuestionTitle),
		QuestionOptions: q.QuestionOptions,
		Answer:          strings.TrimSpace(q.Answer),
	}
}

// Quiz converts the payload into entities ready for persistence.
func (p *Payload) Quiz(ownerID uuid.UUID, videoURL string) (*models.Quiz, []*models.Question) {
	quiz := &models.Quiz{
		UserID:   ownerID,
		Title:    strings.TrimSpace(p.Title),
		VideoURL: videoURL,
	}
	if d := strings.TrimSpace(p.Description); d != "" {
		quiz.Description = &d
	}

	questions := make([]*models.Question, 0, len(p.Questions))
	for _, q := range p.Questions {
		questions = append(questions, q.model())
	}
	return quiz, questions
}
