// Package pipeline turns a YouTube link into a persisted quiz:
// validate, check duration, download audio, transcribe, generate, sanitize,
// persist. Each stage is its own failure boundary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizly-backend/internal/models"
	"quizly-backend/internal/services"
)

type Stage string

const (
	StageValidating       Stage = "validating"
	StageDurationChecking Stage = "duration_checking"
	StageDownloading      Stage = "downloading"
	StageTranscribing     Stage = "transcribing"
	StageGenerating       Stage = "generating"
	StageSanitizing       Stage = "sanitizing"
	StagePersisting       Stage = "persisting"
)

var stageSteps = []struct {
	stage Stage
	name  string
}{
	{StageValidating, "Validating URL"},
	{StageDurationChecking, "Checking video length"},
	{StageDownloading, "Downloading audio"},
	{StageTranscribing, "Transcribing audio"},
	{StageGenerating, "Generating questions"},
	{StageSanitizing, "Cleaning up model output"},
	{StagePersisting, "Saving quiz"},
}

var stageCodes = map[Stage]string{
	StageDurationChecking: "DURATION_CHECK_FAILED",
	StageDownloading:      "DOWNLOAD_FAILED",
	StageTranscribing:     "TRANSCRIPTION_FAILED",
	StageGenerating:       "GENERATION_FAILED",
	StageSanitizing:       "SANITIZE_FAILED",
}

// StageError is an external-service failure inside one stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Code is the machine readable failure kind, e.g. DOWNLOAD_FAILED.
func (e *StageError) Code() string {
	if code, ok := stageCodes[e.Stage]; ok {
		return code
	}
	return "PIPELINE_FAILED"
}

// PersistenceError covers unusable model output and database failures.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", StagePersisting, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

type VideoSource interface {
	Duration(ctx context.Context, videoURL string) (int, error)
	DownloadAudio(ctx context.Context, videoURL, dir string) (string, error)
}

type CaptionSource interface {
	Captions(ctx context.Context, videoID string) (string, error)
}

type QuizSynthesizer interface {
	SynthesizeQuiz(ctx context.Context, transcript string) (string, error)
}

type QuizStore interface {
	CreateWithQuestions(ctx context.Context, q *models.Quiz, questions []*models.Question) error
}

type Config struct {
	ScratchDir             string
	MaxVideoSeconds        int
	Timeout                time.Duration
	RequireAnswerInOptions bool
}

// Deps are the collaborators of a run. Captions and Publisher are optional.
type Deps struct {
	Video       VideoSource
	Captions    CaptionSource
	Transcriber services.Transcriber
	Synthesizer QuizSynthesizer
	Store       QuizStore
	Publisher   Publisher
}

type Pipeline struct {
	cfg  Config
	deps Deps
}

func New(cfg Config, deps Deps) *Pipeline {
	if deps.Publisher == nil {
		deps.Publisher = noopPublisher{}
	}
	return &Pipeline{cfg: cfg, deps: deps}
}

type run struct {
	id     uuid.UUID
	userID uuid.UUID
	stage  Stage
	pub    Publisher
}

func (r *run) enter(ctx context.Context, stage Stage) {
	r.stage = stage
	for i, s := range stageSteps {
		if s.stage != stage {
			continue
		}
		log.Printf("pipeline %s: [%d/%d] %s", r.id, i+1, len(stageSteps), s.name)
		r.pub.Publish(ctx, r.userID, models.WSMessage{
			Type: "status_update",
			Payload: models.StageUpdate{
				RunID: r.id, Stage: string(stage), Step: i + 1, StepName: s.name,
			},
		})
		return
	}
}

// Run executes every stage for the given owner. Scratch files are removed
// on every exit path.
func (p *Pipeline) Run(ctx context.Context, userID uuid.UUID, rawURL string) (*models.Quiz, error) {
	if userID == uuid.Nil {
		return nil, &services.UnauthorizedError{Message: "Authentication credentials were not provided."}
	}

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	r := &run{id: uuid.New(), userID: userID, pub: p.deps.Publisher}
	start := time.Now()

	quiz, err := p.run(ctx, r, rawURL)
	if err != nil {
		log.Printf("pipeline %s: failed at %s after %s: %v", r.id, r.stage, time.Since(start).Round(time.Millisecond), err)
		r.pub.Publish(context.WithoutCancel(ctx), userID, models.WSMessage{
			Type: "error",
			Payload: models.ErrorEvent{
				RunID: r.id, Stage: string(r.stage), ErrorCode: errorCode(err), ErrorMessage: err.Error(),
			},
		})
		return nil, err
	}

	log.Printf("pipeline %s: quiz %s created in %s", r.id, quiz.ID, time.Since(start).Round(time.Millisecond))
	r.pub.Publish(ctx, userID, models.WSMessage{
		Type:    "completed",
		Payload: models.CompletedEvent{RunID: r.id, QuizID: quiz.ID},
	})
	return quiz, nil
}

func (p *Pipeline) run(ctx context.Context, r *run, rawURL string) (*models.Quiz, error) {
	r.enter(ctx, StageValidating)
	videoURL, videoID, err := services.NormalizeYouTubeURL(rawURL)
	if err != nil {
		return nil, urlError(err)
	}

	r.enter(ctx, StageDurationChecking)
	seconds, err := p.deps.Video.Duration(ctx, videoURL)
	if err != nil {
		if errors.Is(err, services.ErrDurationUnavailable) {
			return nil, urlError(err)
		}
		return nil, &StageError{Stage: StageDurationChecking, Err: err}
	}
	if p.cfg.MaxVideoSeconds > 0 && seconds > p.cfg.MaxVideoSeconds {
		return nil, urlError(&services.VideoTooLongError{MaxSeconds: p.cfg.MaxVideoSeconds})
	}

	wd, err := NewWorkdir(p.cfg.ScratchDir)
	if err != nil {
		return nil, &StageError{Stage: StageDownloading, Err: err}
	}
	defer wd.Cleanup()

	r.enter(ctx, StageDownloading)
	audioPath, err := p.deps.Video.DownloadAudio(ctx, videoURL, wd.Path)
	if err != nil {
		return nil, &StageError{Stage: StageDownloading, Err: err}
	}

	r.enter(ctx, StageTranscribing)
	transcript, err := p.transcribe(ctx, r, audioPath, videoID)
	if err != nil {
		return nil, &StageError{Stage: StageTranscribing, Err: err}
	}
	if err := wd.WriteText(transcriptFile, transcript); err != nil {
		return nil, &StageError{Stage: StageTranscribing, Err: err}
	}

	r.enter(ctx, StageGenerating)
	transcript, err = wd.ReadText(transcriptFile)
	if err != nil {
		return nil, &StageError{Stage: StageGenerating, Err: err}
	}
	generated, err := p.deps.Synthesizer.SynthesizeQuiz(ctx, transcript)
	if err != nil {
		return nil, &StageError{Stage: StageGenerating, Err: err}
	}
	if err := wd.WriteText(generatedFile, generated); err != nil {
		return nil, &StageError{Stage: StageGenerating, Err: err}
	}

	r.enter(ctx, StageSanitizing)
	generated, err = wd.ReadText(generatedFile)
	if err != nil {
		return nil, &StageError{Stage: StageSanitizing, Err: err}
	}
	if err := wd.WriteText(generatedFile, StripCodeFence(generated)); err != nil {
		return nil, &StageError{Stage: StageSanitizing, Err: err}
	}

	r.enter(ctx, StagePersisting)
	sanitized, err := wd.ReadText(generatedFile)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	payload, err := ParsePayload(sanitized, p.cfg.RequireAnswerInOptions)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}

	quiz, questions := payload.Quiz(r.userID, videoURL)
	if err := p.deps.Store.CreateWithQuestions(ctx, quiz, questions); err != nil {
		return nil, &PersistenceError{Err: err}
	}
	return quiz, nil
}

// transcribe runs the configured transcriber, then falls back to published
// captions when enabled. The audio file is deleted either way.
func (p *Pipeline) transcribe(ctx context.Context, r *run, audioPath, videoID string) (string, error) {
	text, err := p.deps.Transcriber.Transcribe(ctx, audioPath)
	os.Remove(audioPath)

	if err == nil && strings.TrimSpace(text) == "" {
		err = services.ErrEmptyTranscript
	}
	if err == nil {
		return text, nil
	}
	if p.deps.Captions == nil {
		return "", err
	}

	log.Printf("pipeline %s: transcription failed (%v), trying captions", r.id, err)
	captions, capErr := p.deps.Captions.Captions(ctx, videoID)
	if capErr != nil {
		return "", fmt.Errorf("%w (captions fallback: %v)", err, capErr)
	}
	if strings.TrimSpace(captions) == "" {
		return "", services.ErrEmptyTranscript
	}
	return captions, nil
}

func urlError(err error) error {
	return &services.ValidationError{Fields: map[string]string{"url": err.Error()}}
}

func errorCode(err error) string {
	var stageErr *StageError
	var persistErr *PersistenceError
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &stageErr):
		return stageErr.Code()
	case errors.As(err, &persistErr):
		return "PERSISTENCE_FAILED"
	case errors.As(err, &validationErr):
		return "VALIDATION_ERROR"
	default:
		return "PIPELINE_FAILED"
	}
}
