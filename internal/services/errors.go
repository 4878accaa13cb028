package services

import (
	"errors"
	"fmt"
)

// Pipeline input errors.
var (
	ErrInvalidInput        = errors.New("A YouTube URL is required.")
	ErrInvalidDomain       = errors.New("Invalid YouTube URL domain.")
	ErrMissingVideoID      = errors.New("The URL does not contain a video id.")
	ErrDurationUnavailable = errors.New("Could not determine video duration.")
	ErrVideoTooLong        = errors.New("Video is longer than 15 minutes.")
	ErrEmptyTranscript     = errors.New("transcript is empty")
	ErrEmptyGeneration     = errors.New("model returned an empty response")
)

// VideoTooLongError reports the configured limit and matches ErrVideoTooLong.
type VideoTooLongError struct {
	MaxSeconds int
}

func (e *VideoTooLongError) Error() string {
	if e.MaxSeconds%60 == 0 {
		return fmt.Sprintf("Video is longer than %d minutes.", e.MaxSeconds/60)
	}
	return fmt.Sprintf("Video is longer than %d seconds.", e.MaxSeconds)
}

func (e *VideoTooLongError) Is(target error) bool { return target == ErrVideoTooLong }

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }
