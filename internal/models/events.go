package models

import "github.com/google/uuid"

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StageUpdate struct {
	RunID    uuid.UUID `json:"run_id"`
	Stage    string    `json:"stage"`
	Step     int       `json:"step"`
	StepName string    `json:"step_name"`
}

type CompletedEvent struct {
	RunID  uuid.UUID `json:"run_id"`
	QuizID uuid.UUID `json:"quiz_id"`
}

type ErrorEvent struct {
	RunID        uuid.UUID `json:"run_id"`
	Stage        string    `json:"stage"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
