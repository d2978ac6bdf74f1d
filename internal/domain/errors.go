package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidPrompt     = errors.New("invalid prompt")
	ErrInvalidPlatform   = errors.New("invalid platform")
	ErrInvalidTransition = errors.New("invalid project transition")
	ErrInvalidAsset      = errors.New("invalid asset")
)

// ErrorCode is the fixed taxonomy surfaced to API callers.
type ErrorCode string

const (
	CodeValidation ErrorCode = "VALIDATION_ERROR"
	CodeService    ErrorCode = "SERVICE_ERROR"
	CodeGeneration ErrorCode = "GENERATION_ERROR"
	CodeSystem     ErrorCode = "SYSTEM_ERROR"
	CodeTimeout    ErrorCode = "TIMEOUT_ERROR"
)

// Retryable reports whether a caller may retry a request that failed with the code.
func (c ErrorCode) Retryable() bool {
	switch c {
	case CodeService, CodeTimeout:
		return true
	default:
		return false
	}
}

// AppError is the error envelope returned by the exposed generate operation.
type AppError struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Retryable bool           `json:"retryable"`
	Timestamp time.Time      `json:"timestamp"`
	Err       error          `json:"-"`
}

// NewAppError builds an AppError stamped at now.
func NewAppError(code ErrorCode, message string, err error, now time.Time) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: code.Retryable(),
		Timestamp: now.UTC(),
		Err:       err,
	}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a key to the error details and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// Component names one of the three generation kinds.
type Component string

const (
	ComponentImage Component = "image"
	ComponentVideo Component = "video"
	ComponentText  Component = "text"
)

// Components lists every component in the fixed reporting order.
var Components = []Component{ComponentImage, ComponentVideo, ComponentText}

// GenerationError records one failed component. Values are appended to a
// project and never mutated.
type GenerationError struct {
	Component    Component `json:"component"`
	ErrorCode    ErrorCode `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
	Timestamp    time.Time `json:"timestamp"`
}
