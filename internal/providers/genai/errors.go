package genai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"studio/internal/retry"
)

// ErrorKind describes why the generation endpoint rejected a call.
type ErrorKind string

const (
	KindRateLimited   ErrorKind = "rate_limited"
	KindTimeout       ErrorKind = "timeout"
	KindUnavailable   ErrorKind = "unavailable"
	KindUnauthorized  ErrorKind = "unauthorized"
	KindInvalidInput  ErrorKind = "invalid_input"
	KindContentPolicy ErrorKind = "content_policy"
	KindMalformed     ErrorKind = "malformed_output"
)

// ServiceError is returned for every failed endpoint call.
type ServiceError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("genai: %s (status %d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("genai: %s: %s", e.Kind, msg)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same request may succeed later.
func (e *ServiceError) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindTimeout, KindUnavailable:
		return true
	default:
		return false
	}
}

// Classify is the retry classifier for endpoint errors.
func Classify(err error) retry.Classification {
	if err == nil {
		return retry.Terminal
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Terminal
	}
	var svc *ServiceError
	if errors.As(err, &svc) {
		if svc.Retryable() {
			return retry.Retryable
		}
		return retry.Terminal
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return retry.Retryable
	}
	return retry.Terminal
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status >= http.StatusInternalServerError:
		return KindUnavailable
	default:
		return KindInvalidInput
	}
}

func transportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ServiceError{Kind: KindTimeout, Message: "request timed out", Err: err}
	}
	return &ServiceError{Kind: KindUnavailable, Message: "endpoint unreachable", Err: err}
}

func blockedFinishReason(reason string) bool {
	switch reason {
	case "SAFETY", "PROHIBITED_CONTENT", "BLOCKLIST", "SPII", "IMAGE_SAFETY", "RECITATION":
		return true
	default:
		return false
	}
}
