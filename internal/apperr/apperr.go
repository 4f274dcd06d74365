// Package apperr defines the operational error taxonomy shared by the
// reply pipeline.
//
// Every failure a provider or the vector store can produce is wrapped
// into an *Error carrying a stable Kind and an HTTP-style status code.
// The pipeline maps kinds to fixed user-facing replies; nothing else in
// the system inspects raw provider error strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an operational error.
type Kind string

const (
	// KindValidation marks empty or malformed input. Never retried.
	KindValidation Kind = "validation"

	// KindAuth marks 401-class provider failures.
	KindAuth Kind = "authentication"

	// KindRateLimit marks 429-class provider failures.
	KindRateLimit Kind = "rate_limit"

	// KindUpstream marks 500-class provider failures.
	KindUpstream Kind = "upstream"

	// KindFormat marks a malformed provider response. This is the only
	// kind that triggers the embedding fallback transport.
	KindFormat Kind = "format"

	// KindStore marks vector-store failures.
	KindStore Kind = "store"

	// KindInternal marks any other classified failure.
	KindInternal Kind = "internal"
)

// Error is an operational error with a stable kind and status code.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an *Error without a wrapped cause.
func New(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message}
}

// Wrap creates an *Error preserving the underlying cause.
func Wrap(kind Kind, status int, message string, err error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Err: err}
}

// Validation creates a validation error (HTTP 400 class).
func Validation(message string) *Error {
	return New(KindValidation, http.StatusBadRequest, message)
}

// Format creates a malformed-provider-response error.
func Format(message string, err error) *Error {
	return Wrap(KindFormat, http.StatusBadGateway, message, err)
}

// Store wraps a vector-store failure (always status 500).
func Store(message string, err error) *Error {
	return Wrap(KindStore, http.StatusInternalServerError, message, err)
}

// KindOf returns the kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// StatusOf returns the HTTP-style status of err, defaulting to 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// IsFormat reports whether err is a format-class failure: either an
// *Error with KindFormat, or a raw error whose text looks like a
// JSON/parse problem. Only these failures may trigger the embedding
// fallback transport.
func IsFormat(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindFormat
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"unexpected token", "json", "unmarshal", "decode", "invalid character"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Classify maps a provider failure to the taxonomy by status-code
// markers in its message: 401 -> authentication, 429 -> rate limit,
// 500 -> upstream, anything else -> internal with op context.
// An err that already carries a kind is returned as-is.
func Classify(err error, op string) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "Unauthorized"):
		return Wrap(KindAuth, http.StatusUnauthorized, "invalid AI provider API key", err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "Too Many Requests"):
		return Wrap(KindRateLimit, http.StatusTooManyRequests, "AI provider request limit exceeded", err)
	case strings.Contains(msg, "500") || strings.Contains(msg, "Internal Server Error"):
		return Wrap(KindUpstream, http.StatusBadGateway, "AI provider server error", err)
	default:
		return Wrap(KindInternal, http.StatusInternalServerError, op, err)
	}
}

// Fixed user-facing replies per error class. The dispatcher sends one of
// these instead of ever surfacing a raw error to the conversation.
const (
	userMessageAuth      = "The assistant is misconfigured (invalid AI provider credentials). Please contact support."
	userMessageRateLimit = "The assistant is receiving too many requests right now. Please try again later."
	userMessageUpstream  = "The AI service is temporarily unavailable. Please try again."
	userMessageGeneric   = "Sorry, an error occurred while processing your request. Please try again or contact support."
)

// UserMessage returns the fixed reply text shown to the end user for err.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindAuth:
		return userMessageAuth
	case KindRateLimit:
		return userMessageRateLimit
	case KindUpstream:
		return userMessageUpstream
	default:
		return userMessageGeneric
	}
}
