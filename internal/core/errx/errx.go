package errx

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can decide what the end user sees
// without inspecting wrapped error detail.
type Kind string

const (
	// KindConfig covers bad or unknown plan/model configuration. These are
	// resolved to safe defaults upstream and should rarely surface.
	KindConfig Kind = "config"
	// KindAuthorization covers plan-level denials (FREE requesting agent
	// access, model not permitted). The turn must stop before any LLM call.
	KindAuthorization Kind = "authorization"
	// KindCredits covers insufficient balance and other quota failures.
	KindCredits Kind = "credits"
	// KindTool covers third-party/tool failures handled inside handlers.
	KindTool Kind = "tool"
	// KindProvider covers LLM provider/streaming failures.
	KindProvider Kind = "provider"
	// KindConsistency covers ledger post-condition violations and other
	// internal invariant breaks; always auto-rolled-back and logged.
	KindConsistency Kind = "consistency"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing key.
	RedisNotFoundMessage = "not found"
)

// AppError wraps an underlying error with a classification, an HTTP status
// and a message safe to relay to the end user.
type AppError struct {
	Err     error
	Kind    Kind
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, kind Kind, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Kind:    kind,
		Status:  status,
		Message: message,
	}
}

// Authorization builds a plan-denial error with an upgrade-oriented message.
func Authorization(message string) *AppError {
	return New(nil, KindAuthorization, http.StatusForbidden, message)
}

// Consistency builds an internal-invariant error. The caller-facing message
// is always the generic retry message; detail stays in the wrapped error.
func Consistency(err error) *AppError {
	return New(err, KindConsistency, http.StatusInternalServerError, "something went wrong, please try again")
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// KindOf extracts the classification from an error chain, defaulting to
// KindProvider for unclassified failures reaching the runner boundary.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindProvider
}

// UserMessage returns the safe message for an error chain, falling back to
// the generic system message so raw detail never reaches the user.
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return SystemErrorMessage
}
