package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrWorkerPanic marks a supervised worker that crashed and was recovered.
var ErrWorkerPanic = errors.New("worker panicked")

// Reason is the closed set of validation fault codes surfaced to callers.
// These are expected, deterministic outcomes and are never retried internally.
type Reason string

const (
	AlreadyLoggedIn Reason = "ALREADY_LOGGED_IN"
	BadPassword     Reason = "BAD_PASSWORD"
	BadUsername     Reason = "BAD_USERNAME"
	BadSession      Reason = "BAD_SESSION"
	BadChannel      Reason = "BAD_CHANNEL"
	UnwelcomeBanned Reason = "UNWELCOME_BANNED"
	NoPermission    Reason = "NO_PERMISSION"
)

// ParseReason maps a wire constant name back to a Reason.
// An unknown name is a hard failure, mirroring enum decoding rules.
func ParseReason(name string) (Reason, error) {
	switch r := Reason(name); r {
	case AlreadyLoggedIn, BadPassword, BadUsername, BadSession,
		BadChannel, UnwelcomeBanned, NoPermission:
		return r, nil
	}
	return "", fmt.Errorf("unknown reason constant %q", name)
}

// ChatError is a typed validation fault carrying one Reason code.
type ChatError struct {
	Reason Reason
}

func NewChatError(reason Reason) *ChatError {
	return &ChatError{Reason: reason}
}

func (e *ChatError) Error() string {
	return fmt.Sprintf("chat fault: %s", e.Reason)
}

// Is lets errors.Is match two ChatErrors by reason code.
func (e *ChatError) Is(target error) bool {
	var other *ChatError
	if !errors.As(target, &other) {
		return false
	}
	return e.Reason == other.Reason
}

// AsChatError extracts a ChatError from an error chain.
func AsChatError(err error) (*ChatError, bool) {
	var ce *ChatError
	ok := errors.As(err, &ce)
	return ce, ok
}

// MapToHTTPStatus translates a fault reason into an HTTP status code
// for the transport binding. Anything unrecognized is a server error.
func MapToHTTPStatus(err error) int {
	ce, ok := AsChatError(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch ce.Reason {
	case BadSession, BadPassword:
		return http.StatusUnauthorized
	case NoPermission, UnwelcomeBanned:
		return http.StatusForbidden
	case BadChannel, BadUsername:
		return http.StatusNotFound
	case AlreadyLoggedIn:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
