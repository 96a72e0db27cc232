package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is matched by StatusErrors carrying 401 or 403.
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrInvalidCredentials is returned by Login when the server refuses the credentials.
	ErrInvalidCredentials = errors.New("backend: invalid credentials")
)

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Code    int
	Message string
	Body    []byte
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: HTTP %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("backend: HTTP %d", e.Code)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 and 403 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && (e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden)
}

// TransportError wraps failures to reach the backend at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "backend unreachable: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is a 401/403 response.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsUnreachable reports whether err means the backend could not be contacted.
func IsUnreachable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Assistant-facing phrasing for failed exchanges.
const (
	MsgReformulate    = "Could you rephrase that? I did not quite get the question."
	MsgSessionExpired = "Your session has expired. Please sign in again."
	MsgServerError    = "A technical error occurred on the server. Please try again in a moment."
	MsgUnavailable    = "The assistant service is unavailable right now."
	MsgGeneric        = "Something went wrong while processing your message."
	MsgUnreachable    = "I cannot reach the server. Check your connection and try again."
)

// FriendlyMessage maps an error from SendMessage to the reply shown to the user.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusUnprocessableEntity:
			return MsgReformulate
		case http.StatusUnauthorized, http.StatusForbidden:
			return MsgSessionExpired
		case http.StatusInternalServerError:
			return MsgServerError
		case http.StatusNotFound:
			return MsgUnavailable
		default:
			return MsgGeneric
		}
	}
	if IsUnreachable(err) {
		return MsgUnreachable
	}
	return MsgGeneric
}

// Moods name the mascot state matching a failure.
const (
	MoodConfused = "confused"
	MoodError    = "error"
)

// MoodFor returns the mascot state for a failed exchange: clarification and
// authentication problems look confused, everything else is an error.
func MoodFor(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusUnprocessableEntity, http.StatusUnauthorized, http.StatusForbidden:
			return MoodConfused
		}
	}
	return MoodError
}
