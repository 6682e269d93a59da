package sessionguard

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSessionMissing is returned when no session token was presented.
	ErrSessionMissing = errors.New("session token missing")

	// ErrSessionInvalid is returned when a session token was presented but
	// failed verification. Unwrap for the verifier's specific failure.
	ErrSessionInvalid = errors.New("session token invalid")

	// ErrSessionForbidden is returned when a verified session does not
	// satisfy the route's role or permission query.
	ErrSessionForbidden = errors.New("session lacks required role or permission")
)

// ErrorHandler is called when the guard cannot let the request through and
// a redirect is not appropriate: extractor failures, and rejections when
// redirects are disabled. The err can be checked against ErrSessionMissing,
// ErrSessionInvalid and ErrSessionForbidden. The default handler returns
// 401 for missing/invalid sessions, 403 for forbidden ones, and 500 for
// anything else.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// DefaultErrorHandler is the error handler used when the WithErrorHandler
// option is not provided.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case errors.Is(err, ErrSessionMissing):
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Session token is missing."}`))
	case errors.Is(err, ErrSessionInvalid):
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Session token is invalid."}`))
	case errors.Is(err, ErrSessionForbidden):
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Session is not authorized for this resource."}`))
	default:
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Something went wrong while checking the session."}`))
	}
}

// invalidError handles wrapping a verification error with the concrete
// error ErrSessionInvalid. We do not expose this publicly because the
// interface methods of Is and Unwrap should give the user all they need.
type invalidError struct {
	details error
}

// Is allows the error to support equality to ErrSessionInvalid.
func (e invalidError) Is(target error) bool {
	return target == ErrSessionInvalid
}

// Error returns a string representation of the error.
func (e invalidError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSessionInvalid, e.details)
}

// Unwrap allows the error to support equality to the underlying error and
// not just ErrSessionInvalid.
func (e invalidError) Unwrap() error {
	return e.details
}
