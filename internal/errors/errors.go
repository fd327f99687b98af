package errors

import (
	"errors"
	"net/http"
)

// Business rule violations surfaced to callers. Handlers translate them to
// HTTP status codes with HTTPStatus; services wrap them with context via
// fmt.Errorf("...: %w", err).
var (
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrNoAvailableSpot       = errors.New("no available spot in lot")
	ErrAlreadyReleased       = errors.New("reservation already released")
	ErrDuplicateLabel        = errors.New("spot label already exists in lot")
	ErrCannotShrink          = errors.New("not enough removable spots to shrink lot")
	ErrHasReservationHistory = errors.New("spot has reservation history")
	ErrNoActiveReservation   = errors.New("no active reservation for spot")
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrInvalidCredentials    = errors.New("invalid credentials")

	// ErrInvalidInput marks a request the caller can correct. Services wrap
	// it with the human-readable reason.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDataIntegrity signals a state that must never occur (e.g. more than
	// one active reservation on a spot). It is surfaced, never corrected
	// silently.
	ErrDataIntegrity = errors.New("data integrity violation")
)

// HTTPStatus maps a business error to the status code the API layer returns.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoActiveReservation):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNoAvailableSpot),
		errors.Is(err, ErrAlreadyReleased),
		errors.Is(err, ErrDuplicateLabel),
		errors.Is(err, ErrCannotShrink),
		errors.Is(err, ErrHasReservationHistory),
		errors.Is(err, ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, ErrDataIntegrity):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
