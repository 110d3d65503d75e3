package domain

import "errors"

var (
	// ErrInvalidInput marks caller-correctable validation failures (HTTP 400).
	ErrInvalidInput = errors.New("invalid input")

	// ErrRoomUnavailable is the structured conflict outcome of a lost claim
	// race or an exhausted room type (HTTP 409). Callers should re-run the
	// availability search.
	ErrRoomUnavailable = errors.New("room unavailable for the requested dates")

	// ErrNotFound marks lookups of unknown rooms or bookings (HTTP 404).
	ErrNotFound = errors.New("not found")

	// ErrBookingCanceled is returned when finalization targets a booking the
	// sweep or staff already canceled.
	ErrBookingCanceled = errors.New("booking is canceled")
)
