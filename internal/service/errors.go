// Package service implements the booking engine: availability, pricing,
// booking creation, cancellation and payment driven status changes.
package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrCapacityExceeded = errors.New("not enough rooms available")
	ErrInvalidState     = errors.New("invalid booking state")
	ErrUpstreamPayment  = errors.New("payment provider error")
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// CapacityError is returned when a hotel booking asks for more rooms
// than remain for its date range.  errors.Is(err, ErrCapacityExceeded)
// holds for it.
type CapacityError struct {
	Available int
	Requested int
}

func (e *CapacityError) Error() string {
	if e.Available == 0 {
		return "no rooms available for the selected dates"
	}
	return fmt.Sprintf("only %d room(s) available for the selected dates", e.Available)
}

func (e *CapacityError) Is(target error) bool { return target == ErrCapacityExceeded }

// StateError is returned when a booking's current status does not
// allow the requested change.  errors.Is(err, ErrInvalidState) holds
// for it.
type StateError struct {
	Status string
	Want   string
}

func (e *StateError) Error() string {
	if e.Want == "" {
		return fmt.Sprintf("booking is already %s", e.Status)
	}
	return fmt.Sprintf("cannot change booking from %s to %s", e.Status, e.Want)
}

func (e *StateError) Is(target error) bool { return target == ErrInvalidState }
