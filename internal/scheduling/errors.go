package scheduling

import "errors"

var (
	// ErrInvalidAppointmentType means the requested type key is not in the
	// catalog. Distinct from an empty availability list.
	ErrInvalidAppointmentType = errors.New("scheduling: unknown appointment type")

	// ErrSlotUnavailable means the requested start time conflicts with an
	// existing appointment or falls outside the slot grid.
	ErrSlotUnavailable = errors.New("scheduling: slot unavailable")

	// ErrNotFound means no appointment matches the booking id or
	// confirmation code.
	ErrNotFound = errors.New("scheduling: appointment not found")

	// ErrCannotRescheduleCancelled means the target appointment was already
	// cancelled; cancelled records cannot be moved.
	ErrCannotRescheduleCancelled = errors.New("scheduling: cannot reschedule a cancelled appointment")

	// ErrInvalidRequest covers malformed booking input (bad date, missing
	// patient fields, invalid email).
	ErrInvalidRequest = errors.New("scheduling: invalid request")
)
