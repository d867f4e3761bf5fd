package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a check or foreign key constraint rejects a write.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrPreconditionFailed is returned when a conditional update no longer matches the stored row.
	ErrPreconditionFailed = errors.New("persistence: precondition failed")
	// ErrSlotTaken is returned when a team already holds another room in the requested status.
	ErrSlotTaken = errors.New("persistence: team slot taken")
)
