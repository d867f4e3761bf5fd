package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/room-tracker/internal/persistence"
)

var (
	// ErrUnauthorized is returned when the caller is not an administrator.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when a room, team, backup or rollup does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is returned when the room or team is not in the state the
	// operation requires, such as occupying a room that is not free.
	ErrConflict = errors.New("application: conflict")
	// ErrForbidden is returned when a team acts on a room it does not hold.
	ErrForbidden = errors.New("application: forbidden")
)

// ValidationError collects per-field input problems, keyed by the request
// field name (team_id, name, color, status).
type ValidationError struct {
	FieldErrors map[string]string
}

func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func (v *ValidationError) merge(other *ValidationError) {
	if other == nil {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// mapStoreError translates persistence errors into application errors,
// naming the entity involved. Application errors pass through unchanged.
func mapStoreError(err error, entity string) error {
	if err == nil {
		return nil
	}
	var vErr *ValidationError
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict), errors.Is(err, ErrForbidden), errors.As(err, &vErr):
		return err
	case errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("%w: %s not found", ErrNotFound, entity)
	case errors.Is(err, persistence.ErrDuplicate):
		return fmt.Errorf("%w: %s already exists", ErrConflict, entity)
	case errors.Is(err, persistence.ErrPreconditionFailed), errors.Is(err, persistence.ErrSlotTaken):
		return fmt.Errorf("%w: %s changed concurrently", ErrConflict, entity)
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr = &ValidationError{}
		vErr.add(entity, "violates a storage constraint")
		return vErr
	}
	return err
}
