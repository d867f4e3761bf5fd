package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/room-tracker/internal/persistence"
)

func TestValidationError(t *testing.T) {
	t.Parallel()

	var nilErr *ValidationError
	if nilErr.Error() != "" || nilErr.HasErrors() {
		t.Fatalf("expected nil validation error to be empty")
	}

	vErr := &ValidationError{}
	if got := vErr.Error(); got != "validation failed" {
		t.Fatalf("expected generic message, got %q", got)
	}

	vErr.add("team_id", "team_id is required")
	vErr.merge(&ValidationError{FieldErrors: map[string]string{"color": "color must be a hex value"}})
	vErr.merge(nil)
	if !vErr.HasErrors() || len(vErr.FieldErrors) != 2 {
		t.Fatalf("expected two field errors, got %#v", vErr.FieldErrors)
	}
	if got := vErr.Error(); got != "validation failed: color, team_id" {
		t.Fatalf("expected sorted field list, got %q", got)
	}
}

func TestMapStoreError(t *testing.T) {
	t.Parallel()

	passthrough := fmt.Errorf("%w: room is not free", ErrConflict)
	tests := []struct {
		name string
		err  error
		want error
		kind string
	}{
		{name: "nil", err: nil, kind: ""},
		{name: "not found", err: persistence.ErrNotFound, want: ErrNotFound, kind: "not_found"},
		{name: "duplicate", err: persistence.ErrDuplicate, want: ErrConflict, kind: "conflict"},
		{name: "precondition", err: persistence.ErrPreconditionFailed, want: ErrConflict, kind: "conflict"},
		{name: "slot taken", err: fmt.Errorf("wrapped: %w", persistence.ErrSlotTaken), want: ErrConflict, kind: "conflict"},
		{name: "constraint", err: persistence.ErrConstraintViolation, kind: "validation"},
		{name: "application error", err: passthrough, want: ErrConflict, kind: "conflict"},
		{name: "unknown", err: errors.New("disk full"), kind: "unexpected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapStoreError(tt.err, "room")
			if tt.want != nil && !errors.Is(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			if kind := ErrorKind(got); kind != tt.kind {
				t.Fatalf("expected kind %q, got %q (%v)", tt.kind, kind, got)
			}
		})
	}

	if got := mapStoreError(passthrough, "room"); got != passthrough {
		t.Fatalf("expected application error to pass through unchanged, got %v", got)
	}
}
