package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/example/room-tracker/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: ErrUnauthorized, want: "unauthorized"},
		{err: fmt.Errorf("%w: room missing", ErrNotFound), want: "not_found"},
		{err: fmt.Errorf("%w: room is not free", ErrConflict), want: "conflict"},
		{err: fmt.Errorf("%w: not the holder", ErrForbidden), want: "forbidden"},
		{err: &ValidationError{FieldErrors: map[string]string{"name": "required"}}, want: "validation"},
		{err: context.Canceled, want: "canceled"},
		{err: fmt.Errorf("list rooms: %w", context.DeadlineExceeded), want: "timeout"},
		{err: errors.New("boom"), want: "unexpected"},
	}

	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestServiceLoggerPrefersContextLogger(t *testing.T) {
	t.Parallel()

	var base, scoped captureHandler
	ctx := logging.ContextWithLogger(context.Background(), slog.New(&scoped))

	serviceLogger(ctx, slog.New(&base), "RoomService", "ListRooms").Info("hello")
	if len(scoped.records) != 1 || len(base.records) != 0 {
		t.Fatalf("expected record on context logger, got base=%d scoped=%d", len(base.records), len(scoped.records))
	}
}

func TestLogFailureLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want slog.Level
	}{
		{name: "conflict", err: fmt.Errorf("%w: room is not free", ErrConflict), want: slog.LevelWarn},
		{name: "forbidden", err: ErrForbidden, want: slog.LevelWarn},
		{name: "validation", err: &ValidationError{FieldErrors: map[string]string{"team_id": "required"}}, want: slog.LevelWarn},
		{name: "timeout", err: context.DeadlineExceeded, want: slog.LevelError},
		{name: "unexpected", err: errors.New("disk full"), want: slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var handler captureHandler
			logFailure(context.Background(), slog.New(&handler), "failed to occupy", tt.err)
			if len(handler.records) != 1 {
				t.Fatalf("expected one record, got %d", len(handler.records))
			}
			record := handler.records[0]
			if record.Level != tt.want {
				t.Fatalf("expected level %v, got %v", tt.want, record.Level)
			}
			var kind string
			record.Attrs(func(attr slog.Attr) bool {
				if attr.Key == "error_kind" {
					kind = attr.Value.String()
				}
				return true
			})
			if kind != ErrorKind(tt.err) {
				t.Fatalf("expected error_kind %q, got %q", ErrorKind(tt.err), kind)
			}
		})
	}
}

type captureHandler struct {
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, record slog.Record) error {
	h.records = append(h.records, record)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(string) slog.Handler { return h }
