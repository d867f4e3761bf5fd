package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/room-tracker/internal/application"
)

type fakeAuthenticator struct {
	principal application.Principal
	err       error
}

func (f fakeAuthenticator) Authenticate(ctx context.Context, username, password string) (application.Principal, error) {
	return f.principal, f.err
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name           string
		auth           fakeAuthenticator
		basicAuth      bool
		expectedStatus int
	}{
		{
			name:           "missing credentials",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "rejected credentials",
			auth:           fakeAuthenticator{err: fmt.Errorf("%w: invalid credentials", application.ErrUnauthorized)},
			basicAuth:      true,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "verifier failure",
			auth:           fakeAuthenticator{err: errors.New("boom")},
			basicAuth:      true,
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "valid credentials",
			auth:           fakeAuthenticator{principal: application.Principal{ActorID: "admin", IsAdmin: true}},
			basicAuth:      true,
			expectedStatus: http.StatusOK,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured application.Principal
			handler := RequireAdmin(tc.auth, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				p, ok := PrincipalFromContext(r.Context())
				if !ok {
					t.Fatalf("expected principal in request context")
				}
				captured = p
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/admin/backups", nil)
			if tc.basicAuth {
				req.SetBasicAuth("admin", "secret")
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.expectedStatus {
				t.Fatalf("expected %d, got %d", tc.expectedStatus, rec.Code)
			}
			if tc.expectedStatus == http.StatusOK && !captured.IsAdmin {
				t.Fatalf("expected admin principal, got %#v", captured)
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if LoggerFromContext(r.Context()) == nil {
			t.Fatalf("expected request logger in context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))

	out := buf.String()
	if !strings.Contains(out, `"msg":"request completed"`) || !strings.Contains(out, `"status":418`) {
		t.Fatalf("unexpected log output %s", out)
	}
}

func TestReason(t *testing.T) {
	err := fmt.Errorf("%w: room is not free", application.ErrConflict)
	if got := reason(err, application.ErrConflict, "fallback"); got != "room is not free" {
		t.Fatalf("expected stripped reason, got %q", got)
	}
	if got := reason(application.ErrNotFound, application.ErrNotFound, "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for bare sentinel, got %q", got)
	}
}
