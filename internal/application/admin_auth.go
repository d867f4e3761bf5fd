package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AdminAuthenticator checks administrator credentials against a single
// configured password hash.
type AdminAuthenticator struct {
	username       string
	passwordHash   string
	verifyPassword PasswordVerifier
	logger         *slog.Logger
}

// NewAdminAuthenticator constructs an authenticator for username and passwordHash.
func NewAdminAuthenticator(username, passwordHash string, verify PasswordVerifier) *AdminAuthenticator {
	return NewAdminAuthenticatorWithLogger(username, passwordHash, verify, nil)
}

// NewAdminAuthenticatorWithLogger constructs an authenticator with a specified logger.
func NewAdminAuthenticatorWithLogger(username, passwordHash string, verify PasswordVerifier, logger *slog.Logger) *AdminAuthenticator {
	if verify == nil {
		verify = VerifyPassword
	}
	if strings.TrimSpace(username) == "" {
		username = "admin"
	}
	return &AdminAuthenticator{
		username:       username,
		passwordHash:   passwordHash,
		verifyPassword: verify,
		logger:         defaultLogger(logger),
	}
}

func (a *AdminAuthenticator) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, a.logger, "AdminAuthenticator", operation, attrs...)
}

// Authenticate returns an administrator principal for valid credentials and
// ErrUnauthorized otherwise.
func (a *AdminAuthenticator) Authenticate(ctx context.Context, username, password string) (principal Principal, err error) {
	if a == nil {
		err = fmt.Errorf("AdminAuthenticator is nil")
		return
	}

	logger := a.loggerWith(ctx, "Authenticate", "username", username)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "admin authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "admin authenticated")
	}()

	if a.passwordHash == "" {
		err = fmt.Errorf("%w: admin access is not configured", ErrUnauthorized)
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	verifyErr := a.verifyPassword(a.passwordHash, password)
	if verifyErr != nil && !errors.Is(verifyErr, ErrInvalidCredentials) {
		logger.ErrorContext(ctx, "stored admin password hash is unusable", "error", verifyErr)
	}
	if !userOK || verifyErr != nil {
		err = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
		return
	}

	principal = Principal{ActorID: a.username, IsAdmin: true}
	return
}
