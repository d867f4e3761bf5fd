package main

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/room-tracker/internal/application"
)

func TestRun(t *testing.T) {
	t.Run("argon2id from stdin", func(t *testing.T) {
		var out bytes.Buffer
		if err := run(nil, strings.NewReader("hunter2\n"), &out); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		hash := strings.TrimSpace(out.String())
		if !strings.HasPrefix(hash, "$argon2id$") {
			t.Fatalf("expected argon2id hash, got %q", hash)
		}
		if err := application.VerifyPassword(hash, "hunter2"); err != nil {
			t.Fatalf("expected hash to verify, got %v", err)
		}
	})

	t.Run("bcrypt from flag", func(t *testing.T) {
		var out bytes.Buffer
		args := []string{"-bcrypt", "-cost", "4", "-password", "hunter2"}
		if err := run(args, strings.NewReader(""), &out); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		hash := strings.TrimSpace(out.String())
		if cost, err := bcrypt.Cost([]byte(hash)); err != nil || cost != 4 {
			t.Fatalf("expected bcrypt cost 4, got %d (%v)", cost, err)
		}
		if err := application.VerifyPassword(hash, "hunter2"); err != nil {
			t.Fatalf("expected hash to verify, got %v", err)
		}
	})

	t.Run("empty password", func(t *testing.T) {
		if err := run(nil, strings.NewReader(""), &bytes.Buffer{}); err == nil {
			t.Fatalf("expected error for empty password")
		}
	})

	t.Run("unknown flag", func(t *testing.T) {
		if err := run([]string{"-nope"}, strings.NewReader("x"), &bytes.Buffer{}); err == nil {
			t.Fatalf("expected error for unknown flag")
		}
	})
}
