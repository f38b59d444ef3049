package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/audit"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/repository"
)

func TestProvision(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	user, err := store.CreateUser(ctx, model.User{Email: "owner@shop.example", PasswordHash: "x"}, model.RoleStandardUser)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	sink := audit.NewMemorySink()

	previous, err := provision(ctx, store, sink, slog.Default(), " Owner@Shop.example ", "admin")
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if previous != model.RoleStandardUser {
		t.Fatalf("expected previous standard_user, got %s", previous)
	}
	role, _ := store.GetRole(ctx, user.ID)
	if role != model.RoleAdmin {
		t.Fatalf("expected admin, got %s", role)
	}
	events := sink.Events()
	if len(events) != 1 || events[0].Type != audit.EventRoleChange || events[0].TargetID != user.ID {
		t.Fatalf("unexpected audit events %+v", events)
	}
}

func TestProvisionRejects(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	sink := audit.NewMemorySink()

	if _, err := provision(ctx, store, sink, slog.Default(), "", "admin"); err == nil {
		t.Fatalf("expected error for missing email")
	}
	if _, err := provision(ctx, store, sink, slog.Default(), "a@shop.example", "owner"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
	if _, err := provision(ctx, store, sink, slog.Default(), "ghost@shop.example", "admin"); err == nil {
		t.Fatalf("expected error for unknown user")
	}
	if len(sink.Events()) != 0 {
		t.Fatalf("failed provisioning must not be audited")
	}
}

type failingSink struct{}

func (failingSink) Record(context.Context, audit.Event) error {
	return errors.New("audit store unavailable")
}

func TestProvisionLogsAuditFailure(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	user, err := store.CreateUser(ctx, model.User{Email: "lead@shop.example", PasswordHash: "x"}, model.RoleStandardUser)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	if _, err := provision(ctx, store, failingSink{}, logger, "lead@shop.example", "technical_support"); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if role, _ := store.GetRole(ctx, user.ID); role != model.RoleTechnicalSupport {
		t.Fatalf("expected technical_support, got %s", role)
	}
	if !strings.Contains(logs.String(), "audit store unavailable") {
		t.Fatalf("expected audit failure in logs, got %q", logs.String())
	}
}

func TestRunExitCodes(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_URL_FILE", "")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-unknown"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit 2 for bad flag, got %d", code)
	}
	stderr.Reset()
	if code := run([]string{"-email", "lead@shop.example"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit 2 without DATABASE_URL, got %d", code)
	}
	if !strings.Contains(stderr.String(), "DATABASE_URL is required") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected no output, got %q", stdout.String())
	}
}
