package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
)

func TestMemoryDeviceLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	user, err := store.CreateUser(ctx, model.User{Email: "tech@example.com"}, model.RoleStandardUser)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	owner := user.ID

	first, err := store.CreateDevice(ctx, model.Device{UID: "AAAAAAAAAAAAAAAAAAAAAAAA", OwnerUserID: &owner, Active: true})
	if err != nil {
		t.Fatalf("create device: %v", err)
	}
	second, err := store.CreateDevice(ctx, model.Device{UID: "BBBBBBBBBBBBBBBBBBBBBBBB", OwnerUserID: &owner, Active: true})
	if err != nil {
		t.Fatalf("create device: %v", err)
	}
	if _, err := store.CreateDevice(ctx, model.Device{UID: "AAAAAAAAAAAAAAAAAAAAAAAA"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate uid, got %v", err)
	}

	devices, err := store.ListDevices(ctx, owner)
	if err != nil {
		t.Fatalf("list devices: %v", err)
	}
	if len(devices) != 2 || devices[0].ID != second.ID || devices[1].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", devices)
	}

	updated, err := store.SetDeviceActive(ctx, first.ID, false, time.Now().UTC())
	if err != nil {
		t.Fatalf("set active: %v", err)
	}
	if updated.Active || updated.UID != first.UID {
		t.Fatalf("expected only is_active to change, got %+v", updated)
	}

	if err := store.DeleteDevice(ctx, first.ID); err != nil {
		t.Fatalf("delete device: %v", err)
	}
	if err := store.DeleteDevice(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemoryAssignDeviceIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if _, err := store.CreateDevice(ctx, model.Device{UID: "CCCCCCCCCCCCCCCCCCCCCCCC", Active: true}); err != nil {
		t.Fatalf("create device: %v", err)
	}

	errOwned := errors.New("owned")
	check := func(device model.Device) (bool, error) {
		if device.OwnerUserID != nil {
			return false, errOwned
		}
		return true, nil
	}

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.AssignDevice(ctx, "CCCCCCCCCCCCCCCCCCCCCCCC", string(rune('a'+i)), time.Now().UTC(), check)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var wins int
	for err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, errOwned) {
			t.Fatalf("unexpected error %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one assignment to win, got %d", wins)
	}

	if _, err := store.AssignDevice(ctx, "DDDDDDDDDDDDDDDDDDDDDDDD", "a", time.Now().UTC(), check); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown uid, got %v", err)
	}
}

func TestMemoryRolesAndSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	user, err := store.CreateUser(ctx, model.User{Email: "admin@example.com"}, model.RoleStandardUser)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := store.CreateUser(ctx, model.User{Email: "admin@example.com"}, model.RoleStandardUser); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected duplicate email conflict, got %v", err)
	}
	if role, _ := store.GetRole(ctx, "unknown"); role != model.RoleStandardUser {
		t.Fatalf("expected standard_user fallback, got %s", role)
	}
	if err := store.SetRole(ctx, user.ID, model.RoleAdmin); err != nil {
		t.Fatalf("set role: %v", err)
	}
	if role, _ := store.GetRole(ctx, user.ID); role != model.RoleAdmin {
		t.Fatalf("expected admin, got %s", role)
	}
	if err := store.SetRole(ctx, "missing", model.RoleAdmin); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}

	now := time.Now().UTC()
	if err := store.CreateRefreshSession(ctx, model.RefreshSession{ID: "s1", UserID: user.ID, TokenHash: "h1", ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := store.CreateRefreshSession(ctx, model.RefreshSession{ID: "s2", UserID: user.ID, TokenHash: "h2", ExpiresAt: now.Add(-time.Hour)}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	deleted, err := store.DeleteStaleRefreshSessions(ctx, now)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected one stale session removed, got %d", deleted)
	}
	if _, err := store.GetRefreshSession(ctx, "h1"); err != nil {
		t.Fatalf("expected live session to remain: %v", err)
	}
}

func TestMemorySpecificationFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, year := range []int{2019, 2022} {
		if _, err := store.CreateSpecification(ctx, model.VehicleSpecification{Make: "Toyota", Model: "Camry", Year: year}); err != nil {
			t.Fatalf("create spec: %v", err)
		}
	}
	if _, err := store.CreateSpecification(ctx, model.VehicleSpecification{Make: "Honda", Model: "Civic", Year: 2020}); err != nil {
		t.Fatalf("create spec: %v", err)
	}

	specs, err := store.ListSpecifications(ctx, SpecFilter{Make: "toyota", Model: "CAMRY"})
	if err != nil {
		t.Fatalf("list specs: %v", err)
	}
	if len(specs) != 2 || specs[0].Year != 2022 {
		t.Fatalf("expected two camry specs newest year first, got %+v", specs)
	}
	all, _ := store.ListSpecifications(ctx, SpecFilter{})
	if len(all) != 3 {
		t.Fatalf("expected all specs, got %d", len(all))
	}
}
