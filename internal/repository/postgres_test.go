package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/db"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
)

func TestPostgresDeviceFlow(t *testing.T) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, databaseURL)
	if err != nil {
		t.Fatalf("db connection failed: %v", err)
	}
	defer pool.Close()
	dbStore := db.NewStore(pool)
	if err := dbStore.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := NewStore(dbStore)

	user, err := store.CreateUser(ctx, model.User{Email: uuid.NewString() + "@example.com", PasswordHash: "x"}, model.RoleStandardUser)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	uid := randomUID()
	device, err := store.CreateDevice(ctx, model.Device{UID: uid, Active: true})
	if err != nil {
		t.Fatalf("create device: %v", err)
	}
	defer func() { _ = store.DeleteDevice(context.Background(), device.ID) }()

	if _, err := store.CreateDevice(ctx, model.Device{UID: uid, Active: true}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	assigned, err := store.AssignDevice(ctx, uid, user.ID, time.Now().UTC(), func(model.Device) (bool, error) { return true, nil })
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.OwnerUserID == nil || *assigned.OwnerUserID != user.ID || assigned.AssignedAt == nil {
		t.Fatalf("expected device owned by user, got %+v", assigned)
	}

	devices, err := store.ListDevices(ctx, user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(devices) != 1 || devices[0].UID != uid {
		t.Fatalf("unexpected devices %+v", devices)
	}
	if err := store.DeleteDevice(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func randomUID() string {
	id := uuid.New()
	const hexdigits = "0123456789ABCDEF"
	out := make([]byte, 24)
	for i := 0; i < 12; i++ {
		out[i*2] = hexdigits[id[i]>>4]
		out[i*2+1] = hexdigits[id[i]&0x0f]
	}
	return string(out)
}
