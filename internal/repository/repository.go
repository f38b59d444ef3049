package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
)

var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
)

// AssignCheck inspects the locked device row and reports whether the owner
// should be written. Returning an error aborts the assignment.
type AssignCheck func(device model.Device) (bool, error)

type SpecFilter struct {
	Make  string
	Model string
}

type Repository interface {
	CreateUser(ctx context.Context, user model.User, role model.Role) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByID(ctx context.Context, userID string) (model.User, error)
	// GetRole returns standard_user when the user has no role row.
	GetRole(ctx context.Context, userID string) (model.Role, error)
	SetRole(ctx context.Context, userID string, role model.Role) error
	ListUsers(ctx context.Context) ([]model.UserWithRole, error)

	CreateRefreshSession(ctx context.Context, session model.RefreshSession) error
	GetRefreshSession(ctx context.Context, tokenHash string) (model.RefreshSession, error)
	RevokeRefreshSession(ctx context.Context, sessionID string, revokedAt time.Time) error
	DeleteStaleRefreshSessions(ctx context.Context, now time.Time) (int64, error)

	CreateDevice(ctx context.Context, device model.Device) (model.Device, error)
	GetDevice(ctx context.Context, deviceID string) (model.Device, error)
	GetDeviceByUID(ctx context.Context, uid string) (model.Device, error)
	ListDevices(ctx context.Context, ownerID string) ([]model.Device, error)
	SetDeviceActive(ctx context.Context, deviceID string, active bool, at time.Time) (model.Device, error)
	DeleteDevice(ctx context.Context, deviceID string) error
	TouchDeviceAuthenticated(ctx context.Context, deviceID string, at time.Time) error
	// AssignDevice locks the device row, runs check and, if it approves,
	// records userID as owner with assigned_at = at. It is atomic with respect
	// to concurrent assignments of the same UID.
	AssignDevice(ctx context.Context, uid, userID string, at time.Time, check AssignCheck) (model.Device, error)

	CreateRecord(ctx context.Context, record model.AlignmentRecord) (model.AlignmentRecord, error)
	GetRecord(ctx context.Context, recordID string) (model.AlignmentRecord, error)
	// ListRecords and ListAllRecords return newest first. A zero limit returns everything.
	ListRecords(ctx context.Context, userID string, limit int) ([]model.AlignmentRecord, error)
	ListAllRecords(ctx context.Context, limit int) ([]model.RecordWithOwner, error)
	DeleteRecord(ctx context.Context, recordID string) error

	CreateSpecification(ctx context.Context, spec model.VehicleSpecification) (model.VehicleSpecification, error)
	ListSpecifications(ctx context.Context, filter SpecFilter) ([]model.VehicleSpecification, error)
}
