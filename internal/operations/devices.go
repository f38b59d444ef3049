package operations

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/deviceuid"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/repository"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/validation"
)

const (
	ErrMissingDeviceUID      = "missing_device_uid"
	ErrInvalidDeviceUID      = "invalid_device_uid"
	ErrDeviceNotFound        = "device_not_found"
	ErrDeviceUIDExists       = "device_uid_exists"
	ErrDeviceAlreadyOwned    = "device_already_owned"
	ErrDeviceActiveElsewhere = "device_active_elsewhere"
	ErrOwnerNotFound         = "owner_not_found"
	ErrServerError           = "server_error"
)

type Error struct {
	Code string
}

func (e *Error) Error() string {
	return e.Code
}

// Code returns the operation code carried by err, or ErrServerError.
func Code(err error) string {
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr.Code
	}
	return ErrServerError
}

// RegisterDevice stores a new UID. ownerID may be nil for devices that are
// registered but not yet linked to anyone.
func RegisterDevice(ctx context.Context, store repository.Repository, ownerID *string, rawUID string, name *string) (model.Device, error) {
	uid, err := parseUID(rawUID)
	if err != nil {
		return model.Device{}, err
	}
	device := model.Device{
		UID:         uid,
		Name:        cleanName(name),
		OwnerUserID: ownerID,
		Active:      true,
	}
	if ownerID != nil {
		at := time.Now().UTC()
		device.AssignedAt = &at
	}
	created, err := store.CreateDevice(ctx, device)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.Device{}, &Error{Code: ErrDeviceUIDExists}
		}
		if errors.Is(err, repository.ErrNotFound) {
			return model.Device{}, &Error{Code: ErrOwnerNotFound}
		}
		return model.Device{}, &Error{Code: ErrServerError}
	}
	return created, nil
}

// LinkDeviceToUser assigns an unowned device to userID. Linking a device the
// caller already owns is a no-op.
func LinkDeviceToUser(ctx context.Context, store repository.Repository, rawUID, userID string) (model.Device, error) {
	uid, err := parseUID(rawUID)
	if err != nil {
		return model.Device{}, err
	}
	device, err := store.AssignDevice(ctx, uid, userID, time.Now().UTC(), func(current model.Device) (bool, error) {
		return checkAssignment(current, userID)
	})
	if err != nil {
		var opErr *Error
		if errors.As(err, &opErr) {
			return model.Device{}, opErr
		}
		if errors.Is(err, repository.ErrNotFound) {
			return model.Device{}, &Error{Code: ErrDeviceNotFound}
		}
		return model.Device{}, &Error{Code: ErrServerError}
	}
	return device, nil
}

func checkAssignment(device model.Device, userID string) (bool, error) {
	if device.OwnerUserID == nil {
		return true, nil
	}
	if *device.OwnerUserID == userID {
		return false, nil
	}
	if device.Active {
		return false, &Error{Code: ErrDeviceActiveElsewhere}
	}
	return false, &Error{Code: ErrDeviceAlreadyOwned}
}

// AuthenticateDevice accepts a UID presented by a device and returns the
// registered row when it exists and is active. A failure to record the
// authentication time is logged and does not fail the call.
func AuthenticateDevice(ctx context.Context, store repository.Repository, rawUID string, logger *slog.Logger) (model.Device, error) {
	if logger == nil {
		logger = slog.Default()
	}
	uid, err := parseUID(rawUID)
	if err != nil {
		return model.Device{}, err
	}
	device, err := store.GetDeviceByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Device{}, &Error{Code: ErrDeviceNotFound}
		}
		logger.ErrorContext(ctx, "device lookup failed", "error", err)
		return model.Device{}, &Error{Code: ErrServerError}
	}
	if !device.Active {
		return model.Device{}, &Error{Code: ErrDeviceNotFound}
	}

	now := time.Now().UTC()
	if err := store.TouchDeviceAuthenticated(ctx, device.ID, now); err != nil {
		logger.WarnContext(ctx, "device authentication timestamp not recorded", "device_id", device.ID, "error", err)
	} else {
		device.LastAuthenticatedAt = &now
	}
	return device, nil
}

func parseUID(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", &Error{Code: ErrMissingDeviceUID}
	}
	uid, err := deviceuid.Canonical(raw)
	if err != nil {
		return "", &Error{Code: ErrInvalidDeviceUID}
	}
	return uid, nil
}

func cleanName(name *string) *string {
	if name == nil {
		return nil
	}
	value := validation.SanitizeText(*name)
	if value == "" {
		return nil
	}
	return &value
}
