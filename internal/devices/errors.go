package devices

import (
	"errors"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/hubclient"
)

// Error is a device outcome the caller can tell apart from a generic failure.
type Error struct {
	code string
	kind hubclient.Kind
}

func (e *Error) Error() string        { return e.code }
func (e *Error) Kind() hubclient.Kind { return e.kind }

var (
	ErrInvalidUID     = &Error{code: "invalid_device_uid", kind: hubclient.KindValidation}
	ErrAlreadyExists  = &Error{code: "device_uid_exists", kind: hubclient.KindConflict}
	ErrOwnedElsewhere = &Error{code: "device_owned_elsewhere", kind: hubclient.KindConflict}
	ErrNotFound       = &Error{code: "device_not_found", kind: hubclient.KindNotFound}
)

// Message turns any error returned by this package into text that can be
// shown to the user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidUID):
		return "UID must be exactly 24 hexadecimal characters (96 bits)."
	case errors.Is(err, ErrAlreadyExists):
		return "This UID is already registered."
	case errors.Is(err, ErrOwnedElsewhere):
		return "This device is already linked to another account."
	case errors.Is(err, ErrNotFound):
		return "Device not found."
	}
	switch hubclient.KindOf(err) {
	case hubclient.KindValidation:
		return "Please check the device details and try again."
	case hubclient.KindAuthorization:
		return "You are not allowed to manage this device. Please sign in again."
	case hubclient.KindNotFound:
		return "Device not found."
	case hubclient.KindConflict:
		return "This device was changed by someone else. Please reload and try again."
	default:
		return "Something went wrong. Please try again later."
	}
}
