// Package devices registers, lists, updates and links alignment devices
// through the hub. Every UID is validated and canonicalised locally before a
// request is sent. The client keeps no local copy of device state; callers
// re-list after each change.
package devices

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/deviceuid"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/hubclient"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/idempotency"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
)

// Hub is the part of hubclient.Client used by this package.
type Hub interface {
	Do(ctx context.Context, method, path string, body, out interface{}, opts ...hubclient.RequestOption) error
}

type Client struct {
	hub      Hub
	register singleflight.Group
}

func NewClient(hub Hub) *Client {
	return &Client{hub: hub}
}

type Device struct {
	ID                  string             `json:"id"`
	UID                 string             `json:"uid_96bit"`
	Name                *string            `json:"device_name"`
	OwnerUserID         *string            `json:"owner_user_id"`
	Active              bool               `json:"is_active"`
	Status              model.DeviceStatus `json:"status"`
	LastAuthenticatedAt *time.Time         `json:"last_authenticated_at"`
	AssignedAt          *time.Time         `json:"assigned_at"`
	CreatedAt           time.Time          `json:"created_at"`
}

// DisplayUID is the UID grouped for humans.
func (d Device) DisplayUID() string {
	return deviceuid.Format(d.UID)
}

// AuthResult is the outcome of a device authentication probe.
type AuthResult struct {
	Valid           bool       `json:"is_valid"`
	Message         string     `json:"message"`
	DeviceID        string     `json:"device_id"`
	DeviceName      *string    `json:"device_name"`
	OwnerUserID     *string    `json:"owner_user_id"`
	AuthenticatedAt *time.Time `json:"authenticated_at"`
}

// RegisterOption adjusts a single Register call.
type RegisterOption func(*registerOptions)

type registerOptions struct {
	submissionKey string
}

// WithSubmissionKey sets the Idempotency-Key sent with the registration. Use
// the same key when the user resubmits one form so the hub replays its answer.
func WithSubmissionKey(key string) RegisterOption {
	return func(o *registerOptions) { o.submissionKey = key }
}

// Register creates a device row. ownerID may be empty for staff callers
// registering an unlinked device. Concurrent calls with the same owner, UID,
// name and submission key share a single request. A request whose response
// is lost in transit is sent once more under the same Idempotency-Key.
func (c *Client) Register(ctx context.Context, ownerID, rawUID, name string, opts ...RegisterOption) (Device, error) {
	uid, err := deviceuid.Canonical(rawUID)
	if err != nil {
		return Device{}, ErrInvalidUID
	}
	var options registerOptions
	for _, opt := range opts {
		opt(&options)
	}
	body := map[string]interface{}{"uid_96bit": uid}
	if name != "" {
		body["device_name"] = name
	}
	if ownerID != "" {
		body["owner_user_id"] = ownerID
	}

	flightKey := strings.Join([]string{ownerID, uid, name, options.submissionKey}, "\x00")
	result, err, _ := c.register.Do(flightKey, func() (interface{}, error) {
		key := options.submissionKey
		if key == "" {
			key = uuid.NewString()
		}
		var device Device
		var err error
		for attempt := 1; attempt <= registerAttempts; attempt++ {
			err = c.hub.Do(ctx, http.MethodPost, "/device_uids", body, &device,
				hubclient.WithHeader(idempotency.HeaderKey, key))
			if !retryable(ctx, err) {
				break
			}
		}
		return device, err
	})
	if err != nil {
		if hubclient.KindOf(err) == hubclient.KindConflict {
			return Device{}, ErrAlreadyExists
		}
		return Device{}, err
	}
	return result.(Device), nil
}

const registerAttempts = 2

// retryable reports whether err is a transport failure with no hub response.
func retryable(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	var apiErr *hubclient.APIError
	if errors.As(err, &apiErr) {
		return false
	}
	return hubclient.KindOf(err) == hubclient.KindTransport
}

// List returns ownerID's devices, newest first. An empty ownerID lists the
// caller's own devices.
func (c *Client) List(ctx context.Context, ownerID string) ([]Device, error) {
	path := "/device_uids"
	if ownerID != "" {
		path += "?owner=" + url.QueryEscape(ownerID)
	}
	var devices []Device
	if err := c.hub.Do(ctx, http.MethodGet, path, nil, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

func (c *Client) SetActive(ctx context.Context, deviceID string, active bool) (Device, error) {
	var device Device
	err := c.hub.Do(ctx, http.MethodPatch, "/device_uids/"+url.PathEscape(deviceID), map[string]bool{"is_active": active}, &device)
	if err != nil {
		return Device{}, mapNotFound(err)
	}
	return device, nil
}

// Delete removes a device. A device that is already gone yields ErrNotFound.
func (c *Client) Delete(ctx context.Context, deviceID string) error {
	err := c.hub.Do(ctx, http.MethodDelete, "/device_uids/"+url.PathEscape(deviceID), nil, nil)
	return mapNotFound(err)
}

// Authenticate asks the hub whether uid belongs to an active device. It is
// sent without the user's session. A rejected device is a result, not an
// error.
func (c *Client) Authenticate(ctx context.Context, rawUID string) (AuthResult, error) {
	uid, err := deviceuid.Canonical(rawUID)
	if err != nil {
		return AuthResult{}, ErrInvalidUID
	}
	var result AuthResult
	err = c.hub.Do(ctx, http.MethodPost, "/functions/device-auth", map[string]string{"uid_96bit": uid}, &result, hubclient.Anonymous())
	if err != nil {
		var apiErr *hubclient.APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized) {
			return AuthResult{Valid: false, Message: apiErr.Message}, nil
		}
		return AuthResult{}, err
	}
	return result, nil
}

// LinkToCurrentUser makes the signed-in user the owner of uid.
func (c *Client) LinkToCurrentUser(ctx context.Context, rawUID string) (Device, error) {
	uid, err := deviceuid.Canonical(rawUID)
	if err != nil {
		return Device{}, ErrInvalidUID
	}
	var device Device
	err = c.hub.Do(ctx, http.MethodPost, "/rpc/assign_device_to_user", map[string]string{"device_uid": uid}, &device)
	switch {
	case err == nil:
		return device, nil
	case hubclient.IsCode(err, "device_already_owned"), hubclient.IsCode(err, "device_active_elsewhere"):
		return Device{}, ErrOwnedElsewhere
	default:
		return Device{}, mapNotFound(err)
	}
}

func mapNotFound(err error) error {
	if err != nil && hubclient.KindOf(err) == hubclient.KindNotFound {
		return ErrNotFound
	}
	return err
}
