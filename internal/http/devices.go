package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/operations"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/repository"
)

type createDeviceRequest struct {
	UID         string  `json:"uid_96bit"`
	DeviceName  *string `json:"device_name"`
	OwnerUserID *string `json:"owner_user_id"`
}

type patchDeviceRequest struct {
	IsActive *bool `json:"is_active"`
}

type deviceAuthRequest struct {
	UID string `json:"uid_96bit"`
}

type deviceResponse struct {
	ID                  string             `json:"id"`
	UID                 string             `json:"uid_96bit"`
	DeviceName          *string            `json:"device_name"`
	OwnerUserID         *string            `json:"owner_user_id"`
	IsActive            bool               `json:"is_active"`
	Status              model.DeviceStatus `json:"status"`
	LastAuthenticatedAt *string            `json:"last_authenticated_at"`
	AssignedAt          *string            `json:"assigned_at"`
	CreatedAt           string             `json:"created_at"`
	UpdatedAt           string             `json:"updated_at"`
}

type deviceAuthResponse struct {
	IsValid         bool    `json:"is_valid"`
	Message         string  `json:"message"`
	DeviceID        string  `json:"device_id"`
	DeviceName      *string `json:"device_name"`
	OwnerUserID     *string `json:"owner_user_id"`
	AuthenticatedAt *string `json:"authenticated_at"`
}

var deviceErrorStatus = map[string]int{
	operations.ErrMissingDeviceUID:      http.StatusBadRequest,
	operations.ErrInvalidDeviceUID:      http.StatusBadRequest,
	operations.ErrDeviceNotFound:        http.StatusNotFound,
	operations.ErrDeviceUIDExists:       http.StatusConflict,
	operations.ErrDeviceAlreadyOwned:    http.StatusConflict,
	operations.ErrDeviceActiveElsewhere: http.StatusConflict,
	operations.ErrOwnerNotFound:         http.StatusUnprocessableEntity,
}

func writeOperationError(w http.ResponseWriter, err error) {
	code := operations.Code(err)
	status, ok := deviceErrorStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeError(w, status, code)
}

func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req createDeviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	owner := req.OwnerUserID
	staff := claims.Role.CanViewAdminData()
	switch {
	case owner == nil && !staff:
		owner = &claims.UserID
	case owner != nil && *owner != claims.UserID && !staff:
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	device, err := operations.RegisterDevice(r.Context(), s.store, owner, req.UID, req.DeviceName)
	if err != nil {
		s.metrics.DeviceOperation("register", operations.Code(err))
		writeOperationError(w, err)
		return
	}
	s.metrics.DeviceOperation("register", "success")
	writeJSON(w, http.StatusCreated, s.mapDevice(device))
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = claims.UserID
	}
	if owner != claims.UserID && !claims.Role.CanViewAdminData() {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if _, err := uuid.Parse(owner); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_owner")
		return
	}

	devices, err := s.store.ListDevices(r.Context(), owner)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "invalid_owner")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	resp := make([]deviceResponse, 0, len(devices))
	for _, device := range devices {
		resp = append(resp, s.mapDevice(device))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePatchDevice(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	var req patchDeviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "missing_is_active")
		return
	}

	device, ok := s.loadOwnedDevice(w, r, claims.UserID, claims.Role)
	if !ok {
		return
	}
	updated, err := s.store.SetDeviceActive(r.Context(), device.ID, *req.IsActive, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, operations.ErrDeviceNotFound)
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, s.mapDevice(updated))
}

func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	device, ok := s.loadOwnedDevice(w, r, claims.UserID, claims.Role)
	if !ok {
		return
	}
	if err := s.store.DeleteDevice(r.Context(), device.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, operations.ErrDeviceNotFound)
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadOwnedDevice fetches the device named in the path and checks that the
// caller owns it or is staff.
func (s *Server) loadOwnedDevice(w http.ResponseWriter, r *http.Request, userID string, role model.Role) (model.Device, bool) {
	deviceID := chi.URLParam(r, "deviceId")
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "missing_device_id")
		return model.Device{}, false
	}
	device, err := s.store.GetDevice(r.Context(), deviceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, operations.ErrDeviceNotFound)
			return model.Device{}, false
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return model.Device{}, false
	}
	owned := device.OwnerUserID != nil && *device.OwnerUserID == userID
	if !owned && !role.CanViewAdminData() {
		writeError(w, http.StatusForbidden, "forbidden")
		return model.Device{}, false
	}
	return device, true
}

var deviceAuthMessages = map[string]string{
	operations.ErrMissingDeviceUID: "UID is required",
	operations.ErrInvalidDeviceUID: "Invalid UID format. Must be 24 hexadecimal characters.",
	operations.ErrDeviceNotFound:   "Device not found or inactive",
	operations.ErrServerError:      "Authentication failed",
}

// handleDeviceAuth is called by the device itself, without a user session.
func (s *Server) handleDeviceAuth(w http.ResponseWriter, r *http.Request) {
	allowed, err := s.limiter.Allow(r.Context(), clientIP(r))
	if err != nil {
		s.logger.WarnContext(r.Context(), "device auth rate limiter unavailable", "error", err)
	}
	if !allowed {
		s.metrics.DeviceAuth("rate_limited")
		writeDeviceAuthFailure(w, http.StatusTooManyRequests, "too_many_attempts", "Too many authentication attempts")
		return
	}

	var req deviceAuthRequest
	if err := decodeJSON(r, &req); err != nil {
		s.metrics.DeviceAuth("invalid_request")
		writeDeviceAuthFailure(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	device, err := operations.AuthenticateDevice(r.Context(), s.store, req.UID, s.logger)
	if err != nil {
		code := operations.Code(err)
		s.metrics.DeviceAuth(code)
		status := http.StatusInternalServerError
		switch code {
		case operations.ErrMissingDeviceUID, operations.ErrInvalidDeviceUID:
			status = http.StatusBadRequest
		case operations.ErrDeviceNotFound:
			status = http.StatusUnauthorized
		}
		writeDeviceAuthFailure(w, status, code, deviceAuthMessages[code])
		return
	}

	s.metrics.DeviceAuth("success")
	s.logger.InfoContext(r.Context(), "device authenticated", "device_id", device.ID)
	writeJSON(w, http.StatusOK, deviceAuthResponse{
		IsValid:         true,
		Message:         "Authentication successful",
		DeviceID:        device.ID,
		DeviceName:      device.Name,
		OwnerUserID:     device.OwnerUserID,
		AuthenticatedAt: formatTimePtr(device.LastAuthenticatedAt),
	})
}

func writeDeviceAuthFailure(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{"is_valid": false, "error": code, "message": message})
}

func (s *Server) mapDevice(device model.Device) deviceResponse {
	return deviceResponse{
		ID:                  device.ID,
		UID:                 device.UID,
		DeviceName:          device.Name,
		OwnerUserID:         device.OwnerUserID,
		IsActive:            device.Active,
		Status:              device.Status(time.Now().UTC(), s.cfg.DeviceOnlineWindow),
		LastAuthenticatedAt: formatTimePtr(device.LastAuthenticatedAt),
		AssignedAt:          formatTimePtr(device.AssignedAt),
		CreatedAt:           formatTime(device.CreatedAt),
		UpdatedAt:           formatTime(device.UpdatedAt),
	}
}
