package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/operations"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/repository"
)

type getUserRoleRequest struct {
	UserID string `json:"user_id"`
}

type getUserRoleResponse struct {
	Role model.Role `json:"role"`
}

type assignDeviceRequest struct {
	DeviceUID string `json:"device_uid"`
}

// handleGetUserRole answers the role of a user. Users may ask about
// themselves; staff may ask about anyone.
func (s *Server) handleGetUserRole(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	var req getUserRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "missing_user_id")
		return
	}
	if req.UserID != claims.UserID && !claims.Role.CanViewAdminData() {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	role, err := s.store.GetRole(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, getUserRoleResponse{Role: role})
}

func (s *Server) handleAssignDevice(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	var req assignDeviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	device, err := operations.LinkDeviceToUser(r.Context(), s.store, req.DeviceUID, claims.UserID)
	if err != nil {
		s.metrics.DeviceOperation("link", operations.Code(err))
		writeOperationError(w, err)
		return
	}
	s.metrics.DeviceOperation("link", "success")
	writeJSON(w, http.StatusOK, s.mapDevice(device))
}
