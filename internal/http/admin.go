package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/audit"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/repository"
)

type adminUserResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Role      model.Role `json:"role"`
	CreatedAt string     `json:"created_at"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

type setRoleResponse struct {
	UserID string     `json:"user_id"`
	Role   model.Role `json:"role"`
}

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	resp := make([]adminUserResponse, 0, len(users))
	for _, user := range users {
		resp = append(resp, adminUserResponse{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Role:      user.Role,
			CreatedAt: formatTime(user.CreatedAt),
		})
	}
	s.record(r.Context(), audit.Event{Type: audit.EventDataAccess, Action: "list_users", UserID: claims.UserID, Email: claims.Email})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdminListRecords(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	records, err := s.store.ListAllRecords(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	resp := make([]recordResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, mapRecord(record.AlignmentRecord, record.OwnerEmail))
	}
	s.record(r.Context(), audit.Event{Type: audit.EventDataAccess, Action: "list_alignment_records", UserID: claims.UserID, Email: claims.Email})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdminSetRole(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing_user_id")
		return
	}
	var req setRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_role")
		return
	}

	previous, err := s.store.GetRole(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if err := s.store.SetRole(r.Context(), userID, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	s.record(r.Context(), audit.Event{
		Type:     audit.EventRoleChange,
		Action:   "role_updated",
		UserID:   claims.UserID,
		Email:    claims.Email,
		TargetID: userID,
		Details:  map[string]string{"previous_role": string(previous), "new_role": string(role)},
	})
	writeJSON(w, http.StatusOK, setRoleResponse{UserID: userID, Role: role})
}
