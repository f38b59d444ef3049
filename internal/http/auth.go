package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/audit"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/auth"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/crypto"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/repository"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/validation"
)

type signUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresAt    int64       `json:"expires_at"`
	User         userSummary `json:"user"`
}

type userSummary struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type currentSessionResponse struct {
	User      userSummary `json:"user"`
	Role      model.Role  `json:"role"`
	ExpiresAt int64       `json:"expires_at"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	email, err := validation.Email(req.Email)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_email")
		return
	}
	if err := validation.SignupPassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, "weak_password")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	user, err := s.store.CreateUser(r.Context(), model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    validation.SanitizeText(req.FirstName),
		LastName:     validation.SanitizeText(req.LastName),
	}, model.RoleStandardUser)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			writeError(w, http.StatusConflict, "email_taken")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp, err := s.issueTokens(r.Context(), user, model.RoleStandardUser, r.UserAgent(), clientIP(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}
	s.metrics.AuthEvent("signup")
	s.record(r.Context(), audit.Event{Type: audit.EventAuthentication, Action: "signup", UserID: user.ID, Email: user.Email, RemoteAddr: clientIP(r)})
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.failedLogin(r, req.Email)
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if err := crypto.CheckPassword(user.PasswordHash, req.Password); err != nil {
		s.failedLogin(r, req.Email)
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	role, err := s.store.GetRole(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp, err := s.issueTokens(r.Context(), user, role, r.UserAgent(), clientIP(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}
	s.metrics.AuthEvent("login")
	s.record(r.Context(), audit.Event{Type: audit.EventAuthentication, Action: "login", UserID: user.ID, Email: user.Email, RemoteAddr: clientIP(r)})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) failedLogin(r *http.Request, email string) {
	s.metrics.AuthEvent("failed_login")
	s.record(r.Context(), audit.Event{Type: audit.EventAuthentication, Action: "failed_login", Email: email, RemoteAddr: clientIP(r)})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "missing_refresh_token")
		return
	}

	tokenHash, err := crypto.RefreshTokenHash(req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token")
		return
	}
	session, err := s.store.GetRefreshSession(r.Context(), tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid_refresh_token")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if session.RevokedAt != nil || session.ExpiresAt.Before(time.Now().UTC()) {
		writeError(w, http.StatusUnauthorized, "refresh_token_expired")
		return
	}

	user, err := s.store.GetUserByID(r.Context(), session.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "user_not_found")
		return
	}
	role, err := s.store.GetRole(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if err := s.store.RevokeRefreshSession(r.Context(), session.ID, time.Now().UTC()); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp, err := s.issueTokens(r.Context(), user, role, r.UserAgent(), clientIP(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req logoutRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.RefreshToken != "" {
		if tokenHash, err := crypto.RefreshTokenHash(req.RefreshToken); err == nil {
			session, err := s.store.GetRefreshSession(r.Context(), tokenHash)
			if err == nil && session.UserID == claims.UserID {
				_ = s.store.RevokeRefreshSession(r.Context(), session.ID, time.Now().UTC())
			}
		}
	}

	s.metrics.AuthEvent("logout")
	s.record(r.Context(), audit.Event{Type: audit.EventAuthentication, Action: "logout", UserID: claims.UserID, Email: claims.Email, RemoteAddr: clientIP(r)})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "user_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	var expiresAt int64
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Unix()
	}
	writeJSON(w, http.StatusOK, currentSessionResponse{
		User:      summarizeUser(user),
		Role:      claims.Role,
		ExpiresAt: expiresAt,
	})
}

func (s *Server) issueTokens(ctx context.Context, user model.User, role model.Role, userAgent, ip string) (sessionResponse, error) {
	accessToken, expiresAt, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.AccessTokenTTL, auth.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   role,
	})
	if err != nil {
		return sessionResponse{}, err
	}

	refreshToken, err := crypto.IssueRefreshToken()
	if err != nil {
		return sessionResponse{}, err
	}

	now := time.Now().UTC()
	session := model.RefreshSession{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: refreshToken.Hash,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	}
	if userAgent != "" {
		session.UserAgent = &userAgent
	}
	if ip != "" {
		session.IPAddress = &ip
	}
	if err := s.store.CreateRefreshSession(ctx, session); err != nil {
		return sessionResponse{}, err
	}

	return sessionResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken.Value,
		TokenType:    "bearer",
		ExpiresAt:    expiresAt.Unix(),
		User:         summarizeUser(user),
	}, nil
}

func summarizeUser(user model.User) userSummary {
	return userSummary{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
}
