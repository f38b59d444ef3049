package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/audit"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/auth"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/config"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/idempotency"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/metrics"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/ratelimit"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/repository"
)

// Options carries the optional collaborators of a Server. Zero values are
// replaced with working defaults.
type Options struct {
	Idempotency *idempotency.Store
	Limiter     *ratelimit.Limiter
	Metrics     *metrics.Metrics
	Audit       audit.Sink
	Logger      *slog.Logger
}

type Server struct {
	cfg     config.Config
	store   repository.Repository
	idem    *idempotency.Store
	limiter *ratelimit.Limiter
	metrics *metrics.Metrics
	audit   audit.Sink
	logger  *slog.Logger
}

func NewServer(cfg config.Config, store repository.Repository, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Audit == nil {
		opts.Audit = audit.NewSlogSink(opts.Logger)
	}
	return &Server{
		cfg:     cfg,
		store:   store,
		idem:    opts.Idempotency,
		limiter: opts.Limiter,
		metrics: opts.Metrics,
		audit:   opts.Audit,
		logger:  opts.Logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if s.cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(s.instrument)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.apiKeyMiddleware)

		r.Post("/auth/signup", s.handleSignUp)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)
		r.With(s.authMiddleware).Post("/auth/logout", s.handleLogout)
		r.With(s.authMiddleware).Get("/auth/session", s.handleSession)

		r.With(s.authMiddleware).Post("/rpc/get_user_role", s.handleGetUserRole)
		r.With(s.authMiddleware).Post("/rpc/assign_device_to_user", s.handleAssignDevice)

		r.Post("/functions/device-auth", s.handleDeviceAuth)
		r.Post("/functions/vehicle-specs", s.handleVehicleSpecs)
		r.With(s.authMiddleware).Get("/vehicle_specifications", s.handleListSpecifications)

		r.Route("/device_uids", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.With(s.idem.Middleware(callerScope)).Post("/", s.handleCreateDevice)
			r.Get("/", s.handleListDevices)
			r.Patch("/{deviceId}", s.handlePatchDevice)
			r.Delete("/{deviceId}", s.handleDeleteDevice)
		})

		r.Route("/alignment_records", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.With(s.idem.Middleware(callerScope)).Post("/", s.handleCreateRecord)
			r.Get("/", s.handleListRecords)
			r.Get("/stats", s.handleRecordStats)
			r.Get("/{recordId}", s.handleGetRecord)
			r.Delete("/{recordId}", s.handleDeleteRecord)
			r.Get("/{recordId}/evaluation", s.handleEvaluateRecord)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authMiddleware, s.requireStaff)
			r.Get("/users", s.handleAdminListUsers)
			r.Get("/alignment_records", s.handleAdminListRecords)
			r.With(s.requireAdmin).Put("/users/{userId}/role", s.handleAdminSetRole)
		})
	})

	return r
}

// Middleware

type claimsKey struct{}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey != "" {
			key := r.Header.Get("apikey")
			if subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.APIKey)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid_api_key")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil || !claims.Role.CanViewAdminData() {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil || claims.Role != model.RoleAdmin {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(r.Method, route, status, time.Since(start))
	})
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

// callerScope partitions idempotency keys per authenticated user.
func callerScope(r *http.Request) string {
	if claims := claimsFromContext(r.Context()); claims != nil {
		return claims.UserID
	}
	return "anonymous"
}

func (s *Server) record(ctx context.Context, event audit.Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit event dropped", "action", event.Action, "error", err)
	}
}

// Utilities

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func writeErrorMessage(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

// clientIP is the peer address. Forwarding headers only reach it through
// middleware.RealIP when TrustProxyHeaders is set.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	value := formatTime(*t)
	return &value
}
