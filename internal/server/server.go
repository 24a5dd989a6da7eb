// Package server exposes the HTTP API: catalog search, listing CRUD,
// device drafts, and the moderation surface.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"manzil/internal/authclient"
	"manzil/internal/cache"
	"manzil/internal/catalog"
	"manzil/internal/drafts"
	"manzil/internal/ratelimit"
	"manzil/internal/storage"
	"manzil/internal/store"
	"manzil/internal/usertoken"
	"manzil/internal/util"
	"manzil/pkg/domain"
)

const deviceIDHeader = "X-Device-Id"

// Config wires required dependencies for the HTTP server.
type Config struct {
	Store                  store.Store
	Catalog                *catalog.Catalog
	Drafts                 *drafts.Store
	Auth                   *authclient.Client
	TokenVerifier          *usertoken.Verifier
	Objects                storage.ObjectStore
	Cache                  *cache.ListingCache
	SubmitLimiter          *ratelimit.FixedWindowLimiter
	MaxUploadBytes         int64
	AllowedImageExtensions []string
}

// Server exposes HTTP endpoints for the classifieds backend.
type Server struct {
	store         store.Store
	catalog       *catalog.Catalog
	drafts        *drafts.Store
	auth          *authclient.Client
	tokenVerifier *usertoken.Verifier
	objects       storage.ObjectStore
	cache         *cache.ListingCache
	invalidate    cache.Invalidator
	submitLimiter *ratelimit.FixedWindowLimiter
	mux           *http.ServeMux

	maxUploadBytes    int64
	allowedExtensions map[string]struct{}
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		store:             cfg.Store,
		catalog:           cfg.Catalog,
		drafts:            cfg.Drafts,
		auth:              cfg.Auth,
		tokenVerifier:     cfg.TokenVerifier,
		objects:           cfg.Objects,
		cache:             cfg.Cache,
		submitLimiter:     cfg.SubmitLimiter,
		mux:               http.NewServeMux(),
		maxUploadBytes:    normalizeMaxBytes(cfg.MaxUploadBytes),
		allowedExtensions: normalizeExtensions(cfg.AllowedImageExtensions),
	}
	if cfg.Cache != nil {
		s.invalidate = cfg.Cache.Invalidate
	} else {
		s.invalidate = func(...string) {}
	}
	s.routes()
	return s
}

// Router returns the configured handler chain.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog("manzil", s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// catalog (public)
	s.mux.HandleFunc("/api/catalog", s.handleCatalog)
	s.mux.HandleFunc("/api/catalog/search", s.handleCatalogSearch)
	s.mux.HandleFunc("/api/catalog/", s.handleCatalogByID)

	// public browse of active listings
	s.mux.HandleFunc("/api/listings/active", s.handleActiveListings)

	// owner listings (auth required)
	s.mux.Handle("/api/listings", s.authenticated(s.handleListings))
	s.mux.Handle("/api/listings/", s.authenticated(s.handleListingByID))
	s.mux.Handle("/api/me/capabilities", s.authenticated(s.handleCapabilities))

	// device-scoped drafts and favorites
	s.mux.HandleFunc("/api/drafts", s.handleDrafts)
	s.mux.HandleFunc("/api/drafts/", s.handleDraftByID)
	s.mux.HandleFunc("/api/favorites", s.handleFavorites)
	s.mux.HandleFunc("/api/favorites/", s.handleFavoriteToggle)

	// moderation surface
	s.mux.Handle("/api/admin/listings", s.withRole(s.handleAdminListings, domain.RoleAdmin, domain.RoleModerator))
	s.mux.Handle("/api/admin/listings/bulk/status", s.withRole(s.handleBulkStatus, domain.RoleAdmin, domain.RoleModerator))
	s.mux.Handle("/api/admin/listings/bulk/delete", s.withRole(s.handleBulkDelete, domain.RoleAdmin, domain.RoleModerator))
	s.mux.Handle("/api/admin/listings/", s.withRole(s.handleAdminListingByID, domain.RoleAdmin, domain.RoleModerator))
	s.mux.Handle("/api/admin/stats", s.withRole(s.handleAdminStats, domain.RoleAdmin, domain.RoleModerator))
	s.mux.Handle("/api/admin/users", s.withRole(s.handleAdminUsers, domain.RoleAdmin))
	s.mux.Handle("/api/admin/users/", s.withRole(s.handleAdminUserRoles, domain.RoleAdmin))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

// withRole gates a handler behind role membership. The check runs once
// per request against the flat assignment list; any of the given roles
// grants access.
func (s *Server) withRole(next authHandler, roles ...domain.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		allowed, err := s.hasAnyRole(user.ID, roles...)
		if err != nil {
			s.audit(r, "manzil.role.check", "error", "user_id", user.ID, "reason", err.Error())
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		if !allowed {
			s.audit(r, "manzil.role.check", "fail", "user_id", user.ID, "reason", "forbidden")
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) authorize(r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		s.audit(r, "manzil.token.verify", "fail", "reason", "missing_token")
		return domain.User{}, false
	}
	if s.tokenVerifier != nil {
		if _, err := s.tokenVerifier.VerifySubject(token); err != nil {
			s.audit(r, "manzil.token.verify", "fail", "reason", "invalid_signature_or_claims")
			return domain.User{}, false
		}
	}
	user, err := s.auth.Me(token)
	if err != nil {
		s.audit(r, "manzil.token.verify", "fail", "reason", "identity_me_failed")
		return domain.User{}, false
	}
	return user, true
}

func (s *Server) hasAnyRole(userID string, roles ...domain.Role) (bool, error) {
	for _, role := range roles {
		has, err := s.store.HasRole(userID, role)
		if err != nil {
			return false, err
		}
		if has {
			return true, nil
		}
	}
	return false, nil
}

// isModerator reports whether the user may act on listings they do not own.
func (s *Server) isModerator(userID string) bool {
	allowed, err := s.hasAnyRole(userID, domain.RoleAdmin, domain.RoleModerator)
	return err == nil && allowed
}

func (s *Server) deviceID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(deviceIDHeader))
	if id == "" {
		writeError(w, http.StatusBadRequest, deviceIDHeader+" header is required")
		return "", false
	}
	return id, true
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	slog.Info("audit", logAttrs...)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps a persistence failure onto the API surface. The
// backend's message is surfaced verbatim; the operation is abandoned.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		return
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func normalizeMaxBytes(value int64) int64 {
	if value <= 0 {
		return 10 * 1024 * 1024
	}
	return value
}

func normalizeExtensions(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		exts = []string{".jpg", ".jpeg", ".png", ".webp"}
	}
	out := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = struct{}{}
	}
	return out
}
