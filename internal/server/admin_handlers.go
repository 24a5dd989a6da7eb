package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"manzil/internal/authclient"
	"manzil/internal/store"
	"manzil/pkg/domain"
)

func (s *Server) handleAdminListings(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if s.cache != nil {
		if listings, ok := s.cache.GetAll(); ok {
			writeJSON(w, http.StatusOK, listResponse[domain.Listing]{Items: listings, Count: len(listings)})
			return
		}
	}
	listings, err := s.store.ListAll()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if s.cache != nil {
		s.cache.SetAll(listings)
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Listing]{Items: listings, Count: len(listings)})
}

// handleAdminListingByID serves /api/admin/listings/{id} and
// /api/admin/listings/{id}/status.
func (s *Server) handleAdminListingByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/admin/listings/")
	if id, ok := strings.CutSuffix(rest, "/status"); ok {
		s.setListingStatus(w, r, user, id)
		return
	}
	id := rest
	listing, found, err := s.store.GetListing(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, listing)
	case http.MethodPut:
		var patch listingPatch
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		merged, msg := applyListingPatch(listing, patch, true)
		if msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		merged.UpdatedAt = time.Now().UTC()
		if err := s.store.UpdateListing(merged); err != nil {
			writeStoreError(w, err)
			return
		}
		s.invalidate(listing.OwnerID)
		s.audit(r, "manzil.admin.listing.update", "success", "user_id", user.ID, "listing_id", id)
		writeJSON(w, http.StatusOK, merged)
	case http.MethodDelete:
		if err := s.store.DeleteListing(id); err != nil {
			writeStoreError(w, err)
			return
		}
		s.invalidate(listing.OwnerID)
		s.audit(r, "manzil.admin.listing.delete", "success", "user_id", user.ID, "listing_id", id)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) setListingStatus(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	status, ok := domain.ParseListingStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown status: "+req.Status)
		return
	}
	listing, found, err := s.store.GetListing(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err := s.store.SetStatus(id, status); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeStoreError(w, err)
		return
	}
	s.invalidate(listing.OwnerID)
	s.audit(r, "manzil.admin.listing.status", "success",
		"user_id", user.ID, "listing_id", id, "status", string(status))
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(status)})
}

type bulkStatusRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
}

func (s *Server) handleBulkStatus(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req bulkStatusRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids must not be empty")
		return
	}
	status, ok := domain.ParseListingStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown status: "+req.Status)
		return
	}
	owners := s.ownersOf(req.IDs)
	result, err := s.store.BulkSetStatus(req.IDs, status)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidate(owners...)
	s.audit(r, "manzil.admin.bulk.status", "success",
		"user_id", user.ID, "status", string(status),
		"requested", result.Requested, "updated", result.Updated, "failed", result.Failed)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids must not be empty")
		return
	}
	owners := s.ownersOf(req.IDs)
	result, err := s.store.BulkDeleteListings(req.IDs)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidate(owners...)
	s.audit(r, "manzil.admin.bulk.delete", "success",
		"user_id", user.ID,
		"requested", result.Requested, "updated", result.Updated, "failed", result.Failed)
	writeJSON(w, http.StatusOK, result)
}

// ownersOf resolves owner ids for cache invalidation before a bulk
// mutation removes or changes the rows. Lookup errors are ignored; a
// missed owner only means a stale per-owner cache entry until TTL.
func (s *Server) ownersOf(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var owners []string
	for _, id := range ids {
		listing, found, err := s.store.GetListing(id)
		if err != nil || !found {
			continue
		}
		if _, dup := seen[listing.OwnerID]; dup {
			continue
		}
		seen[listing.OwnerID] = struct{}{}
		owners = append(owners, listing.OwnerID)
	}
	return owners
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	counts, err := s.store.StatusCounts()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	total := 0
	byStatus := make(map[string]int, len(counts))
	for status, n := range counts {
		byStatus[string(status)] = n
		total += n
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": total, "byStatus": byStatus})
}

type adminUser struct {
	domain.User
	Roles []domain.Role `json:"roles"`
}

// handleAdminUsers joins the identity platform's account list with the
// locally stored role assignments.
func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	token, _ := bearerToken(r)
	users, err := s.auth.ListUsers(token)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	assignments, err := s.store.ListRoles()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	rolesByUser := make(map[string][]domain.Role)
	for _, a := range assignments {
		rolesByUser[a.UserID] = append(rolesByUser[a.UserID], a.Role)
	}
	items := make([]adminUser, 0, len(users))
	for _, u := range users {
		roles := rolesByUser[u.ID]
		if roles == nil {
			roles = []domain.Role{}
		}
		items = append(items, adminUser{User: u, Roles: roles})
	}
	writeJSON(w, http.StatusOK, listResponse[adminUser]{Items: items, Count: len(items)})
}

// handleAdminUserRoles grants roles via POST /api/admin/users/{id}/roles
// and revokes via DELETE /api/admin/users/{id}/roles/{role}. Both are
// idempotent.
func (s *Server) handleAdminUserRoles(w http.ResponseWriter, r *http.Request, user domain.User) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/admin/users/")

	switch r.Method {
	case http.MethodPost:
		targetID, ok := strings.CutSuffix(rest, "/roles")
		if !ok || targetID == "" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		var req struct {
			Role string `json:"role"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		role, ok := domain.ParseRole(req.Role)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown role: "+req.Role)
			return
		}
		if err := s.store.AddRole(targetID, role); err != nil {
			writeStoreError(w, err)
			return
		}
		s.audit(r, "manzil.admin.role.add", "success",
			"user_id", user.ID, "target_id", targetID, "role", string(role))
		writeJSON(w, http.StatusOK, map[string]string{"userId": targetID, "role": string(role)})
	case http.MethodDelete:
		targetID, rawRole, found := strings.Cut(rest, "/roles/")
		if !found || targetID == "" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		role, ok := domain.ParseRole(rawRole)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown role: "+rawRole)
			return
		}
		if err := s.store.RemoveRole(targetID, role); err != nil {
			writeStoreError(w, err)
			return
		}
		s.audit(r, "manzil.admin.role.remove", "success",
			"user_id", user.ID, "target_id", targetID, "role", string(role))
		writeJSON(w, http.StatusOK, map[string]string{"userId": targetID, "role": string(role)})
	default:
		methodNotAllowed(w)
	}
}

// writeAuthError maps identity platform failures, passing the platform's
// own message through on a 502 so operators see the real cause.
func writeAuthError(w http.ResponseWriter, err error) {
	var apiErr *authclient.APIError
	if errors.As(err, &apiErr) {
		writeError(w, http.StatusBadGateway, apiErr.Message)
		return
	}
	writeError(w, http.StatusBadGateway, "identity service unavailable")
}
