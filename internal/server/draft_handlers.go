package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"manzil/internal/drafts"
)

// Draft and favorite endpoints are scoped to a device, not a user; the
// client identifies its slot with the X-Device-Id header.

func (s *Server) handleDrafts(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := s.deviceID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		items, err := s.drafts.List(deviceID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not read drafts")
			return
		}
		writeJSON(w, http.StatusOK, listResponse[drafts.Draft]{Items: items, Count: len(items)})
	case http.MethodPost:
		var fields drafts.Fields
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&fields); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		draft, err := s.drafts.Add(deviceID, fields)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not save draft")
			return
		}
		s.audit(r, "manzil.draft.create", "success", "device_id", deviceID, "draft_id", draft.ID)
		writeJSON(w, http.StatusCreated, draft)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleDraftByID(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := s.deviceID(w, r)
	if !ok {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/drafts/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "draft id is required")
		return
	}
	switch r.Method {
	case http.MethodGet:
		draft, err := s.drafts.Get(deviceID, id)
		if err != nil {
			writeDraftError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, draft)
	case http.MethodPut:
		var patch drafts.Patch
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		draft, err := s.drafts.Update(deviceID, id, patch)
		if err != nil {
			writeDraftError(w, err)
			return
		}
		s.audit(r, "manzil.draft.update", "success", "device_id", deviceID, "draft_id", id)
		writeJSON(w, http.StatusOK, draft)
	case http.MethodDelete:
		if err := s.drafts.Delete(deviceID, id); err != nil {
			writeDraftError(w, err)
			return
		}
		s.audit(r, "manzil.draft.delete", "success", "device_id", deviceID, "draft_id", id)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := s.deviceID(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	ids, err := s.drafts.Favorites(deviceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not read favorites")
		return
	}
	writeJSON(w, http.StatusOK, listResponse[int]{Items: ids, Count: len(ids)})
}

// handleFavoriteToggle flips membership of one catalog property in the
// device's favorites set and reports the resulting state.
func (s *Server) handleFavoriteToggle(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := s.deviceID(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/api/favorites/")
	propertyID, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid property id: "+raw)
		return
	}
	if _, ok := s.catalog.Get(propertyID); !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	favored, err := s.drafts.ToggleFavorite(deviceID, propertyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not update favorites")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"propertyId": propertyID, "favorite": favored})
}

func writeDraftError(w http.ResponseWriter, err error) {
	if errors.Is(err, drafts.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "draft storage error")
}
