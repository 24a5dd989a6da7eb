package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"manzil/internal/filter"
	"manzil/pkg/domain"
)

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	props := s.catalog.Properties()
	writeJSON(w, http.StatusOK, listResponse[domain.Property]{Items: props, Count: len(props)})
}

func (s *Server) handleCatalogSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	state, errMsg := parseFilterState(r)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	matched := filter.Apply(s.catalog.Properties(), state)
	writeJSON(w, http.StatusOK, listResponse[domain.Property]{Items: matched, Count: len(matched)})
}

func (s *Server) handleCatalogByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/api/catalog/")
	id, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid property id")
		return
	}
	prop, ok := s.catalog.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, prop)
}

// parseFilterState maps query parameters onto the filter state. It
// returns a non-empty message on malformed input.
func parseFilterState(r *http.Request) (filter.State, string) {
	q := r.URL.Query()
	state := filter.State{
		Query:        q.Get("query"),
		PropertyType: q.Get("type"),
		Rooms:        q.Get("rooms"),
	}
	if raw := q.Get("priceMin"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return state, "priceMin must be a non-negative number"
		}
		state.PriceMin = n
	}
	if raw := q.Get("priceMax"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return state, "priceMax must be a non-negative number"
		}
		state.PriceMax = n
	} else if state.PriceMin > 0 {
		// lower bound only: leave the range open upward
		state.PriceMax = math.MaxInt64
	}
	for _, raw := range splitParam(q.Get("houseTypes")) {
		switch ht := domain.HouseType(raw); ht {
		case domain.HousePanel, domain.HouseBrick, domain.HouseMonolith, domain.HouseBlock:
			state.HouseTypes = append(state.HouseTypes, ht)
		default:
			return state, "unknown house type: " + raw
		}
	}
	for _, raw := range splitParam(q.Get("floors")) {
		rule, ok := filter.ParseFloorRule(raw)
		if !ok {
			return state, "unknown floor rule: " + raw
		}
		state.FloorRules = append(state.FloorRules, rule)
	}
	return state, ""
}

func splitParam(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}
