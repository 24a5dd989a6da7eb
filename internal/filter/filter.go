// Package filter evaluates catalog properties against the composite
// search criteria selected in the UI. Apply is a pure function: the same
// state over the same catalog always yields the same result, and the
// result preserves catalog order.
package filter

import (
	"strings"

	"manzil/pkg/domain"
)

// FloorRule is one of the composable floor constraints. Selected rules
// are AND-composed: every selected rule must pass.
type FloorRule string

const (
	FloorNotFirst FloorRule = "not-first"
	FloorNotLast  FloorRule = "not-last"
	FloorOnlyLast FloorRule = "only-last"
)

// ParseFloorRule validates a raw floor rule value.
func ParseFloorRule(raw string) (FloorRule, bool) {
	switch FloorRule(raw) {
	case FloorNotFirst, FloorNotLast, FloorOnlyLast:
		return FloorRule(raw), true
	default:
		return "", false
	}
}

// TypeAll disables the property-type and room-count selectors.
const TypeAll = "all"

// State is the composite filter. Zero values mean "no constraint" for
// every field except the price bounds, which are always applied.
type State struct {
	Query        string
	PropertyType string
	Rooms        string
	PriceMin     int64
	PriceMax     int64
	HouseTypes   []domain.HouseType
	FloorRules   []FloorRule
}

// Normalize orders the price bounds low-to-high regardless of the order
// the slider produced them in.
func (s *State) Normalize() {
	if s.PriceMax < s.PriceMin {
		s.PriceMin, s.PriceMax = s.PriceMax, s.PriceMin
	}
}

// Matches reports whether a single property satisfies every active
// predicate. Predicates are independent and side-effect-free, so the
// evaluation order is just short-circuit convenience.
func (s State) Matches(p domain.Property) bool {
	if q := strings.TrimSpace(s.Query); q != "" {
		q = strings.ToLower(q)
		if !strings.Contains(strings.ToLower(p.District), q) &&
			!strings.Contains(strings.ToLower(p.City), q) &&
			!strings.Contains(strings.ToLower(p.Landmark), q) {
			return false
		}
	}
	if s.PropertyType != "" && s.PropertyType != TypeAll && string(p.Type) != s.PropertyType {
		return false
	}
	if s.Rooms != "" && s.Rooms != TypeAll && string(p.Rooms) != s.Rooms {
		return false
	}
	// A zero pair means the price slider was never touched.
	if s.PriceMin != 0 || s.PriceMax != 0 {
		if p.Price < s.PriceMin || p.Price > s.PriceMax {
			return false
		}
	}
	if len(s.HouseTypes) > 0 && !containsHouseType(s.HouseTypes, p.HouseType) {
		return false
	}
	for _, rule := range s.FloorRules {
		switch rule {
		case FloorNotFirst:
			if p.Floor == 1 {
				return false
			}
		case FloorNotLast:
			if p.Floor == p.TotalFloors {
				return false
			}
		case FloorOnlyLast:
			if p.Floor != p.TotalFloors {
				return false
			}
		}
	}
	return true
}

// Apply returns the ordered subsequence of catalog satisfying the state.
// The catalog slice is never mutated.
func Apply(catalog []domain.Property, s State) []domain.Property {
	s.Normalize()
	out := make([]domain.Property, 0, len(catalog))
	for _, p := range catalog {
		if s.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

func containsHouseType(set []domain.HouseType, ht domain.HouseType) bool {
	for _, h := range set {
		if h == ht {
			return true
		}
	}
	return false
}
