// Package drafts persists device-scoped listing drafts and catalog
// favorites. Each device owns one named storage slot: a JSON file holding
// the whole collection, read once on first access and rewritten wholesale
// on every mutation. There is no cross-device reconciliation; the last
// writer wins.
package drafts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"manzil/pkg/domain"
)

// ErrNotFound is returned when a draft id is absent from the device slot.
var ErrNotFound = errors.New("draft not found")

// Fields is the author-editable part of a draft.
type Fields struct {
	ListingType domain.ListingType   `json:"listingType"`
	Type        domain.PropertyType  `json:"propertyType"`
	Price       int64                `json:"price"`
	Rooms       domain.RoomCount     `json:"rooms"`
	Area        float64              `json:"area"`
	Floor       int                  `json:"floor"`
	TotalFloors int                  `json:"totalFloors"`
	City        string               `json:"city"`
	District    string               `json:"district"`
	Address     string               `json:"address,omitempty"`
	Landmark    string               `json:"landmark,omitempty"`
	HouseType   domain.HouseType     `json:"houseType,omitempty"`
	YearBuilt   int                  `json:"yearBuilt,omitempty"`
	Images      []string             `json:"images"`
	Description string               `json:"description,omitempty"`
	Features    []string             `json:"features"`
	Seller      domain.Seller        `json:"seller"`
}

// Draft is one locally persisted listing record.
type Draft struct {
	ID string `json:"id"`
	Fields
	Status    domain.ListingStatus `json:"status"`
	CreatedAt time.Time            `json:"createdAt"`
}

// Patch carries a partial field set for a merge-update. Nil pointers
// leave the existing value untouched.
type Patch struct {
	ListingType *domain.ListingType   `json:"listingType,omitempty"`
	Type        *domain.PropertyType  `json:"propertyType,omitempty"`
	Price       *int64                `json:"price,omitempty"`
	Rooms       *domain.RoomCount     `json:"rooms,omitempty"`
	Area        *float64              `json:"area,omitempty"`
	Floor       *int                  `json:"floor,omitempty"`
	TotalFloors *int                  `json:"totalFloors,omitempty"`
	City        *string               `json:"city,omitempty"`
	District    *string               `json:"district,omitempty"`
	Address     *string               `json:"address,omitempty"`
	Landmark    *string               `json:"landmark,omitempty"`
	HouseType   *domain.HouseType     `json:"houseType,omitempty"`
	YearBuilt   *int                  `json:"yearBuilt,omitempty"`
	Images      *[]string             `json:"images,omitempty"`
	Description *string               `json:"description,omitempty"`
	Features    *[]string             `json:"features,omitempty"`
	Seller      *domain.Seller        `json:"seller,omitempty"`
	Status      *domain.ListingStatus `json:"status,omitempty"`
}

type deviceState struct {
	Drafts    []Draft `json:"drafts"`
	Favorites []int   `json:"favorites"`
}

// Store keeps one state slot per device under a base directory.
type Store struct {
	basePath string

	mu     sync.Mutex
	states map[string]*deviceState
	lastID int64
}

// NewStore creates the base directory if missing.
func NewStore(basePath string) (*Store, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("drafts base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create drafts dir: %w", err)
	}
	return &Store{basePath: basePath, states: make(map[string]*deviceState)}, nil
}

// Add creates a draft with a timestamp-derived id and pending status and
// returns the created record.
func (s *Store) Add(deviceID string, fields Fields) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.state(deviceID)
	if err != nil {
		return Draft{}, err
	}
	now := time.Now().UTC()
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	draft := Draft{
		ID:        fmt.Sprintf("draft_%d", id),
		Fields:    fields,
		Status:    domain.StatusPending,
		CreatedAt: now,
	}
	next := append(append([]Draft{}, state.Drafts...), draft)
	if err := s.persist(deviceID, deviceState{Drafts: next, Favorites: state.Favorites}); err != nil {
		return Draft{}, err
	}
	state.Drafts = next
	return draft, nil
}

// Update merges a partial field set into an existing draft.
func (s *Store) Update(deviceID, id string, patch Patch) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.state(deviceID)
	if err != nil {
		return Draft{}, err
	}
	idx := -1
	for i, d := range state.Drafts {
		if d.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Draft{}, ErrNotFound
	}
	next := append([]Draft{}, state.Drafts...)
	merged := applyPatch(next[idx], patch)
	next[idx] = merged
	if err := s.persist(deviceID, deviceState{Drafts: next, Favorites: state.Favorites}); err != nil {
		return Draft{}, err
	}
	state.Drafts = next
	return merged, nil
}

// Delete removes a draft by id.
func (s *Store) Delete(deviceID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.state(deviceID)
	if err != nil {
		return err
	}
	next := make([]Draft, 0, len(state.Drafts))
	found := false
	for _, d := range state.Drafts {
		if d.ID == id {
			found = true
			continue
		}
		next = append(next, d)
	}
	if !found {
		return ErrNotFound
	}
	if err := s.persist(deviceID, deviceState{Drafts: next, Favorites: state.Favorites}); err != nil {
		return err
	}
	state.Drafts = next
	return nil
}

// Get returns a single draft by id.
func (s *Store) Get(deviceID, id string) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.state(deviceID)
	if err != nil {
		return Draft{}, err
	}
	for _, d := range state.Drafts {
		if d.ID == id {
			return d, nil
		}
	}
	return Draft{}, ErrNotFound
}

// List returns the device's drafts in creation order.
func (s *Store) List(deviceID string) ([]Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.state(deviceID)
	if err != nil {
		return nil, err
	}
	return append([]Draft{}, state.Drafts...), nil
}

// ToggleFavorite adds the property id to the device's favorites set, or
// removes it when already present. It reports whether the id is a
// favorite after the call.
func (s *Store) ToggleFavorite(deviceID string, propertyID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.state(deviceID)
	if err != nil {
		return false, err
	}
	next := make([]int, 0, len(state.Favorites)+1)
	removed := false
	for _, id := range state.Favorites {
		if id == propertyID {
			removed = true
			continue
		}
		next = append(next, id)
	}
	if !removed {
		next = append(next, propertyID)
	}
	if err := s.persist(deviceID, deviceState{Drafts: state.Drafts, Favorites: next}); err != nil {
		return false, err
	}
	state.Favorites = next
	return !removed, nil
}

// Favorites returns the device's favorite property ids in toggle order.
func (s *Store) Favorites(deviceID string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.state(deviceID)
	if err != nil {
		return nil, err
	}
	return append([]int{}, state.Favorites...), nil
}

// state loads a device slot into memory on first access. Callers hold mu.
func (s *Store) state(deviceID string) (*deviceState, error) {
	key := safeDeviceID(deviceID)
	if st, ok := s.states[key]; ok {
		return st, nil
	}
	st := &deviceState{}
	data, err := os.ReadFile(s.slotPath(key))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, st); err != nil {
			return nil, fmt.Errorf("parse drafts slot: %w", err)
		}
	case os.IsNotExist(err):
		// fresh device
	default:
		return nil, fmt.Errorf("read drafts slot: %w", err)
	}
	s.states[key] = st
	return st, nil
}

// persist rewrites the whole slot before in-memory state changes, so a
// failed write never leaves memory ahead of disk.
func (s *Store) persist(deviceID string, state deviceState) error {
	key := safeDeviceID(deviceID)
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode drafts slot: %w", err)
	}
	tmp := s.slotPath(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write drafts slot: %w", err)
	}
	if err := os.Rename(tmp, s.slotPath(key)); err != nil {
		return fmt.Errorf("replace drafts slot: %w", err)
	}
	return nil
}

func (s *Store) slotPath(key string) string {
	return filepath.Join(s.basePath, key+".json")
}

func safeDeviceID(deviceID string) string {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return "default"
	}
	var b strings.Builder
	for _, r := range deviceID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func applyPatch(d Draft, p Patch) Draft {
	if p.ListingType != nil {
		d.ListingType = *p.ListingType
	}
	if p.Type != nil {
		d.Type = *p.Type
	}
	if p.Price != nil {
		d.Price = *p.Price
	}
	if p.Rooms != nil {
		d.Rooms = *p.Rooms
	}
	if p.Area != nil {
		d.Area = *p.Area
	}
	if p.Floor != nil {
		d.Floor = *p.Floor
	}
	if p.TotalFloors != nil {
		d.TotalFloors = *p.TotalFloors
	}
	if p.City != nil {
		d.City = *p.City
	}
	if p.District != nil {
		d.District = *p.District
	}
	if p.Address != nil {
		d.Address = *p.Address
	}
	if p.Landmark != nil {
		d.Landmark = *p.Landmark
	}
	if p.HouseType != nil {
		d.HouseType = *p.HouseType
	}
	if p.YearBuilt != nil {
		d.YearBuilt = *p.YearBuilt
	}
	if p.Images != nil {
		d.Images = *p.Images
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Features != nil {
		d.Features = *p.Features
	}
	if p.Seller != nil {
		d.Seller = *p.Seller
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	return d
}
