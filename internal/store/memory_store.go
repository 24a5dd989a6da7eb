package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"manzil/pkg/domain"
)

// MemoryStore keeps listings and role assignments in-process. It backs
// handler tests and local development without Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[string]domain.Listing
	order    []string // insertion order of listing ids
	roles    map[string]map[domain.Role]bool
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings: make(map[string]domain.Listing),
		roles:    make(map[string]map[domain.Role]bool),
	}
}

// CreateListing stores a new listing record.
func (m *MemoryStore) CreateListing(l domain.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.listings[l.ID]; !exists {
		m.order = append(m.order, l.ID)
	}
	m.listings[l.ID] = l
	return nil
}

// GetListing returns a listing by id.
func (m *MemoryStore) GetListing(id string) (domain.Listing, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.listings[id]
	return l, ok, nil
}

// ListByOwner returns the owner's listings, newest first.
func (m *MemoryStore) ListByOwner(ownerID string) ([]domain.Listing, error) {
	return m.list(func(l domain.Listing) bool { return l.OwnerID == ownerID }), nil
}

// ListAll returns every listing, newest first.
func (m *MemoryStore) ListAll() ([]domain.Listing, error) {
	return m.list(func(domain.Listing) bool { return true }), nil
}

// ListActive returns active listings, newest first.
func (m *MemoryStore) ListActive() ([]domain.Listing, error) {
	return m.list(func(l domain.Listing) bool { return l.Status == domain.StatusActive }), nil
}

func (m *MemoryStore) list(keep func(domain.Listing) bool) []domain.Listing {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Listing, 0, len(m.order))
	for _, id := range m.order {
		if l, ok := m.listings[id]; ok && keep(l) {
			res = append(res, l)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res
}

// UpdateListing replaces the stored record for the listing's id.
func (m *MemoryStore) UpdateListing(l domain.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.listings[l.ID]
	if !ok {
		return ErrNotFound
	}
	l.CreatedAt = existing.CreatedAt
	m.listings[l.ID] = l
	return nil
}

// SetStatus changes a single listing's status, touching nothing else.
func (m *MemoryStore) SetStatus(id string, status domain.ListingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return ErrNotFound
	}
	if !domain.CanTransition(l.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.Status, status)
	}
	l.Status = status
	l.UpdatedAt = time.Now().UTC()
	m.listings[id] = l
	return nil
}

// BulkSetStatus transitions a batch; missing or non-transitionable rows
// count as failed and already-updated rows are not rolled back.
func (m *MemoryStore) BulkSetStatus(ids []string, status domain.ListingStatus) (BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := BulkResult{Requested: len(ids)}
	for _, id := range ids {
		l, ok := m.listings[id]
		if !ok || !domain.CanTransition(l.Status, status) {
			result.Failed++
			continue
		}
		l.Status = status
		l.UpdatedAt = time.Now().UTC()
		m.listings[id] = l
		result.Updated++
	}
	return result, nil
}

// DeleteListing hard-deletes a listing.
func (m *MemoryStore) DeleteListing(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.listings[id]; !ok {
		return ErrNotFound
	}
	delete(m.listings, id)
	m.dropFromOrder(id)
	return nil
}

// BulkDeleteListings removes a batch, reporting affected rows.
func (m *MemoryStore) BulkDeleteListings(ids []string) (BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := BulkResult{Requested: len(ids)}
	for _, id := range ids {
		if _, ok := m.listings[id]; !ok {
			result.Failed++
			continue
		}
		delete(m.listings, id)
		m.dropFromOrder(id)
		result.Updated++
	}
	return result, nil
}

// dropFromOrder removes an id from the insertion-order slice. Callers
// hold mu.
func (m *MemoryStore) dropFromOrder(id string) {
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

// StatusCounts returns listing counts per lifecycle status.
func (m *MemoryStore) StatusCounts() (map[domain.ListingStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[domain.ListingStatus]int)
	for _, l := range m.listings {
		out[l.Status]++
	}
	return out, nil
}

// AddRole grants a role; duplicates are ignored.
func (m *MemoryStore) AddRole(userID string, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roles[userID] == nil {
		m.roles[userID] = make(map[domain.Role]bool)
	}
	m.roles[userID][role] = true
	return nil
}

// RemoveRole revokes a role; removing an absent role is a no-op.
func (m *MemoryStore) RemoveRole(userID string, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.roles[userID], role)
	return nil
}

// ListRoles returns the flat assignment list.
func (m *MemoryStore) ListRoles() ([]domain.RoleAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.RoleAssignment, 0)
	for userID, set := range m.roles {
		for role := range set {
			res = append(res, domain.RoleAssignment{UserID: userID, Role: role})
		}
	}
	return res, nil
}

// HasRole reports role membership for a user.
func (m *MemoryStore) HasRole(userID string, role domain.Role) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roles[userID][role], nil
}
