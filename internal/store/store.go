package store

import "manzil/pkg/domain"

// BulkResult reports the outcome of an unordered batch mutation. The
// batch is not atomic: successes are kept even when other ids fail.
type BulkResult struct {
	Requested int `json:"requested"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
}

// Store defines persistence operations for listings and role assignments.
type Store interface {
	// listings
	CreateListing(l domain.Listing) error
	GetListing(id string) (domain.Listing, bool, error)
	ListByOwner(ownerID string) ([]domain.Listing, error)
	ListAll() ([]domain.Listing, error)
	ListActive() ([]domain.Listing, error)
	UpdateListing(l domain.Listing) error
	SetStatus(id string, status domain.ListingStatus) error
	BulkSetStatus(ids []string, status domain.ListingStatus) (BulkResult, error)
	DeleteListing(id string) error
	BulkDeleteListings(ids []string) (BulkResult, error)
	StatusCounts() (map[domain.ListingStatus]int, error)

	// role assignments
	AddRole(userID string, role domain.Role) error
	RemoveRole(userID string, role domain.Role) error
	ListRoles() ([]domain.RoleAssignment, error)
	HasRole(userID string, role domain.Role) (bool, error)
}

// allowedSources lists the statuses a listing may transition to `to`
// from. Used by bulk updates, where invalid rows simply count as failed.
func allowedSources(to domain.ListingStatus) []domain.ListingStatus {
	switch to {
	case domain.StatusActive:
		return []domain.ListingStatus{domain.StatusPending, domain.StatusArchived}
	case domain.StatusRejected:
		return []domain.ListingStatus{domain.StatusPending}
	case domain.StatusArchived:
		return []domain.ListingStatus{domain.StatusActive}
	default:
		return nil
	}
}
