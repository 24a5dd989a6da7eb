package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"manzil/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&ListingModel{}, &RoleAssignmentModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateListing inserts a new listing row.
func (s *GormStore) CreateListing(l domain.Listing) error {
	model := listingToModel(l)
	return s.db.Create(&model).Error
}

// GetListing retrieves a listing by id.
func (s *GormStore) GetListing(id string) (domain.Listing, bool, error) {
	var model ListingModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Listing{}, false, nil
		}
		return domain.Listing{}, false, err
	}
	return listingFromModel(model), true, nil
}

// ListByOwner returns the owner's listings, newest first.
func (s *GormStore) ListByOwner(ownerID string) ([]domain.Listing, error) {
	return s.listListings("owner_id = ?", ownerID)
}

// ListAll returns every listing, newest first. Role-gated at the caller.
func (s *GormStore) ListAll() ([]domain.Listing, error) {
	return s.listListings()
}

// ListActive returns publicly browsable listings, newest first.
func (s *GormStore) ListActive() ([]domain.Listing, error) {
	return s.listListings("status = ?", string(domain.StatusActive))
}

func (s *GormStore) listListings(conds ...any) ([]domain.Listing, error) {
	var models []ListingModel
	tx := s.db.Order("created_at DESC")
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Listing, 0, len(models))
	for _, m := range models {
		res = append(res, listingFromModel(m))
	}
	return res, nil
}

// UpdateListing replaces the stored row for the listing's id.
func (s *GormStore) UpdateListing(l domain.Listing) error {
	model := listingToModel(l)
	res := s.db.Model(&ListingModel{}).Where("id = ?", l.ID).Select("*").Omit("id", "created_at").Updates(&model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus changes a single listing's status. Only the status and
// updated_at columns are touched.
func (s *GormStore) SetStatus(id string, status domain.ListingStatus) error {
	current, found, err := s.GetListing(id)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	if !domain.CanTransition(current.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
	}
	return s.db.Model(&ListingModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		}).Error
}

// BulkSetStatus transitions a batch of listings. Rows that are missing
// or whose current status forbids the transition count as failed; the
// rest are updated with no rollback.
func (s *GormStore) BulkSetStatus(ids []string, status domain.ListingStatus) (BulkResult, error) {
	result := BulkResult{Requested: len(ids)}
	if len(ids) == 0 {
		return result, nil
	}
	sources := allowedSources(status)
	if len(sources) == 0 {
		result.Failed = len(ids)
		return result, nil
	}
	res := s.db.Model(&ListingModel{}).
		Where("id IN ? AND status IN ?", ids, statusStrings(sources)).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return result, res.Error
	}
	result.Updated = int(res.RowsAffected)
	result.Failed = result.Requested - result.Updated
	return result, nil
}

// DeleteListing hard-deletes a listing.
func (s *GormStore) DeleteListing(id string) error {
	res := s.db.Delete(&ListingModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkDeleteListings hard-deletes a batch, reporting affected rows.
func (s *GormStore) BulkDeleteListings(ids []string) (BulkResult, error) {
	result := BulkResult{Requested: len(ids)}
	if len(ids) == 0 {
		return result, nil
	}
	res := s.db.Delete(&ListingModel{}, "id IN ?", ids)
	if res.Error != nil {
		return result, res.Error
	}
	result.Updated = int(res.RowsAffected)
	result.Failed = result.Requested - result.Updated
	return result, nil
}

// StatusCounts returns the number of listings per lifecycle status.
func (s *GormStore) StatusCounts() (map[domain.ListingStatus]int, error) {
	var rows []struct {
		Status string
		Count  int
	}
	if err := s.db.Model(&ListingModel{}).
		Select("status, count(1) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[domain.ListingStatus]int, len(rows))
	for _, row := range rows {
		out[domain.ListingStatus(row.Status)] = row.Count
	}
	return out, nil
}

// AddRole grants a role; inserting an already-held role is a no-op.
func (s *GormStore) AddRole(userID string, role domain.Role) error {
	model := RoleAssignmentModel{UserID: userID, Role: string(role), CreatedAt: time.Now().UTC()}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error
}

// RemoveRole revokes a role; removing an absent role is a no-op.
func (s *GormStore) RemoveRole(userID string, role domain.Role) error {
	return s.db.Delete(&RoleAssignmentModel{}, "user_id = ? AND role = ?", userID, string(role)).Error
}

// ListRoles returns the full flat assignment list.
func (s *GormStore) ListRoles() ([]domain.RoleAssignment, error) {
	var models []RoleAssignmentModel
	if err := s.db.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.RoleAssignment, 0, len(models))
	for _, m := range models {
		res = append(res, domain.RoleAssignment{UserID: m.UserID, Role: domain.Role(m.Role)})
	}
	return res, nil
}

// HasRole reports role membership for a user.
func (s *GormStore) HasRole(userID string, role domain.Role) (bool, error) {
	var count int64
	if err := s.db.Model(&RoleAssignmentModel{}).
		Where("user_id = ? AND role = ?", userID, string(role)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func statusStrings(statuses []domain.ListingStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
