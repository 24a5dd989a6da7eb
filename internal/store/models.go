package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"manzil/pkg/domain"
)

// GORM models used for persistence.
type ListingModel struct {
	ID          string `gorm:"primaryKey"`
	OwnerID     string `gorm:"not null;index"`
	ListingType string `gorm:"not null"`
	Type        string `gorm:"not null"`
	Price       int64  `gorm:"not null"`
	Rooms       string `gorm:"not null"`
	Area        float64
	Floor       int
	TotalFloors int
	City        string `gorm:"not null"`
	District    string `gorm:"not null"`
	Address     string
	Landmark    string
	HouseType   string
	YearBuilt   int
	Images      datatypes.JSON `gorm:"type:jsonb"`
	Description string         `gorm:"type:text"`
	Features    datatypes.JSON `gorm:"type:jsonb"`
	SellerName  string         `gorm:"not null"`
	SellerPhone string         `gorm:"not null"`
	SellerType  string         `gorm:"not null"`
	Status      string         `gorm:"not null;index"`
	CreatedAt   time.Time      `gorm:"not null;index"`
	UpdatedAt   time.Time      `gorm:"not null"`
}

func (ListingModel) TableName() string { return "listings" }

type RoleAssignmentModel struct {
	UserID    string    `gorm:"primaryKey"`
	Role      string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

func (RoleAssignmentModel) TableName() string { return "user_roles" }

func listingToModel(l domain.Listing) ListingModel {
	return ListingModel{
		ID:          l.ID,
		OwnerID:     l.OwnerID,
		ListingType: string(l.ListingType),
		Type:        string(l.Type),
		Price:       l.Price,
		Rooms:       string(l.Rooms),
		Area:        l.Area,
		Floor:       l.Floor,
		TotalFloors: l.TotalFloors,
		City:        l.City,
		District:    l.District,
		Address:     l.Address,
		Landmark:    l.Landmark,
		HouseType:   string(l.HouseType),
		YearBuilt:   l.YearBuilt,
		Images:      toJSONArray(l.Images),
		Description: l.Description,
		Features:    toJSONArray(l.Features),
		SellerName:  l.Seller.Name,
		SellerPhone: l.Seller.Phone,
		SellerType:  string(l.Seller.Type),
		Status:      string(l.Status),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func listingFromModel(m ListingModel) domain.Listing {
	return domain.Listing{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		ListingType: domain.ListingType(m.ListingType),
		Type:        domain.PropertyType(m.Type),
		Price:       m.Price,
		Rooms:       domain.RoomCount(m.Rooms),
		Area:        m.Area,
		Floor:       m.Floor,
		TotalFloors: m.TotalFloors,
		City:        m.City,
		District:    m.District,
		Address:     m.Address,
		Landmark:    m.Landmark,
		HouseType:   domain.HouseType(m.HouseType),
		YearBuilt:   m.YearBuilt,
		Images:      fromJSONArray(m.Images),
		Description: m.Description,
		Features:    fromJSONArray(m.Features),
		Seller: domain.Seller{
			Name:  m.SellerName,
			Phone: m.SellerPhone,
			Type:  domain.SellerType(m.SellerType),
		},
		Status:    domain.ListingStatus(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toJSONArray(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	data, _ := json.Marshal(values)
	return datatypes.JSON(data)
}

func fromJSONArray(data datatypes.JSON) []string {
	if len(data) == 0 {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return []string{}
	}
	return out
}
