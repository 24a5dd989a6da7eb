package domain

import "time"

// PropertyType classifies what kind of dwelling a record describes.
type PropertyType string

const (
	PropertyApartment PropertyType = "apartment"
	PropertyHouse     PropertyType = "house"
	PropertyRoom      PropertyType = "room"
)

// ParsePropertyType validates a raw property type value.
func ParsePropertyType(raw string) (PropertyType, bool) {
	switch PropertyType(raw) {
	case PropertyApartment, PropertyHouse, PropertyRoom:
		return PropertyType(raw), true
	default:
		return "", false
	}
}

// RoomCount is the room descriptor shown in search filters.
type RoomCount string

const (
	RoomsStudio  RoomCount = "studio"
	Rooms1       RoomCount = "1"
	Rooms2       RoomCount = "2"
	Rooms3       RoomCount = "3"
	Rooms4       RoomCount = "4"
	Rooms5OrMore RoomCount = "5+"
)

// ParseRoomCount validates a raw room count value.
func ParseRoomCount(raw string) (RoomCount, bool) {
	switch RoomCount(raw) {
	case RoomsStudio, Rooms1, Rooms2, Rooms3, Rooms4, Rooms5OrMore:
		return RoomCount(raw), true
	default:
		return "", false
	}
}

// HouseType describes the building construction.
type HouseType string

const (
	HousePanel    HouseType = "panel"
	HouseBrick    HouseType = "brick"
	HouseMonolith HouseType = "monolith"
	HouseBlock    HouseType = "block"
)

// ParseHouseType validates a raw house type value.
func ParseHouseType(raw string) (HouseType, bool) {
	switch HouseType(raw) {
	case HousePanel, HouseBrick, HouseMonolith, HouseBlock:
		return HouseType(raw), true
	default:
		return "", false
	}
}

// SellerType distinguishes owners from agents.
type SellerType string

const (
	SellerOwner SellerType = "owner"
	SellerAgent SellerType = "agent"
)

// ParseSellerType validates a raw seller type value.
func ParseSellerType(raw string) (SellerType, bool) {
	switch SellerType(raw) {
	case SellerOwner, SellerAgent:
		return SellerType(raw), true
	default:
		return "", false
	}
}

// ListingType is the transaction kind of a listing.
type ListingType string

const (
	ListingSale ListingType = "sale"
	ListingRent ListingType = "rent"
)

// ParseListingType validates a raw listing type value.
func ParseListingType(raw string) (ListingType, bool) {
	switch ListingType(raw) {
	case ListingSale, ListingRent:
		return ListingType(raw), true
	default:
		return "", false
	}
}

// Currency tag for all prices in the catalog and listings.
const Currency = "TJS"

// Seller holds contact details attached to a property or listing.
type Seller struct {
	Name  string     `json:"name"`
	Phone string     `json:"phone"`
	Type  SellerType `json:"type"`
}

// Property is a read-only catalog record. The catalog is seeded at build
// time and never mutated at runtime.
type Property struct {
	ID              int          `json:"id"`
	Type            PropertyType `json:"type"`
	Price           int64        `json:"price"`
	Rooms           RoomCount    `json:"rooms"`
	Area            float64      `json:"area"`
	Floor           int          `json:"floor"`
	TotalFloors     int          `json:"totalFloors"`
	City            string       `json:"city"`
	District        string       `json:"district"`
	Landmark        string       `json:"landmark"`
	LandmarkMinutes int          `json:"landmarkMinutes"`
	HouseType       HouseType    `json:"houseType"`
	YearBuilt       int          `json:"yearBuilt"`
	Images          []string     `json:"images"`
	Description     string       `json:"description"`
	Features        []string     `json:"features"`
	Seller          Seller       `json:"seller"`
}

// PrimaryImage returns the representative thumbnail, the first image.
func (p Property) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ListingStatus is the moderation lifecycle state of a listing.
type ListingStatus string

const (
	StatusPending  ListingStatus = "pending"
	StatusActive   ListingStatus = "active"
	StatusArchived ListingStatus = "archived"
	StatusRejected ListingStatus = "rejected"
)

// ParseListingStatus validates a raw status value.
func ParseListingStatus(raw string) (ListingStatus, bool) {
	switch ListingStatus(raw) {
	case StatusPending, StatusActive, StatusArchived, StatusRejected:
		return ListingStatus(raw), true
	default:
		return "", false
	}
}

// CanTransition reports whether a status change is allowed:
// pending -> active|rejected, active <-> archived. Hard delete is
// permitted from any status and is not a transition.
func CanTransition(from, to ListingStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusActive || to == StatusRejected
	case StatusActive:
		return to == StatusArchived
	case StatusArchived:
		return to == StatusActive
	default:
		return false
	}
}

// Listing is a user-authored property record subject to moderation.
// It is owned exclusively by its creator except for moderator override.
type Listing struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"ownerId"`
	ListingType ListingType   `json:"listingType"`
	Type        PropertyType  `json:"propertyType"`
	Price       int64         `json:"price"`
	Rooms       RoomCount     `json:"rooms"`
	Area        float64       `json:"area"`
	Floor       int           `json:"floor"`
	TotalFloors int           `json:"totalFloors"`
	City        string        `json:"city"`
	District    string        `json:"district"`
	Address     string        `json:"address,omitempty"`
	Landmark    string        `json:"landmark,omitempty"`
	HouseType   HouseType     `json:"houseType,omitempty"`
	YearBuilt   int           `json:"yearBuilt,omitempty"`
	Images      []string      `json:"images"`
	Description string        `json:"description,omitempty"`
	Features    []string      `json:"features"`
	Seller      Seller        `json:"seller"`
	Status      ListingStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// PrimaryImage returns the listing's thumbnail, the first image.
func (l Listing) PrimaryImage() string {
	if len(l.Images) == 0 {
		return ""
	}
	return l.Images[0]
}

// Role is a capability grant for a user. A user may hold several roles.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// ParseRole validates a raw role value.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleAdmin, RoleModerator, RoleUser:
		return Role(raw), true
	default:
		return "", false
	}
}

// RoleAssignment is one (user, role) pair from the flat assignment list.
type RoleAssignment struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// User is the identity platform's account shape. Accounts are created and
// authenticated by the platform; this service never stores credentials.
type User struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	FullName   string     `json:"fullName,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	SellerType SellerType `json:"sellerType,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}
