package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"manzil/internal/storage"
	"manzil/internal/store"
	"manzil/pkg/domain"
)

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// handleActiveListings serves the public browse collection, cached with
// explicit invalidation on every listing mutation.
func (s *Server) handleActiveListings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if s.cache != nil {
		if listings, ok := s.cache.GetActive(); ok {
			writeJSON(w, http.StatusOK, listResponse[domain.Listing]{Items: listings, Count: len(listings)})
			return
		}
	}
	listings, err := s.store.ListActive()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if s.cache != nil {
		s.cache.SetActive(listings)
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Listing]{Items: listings, Count: len(listings)})
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		s.listOwnListings(w, user)
	case http.MethodPost:
		s.createListing(w, r, user)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) listOwnListings(w http.ResponseWriter, user domain.User) {
	if s.cache != nil {
		if listings, ok := s.cache.GetOwner(user.ID); ok {
			writeJSON(w, http.StatusOK, listResponse[domain.Listing]{Items: listings, Count: len(listings)})
			return
		}
	}
	listings, err := s.store.ListByOwner(user.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if s.cache != nil {
		s.cache.SetOwner(user.ID, listings)
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Listing]{Items: listings, Count: len(listings)})
}

type createListingRequest struct {
	ListingType string        `json:"listingType"`
	Type        string        `json:"propertyType"`
	Price       int64         `json:"price"`
	Rooms       string        `json:"rooms"`
	Area        float64       `json:"area"`
	Floor       int           `json:"floor"`
	TotalFloors int           `json:"totalFloors"`
	City        string        `json:"city"`
	District    string        `json:"district"`
	Address     string        `json:"address"`
	Landmark    string        `json:"landmark"`
	HouseType   string        `json:"houseType"`
	YearBuilt   int           `json:"yearBuilt"`
	Images      []string      `json:"images"`
	Description string        `json:"description"`
	Features    []string      `json:"features"`
	Seller      domain.Seller `json:"seller"`
}

// validate reports the first problem with a submission, before any
// remote call is made.
func (req createListingRequest) validate() string {
	if _, ok := domain.ParseListingType(req.ListingType); !ok {
		return "listingType must be sale or rent"
	}
	if _, ok := domain.ParsePropertyType(req.Type); !ok {
		return "unknown property type: " + req.Type
	}
	if _, ok := domain.ParseRoomCount(req.Rooms); !ok {
		return "unknown rooms value: " + req.Rooms
	}
	if req.HouseType != "" {
		if _, ok := domain.ParseHouseType(req.HouseType); !ok {
			return "unknown house type: " + req.HouseType
		}
	}
	switch {
	case strings.TrimSpace(req.City) == "":
		return "city is required"
	case strings.TrimSpace(req.District) == "":
		return "district is required"
	case req.Price <= 0:
		return "price must be positive"
	case req.Area <= 0:
		return "area must be positive"
	case req.Floor < 1:
		return "floor must be at least 1"
	case req.TotalFloors < req.Floor:
		return "totalFloors must be at least floor"
	case len(req.Images) == 0:
		return "at least one image is required"
	}
	return validateSeller(req.Seller)
}

func validateSeller(s domain.Seller) string {
	if strings.TrimSpace(s.Name) == "" {
		return "seller name is required"
	}
	if strings.TrimSpace(s.Phone) == "" {
		return "seller phone is required"
	}
	if _, ok := domain.ParseSellerType(string(s.Type)); !ok {
		return "seller type must be owner or agent"
	}
	return ""
}

func (s *Server) createListing(w http.ResponseWriter, r *http.Request, user domain.User) {
	if s.submitLimiter != nil && !s.submitLimiter.Allow(user.ID) {
		s.audit(r, "manzil.listing.create", "rate_limited", "user_id", user.ID)
		writeError(w, http.StatusTooManyRequests, "too many submissions, try again later")
		return
	}
	var req createListingRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	now := time.Now().UTC()
	listing := domain.Listing{
		ID:          uuid.NewString(),
		OwnerID:     user.ID,
		ListingType: domain.ListingType(req.ListingType),
		Type:        domain.PropertyType(req.Type),
		Price:       req.Price,
		Rooms:       domain.RoomCount(req.Rooms),
		Area:        req.Area,
		Floor:       req.Floor,
		TotalFloors: req.TotalFloors,
		City:        req.City,
		District:    req.District,
		Address:     req.Address,
		Landmark:    req.Landmark,
		HouseType:   domain.HouseType(req.HouseType),
		YearBuilt:   req.YearBuilt,
		Images:      req.Images,
		Description: req.Description,
		Features:    req.Features,
		Seller:      req.Seller,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if listing.Features == nil {
		listing.Features = []string{}
	}
	if err := s.store.CreateListing(listing); err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidate(user.ID)
	s.audit(r, "manzil.listing.create", "success", "user_id", user.ID, "listing_id", listing.ID)
	writeJSON(w, http.StatusCreated, listing)
}

// listingPatch carries a partial update; nil fields stay untouched.
type listingPatch struct {
	ListingType *string        `json:"listingType"`
	Type        *string        `json:"propertyType"`
	Price       *int64         `json:"price"`
	Rooms       *string        `json:"rooms"`
	Area        *float64       `json:"area"`
	Floor       *int           `json:"floor"`
	TotalFloors *int           `json:"totalFloors"`
	City        *string        `json:"city"`
	District    *string        `json:"district"`
	Address     *string        `json:"address"`
	Landmark    *string        `json:"landmark"`
	HouseType   *string        `json:"houseType"`
	YearBuilt   *int           `json:"yearBuilt"`
	Images      *[]string      `json:"images"`
	Description *string        `json:"description"`
	Features    *[]string      `json:"features"`
	Seller      *domain.Seller `json:"seller"`
	Status      *string        `json:"status"`
}

// applyListingPatch merges a partial update, holding patched values to
// the same rules create enforces. canModerate widens the permitted
// status transitions to the full lifecycle; without it only the owner's
// archive/restore pair is allowed.
func applyListingPatch(l domain.Listing, p listingPatch, canModerate bool) (domain.Listing, string) {
	if p.ListingType != nil {
		lt, ok := domain.ParseListingType(*p.ListingType)
		if !ok {
			return l, "listingType must be sale or rent"
		}
		l.ListingType = lt
	}
	if p.Type != nil {
		pt, ok := domain.ParsePropertyType(*p.Type)
		if !ok {
			return l, "unknown property type: " + *p.Type
		}
		l.Type = pt
	}
	if p.Price != nil {
		if *p.Price <= 0 {
			return l, "price must be positive"
		}
		l.Price = *p.Price
	}
	if p.Rooms != nil {
		rc, ok := domain.ParseRoomCount(*p.Rooms)
		if !ok {
			return l, "unknown rooms value: " + *p.Rooms
		}
		l.Rooms = rc
	}
	if p.Area != nil {
		if *p.Area <= 0 {
			return l, "area must be positive"
		}
		l.Area = *p.Area
	}
	if p.Floor != nil {
		if *p.Floor < 1 {
			return l, "floor must be at least 1"
		}
		l.Floor = *p.Floor
	}
	if p.TotalFloors != nil {
		l.TotalFloors = *p.TotalFloors
	}
	if l.Floor > l.TotalFloors {
		return l, "totalFloors must be at least floor"
	}
	if p.City != nil {
		if strings.TrimSpace(*p.City) == "" {
			return l, "city is required"
		}
		l.City = *p.City
	}
	if p.District != nil {
		if strings.TrimSpace(*p.District) == "" {
			return l, "district is required"
		}
		l.District = *p.District
	}
	if p.Address != nil {
		l.Address = *p.Address
	}
	if p.Landmark != nil {
		l.Landmark = *p.Landmark
	}
	if p.HouseType != nil {
		if *p.HouseType != "" {
			if _, ok := domain.ParseHouseType(*p.HouseType); !ok {
				return l, "unknown house type: " + *p.HouseType
			}
		}
		l.HouseType = domain.HouseType(*p.HouseType)
	}
	if p.YearBuilt != nil {
		l.YearBuilt = *p.YearBuilt
	}
	if p.Images != nil {
		if len(*p.Images) == 0 {
			return l, "at least one image is required"
		}
		l.Images = *p.Images
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.Features != nil {
		l.Features = *p.Features
	}
	if p.Seller != nil {
		if msg := validateSeller(*p.Seller); msg != "" {
			return l, msg
		}
		l.Seller = *p.Seller
	}
	if p.Status != nil {
		status, ok := domain.ParseListingStatus(*p.Status)
		if !ok {
			return l, "unknown status: " + *p.Status
		}
		if !canModerate && !ownerStatusChange(l.Status, status) {
			return l, "status change requires moderation"
		}
		if !domain.CanTransition(l.Status, status) {
			return l, fmt.Sprintf("cannot change status from %s to %s", l.Status, status)
		}
		l.Status = status
	}
	return l, ""
}

// ownerStatusChange limits self-service status edits to the
// archive/restore pair; approval and rejection stay with moderation.
func ownerStatusChange(from, to domain.ListingStatus) bool {
	return (from == domain.StatusActive && to == domain.StatusArchived) ||
		(from == domain.StatusArchived && to == domain.StatusActive)
}

func (s *Server) handleListingByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/listings/")
	if id, ok := strings.CutSuffix(rest, "/images"); ok {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.uploadImages(w, r, user, id)
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
	moderator := s.isModerator(user.ID)
	if listing.OwnerID != user.ID && !moderator {
		writeError(w, http.StatusForbidden, "forbidden")
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
		merged, msg := applyListingPatch(listing, patch, moderator)
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
		s.audit(r, "manzil.listing.update", "success", "user_id", user.ID, "listing_id", id)
		writeJSON(w, http.StatusOK, merged)
	case http.MethodDelete:
		if err := s.store.DeleteListing(id); err != nil {
			writeStoreError(w, err)
			return
		}
		s.invalidate(listing.OwnerID)
		s.audit(r, "manzil.listing.delete", "success", "user_id", user.ID, "listing_id", id)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

// uploadImages stores multipart image files under the listing's
// namespace and appends the resulting public URLs to the listing.
func (s *Server) uploadImages(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	listing, found, err := s.store.GetListing(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if listing.OwnerID != user.ID && !s.isModerator(user.ID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if s.objects == nil {
		writeError(w, http.StatusServiceUnavailable, "image storage is not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "upload too large or malformed")
		return
	}
	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "at least one image file is required")
		return
	}
	for _, fh := range files {
		ext := strings.ToLower(path.Ext(fh.Filename))
		if _, ok := s.allowedExtensions[ext]; !ok {
			writeError(w, http.StatusBadRequest, "unsupported image extension: "+ext)
			return
		}
	}

	urls := make([]string, len(files))
	g, ctx := errgroup.WithContext(r.Context())
	var mu sync.Mutex
	for i, fh := range files {
		i, fh := i, fh
		g.Go(func() error {
			url, err := s.putImage(ctx, id, fh)
			if err != nil {
				return err
			}
			mu.Lock()
			urls[i] = url
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	listing.Images = append(listing.Images, urls...)
	listing.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateListing(listing); err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidate(listing.OwnerID)
	s.audit(r, "manzil.listing.images", "success", "user_id", user.ID, "listing_id", id, "count", len(urls))
	writeJSON(w, http.StatusOK, map[string]any{"urls": urls, "images": listing.Images})
}

func (s *Server) putImage(ctx context.Context, listingID string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := storage.ImageKey(listingID, fh.Filename)
	return s.objects.Put(ctx, key, f, fh.Size, contentType)
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	isAdmin, err := s.store.HasRole(user.ID, domain.RoleAdmin)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	isModerator, err := s.store.HasRole(user.ID, domain.RoleModerator)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{
		"isAdmin":     isAdmin,
		"isModerator": isAdmin || isModerator,
	})
}
