// Package cache holds the read-side cache for listing collections.
// Invalidation is explicit: mutating call sites invoke the Invalidator
// after a successful write, never as a hidden side effect of fetching.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"manzil/pkg/domain"
)

const (
	keyActive      = "manzil:listings:active"
	keyAll         = "manzil:listings:all"
	keyOwnerPrefix = "manzil:listings:owner:"
)

// Invalidator drops cached listing collections after a mutation. Owner
// ids narrow the flush to the affected owners; the shared active/all
// collections are always dropped.
type Invalidator func(ownerIDs ...string)

// ListingCache caches serialized listing collections in Redis. Reads
// fail open: any Redis error is reported as a miss.
type ListingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewListingCache connects to Redis.
func NewListingCache(addr, password string, ttl time.Duration) (*ListingCache, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("listing cache redis addr is required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ListingCache{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		ttl:    ttl,
	}, nil
}

// GetActive returns the cached public collection, if present.
func (c *ListingCache) GetActive() ([]domain.Listing, bool) {
	return c.get(keyActive)
}

// SetActive caches the public collection.
func (c *ListingCache) SetActive(listings []domain.Listing) {
	c.set(keyActive, listings)
}

// GetAll returns the cached moderation collection, if present.
func (c *ListingCache) GetAll() ([]domain.Listing, bool) {
	return c.get(keyAll)
}

// SetAll caches the moderation collection.
func (c *ListingCache) SetAll(listings []domain.Listing) {
	c.set(keyAll, listings)
}

// GetOwner returns an owner's cached collection, if present.
func (c *ListingCache) GetOwner(ownerID string) ([]domain.Listing, bool) {
	return c.get(keyOwnerPrefix + ownerID)
}

// SetOwner caches an owner's collection.
func (c *ListingCache) SetOwner(ownerID string, listings []domain.Listing) {
	c.set(keyOwnerPrefix+ownerID, listings)
}

// Invalidate drops the shared collections and the given owners' entries.
func (c *ListingCache) Invalidate(ownerIDs ...string) {
	keys := []string{keyActive, keyAll}
	for _, id := range ownerIDs {
		if strings.TrimSpace(id) == "" {
			continue
		}
		keys = append(keys, keyOwnerPrefix+id)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.client.Del(ctx, keys...).Err()
}

func (c *ListingCache) get(key string) ([]domain.Listing, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var listings []domain.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, false
	}
	return listings, true
}

func (c *ListingCache) set(key string, listings []domain.Listing) {
	data, err := json.Marshal(listings)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.client.Set(ctx, key, data, c.ttl).Err()
}
