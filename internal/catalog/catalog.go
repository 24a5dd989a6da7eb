// Package catalog holds the seeded property catalog used for search and
// browse. Records are embedded at build time and never mutated at runtime.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"manzil/pkg/domain"
)

//go:embed seed/properties.json
var seedData []byte

// Catalog is an immutable, ordered collection of properties.
type Catalog struct {
	properties []domain.Property
	byID       map[int]domain.Property
}

// Load parses the embedded seed data and validates its invariants.
func Load() (*Catalog, error) {
	return loadFrom(seedData)
}

func loadFrom(data []byte) (*Catalog, error) {
	var props []domain.Property
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}
	byID := make(map[int]domain.Property, len(props))
	for _, p := range props {
		if p.Floor > p.TotalFloors {
			return nil, fmt.Errorf("catalog seed: property %d has floor %d above total floors %d", p.ID, p.Floor, p.TotalFloors)
		}
		if len(p.Images) == 0 {
			return nil, fmt.Errorf("catalog seed: property %d has no images", p.ID)
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("catalog seed: duplicate property id %d", p.ID)
		}
		byID[p.ID] = p
	}
	return &Catalog{properties: props, byID: byID}, nil
}

// Properties returns the seeded records in catalog order. Callers must
// treat the slice as read-only.
func (c *Catalog) Properties() []domain.Property {
	return c.properties
}

// Get returns a property by id.
func (c *Catalog) Get(id int) (domain.Property, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Len reports the number of seeded properties.
func (c *Catalog) Len() int {
	return len(c.properties)
}
