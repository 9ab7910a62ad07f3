// Package catalog holds the bundled reference library of plant profiles.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/herbalscanner/backend/internal/domain"
)

//go:embed plants.json
var bundled []byte

// Catalog is an immutable, ordered plant library.
// Order matters: the scan matcher returns the first qualifying entry.
type Catalog struct {
	plants []domain.PlantProfile
	byID   map[string]int
}

// Bundled returns the library shipped with the binary
func Bundled() (*Catalog, error) {
	return Parse(bundled)
}

// Load reads the library from path, falling back to the bundled one when path is empty
func Load(fsys afero.Fs, path string) (*Catalog, error) {
	if path == "" {
		return Bundled()
	}
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a JSON array of plant profiles
func Parse(data []byte) (*Catalog, error) {
	var plants []domain.PlantProfile
	if err := json.Unmarshal(data, &plants); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(plants)
}

// New validates and copies plants into a catalog
func New(plants []domain.PlantProfile) (*Catalog, error) {
	c := &Catalog{
		plants: make([]domain.PlantProfile, 0, len(plants)),
		byID:   make(map[string]int, len(plants)),
	}

	for i, p := range plants {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %q", i, p.ID)
		}
		p = p.Clone()
		p.Normalize()
		c.byID[p.ID] = len(c.plants)
		c.plants = append(c.plants, p)
	}

	return c, nil
}

// All returns copies of every profile in catalog order
func (c *Catalog) All() []domain.PlantProfile {
	out := make([]domain.PlantProfile, len(c.plants))
	for i, p := range c.plants {
		out[i] = p.Clone()
	}
	return out
}

// Get returns a copy of the profile with the given id
func (c *Catalog) Get(id string) (domain.PlantProfile, error) {
	i, ok := c.byID[id]
	if !ok {
		return domain.PlantProfile{}, domain.ErrPlantNotFound
	}
	return c.plants[i].Clone(), nil
}

// Search filters by case-insensitive substring over common name, scientific
// name and family. A blank query returns the whole library.
func (c *Catalog) Search(query string) []domain.PlantProfile {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.All()
	}

	out := make([]domain.PlantProfile, 0)
	for _, p := range c.plants {
		if strings.Contains(strings.ToLower(p.CommonName), q) ||
			strings.Contains(strings.ToLower(p.ScientificName), q) ||
			strings.Contains(strings.ToLower(p.Family), q) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Len reports the number of profiles
func (c *Catalog) Len() int {
	return len(c.plants)
}
