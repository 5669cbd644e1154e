package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/tanjir-dev/travel-recommender/internal/recommend"
)

// DistrictStore holds the tracked districts in memory. Reference data:
// populated once at startup and read-only afterwards, so no locking is needed.
type DistrictStore struct {
	byID  map[string]recommend.District
	order []string
}

// NewDistrictStore validates and indexes the given districts.
func NewDistrictStore(districts []recommend.District) (*DistrictStore, error) {
	byID := make(map[string]recommend.District, len(districts))
	order := make([]string, 0, len(districts))

	for _, d := range districts {
		if d.ID == "" {
			return nil, fmt.Errorf("district %q has no ID", d.Name)
		}
		if _, dup := byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate district ID %q", d.ID)
		}
		if d.Latitude < -90 || d.Latitude > 90 {
			return nil, fmt.Errorf("district %s: latitude %.4f out of range", d.ID, d.Latitude)
		}
		if d.Longitude < -180 || d.Longitude > 180 {
			return nil, fmt.Errorf("district %s: longitude %.4f out of range", d.ID, d.Longitude)
		}
		byID[d.ID] = d
		order = append(order, d.ID)
	}
	sort.Strings(order)

	return &DistrictStore{byID: byID, order: order}, nil
}

// LoadDistrictsFile reads a JSON array of districts from the seed file.
func LoadDistrictsFile(path string) ([]recommend.District, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read districts file: %w", err)
	}
	var districts []recommend.District
	if err := json.Unmarshal(data, &districts); err != nil {
		return nil, fmt.Errorf("parse districts file %s: %w", path, err)
	}
	if len(districts) == 0 {
		return nil, fmt.Errorf("districts file %s holds no districts", path)
	}
	return districts, nil
}

// All returns every tracked district, ordered by ID.
func (s *DistrictStore) All(_ context.Context) ([]recommend.District, error) {
	out := make([]recommend.District, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out, nil
}

// Get returns a district by ID, or ErrNotFound.
func (s *DistrictStore) Get(_ context.Context, id string) (recommend.District, error) {
	d, ok := s.byID[id]
	if !ok {
		return recommend.District{}, ErrNotFound
	}
	return d, nil
}

// Len returns the number of tracked districts.
func (s *DistrictStore) Len() int {
	return len(s.order)
}
