package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tanjir-dev/travel-recommender/internal/recommend"
)

func TestDistrictStoreValidation(t *testing.T) {
	cases := []struct {
		name      string
		districts []recommend.District
	}{
		{"missing id", []recommend.District{{Name: "Dhaka", Latitude: 23.7, Longitude: 90.4}}},
		{"duplicate id", []recommend.District{
			{ID: "dhaka", Name: "Dhaka", Latitude: 23.7, Longitude: 90.4},
			{ID: "dhaka", Name: "Dhaka again", Latitude: 23.7, Longitude: 90.4},
		}},
		{"latitude out of range", []recommend.District{{ID: "x", Latitude: 95, Longitude: 90}}},
		{"longitude out of range", []recommend.District{{ID: "x", Latitude: 23, Longitude: 190}}},
	}

	for _, tc := range cases {
		if _, err := NewDistrictStore(tc.districts); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestDistrictStoreAllOrderedByID(t *testing.T) {
	s, err := NewDistrictStore([]recommend.District{
		{ID: "sylhet", Name: "Sylhet", Latitude: 24.89, Longitude: 91.87},
		{ID: "dhaka", Name: "Dhaka", Latitude: 23.71, Longitude: 90.41},
	})
	if err != nil {
		t.Fatalf("NewDistrictStore: %v", err)
	}

	all, err := s.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 || all[0].ID != "dhaka" || all[1].ID != "sylhet" {
		t.Fatalf("unexpected order: %+v", all)
	}

	if _, err := s.Get(context.Background(), "dhaka"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := s.Get(context.Background(), "atlantis"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadDistrictsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "districts.json")
	seed := `[{"id":"dhaka","name":"Dhaka","latitude":23.71,"longitude":90.41}]`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	districts, err := LoadDistrictsFile(path)
	if err != nil {
		t.Fatalf("LoadDistrictsFile: %v", err)
	}
	if len(districts) != 1 || districts[0].ID != "dhaka" {
		t.Fatalf("unexpected districts: %+v", districts)
	}

	if _, err := LoadDistrictsFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}

	empty := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(empty, []byte(`[]`), 0o644); err != nil {
		t.Fatalf("write empty seed: %v", err)
	}
	if _, err := LoadDistrictsFile(empty); err == nil {
		t.Fatal("expected error for empty district list")
	}
}
