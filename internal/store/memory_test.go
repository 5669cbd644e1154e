package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tanjir-dev/travel-recommender/internal/recommend"
)

func reading(districtID string, ts time.Time, temp float64) recommend.Reading {
	return recommend.Reading{
		DistrictID:   districtID,
		Timestamp:    ts,
		TemperatureC: temp,
		Source:       "test",
	}
}

func score(districtID string, value float64) recommend.Score {
	return recommend.Score{
		DistrictID: districtID,
		Value:      value,
		ComputedAt: time.Now().UTC(),
	}
}

func TestMemoryUpsertAndGetCurrent(t *testing.T) {
	repo := NewMemoryRepository(0)
	ctx := context.Background()
	ts := time.Now().UTC()

	if _, err := repo.UpsertCurrent(ctx, reading("dhaka", ts, 28), score("dhaka", 80)); err != nil {
		t.Fatalf("UpsertCurrent: %v", err)
	}

	r, s, err := repo.GetCurrent(ctx, "dhaka")
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if !r.Timestamp.Equal(ts) || r.TemperatureC != 28 {
		t.Fatalf("unexpected reading: %+v", r)
	}
	if s.Value != 80 {
		t.Fatalf("unexpected score: %+v", s)
	}
}

func TestMemoryGetCurrentNotFound(t *testing.T) {
	repo := NewMemoryRepository(0)
	if _, _, err := repo.GetCurrent(context.Background(), "nowhere"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryUpsertArchivesPreviousCurrent(t *testing.T) {
	repo := NewMemoryRepository(0)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		if _, err := repo.UpsertCurrent(ctx, reading("dhaka", ts, 25), score("dhaka", 70)); err != nil {
			t.Fatalf("UpsertCurrent #%d: %v", i, err)
		}
	}

	if got := repo.ArchivedCount("dhaka"); got != 2 {
		t.Fatalf("expected 2 archived readings, got %d", got)
	}
	r, _, err := repo.GetCurrent(ctx, "dhaka")
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if !r.Timestamp.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("current is not the newest reading: %v", r.Timestamp)
	}
}

func TestMemoryIgnoresStaleReadings(t *testing.T) {
	repo := NewMemoryRepository(0)
	ctx := context.Background()
	newer := time.Now().UTC()
	older := newer.Add(-time.Hour)

	if _, err := repo.UpsertCurrent(ctx, reading("dhaka", newer, 25), score("dhaka", 70)); err != nil {
		t.Fatalf("UpsertCurrent: %v", err)
	}

	got, err := repo.UpsertCurrent(ctx, reading("dhaka", older, 99), score("dhaka", 1))
	if err != nil {
		t.Fatalf("UpsertCurrent stale: %v", err)
	}
	if !got.Timestamp.Equal(newer) {
		t.Fatalf("stale upsert should return the stored current reading, got ts %v", got.Timestamp)
	}

	r, s, err := repo.GetCurrent(ctx, "dhaka")
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if r.TemperatureC != 25 || s.Value != 70 {
		t.Fatalf("stale reading overwrote current: %+v %+v", r, s)
	}
}

func TestMemoryConcurrentUpsertsKeepOneCurrent(t *testing.T) {
	repo := NewMemoryRepository(0)
	ctx := context.Background()
	base := time.Now().UTC()

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ts := base.Add(time.Duration(i) * time.Second)
			if _, err := repo.UpsertCurrent(ctx, reading("dhaka", ts, float64(i)), score("dhaka", float64(i))); err != nil {
				t.Errorf("UpsertCurrent: %v", err)
			}
		}(i)
	}
	wg.Wait()

	// Exactly one current reading, and it carries the newest timestamp.
	r, _, err := repo.GetCurrent(ctx, "dhaka")
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if !r.Timestamp.Equal(base.Add((n - 1) * time.Second)) {
		t.Fatalf("current reading is not the newest: %v", r.Timestamp)
	}
	list, err := repo.ListByScore(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListByScore: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected exactly one scored district, got %d", len(list))
	}
}

func TestMemoryListByScoreOrderingAndTieBreak(t *testing.T) {
	repo := NewMemoryRepository(0)
	ctx := context.Background()
	ts := time.Now().UTC()

	seed := []struct {
		id    string
		value float64
	}{
		{"khulna", 60},
		{"dhaka", 90},
		{"sylhet", 90},
		{"rajshahi", 30},
	}
	for _, s := range seed {
		if _, err := repo.UpsertCurrent(ctx, reading(s.id, ts, 22), score(s.id, s.value)); err != nil {
			t.Fatalf("UpsertCurrent %s: %v", s.id, err)
		}
	}

	list, err := repo.ListByScore(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListByScore: %v", err)
	}
	wantOrder := []string{"dhaka", "sylhet", "khulna", "rajshahi"}
	if len(list) != len(wantOrder) {
		t.Fatalf("expected %d districts, got %d", len(wantOrder), len(list))
	}
	for i, want := range wantOrder {
		if list[i].DistrictID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, list[i].DistrictID)
		}
	}

	// minScore filters, limit truncates.
	list, err = repo.ListByScore(ctx, 50, 2)
	if err != nil {
		t.Fatalf("ListByScore: %v", err)
	}
	if len(list) != 2 || list[0].DistrictID != "dhaka" || list[1].DistrictID != "sylhet" {
		t.Fatalf("unexpected filtered list: %+v", list)
	}
}

func TestMemoryRetentionLimit(t *testing.T) {
	repo := NewMemoryRepository(2)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 10; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		if _, err := repo.UpsertCurrent(ctx, reading("dhaka", ts, 25), score("dhaka", 70)); err != nil {
			t.Fatalf("UpsertCurrent #%d: %v", i, err)
		}
	}

	if got := repo.ArchivedCount("dhaka"); got != 2 {
		t.Fatalf("expected retention to cap archive at 2, got %d", got)
	}
}
