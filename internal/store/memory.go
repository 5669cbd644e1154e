package store

import (
	"context"
	"sort"
	"sync"

	"github.com/tanjir-dev/travel-recommender/internal/recommend"
)

// districtHistory holds the archived readings plus the current reading/score
// for one district.
type districtHistory struct {
	archived []recommend.Reading
	current  *recommend.Reading
	score    recommend.Score
}

// MemoryRepository is a concurrency-safe in-memory reading repository. Used
// for tests and storage-free runs; the SQLite repository is the production
// implementation.
type MemoryRepository struct {
	mu sync.RWMutex

	// key: district ID
	data map[string]*districtHistory

	// max archived readings kept per district (<= 0 means unlimited)
	maxHistory int
}

// NewMemoryRepository creates a new MemoryRepository with optional retention.
func NewMemoryRepository(maxHistory int) *MemoryRepository {
	return &MemoryRepository{
		data:       make(map[string]*districtHistory),
		maxHistory: maxHistory,
	}
}

// UpsertCurrent swaps the current reading under the write lock: the previous
// current reading moves to the archive and the new one takes its place, so
// readers never observe zero or two current readings. Stale readings (older
// than the stored current one) are ignored.
func (s *MemoryRepository) UpsertCurrent(_ context.Context, reading recommend.Reading, score recommend.Score) (recommend.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[reading.DistrictID]
	if !ok {
		history = &districtHistory{}
		s.data[reading.DistrictID] = history
	}

	if history.current != nil {
		if reading.Timestamp.Before(history.current.Timestamp) {
			return *history.current, nil
		}
		history.archived = append(history.archived, *history.current)

		// Enforce retention by count.
		if s.maxHistory > 0 && len(history.archived) > s.maxHistory {
			over := len(history.archived) - s.maxHistory
			history.archived = history.archived[over:]
		}
	}

	r := reading
	history.current = &r
	history.score = score
	return reading, nil
}

// GetCurrent returns the current reading and score for a district.
func (s *MemoryRepository) GetCurrent(_ context.Context, districtID string) (recommend.Reading, recommend.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[districtID]
	if !ok || history.current == nil {
		return recommend.Reading{}, recommend.Score{}, ErrNotFound
	}
	return *history.current, history.score, nil
}

// ListByScore returns districts with a current score >= minScore, ordered by
// score descending, ties broken by district ID.
func (s *MemoryRepository) ListByScore(_ context.Context, minScore float64, limit int) ([]recommend.DistrictScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []recommend.DistrictScore
	for id, history := range s.data {
		if history.current == nil || history.score.Value < minScore {
			continue
		}
		out = append(out, recommend.DistrictScore{DistrictID: id, Score: history.score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score.Value != out[j].Score.Value {
			return out[i].Score.Value > out[j].Score.Value
		}
		return out[i].DistrictID < out[j].DistrictID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ArchivedCount reports how many archived readings a district has. Test hook.
func (s *MemoryRepository) ArchivedCount(districtID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[districtID]
	if !ok {
		return 0
	}
	return len(history.archived)
}
