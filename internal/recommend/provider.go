package recommend

import (
	"context"
)

// Provider abstracts an external weather/air-quality data source
// (e.g. Open-Meteo). Implementations are stateless beyond the outbound call.
type Provider interface {
	Name() string
	// Fetch returns a normalized reading for the given coordinate.
	// Latitude must be in [-90, 90] and longitude in [-180, 180].
	Fetch(ctx context.Context, lat, lon float64) (Reading, error)
}

// DistrictStore is the read-only source of tracked districts.
type DistrictStore interface {
	All(ctx context.Context) ([]District, error)
	Get(ctx context.Context, id string) (District, error)
}

// ReadingRepository persists the current (and archived) reading plus derived
// score per district. Implementations must guarantee at most one current
// reading per district and swap it atomically on upsert.
type ReadingRepository interface {
	// UpsertCurrent archives the previous current reading for the district and
	// flags the new one current, in a single atomic step. A reading older than
	// the stored current one is ignored and the stored reading returned, so
	// current timestamps never move backwards.
	UpsertCurrent(ctx context.Context, reading Reading, score Score) (Reading, error)

	// GetCurrent returns the current reading and score for a district.
	GetCurrent(ctx context.Context, districtID string) (Reading, Score, error)

	// ListByScore returns districts with a current score >= minScore, ordered
	// by score descending with ties broken by district ID ascending.
	// limit <= 0 means no limit.
	ListByScore(ctx context.Context, minScore float64, limit int) ([]DistrictScore, error)
}
