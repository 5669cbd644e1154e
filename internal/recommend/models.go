package recommend

import (
	"time"
)

// District is a tracked travel destination with fixed coordinates.
// Reference data: created by administrative seeding, never mutated by the pipeline.
type District struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	BnName    string  `json:"bn_name,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Reading is a normalized weather/air-quality observation for a district.
// Temperature is the average 2 PM temperature across the forecast window;
// PM2.5 and AQI are weekly averages of daily averages. Pointer fields are nil
// when the provider reported no data for that series.
type Reading struct {
	DistrictID   string    `json:"districtId"`
	Timestamp    time.Time `json:"timestamp"` // always UTC
	TemperatureC float64   `json:"temperatureC"`
	HumidityPct  float64   `json:"humidityPercent"`
	WindSpeedMS  float64   `json:"windSpeedMs"`
	PM25         *float64  `json:"pm25,omitempty"`
	AQI          *float64  `json:"aqi,omitempty"`
	Source       string    `json:"source"`
}

// Score is the travel-suitability value derived from a district's current
// Reading. Recomputed whenever the reading changes, never mutated on its own.
type Score struct {
	DistrictID    string    `json:"districtId"`
	Value         float64   `json:"value"` // 0-100
	TempComponent float64   `json:"tempComponent"`
	AirComponent  float64   `json:"airComponent"`
	Clamped       bool      `json:"clamped,omitempty"` // inputs were clamped before scoring
	ComputedAt    time.Time `json:"computedAt"`
}

// DistrictScore pairs a district identifier with its current score for
// the score-ordered query interface.
type DistrictScore struct {
	DistrictID string `json:"districtId"`
	Score      Score  `json:"score"`
}

// Outcome records the result of refreshing a single district within a batch.
type Outcome struct {
	DistrictID string    `json:"districtId"`
	Kind       ErrorKind `json:"kind,omitempty"` // empty on success
	Err        error     `json:"-"`
	Score      *Score    `json:"score,omitempty"`
}

// OK reports whether the district refresh succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// BatchResult aggregates per-district outcomes for one orchestration run.
// Ephemeral: produced for observability, not persisted.
type BatchResult struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Succeeded returns the number of districts refreshed successfully.
func (b BatchResult) Succeeded() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of districts that ended in a recorded failure.
func (b BatchResult) Failed() int {
	return len(b.Outcomes) - b.Succeeded()
}

// FailedDistricts lists the identifiers of districts whose refresh failed,
// for downstream alerting.
func (b BatchResult) FailedDistricts() []string {
	var ids []string
	for _, o := range b.Outcomes {
		if !o.OK() {
			ids = append(ids, o.DistrictID)
		}
	}
	return ids
}
