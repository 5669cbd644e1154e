package recommend

import (
	"fmt"
	"time"
)

// Input clamp bounds. Provider data is not trusted; anything outside these
// ranges is clamped before scoring and the score marked accordingly.
const (
	minPlausibleTempC = -60.0
	maxPlausibleTempC = 60.0
	maxPlausibleAQI   = 500.0
)

// neutralAirScore is used when a reading carries no air-quality index, so
// partial data still yields a usable score.
const neutralAirScore = 50.0

// ScoringConfig holds the externally configured scoring thresholds.
type ScoringConfig struct {
	// Ideal comfort band for the temperature sub-score; full marks inside,
	// linear decay to 0 at TempToleranceC outside either edge.
	IdealTempLowC  float64
	IdealTempHighC float64
	TempToleranceC float64

	// Air-quality index bands (European AQI scale). Full marks at or below
	// Good, stepping down through the bands, 0 at or above Hazardous.
	AQIGood      float64
	AQIFair      float64
	AQIModerate  float64
	AQIPoor      float64
	AQIHazardous float64

	// Sub-score weights for the final weighted average.
	TempWeight float64
	AirWeight  float64
}

// DefaultScoringConfig returns the thresholds used when none are configured.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		IdealTempLowC:  18,
		IdealTempHighC: 26,
		TempToleranceC: 14,
		AQIGood:        50,
		AQIFair:        100,
		AQIModerate:    150,
		AQIPoor:        200,
		AQIHazardous:   300,
		TempWeight:     0.5,
		AirWeight:      0.5,
	}
}

// Validate checks the config for bands that cannot produce a meaningful score.
func (c ScoringConfig) Validate() error {
	if c.IdealTempLowC > c.IdealTempHighC {
		return fmt.Errorf("ideal temperature band inverted: low %.1f > high %.1f", c.IdealTempLowC, c.IdealTempHighC)
	}
	if c.TempToleranceC <= 0 {
		return fmt.Errorf("temperature tolerance must be positive, got %.1f", c.TempToleranceC)
	}
	if !(c.AQIGood < c.AQIFair && c.AQIFair < c.AQIModerate && c.AQIModerate < c.AQIPoor && c.AQIPoor < c.AQIHazardous) {
		return fmt.Errorf("aqi bands must be strictly increasing")
	}
	if c.TempWeight+c.AirWeight <= 0 {
		return fmt.Errorf("sub-score weights must sum to a positive value")
	}
	return nil
}

// Scorer computes travel-suitability scores. Pure: no hidden state, no I/O.
type Scorer struct {
	cfg ScoringConfig
}

// NewScorer creates a Scorer from validated config.
func NewScorer(cfg ScoringConfig) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Score derives a Score from the reading. Out-of-range inputs are clamped and
// the clamping recorded; a missing AQI falls back to a neutral midpoint.
func (s *Scorer) Score(r Reading) Score {
	temp, tempClamped := clamp(r.TemperatureC, minPlausibleTempC, maxPlausibleTempC)

	airScore := neutralAirScore
	aqiClamped := false
	if r.AQI != nil {
		var aqi float64
		aqi, aqiClamped = clamp(*r.AQI, 0, maxPlausibleAQI)
		airScore = s.airSubScore(aqi)
	}

	tempScore := s.tempSubScore(temp)

	wSum := s.cfg.TempWeight + s.cfg.AirWeight
	value := (s.cfg.TempWeight*tempScore + s.cfg.AirWeight*airScore) / wSum
	value, _ = clamp(value, 0, 100)

	return Score{
		DistrictID:    r.DistrictID,
		Value:         value,
		TempComponent: tempScore,
		AirComponent:  airScore,
		Clamped:       tempClamped || aqiClamped,
		ComputedAt:    time.Now().UTC(),
	}
}

// tempSubScore is piecewise linear: 100 inside the ideal band, decaying to 0
// at TempToleranceC beyond either edge.
func (s *Scorer) tempSubScore(t float64) float64 {
	cfg := s.cfg
	switch {
	case t >= cfg.IdealTempLowC && t <= cfg.IdealTempHighC:
		return 100
	case t < cfg.IdealTempLowC:
		deficit := cfg.IdealTempLowC - t
		if deficit >= cfg.TempToleranceC {
			return 0
		}
		return 100 * (1 - deficit/cfg.TempToleranceC)
	default:
		excess := t - cfg.IdealTempHighC
		if excess >= cfg.TempToleranceC {
			return 0
		}
		return 100 * (1 - excess/cfg.TempToleranceC)
	}
}

// airSubScore is an inverse step function over the configured AQI bands.
func (s *Scorer) airSubScore(aqi float64) float64 {
	cfg := s.cfg
	switch {
	case aqi <= cfg.AQIGood:
		return 100
	case aqi <= cfg.AQIFair:
		return 75
	case aqi <= cfg.AQIModerate:
		return 50
	case aqi <= cfg.AQIPoor:
		return 25
	case aqi < cfg.AQIHazardous:
		return 10
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) (float64, bool) {
	if v < lo {
		return lo, true
	}
	if v > hi {
		return hi, true
	}
	return v, false
}
