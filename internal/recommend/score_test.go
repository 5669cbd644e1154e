package recommend

import (
	"testing"
	"time"
)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(DefaultScoringConfig())
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	return s
}

func floatPtr(v float64) *float64 { return &v }

func TestScoreIdealConditions(t *testing.T) {
	s := newTestScorer(t)

	r := Reading{
		DistrictID:   "dhaka",
		Timestamp:    time.Now().UTC(),
		TemperatureC: 22,
		AQI:          floatPtr(30),
	}

	got := s.Score(r)
	if got.Value != 100 {
		t.Fatalf("expected score 100 for ideal conditions, got %.1f", got.Value)
	}
	if got.TempComponent != 100 || got.AirComponent != 100 {
		t.Fatalf("expected both components at 100, got temp=%.1f air=%.1f",
			got.TempComponent, got.AirComponent)
	}
	if got.Clamped {
		t.Fatal("in-range inputs must not be marked clamped")
	}
}

func TestScoreHostileConditions(t *testing.T) {
	s := newTestScorer(t)

	r := Reading{
		TemperatureC: 40,
		AQI:          floatPtr(300),
	}

	got := s.Score(r)
	if got.Value > 10 {
		t.Fatalf("expected score <= 10 for 40°C and hazardous air, got %.1f", got.Value)
	}
}

func TestScoreMissingAQIUsesNeutralMidpoint(t *testing.T) {
	s := newTestScorer(t)

	r := Reading{TemperatureC: 22} // no AQI reported

	got := s.Score(r)
	if got.AirComponent != 50 {
		t.Fatalf("expected neutral air component 50, got %.1f", got.AirComponent)
	}
	if got.Value != 75 {
		t.Fatalf("expected score 75 (temp 100, air neutral 50), got %.1f", got.Value)
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := newTestScorer(t)

	r := Reading{TemperatureC: 31.4, AQI: floatPtr(120)}

	a := s.Score(r)
	b := s.Score(r)
	if a.Value != b.Value || a.TempComponent != b.TempComponent || a.AirComponent != b.AirComponent {
		t.Fatalf("scoring is not deterministic: %+v vs %+v", a, b)
	}
}

func TestScoreClampsUntrustedInputs(t *testing.T) {
	s := newTestScorer(t)

	cases := []Reading{
		{TemperatureC: 1000},
		{TemperatureC: -273},
		{TemperatureC: 22, AQI: floatPtr(-5)},
		{TemperatureC: 22, AQI: floatPtr(9999)},
	}

	for _, r := range cases {
		got := s.Score(r)
		if !got.Clamped {
			t.Errorf("reading %+v: expected clamped flag", r)
		}
		if got.Value < 0 || got.Value > 100 {
			t.Errorf("reading %+v: score %.1f outside [0, 100]", r, got.Value)
		}
	}
}

func TestAirSubScoreBands(t *testing.T) {
	s := newTestScorer(t)

	cases := []struct {
		aqi  float64
		want float64
	}{
		{10, 100},
		{50, 100},
		{80, 75},
		{120, 50},
		{180, 25},
		{250, 10},
		{300, 0},
		{450, 0},
	}

	for _, tc := range cases {
		if got := s.airSubScore(tc.aqi); got != tc.want {
			t.Errorf("airSubScore(%.0f) = %.0f, want %.0f", tc.aqi, got, tc.want)
		}
	}
}

func TestTempSubScoreDecay(t *testing.T) {
	s := newTestScorer(t)

	// Defaults: ideal 18-26, tolerance 14.
	cases := []struct {
		temp float64
		want float64
	}{
		{18, 100},
		{26, 100},
		{33, 50},  // halfway above the band
		{11, 50},  // halfway below the band
		{40, 0},   // at the tolerance edge
		{4, 0},    // at the tolerance edge
		{-20, 0},  // far below
		{55, 0},   // far above
	}

	for _, tc := range cases {
		if got := s.tempSubScore(tc.temp); got != tc.want {
			t.Errorf("tempSubScore(%.0f) = %.1f, want %.1f", tc.temp, got, tc.want)
		}
	}
}

func TestScoringConfigValidate(t *testing.T) {
	bad := DefaultScoringConfig()
	bad.IdealTempLowC = 30
	bad.IdealTempHighC = 20
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for inverted temperature band")
	}

	bad = DefaultScoringConfig()
	bad.AQIFair = bad.AQIGood
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for non-increasing aqi bands")
	}

	bad = DefaultScoringConfig()
	bad.TempWeight = 0
	bad.AirWeight = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for zero weights")
	}
}
