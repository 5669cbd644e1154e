package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tanjir-dev/travel-recommender/internal/recommend"
)

const (
	defaultWeatherURL    = "https://api.open-meteo.com/v1/forecast"
	defaultAirQualityURL = "https://air-quality-api.open-meteo.com/v1/air-quality"

	defaultForecastDays = 7
	defaultSampleHour   = 14 // afternoon sample for the temperature average
)

// OpenMeteoConfig customizes the Open-Meteo client. Zero values fall back to
// the public API endpoints and the standard forecast window.
type OpenMeteoConfig struct {
	WeatherURL    string
	AirQualityURL string
	ForecastDays  int
	SampleHour    int
	Backoff       BackoffConfig
}

// OpenMeteoClient implements recommend.Provider against the two Open-Meteo
// APIs: the weather forecast endpoint and the air-quality endpoint. One Fetch
// performs both calls and merges them into a single normalized reading.
type OpenMeteoClient struct {
	name          string
	weatherURL    string
	airQualityURL string
	forecastDays  int
	sampleHour    int
	httpCfg       HTTPClientConfig
	circuit       *gobreaker.CircuitBreaker
}

func NewOpenMeteoClient(client *http.Client, cfg OpenMeteoConfig) *OpenMeteoClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	weatherURL := cfg.WeatherURL
	if weatherURL == "" {
		weatherURL = defaultWeatherURL
	}
	airQualityURL := cfg.AirQualityURL
	if airQualityURL == "" {
		airQualityURL = defaultAirQualityURL
	}
	forecastDays := cfg.ForecastDays
	if forecastDays <= 0 {
		forecastDays = defaultForecastDays
	}
	sampleHour := cfg.SampleHour
	if sampleHour <= 0 || sampleHour > 23 {
		sampleHour = defaultSampleHour
	}
	backoff := cfg.Backoff
	if backoff.InitialInterval <= 0 {
		backoff = BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		}
	}

	return &OpenMeteoClient{
		name:          "openmeteo",
		weatherURL:    weatherURL,
		airQualityURL: airQualityURL,
		forecastDays:  forecastDays,
		sampleHour:    sampleHour,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: backoff,
		},
		circuit: cb,
	}
}

func (c *OpenMeteoClient) Name() string {
	return c.name
}

// Fetch retrieves the weather and air-quality series for a coordinate and
// collapses them into one reading: afternoon temperature averaged across the
// forecast window, weekly PM2.5/AQI averages of daily averages. An air-quality
// response with empty series yields nil AQI fields rather than an error.
func (c *OpenMeteoClient) Fetch(ctx context.Context, lat, lon float64) (recommend.Reading, error) {
	if lat < -90 || lat > 90 {
		return recommend.Reading{}, recommend.E(recommend.KindMalformed, "openmeteo.fetch",
			fmt.Errorf("latitude %.4f out of range [-90, 90]", lat))
	}
	if lon < -180 || lon > 180 {
		return recommend.Reading{}, recommend.E(recommend.KindMalformed, "openmeteo.fetch",
			fmt.Errorf("longitude %.4f out of range [-180, 180]", lon))
	}

	weather, err := c.fetchWeather(ctx, lat, lon)
	if err != nil {
		return recommend.Reading{}, err
	}

	air, err := c.fetchAirQuality(ctx, lat, lon)
	if err != nil {
		return recommend.Reading{}, err
	}

	reading := recommend.Reading{
		Timestamp:    time.Now().UTC(),
		TemperatureC: weather.temperature,
		HumidityPct:  weather.humidity,
		WindSpeedMS:  weather.windSpeed,
		PM25:         air.pm25,
		AQI:          air.aqi,
		Source:       c.name,
	}
	return reading, nil
}

// hourlySeries is the common shape of Open-Meteo hourly payloads. Values are
// nullable: the API reports null for hours without data.
type hourlySeries struct {
	Time []string `json:"time"`
}

type weatherSample struct {
	temperature float64
	humidity    float64
	windSpeed   float64
}

func (c *OpenMeteoClient) fetchWeather(ctx context.Context, lat, lon float64) (weatherSample, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
		values.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
		values.Set("hourly", "temperature_2m,relativehumidity_2m,windspeed_10m")
		values.Set("forecast_days", strconv.Itoa(c.forecastDays))
		values.Set("timezone", "auto")

		u := fmt.Sprintf("%s?%s", c.weatherURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return weatherSample{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Hourly struct {
			hourlySeries
			Temperature []*float64 `json:"temperature_2m"`
			Humidity    []*float64 `json:"relativehumidity_2m"`
			WindSpeed   []*float64 `json:"windspeed_10m"`
		} `json:"hourly"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weatherSample{}, recommend.E(recommend.KindMalformed, "openmeteo.weather", err)
	}

	temps := valuesAtHour(payload.Hourly.Time, payload.Hourly.Temperature, c.sampleHour)
	if len(temps) == 0 {
		return weatherSample{}, recommend.E(recommend.KindMalformed, "openmeteo.weather",
			fmt.Errorf("no %d:00 temperature samples in response", c.sampleHour))
	}

	sample := weatherSample{temperature: avg(temps)}
	if hums := valuesAtHour(payload.Hourly.Time, payload.Hourly.Humidity, c.sampleHour); len(hums) > 0 {
		sample.humidity = avg(hums)
	}
	if winds := valuesAtHour(payload.Hourly.Time, payload.Hourly.WindSpeed, c.sampleHour); len(winds) > 0 {
		// Open-Meteo reports wind in km/h.
		sample.windSpeed = avg(winds) / 3.6
	}
	return sample, nil
}

type airSample struct {
	pm25 *float64
	aqi  *float64
}

func (c *OpenMeteoClient) fetchAirQuality(ctx context.Context, lat, lon float64) (airSample, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
		values.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
		values.Set("hourly", "pm2_5,european_aqi")
		values.Set("forecast_days", strconv.Itoa(c.forecastDays))

		u := fmt.Sprintf("%s?%s", c.airQualityURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return airSample{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Hourly struct {
			hourlySeries
			PM25 []*float64 `json:"pm2_5"`
			AQI  []*float64 `json:"european_aqi"`
		} `json:"hourly"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return airSample{}, recommend.E(recommend.KindMalformed, "openmeteo.airquality", err)
	}

	// Empty series means the provider has no air-quality coverage here; the
	// scorer substitutes a neutral midpoint, so this is not a failure.
	var sample airSample
	if v, ok := weeklyAverage(payload.Hourly.Time, payload.Hourly.PM25); ok {
		sample.pm25 = &v
	}
	if v, ok := weeklyAverage(payload.Hourly.Time, payload.Hourly.AQI); ok {
		sample.aqi = &v
	}
	return sample, nil
}

// valuesAtHour collects non-null values whose timestamp ends with "T{hour}:00".
func valuesAtHour(times []string, values []*float64, hour int) []float64 {
	suffix := fmt.Sprintf("T%02d:00", hour)
	var out []float64
	for i, t := range times {
		if i >= len(values) || values[i] == nil {
			continue
		}
		if strings.HasSuffix(t, suffix) {
			out = append(out, *values[i])
		}
	}
	return out
}

// weeklyAverage groups values by day, averages each day, then averages the
// daily averages. Returns false when the series holds no data at all.
func weeklyAverage(times []string, values []*float64) (float64, bool) {
	byDay := make(map[string][]float64)
	for i, t := range times {
		if i >= len(values) || values[i] == nil {
			continue
		}
		day, _, _ := strings.Cut(t, "T")
		byDay[day] = append(byDay[day], *values[i])
	}
	if len(byDay) == 0 {
		return 0, false
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	dailyAvgs := make([]float64, 0, len(days))
	for _, day := range days {
		dailyAvgs = append(dailyAvgs, avg(byDay[day]))
	}
	return avg(dailyAvgs), true
}

func avg(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
