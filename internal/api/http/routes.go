package httpapi

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tanjir-dev/travel-recommender/internal/recommend"
	"github.com/tanjir-dev/travel-recommender/internal/store"
)

var validate = validator.New()

// Deps bundles what the HTTP handlers need.
type Deps struct {
	Districts recommend.DistrictStore
	Repo      recommend.ReadingRepository
	// Provider serves on-demand fetches for the caller's current location in
	// the recommendation endpoint.
	Provider recommend.Provider
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/districts/top", func(c *fiber.Ctx) error {
		var req topDistrictsQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		scores, err := deps.Repo.ListByScore(c.Context(), req.MinScore, req.Limit)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to list districts")
		}

		type entry struct {
			District recommend.District `json:"district"`
			Score    recommend.Score    `json:"score"`
		}
		out := make([]entry, 0, len(scores))
		for _, ds := range scores {
			d, err := deps.Districts.Get(c.Context(), ds.DistrictID)
			if err != nil {
				// Score for a district no longer tracked; skip it.
				continue
			}
			out = append(out, entry{District: d, Score: ds.Score})
		}

		return c.JSON(fiber.Map{"districts": out})
	})

	v1.Get("/districts/:id/weather", func(c *fiber.Ctx) error {
		id := c.Params("id")

		district, err := deps.Districts.Get(c.Context(), id)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "unknown district")
		}

		reading, score, err := deps.Repo.GetCurrent(c.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather data for district")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}

		return c.JSON(fiber.Map{
			"district": district,
			"reading":  reading,
			"score":    score,
		})
	})

	v1.Get("/recommendation", func(c *fiber.Ctx) error {
		var req recommendationQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		dest, err := deps.Districts.Get(c.Context(), req.Destination)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "unknown destination district")
		}

		destReading, _, err := deps.Repo.GetCurrent(c.Context(), dest.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather data for destination district")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch destination data")
		}

		curReading, err := deps.Provider.Fetch(c.Context(), req.CurrentLat, req.CurrentLon)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "failed to fetch weather for current location")
		}

		resp := compare(curReading, destReading)
		resp.Current.Lat = req.CurrentLat
		resp.Current.Lon = req.CurrentLon
		resp.Destination.District = dest.Name
		resp.Destination.Lat = dest.Latitude
		resp.Destination.Lon = dest.Longitude

		return c.JSON(resp)
	})
}

// topDistrictsQuery holds query parameters for the score-ordered listing.
type topDistrictsQuery struct {
	MinScore float64 `validate:"gte=0,lte=100"`
	Limit    int     `validate:"gte=1,lte=100"`
}

func (q *topDistrictsQuery) bind(c *fiber.Ctx) error {
	q.MinScore = 0
	q.Limit = 10

	if v := c.Query("min_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.New("min_score must be a number")
		}
		q.MinScore = f
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("limit must be an integer")
		}
		q.Limit = n
	}

	return validate.Struct(q)
}

// recommendationQuery holds query parameters for the travel comparison.
type recommendationQuery struct {
	CurrentLat  float64 `validate:"gte=-90,lte=90"`
	CurrentLon  float64 `validate:"gte=-180,lte=180"`
	Destination string  `validate:"required"`
}

func (q *recommendationQuery) bind(c *fiber.Ctx) error {
	latStr := c.Query("current_lat")
	lonStr := c.Query("current_lon")
	if latStr == "" || lonStr == "" {
		return errors.New("current_lat and current_lon query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return errors.New("current_lat must be a number")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return errors.New("current_lon must be a number")
	}

	q.CurrentLat = lat
	q.CurrentLon = lon
	q.Destination = c.Query("destination")

	return validate.Struct(q)
}

// locationMetrics mirrors one side of the comparison in the response.
type locationMetrics struct {
	District     string   `json:"district,omitempty"`
	Lat          float64  `json:"lat"`
	Lon          float64  `json:"lon"`
	TemperatureC float64  `json:"temperature_c"`
	PM25         *float64 `json:"pm25"`
}

type recommendationResponse struct {
	Recommendation string          `json:"recommendation"`
	Reason         string          `json:"reason"`
	Current        locationMetrics `json:"current"`
	Destination    locationMetrics `json:"destination"`
}

// compare recommends the destination only when it is both cooler and has
// lower PM2.5 than the current location.
func compare(cur, dest recommend.Reading) recommendationResponse {
	resp := recommendationResponse{
		Recommendation: "Not Recommended",
		Reason:         "Insufficient data to compare temperature or air quality.",
		Current: locationMetrics{
			TemperatureC: cur.TemperatureC,
			PM25:         cur.PM25,
		},
		Destination: locationMetrics{
			TemperatureC: dest.TemperatureC,
			PM25:         dest.PM25,
		},
	}

	if cur.PM25 == nil || dest.PM25 == nil {
		return resp
	}

	tempDiff := dest.TemperatureC - cur.TemperatureC
	pmDiff := *dest.PM25 - *cur.PM25
	cooler := tempDiff < 0
	cleaner := pmDiff < 0

	if cooler && cleaner {
		resp.Recommendation = "Recommended"
		resp.Reason = fmt.Sprintf(
			"Your destination is %.1f°C %s cooler and has %s better air quality. Enjoy your trip!",
			-tempDiff, qualTemp(tempDiff), qualPM(pmDiff))
		return resp
	}

	var parts []string
	if !cooler {
		if tempDiff > 0 {
			parts = append(parts, "hotter")
		} else {
			parts = append(parts, "the same temperature")
		}
	}
	if !cleaner {
		if pmDiff > 0 {
			parts = append(parts, "worse air quality")
		} else {
			parts = append(parts, "the same air quality")
		}
	}

	join := "not better on temperature or air quality"
	if len(parts) == 1 {
		join = parts[0]
	} else if len(parts) == 2 {
		join = parts[0] + " and " + parts[1]
	}
	resp.Reason = fmt.Sprintf(
		"Your destination is %s than your current location. It's better to stay where you are.", join)
	return resp
}

func qualTemp(delta float64) string {
	d := abs(delta)
	switch {
	case d >= 5:
		return "significantly"
	case d >= 2:
		return "moderately"
	default:
		return "slightly"
	}
}

func qualPM(delta float64) string {
	d := abs(delta)
	switch {
	case d >= 20:
		return "significantly"
	case d >= 10:
		return "moderately"
	default:
		return "slightly"
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
