package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Signal is the reduced short-range forecast the plan engine consumes. It is
// recomputed for every generation request and never cached.
type Signal struct {
	RainSoon   bool `json:"rainSoon"`   // precipitation probability ≥50% in the next 3 hours
	Hot        bool `json:"hot"`        // apparent temperature ≥35°C in the next 6 hours
	WindStrong bool `json:"windStrong"` // wind speed ≥40 km/h in the next 6 hours
}

const (
	rainProbabilityThreshold = 50.0
	apparentTempThreshold    = 35.0
	windSpeedThreshold       = 40.0

	rainLookaheadHours = 3
	heatLookaheadHours = 6
	windLookaheadHours = 6
)

const defaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// Client fetches hourly forecasts from Open-Meteo.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient constructs a Client. An empty baseURL selects the production
// Open-Meteo endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{baseURL: baseURL, client: &http.Client{Timeout: 10 * time.Second}}
}

type forecastResponse struct {
	Hourly struct {
		PrecipitationProbability []float64 `json:"precipitation_probability"`
		ApparentTemperature      []float64 `json:"apparent_temperature"`
		WindSpeed                []float64 `json:"windspeed_10m"`
	} `json:"hourly"`
}

// Fetch reduces the hourly forecast at the given coordinate to a Signal.
// Callers are expected to treat any error as an all-false Signal: weather is
// advisory and must never block plan generation.
func (c *Client) Fetch(ctx context.Context, lat, lon float64) (Signal, error) {
	endpoint := fmt.Sprintf(
		"%s?latitude=%f&longitude=%f&hourly=precipitation_probability,apparent_temperature,windspeed_10m&forecast_days=1&timezone=auto",
		c.baseURL, lat, lon)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Signal{}, fmt.Errorf("creating forecast request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Signal{}, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Signal{}, fmt.Errorf("GET %s returned status %d", endpoint, resp.StatusCode)
	}

	var raw forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Signal{}, fmt.Errorf("decoding forecast response: %w", err)
	}

	return Signal{
		RainSoon:   anyAtLeast(raw.Hourly.PrecipitationProbability, rainLookaheadHours, rainProbabilityThreshold),
		Hot:        anyAtLeast(raw.Hourly.ApparentTemperature, heatLookaheadHours, apparentTempThreshold),
		WindStrong: anyAtLeast(raw.Hourly.WindSpeed, windLookaheadHours, windSpeedThreshold),
	}, nil
}

func anyAtLeast(values []float64, hours int, threshold float64) bool {
	if len(values) < hours {
		hours = len(values)
	}
	for _, v := range values[:hours] {
		if v >= threshold {
			return true
		}
	}
	return false
}
