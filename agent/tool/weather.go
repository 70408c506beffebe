package tool

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
)

const (
	ToolWeatherForecast = "weather.forecast"

	defaultForecastDays = 7
	maxForecastDays     = 14
)

// WeatherConfig configures the forecast client.
type WeatherConfig struct {
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.open-meteo.com"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// WeatherClient fetches daily forecasts from open-meteo. Inputs may be a
// place name (geocoded first) or raw "lat,lon" coordinates.
type WeatherClient struct {
	baseURL    string
	httpClient *http.Client
	geo        *GeoClient
}

func NewWeatherClient(cfg WeatherConfig, geo *GeoClient) *WeatherClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WeatherClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		geo:        geo,
	}
}

// Invoke is the weather.forecast tool implementation.
func (c *WeatherClient) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	place, _ := args["place"].(string)
	place = strings.TrimSpace(place)
	if place == "" {
		return nil, fmt.Errorf("%w: place is empty", contractx.ErrValidation)
	}

	days := defaultForecastDays
	if raw, ok := args["days"]; ok {
		days = intArg(raw, defaultForecastDays)
	}
	if days < 1 {
		days = 1
	}
	if days > maxForecastDays {
		days = maxForecastDays
	}

	lat, lon, ok := parseLatLon(place)
	resolved := place
	if !ok {
		match, err := c.geo.Geocode(ctx, place)
		if err != nil {
			return nil, err
		}
		lat, lon = match.Latitude, match.Longitude
		resolved = match.Name
	}

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	params.Set("daily", "weathercode,temperature_2m_max,temperature_2m_min,precipitation_sum")
	params.Set("forecast_days", strconv.Itoa(days))
	params.Set("timezone", "auto")

	var parsed struct {
		Daily    map[string]any `json:"daily"`
		Timezone string         `json:"timezone"`
	}
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/v1/forecast", params, &parsed); err != nil {
		return nil, err
	}

	return map[string]any{
		"place":     resolved,
		"latitude":  lat,
		"longitude": lon,
		"timezone":  parsed.Timezone,
		"daily":     parsed.Daily,
	}, nil
}

func intArg(raw any, fallback int) int {
	switch v := raw.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}
