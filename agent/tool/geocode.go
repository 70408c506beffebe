package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
)

const ToolGeoLookup = "geo.lookup"

// GeoConfig configures the geocoding client.
type GeoConfig struct {
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" default:"https://geocoding-api.open-meteo.com"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// GeoClient resolves place names to coordinates via the open-meteo
// geocoding API.
type GeoClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewGeoClient(cfg GeoConfig) *GeoClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GeoClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Place is one geocoding match.
type Place struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country,omitempty"`
	Timezone  string  `json:"timezone,omitempty"`
}

func (c *GeoClient) Geocode(ctx context.Context, place string) (Place, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return Place{}, fmt.Errorf("%w: place is empty", contractx.ErrValidation)
	}

	params := url.Values{}
	params.Set("name", place)
	params.Set("count", "1")

	var parsed struct {
		Results []Place `json:"results"`
	}
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/v1/search", params, &parsed); err != nil {
		return Place{}, err
	}
	if len(parsed.Results) == 0 {
		return Place{}, fmt.Errorf("could not geocode %q", place)
	}
	return parsed.Results[0], nil
}

// Invoke is the geo.lookup tool implementation.
func (c *GeoClient) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	place, _ := args["place"].(string)
	match, err := c.Geocode(ctx, place)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"name":      match.Name,
		"latitude":  match.Latitude,
		"longitude": match.Longitude,
		"country":   match.Country,
		"timezone":  match.Timezone,
	}, nil
}

// parseLatLon accepts "lat,lon" strings so callers can skip geocoding.
func parseLatLon(s string) (float64, float64, bool) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// getJSON issues a GET and decodes the JSON body. Server-side failures are
// classified transient so retryable tools get another attempt.
func getJSON(ctx context.Context, client *http.Client, rawURL string, params url.Values, out any) error {
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", contractx.ErrTransient, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: http status=%d", contractx.ErrTransient, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http status=%d body=%s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
