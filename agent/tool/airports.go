package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"

	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
)

const ToolAirportLookup = "airport.lookup"

// Airport is one entry in the shipped IATA table.
type Airport struct {
	IATA    string
	Name    string
	City    string
	Country string
}

// A compact table of major hubs. Enough for itinerary planning; exotic
// routes fall back to the geo.lookup tool.
var airports = []Airport{
	{IATA: "AMS", Name: "Amsterdam Airport Schiphol", City: "Amsterdam", Country: "NL"},
	{IATA: "ATL", Name: "Hartsfield-Jackson Atlanta International", City: "Atlanta", Country: "US"},
	{IATA: "BCN", Name: "Barcelona-El Prat", City: "Barcelona", Country: "ES"},
	{IATA: "BKK", Name: "Suvarnabhumi Airport", City: "Bangkok", Country: "TH"},
	{IATA: "BOS", Name: "Boston Logan International", City: "Boston", Country: "US"},
	{IATA: "CDG", Name: "Paris Charles de Gaulle", City: "Paris", Country: "FR"},
	{IATA: "DEN", Name: "Denver International", City: "Denver", Country: "US"},
	{IATA: "DXB", Name: "Dubai International", City: "Dubai", Country: "AE"},
	{IATA: "FCO", Name: "Rome Fiumicino", City: "Rome", Country: "IT"},
	{IATA: "FRA", Name: "Frankfurt Airport", City: "Frankfurt", Country: "DE"},
	{IATA: "HND", Name: "Tokyo Haneda", City: "Tokyo", Country: "JP"},
	{IATA: "IST", Name: "Istanbul Airport", City: "Istanbul", Country: "TR"},
	{IATA: "JFK", Name: "John F. Kennedy International", City: "New York", Country: "US"},
	{IATA: "LAX", Name: "Los Angeles International", City: "Los Angeles", Country: "US"},
	{IATA: "LHR", Name: "London Heathrow", City: "London", Country: "GB"},
	{IATA: "MAD", Name: "Adolfo Suarez Madrid-Barajas", City: "Madrid", Country: "ES"},
	{IATA: "MEX", Name: "Mexico City International", City: "Mexico City", Country: "MX"},
	{IATA: "NRT", Name: "Tokyo Narita", City: "Tokyo", Country: "JP"},
	{IATA: "ORD", Name: "Chicago O'Hare International", City: "Chicago", Country: "US"},
	{IATA: "PDX", Name: "Portland International", City: "Portland", Country: "US"},
	{IATA: "SEA", Name: "Seattle-Tacoma International", City: "Seattle", Country: "US"},
	{IATA: "SFO", Name: "San Francisco International", City: "San Francisco", Country: "US"},
	{IATA: "SIN", Name: "Singapore Changi", City: "Singapore", Country: "SG"},
	{IATA: "SYD", Name: "Sydney Kingsford Smith", City: "Sydney", Country: "AU"},
	{IATA: "YVR", Name: "Vancouver International", City: "Vancouver", Country: "CA"},
}

// AirportLookup guesses IATA codes from an exact code, a city, or an
// airport name, best matches first.
func AirportLookup(_ context.Context, args map[string]any) (map[string]any, error) {
	term, _ := args["term"].(string)
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: term is empty", contractx.ErrValidation)
	}

	limit := 5
	if raw, ok := args["limit"]; ok {
		limit = intArg(raw, 5)
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 10 {
		limit = 10
	}

	type scored struct {
		score int
		ap    Airport
	}

	termLow := strings.ToLower(term)
	matches := make([]scored, 0, 4)
	for _, ap := range airports {
		score := 0
		switch {
		case termLow == strings.ToLower(ap.IATA):
			score = 100
		case strings.Contains(strings.ToLower(ap.City), termLow):
			score = 50
		case strings.Contains(strings.ToLower(ap.Name), termLow):
			score = 40
		case termLow == strings.ToLower(ap.Country):
			score = 10
		}
		if score > 0 {
			matches = append(matches, scored{score: score, ap: ap})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].score > matches[b].score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		out = append(out, map[string]any{
			"iata":    m.ap.IATA,
			"name":    m.ap.Name,
			"city":    m.ap.City,
			"country": m.ap.Country,
		})
	}

	return map[string]any{
		"term":     term,
		"airports": out,
	}, nil
}
