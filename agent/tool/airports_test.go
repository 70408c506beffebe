package tool

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
)

func lookupAirports(t *testing.T, args map[string]any) []map[string]any {
	t.Helper()

	out, err := AirportLookup(context.Background(), args)
	if err != nil {
		t.Fatalf("AirportLookup() error = %v", err)
	}
	matches, ok := out["airports"].([]map[string]any)
	if !ok {
		t.Fatalf("airports field has wrong shape: %T", out["airports"])
	}
	return matches
}

func TestAirportLookupExactCode(t *testing.T) {
	t.Parallel()

	matches := lookupAirports(t, map[string]any{"term": "pdx"})
	if len(matches) == 0 {
		t.Fatal("no matches for PDX")
	}
	if matches[0]["iata"] != "PDX" {
		t.Fatalf("top match = %v, want PDX", matches[0]["iata"])
	}
}

func TestAirportLookupCityBeatsName(t *testing.T) {
	t.Parallel()

	matches := lookupAirports(t, map[string]any{"term": "tokyo"})
	if len(matches) < 2 {
		t.Fatalf("matches = %d, want both Tokyo airports", len(matches))
	}
	for _, m := range matches[:2] {
		if m["city"] != "Tokyo" {
			t.Fatalf("unexpected match: %v", m)
		}
	}
}

func TestAirportLookupLimitClamped(t *testing.T) {
	t.Parallel()

	matches := lookupAirports(t, map[string]any{"term": "international", "limit": 100})
	if len(matches) > 10 {
		t.Fatalf("matches = %d, want at most 10", len(matches))
	}

	matches = lookupAirports(t, map[string]any{"term": "international", "limit": -3})
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1 with clamped limit", len(matches))
	}
}

func TestAirportLookupEmptyTerm(t *testing.T) {
	t.Parallel()

	_, err := AirportLookup(context.Background(), map[string]any{"term": "  "})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("AirportLookup() error = %v, want ErrValidation", err)
	}
}

func TestAirportLookupNoMatch(t *testing.T) {
	t.Parallel()

	matches := lookupAirports(t, map[string]any{"term": "xyzzy"})
	if len(matches) != 0 {
		t.Fatalf("matches = %v, want none", matches)
	}
}
