package tool

import (
	"testing"
	"time"

	memoryx "github.com/wayfarer-agent/wayfarer/agent/memory"
	registryx "github.com/wayfarer-agent/wayfarer/agent/registry"
)

func TestRegisterAllWithMemory(t *testing.T) {
	t.Parallel()

	reg := registryx.New()
	err := RegisterAll(reg, Deps{
		Memory:  memoryx.NewInMemoryStore(),
		FactTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("RegisterAll() error = %v", err)
	}

	want := []string{
		ToolDateToday,
		ToolGeoLookup,
		ToolWeatherForecast,
		ToolCurrencyConvert,
		ToolAirportLookup,
		ToolMemoryStore,
		ToolMemoryRecall,
		ToolMemoryList,
	}
	specs := reg.List()
	if len(specs) != len(want) {
		t.Fatalf("registered %d tools, want %d", len(specs), len(want))
	}
	for i, name := range want {
		if specs[i].Name != name {
			t.Fatalf("specs[%d] = %s, want %s", i, specs[i].Name, name)
		}
	}
}

func TestRegisterAllWithoutOptionalDeps(t *testing.T) {
	t.Parallel()

	reg := registryx.New()
	if err := RegisterAll(reg, Deps{}); err != nil {
		t.Fatalf("RegisterAll() error = %v", err)
	}

	for _, name := range []string{ToolTravelAdvice, ToolMemoryStore} {
		if _, err := reg.Lookup(name); err == nil {
			t.Fatalf("%s registered without its dependency", name)
		}
	}
	if _, err := reg.Lookup(ToolWeatherForecast); err != nil {
		t.Fatalf("weather tool missing: %v", err)
	}
}

func TestRegisterAllSpecsHaveBudgets(t *testing.T) {
	t.Parallel()

	reg := registryx.New()
	if err := RegisterAll(reg, Deps{Memory: memoryx.NewInMemoryStore()}); err != nil {
		t.Fatalf("RegisterAll() error = %v", err)
	}

	for _, spec := range reg.List() {
		if spec.Timeout <= 0 {
			t.Fatalf("tool %s has no timeout", spec.Name)
		}
		if spec.MaxConcurrent <= 0 {
			t.Fatalf("tool %s has no concurrency cap", spec.Name)
		}
		if spec.Desc == "" {
			t.Fatalf("tool %s has no description", spec.Name)
		}
	}
}
