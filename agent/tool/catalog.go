package tool

import (
	"time"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
	registryx "github.com/wayfarer-agent/wayfarer/agent/registry"
)

const defaultFactTTL = 30 * 24 * time.Hour

// Deps carries the external clients the shipped tool set needs.
type Deps struct {
	Geo      GeoConfig
	Weather  WeatherConfig
	Currency CurrencyConfig

	// Advice is optional; without a client the travel.advice tool is not
	// registered.
	Advice      *openaisdk.Client
	AdviceModel string

	Memory  contractx.Memory
	FactTTL time.Duration
}

// RegisterAll wires the travel tool set into the registry. Called once at
// startup, before the registry is sealed.
func RegisterAll(reg *registryx.Registry, deps Deps) error {
	geo := NewGeoClient(deps.Geo)
	weather := NewWeatherClient(deps.Weather, geo)
	currency := NewCurrencyClient(deps.Currency)
	date := NewDateTool()

	if err := reg.Register(contractx.ToolSpec{
		Name: ToolDateToday,
		Desc: "Return today's date (UTC) and weekday.",
		Input: map[string]contractx.FieldSpec{},
		Output: map[string]contractx.FieldSpec{
			"date":    {Type: contractx.FieldString},
			"weekday": {Type: contractx.FieldString},
		},
		MaxConcurrent: 8,
		Timeout:       time.Second,
		Retryable:     true,
		Idempotent:    true,
	}, date.Invoke); err != nil {
		return err
	}

	if err := reg.Register(contractx.ToolSpec{
		Name: ToolGeoLookup,
		Desc: "Resolve a place name to coordinates, country, and timezone.",
		Input: map[string]contractx.FieldSpec{
			"place": {Type: contractx.FieldString, Desc: "City or place name", Required: true},
		},
		Output: map[string]contractx.FieldSpec{
			"name":      {Type: contractx.FieldString},
			"latitude":  {Type: contractx.FieldNumber},
			"longitude": {Type: contractx.FieldNumber},
			"country":   {Type: contractx.FieldString},
			"timezone":  {Type: contractx.FieldString},
		},
		MaxConcurrent: 4,
		Timeout:       10 * time.Second,
		Retryable:     true,
		Idempotent:    true,
	}, geo.Invoke); err != nil {
		return err
	}

	if err := reg.Register(contractx.ToolSpec{
		Name: ToolWeatherForecast,
		Desc: "Daily weather forecast for a place name or 'lat,lon' coordinates.",
		Input: map[string]contractx.FieldSpec{
			"place": {Type: contractx.FieldString, Desc: "Place name or 'lat,lon'", Required: true},
			"days":  {Type: contractx.FieldInteger, Desc: "Forecast days, 1-14"},
		},
		Output: map[string]contractx.FieldSpec{
			"place": {Type: contractx.FieldString},
			"daily": {Type: contractx.FieldObject},
		},
		MaxConcurrent: 4,
		Timeout:       15 * time.Second,
		Retryable:     true,
		Idempotent:    true,
	}, weather.Invoke); err != nil {
		return err
	}

	if err := reg.Register(contractx.ToolSpec{
		Name: ToolCurrencyConvert,
		Desc: "Convert an amount between two ISO-4217 currency codes.",
		Input: map[string]contractx.FieldSpec{
			"amount": {Type: contractx.FieldNumber, Desc: "Amount to convert", Required: true},
			"from":   {Type: contractx.FieldString, Desc: "Source currency code", Required: true},
			"to":     {Type: contractx.FieldString, Desc: "Target currency code", Required: true},
		},
		Output: map[string]contractx.FieldSpec{
			"result": {Type: contractx.FieldNumber},
			"rate":   {Type: contractx.FieldNumber},
		},
		MaxConcurrent: 4,
		Timeout:       10 * time.Second,
		Retryable:     true,
		Idempotent:    true,
	}, currency.Invoke); err != nil {
		return err
	}

	if err := reg.Register(contractx.ToolSpec{
		Name: ToolAirportLookup,
		Desc: "Guess IATA airport codes from a code, city, or airport name.",
		Input: map[string]contractx.FieldSpec{
			"term":  {Type: contractx.FieldString, Desc: "IATA code, city, or airport name", Required: true},
			"limit": {Type: contractx.FieldInteger, Desc: "Max matches, 1-10"},
		},
		Output: map[string]contractx.FieldSpec{
			"airports": {Type: contractx.FieldArray},
		},
		MaxConcurrent: 8,
		Timeout:       time.Second,
		Retryable:     true,
		Idempotent:    true,
	}, AirportLookup); err != nil {
		return err
	}

	if deps.Advice != nil {
		advice := NewAdviceTool(deps.Advice, deps.AdviceModel)
		if err := reg.Register(contractx.ToolSpec{
			Name: ToolTravelAdvice,
			Desc: "Open-ended travel advice: neighborhoods, transport, seasonal tips.",
			Input: map[string]contractx.FieldSpec{
				"query":   {Type: contractx.FieldString, Desc: "Travel question", Required: true},
				"context": {Type: contractx.FieldString, Desc: "Extra context"},
			},
			Output: map[string]contractx.FieldSpec{
				"advice": {Type: contractx.FieldString},
			},
			MaxConcurrent: 2,
			Timeout:       45 * time.Second,
		}, advice.Invoke); err != nil {
			return err
		}
	}

	if deps.Memory != nil {
		ttl := deps.FactTTL
		if ttl <= 0 {
			ttl = defaultFactTTL
		}
		mem := NewMemoryTools(deps.Memory, ttl)

		if err := reg.Register(contractx.ToolSpec{
			Name: ToolMemoryStore,
			Desc: "Remember a travel preference or fact for later turns.",
			Input: map[string]contractx.FieldSpec{
				"key":   {Type: contractx.FieldString, Desc: "Short fact key", Required: true},
				"value": {Type: contractx.FieldString, Desc: "Fact to remember", Required: true},
				"scope": {Type: contractx.FieldString, Desc: "'session' (default) or 'user'"},
			},
			MaxConcurrent: 2,
			Timeout:       5 * time.Second,
			Retryable:     true,
			Idempotent:    true,
		}, mem.Store); err != nil {
			return err
		}

		if err := reg.Register(contractx.ToolSpec{
			Name: ToolMemoryRecall,
			Desc: "Recall a previously stored fact by key.",
			Input: map[string]contractx.FieldSpec{
				"key":   {Type: contractx.FieldString, Desc: "Fact key", Required: true},
				"scope": {Type: contractx.FieldString, Desc: "'session' (default) or 'user'"},
			},
			MaxConcurrent: 4,
			Timeout:       5 * time.Second,
			Retryable:     true,
			Idempotent:    true,
		}, mem.Recall); err != nil {
			return err
		}

		if err := reg.Register(contractx.ToolSpec{
			Name: ToolMemoryList,
			Desc: "List stored fact keys with previews.",
			Input: map[string]contractx.FieldSpec{
				"scope": {Type: contractx.FieldString, Desc: "'session' (default) or 'user'"},
			},
			MaxConcurrent: 4,
			Timeout:       5 * time.Second,
			Retryable:     true,
			Idempotent:    true,
		}, mem.List); err != nil {
			return err
		}
	}

	return nil
}
