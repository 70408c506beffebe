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

const ToolCurrencyConvert = "currency.convert"

// CurrencyConfig configures the exchange rate client.
type CurrencyConfig struct {
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.exchangerate.host"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// CurrencyClient converts amounts between currency codes.
type CurrencyClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewCurrencyClient(cfg CurrencyConfig) *CurrencyClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CurrencyClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Invoke is the currency.convert tool implementation.
func (c *CurrencyClient) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	amount, ok := floatArg(args["amount"])
	if !ok || amount < 0 {
		return nil, fmt.Errorf("%w: amount must be a non-negative number", contractx.ErrValidation)
	}
	from, err := currencyCode(args["from"])
	if err != nil {
		return nil, err
	}
	to, err := currencyCode(args["to"])
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("from", from)
	params.Set("to", to)
	params.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))

	var parsed struct {
		Result *float64 `json:"result"`
		Info   struct {
			Rate *float64 `json:"rate"`
		} `json:"info"`
	}
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/convert", params, &parsed); err != nil {
		return nil, err
	}
	if parsed.Result == nil {
		return nil, fmt.Errorf("no conversion result for %s->%s", from, to)
	}

	out := map[string]any{
		"amount": amount,
		"from":   from,
		"to":     to,
		"result": *parsed.Result,
	}
	if parsed.Info.Rate != nil {
		out["rate"] = *parsed.Info.Rate
	}
	return out, nil
}

func currencyCode(raw any) (string, error) {
	code, _ := raw.(string)
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: currency code must be 3 letters, got %q", contractx.ErrValidation, code)
	}
	return code, nil
}

func floatArg(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
