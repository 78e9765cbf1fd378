package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultBaseURL is the public Frankfurter endpoint.
const DefaultBaseURL = "https://api.frankfurter.app"

const rateDateLayout = "2006-01-02"

var (
	errRateMissing = errors.New("conversion rate missing in response")

	// ErrUnsupportedCurrency means the rate source does not publish the currency.
	// Frankfurter follows the ECB reference set, which lacks e.g. AED, MVR and VND.
	ErrUnsupportedCurrency = errors.New("currency not supported by rate source")
)

// RateTable holds reference rates from one base currency, as published on Date.
type RateTable struct {
	Base  string
	Date  time.Time
	Rates map[string]decimal.Decimal
}

// FrankfurterClient reads ECB reference rates from the Frankfurter API.
// Requests are traced through otelhttp.
type FrankfurterClient struct {
	baseURL    string
	httpClient *http.Client
}

type latestResponse struct {
	Base  string                 `json:"base"`
	Date  string                 `json:"date"`
	Rates map[string]json.Number `json:"rates"`
}

// NewFrankfurterClient creates a Frankfurter API client.
func NewFrankfurterClient(baseURL string, timeout time.Duration) *FrankfurterClient {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &FrankfurterClient{
		baseURL: base,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Rates fetches the latest rates from base into each of symbols in one request.
func (c *FrankfurterClient) Rates(ctx context.Context, base string, symbols ...string) (RateTable, error) {
	base = normalizeCode(base)
	targets := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = normalizeCode(s); s != "" && s != base {
			targets = append(targets, s)
		}
	}
	if base == "" || len(targets) == 0 {
		return RateTable{}, errors.New("a base and at least one other currency are required")
	}

	query := url.Values{"from": {base}, "to": {strings.Join(targets, ",")}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest?"+query.Encode(), nil)
	if err != nil {
		return RateTable{}, fmt.Errorf("failed to create rates request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return RateTable{}, fmt.Errorf("failed to request rates: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusUnprocessableEntity:
		return RateTable{}, fmt.Errorf("%s to %s: %w", base, strings.Join(targets, ","), ErrUnsupportedCurrency)
	default:
		return RateTable{}, fmt.Errorf("exchange API returned status %d", resp.StatusCode)
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var payload latestResponse
	if err := decoder.Decode(&payload); err != nil {
		return RateTable{}, fmt.Errorf("failed to decode rates response: %w", err)
	}

	date, err := time.Parse(rateDateLayout, payload.Date)
	if err != nil {
		return RateTable{}, fmt.Errorf("failed to parse rate date %q: %w", payload.Date, err)
	}

	table := RateTable{Base: base, Date: date, Rates: make(map[string]decimal.Decimal, len(payload.Rates))}
	for code, raw := range payload.Rates {
		rate, err := decimal.NewFromString(raw.String())
		if err != nil {
			return RateTable{}, fmt.Errorf("failed to parse %s rate: %w", code, err)
		}
		table.Rates[normalizeCode(code)] = rate
	}
	return table, nil
}

// Convert converts amount between currencies at the latest reference rate.
func (c *FrankfurterClient) Convert(
	ctx context.Context,
	amount decimal.Decimal,
	fromCurrency, toCurrency string,
) (ConversionResult, error) {
	from, to := normalizeCode(fromCurrency), normalizeCode(toCurrency)
	if from == "" || to == "" {
		return ConversionResult{}, errors.New("from and to currencies are required")
	}
	if !amount.IsPositive() {
		return ConversionResult{}, errors.New("amount must be positive")
	}
	if from == to {
		return ConversionResult{Amount: amount, Rate: decimal.NewFromInt(1), RateDate: time.Now().UTC()}, nil
	}

	table, err := c.Rates(ctx, from, to)
	if err != nil {
		return ConversionResult{}, err
	}
	rate, ok := table.Rates[to]
	if !ok {
		return ConversionResult{}, errRateMissing
	}
	if err := validateConversionRate(rate); err != nil {
		return ConversionResult{}, err
	}
	return ConversionResult{Amount: amount.Mul(rate).Round(2), Rate: rate, RateDate: table.Date}, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
