package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/holdwatch/holdwatch/internal/domain"
)

// yahooProvider reads futures quotes from the Yahoo Finance chart API.
// Free, no key, real-time; the primary source in the chain.
type yahooProvider struct {
	baseURL    string
	httpClient *http.Client
}

var yahooSymbols = map[domain.InvestmentType]string{
	domain.TypeGold:   "GC=F",
	domain.TypeSilver: "SI=F",
}

func (p *yahooProvider) Name() string { return "yahoo-finance" }

func (p *yahooProvider) Fetch(ctx context.Context, metal domain.InvestmentType) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s", p.baseURL, yahooSymbols[metal])
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("creating request: %w", err)
	}
	// Yahoo rejects requests without a browser-looking agent.
	req.Header.Set("User-Agent", "Mozilla/5.0")

	body, err := fetchBody(p.httpClient, req)
	if err != nil {
		return decimal.Zero, err
	}

	var payload struct {
		Chart struct {
			Result []struct {
				Meta struct {
					RegularMarketPrice decimal.Decimal `json:"regularMarketPrice"`
					PreviousClose      decimal.Decimal `json:"previousClose"`
				} `json:"meta"`
			} `json:"result"`
		} `json:"chart"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, fmt.Errorf("parsing response: %w", err)
	}
	if len(payload.Chart.Result) == 0 {
		return decimal.Zero, fmt.Errorf("empty chart result")
	}
	meta := payload.Chart.Result[0].Meta
	if meta.RegularMarketPrice.IsPositive() {
		return meta.RegularMarketPrice, nil
	}
	if meta.PreviousClose.IsPositive() {
		return meta.PreviousClose, nil
	}
	return decimal.Zero, fmt.Errorf("no price in chart meta")
}

// alphaVantageProvider reads currency exchange rates (XAU/XAG against USD).
// Keyed, 500 requests/day on the free tier; first backup.
type alphaVantageProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var alphaVantageSymbols = map[domain.InvestmentType]string{
	domain.TypeGold:   "XAU",
	domain.TypeSilver: "XAG",
}

func (p *alphaVantageProvider) Name() string { return "alpha-vantage" }

func (p *alphaVantageProvider) Fetch(ctx context.Context, metal domain.InvestmentType) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/query?function=CURRENCY_EXCHANGE_RATE&from_currency=%s&to_currency=USD&apikey=%s",
		p.baseURL, alphaVantageSymbols[metal], p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("creating request: %w", err)
	}

	body, err := fetchBody(p.httpClient, req)
	if err != nil {
		return decimal.Zero, err
	}

	var payload map[string]map[string]string
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, fmt.Errorf("parsing response: %w", err)
	}
	rate, ok := payload["Realtime Currency Exchange Rate"]
	if !ok {
		return decimal.Zero, fmt.Errorf("missing exchange rate object")
	}
	price, err := decimal.NewFromString(rate["5. Exchange Rate"])
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing exchange rate: %w", err)
	}
	return price, nil
}

// commoditiesProvider reads the Commodities-API latest rates. The API
// returns units-per-USD, so the per-ounce price is the reciprocal.
type commoditiesProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func (p *commoditiesProvider) Name() string { return "commodities-api" }

func (p *commoditiesProvider) Fetch(ctx context.Context, metal domain.InvestmentType) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/api/latest?access_key=%s&base=USD&symbols=%s", p.baseURL, p.apiKey, metal)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("creating request: %w", err)
	}

	body, err := fetchBody(p.httpClient, req)
	if err != nil {
		return decimal.Zero, err
	}

	var payload struct {
		Success bool `json:"success"`
		Data    struct {
			Rates map[string]decimal.Decimal `json:"rates"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, fmt.Errorf("parsing response: %w", err)
	}
	rate, ok := payload.Data.Rates[string(metal)]
	if !payload.Success || !ok || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("missing rate for %s", metal)
	}
	return decimal.NewFromInt(1).Div(rate), nil
}

func fetchBody(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
