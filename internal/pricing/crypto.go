package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/holdwatch/holdwatch/internal/domain"
)

// CoinIDs maps supported crypto investment types to CoinGecko asset IDs.
var CoinIDs = map[domain.InvestmentType]string{
	domain.TypeBTC: "bitcoin",
	domain.TypeETH: "ethereum",
	domain.TypeLTC: "litecoin",
	domain.TypeSOL: "solana",
	domain.TypeXRP: "ripple",
}

// CoinGeckoClient fetches crypto prices from the CoinGecko API.
type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
	delay      time.Duration
	maxRetries int
}

// NewCoinGeckoClient creates a new CoinGecko API client. A nil httpClient
// gets a default with a 10s timeout.
func NewCoinGeckoClient(baseURL string, delay time.Duration, maxRetries int, httpClient *http.Client) *CoinGeckoClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &CoinGeckoClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		delay:      delay,
		maxRetries: maxRetries,
	}
}

// FetchPrice fetches the current USD price for one crypto investment type.
// An unmapped type fails with ErrUnsupportedAsset before any network I/O;
// a malformed or incomplete response fails with ErrUnavailable. There is no
// constant fallback for crypto.
func (c *CoinGeckoClient) FetchPrice(ctx context.Context, t domain.InvestmentType) (decimal.Decimal, error) {
	coinID, ok := CoinIDs[t]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnsupportedAsset, t)
	}

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, coinID)
	body, err := c.fetchWithRetry(ctx, url)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Parse: {"bitcoin":{"usd":65000}}
	var raw map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &raw); err != nil {
		return decimal.Zero, fmt.Errorf("%w: parsing response: %v", ErrUnavailable, err)
	}
	price, ok := raw[coinID]["usd"]
	if !ok || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: no usd price for %s", ErrUnavailable, coinID)
	}
	return price, nil
}

func (c *CoinGeckoClient) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	var wait time.Duration
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating CoinGecko request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("CoinGecko request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading CoinGecko response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("CoinGecko rate limited (attempt %d/%d)", attempt+1, c.maxRetries+1)
			wait = c.backoff(attempt, resp.Header.Get("Retry-After"))
			continue
		}

		return nil, fmt.Errorf("CoinGecko HTTP %d: %s", resp.StatusCode, string(body))
	}

	return nil, lastErr
}

// backoff returns how long to wait before the retry following the given
// attempt. A parseable Retry-After header from the server wins over the
// exponential schedule.
func (c *CoinGeckoClient) backoff(attempt int, retryAfter string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	base := c.delay
	if base == 0 {
		base = 2 * time.Second
	}
	return base * time.Duration(1<<uint(attempt))
}
