// Package pricing resolves current unit prices for investment types from
// external market-data providers.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/holdwatch/holdwatch/internal/domain"
)

// ErrUnsupportedAsset indicates the asset type has no external price source.
var ErrUnsupportedAsset = errors.New("asset type has no price source")

// ErrUnavailable indicates all applicable price sources failed.
var ErrUnavailable = errors.New("price unavailable")

// fallbackPrices are fixed USD-per-ounce constants used when every external
// metal provider fails. Metal resolution never fails outright.
var fallbackPrices = map[domain.InvestmentType]decimal.Decimal{
	domain.TypeGold:   decimal.NewFromInt(2650),
	domain.TypeSilver: decimal.NewFromFloat(30.5),
}

// metalProvider is one strategy in the ordered metal price chain.
type metalProvider interface {
	Name() string
	Fetch(ctx context.Context, metal domain.InvestmentType) (decimal.Decimal, error)
}

// Config holds provider endpoints and credentials for a Resolver.
type Config struct {
	YahooURL        string
	AlphaVantageURL string
	AlphaVantageKey string
	CommoditiesURL  string
	CommoditiesKey  string
	CoinGeckoURL    string
	// Delay and retry budget for CoinGecko 429 backoff.
	CoinGeckoDelay    time.Duration
	CoinGeckoRetryMax int
	// Timeout bounds each provider attempt so the chain stays responsive.
	Timeout time.Duration
}

// Resolver maps an investment type to a current unit price in USD.
//
// Metals walk an ordered provider chain and fall back to a fixed constant.
// Crypto symbols go to a single provider and fail when it cannot answer.
// CUSTOM assets are never resolvable.
type Resolver struct {
	metals []metalProvider
	crypto *CoinGeckoClient
}

// NewResolver builds a Resolver from provider configuration. Keyed providers
// are only added to the chain when their key is configured.
func NewResolver(cfg Config) *Resolver {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var metals []metalProvider
	if cfg.YahooURL != "" {
		metals = append(metals, &yahooProvider{baseURL: cfg.YahooURL, httpClient: client})
	}
	if cfg.AlphaVantageKey != "" {
		metals = append(metals, &alphaVantageProvider{baseURL: cfg.AlphaVantageURL, apiKey: cfg.AlphaVantageKey, httpClient: client})
	}
	if cfg.CommoditiesKey != "" {
		metals = append(metals, &commoditiesProvider{baseURL: cfg.CommoditiesURL, apiKey: cfg.CommoditiesKey, httpClient: client})
	}

	return &Resolver{
		metals: metals,
		crypto: NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.CoinGeckoDelay, cfg.CoinGeckoRetryMax, client),
	}
}

// Resolve returns the current unit price for the given investment type.
func (r *Resolver) Resolve(ctx context.Context, t domain.InvestmentType) (decimal.Decimal, error) {
	switch {
	case t.IsMetal():
		return r.resolveMetal(ctx, t), nil
	case t.IsCrypto():
		return r.crypto.FetchPrice(ctx, t)
	default:
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnsupportedAsset, t)
	}
}

// resolveMetal walks the provider chain and short-circuits on the first
// success. Every provider failure falls through; the constant fallback means
// this never fails.
func (r *Resolver) resolveMetal(ctx context.Context, metal domain.InvestmentType) decimal.Decimal {
	for _, p := range r.metals {
		price, err := p.Fetch(ctx, metal)
		if err != nil {
			slog.Warn("metal provider failed, trying next", "provider", p.Name(), "metal", metal, "error", err)
			continue
		}
		if !price.IsPositive() {
			slog.Warn("metal provider returned non-positive price, trying next", "provider", p.Name(), "metal", metal)
			continue
		}
		slog.Info("metal price resolved", "provider", p.Name(), "metal", metal, "price", price)
		return price
	}
	price := fallbackPrices[metal]
	slog.Warn("all metal providers failed, using fallback constant", "metal", metal, "price", price)
	return price
}
