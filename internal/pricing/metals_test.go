package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/holdwatch/holdwatch/internal/domain"
)

func TestYahooProviderParsesChartMeta(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/GC=F" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("User-Agent") != "Mozilla/5.0" {
			t.Errorf("missing browser user agent")
		}
		w.Write([]byte(`{"chart":{"result":[{"meta":{"regularMarketPrice":2700.5,"previousClose":2690}}]}}`))
	}))
	defer server.Close()

	p := &yahooProvider{baseURL: server.URL, httpClient: server.Client()}
	price, err := p.Fetch(context.Background(), domain.TypeGold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(decimal.NewFromFloat(2700.5)) {
		t.Errorf("price = %v, want 2700.5", price)
	}
}

func TestYahooProviderFallsBackToPreviousClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{"meta":{"previousClose":30.25}}]}}`))
	}))
	defer server.Close()

	p := &yahooProvider{baseURL: server.URL, httpClient: server.Client()}
	price, err := p.Fetch(context.Background(), domain.TypeSilver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(decimal.NewFromFloat(30.25)) {
		t.Errorf("price = %v, want 30.25", price)
	}
}

func TestAlphaVantageProviderParsesExchangeRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("from_currency"); got != "XAG" {
			t.Errorf("from_currency = %q, want XAG", got)
		}
		w.Write([]byte(`{"Realtime Currency Exchange Rate":{"5. Exchange Rate":"30.5000"}}`))
	}))
	defer server.Close()

	p := &alphaVantageProvider{baseURL: server.URL, apiKey: "k", httpClient: server.Client()}
	price, err := p.Fetch(context.Background(), domain.TypeSilver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(decimal.NewFromFloat(30.5)) {
		t.Errorf("price = %v, want 30.5", price)
	}
}

func TestCommoditiesProviderInvertsRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"rates":{"GOLD":0.0004}}}`))
	}))
	defer server.Close()

	p := &commoditiesProvider{baseURL: server.URL, apiKey: "k", httpClient: server.Client()}
	price, err := p.Fetch(context.Background(), domain.TypeGold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("price = %v, want 2500 (1/0.0004)", price)
	}
}

func TestMetalResolutionFallsBackToConstant(t *testing.T) {
	// Every provider errors; resolution must still return a positive price.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	r := NewResolver(Config{
		YahooURL:        server.URL,
		AlphaVantageURL: server.URL,
		AlphaVantageKey: "k",
		CommoditiesURL:  server.URL,
		CommoditiesKey:  "k",
		CoinGeckoURL:    server.URL,
	})

	gold, err := r.Resolve(context.Background(), domain.TypeGold)
	if err != nil {
		t.Fatalf("metal resolution must not fail: %v", err)
	}
	if !gold.Equal(decimal.NewFromInt(2650)) {
		t.Errorf("gold fallback = %v, want 2650", gold)
	}

	silver, err := r.Resolve(context.Background(), domain.TypeSilver)
	if err != nil {
		t.Fatalf("metal resolution must not fail: %v", err)
	}
	if !silver.Equal(decimal.NewFromFloat(30.5)) {
		t.Errorf("silver fallback = %v, want 30.5", silver)
	}
}

func TestMetalChainFallsThroughToBackup(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer primary.Close()
	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Realtime Currency Exchange Rate":{"5. Exchange Rate":"2712.34"}}`))
	}))
	defer backup.Close()

	r := NewResolver(Config{
		YahooURL:        primary.URL,
		AlphaVantageURL: backup.URL,
		AlphaVantageKey: "k",
	})

	price, err := r.Resolve(context.Background(), domain.TypeGold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(decimal.NewFromFloat(2712.34)) {
		t.Errorf("price = %v, want 2712.34 from backup provider", price)
	}
}

func TestKeyedProvidersSkippedWithoutKey(t *testing.T) {
	r := NewResolver(Config{YahooURL: "http://example.invalid"})
	if len(r.metals) != 1 {
		t.Errorf("chain length = %d, want 1 (only keyless provider)", len(r.metals))
	}
}
