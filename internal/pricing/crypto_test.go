package pricing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/holdwatch/holdwatch/internal/domain"
)

func TestFetchPriceSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ids"); got != "litecoin" {
			t.Errorf("ids = %q, want litecoin", got)
		}
		w.Write([]byte(`{"litecoin":{"usd":85.31}}`))
	}))
	defer server.Close()

	c := NewCoinGeckoClient(server.URL, 0, 1, server.Client())
	price, err := c.FetchPrice(context.Background(), domain.TypeLTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(decimal.NewFromFloat(85.31)) {
		t.Errorf("price = %v, want 85.31", price)
	}
}

func TestFetchPriceUnmappedSymbolNoNetworkCall(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	c := NewCoinGeckoClient(server.URL, 0, 1, server.Client())
	_, err := c.FetchPrice(context.Background(), domain.TypeCustom)
	if !errors.Is(err, ErrUnsupportedAsset) {
		t.Fatalf("error = %v, want ErrUnsupportedAsset", err)
	}
	if calls.Load() != 0 {
		t.Errorf("provider was called %d times, want 0", calls.Load())
	}
}

func TestFetchPriceMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	c := NewCoinGeckoClient(server.URL, 0, 1, server.Client())
	_, err := c.FetchPrice(context.Background(), domain.TypeBTC)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestFetchPriceMissingField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bitcoin":{}}`))
	}))
	defer server.Close()

	c := NewCoinGeckoClient(server.URL, 0, 1, server.Client())
	_, err := c.FetchPrice(context.Background(), domain.TypeBTC)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestFetchPriceRetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"solana":{"usd":150}}`))
	}))
	defer server.Close()

	c := NewCoinGeckoClient(server.URL, 1, 2, server.Client())
	price, err := c.FetchPrice(context.Background(), domain.TypeSOL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(150)) {
		t.Errorf("price = %v, want 150", price)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestFetchPriceHonorsRetryAfterHeader(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ethereum":{"usd":3200}}`))
	}))
	defer server.Close()

	// Configured delay is far above the test deadline below; the server's
	// Retry-After of zero must override it.
	c := NewCoinGeckoClient(server.URL, 30*time.Second, 2, server.Client())
	start := time.Now()
	price, err := c.FetchPrice(context.Background(), domain.TypeETH)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(3200)) {
		t.Errorf("price = %v, want 3200", price)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("retry took %v, Retry-After header not honored", elapsed)
	}
}

func TestBackoffSchedule(t *testing.T) {
	c := NewCoinGeckoClient("", 2*time.Second, 3, nil)
	if got := c.backoff(0, ""); got != 2*time.Second {
		t.Errorf("backoff(0) = %v, want 2s", got)
	}
	if got := c.backoff(1, ""); got != 4*time.Second {
		t.Errorf("backoff(1) = %v, want 4s", got)
	}
	if got := c.backoff(1, "7"); got != 7*time.Second {
		t.Errorf("backoff with Retry-After 7 = %v, want 7s", got)
	}
	if got := c.backoff(0, "garbage"); got != 2*time.Second {
		t.Errorf("backoff with bad Retry-After = %v, want schedule fallback", got)
	}
}

func TestResolveCustomFails(t *testing.T) {
	r := NewResolver(Config{})
	_, err := r.Resolve(context.Background(), domain.TypeCustom)
	if !errors.Is(err, ErrUnsupportedAsset) {
		t.Fatalf("error = %v, want ErrUnsupportedAsset", err)
	}
}
