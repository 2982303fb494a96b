package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	HTTPPort    string
	DataDir     string
	DatabaseURL string
	StaticDir   string

	// External price providers.
	YahooURL          string
	AlphaVantageURL   string
	AlphaVantageKey   string
	CommoditiesURL    string
	CommoditiesKey    string
	CoinGeckoURL      string
	CoinGeckoDelay    time.Duration
	CoinGeckoRetryMax int
	ProviderTimeout   time.Duration

	// Refresh policy.
	RateLimitWindow time.Duration
	StaleAfter      time.Duration
	SweepInterval   time.Duration

	// Identity provider.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	SessionTTL         time.Duration
	DevUser            string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		HTTPPort:    envOrDefault("HTTP_PORT", "9000"),
		DataDir:     envOrDefault("DATA_DIR", "data"),
		DatabaseURL: envOrDefault("DATABASE_URL", ""),
		StaticDir:   envOrDefault("STATIC_DIR", ""),

		YahooURL:          envOrDefault("YAHOO_URL", "https://query1.finance.yahoo.com"),
		AlphaVantageURL:   envOrDefault("ALPHA_VANTAGE_URL", "https://www.alphavantage.co"),
		AlphaVantageKey:   envOrDefault("ALPHA_VANTAGE_KEY", ""),
		CommoditiesURL:    envOrDefault("COMMODITIES_API_URL", "https://commodities-api.com"),
		CommoditiesKey:    envOrDefault("COMMODITIES_API_KEY", ""),
		CoinGeckoURL:      envOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoDelay:    envOrDefaultDuration("COINGECKO_DELAY", 2*time.Second),
		CoinGeckoRetryMax: envOrDefaultInt("COINGECKO_RETRY_MAX", 3),
		ProviderTimeout:   envOrDefaultDuration("PROVIDER_TIMEOUT", 10*time.Second),

		RateLimitWindow: envOrDefaultDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		StaleAfter:      envOrDefaultDuration("STALE_AFTER", 24*time.Hour),
		SweepInterval:   envOrDefaultDuration("SWEEP_INTERVAL", 6*time.Hour),

		GoogleClientID:     envOrDefault("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: envOrDefault("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  envOrDefault("GOOGLE_REDIRECT_URL", ""),
		SessionTTL:         envOrDefaultDuration("SESSION_TTL", 7*24*time.Hour),
		DevUser:            envOrDefault("DEV_USER", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
