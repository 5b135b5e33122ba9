package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/pfolio/portfolio-api/internal/currency"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Log       LogConfig
	Portfolio PortfolioConfig
	Fx        FxConfig
	Quote     QuoteConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string
	Pretty bool
}

// PortfolioConfig holds the reporting currency and the currencies whose
// rates are cached.
type PortfolioConfig struct {
	BaseCurrency        currency.Code
	SupportedCurrencies []currency.Code
}

// FxConfig configures the exchange rate providers.
type FxConfig struct {
	ProviderURL string
	APIKey      string
	RequireKey  bool
	HTTPTimeout time.Duration
	RetryBase   time.Duration
	Attempts    int
}

// QuoteConfig configures the stock quote providers.
type QuoteConfig struct {
	AlphaVantageKey string
	CacheTTL        time.Duration
	RateLimit       float64 // requests per second across all providers
}

// SchedulerConfig holds the cron expressions of the background jobs.
type SchedulerConfig struct {
	Enabled     bool
	FxRefresh   string
	PriceUpdate string
}

// Load reads configuration from environment variables and .env file.
// Malformed numbers, booleans, durations and currency codes are an error.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	p := &parser{}
	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/portfolio.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost")),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: p.bool("LOG_PRETTY", false),
		},
		Portfolio: PortfolioConfig{
			BaseCurrency:        p.currency("PORTFOLIO_BASE_CCY", "USD"),
			SupportedCurrencies: p.currencies("SUPPORTED_CURRENCIES", "USD,EUR,SEK,GBP,JPY,CHF,NOK,DKK"),
		},
		Fx: FxConfig{
			ProviderURL: getEnv("FX_PROVIDER_URL", "https://api.exchangerate.host"),
			APIKey:      os.Getenv("FX_API_KEY"),
			RequireKey:  p.bool("FX_REQUIRE_KEY", false),
			HTTPTimeout: p.duration("FX_HTTP_TIMEOUT", 10*time.Second),
			RetryBase:   p.duration("FX_RETRY_BASE", time.Second),
			Attempts:    p.int("FX_ATTEMPTS", 3),
		},
		Quote: QuoteConfig{
			AlphaVantageKey: os.Getenv("ALPHAVANTAGE_API_KEY"),
			CacheTTL:        p.duration("QUOTE_CACHE_TTL", 60*time.Second),
			RateLimit:       p.float("QUOTE_RATE_LIMIT", 5),
		},
		Scheduler: SchedulerConfig{
			Enabled:     p.bool("SCHEDULER_ENABLED", true),
			FxRefresh:   getEnv("CRON_FX_REFRESH", "0 6 * * *"),
			PriceUpdate: getEnv("CRON_PRICE_UPDATE", "*/30 * * * *"),
		},
	}
	if p.err != nil {
		return nil, p.err
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
}

func (p *parser) bool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) int(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) float(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) currency(key, def string) currency.Code {
	raw := getEnv(key, def)
	c, err := currency.Parse(raw)
	if err != nil {
		p.fail(key, raw, err)
	}
	return c
}

func (p *parser) currencies(key, def string) []currency.Code {
	raw := getEnv(key, def)
	codes, err := currency.ParseList(raw)
	if err != nil {
		p.fail(key, raw, err)
	}
	return codes
}
