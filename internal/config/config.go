package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	DBPath           string
	TickersFile      string
	TelegramToken    string
	WebhookPublicURL string
	OpenAIKey        string
	OpenAIModel      string

	MarketSuffix    string
	BenchmarkSymbol string
	BenchmarkLabel  string
	CurrencySymbol  string
	DefaultStart    time.Time

	FetchTimeout  time.Duration
	ChartCacheTTL time.Duration

	LogLevel  string
	LogFormat string
}

const dateLayout = "2006-01-02"

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := getEnv(k, "")
	if v == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	// bare numbers are seconds
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", k, v)
	}
	return time.Duration(secs) * time.Second, nil
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:             getEnv("PORT", "9095"),
		DBPath:           getEnv("DB_PATH", "/app/data/simulator.db"),
		TickersFile:      getEnv("TICKERS_FILE", "assets/tickers_ibra.csv"),
		TelegramToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookPublicURL: getEnv("WEBHOOK_PUBLIC_URL", ""),
		OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		MarketSuffix:     getEnv("MARKET_SUFFIX", ".SA"),
		BenchmarkSymbol:  getEnv("BENCHMARK_SYMBOL", "^BVSP"),
		BenchmarkLabel:   getEnv("BENCHMARK_LABEL", "IBOV"),
		CurrencySymbol:   getEnv("CURRENCY_SYMBOL", "R$"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
	}

	start := getEnv("DEFAULT_START", "2023-01-02")
	d, err := time.Parse(dateLayout, start)
	if err != nil {
		return Config{}, fmt.Errorf("DEFAULT_START: %w", err)
	}
	cfg.DefaultStart = d

	if cfg.FetchTimeout, err = getDuration("FETCH_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ChartCacheTTL, err = getDuration("CHART_CACHE_TTL", 60*time.Second); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT must not be empty")
	}
	if c.TelegramToken != "" && c.WebhookPublicURL == "" {
		return errors.New("missing env WEBHOOK_PUBLIC_URL (required with TELEGRAM_BOT_TOKEN)")
	}
	if c.BenchmarkSymbol == "" {
		return errors.New("BENCHMARK_SYMBOL must not be empty")
	}
	if c.FetchTimeout <= 0 {
		return errors.New("FETCH_TIMEOUT must be positive")
	}
	return nil
}

// BotEnabled reports whether the Telegram front end should start.
func (c Config) BotEnabled() bool { return c.TelegramToken != "" }
