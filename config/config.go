// Package config loads the signal engine configuration from a YAML file, a .env file and
// environment variables.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/tradesignals/internal/domain"
	"gopkg.in/yaml.v3"
)

// Secrets are read from the environment only.
const (
	EnvReasoningAPIKey  = "REASONING_API_KEY"
	EnvForexAPIKey      = "FOREX_API_KEY"
	EnvBinanceAPIKey    = "BINANCE_API_KEY"
	EnvBinanceAPISecret = "BINANCE_API_SECRET"
	EnvBybitAPIKey      = "BYBIT_API_KEY"
	EnvBybitAPISecret   = "BYBIT_API_SECRET"
	EnvHyperliquidKey   = "HYPERLIQUID_PRIVATE_KEY"
)

var validate = validator.New()

// InstrumentTmp is an instrument as written in YAML.
type InstrumentTmp struct {
	Symbol string `yaml:"symbol" validate:"required,max=20"`
	Market string `yaml:"market" default:"crypto" validate:"oneof=crypto forex"`
	Name   string `yaml:"name,omitempty"`
}

// ConfigTmp is the raw YAML layout. Decimals and durations are strings so they parse
// exactly and round-trip through yaml.Marshal.
type ConfigTmp struct {
	LogLevel string `yaml:"log_level" default:"info" validate:"oneof=debug info warn error"`

	MarketData struct {
		CryptoSource   string `yaml:"crypto_source" default:"coingecko" validate:"oneof=coingecko binance bybit hyperliquid replay"`
		PriceSource    string `yaml:"price_source" default:"none" validate:"oneof=none binance bybit hyperliquid"`
		Interval       string `yaml:"interval" default:"1h" validate:"required"`
		Limit          int    `yaml:"limit" default:"100" validate:"gte=1,lte=1000,gtefield=MinPoints"`
		MinPoints      int    `yaml:"min_points" default:"50" validate:"gte=1"`
		ForexDays      int    `yaml:"forex_days" default:"50" validate:"gte=1,lte=365,gtefield=MinPoints"`
		CacheDir       string `yaml:"cache_dir" default:"./wal/prices"`
		Record         bool   `yaml:"record"`
		HyperliquidURL string `yaml:"hyperliquid_url"`
	} `yaml:"market_data"`

	Instruments []InstrumentTmp `yaml:"instruments" validate:"dive"`
	CryptoTop   int             `yaml:"crypto_top" default:"20" validate:"gte=0,lte=250"`
	ForexPairs  []string        `yaml:"forex_pairs"`

	Scoring struct {
		Policy    string `yaml:"policy" default:"weighted" validate:"oneof=weighted split"`
		Threshold string `yaml:"threshold" default:"4"`
		// EMA crossover windows; zero keeps the policy's own (5/10 weighted, 10/20 split).
		EMAFast   int    `yaml:"ema_fast,omitempty" validate:"gte=0,lte=200"`
		EMASlow   int    `yaml:"ema_slow,omitempty" validate:"gte=0,lte=200"`
	} `yaml:"scoring"`

	Risk struct {
		TakeProfitPercent string `yaml:"take_profit_percent" default:"5"`
		StopLossPercent   string `yaml:"stop_loss_percent" default:"2"`
	} `yaml:"risk"`

	Reasoning struct {
		Provider        string  `yaml:"provider" default:"none" validate:"oneof=none openai a0"`
		APIURL          string  `yaml:"api_url" validate:"omitempty,url"`
		Model           string  `yaml:"model"`
		Timeout         string  `yaml:"timeout" default:"20s"`
		Temperature     float64 `yaml:"temperature" default:"0.3" validate:"gte=0,lte=2"`
		ConfidenceRange string  `yaml:"confidence_range" default:"full" validate:"oneof=full production"`
		MaxRetries      int     `yaml:"max_retries" default:"3" validate:"gte=0,lte=10"`
	} `yaml:"reasoning"`

	Batch struct {
		Concurrency   int    `yaml:"concurrency" default:"4" validate:"gte=1,lte=64"`
		WatchInterval string `yaml:"watch_interval" default:"5m"`
		JournalSize   int    `yaml:"journal_size" default:"500" validate:"gte=1,lte=100000"`
	} `yaml:"batch"`

	Server struct {
		Addr         string `yaml:"addr" default:":8080" validate:"required"`
		Domain       string `yaml:"domain" validate:"omitempty,fqdn"`
		CertCacheDir string `yaml:"cert_cache_dir" default:"./certs"`
	} `yaml:"server"`
}

// ReasoningConfig configures the optional reasoning service.
type ReasoningConfig struct {
	Provider        string
	APIURL          string
	APIKey          string
	Model           string
	Timeout         time.Duration
	Temperature     float64
	ConfidenceRange string
	MaxRetries      int
}

// Enabled reports whether a reasoning service is configured.
func (r ReasoningConfig) Enabled() bool {
	return r.Provider != "" && r.Provider != "none"
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string
	// Domain enables automatic TLS when set.
	Domain       string
	CertCacheDir string
}

// Credentials are exchange keys taken from the environment.
type Credentials struct {
	BinanceKey     string
	BinanceSecret  string
	BybitKey       string
	BybitSecret    string
	HyperliquidKey string
	ForexAPIKey    string
}

// Config is the validated configuration.
type Config struct {
	LogLevel string

	CryptoSource   string
	PriceSource    string
	Interval       string
	Limit          int
	MinPoints      int
	ForexDays      int
	CacheDir       string
	Record         bool
	HyperliquidURL string

	// Instruments are scored explicitly. When none are crypto, the top CryptoTop coins are used.
	Instruments []domain.Instrument
	CryptoTop   int
	ForexPairs  []string

	Policy    string
	Threshold decimal.Decimal
	EMAFast   int
	EMASlow   int

	TakeProfitPercent decimal.Decimal
	StopLossPercent   decimal.Decimal

	Reasoning     ReasoningConfig
	Concurrency   int
	WatchInterval time.Duration
	// JournalSize is how many recent signals the streams can replay.
	JournalSize   int
	Server        ServerConfig
	Credentials   Credentials
}

// Load reads envFile (when it exists) into the environment, then the YAML at path.
// An empty path yields the defaults.
func Load(path, envFile string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return Config{}, errors.Wrapf(err, "failed to load %s", envFile)
			}
		}
	}

	var tmp ConfigTmp
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "failed to read config %s", path)
		}
		if err := yaml.Unmarshal(raw, &tmp); err != nil {
			return Config{}, errors.Wrapf(err, "failed to parse config %s", path)
		}
	}

	return FromTmp(tmp)
}

// Defaults returns the raw layout with every default filled in.
func Defaults() (ConfigTmp, error) {
	var tmp ConfigTmp
	if err := defaults.Set(&tmp); err != nil {
		return ConfigTmp{}, errors.Wrap(err, "failed to apply config defaults")
	}
	return tmp, nil
}

// FromTmp applies defaults, validates and converts a raw config.
func FromTmp(tmp ConfigTmp) (Config, error) {
	if err := defaults.Set(&tmp); err != nil {
		return Config{}, errors.Wrap(err, "failed to apply config defaults")
	}
	if err := validate.Struct(tmp); err != nil {
		return Config{}, errors.Wrap(err, "invalid config")
	}

	cfg := Config{
		LogLevel:       tmp.LogLevel,
		CryptoSource:   tmp.MarketData.CryptoSource,
		PriceSource:    tmp.MarketData.PriceSource,
		Interval:       tmp.MarketData.Interval,
		Limit:          tmp.MarketData.Limit,
		MinPoints:      tmp.MarketData.MinPoints,
		ForexDays:      tmp.MarketData.ForexDays,
		CacheDir:       tmp.MarketData.CacheDir,
		Record:         tmp.MarketData.Record,
		HyperliquidURL: tmp.MarketData.HyperliquidURL,
		CryptoTop:      tmp.CryptoTop,
		Policy:         tmp.Scoring.Policy,
		EMAFast:        tmp.Scoring.EMAFast,
		EMASlow:        tmp.Scoring.EMASlow,
		Reasoning: ReasoningConfig{
			Provider:        tmp.Reasoning.Provider,
			APIURL:          tmp.Reasoning.APIURL,
			APIKey:          os.Getenv(EnvReasoningAPIKey),
			Model:           tmp.Reasoning.Model,
			Temperature:     tmp.Reasoning.Temperature,
			ConfidenceRange: tmp.Reasoning.ConfidenceRange,
			MaxRetries:      tmp.Reasoning.MaxRetries,
		},
		Concurrency:   tmp.Batch.Concurrency,
		JournalSize:   tmp.Batch.JournalSize,
		Server: ServerConfig{
			Addr:         tmp.Server.Addr,
			Domain:       tmp.Server.Domain,
			CertCacheDir: tmp.Server.CertCacheDir,
		},
		Credentials: Credentials{
			BinanceKey:     os.Getenv(EnvBinanceAPIKey),
			BinanceSecret:  os.Getenv(EnvBinanceAPISecret),
			BybitKey:       os.Getenv(EnvBybitAPIKey),
			BybitSecret:    os.Getenv(EnvBybitAPISecret),
			HyperliquidKey: os.Getenv(EnvHyperliquidKey),
			ForexAPIKey:    os.Getenv(EnvForexAPIKey),
		},
	}

	var err error
	if cfg.Threshold, err = parsePositive("scoring.threshold", tmp.Scoring.Threshold); err != nil {
		return Config{}, err
	}
	if (cfg.EMAFast == 0) != (cfg.EMASlow == 0) || (cfg.EMAFast > 0 && cfg.EMAFast >= cfg.EMASlow) {
		return Config{}, errors.Errorf("scoring.ema_fast (%d) must be set together with and below scoring.ema_slow (%d)",
			cfg.EMAFast, cfg.EMASlow)
	}
	if cfg.Reasoning.Timeout, err = parseDuration("reasoning.timeout", tmp.Reasoning.Timeout, time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.WatchInterval, err = parseDuration("batch.watch_interval", tmp.Batch.WatchInterval, time.Second); err != nil {
		return Config{}, err
	}
	if cfg.TakeProfitPercent, err = parsePercent("risk.take_profit_percent", tmp.Risk.TakeProfitPercent); err != nil {
		return Config{}, err
	}
	if cfg.StopLossPercent, err = parsePercent("risk.stop_loss_percent", tmp.Risk.StopLossPercent); err != nil {
		return Config{}, err
	}

	for i, it := range tmp.Instruments {
		inst := domain.Instrument{
			Symbol: domain.NormalizeSymbol(it.Symbol),
			Market: domain.MarketKind(strings.ToLower(it.Market)),
			Name:   it.Name,
		}
		if err := inst.Validate(); err != nil {
			return Config{}, errors.Wrapf(err, "instruments[%d]", i)
		}
		cfg.Instruments = append(cfg.Instruments, inst)
	}

	for i, p := range tmp.ForexPairs {
		symbol := domain.NormalizeSymbol(p)
		if err := domain.ValidateSymbol(symbol); err != nil {
			return Config{}, errors.Wrapf(err, "forex_pairs[%d]", i)
		}
		cfg.ForexPairs = append(cfg.ForexPairs, symbol)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.Reasoning.Enabled() {
		if c.Reasoning.APIURL == "" {
			return errors.Errorf("reasoning.api_url is required for provider %q", c.Reasoning.Provider)
		}
		if c.Reasoning.Provider == "openai" && c.Reasoning.Model == "" {
			return errors.New("reasoning.model is required for the openai provider")
		}
	}
	if c.Server.Domain != "" && c.Server.CertCacheDir == "" {
		return errors.New("server.cert_cache_dir is required with server.domain")
	}
	return nil
}

func parsePositive(name, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "incorrect '%s' param in yaml config (must be a decimal)", name)
	}
	if !d.IsPositive() {
		return decimal.Zero, errors.Errorf("'%s' must be positive, got %s", name, d)
	}
	return d, nil
}

func parseDuration(name, s string, min time.Duration) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Wrapf(err, "incorrect '%s' param in yaml config (must be a duration)", name)
	}
	if d < min {
		return 0, errors.Errorf("'%s' must be at least %s, got %s", name, min, d)
	}
	return d, nil
}

func parsePercent(name, s string) (decimal.Decimal, error) {
	d, err := parsePositive(name, strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if err != nil {
		return decimal.Zero, err
	}
	if d.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return decimal.Zero, errors.Errorf("'%s' must be below 100, got %s", name, d)
	}
	return d, nil
}
