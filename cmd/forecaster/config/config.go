// Package config provides configuration parsing for the forecaster service.
//
// Settings come from command-line flags and environment variables, with flags
// taking precedence over environment variables and environment variables over
// defaults. Adapter-specific settings are read from ADAPTER_* variables, e.g.
// ADAPTER_QUERY or ADAPTER_VALUE_PATH, and keyed in lower camel case
// (query, valuePath).
//
// The periodic forecast loop runs only when an adapter is configured. Without
// one the service answers ad-hoc forecast requests over HTTP and gRPC.
//
// Example usage:
//
//	cfg := config.ParseFlags()
//	engine, err := cfg.EngineConfig()
package config

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/HatiCode/arimacast/pkg/arima"
	"github.com/HatiCode/arimacast/pkg/storage"
	"github.com/HatiCode/arimacast/pkg/tls"
)

// Model kinds.
const (
	ModelAuto  = "auto"
	ModelARIMA = "arima"
)

// Config holds all forecaster configuration.
type Config struct {
	Listen     string
	GRPCListen string
	LogFormat  string
	LogLevel   string

	Storage       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
	TLS           tls.Config

	Series        string
	Adapter       string
	AdapterConfig map[string]string
	Step          time.Duration
	Horizon       time.Duration
	Window        time.Duration
	Interval      time.Duration

	Model     string
	P         int
	D         int
	Q         int
	SeasonalP int
	SeasonalD int
	SeasonalQ int
	Period    int

	MaxP         int
	MaxD         int
	MaxQ         int
	MaxSeasonalP int
	MaxSeasonalD int
	MaxSeasonalQ int
	Workers      int
	Confidence   string
	MaxHorizon   int

	FitTimeout   time.Duration
	MaxBodyBytes int64
}

// ParseFlags parses os.Args and the environment, exiting on invalid input.
func ParseFlags() *Config {
	cfg, err := Parse(os.Args[1:], os.Environ())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
	return cfg
}

// Parse builds a validated Config from args and environ. Environment defaults
// are read through os.Getenv; environ only feeds the ADAPTER_* settings.
func Parse(args, environ []string) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet("forecaster", flag.ContinueOnError)

	fs.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8081"), "HTTP listen address")
	fs.StringVar(&cfg.GRPCListen, "grpc-listen", getEnv("GRPC_LISTEN", ":9091"), "gRPC listen address (empty disables gRPC)")
	fs.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	fs.StringVar(&cfg.Storage, "storage", getEnv("STORAGE", "memory"), "Storage backend: memory or redis")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis server address")
	fs.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	fs.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	fs.DurationVar(&cfg.RedisTTL, "redis-ttl", getEnvDuration("REDIS_TTL", storage.DefaultRedisTTL), "Redis snapshot TTL")

	fs.BoolVar(&cfg.TLS.Enabled, "tls-enabled", getEnvBool("TLS_ENABLED", false), "Enable mTLS for the HTTP server and adapter clients")
	fs.StringVar(&cfg.TLS.CertFile, "tls-cert-file", getEnv("TLS_CERT_FILE", ""), "TLS certificate file")
	fs.StringVar(&cfg.TLS.KeyFile, "tls-key-file", getEnv("TLS_KEY_FILE", ""), "TLS private key file")
	fs.StringVar(&cfg.TLS.CAFile, "tls-ca-file", getEnv("TLS_CA_FILE", ""), "TLS CA certificate file")

	fs.StringVar(&cfg.Series, "series", getEnv("SERIES", ""), "Series name the forecast loop stores snapshots under")
	fs.StringVar(&cfg.Adapter, "adapter", getEnv("ADAPTER", ""), "Adapter type: prometheus, victoriametrics, or http (empty disables the loop)")
	fs.DurationVar(&cfg.Step, "step", getEnvDuration("STEP", time.Minute), "Sample and forecast step")
	fs.DurationVar(&cfg.Horizon, "horizon", getEnvDuration("HORIZON", 30*time.Minute), "Forecast horizon")
	fs.DurationVar(&cfg.Window, "window", getEnvDuration("WINDOW", 6*time.Hour), "Historical window collected per tick")
	fs.DurationVar(&cfg.Interval, "interval", getEnvDuration("INTERVAL", time.Minute), "Forecast loop interval")

	fs.StringVar(&cfg.Model, "model", getEnv("MODEL", ModelAuto), "Model: auto (grid search) or arima (fixed order)")
	fs.IntVar(&cfg.P, "p", getEnvInt("ARIMA_P", 1), "Fixed AR order")
	fs.IntVar(&cfg.D, "d", getEnvInt("ARIMA_D", 1), "Fixed differencing order")
	fs.IntVar(&cfg.Q, "q", getEnvInt("ARIMA_Q", 0), "Fixed MA order")
	fs.IntVar(&cfg.SeasonalP, "seasonal-p", getEnvInt("ARIMA_SP", 0), "Fixed seasonal AR order")
	fs.IntVar(&cfg.SeasonalD, "seasonal-d", getEnvInt("ARIMA_SD", 0), "Fixed seasonal differencing order")
	fs.IntVar(&cfg.SeasonalQ, "seasonal-q", getEnvInt("ARIMA_SQ", 0), "Fixed seasonal MA order")
	fs.IntVar(&cfg.Period, "period", getEnvInt("PERIOD", 0), "Seasonal period in steps (0 disables seasonality)")

	defaults := arima.DefaultConfig()
	fs.IntVar(&cfg.MaxP, "max-p", getEnvInt("MAX_P", defaults.MaxP), "Grid search bound for p")
	fs.IntVar(&cfg.MaxD, "max-d", getEnvInt("MAX_D", defaults.MaxD), "Grid search bound for d")
	fs.IntVar(&cfg.MaxQ, "max-q", getEnvInt("MAX_Q", defaults.MaxQ), "Grid search bound for q")
	fs.IntVar(&cfg.MaxSeasonalP, "max-seasonal-p", getEnvInt("MAX_SP", defaults.MaxSeasonalP), "Grid search bound for P")
	fs.IntVar(&cfg.MaxSeasonalD, "max-seasonal-d", getEnvInt("MAX_SD", defaults.MaxSeasonalD), "Grid search bound for D")
	fs.IntVar(&cfg.MaxSeasonalQ, "max-seasonal-q", getEnvInt("MAX_SQ", defaults.MaxSeasonalQ), "Grid search bound for Q")
	fs.IntVar(&cfg.Workers, "workers", getEnvInt("WORKERS", runtime.GOMAXPROCS(0)), "Concurrent candidate evaluations")
	fs.StringVar(&cfg.Confidence, "confidence", getEnv("CONFIDENCE", "0.95"), "Prediction interval level (0.95, p95 or 95%)")
	fs.IntVar(&cfg.MaxHorizon, "max-horizon", getEnvInt("MAX_HORIZON", defaults.MaxHorizon), "Largest number of points a forecast may produce")

	fs.DurationVar(&cfg.FitTimeout, "fit-timeout", getEnvDuration("FIT_TIMEOUT", 30*time.Second), "Per-request model fitting timeout")
	fs.Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", int64(getEnvInt("MAX_BODY_BYTES", 4<<20)), "Maximum forecast request body size")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.AdapterConfig = parseAdapterConfig(environ)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks names, durations, order bounds and the confidence level.
func (c *Config) Validate() error {
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format %q (must be text or json)", c.LogFormat)
	}
	if c.Storage != "memory" && c.Storage != "redis" {
		return fmt.Errorf("invalid storage %q (must be memory or redis)", c.Storage)
	}
	if err := c.TLS.Validate(); err != nil {
		return err
	}

	if c.Adapter != "" {
		if err := storage.ValidateSeriesName(c.Series); err != nil {
			return fmt.Errorf("--series is required with an adapter: %w", err)
		}
		if c.Step <= 0 || c.Horizon <= 0 || c.Window <= 0 || c.Interval <= 0 {
			return fmt.Errorf("step, horizon, window and interval must be > 0")
		}
		if c.Step > c.Horizon {
			return fmt.Errorf("step (%v) cannot exceed horizon (%v)", c.Step, c.Horizon)
		}
		if c.Step < time.Second {
			return fmt.Errorf("step (%v) must be at least 1s", c.Step)
		}
		if c.MaxHorizon > 0 && c.HorizonSteps() > c.MaxHorizon {
			return fmt.Errorf("horizon of %d steps exceeds max horizon %d", c.HorizonSteps(), c.MaxHorizon)
		}
	}

	switch c.Model {
	case ModelAuto:
	case ModelARIMA:
		if err := c.Order().Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid model %q (must be auto or arima)", c.Model)
	}

	if c.FitTimeout <= 0 {
		return fmt.Errorf("fit timeout must be > 0")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be > 0")
	}
	if c.MaxHorizon <= 0 {
		return fmt.Errorf("max horizon must be > 0")
	}

	if _, err := c.EngineConfig(); err != nil {
		return err
	}
	return nil
}

// Order is the fixed order used when Model is arima.
func (c *Config) Order() arima.Order {
	o := arima.Order{P: c.P, D: c.D, Q: c.Q}
	if c.Period > 0 {
		o.SeasonalP, o.SeasonalD, o.SeasonalQ, o.Period = c.SeasonalP, c.SeasonalD, c.SeasonalQ, c.Period
	}
	return o
}

// EngineConfig converts the grid bounds and confidence level into an engine
// configuration.
func (c *Config) EngineConfig() (arima.Config, error) {
	level, err := arima.ParseConfidenceLevel(c.Confidence)
	if err != nil {
		return arima.Config{}, err
	}
	ec := arima.DefaultConfig()
	ec.MaxP, ec.MaxD, ec.MaxQ = c.MaxP, c.MaxD, c.MaxQ
	ec.MaxSeasonalP, ec.MaxSeasonalD, ec.MaxSeasonalQ = c.MaxSeasonalP, c.MaxSeasonalD, c.MaxSeasonalQ
	ec.Period = c.Period
	ec.Confidence = level
	if c.Workers > 0 {
		ec.Workers = c.Workers
	}
	if c.MaxHorizon > 0 {
		ec.MaxHorizon = c.MaxHorizon
	}
	if err := ec.Validate(); err != nil {
		return arima.Config{}, err
	}
	return ec, nil
}

// HorizonSteps is the number of points the loop forecasts.
func (c *Config) HorizonSteps() int {
	return int(c.Horizon / c.Step)
}

// parseAdapterConfig collects ADAPTER_* variables, keyed in lower camel case
// (ADAPTER_VALUE_PATH → valuePath).
func parseAdapterConfig(environ []string) map[string]string {
	config := make(map[string]string)
	for _, env := range environ {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		name, found := strings.CutPrefix(key, "ADAPTER_")
		if !found || name == "" {
			continue
		}
		config[toLowerCamelCase(name)] = value
	}
	return config
}

func toLowerCamelCase(s string) string {
	parts := strings.Split(strings.ToLower(s), "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i > 0 && b.Len() > 0 {
			b.WriteString(strings.ToUpper(p[:1]))
			b.WriteString(p[1:])
			continue
		}
		b.WriteString(p)
	}
	return b.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}
