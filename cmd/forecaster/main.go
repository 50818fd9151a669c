// Command forecaster runs the arimacast forecasting service.
//
// The forecaster serves ad-hoc ARIMA forecasts and, when an adapter is
// configured, runs a continuous loop that:
//  1. Collects the recent history of one series from Prometheus,
//     VictoriaMetrics or a JSON endpoint
//  2. Fits an ARIMA model, either a fixed order or one selected by grid search
//  3. Forecasts the configured horizon with a prediction interval
//  4. Stores the forecast snapshot in memory or Redis
//
// HTTP API (default :8081):
//   - POST /v1/forecast - Forecast a posted series
//   - GET /v1/forecast/current?series=<name> - Retrieve the latest stored forecast
//   - GET /healthz - Health check endpoint
//   - GET /metrics - Prometheus metrics endpoint
//
// gRPC API (default :9091): arimacast.v1.Forecaster/Forecast and the standard
// health service.
//
// Usage:
//
//	forecaster \
//	  -series=checkout-rps \
//	  -adapter=prometheus \
//	  -step=1m -horizon=30m -window=12h \
//	  -model=auto -period=60
//
// Environment variables:
//
//	SERIES         - Series name snapshots are stored under
//	ADAPTER        - Adapter type: prometheus, victoriametrics, http
//	ADAPTER_*      - Adapter settings, e.g. ADAPTER_URL, ADAPTER_QUERY
//	MODEL          - auto or arima (default: auto)
//	ARIMA_P/D/Q    - Fixed order when MODEL=arima
//	PERIOD         - Seasonal period in steps (default: 0)
//	CONFIDENCE     - Prediction interval level (default: 0.95)
//	STORAGE        - memory or redis (default: memory)
//	REDIS_ADDR     - Redis address (default: localhost:6379)
//	HORIZON        - Forecast horizon duration (default: 30m)
//	STEP           - Step size (default: 1m)
//	INTERVAL       - Forecast loop interval (default: 1m)
//	LOG_LEVEL      - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT     - Logging format: text, json (default: text)
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/HatiCode/arimacast/cmd/forecaster/config"
	"github.com/HatiCode/arimacast/cmd/forecaster/grpcapi"
	"github.com/HatiCode/arimacast/cmd/forecaster/logger"
	"github.com/HatiCode/arimacast/cmd/forecaster/metrics"
	"github.com/HatiCode/arimacast/cmd/forecaster/models"
	"github.com/HatiCode/arimacast/cmd/forecaster/router"
	"github.com/HatiCode/arimacast/cmd/forecaster/service"
	"github.com/HatiCode/arimacast/pkg/adapters"
	"github.com/HatiCode/arimacast/pkg/arima"
	"github.com/HatiCode/arimacast/pkg/httpx"
	"github.com/HatiCode/arimacast/pkg/storage"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg := config.ParseFlags()

	log := logger.New(cfg)
	slog.SetDefault(log)

	log.Info("starting arimacast forecaster",
		"version", version,
		"series", cfg.Series,
		"adapter", cfg.Adapter,
		"model", cfg.Model,
	)

	if err := run(cfg, log); err != nil {
		log.Error("forecaster failed", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func run(cfg *config.Config, log *slog.Logger) error {
	engine, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	m := metrics.New(prometheus.DefaultRegisterer)

	store, closeStore, err := newStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := service.New(engine, store, m, cfg.FitTimeout, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopErr := make(chan error, 1)
	if cfg.Adapter != "" {
		f, err := newForecaster(cfg, engine, store, m, log)
		if err != nil {
			return err
		}
		go func() {
			loopErr <- f.Run(ctx, cfg.Interval)
		}()
	} else {
		log.Info("no adapter configured, forecast loop disabled")
	}

	handler := router.SetupRoutes(router.Options{
		Service:      svc,
		Store:        store,
		StaleAfter:   2 * cfg.Interval,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Metrics:      m,
		Logger:       log,
	})
	httpServer := httpx.NewServer(cfg.Listen, handler, log)
	serverTLS, err := cfg.TLS.ServerConfig()
	if err != nil {
		return fmt.Errorf("server TLS: %w", err)
	}
	if serverTLS != nil {
		httpServer.SetTLSConfig(serverTLS)
	}

	serverErr := make(chan error, 2)
	go func() {
		serverErr <- httpServer.Start()
	}()

	var grpcServer *grpcapi.Server
	if cfg.GRPCListen != "" {
		lis, err := net.Listen("tcp", cfg.GRPCListen)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.GRPCListen, err)
		}
		grpcServer = grpcapi.NewServer(grpcapi.NewForecaster(svc, m, log), serverTLS, log)
		go func() {
			serverErr <- grpcServer.Serve(lis)
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			runErr = err
		}
	case err := <-loopErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = fmt.Errorf("forecast loop: %w", err)
		}
	}

	log.Info("shutting down")
	cancel()

	if grpcServer != nil {
		grpcServer.Stop(10 * time.Second)
	}
	if err := httpServer.Stop(10 * time.Second); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// newStore opens the configured snapshot store and returns its closer.
func newStore(cfg *config.Config, log *slog.Logger) (storage.Store, func(), error) {
	switch cfg.Storage {
	case "redis":
		rs, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using redis storage", "addr", cfg.RedisAddr, "db", cfg.RedisDB, "ttl", cfg.RedisTTL)
		return rs, func() {
			if err := rs.Close(); err != nil {
				log.Error("failed to close store", "error", err)
			}
		}, nil
	default:
		if cfg.Interval <= 0 {
			log.Info("using in-memory storage without expiry")
			return storage.NewMemoryStore(), func() {}, nil
		}
		ms := storage.NewMemoryStoreWithTTL(2*cfg.Interval+cfg.Horizon, cfg.Interval)
		log.Info("using in-memory storage", "ttl", 2*cfg.Interval+cfg.Horizon)
		return ms, ms.Stop, nil
	}
}

func newForecaster(cfg *config.Config, engine arima.Config, store storage.Store, m *metrics.Metrics, log *slog.Logger) (*Forecaster, error) {
	client, err := httpx.NewClient(cfg.TLS, 30*time.Second)
	if err != nil {
		return nil, err
	}
	adapter, err := adapters.NewWithClient(cfg.Adapter, cfg.AdapterConfig, int(cfg.Step.Seconds()), client)
	if err != nil {
		return nil, fmt.Errorf("adapter: %w", err)
	}
	model, err := models.New(cfg, engine, log)
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	return NewForecaster(cfg.Series, adapter, model, store, cfg.Step, cfg.Horizon, cfg.Window, log, m), nil
}
