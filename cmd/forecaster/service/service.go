// Package service answers ad-hoc forecast requests for the HTTP and gRPC
// transports: it parses the request, runs the engine under a timeout,
// optionally stores the result and classifies failures for status mapping.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/HatiCode/arimacast/cmd/forecaster/metrics"
	"github.com/HatiCode/arimacast/pkg/arima"
	"github.com/HatiCode/arimacast/pkg/models"
	"github.com/HatiCode/arimacast/pkg/storage"
)

// Response is a forecast result as returned to clients.
type Response struct {
	Name string `json:"name,omitempty"`
	*arima.Result
	GeneratedAt time.Time `json:"generatedAt"`
}

// Service runs forecast requests.
type Service struct {
	engine  arima.Config
	store   storage.Store
	metrics *metrics.Metrics
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Service. store may be nil, in which case named requests fail.
func New(engine arima.Config, store storage.Store, m *metrics.Metrics, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if engine.Logger == nil {
		engine.Logger = logger
	}
	if engine.MaxHorizon <= 0 {
		engine.MaxHorizon = arima.DefaultMaxHorizon
	}
	return &Service{
		engine:  engine,
		store:   store,
		metrics: m,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// MaxHorizon is the largest horizon a request may ask for.
func (s *Service) MaxHorizon() int { return s.engine.MaxHorizon }

// Forecast fits req.Order, or selects an order when it is nil, and forecasts
// req.Horizon points. Named requests are stored as snapshots.
func (s *Service) Forecast(ctx context.Context, req Request) (*Response, error) {
	if len(req.Series) == 0 {
		return nil, fmt.Errorf("%w: series is required", ErrInvalidRequest)
	}
	if err := arima.CheckHorizon(req.Horizon, s.engine.MaxHorizon); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	cfg := s.engine
	if req.Period > 0 {
		cfg.Period = req.Period
	}
	if req.Confidence > 0 {
		cfg.Confidence = req.Confidence
	}

	start := time.Now()
	var (
		res  *arima.Result
		err  error
		mode string
	)
	if req.Order == nil {
		mode = "auto"
		res, err = arima.SelectBestModel(ctx, req.Series, req.Horizon, cfg)
	} else {
		mode = "fixed"
		res, err = s.fixed(ctx, *req.Order, req, cfg)
	}
	elapsed := time.Since(start)
	s.metrics.RecordFit(mode, elapsed.Seconds())
	if err != nil {
		s.logger.Debug("forecast failed", "mode", mode, "points", len(req.Series), "error", err)
		return nil, err
	}
	if mode == "auto" {
		s.metrics.RecordCandidates(res.Evaluated, res.Skipped)
	}

	resp := &Response{Name: req.Name, Result: res, GeneratedAt: s.now().UTC()}
	s.logger.Info("forecast complete",
		"mode", mode,
		"order", res.Order.String(),
		"points", len(req.Series),
		"horizon", req.Horizon,
		"confidence", arima.FormatConfidenceLevel(res.Confidence),
		"duration_ms", elapsed.Milliseconds(),
	)

	if req.Name != "" {
		if err := s.storeSnapshot(ctx, resp); err != nil {
			s.metrics.RecordError("store", "put_failed")
			return nil, fmt.Errorf("store snapshot: %w", err)
		}
	}
	return resp, nil
}

func (s *Service) fixed(ctx context.Context, order arima.Order, req Request, cfg arima.Config) (*arima.Result, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	model := models.NewARIMAModel(order, cfg, s.logger)
	if err := model.Train(ctx, req.Series); err != nil {
		return nil, err
	}
	return model.Predict(ctx, req.Horizon)
}

func (s *Service) storeSnapshot(ctx context.Context, resp *Response) error {
	if s.store == nil {
		return errors.New("no snapshot store configured")
	}
	return s.store.Put(ctx, storage.Snapshot{
		Series:      resp.Name,
		Model:       resp.Order.String(),
		GeneratedAt: resp.GeneratedAt,
		Values:      resp.Forecast,
		Upper:       resp.Upper,
		Lower:       resp.Lower,
		AIC:         resp.AIC,
		RMSE:        resp.RMSE,
	})
}

// Class groups errors by how a transport reports them.
type Class int

const (
	ClassInternal Class = iota
	ClassInvalid
	ClassUnprocessable
	ClassTimeout
	ClassCanceled
)

// Classify maps an error from ParseRequest or Forecast to its Class.
func Classify(err error) Class {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case errors.Is(err, context.Canceled):
		return ClassCanceled
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, storage.ErrInvalidSeriesName),
		errors.Is(err, arima.ErrInsufficientData),
		errors.Is(err, arima.ErrInvalidHorizon),
		errors.Is(err, arima.ErrInvalidOrder):
		return ClassInvalid
	case errors.Is(err, arima.ErrNoValidModel),
		errors.Is(err, arima.ErrSingularSystem):
		return ClassUnprocessable
	default:
		return ClassInternal
	}
}
