package arima

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config bounds the model-selection grid and tunes estimation.
type Config struct {
	// MaxP, MaxD and MaxQ bound the non-seasonal orders searched.
	MaxP int
	MaxD int
	MaxQ int

	// Seasonal bounds apply only when Period > 0.
	MaxSeasonalP int
	MaxSeasonalD int
	MaxSeasonalQ int
	Period       int

	TestFraction  float64
	MaxIterations int
	// MaxHorizon caps the forecast length; larger horizons fail with
	// ErrInvalidHorizon.
	MaxHorizon int
	// Confidence is the prediction interval level in (0, 1).
	Confidence float64
	// Workers caps concurrent candidate evaluations.
	Workers int

	Logger *slog.Logger
}

// DefaultConfig searches p,q in 0..2 and d in 0..1 without seasonality.
func DefaultConfig() Config {
	return Config{
		MaxP:          2,
		MaxD:          1,
		MaxQ:          2,
		MaxSeasonalP:  1,
		MaxSeasonalD:  1,
		MaxSeasonalQ:  1,
		TestFraction:  DefaultTestFraction,
		MaxIterations: DefaultMaxIterations,
		MaxHorizon:    DefaultMaxHorizon,
		Confidence:    DefaultConfidence,
		Workers:       runtime.GOMAXPROCS(0),
	}
}

func (c Config) withDefaults() Config {
	if c.TestFraction == 0 {
		c.TestFraction = DefaultTestFraction
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.MaxHorizon == 0 {
		c.MaxHorizon = DefaultMaxHorizon
	}
	if c.Confidence == 0 {
		c.Confidence = DefaultConfidence
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Validate checks the bounds of c.
func (c Config) Validate() error {
	if c.MaxP < 0 || c.MaxD < 0 || c.MaxQ < 0 ||
		c.MaxSeasonalP < 0 || c.MaxSeasonalD < 0 || c.MaxSeasonalQ < 0 || c.Period < 0 {
		return fmt.Errorf("%w: negative search bound", ErrInvalidOrder)
	}
	if !(c.TestFraction > 0 && c.TestFraction < 1) {
		return fmt.Errorf("%w: test fraction %v outside (0, 1)", ErrInvalidOrder, c.TestFraction)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("%w: negative iteration count", ErrInvalidOrder)
	}
	if c.MaxHorizon < 0 {
		return fmt.Errorf("%w: negative horizon limit %d", ErrInvalidHorizon, c.MaxHorizon)
	}
	if _, err := ZScore(c.Confidence); err != nil {
		return err
	}
	return nil
}

// Candidates lists the orders searched, p outermost then d, q, P, D, Q.
func (c Config) Candidates() []Order {
	sp, sd, sq := 0, 0, 0
	if c.Period > 0 {
		sp, sd, sq = c.MaxSeasonalP, c.MaxSeasonalD, c.MaxSeasonalQ
	}
	var orders []Order
	for p := 0; p <= c.MaxP; p++ {
		for d := 0; d <= c.MaxD; d++ {
			for q := 0; q <= c.MaxQ; q++ {
				for P := 0; P <= sp; P++ {
					for D := 0; D <= sd; D++ {
						for Q := 0; Q <= sq; Q++ {
							o := Order{P: p, D: d, Q: q, SeasonalP: P, SeasonalD: D, SeasonalQ: Q}
							if c.Period > 0 {
								o.Period = c.Period
							}
							orders = append(orders, o)
						}
					}
				}
			}
		}
	}
	return orders
}

// Selection is the outcome of a grid search.
type Selection struct {
	Order     Order
	AIC       float64
	Evaluated int
	Skipped   int
}

type candidateScore struct {
	aic float64
	err error
}

// SelectOrder scores every candidate order of cfg by validation AIC and
// returns the lowest. Ties keep the earliest candidate. A candidate that
// fails to fit or scores NaN is skipped; if all are skipped the error wraps
// ErrNoValidModel. Cancelling ctx aborts the search.
func SelectOrder(ctx context.Context, data []float64, cfg Config) (Selection, error) {
	if len(data) < 2 {
		return Selection{}, insufficient("model selection", 2, len(data))
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Selection{}, err
	}

	orders := cfg.Candidates()
	scores := make([]candidateScore, len(orders))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, order := range orders {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			aic, err := evaluate(data, order, cfg)
			scores[i] = candidateScore{aic: aic, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Selection{}, err
	}
	if err := ctx.Err(); err != nil {
		return Selection{}, err
	}

	sel := Selection{}
	best := -1
	for i, s := range scores {
		if s.err != nil || math.IsNaN(s.aic) {
			sel.Skipped++
			cfg.Logger.Debug("candidate skipped", "order", orders[i].String(), "error", s.err)
			continue
		}
		sel.Evaluated++
		cfg.Logger.Debug("candidate evaluated", "order", orders[i].String(), "aic", s.aic)
		if best < 0 || s.aic < scores[best].aic {
			best = i
		}
	}
	if best < 0 {
		return sel, fmt.Errorf("%w: all %d candidates failed on %d points", ErrNoValidModel, len(orders), len(data))
	}
	sel.Order = orders[best]
	sel.AIC = scores[best].aic
	cfg.Logger.Debug("order selected", "order", sel.Order.String(), "aic", sel.AIC,
		"evaluated", sel.Evaluated, "skipped", sel.Skipped)
	return sel, nil
}

func evaluate(data []float64, order Order, cfg Config) (float64, error) {
	params, err := NewParams(order)
	if err != nil {
		return 0, err
	}
	return validate(data, cfg.TestFraction, params, cfg.MaxIterations, AIC)
}

// SelectBestModel searches the grid of cfg, refits the winning order on all
// of data and forecasts horizon points with a prediction interval.
func SelectBestModel(ctx context.Context, data []float64, horizon int, cfg Config) (*Result, error) {
	if len(data) < 2 {
		return nil, insufficient("model selection", 2, len(data))
	}
	if err := CheckHorizon(horizon, cfg.withDefaults().MaxHorizon); err != nil {
		return nil, err
	}
	sel, err := SelectOrder(ctx, data, cfg)
	if err != nil {
		return nil, err
	}
	res, err := ForecastOrder(data, sel.Order, horizon, cfg)
	if err != nil {
		return nil, fmt.Errorf("refit %s: %w", sel.Order, err)
	}
	res.Evaluated = sel.Evaluated
	res.Skipped = sel.Skipped
	return res, nil
}

// Forecast selects a model with DefaultConfig and forecasts horizon points.
func Forecast(ctx context.Context, series []float64, horizon int) (*Result, error) {
	return SelectBestModel(ctx, series, horizon, DefaultConfig())
}

// Fit estimates order on series[:trainEnd], holding out forecastEnd-trainEnd
// stationary points for scoring, and returns the fitted parameters.
func Fit(series []float64, order Order, trainEnd, forecastEnd int) (*Params, error) {
	params, err := NewParams(order)
	if err != nil {
		return nil, err
	}
	if _, err := EstimateARIMA(params, series, trainEnd, forecastEnd, DefaultMaxIterations); err != nil {
		return nil, err
	}
	return params, nil
}

// ForecastWithParams forecasts series[trainEnd:forecastEnd] from fitted params.
func ForecastWithParams(params *Params, series []float64, trainEnd, forecastEnd int) (*Result, error) {
	res, err := ForecastARIMA(params, series, trainEnd, forecastEnd)
	if err != nil {
		return nil, err
	}
	res.Order = params.Order()
	return res, nil
}

// ForecastOrder fits order on all of data, scores it by validation AIC and
// RMSE on fresh parameters, forecasts horizon points and sets the
// prediction interval at cfg.Confidence.
func ForecastOrder(data []float64, order Order, horizon int, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := CheckHorizon(horizon, cfg.MaxHorizon); err != nil {
		return nil, err
	}
	z, err := ZScore(cfg.Confidence)
	if err != nil {
		return nil, err
	}

	n := len(data)
	params, err := NewParams(order)
	if err != nil {
		return nil, err
	}
	if _, err := EstimateARIMA(params, data, n, n+1, cfg.MaxIterations); err != nil {
		return nil, err
	}

	aic, rmse, err := ScoreOrder(data, order, cfg)
	if err != nil {
		return nil, err
	}

	res, err := ForecastWithParams(params, data, n, n+horizon)
	if err != nil {
		return nil, err
	}
	res.AIC = aic
	res.RMSE = rmse
	res.Confidence = cfg.Confidence
	SetPredictionInterval(params, res, z)
	return res, nil
}

func scoreOrder(data []float64, order Order, cfg Config, score scoreFunc) (float64, error) {
	params, err := NewParams(order)
	if err != nil {
		return 0, err
	}
	return validate(data, cfg.TestFraction, params, cfg.MaxIterations, score)
}

// ScoreOrder returns the validation AIC and RMSE of order on data, each
// estimated on fresh parameters with cfg.MaxIterations rounds.
func ScoreOrder(data []float64, order Order, cfg Config) (aic, rmse float64, err error) {
	cfg = cfg.withDefaults()
	if aic, err = scoreOrder(data, order, cfg, AIC); err != nil {
		return 0, 0, fmt.Errorf("validate %s: %w", order, err)
	}
	if rmse, err = scoreOrder(data, order, cfg, RMSE); err != nil {
		return 0, 0, fmt.Errorf("validate %s: %w", order, err)
	}
	return aic, rmse, nil
}

// CheckHorizon rejects horizons outside [1, limit]. A limit of 0 leaves the
// horizon unbounded above.
func CheckHorizon(horizon, limit int) error {
	if horizon <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidHorizon, horizon)
	}
	if limit > 0 && horizon > limit {
		return fmt.Errorf("%w: %d exceeds limit %d", ErrInvalidHorizon, horizon, limit)
	}
	return nil
}
