package arima

import (
	"fmt"
	"math"
)

const (
	// DefaultTestFraction is the share of a series held out for validation.
	DefaultTestFraction = 0.15
	// DefaultMaxIterations bounds the Hannan-Rissanen refinement rounds.
	DefaultMaxIterations = 5
	// DefaultMaxHorizon caps the points a single forecast may produce.
	DefaultMaxHorizon = 10000
)

// ForecastARMA runs the ARMA recursion over a stationary, centered series.
// Residuals are computed on [max(degAR,degMA), trainEnd); forecasts on
// [trainEnd, forecastEnd) are fed back as observations with zero error.
// Only the forecast slice is returned.
func ForecastARMA(params *Params, stationary []float64, trainEnd, forecastEnd int) ([]float64, error) {
	start := max(params.DegreeAR(), params.DegreeMA())
	if trainEnd > len(stationary) {
		return nil, insufficient("arma forecast", trainEnd, len(stationary))
	}
	if trainEnd < start {
		return nil, insufficient(fmt.Sprintf("arma forecast for %s", params.order), start, trainEnd)
	}
	if forecastEnd < trainEnd {
		return nil, fmt.Errorf("%w: forecast end %d before train end %d", ErrInvalidHorizon, forecastEnd, trainEnd)
	}

	data := make([]float64, forecastEnd)
	copy(data, stationary[:trainEnd])
	errs := make([]float64, forecastEnd)

	for t := start; t < trainEnd; t++ {
		errs[t] = data[t] - params.forecastOnePoint(data, errs, t)
	}

	out := make([]float64, forecastEnd-trainEnd)
	for t := trainEnd; t < forecastEnd; t++ {
		f := params.forecastOnePoint(data, errs, t)
		data[t] = f
		out[t-trainEnd] = f
	}
	return out, nil
}

func checkLength(params *Params, data []float64, trainEnd, forecastEnd int) error {
	need := max(params.order.MinLength(), 1)
	op := fmt.Sprintf("%s (train end %d, forecast end %d)", params.order, trainEnd, forecastEnd)
	switch {
	case len(data) < need, trainEnd < need:
		return insufficient(op, need, min(len(data), trainEnd))
	case trainEnd > len(data):
		return insufficient(op, trainEnd, len(data))
	case forecastEnd <= trainEnd:
		return insufficient(op, trainEnd+1, forecastEnd)
	}
	return nil
}

// ForecastARIMA fits nothing: it differences data[:trainEnd] with the
// order of params, forecasts forecastEnd-trainEnd steps with the current
// coefficients and integrates the forecast back into data units.
func ForecastARIMA(params *Params, data []float64, trainEnd, forecastEnd int) (*Result, error) {
	if err := checkLength(params, data, trainEnd, forecastEnd); err != nil {
		return nil, err
	}
	stationary, tr, err := params.differentiate(data[:trainEnd])
	if err != nil {
		return nil, err
	}

	n := len(stationary)
	horizon := forecastEnd - trainEnd
	fc, err := ForecastARMA(params, stationary, n, n+horizon)
	if err != nil {
		return nil, err
	}

	merged := make([]float64, 0, n+horizon)
	merged = append(merged, stationary...)
	merged = append(merged, fc...)
	restored, err := tr.integrate(merged)
	if err != nil {
		return nil, err
	}

	variance := 0.0
	if n > 1 {
		variance = Variance(stationary)
	}
	return newResult(restored[trainEnd:forecastEnd], variance), nil
}

// Model is a fitted order bound to the series it was estimated on.
type Model struct {
	params   *Params
	data     []float64
	trainEnd int
}

// EstimateARIMA differences data[:trainEnd] and estimates the coefficients
// of params with Hannan-Rissanen, holding out forecastEnd-trainEnd points
// of the stationary series for scoring.
func EstimateARIMA(params *Params, data []float64, trainEnd, forecastEnd, maxIterations int) (*Model, error) {
	if err := checkLength(params, data, trainEnd, forecastEnd); err != nil {
		return nil, err
	}
	stationary, _, err := params.differentiate(data[:trainEnd])
	if err != nil {
		return nil, err
	}
	if err := EstimateARMA(stationary, params, forecastEnd-trainEnd, maxIterations); err != nil {
		return nil, err
	}
	return &Model{params: params, data: data, trainEnd: trainEnd}, nil
}

// Params returns the fitted parameters.
func (m *Model) Params() *Params { return m.params }

// Forecast forecasts horizon points past the training span.
func (m *Model) Forecast(horizon int) (*Result, error) {
	return ForecastARIMA(m.params, m.data, m.trainEnd, m.trainEnd+horizon)
}

// RMSE is the root mean squared error of forecast[start:end] against
// reference[start+offset:end+offset]. An empty range scores 0.
func RMSE(reference, forecast []float64, offset, start, end int) float64 {
	if end <= start {
		return 0
	}
	var sum float64
	for i := start; i < end; i++ {
		e := reference[i+offset] - forecast[i]
		sum += e * e
	}
	return math.Sqrt(sum / float64(end-start))
}

// AIC is a ranking score, n·ln(Σ|e|) + 2 over the same range as RMSE, and 0
// when the forecast is exact. It is not a likelihood-based criterion and is
// only meaningful for comparing candidates on the same data.
func AIC(reference, forecast []float64, offset, start, end int) float64 {
	var sum float64
	for i := start; i < end; i++ {
		sum += math.Abs(reference[i+offset] - forecast[i])
	}
	if sum == 0 {
		return 0
	}
	return float64(end-start)*math.Log(sum) + 2
}

type scoreFunc func(reference, forecast []float64, offset, start, end int) float64

// validate fits params on the head of data and scores a forecast of the
// last round(n·testFraction) points.
func validate(data []float64, testFraction float64, params *Params, maxIterations int, score scoreFunc) (float64, error) {
	testLen := int(math.Round(float64(len(data)) * testFraction))
	trainEnd := len(data) - testLen
	model, err := EstimateARIMA(params, data, trainEnd, len(data), maxIterations)
	if err != nil {
		return 0, err
	}
	res, err := model.Forecast(testLen)
	if err != nil {
		return 0, err
	}
	return score(data, res.Forecast, trainEnd, 0, testLen), nil
}

// ValidateRMSE estimates params on the training split of data and returns
// the RMSE of its forecast over the test split.
func ValidateRMSE(data []float64, testFraction float64, params *Params) (float64, error) {
	return validate(data, testFraction, params, DefaultMaxIterations, RMSE)
}

// ValidateAIC is ValidateRMSE scored with AIC.
func ValidateAIC(data []float64, testFraction float64, params *Params) (float64, error) {
	return validate(data, testFraction, params, DefaultMaxIterations, AIC)
}
