package arima

import "math"

// Result is a forecast with its prediction interval and fit statistics.
// Statistics that were never computed hold -1.
type Result struct {
	Forecast []float64 `json:"forecast"`
	Upper    []float64 `json:"upper"`
	Lower    []float64 `json:"lower"`

	// DataVariance is the sample variance of the stationary training series.
	DataVariance float64 `json:"dataVariance"`
	AIC          float64 `json:"aic"`
	RMSE         float64 `json:"rmse"`
	// MaxNormalizedVariance is the largest squared bound divided by
	// DataVariance across the horizon.
	MaxNormalizedVariance float64 `json:"maxNormalizedVariance"`

	Order      Order   `json:"order"`
	Confidence float64 `json:"confidence,omitempty"`
	Evaluated  int     `json:"evaluated,omitempty"`
	Skipped    int     `json:"skipped,omitempty"`
	// Fallback marks a result produced by a caller's fallback order after
	// model selection failed. The engine never sets it.
	Fallback bool `json:"fallback,omitempty"`
}

func newResult(forecast []float64, dataVariance float64) *Result {
	return &Result{
		Forecast:              forecast,
		Upper:                 append([]float64(nil), forecast...),
		Lower:                 append([]float64(nil), forecast...),
		DataVariance:          dataVariance,
		AIC:                   -1,
		RMSE:                  -1,
		MaxNormalizedVariance: -1,
	}
}

// SetConfidenceInterval sets Upper and Lower to Forecast ± z·RMSE·cumulative[i]
// and returns the maximum normalized variance, which it also records.
// An unset RMSE yields a zero-width interval.
func (r *Result) SetConfidenceInterval(z float64, cumulative []float64) float64 {
	rmse := math.Max(r.RMSE, 0)
	maxNV := -1.0
	for i, f := range r.Forecast {
		bound := z * rmse * cumulative[i]
		r.Upper[i] = f + bound
		r.Lower[i] = f - bound
		maxNV = math.Max(maxNV, r.normalizedVariance(bound*bound))
	}
	r.MaxNormalizedVariance = maxNV
	return maxNV
}

func (r *Result) normalizedVariance(v float64) float64 {
	switch {
	case v < 0 || r.DataVariance < 0:
		return -1
	case r.DataVariance < 1e-7:
		return v
	default:
		return math.Abs(v / r.DataVariance)
	}
}

// SetPredictionInterval derives the interval of r from the psi weights of
// the fitted params.
func SetPredictionInterval(params *Params, r *Result, z float64) float64 {
	psi := ARMAToMA(params.ARCoefficients(), params.MACoefficients(), len(r.Forecast))
	return r.SetConfidenceInterval(z, CumulativeSumOfSquares(psi))
}
