package service

import (
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/gjson"

	"github.com/HatiCode/arimacast/pkg/arima"
	"github.com/HatiCode/arimacast/pkg/storage"
)

// ErrInvalidRequest reports a malformed forecast request.
var ErrInvalidRequest = errors.New("invalid request")

// Request is a parsed forecast request.
type Request struct {
	// Name, when set, stores the result as the latest snapshot of that series.
	Name    string
	Series  []float64
	Horizon int
	// Order fixes the model order; nil selects one by grid search.
	Order *arima.Order
	// Period overrides the seasonal period searched; 0 keeps the default.
	Period int
	// Confidence overrides the interval level; 0 keeps the default.
	Confidence float64
}

// ParseRequest decodes a JSON forecast request:
//
//	{"name": "api", "series": [1, 2, 3], "horizon": 5,
//	 "order": {"p": 1, "d": 1, "q": 0, "P": 0, "D": 0, "Q": 0, "m": 0},
//	 "period": 0, "confidence": "p95"}
//
// series may also be an array of {"ts": ..., "value": ...} objects, taken in
// the order given. horizon must lie in [1, maxHorizon]; a maxHorizon of 0
// leaves it unbounded above.
func ParseRequest(body []byte, maxHorizon int) (Request, error) {
	if !gjson.ValidBytes(body) {
		return Request{}, fmt.Errorf("%w: malformed JSON", ErrInvalidRequest)
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return Request{}, fmt.Errorf("%w: body must be a JSON object", ErrInvalidRequest)
	}

	var req Request
	var err error

	if name := root.Get("name"); name.Exists() {
		if name.Type != gjson.String {
			return Request{}, fmt.Errorf("%w: name must be a string", ErrInvalidRequest)
		}
		req.Name = name.String()
		if err := storage.ValidateSeriesName(req.Name); err != nil {
			return Request{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}

	if req.Series, err = parseSeries(root.Get("series")); err != nil {
		return Request{}, err
	}

	if req.Horizon, err = intField(root, "horizon", true); err != nil {
		return Request{}, err
	}
	if req.Horizon <= 0 {
		return Request{}, fmt.Errorf("%w: horizon must be > 0, got %d", ErrInvalidRequest, req.Horizon)
	}
	if maxHorizon > 0 && req.Horizon > maxHorizon {
		return Request{}, fmt.Errorf("%w: horizon %d exceeds limit %d", ErrInvalidRequest, req.Horizon, maxHorizon)
	}

	if req.Period, err = intField(root, "period", false); err != nil {
		return Request{}, err
	}
	if req.Period < 0 {
		return Request{}, fmt.Errorf("%w: period must be >= 0, got %d", ErrInvalidRequest, req.Period)
	}

	if order := root.Get("order"); order.Exists() {
		o, err := parseOrder(order)
		if err != nil {
			return Request{}, err
		}
		req.Order = &o
	}

	if c := root.Get("confidence"); c.Exists() {
		if c.Type != gjson.String && c.Type != gjson.Number {
			return Request{}, fmt.Errorf("%w: confidence must be a string or number", ErrInvalidRequest)
		}
		if req.Confidence, err = arima.ParseConfidenceLevel(c.String()); err != nil {
			return Request{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}

	return req, nil
}

func parseSeries(r gjson.Result) ([]float64, error) {
	if !r.IsArray() {
		return nil, fmt.Errorf("%w: series must be an array", ErrInvalidRequest)
	}
	elems := r.Array()
	if len(elems) == 0 {
		return nil, fmt.Errorf("%w: series is empty", ErrInvalidRequest)
	}

	series := make([]float64, len(elems))
	for i, e := range elems {
		if e.IsObject() {
			e = e.Get("value")
		}
		if e.Type != gjson.Number {
			return nil, fmt.Errorf("%w: series[%d] is not a number", ErrInvalidRequest, i)
		}
		series[i] = e.Float()
	}
	return series, nil
}

func parseOrder(r gjson.Result) (arima.Order, error) {
	if !r.IsObject() {
		return arima.Order{}, fmt.Errorf("%w: order must be an object", ErrInvalidRequest)
	}
	var o arima.Order
	fields := []struct {
		key string
		dst *int
	}{
		{"p", &o.P}, {"d", &o.D}, {"q", &o.Q},
		{"P", &o.SeasonalP}, {"D", &o.SeasonalD}, {"Q", &o.SeasonalQ},
		{"m", &o.Period},
	}
	for _, f := range fields {
		v, err := intField(r, f.key, false)
		if err != nil {
			return arima.Order{}, fmt.Errorf("order: %w", err)
		}
		*f.dst = v
	}
	if err := o.Validate(); err != nil {
		return arima.Order{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return o, nil
}

// intField reads an integral number at key, 0 when absent and not required.
func intField(r gjson.Result, key string, required bool) (int, error) {
	v := r.Get(key)
	if !v.Exists() {
		if required {
			return 0, fmt.Errorf("%w: %s is required", ErrInvalidRequest, key)
		}
		return 0, nil
	}
	f := v.Float()
	if v.Type != gjson.Number || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidRequest, key)
	}
	if math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s out of range", ErrInvalidRequest, key)
	}
	return int(f), nil
}
