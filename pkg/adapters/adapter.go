// Package adapters pulls the history of a series from an external system and
// returns it as a time-ordered [DataFrame].
//
// Available adapters:
//   - PrometheusAdapter      - /api/v1/query_range on Prometheus
//   - VictoriaMetricsAdapter - the same API served by VictoriaMetrics
//   - HTTPAdapter            - any JSON endpoint, fields picked by gjson paths
package adapters

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Row is one observation. Adapters fill "ts" (RFC3339 string) and "value".
type Row map[string]any

// DataFrame holds the rows collected over one window, oldest first.
type DataFrame struct {
	Rows []Row
}

// Values returns the "value" column in row order. A missing or non-numeric
// value fails the extraction.
func (df *DataFrame) Values() ([]float64, error) {
	out := make([]float64, len(df.Rows))
	for i, row := range df.Rows {
		raw, ok := row["value"]
		if !ok {
			return nil, fmt.Errorf("row %d missing 'value' field", i)
		}
		switch v := raw.(type) {
		case float64:
			out[i] = v
		case int:
			out[i] = float64(v)
		case int64:
			out[i] = float64(v)
		default:
			return nil, fmt.Errorf("row %d: value has type %T, want a number", i, raw)
		}
	}
	return out, nil
}

// Adapter collects a window of history. Collect honours ctx.
type Adapter interface {
	Collect(ctx context.Context, windowSeconds int) (*DataFrame, error)
	Name() string
}

// sample is a decoded point before it is turned into a Row.
type sample struct {
	ts    time.Time
	value float64
}

// toFrame sorts samples by time and renders timestamps as RFC3339.
func toFrame(samples []sample) *DataFrame {
	sort.Slice(samples, func(i, j int) bool { return samples[i].ts.Before(samples[j].ts) })
	rows := make([]Row, len(samples))
	for i, s := range samples {
		rows[i] = Row{"ts": s.ts.UTC().Format(time.RFC3339), "value": s.value}
	}
	return &DataFrame{Rows: rows}
}

// window returns [now-windowSeconds, now] truncated to the second.
func window(windowSeconds int) (start, end time.Time) {
	end = time.Now().UTC().Truncate(time.Second)
	return end.Add(-time.Duration(windowSeconds) * time.Second), end
}
