package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

const defaultStepSeconds = 60

// PrometheusAdapter runs a range query against the Prometheus HTTP API.
// When the query returns several series, values at the same timestamp are
// summed.
type PrometheusAdapter struct {
	// ServerURL is the Prometheus base URL, e.g. http://prometheus:9090.
	ServerURL string
	// Query is the PromQL expression.
	Query string
	// StepSeconds is the query resolution, 60 when not positive.
	StepSeconds int
	// HTTPClient defaults to a client with a 10s timeout.
	HTTPClient *http.Client
}

func (p *PrometheusAdapter) Name() string { return "prometheus" }

// Collect queries the last windowSeconds of p.Query.
func (p *PrometheusAdapter) Collect(ctx context.Context, windowSeconds int) (*DataFrame, error) {
	return queryRange(ctx, "prometheus", p.ServerURL, p.Query, p.StepSeconds, p.HTTPClient, windowSeconds)
}

// queryRange issues /api/v1/query_range against a Prometheus-compatible
// server and aggregates the matrix result.
func queryRange(ctx context.Context, system, serverURL, query string, step int, cli *http.Client, windowSeconds int) (*DataFrame, error) {
	if serverURL == "" || query == "" {
		return &DataFrame{}, fmt.Errorf("%s adapter: ServerURL and Query are required", system)
	}
	if step <= 0 {
		step = defaultStepSeconds
	}
	start, end := window(windowSeconds)

	u, err := url.Parse(serverURL)
	if err != nil {
		return &DataFrame{}, fmt.Errorf("invalid ServerURL: %w", err)
	}
	u.Path = "/api/v1/query_range"
	q := u.Query()
	q.Set("query", query)
	q.Set("start", strconv.FormatInt(start.Unix(), 10))
	q.Set("end", strconv.FormatInt(end.Unix(), 10))
	q.Set("step", strconv.Itoa(step))
	u.RawQuery = q.Encode()

	if cli == nil {
		cli = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &DataFrame{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := cli.Do(req)
	if err != nil {
		return &DataFrame{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &DataFrame{}, fmt.Errorf("%s: status %d", system, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &DataFrame{}, fmt.Errorf("read %s response: %w", system, err)
	}

	samples, err := parseMatrix(body)
	if err != nil {
		return &DataFrame{}, fmt.Errorf("%s: %w", system, err)
	}
	return toFrame(samples), nil
}

// parseMatrix decodes a query_range response, summing series point-wise.
func parseMatrix(body []byte) ([]sample, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("response is not valid JSON")
	}
	doc := gjson.ParseBytes(body)
	if status := doc.Get("status").String(); status != "success" {
		return nil, fmt.Errorf("query status %q: %s", status, doc.Get("error").String())
	}

	acc := make(map[int64]float64)
	var perr error
	doc.Get("data.result").ForEach(func(_, series gjson.Result) bool {
		series.Get("values").ForEach(func(_, pair gjson.Result) bool {
			point := pair.Array()
			if len(point) != 2 {
				perr = fmt.Errorf("invalid value pair length: %d", len(point))
				return false
			}
			if point[0].Type != gjson.Number {
				perr = fmt.Errorf("unexpected timestamp %s", point[0].Raw)
				return false
			}
			v, err := strconv.ParseFloat(point[1].String(), 64)
			if err != nil {
				perr = fmt.Errorf("parse value: %w", err)
				return false
			}
			acc[int64(point[0].Float())] += v
			return true
		})
		return perr == nil
	})
	if perr != nil {
		return nil, perr
	}

	samples := make([]sample, 0, len(acc))
	for ts, v := range acc {
		samples = append(samples, sample{ts: time.Unix(ts, 0), value: v})
	}
	return samples, nil
}
