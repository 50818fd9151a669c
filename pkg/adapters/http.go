package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/tidwall/gjson"
)

// Timestamp formats understood by HTTPAdapter.
const (
	TimestampRFC3339   = "rfc3339"
	TimestampUnix      = "unix"
	TimestampUnixMilli = "unix_milli"
)

// HTTPAdapter calls a JSON endpoint and picks timestamps and values out of
// the response with gjson paths.
//
// Body and header values are text/template strings rendered with
// {{.WindowSeconds}}, {{.Start}}, {{.End}}, {{.Step}}, {{.StartRFC3339}},
// {{.EndRFC3339}} and every entry of TemplateVars:
//
//	adapter := &HTTPAdapter{
//	    URL:           "https://metrics.example.com/query",
//	    Method:        "POST",
//	    Headers:       map[string]string{"Authorization": "Bearer {{.Token}}"},
//	    Body:          `{"series": "orders", "from": {{.Start}}, "to": {{.End}}}`,
//	    ValuePath:     "points.#.v",
//	    TimestampPath: "points.#.t",
//	    TimestampFormat: "unix",
//	    TemplateVars:  map[string]string{"Token": token},
//	}
type HTTPAdapter struct {
	URL    string
	Method string // GET when empty

	Headers map[string]string
	Body    string

	// ValuePath and TimestampPath must select arrays of equal length,
	// e.g. "data.#.value" and "data.#.ts".
	ValuePath     string
	TimestampPath string
	// TimestampFormat is rfc3339 (default), unix or unix_milli.
	TimestampFormat string

	StepSeconds  int
	HTTPClient   *http.Client
	TemplateVars map[string]string
}

func (h *HTTPAdapter) Name() string { return "http" }

// ValidateConfig checks the required fields and the timestamp format.
func (h *HTTPAdapter) ValidateConfig() error {
	if h.URL == "" {
		return errors.New("url is required")
	}
	if h.ValuePath == "" {
		return errors.New("valuePath is required")
	}
	if h.TimestampPath == "" {
		return errors.New("timestampPath is required")
	}
	switch h.TimestampFormat {
	case "", TimestampRFC3339, TimestampUnix, TimestampUnixMilli:
		return nil
	default:
		return fmt.Errorf("invalid timestampFormat: %s (must be rfc3339, unix, or unix_milli)", h.TimestampFormat)
	}
}

// Collect calls the endpoint for the last windowSeconds.
func (h *HTTPAdapter) Collect(ctx context.Context, windowSeconds int) (*DataFrame, error) {
	if err := h.ValidateConfig(); err != nil {
		return &DataFrame{}, fmt.Errorf("http adapter: %w", err)
	}

	req, err := h.newRequest(ctx, windowSeconds)
	if err != nil {
		return &DataFrame{}, err
	}

	cli := h.HTTPClient
	if cli == nil {
		cli = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := cli.Do(req)
	if err != nil {
		return &DataFrame{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &DataFrame{}, fmt.Errorf("http status %d: %s", resp.StatusCode, snippet)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &DataFrame{}, fmt.Errorf("read response: %w", err)
	}

	samples, err := h.extract(body)
	if err != nil {
		return &DataFrame{}, err
	}
	return toFrame(samples), nil
}

func (h *HTTPAdapter) newRequest(ctx context.Context, windowSeconds int) (*http.Request, error) {
	step := h.StepSeconds
	if step <= 0 {
		step = defaultStepSeconds
	}
	start, end := window(windowSeconds)

	vars := map[string]any{
		"WindowSeconds": windowSeconds,
		"Start":         start.Unix(),
		"End":           end.Unix(),
		"Step":          step,
		"StartRFC3339":  start.Format(time.RFC3339),
		"EndRFC3339":    end.Format(time.RFC3339),
	}
	for k, v := range h.TemplateVars {
		vars[k] = v
	}

	method := h.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if h.Body != "" {
		rendered, err := renderTemplate(h.Body, vars)
		if err != nil {
			return nil, fmt.Errorf("render body template: %w", err)
		}
		body = strings.NewReader(rendered)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range h.Headers {
		rendered, err := renderTemplate(value, vars)
		if err != nil {
			return nil, fmt.Errorf("render header %s: %w", key, err)
		}
		req.Header.Set(key, rendered)
	}
	return req, nil
}

func (h *HTTPAdapter) extract(body []byte) ([]sample, error) {
	values := gjson.GetBytes(body, h.ValuePath)
	if !values.Exists() {
		return nil, fmt.Errorf("value path %q not found in response", h.ValuePath)
	}
	timestamps := gjson.GetBytes(body, h.TimestampPath)
	if !timestamps.Exists() {
		return nil, fmt.Errorf("timestamp path %q not found in response", h.TimestampPath)
	}

	vals, tss := values.Array(), timestamps.Array()
	if len(vals) != len(tss) {
		return nil, fmt.Errorf("value count (%d) != timestamp count (%d)", len(vals), len(tss))
	}

	samples := make([]sample, len(vals))
	for i := range vals {
		v, err := numeric(vals[i])
		if err != nil {
			return nil, fmt.Errorf("value[%d]: %w", i, err)
		}
		ts, err := parseTimestamp(h.TimestampFormat, tss[i])
		if err != nil {
			return nil, fmt.Errorf("parse timestamp[%d]: %w", i, err)
		}
		samples[i] = sample{ts: ts, value: v}
	}
	return samples, nil
}

// numeric accepts JSON numbers and numeric strings.
func numeric(r gjson.Result) (float64, error) {
	switch r.Type {
	case gjson.Number:
		return r.Num, nil
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", r.Str)
		}
		return v, nil
	default:
		return 0, fmt.Errorf("%s is not a number", r.Raw)
	}
}

func parseTimestamp(format string, r gjson.Result) (time.Time, error) {
	switch format {
	case "", TimestampRFC3339:
		return time.Parse(time.RFC3339, r.String())
	case TimestampUnix:
		return time.Unix(int64(r.Float()), 0).UTC(), nil
	case TimestampUnixMilli:
		return time.UnixMilli(int64(r.Float())).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp format: %s", format)
	}
}

func renderTemplate(text string, vars map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tmpl, err := template.New("").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}
