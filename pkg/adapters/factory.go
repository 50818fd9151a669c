package adapters

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Adapter kinds accepted by New.
const (
	KindPrometheus      = "prometheus"
	KindVictoriaMetrics = "victoriametrics"
	KindHTTP            = "http"
)

// New builds an adapter of kind from string settings. Recognised keys:
//
//	prometheus, victoriametrics: url, query
//	http: url, method, headers (JSON object), body, valuePath,
//	      timestampPath, timestampFormat, templateVars (JSON object)
func New(kind string, config map[string]string, stepSeconds int) (Adapter, error) {
	return NewWithClient(kind, config, stepSeconds, nil)
}

// NewWithClient is New with an HTTP client, typically one carrying mTLS
// settings. A nil client selects each adapter's default.
func NewWithClient(kind string, config map[string]string, stepSeconds int, client *http.Client) (Adapter, error) {
	switch kind {
	case KindPrometheus:
		if config["query"] == "" {
			return nil, fmt.Errorf("prometheus adapter requires 'query' config")
		}
		return &PrometheusAdapter{
			ServerURL:   withDefault(config["url"], "http://localhost:9090"),
			Query:       config["query"],
			StepSeconds: stepSeconds,
			HTTPClient:  client,
		}, nil
	case KindVictoriaMetrics:
		if config["query"] == "" {
			return nil, fmt.Errorf("victoriametrics adapter requires 'query' config")
		}
		return &VictoriaMetricsAdapter{
			ServerURL:   withDefault(config["url"], "http://localhost:8428"),
			Query:       config["query"],
			StepSeconds: stepSeconds,
			HTTPClient:  client,
		}, nil
	case KindHTTP:
		return newHTTP(config, stepSeconds, client)
	default:
		return nil, fmt.Errorf("unknown adapter kind: %s (must be prometheus, victoriametrics, or http)", kind)
	}
}

func newHTTP(config map[string]string, stepSeconds int, client *http.Client) (Adapter, error) {
	a := &HTTPAdapter{
		URL:             config["url"],
		Method:          withDefault(config["method"], http.MethodGet),
		Body:            config["body"],
		ValuePath:       config["valuePath"],
		TimestampPath:   config["timestampPath"],
		TimestampFormat: withDefault(config["timestampFormat"], TimestampRFC3339),
		StepSeconds:     stepSeconds,
		HTTPClient:      client,
	}
	if raw := config["headers"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &a.Headers); err != nil {
			return nil, fmt.Errorf("invalid 'headers' JSON: %w", err)
		}
	}
	if raw := config["templateVars"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &a.TemplateVars); err != nil {
			return nil, fmt.Errorf("invalid 'templateVars' JSON: %w", err)
		}
	}
	if err := a.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("http adapter: %w", err)
	}
	return a, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
