package adapters

import (
	"context"
	"net/http"
)

// VictoriaMetricsAdapter runs a range query against the Prometheus-compatible
// API of VictoriaMetrics. Series are summed as in PrometheusAdapter.
type VictoriaMetricsAdapter struct {
	// ServerURL is the VictoriaMetrics base URL, e.g. http://victoria-metrics:8428.
	ServerURL string
	// Query is a MetricsQL or PromQL expression.
	Query       string
	StepSeconds int
	HTTPClient  *http.Client
}

func (v *VictoriaMetricsAdapter) Name() string { return "victoria-metrics" }

// Collect queries the last windowSeconds of v.Query.
func (v *VictoriaMetricsAdapter) Collect(ctx context.Context, windowSeconds int) (*DataFrame, error) {
	return queryRange(ctx, "victoria-metrics", v.ServerURL, v.Query, v.StepSeconds, v.HTTPClient, windowSeconds)
}
