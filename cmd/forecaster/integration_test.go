//go:build integration

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/HatiCode/arimacast/cmd/forecaster/config"
	"github.com/HatiCode/arimacast/cmd/forecaster/metrics"
	"github.com/HatiCode/arimacast/cmd/forecaster/router"
	"github.com/HatiCode/arimacast/cmd/forecaster/service"
	"github.com/HatiCode/arimacast/pkg/models"
	"github.com/HatiCode/arimacast/pkg/storage"
)

// seasonalMatrix serves a query_range response with a linear trend and a
// period-4 pattern.
func seasonalMatrix(points int) http.HandlerFunc {
	pattern := []float64{0, 8, 3, -5}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/query_range" {
			http.NotFound(w, r)
			return
		}
		start := time.Now().Add(-time.Duration(points) * time.Minute).Unix()
		values := make([]string, points)
		for i := range points {
			v := 200 + 0.5*float64(i) + pattern[i%len(pattern)]
			values[i] = fmt.Sprintf(`[%d, "%g"]`, start+int64(i*60), v)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"success","data":{"resultType":"matrix","result":[{"metric":{"job":"api"},"values":[%s]}]}}`,
			strings.Join(values, ","))
	}
}

func TestForecastLoopWithRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})
	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}

	prom := httptest.NewServer(seasonalMatrix(96))
	defer prom.Close()

	cfg := &config.Config{
		Storage:       "redis",
		RedisAddr:     strings.TrimPrefix(endpoint, "redis://"),
		RedisTTL:      time.Hour,
		Series:        "checkout",
		Adapter:       "prometheus",
		AdapterConfig: map[string]string{"url": prom.URL, "query": "sum(rate(http_requests_total[1m]))"},
		Step:          time.Minute,
		Horizon:       8 * time.Minute,
		Window:        96 * time.Minute,
		Interval:      time.Minute,
		Model:         config.ModelAuto,
		MaxP:          1,
		MaxD:          1,
		MaxQ:          1,
		MaxSeasonalD:  1,
		Period:        4,
		Workers:       2,
		Confidence:    "0.9",
	}
	engine, err := cfg.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig() error = %v", err)
	}

	store, closeStore, err := newStore(cfg, quietLogger())
	if err != nil {
		t.Fatalf("newStore() error = %v", err)
	}
	defer closeStore()

	m := metrics.New(prometheus.NewRegistry())
	f, err := newForecaster(cfg, engine, store, m, quietLogger())
	if err != nil {
		t.Fatalf("newForecaster() error = %v", err)
	}
	if err := f.Tick(ctx); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	handler := router.SetupRoutes(router.Options{
		Service:      service.New(engine, store, m, 10*time.Second, quietLogger()),
		Store:        store,
		StaleAfter:   time.Minute,
		MaxBodyBytes: 1 << 20,
		Metrics:      m,
		Gatherer:     prometheus.NewRegistry(),
		Logger:       quietLogger(),
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/forecast/current?series=checkout", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200: %s", w.Code, w.Body.String())
	}

	var snap storage.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Values) != 8 || len(snap.Upper) != 8 || len(snap.Lower) != 8 {
		t.Fatalf("snapshot lengths = %d/%d/%d, want 8", len(snap.Values), len(snap.Upper), len(snap.Lower))
	}
	for i, v := range snap.Values {
		if math.IsNaN(v) || snap.Lower[i] > v || v > snap.Upper[i] {
			t.Errorf("step %d: value %v outside [%v, %v]", i, v, snap.Lower[i], snap.Upper[i])
		}
	}
	if snap.Model == "" {
		t.Error("snapshot model not recorded")
	}

	auto, ok := f.model.(*models.AutoModel)
	if !ok {
		t.Fatalf("model = %T, want *models.AutoModel", f.model)
	}
	sel, fallback := auto.Selection()
	if fallback {
		t.Error("grid search fell back on a well-formed seasonal series")
	}
	if sel.Order.Period != 4 {
		t.Errorf("selected period = %d, want 4", sel.Order.Period)
	}
}
