package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const matrixTwoSeries = `{
  "status": "success",
  "data": {
    "resultType": "matrix",
    "result": [
      {"metric": {"pod": "a"}, "values": [[1704067260, "2"], [1704067200, "1"]]},
      {"metric": {"pod": "b"}, "values": [[1704067200, "10"], [1704067260, "20.5"]]}
    ]
  }
}`

func TestPrometheusAdapter_Collect(t *testing.T) {
	var gotQuery, gotStep string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/query_range" {
			t.Errorf("path = %s, want /api/v1/query_range", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("query")
		gotStep = r.URL.Query().Get("step")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, matrixTwoSeries)
	}))
	defer server.Close()

	a := &PrometheusAdapter{ServerURL: server.URL, Query: "sum(rate(http_requests_total[1m]))", StepSeconds: 60}
	df, err := a.Collect(context.Background(), 3600)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if gotQuery != a.Query || gotStep != "60" {
		t.Errorf("query=%q step=%q", gotQuery, gotStep)
	}

	values, err := df.Values()
	if err != nil {
		t.Fatalf("Values() error = %v", err)
	}
	want := []float64{11, 22.5}
	if len(values) != len(want) {
		t.Fatalf("Values() = %v, want %v", values, want)
	}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("Values()[%d] = %v, want %v", i, values[i], want[i])
		}
	}
	if df.Rows[0]["ts"] != "2024-01-01T00:00:00Z" {
		t.Errorf("first ts = %v, want 2024-01-01T00:00:00Z", df.Rows[0]["ts"])
	}
}

func TestVictoriaMetricsAdapter_Collect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("step") != "60" {
			t.Errorf("step = %s, want default 60", r.URL.Query().Get("step"))
		}
		fmt.Fprint(w, `{"status":"success","data":{"resultType":"matrix","result":[{"metric":{},"values":[[1704067200,"7"]]}]}}`)
	}))
	defer server.Close()

	a := &VictoriaMetricsAdapter{ServerURL: server.URL, Query: "queue_depth"}
	df, err := a.Collect(context.Background(), 600)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(df.Rows) != 1 || df.Rows[0]["value"] != 7.0 {
		t.Errorf("rows = %v", df.Rows)
	}
}

func TestQueryRange_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "http status", status: http.StatusBadGateway, body: "", wantErr: "status 502"},
		{name: "invalid json", status: http.StatusOK, body: "{", wantErr: "not valid JSON"},
		{name: "query error", status: http.StatusOK, body: `{"status":"error","error":"parse error"}`, wantErr: "parse error"},
		{name: "bad pair", status: http.StatusOK, body: `{"status":"success","data":{"result":[{"values":[[1]]}]}}`, wantErr: "pair length"},
		{name: "bad value", status: http.StatusOK, body: `{"status":"success","data":{"result":[{"values":[[1,"x"]]}]}}`, wantErr: "parse value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			a := &PrometheusAdapter{ServerURL: server.URL, Query: "up"}
			_, err := a.Collect(context.Background(), 60)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Collect() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	if _, err := (&PrometheusAdapter{}).Collect(context.Background(), 60); err == nil {
		t.Error("expected error without ServerURL and Query")
	}
}

func TestQueryRange_EmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"success","data":{"resultType":"matrix","result":[]}}`)
	}))
	defer server.Close()

	df, err := (&PrometheusAdapter{ServerURL: server.URL, Query: "absent"}).Collect(context.Background(), 60)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(df.Rows) != 0 {
		t.Errorf("rows = %v, want none", df.Rows)
	}
}
