package grpcapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/HatiCode/arimacast/cmd/forecaster/metrics"
	"github.com/HatiCode/arimacast/cmd/forecaster/service"
	"github.com/HatiCode/arimacast/pkg/arima"
	"github.com/HatiCode/arimacast/pkg/storage"
)

type testServer struct {
	server  *Server
	conn    *grpc.ClientConn
	metrics *metrics.Metrics
	store   *storage.MemoryStore
}

func startServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())
	store := storage.NewMemoryStore()
	svc := service.New(arima.DefaultConfig(), store, m, 10*time.Second, logger)

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(NewForecaster(svc, m, logger), nil, logger)
	go func() {
		_ = srv.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient() error = %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		srv.Stop(time.Second)
	})

	return &testServer{server: srv, conn: conn, metrics: m, store: store}
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("structpb.NewStruct() error = %v", err)
	}
	return s
}

func ramp(n int) []any {
	s := make([]any, n)
	for i := range s {
		s[i] = float64(i + 1)
	}
	return s
}

func TestForecast(t *testing.T) {
	ts := startServer(t)
	client := NewClient(ts.conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := client.Forecast(ctx, mustStruct(t, map[string]any{
		"name":    "ramp",
		"series":  ramp(20),
		"horizon": 3,
		"order":   map[string]any{"d": 1},
	}))
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}

	values := out.GetFields()["forecast"].GetListValue().GetValues()
	if len(values) != 3 {
		t.Fatalf("len(forecast) = %d, want 3", len(values))
	}
	for i, want := range []float64{21, 22, 23} {
		if got := values[i].GetNumberValue(); math.Abs(got-want) > 1e-9 {
			t.Errorf("forecast[%d] = %v, want %v", i, got, want)
		}
	}
	if got := out.GetFields()["name"].GetStringValue(); got != "ramp" {
		t.Errorf("name = %q, want ramp", got)
	}
	if got := out.GetFields()["order"].GetStructValue().GetFields()["d"].GetNumberValue(); got != 1 {
		t.Errorf("order.d = %v, want 1", got)
	}

	if _, found, _ := ts.store.GetLatest(ctx, "ramp"); !found {
		t.Error("named forecast was not stored")
	}
	if got := testutil.ToFloat64(ts.metrics.RequestsTotal.WithLabelValues("grpc", "OK")); got != 1 {
		t.Errorf("requests{grpc,OK} = %v, want 1", got)
	}
}

func TestForecast_Errors(t *testing.T) {
	ts := startServer(t)
	client := NewClient(ts.conn)

	tests := []struct {
		name string
		req  map[string]any
		want codes.Code
	}{
		{"empty series", map[string]any{"series": []any{}, "horizon": 1}, codes.InvalidArgument},
		{"missing horizon", map[string]any{"series": ramp(5)}, codes.InvalidArgument},
		{"horizon above limit", map[string]any{"series": ramp(10), "horizon": 1e18, "order": map[string]any{"d": 1}}, codes.InvalidArgument},
		{"insufficient data", map[string]any{"series": ramp(3), "horizon": 2, "order": map[string]any{"p": 2, "d": 1}}, codes.InvalidArgument},
		{"no valid model", map[string]any{"series": ramp(3), "horizon": 2}, codes.FailedPrecondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_, err := client.Forecast(ctx, mustStruct(t, tt.req))
			if got := status.Code(err); got != tt.want {
				t.Errorf("code = %v, want %v (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	ts := startServer(t)
	health := grpc_health_v1.NewHealthClient(ts.conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, svc := range []string{"", ServiceName} {
		resp, err := health.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: svc})
		if err != nil {
			t.Fatalf("Check(%q) error = %v", svc, err)
		}
		if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
			t.Errorf("Check(%q) = %v, want SERVING", svc, resp.GetStatus())
		}
	}

	ts.server.health.Shutdown()

	resp, err := health.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check() after shutdown error = %v", err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Errorf("Check() after shutdown = %v, want NOT_SERVING", resp.GetStatus())
	}
}

func TestCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{service.ErrInvalidRequest, codes.InvalidArgument},
		{arima.ErrInsufficientData, codes.InvalidArgument},
		{arima.ErrNoValidModel, codes.FailedPrecondition},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{context.Canceled, codes.Canceled},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		if got := CodeFor(tt.err); got != tt.want {
			t.Errorf("CodeFor(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}

	if ToStatus(nil) != nil {
		t.Error("ToStatus(nil) != nil")
	}
	if msg := status.Convert(ToStatus(errors.New("secret detail"))).Message(); msg != "internal error" {
		t.Errorf("internal message = %q, want it hidden", msg)
	}
}

func TestRecoveryInterceptor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	intercept := recoveryInterceptor(logger)

	_, err := intercept(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: ForecastMethod},
		func(context.Context, any) (any, error) { panic("boom") })

	if status.Code(err) != codes.Internal {
		t.Errorf("code = %v, want Internal", status.Code(err))
	}
}
