package grpcapi

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/HatiCode/arimacast/cmd/forecaster/metrics"
	"github.com/HatiCode/arimacast/cmd/forecaster/service"
)

// Forecaster implements ForecasterServer on top of a service.Service.
type Forecaster struct {
	svc     *service.Service
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewForecaster creates the gRPC handler.
func NewForecaster(svc *service.Service, m *metrics.Metrics, logger *slog.Logger) *Forecaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forecaster{svc: svc, metrics: m, logger: logger}
}

// Forecast decodes the request struct, runs the forecast and encodes the
// response the same way the HTTP API does.
func (f *Forecaster) Forecast(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	out, err := f.forecast(ctx, in)
	f.metrics.RecordRequest("grpc", status.Code(err).String())
	return out, err
}

func (f *Forecaster) forecast(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	body, err := protojson.Marshal(in)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "encode request: %v", err)
	}
	req, err := service.ParseRequest(body, f.svc.MaxHorizon())
	if err != nil {
		return nil, ToStatus(err)
	}
	resp, err := f.svc.Forecast(ctx, req)
	if err != nil {
		if CodeFor(err) == codes.Internal {
			f.logger.Error("grpc forecast failed", "error", err)
		}
		return nil, ToStatus(err)
	}
	return toStruct(resp)
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// CodeFor maps a forecast error to a gRPC status code.
func CodeFor(err error) codes.Code {
	switch service.Classify(err) {
	case service.ClassInvalid:
		return codes.InvalidArgument
	case service.ClassUnprocessable:
		return codes.FailedPrecondition
	case service.ClassTimeout:
		return codes.DeadlineExceeded
	case service.ClassCanceled:
		return codes.Canceled
	default:
		return codes.Internal
	}
}

// ToStatus converts err to a gRPC status error.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	code := CodeFor(err)
	if code == codes.Internal {
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}

// Server is a gRPC server exposing the Forecaster and health services.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

// NewServer registers srv, the health service and reflection. A non-nil
// tlsCfg enables TLS.
func NewServer(srv ForecasterServer, tlsCfg *tls.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(recoveryInterceptor(logger), loggingInterceptor(logger)),
	}
	if tlsCfg != nil {
		opts = append(opts, grpc.Creds(credentials.NewTLS(tlsCfg)))
	}

	gs := grpc.NewServer(opts...)
	RegisterForecasterServer(gs, srv)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	reflection.Register(gs)

	return &Server{grpc: gs, health: hs, logger: logger}
}

// Serve accepts connections on ln until Stop.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("grpc server listening", "address", ln.Addr().String())
	return s.grpc.Serve(ln)
}

// Stop reports NOT_SERVING, then drains in-flight calls for up to timeout
// before closing all connections.
func (s *Server) Stop(timeout time.Duration) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.logger.Warn("grpc graceful stop timed out, forcing", "timeout", timeout)
		s.grpc.Stop()
	}
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("gRPC request",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

func recoveryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", "error", fmt.Sprint(r), "method", info.FullMethod)
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
