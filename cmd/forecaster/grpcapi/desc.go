// Package grpcapi serves forecast requests over gRPC.
//
// The Forecaster service has a single unary method whose request and
// response are google.protobuf.Struct values shaped like the HTTP API's JSON
// bodies, so no generated code is needed:
//
//	grpcurl -plaintext -d '{"series": [1,2,3,4,5,6,7,8,9,10], "horizon": 3}' \
//	  localhost:9091 arimacast.v1.Forecaster/Forecast
package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "arimacast.v1.Forecaster"
	// ForecastMethod is the full method name of Forecast.
	ForecastMethod = "/" + ServiceName + "/Forecast"
)

// ForecasterServer is the server API of the Forecaster service.
type ForecasterServer interface {
	Forecast(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the Forecaster service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ForecasterServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Forecast", Handler: forecastHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "arimacast/v1/forecaster.proto",
}

// RegisterForecasterServer registers srv on s.
func RegisterForecasterServer(s grpc.ServiceRegistrar, srv ForecasterServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func forecastHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ForecasterServer).Forecast(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ForecastMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ForecasterServer).Forecast(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls the Forecaster service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Forecast calls Forecaster/Forecast.
func (c *Client) Forecast(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ForecastMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
