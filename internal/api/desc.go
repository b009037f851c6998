package api

import (
	"context"
	"fmt"

	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "apurimac.v1.ClientService"

const watchMethod = "Watch"

// ClientServer is the server API of the client service.
type ClientServer interface {
	Watch(*structpb.Struct, grpc.ServerStream) error
}

var watchStreamDesc = grpc.StreamDesc{
	StreamName:    watchMethod,
	ServerStreams: true,
}

// Register adds the client service to srv.
func Register(srv grpc.ServiceRegistrar, s *Service) {
	srv.RegisterService(serviceDesc(s), s)
}

func serviceDesc(s *Service) *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*ClientServer)(nil),
		Streams: []grpc.StreamDesc{{
			StreamName:    watchMethod,
			ServerStreams: true,
			Handler:       watchHandler,
		}},
		Metadata: "apurimac/v1/client.proto",
	}
	for name, fn := range s.methods() {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: name,
			Handler:    unaryHandler(name, fn),
		})
	}
	return desc
}

func unaryHandler(name string, fn unaryFunc) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(_ any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(ctx, in)
		}
		info := &grpc.UnaryServerInfo{FullMethod: fullMethod(name)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return fn(ctx, req.(*structpb.Struct))
		})
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ClientServer).Watch(in, stream)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func invalidRequest(err error) error {
	return grpcstatus.Error(codes.InvalidArgument, fmt.Sprintf("malformed request: %v", err))
}
