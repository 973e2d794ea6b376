package envserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "numgrid.v1.EnvService"

// Full method names
const (
	MethodCreateEnv         = "/" + ServiceName + "/CreateEnv"
	MethodReset             = "/" + ServiceName + "/Reset"
	MethodStep              = "/" + ServiceName + "/Step"
	MethodSeed              = "/" + ServiceName + "/Seed"
	MethodSampleAction      = "/" + ServiceName + "/SampleAction"
	MethodCloseEnv          = "/" + ServiceName + "/CloseEnv"
	MethodStreamExperiences = "/" + ServiceName + "/StreamExperiences"
)

// EnvServiceServer is the server API for the environment service. Every
// message is a google.protobuf.Struct.
type EnvServiceServer interface {
	CreateEnv(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reset(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Step(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Seed(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SampleAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CloseEnv(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StreamExperiences(*structpb.Struct, ExperienceStreamServer) error
}

// ExperienceStreamServer is the server side of StreamExperiences
type ExperienceStreamServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type experienceStreamServer struct {
	grpc.ServerStream
}

func (s *experienceStreamServer) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

// RegisterEnvServiceServer registers srv on s
func RegisterEnvServiceServer(s grpc.ServiceRegistrar, srv EnvServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type unaryMethod func(EnvServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler adapts a unary method to the grpc handler signature
func unaryHandler(fullMethod string, call unaryMethod) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(EnvServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(EnvServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func streamExperiencesHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(EnvServiceServer).StreamExperiences(in, &experienceStreamServer{stream})
}

// ServiceDesc describes the environment service for grpc.Server
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EnvServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateEnv", Handler: unaryHandler(MethodCreateEnv, EnvServiceServer.CreateEnv)},
		{MethodName: "Reset", Handler: unaryHandler(MethodReset, EnvServiceServer.Reset)},
		{MethodName: "Step", Handler: unaryHandler(MethodStep, EnvServiceServer.Step)},
		{MethodName: "Seed", Handler: unaryHandler(MethodSeed, EnvServiceServer.Seed)},
		{MethodName: "SampleAction", Handler: unaryHandler(MethodSampleAction, EnvServiceServer.SampleAction)},
		{MethodName: "CloseEnv", Handler: unaryHandler(MethodCloseEnv, EnvServiceServer.CloseEnv)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamExperiences",
			Handler:       streamExperiencesHandler,
			ServerStreams: true,
		},
	},
	Metadata: "numgrid/v1/env.proto",
}
