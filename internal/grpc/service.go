package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the annotation service
const ServiceName = "hitchart.v1.AnnotationService"

// AnnotationServiceServer is the server API of the annotation service. Every
// message is a google.protobuf.Struct carrying the JSON shape of the HTTP API.
type AnnotationServiceServer interface {
	StartSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Select(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ObserveClick(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Clear(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportRows(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportCSV(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTeams(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPlayers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StreamEvents(*structpb.Struct, grpc.ServerStream) error
}

type unaryMethod func(AnnotationServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(AnnotationServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

func streamEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(AnnotationServiceServer).StreamEvents(in, stream)
}

// ServiceDesc describes the annotation service for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnnotationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("StartSession", AnnotationServiceServer.StartSession),
		unary("GetSession", AnnotationServiceServer.GetSession),
		unary("Select", AnnotationServiceServer.Select),
		unary("ObserveClick", AnnotationServiceServer.ObserveClick),
		unary("DeleteRecord", AnnotationServiceServer.DeleteRecord),
		unary("Clear", AnnotationServiceServer.Clear),
		unary("ExportRows", AnnotationServiceServer.ExportRows),
		unary("ExportCSV", AnnotationServiceServer.ExportCSV),
		unary("ListTeams", AnnotationServiceServer.ListTeams),
		unary("ListPlayers", AnnotationServiceServer.ListPlayers),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamEvents",
			Handler:       streamEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "hitchart/v1/annotation",
}

// Method returns the full method name used by clients for a service method
func Method(name string) string {
	return "/" + ServiceName + "/" + name
}
