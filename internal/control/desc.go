// Package control serves the agent's local control plane: a gRPC service
// for the CLI and a REST + websocket surface for the web UI, both on one
// listener.
//
// The gRPC service carries well-known protobuf types only, so no generated
// code is needed:
//
//	service pulse.v1.Control {
//	  rpc Trigger(google.protobuf.Empty)        returns (google.protobuf.BoolValue);
//	  rpc Upload(google.protobuf.StringValue)   returns (google.protobuf.Struct);  // upload.Outcome
//	  rpc Stats(google.protobuf.Empty)          returns (google.protobuf.Struct);  // metrics.Stats
//	  rpc Clipboard(google.protobuf.Empty)      returns (google.protobuf.Struct);  // clip.Preview
//	  rpc Events(google.protobuf.Empty)         returns (stream google.protobuf.Struct); // events.Event
//	}
package control

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "pulse.v1.Control"

const (
	methodTrigger   = "/" + ServiceName + "/Trigger"
	methodUpload    = "/" + ServiceName + "/Upload"
	methodStats     = "/" + ServiceName + "/Stats"
	methodClipboard = "/" + ServiceName + "/Clipboard"
	methodEvents    = "/" + ServiceName + "/Events"
)

// ControlServer is the server API for the Control service.
type ControlServer interface {
	Trigger(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error)
	Upload(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Stats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Clipboard(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Events(*emptypb.Empty, EventsStream) error
}

// EventsStream is the server side of the Events stream.
type EventsStream interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type eventsStream struct {
	grpc.ServerStream
}

func (s *eventsStream) Send(m *structpb.Struct) error { return s.ServerStream.SendMsg(m) }

// ServiceDesc describes the Control service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Trigger", Handler: triggerHandler},
		{MethodName: "Upload", Handler: uploadHandler},
		{MethodName: "Stats", Handler: statsHandler},
		{MethodName: "Clipboard", Handler: clipboardHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Events", Handler: eventsHandler, ServerStreams: true},
	},
	Metadata: "pulse/v1/control.proto",
}

// RegisterControlServer registers srv on s.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func triggerHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).Trigger(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodTrigger}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).Trigger(ctx, req.(*emptypb.Empty))
	})
}

func uploadHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).Upload(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodUpload}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).Upload(ctx, req.(*wrapperspb.StringValue))
	})
}

func statsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).Stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodStats}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).Stats(ctx, req.(*emptypb.Empty))
	})
}

func clipboardHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).Clipboard(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodClipboard}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).Clipboard(ctx, req.(*emptypb.Empty))
	})
}

func eventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ControlServer).Events(in, &eventsStream{stream})
}

// toStruct converts any JSON-serialisable value to a Struct through its JSON
// form, so field names on the gRPC side match the REST side.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return s, nil
}

// fromStruct is the inverse of toStruct.
func fromStruct(s *structpb.Struct, out any) error {
	b, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("decode %T: %w", out, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %T: %w", out, err)
	}
	return nil
}
