package grpcserver

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "canteen.v1.CanteenService"

// Messages are google.protobuf.Struct documents whose fields follow the JSON shape of the
// request and model types below.
type CanteenServiceServer interface {
	PlaceOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	TransitionOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListView(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterCanteenServiceServer(s grpc.ServiceRegistrar, srv CanteenServiceServer) {
	s.RegisterService(&CanteenServiceDesc, srv)
}

type unaryCall func(CanteenServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CanteenServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(CanteenServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// CanteenServiceDesc describes the service for grpc.Server.RegisterService.
var CanteenServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CanteenServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("PlaceOrder", CanteenServiceServer.PlaceOrder),
		unary("TransitionOrder", CanteenServiceServer.TransitionOrder),
		unary("ListView", CanteenServiceServer.ListView),
		unary("GetOrder", CanteenServiceServer.GetOrder),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "canteen/v1/canteen.proto",
}

// decodeStruct copies a Struct message into v through its JSON form.
func decodeStruct(in *structpb.Struct, v any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	b, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// encodeStruct renders v as a Struct message. v must marshal to a JSON object.
func encodeStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return out, nil
}
