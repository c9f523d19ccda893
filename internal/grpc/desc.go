package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "esportsdraft.v1.DraftService"

// DraftServiceServer is the server API of the draft service. Every unary
// method exchanges google.protobuf.Struct messages carrying the JSON shape
// of the HTTP API.
type DraftServiceServer interface {
	ListRounds(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPool(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Toggle(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Remove(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetBench(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetStar(context.Context, *structpb.Struct) (*structpb.Struct, error)
	OpenSheet(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SheetToggle(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConfirmSheet(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelSheet(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Candidates(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSubmission(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCredits(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StreamEvents(*structpb.Struct, grpc.ServerStream) error
}

var _ DraftServiceServer = (*Server)(nil)

type unaryMethod func(DraftServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, m unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return m(srv.(DraftServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return m(srv.(DraftServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func streamEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DraftServiceServer).StreamEvents(in, stream)
}

// ServiceDesc describes the draft service for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DraftServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListRounds", DraftServiceServer.ListRounds),
		unary("GetPool", DraftServiceServer.GetPool),
		unary("CreateSession", DraftServiceServer.CreateSession),
		unary("GetSession", DraftServiceServer.GetSession),
		unary("Toggle", DraftServiceServer.Toggle),
		unary("Remove", DraftServiceServer.Remove),
		unary("SetBench", DraftServiceServer.SetBench),
		unary("SetStar", DraftServiceServer.SetStar),
		unary("OpenSheet", DraftServiceServer.OpenSheet),
		unary("SheetToggle", DraftServiceServer.SheetToggle),
		unary("ConfirmSheet", DraftServiceServer.ConfirmSheet),
		unary("CancelSheet", DraftServiceServer.CancelSheet),
		unary("Candidates", DraftServiceServer.Candidates),
		unary("Submit", DraftServiceServer.Submit),
		unary("GetSubmission", DraftServiceServer.GetSubmission),
		unary("GetCredits", DraftServiceServer.GetCredits),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamEvents",
			Handler:       streamEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "esportsdraft/v1/draft.proto",
}

// Client is a thin caller for the draft service over an existing connection
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Call invokes a unary method by name
func (c *Client) Call(ctx context.Context, method string, req map[string]any) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// StreamEvents opens the event stream with the given filter fields
func (c *Client) StreamEvents(ctx context.Context, req map[string]any) (grpc.ClientStream, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], "/"+ServiceName+"/StreamEvents")
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return stream, nil
}
