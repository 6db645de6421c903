package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName = "kennel.v1.Kennel"

	showMethod  = "/" + ServiceName + "/Show"
	storeMethod = "/" + ServiceName + "/Store"
)

// KennelServer is the RPC surface. Messages are protobuf well-known
// types, so no generated code is needed.
type KennelServer interface {
	Show(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	Store(context.Context, *wrapperspb.StringValue) (*wrapperspb.Int64Value, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*KennelServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Show", Handler: showHandler},
		{MethodName: "Store", Handler: storeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kennel/v1/kennel.proto",
}

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv KennelServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func showHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KennelServer).Show(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: showMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KennelServer).Show(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func storeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KennelServer).Store(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: storeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KennelServer).Store(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// -------------------- Client --------------------

type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Show returns the kennel listing.
func (c *Client) Show(ctx context.Context) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, showMethod, &emptypb.Empty{}, out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Store writes one "breed,age,flag" line and returns the bytes accepted.
func (c *Client) Store(ctx context.Context, line string) (int64, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, storeMethod, wrapperspb.String(line), out); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}
