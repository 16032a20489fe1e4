package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Service and method names of the detector gRPC API
const (
	ServiceName = "langdetect.v1.LanguageDetector"

	IdentifyMethod    = "/" + ServiceName + "/Identify"
	IdentifyAllMethod = "/" + ServiceName + "/IdentifyAll"
	LanguagesMethod   = "/" + ServiceName + "/Languages"
)

// LanguageDetectorServer is the server API of langdetect.v1.LanguageDetector.
//
// Messages are protobuf well-known types: query text and the winning label
// travel as StringValue, rankings and language listings as Struct.
type LanguageDetectorServer interface {
	Identify(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	IdentifyAll(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Languages(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterLanguageDetectorServer registers srv with s
func RegisterLanguageDetectorServer(s grpc.ServiceRegistrar, srv LanguageDetectorServer) {
	s.RegisterService(&LanguageDetectorServiceDesc, srv)
}

// LanguageDetectorServiceDesc describes langdetect.v1.LanguageDetector
var LanguageDetectorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LanguageDetectorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Identify", Handler: identifyHandler},
		{MethodName: "IdentifyAll", Handler: identifyAllHandler},
		{MethodName: "Languages", Handler: languagesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "langdetect/v1/detector.proto",
}

func identifyHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LanguageDetectorServer).Identify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: IdentifyMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LanguageDetectorServer).Identify(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func identifyAllHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LanguageDetectorServer).IdentifyAll(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: IdentifyAllMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LanguageDetectorServer).IdentifyAll(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func languagesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LanguageDetectorServer).Languages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LanguagesMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LanguageDetectorServer).Languages(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// LanguageDetectorClient calls langdetect.v1.LanguageDetector
type LanguageDetectorClient struct {
	cc grpc.ClientConnInterface
}

// NewLanguageDetectorClient creates a client over cc
func NewLanguageDetectorClient(cc grpc.ClientConnInterface) *LanguageDetectorClient {
	return &LanguageDetectorClient{cc: cc}
}

// Identify returns the closest language to text
func (c *LanguageDetectorClient) Identify(ctx context.Context, text string, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, IdentifyMethod, wrapperspb.String(text), out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// IdentifyAll returns the full ranking for text
func (c *LanguageDetectorClient) IdentifyAll(ctx context.Context, text string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, IdentifyAllMethod, wrapperspb.String(text), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Languages lists the trained languages
func (c *LanguageDetectorClient) Languages(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, LanguagesMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
