// Package syncapi declares the dirsync.v1.UserSync gRPC service. Requests and
// responses are google.protobuf.Struct documents, so the service needs no
// generated message types.
package syncapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "dirsync.v1.UserSync"

// Full method names.
const (
	MethodSyncUser       = "/" + ServiceName + "/SyncUser"
	MethodBatchSyncUsers = "/" + ServiceName + "/BatchSyncUsers"
	MethodSyncDepartment = "/" + ServiceName + "/SyncDepartment"
	MethodGetUser        = "/" + ServiceName + "/GetUser"
	MethodCacheStats     = "/" + ServiceName + "/CacheStats"
	MethodFlushCache     = "/" + ServiceName + "/FlushCache"
)

// UserSyncServer is the server API of the UserSync service.
type UserSyncServer interface {
	SyncUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BatchSyncUsers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SyncDepartment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CacheStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FlushCache(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type call func(UserSyncServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(fullMethod string, fn call) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(srv.(UserSyncServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return fn(srv.(UserSyncServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes the UserSync service for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UserSyncServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SyncUser", Handler: unary(MethodSyncUser, UserSyncServer.SyncUser)},
		{MethodName: "BatchSyncUsers", Handler: unary(MethodBatchSyncUsers, UserSyncServer.BatchSyncUsers)},
		{MethodName: "SyncDepartment", Handler: unary(MethodSyncDepartment, UserSyncServer.SyncDepartment)},
		{MethodName: "GetUser", Handler: unary(MethodGetUser, UserSyncServer.GetUser)},
		{MethodName: "CacheStats", Handler: unary(MethodCacheStats, UserSyncServer.CacheStats)},
		{MethodName: "FlushCache", Handler: unary(MethodFlushCache, UserSyncServer.FlushCache)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dirsync/v1/user_sync.proto",
}

// RegisterUserSyncServer registers srv on s.
func RegisterUserSyncServer(s grpc.ServiceRegistrar, srv UserSyncServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls the UserSync service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a UserSync client on cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Invoke calls method with in and returns the response document.
func (c *Client) Invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
