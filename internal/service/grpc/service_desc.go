package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName — полное имя gRPC-сервиса.
const ServiceName = "oms.v1.OrdersService"

// Имена методов сервиса.
const (
	MethodCreateCustomer = "CreateCustomer"
	MethodCreateProduct  = "CreateProduct"
	MethodCreateOrder    = "CreateOrder"
	MethodGetOrder       = "GetOrder"
)

// OrdersServer — серверная сторона oms.v1.OrdersService. Сообщения передаются
// как google.protobuf.Struct с теми же полями, что и JSON REST API.
type OrdersServer interface {
	CreateCustomer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateProduct(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(OrdersServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OrdersServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(OrdersServer), ctx, req.(*structpb.Struct))
		})
	}
}

// FullMethod возвращает путь метода вида /oms.v1.OrdersService/CreateOrder.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// ServiceDesc описывает oms.v1.OrdersService для grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrdersServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodCreateCustomer, Handler: unaryHandler(MethodCreateCustomer, OrdersServer.CreateCustomer)},
		{MethodName: MethodCreateProduct, Handler: unaryHandler(MethodCreateProduct, OrdersServer.CreateProduct)},
		{MethodName: MethodCreateOrder, Handler: unaryHandler(MethodCreateOrder, OrdersServer.CreateOrder)},
		{MethodName: MethodGetOrder, Handler: unaryHandler(MethodGetOrder, OrdersServer.GetOrder)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "oms/v1/orders.proto",
}

// RegisterOrdersServer регистрирует реализацию на сервере.
func RegisterOrdersServer(s grpc.ServiceRegistrar, srv OrdersServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// OrdersClient — клиент oms.v1.OrdersService.
type OrdersClient struct {
	cc grpc.ClientConnInterface
}

// NewOrdersClient создаёт клиент поверх подключения.
func NewOrdersClient(cc grpc.ClientConnInterface) *OrdersClient {
	return &OrdersClient{cc: cc}
}

func (c *OrdersClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrdersClient) CreateCustomer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodCreateCustomer, in, opts...)
}

func (c *OrdersClient) CreateProduct(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodCreateProduct, in, opts...)
}

func (c *OrdersClient) CreateOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodCreateOrder, in, opts...)
}

func (c *OrdersClient) GetOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetOrder, in, opts...)
}
