// Package grpcsvc реализует gRPC API oms.v1.OrdersService поверх сервиса заказов.
package grpcsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/service/dto"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
)

// OrderService — операции, которые сервер делегирует доменному сервису.
type OrderService interface {
	CreateCustomer(ctx context.Context, name, email string) (domain.Customer, error)
	CreateProduct(ctx context.Context, name string, price decimal.Decimal, quantity int32) (domain.Product, error)
	CreateOrder(ctx context.Context, req orders.CreateOrderRequest) (domain.Order, error)
	FindOrder(ctx context.Context, id string) (domain.Order, error)
}

// Server реализует OrdersServer.
type Server struct {
	svc    OrderService
	logger *log.Entry
}

// NewServer конструирует gRPC-сервер заказов.
func NewServer(svc OrderService, logger *log.Entry) *Server {
	if logger == nil {
		logger = log.New().WithField("component", "grpc")
	}
	return &Server{svc: svc, logger: logger.WithField("layer", "grpc")}
}

func (s *Server) CreateCustomer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req dto.CreateCustomerRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	customer, err := s.svc.CreateCustomer(ctx, req.Name, req.Email)
	if err != nil {
		return nil, s.toStatus(MethodCreateCustomer, err)
	}
	return encode(dto.FromCustomer(customer))
}

func (s *Server) CreateProduct(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req dto.CreateProductRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	product, err := s.svc.CreateProduct(ctx, req.Name, req.Price, req.Quantity)
	if err != nil {
		return nil, s.toStatus(MethodCreateProduct, err)
	}
	return encode(dto.FromProduct(product))
}

func (s *Server) CreateOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req dto.CreateOrderRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	order, err := s.svc.CreateOrder(ctx, req.ToService())
	if err != nil {
		return nil, s.toStatus(MethodCreateOrder, err)
	}
	return encode(dto.FromOrder(order))
}

func (s *Server) GetOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req dto.GetOrderRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	order, err := s.svc.FindOrder(ctx, req.ID)
	if err != nil {
		return nil, s.toStatus(MethodGetOrder, err)
	}
	return encode(dto.FromOrder(order))
}

// toStatus переводит доменную ошибку в gRPC-статус. Детали внутренних ошибок наружу не уходят.
func (s *Server) toStatus(method string, err error) error {
	code := codeFor(err)
	if code == codes.Internal {
		s.logger.WithError(err).WithField("method", method).Error("request failed")
		return status.Error(codes.Internal, "internal server error")
	}
	return status.Error(code, err.Error())
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, domain.ErrInvalidCustomer),
		errors.Is(err, domain.ErrInvalidProducts),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrInvalidRequest):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrInsufficientStock):
		return codes.FailedPrecondition
	case errors.Is(err, domain.ErrEmailInUse), errors.Is(err, domain.ErrProductNameInUse):
		return codes.AlreadyExists
	case errors.Is(err, domain.ErrOrderNotFound):
		return codes.NotFound
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

func decode(in *structpb.Struct, dst any) error {
	if in == nil {
		return status.Error(codes.InvalidArgument, "request is required")
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	// Поля сообщения задаёт DTO: лишние ключи и дробные количества отклоняются.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}

var _ OrdersServer = (*Server)(nil)
