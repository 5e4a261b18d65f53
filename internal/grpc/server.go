package grpcserver

import (
	"context"
	"log/slog"
	"net"

	"karavanCanteen/internal/apperr"
	"karavanCanteen/internal/auth"
	"karavanCanteen/internal/cart"
	"karavanCanteen/internal/config"
	"karavanCanteen/internal/telemetry"
	"karavanCanteen/internal/visibility"
	"karavanCanteen/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// OrderService is the lifecycle surface the server drives; *lifecycle.Engine implements it.
type OrderService interface {
	cart.OrderPlacer
	Transition(ctx context.Context, orderID int64, target models.OrderStatus, actor models.Actor) (*models.Order, error)
	Get(ctx context.Context, orderID int64, actor models.Actor) (*models.Order, error)
}

// Server bundles dependencies and implements CanteenServiceServer.
type Server struct {
	Orders     OrderService
	Dashboards dashboardLoader
	Menu       cart.Catalog
}

type dashboardLoader interface {
	Load(ctx context.Context, view visibility.View, actor models.Actor) ([]models.Order, error)
}

var _ CanteenServiceServer = (*Server)(nil)

// PlaceOrder checks out the requested lines for the caller.
func (s *Server) PlaceOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	a, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	var req PlaceOrderRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, toStatus(apperr.Validation("malformed request: %v", err))
	}
	c, err := cart.Build(ctx, s.Menu, req.Items)
	if err != nil {
		return nil, toStatus(err)
	}
	o, err := c.Checkout(ctx, s.Orders, a.UserID, cart.Details{
		DeliveryLocation:    req.DeliveryLocation,
		SpecialInstructions: req.SpecialInstructions,
		PaymentMethod:       req.PaymentMethod,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeStruct(orderResponse{Order: o})
}

// TransitionOrder moves an order to the requested status.
func (s *Server) TransitionOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	a, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	var req TransitionOrderRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, toStatus(apperr.Validation("malformed request: %v", err))
	}
	o, err := s.Orders.Transition(ctx, req.OrderID, req.Status, a)
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeStruct(orderResponse{Order: o})
}

// ListView returns one dashboard view as seen by the caller.
func (s *Server) ListView(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	a, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	var req ListViewRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, toStatus(apperr.Validation("malformed request: %v", err))
	}
	orders, err := s.Dashboards.Load(ctx, req.View, a)
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeStruct(ListViewResponse{View: req.View, Orders: orders})
}

func (s *Server) GetOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	a, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	var req GetOrderRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, toStatus(apperr.Validation("malformed request: %v", err))
	}
	o, err := s.Orders.Get(ctx, req.OrderID, a)
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeStruct(orderResponse{Order: o})
}

// NewGRPCServer builds a grpc.Server with request ids, call logging and bearer auth, and
// registers the canteen and health services.
func NewGRPCServer(secret string, users auth.UserLookup, logger *slog.Logger, s *Server) *grpc.Server {
	if logger == nil {
		logger = telemetry.Discard()
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RequestIDInterceptor(),
		LoggingInterceptor(logger.With("component", "grpc")),
		auth.NewUnaryAuthInterceptor(secret, users, healthCheckMethod),
	))
	RegisterCanteenServiceServer(srv, s)
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

// StartGRPC starts the gRPC server on the configured address and returns a shutdown function.
func StartGRPC(cfg *config.Config, s *Server, users auth.UserLookup, logger *slog.Logger) (func(context.Context) error, error) {
	if cfg == nil {
		panic("config is required")
	}

	addr := cfg.GRPC.Address
	if addr == "" {
		addr = ":50051"
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	// Plaintext; terminate TLS in front of the service.
	srv := NewGRPCServer(cfg.Auth.JWTSecret, users, logger, s)

	go func() { _ = srv.Serve(lis) }()

	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() { srv.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return ctx.Err()
		}
	}, nil
}
