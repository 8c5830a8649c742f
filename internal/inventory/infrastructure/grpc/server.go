package grpc

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/dmehra2102/storefront/internal/inventory/domain"
)

const (
	serviceName       = "inventory.v1.Catalog"
	findVariantMethod = "/" + serviceName + "/FindVariant"
)

type FindVariantRequest struct {
	ProductID string `json:"productId"`
	SKU       string `json:"sku"`
}

type FindVariantResponse struct {
	View domain.VariantView `json:"view"`
}

// CatalogServer is the RPC surface of the catalog read side.
type CatalogServer interface {
	FindVariant(ctx context.Context, req *FindVariantRequest) (*FindVariantResponse, error)
}

type CatalogReader interface {
	FindVariant(ctx context.Context, productID, sku string) (domain.VariantView, error)
}

type Server struct {
	log     *slog.Logger
	catalog CatalogReader
	tracer  trace.Tracer
}

func NewServer(log *slog.Logger, catalog CatalogReader) *Server {
	return &Server{log: log, catalog: catalog, tracer: otel.Tracer("inventory-grpc")}
}

func (s *Server) FindVariant(ctx context.Context, req *FindVariantRequest) (*FindVariantResponse, error) {
	ctx, span := s.tracer.Start(ctx, "FindVariant")
	defer span.End()

	v, err := s.catalog.FindVariant(ctx, req.ProductID, req.SKU)
	switch {
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrVariantNotFound):
		return nil, status.Error(codes.NotFound, err.Error())
	case err != nil:
		s.log.Error("find variant failed", "product_id", req.ProductID, "sku", req.SKU, "err", err)
		return nil, status.Error(codes.Internal, "catalog lookup failed")
	}
	return &FindVariantResponse{View: v}, nil
}

func findVariantHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(FindVariantRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).FindVariant(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: findVariantMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).FindVariant(ctx, req.(*FindVariantRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var catalogServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "FindVariant", Handler: findVariantHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "inventory/v1/catalog",
}

// Register mounts the catalog service and a health service reporting SERVING.
func Register(gs *grpc.Server, srv CatalogServer) *health.Server {
	gs.RegisterService(&catalogServiceDesc, srv)
	hs := health.NewServer()
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return hs
}

func Run(addr string, srv CatalogServer) (*grpc.Server, *health.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	gs := grpc.NewServer()
	hs := Register(gs, srv)
	go func() {
		_ = gs.Serve(lis)
	}()
	return gs, hs, nil
}
