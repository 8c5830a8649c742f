package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/dmehra2102/storefront/internal/inventory/application"
	"github.com/dmehra2102/storefront/internal/inventory/domain"
	"github.com/dmehra2102/storefront/internal/inventory/infrastructure/memory"
	"github.com/dmehra2102/storefront/pkg/logging"
)

func startServer(t *testing.T) (*Client, *grpc.ClientConn, domain.Product) {
	t.Helper()
	repo := memory.NewRepository()
	cat := application.NewCatalog(repo)
	p, err := cat.CreateProduct(context.Background(), application.NewProductInput{
		Name:     "Laptop",
		Slug:     "laptop",
		Images:   []string{"laptop.png"},
		Variants: []domain.Variant{{SKU: "LT-16", PriceCents: 150000, Stock: 4}},
	})
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	Register(gs, NewServer(logging.Discard(), cat))
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	dialer := grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
	client, err := NewClient(logging.Discard(), "passthrough:///bufnet", dialer)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, client.conn, p
}

func TestCatalogRPC_FindVariant(t *testing.T) {
	client, _, p := startServer(t)

	v, err := client.FindVariant(context.Background(), p.ID, "LT-16")
	require.NoError(t, err)
	assert.Equal(t, "Laptop", v.ProductName)
	assert.Equal(t, "laptop.png", v.ImageURL)
	assert.Equal(t, 4, v.Variant.Stock)
	assert.Equal(t, int64(150000), v.Variant.PriceCents)
}

func TestCatalogRPC_NotFoundMapsBack(t *testing.T) {
	client, _, p := startServer(t)

	_, err := client.FindVariant(context.Background(), p.ID, "NOPE")
	assert.ErrorIs(t, err, domain.ErrVariantNotFound)

	_, err = client.FindVariant(context.Background(), "00000000-0000-0000-0000-000000000000", "LT-16")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestCatalogRPC_Health(t *testing.T) {
	_, conn, _ := startServer(t)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: serviceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
