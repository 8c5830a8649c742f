package grpc

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/dmehra2102/storefront/internal/inventory/domain"
)

// Client reads the catalog of a remote inventory-service.
type Client struct {
	log  *slog.Logger
	conn *grpc.ClientConn
}

func NewClient(log *slog.Logger, addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{log: log, conn: conn}, nil
}

func (c *Client) FindVariant(ctx context.Context, productID, sku string) (domain.VariantView, error) {
	out := new(FindVariantResponse)
	err := c.conn.Invoke(ctx, findVariantMethod, &FindVariantRequest{ProductID: productID, SKU: sku}, out,
		grpc.CallContentSubtype(codecName))
	if err == nil {
		return out.View, nil
	}

	st := status.Convert(err)
	if st.Code() == codes.NotFound {
		if st.Message() == domain.ErrProductNotFound.Error() {
			return domain.VariantView{}, domain.ErrProductNotFound
		}
		return domain.VariantView{}, domain.ErrVariantNotFound
	}
	return domain.VariantView{}, fmt.Errorf("catalog rpc: %w", err)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
