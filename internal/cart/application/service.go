package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/storefront/internal/cart/domain"
	invdomain "github.com/dmehra2102/storefront/internal/inventory/domain"
)

const enrichConcurrency = 8

type Service struct {
	log     *slog.Logger
	repo    Repository
	catalog ProductReader
}

func NewService(log *slog.Logger, repo Repository, catalog ProductReader) *Service {
	return &Service{log: log, repo: repo, catalog: catalog}
}

// GetOrCreate returns the user's cart, creating an empty one on first access.
// When two first requests race, the loser re-reads the winner's cart.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (domain.Cart, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Cart{}, domain.ErrInvalidUser
	}
	c, err := s.repo.Get(ctx, userID)
	if !errors.Is(err, domain.ErrCartNotFound) {
		return c, err
	}

	c = domain.New(userID)
	err = s.repo.Create(ctx, c)
	if errors.Is(err, domain.ErrCartExists) {
		s.log.Debug("cart creation race lost, re-reading", "user_id", userID)
		return s.repo.Get(ctx, userID)
	}
	if err != nil {
		return domain.Cart{}, err
	}
	return c, nil
}

// UpsertLine sets the quantity of one line.
func (s *Service) UpsertLine(ctx context.Context, userID, productID, sku string, qty int) (domain.Cart, error) {
	if err := domain.ValidateLine(productID, sku, qty); err != nil {
		return domain.Cart{}, err
	}
	return s.mutate(ctx, userID, s.GetOrCreate, func(c *domain.Cart) error {
		return c.SetLine(productID, sku, qty)
	})
}

// RemoveLine drops one line. The cart must exist; an absent line is a no-op.
func (s *Service) RemoveLine(ctx context.Context, userID, productID, sku string) (domain.Cart, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Cart{}, domain.ErrInvalidUser
	}
	return s.mutate(ctx, userID, s.repo.Get, func(c *domain.Cart) error {
		c.RemoveLine(productID, sku)
		return nil
	})
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrInvalidUser
	}
	return s.repo.Clear(ctx, userID)
}

// Items returns the stored lines without creating a cart. A user who never
// had a cart has no items.
func (s *Service) Items(ctx context.Context, userID string) ([]domain.Line, error) {
	c, err := s.repo.Get(ctx, userID)
	if errors.Is(err, domain.ErrCartNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c.Items, nil
}

// mutate applies fn to a fresh read and saves it, re-reading and re-applying
// once if another writer got in between.
func (s *Service) mutate(ctx context.Context, userID string, load func(context.Context, string) (domain.Cart, error), fn func(*domain.Cart) error) (domain.Cart, error) {
	for attempt := 0; ; attempt++ {
		c, err := load(ctx, userID)
		if err != nil {
			return domain.Cart{}, err
		}
		if err := fn(&c); err != nil {
			return domain.Cart{}, err
		}
		saved, err := s.repo.Save(ctx, c)
		if errors.Is(err, domain.ErrStaleCart) && attempt == 0 {
			s.log.Debug("cart write conflict, retrying", "user_id", userID)
			continue
		}
		return saved, err
	}
}

type LineDetail struct {
	Name           string `json:"name"`
	Image          string `json:"image"`
	PriceCents     int64  `json:"priceCents"`
	LineTotalCents int64  `json:"lineTotalCents"`
	AvailableStock int    `json:"availableStock"`
	IsValid        bool   `json:"isValid"`
}

type ViewLine struct {
	domain.Line
	Detail *LineDetail `json:"detail,omitempty"`
}

type View struct {
	UserID        string     `json:"userId"`
	Items         []ViewLine `json:"items"`
	SubtotalCents int64      `json:"subtotalCents,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// View returns the cart, optionally joined against the live catalog. A line
// whose product or SKU is gone is reported with IsValid=false rather than
// failing the whole view.
func (s *Service) View(ctx context.Context, userID string, expand bool) (View, error) {
	c, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return View{}, err
	}

	v := View{UserID: c.UserID, Items: make([]ViewLine, len(c.Items)), UpdatedAt: c.UpdatedAt}
	for i, l := range c.Items {
		v.Items[i] = ViewLine{Line: l}
	}
	if !expand {
		return v, nil
	}

	var g errgroup.Group
	g.SetLimit(enrichConcurrency)
	for i := range v.Items {
		g.Go(func() error {
			v.Items[i].Detail = s.detail(ctx, v.Items[i].Line)
			return nil
		})
	}
	_ = g.Wait()

	for _, it := range v.Items {
		if it.Detail.IsValid {
			v.SubtotalCents += it.Detail.LineTotalCents
		}
	}
	return v, nil
}

func (s *Service) detail(ctx context.Context, l domain.Line) *LineDetail {
	pv, err := s.catalog.FindVariant(ctx, l.ProductID, l.SKU)
	if err != nil {
		if !errors.Is(err, invdomain.ErrProductNotFound) && !errors.Is(err, invdomain.ErrVariantNotFound) {
			s.log.Warn("cart line enrichment failed", "product_id", l.ProductID, "sku", l.SKU, "err", err)
		}
		return &LineDetail{IsValid: false}
	}
	return &LineDetail{
		Name:           pv.ProductName,
		Image:          pv.ImageURL,
		PriceCents:     pv.Variant.PriceCents,
		LineTotalCents: pv.Variant.PriceCents * int64(l.Quantity),
		AvailableStock: pv.Variant.Stock,
		IsValid:        pv.ProductStatus == invdomain.ProductActive,
	}
}
