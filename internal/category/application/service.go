package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/storefront/internal/category/domain"
)

type Service struct {
	log  *slog.Logger
	repo Repository
}

func NewService(log *slog.Logger, repo Repository) *Service {
	return &Service{log: log, repo: repo}
}

type CreateInput struct {
	Name     string
	Slug     string
	ParentID *string
	IsActive *bool
}

// UpdateInput changes only the fields that are set. ClearParent makes the
// category a root and wins over ParentID.
type UpdateInput struct {
	Name        *string
	Slug        *string
	ParentID    *string
	ClearParent bool
	IsActive    *bool
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	if err := domain.ValidateName(name); err != nil {
		return domain.Category{}, err
	}
	if err := domain.ValidateSlug(in.Slug); err != nil {
		return domain.Category{}, err
	}

	now := time.Now().UTC()
	c := domain.Category{
		ID:        uuid.NewString(),
		Name:      name,
		Slug:      in.Slug,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if in.ParentID != nil && *in.ParentID != "" {
		if _, err := s.Get(ctx, *in.ParentID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Category{}, domain.ErrParentNotFound
			}
			return domain.Category{}, err
		}
		parent := *in.ParentID
		c.ParentID = &parent
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return domain.Category{}, err
	}
	s.log.Info("category created", "category_id", c.ID, "slug", c.Slug)
	return c, nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (domain.Category, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := domain.ValidateName(name); err != nil {
			return domain.Category{}, err
		}
		c.Name = name
	}
	if in.Slug != nil {
		if err := domain.ValidateSlug(*in.Slug); err != nil {
			return domain.Category{}, err
		}
		c.Slug = *in.Slug
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}

	var (
		guard     Guard
		setParent bool
	)
	switch {
	case in.ClearParent:
		c.ParentID = nil
		setParent = true
	case in.ParentID != nil && *in.ParentID != c.Parent():
		candidate := *in.ParentID
		guard = func(ctx context.Context, lookup domain.ParentLookup) error {
			return domain.AssertNoCycle(ctx, lookup, id, candidate)
		}
		c.ParentID = &candidate
		setParent = true
	}
	c.UpdatedAt = time.Now().UTC()

	// c was read without a lock; its parent is only trusted when this call
	// sets it, so a stale copy cannot undo a concurrent re-parent.
	stored, err := s.repo.Update(ctx, c, setParent, guard)
	if err != nil {
		if errors.Is(err, domain.ErrCorruptTree) {
			s.log.Error("category tree corrupt", "category_id", id, "candidate_parent", c.Parent())
		}
		return domain.Category{}, err
	}
	return stored, nil
}

// Remove deletes a leaf category. There is no cascading delete.
func (s *Service) Remove(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	if err := s.repo.DeleteLeaf(ctx, id); err != nil {
		return err
	}
	s.log.Info("category removed", "category_id", id)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Category, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Category{}, domain.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	return s.repo.List(ctx, activeOnly)
}
