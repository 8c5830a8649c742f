package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/dmehra2102/storefront/pkg/apperr"
)

var (
	ErrNotFound       = apperr.NotFound("category not found")
	ErrParentNotFound = apperr.Validation("parent category does not exist")
	ErrSelfParent     = apperr.Business("category cannot be its own parent")
	ErrCycle          = apperr.Business("new parent would create a cycle")
	ErrTreeTooDeep    = apperr.Business("category tree is too deep")
	ErrHasChildren    = apperr.Business("category has children")
	ErrSlugTaken      = apperr.Conflict("category slug already exists")
	ErrInvalidName    = apperr.Validation("category name is required")
	ErrInvalidSlug    = apperr.Validation("slug must be lowercase letters, digits and dashes")

	// ErrCorruptTree means the stored parent chain already loops. No write
	// through Update can produce one; seeing it means the table was edited
	// out of band.
	ErrCorruptTree = apperr.Business("category tree is corrupt: parent chain repeats")
)

var slugRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	ParentID  *string   `json:"parentId"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" || len(name) > 200 {
		return ErrInvalidName
	}
	return nil
}

func ValidateSlug(slug string) error {
	if len(slug) > 200 || !slugRe.MatchString(slug) {
		return ErrInvalidSlug
	}
	return nil
}

func (c Category) Parent() string {
	if c.ParentID == nil {
		return ""
	}
	return *c.ParentID
}
