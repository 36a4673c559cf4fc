package store

import (
	"context"
	"errors"

	"github.com/tinyship/reviewreply/internal/models"
)

// ErrNotFound is returned (wrapped) when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// CommentListFilter specifies filters for listing comments. Zero values are
// ignored.
type CommentListFilter struct {
	Type      models.CommentType
	ProductID int64
	ParentID  int64
	Limit     int
}

// Store defines the persistence interface for reviewreply.
type Store interface {
	// Options
	GetOption(ctx context.Context, name string) (string, error)
	SetOption(ctx context.Context, name, value string) error

	// Products
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context) ([]*models.Product, error)

	// Comments
	CreateComment(ctx context.Context, c *models.Comment) error
	GetComment(ctx context.Context, id int64) (*models.Comment, error)
	ListComments(ctx context.Context, filter CommentListFilter) ([]*models.Comment, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
