package store

import (
	"context"
	"errors"

	"product-service/internal/domain"
	"product-service/internal/query"
)

// Predefined errors for store operations
var (
	ErrNotFound          = errors.New("store: record not found")
	ErrReferenceNotFound = errors.New("store: referenced record does not exist")
	ErrInvalidPage       = errors.New("store: page and page size must be positive")
)

// Store is the generic entity store the catalog core reads and writes
// through. Implementations must treat query.Spec field names as logical
// names and reject ones they cannot map.
type Store[T any] interface {
	// Insert persists entity, then refreshes it with the stored values
	// (id, timestamps) and returns the new id.
	Insert(ctx context.Context, entity *T) (int64, error)
	GetByID(ctx context.Context, id int64) (*T, error)
	// Update overwrites the mutable columns of the row with entity's id and
	// refreshes entity with the stored row. Returns ErrNotFound if no row
	// has that id.
	Update(ctx context.Context, entity *T) error
	DeleteByID(ctx context.Context, id int64) error
	List(ctx context.Context, spec query.Spec) ([]T, error)
	// ListPage returns one 1-based page of the rows matching spec.Where in
	// spec.OrderBy order. spec.Limit is ignored.
	ListPage(ctx context.Context, spec query.Spec, page, pageSize int) (domain.Page[T], error)
	Count(ctx context.Context, where query.Expr) (int64, error)
}

// ProductStorer, MediaStorer and FeedbackStorer name the three stores the
// service is wired with.
type (
	ProductStorer  = Store[domain.Product]
	MediaStorer    = Store[domain.ProductMedia]
	FeedbackStorer = Store[domain.ProductFeedback]
)
