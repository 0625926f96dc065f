package catalog

import (
	"context"
	"fmt"
	"strings"

	"product-service/internal/domain"
	"product-service/internal/query"
	"product-service/internal/store"
)

// MediaService manages product media rows.
type MediaService struct {
	media    store.MediaStorer
	products store.ProductStorer
}

func NewMediaService(media store.MediaStorer, products store.ProductStorer) *MediaService {
	return &MediaService{media: media, products: products}
}

func validateMedia(m domain.ProductMedia) error {
	if m.ProductID <= 0 {
		return invalidf("productId is required")
	}
	switch m.MediaType {
	case domain.MediaTypeImage, domain.MediaTypeVideo:
	default:
		return invalidf("mediaType must be %q or %q, got %q", domain.MediaTypeImage, domain.MediaTypeVideo, m.MediaType)
	}
	if strings.TrimSpace(m.URL) == "" {
		return invalidf("url is required")
	}
	return nil
}

func (s *MediaService) Create(ctx context.Context, m domain.ProductMedia, actor string) (*domain.ProductMedia, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validateMedia(m); err != nil {
		return nil, err
	}
	if _, err := s.products.GetByID(ctx, m.ProductID); err != nil {
		return nil, translate(err, fmt.Sprintf("product %d", m.ProductID))
	}
	m.ID = 0
	m.CreatedBy, m.UpdatedBy = actor, actor
	if _, err := s.media.Insert(ctx, &m); err != nil {
		return nil, translate(err, "create media")
	}
	return &m, nil
}

func (s *MediaService) Get(ctx context.Context, id int64) (*domain.ProductMedia, error) {
	m, err := s.media.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("media %d", id))
	}
	return m, nil
}

func (s *MediaService) ListAll(ctx context.Context) ([]domain.ProductMedia, error) {
	rows, err := s.media.List(ctx, query.Spec{OrderBy: []query.Order{query.Asc("id")}})
	if err != nil {
		return nil, translate(err, "list media")
	}
	return rows, nil
}

// ListByProduct returns a product's media, oldest first.
func (s *MediaService) ListByProduct(ctx context.Context, productID int64) ([]domain.ProductMedia, error) {
	rows, err := s.media.List(ctx, query.Spec{
		Where:   query.Eq("productId", productID),
		OrderBy: coverOrder,
	})
	if err != nil {
		return nil, translate(err, "list product media")
	}
	return rows, nil
}

func (s *MediaService) Update(ctx context.Context, id int64, m domain.ProductMedia, actor string) (*domain.ProductMedia, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validateMedia(m); err != nil {
		return nil, err
	}
	if _, err := s.products.GetByID(ctx, m.ProductID); err != nil {
		return nil, translate(err, fmt.Sprintf("product %d", m.ProductID))
	}
	m.ID = id
	m.UpdatedBy = actor
	if err := s.media.Update(ctx, &m); err != nil {
		return nil, translate(err, fmt.Sprintf("update media %d", id))
	}
	return &m, nil
}

func (s *MediaService) Delete(ctx context.Context, id int64) error {
	return translate(s.media.DeleteByID(ctx, id), fmt.Sprintf("delete media %d", id))
}
