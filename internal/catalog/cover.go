package catalog

import (
	"context"

	"product-service/internal/domain"
	"product-service/internal/logger"
	"product-service/internal/query"
	"product-service/internal/store"
)

// MediaLookup finds the cover image candidates for products.
type MediaLookup interface {
	// FindFirstImage returns the earliest image of a product, or nil if it
	// has none.
	FindFirstImage(ctx context.Context, productID int64) (*domain.ProductMedia, error)
	// FirstImages returns the earliest image of each product that has one.
	FirstImages(ctx context.Context, productIDs []int64) (map[int64]domain.ProductMedia, error)
}

var coverOrder = []query.Order{query.Asc("createdAt"), query.Asc("id")}

// StoreMediaLookup implements MediaLookup on a media store.
type StoreMediaLookup struct {
	media store.MediaStorer
}

func NewStoreMediaLookup(media store.MediaStorer) *StoreMediaLookup {
	return &StoreMediaLookup{media: media}
}

func (l *StoreMediaLookup) FindFirstImage(ctx context.Context, productID int64) (*domain.ProductMedia, error) {
	rows, err := l.media.List(ctx, query.Spec{
		Where:   query.And(query.Eq("productId", productID), query.Eq("mediaType", domain.MediaTypeImage)),
		OrderBy: coverOrder,
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// FirstImages issues a single query for all ids and keeps the first row per
// product.
func (l *StoreMediaLookup) FirstImages(ctx context.Context, productIDs []int64) (map[int64]domain.ProductMedia, error) {
	out := make(map[int64]domain.ProductMedia, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	rows, err := l.media.List(ctx, query.Spec{
		Where:   query.And(query.InInt64("productId", productIDs), query.Eq("mediaType", domain.MediaTypeImage)),
		OrderBy: append([]query.Order{query.Asc("productId")}, coverOrder...),
	})
	if err != nil {
		return nil, err
	}
	for _, m := range rows {
		if _, seen := out[m.ProductID]; !seen {
			out[m.ProductID] = m
		}
	}
	return out, nil
}

// CoverImageResolver fills Product.CoverImageURL. Lookup failures are
// logged and leave the URL empty.
type CoverImageResolver struct {
	lookup MediaLookup
}

func NewCoverImageResolver(lookup MediaLookup) *CoverImageResolver {
	return &CoverImageResolver{lookup: lookup}
}

// Resolve sets the cover of a single product.
func (r *CoverImageResolver) Resolve(ctx context.Context, p *domain.Product) {
	if p == nil || p.ID == 0 {
		return
	}
	m, err := r.lookup.FindFirstImage(ctx, p.ID)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Int64("product_id", p.ID).Msg("cover image lookup failed")
		return
	}
	if m != nil {
		p.CoverImageURL = m.URL
	}
}

// ResolveAll sets the covers of every product in place with one lookup.
func (r *CoverImageResolver) ResolveAll(ctx context.Context, products []domain.Product) {
	ids := make([]int64, 0, len(products))
	for _, p := range products {
		if p.ID != 0 {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return
	}
	covers, err := r.lookup.FirstImages(ctx, ids)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Int("products", len(ids)).Msg("batch cover image lookup failed")
		return
	}
	for i := range products {
		if m, ok := covers[products[i].ID]; ok && products[i].ID != 0 {
			products[i].CoverImageURL = m.URL
		}
	}
}
