package catalog

import (
	"context"
	"fmt"
	"strings"

	"product-service/internal/domain"
	"product-service/internal/query"
	"product-service/internal/store"
)

// ProductService is the read/write entry point for products. Every product
// it returns has its cover image resolved.
type ProductService struct {
	products store.ProductStorer
	covers   *CoverImageResolver
}

func NewProductService(products store.ProductStorer, covers *CoverImageResolver) *ProductService {
	return &ProductService{products: products, covers: covers}
}

func validateProduct(p domain.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return invalidf("name is required")
	}
	if p.Price.IsNegative() {
		return invalidf("price must not be negative")
	}
	if p.Stock < 0 {
		return invalidf("stock must not be negative")
	}
	if p.Rating != nil && (*p.Rating < 0 || *p.Rating > 5) {
		return invalidf("rating must be between 0 and 5")
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, p domain.Product, actor string) (*domain.Product, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	p.ID = 0
	p.CoverImageURL = ""
	p.CreatedBy, p.UpdatedBy = actor, actor
	if _, err := s.products.Insert(ctx, &p); err != nil {
		return nil, translate(err, "create product")
	}
	return &p, nil
}

func (s *ProductService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("product %d", id))
	}
	s.covers.Resolve(ctx, p)
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, id int64, p domain.Product, actor string) (*domain.Product, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	p.ID = id
	p.UpdatedBy = actor
	if err := s.products.Update(ctx, &p); err != nil {
		return nil, translate(err, fmt.Sprintf("update product %d", id))
	}
	s.covers.Resolve(ctx, &p)
	return &p, nil
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	return translate(s.products.DeleteByID(ctx, id), fmt.Sprintf("delete product %d", id))
}

func (s *ProductService) list(ctx context.Context, spec query.Spec, op string) ([]domain.Product, error) {
	rows, err := s.products.List(ctx, spec)
	if err != nil {
		return nil, translate(err, op)
	}
	s.covers.ResolveAll(ctx, rows)
	return rows, nil
}

func (s *ProductService) page(ctx context.Context, spec query.Spec, page, size int, op string) (domain.Page[domain.Product], error) {
	result, err := s.products.ListPage(ctx, spec, page, size)
	if err != nil {
		return domain.Page[domain.Product]{}, translate(err, op)
	}
	s.covers.ResolveAll(ctx, result.Records)
	return result, nil
}

func (s *ProductService) ListAll(ctx context.Context) ([]domain.Product, error) {
	return s.list(ctx, query.Spec{OrderBy: []query.Order{query.Asc("id")}}, "list products")
}

// Page returns one page of all products in id order.
func (s *ProductService) Page(ctx context.Context, page, pageSize int) (domain.Page[domain.Product], error) {
	if err := validatePaging(page, pageSize); err != nil {
		return domain.Page[domain.Product]{}, err
	}
	return s.page(ctx, query.Spec{OrderBy: []query.Order{query.Asc("id")}}, page, pageSize, "page products")
}

// Search matches keyword against product names, ignoring case. A blank
// keyword matches nothing.
func (s *ProductService) Search(ctx context.Context, keyword string) ([]domain.Product, error) {
	c, ok := keywordCriteria(keyword)
	if !ok {
		return []domain.Product{}, nil
	}
	spec, err := BuildSpec(c)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, spec, "search products")
}

// Filter returns every product matching c, ignoring its paging fields.
func (s *ProductService) Filter(ctx context.Context, c FilterCriteria) ([]domain.Product, error) {
	c.Page, c.PageSize = nil, nil
	spec, err := BuildSpec(c)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, spec, "filter products")
}

// FilterPage returns one page of the products matching c. Absent paging
// fields default to DefaultPage and DefaultPageSize.
func (s *ProductService) FilterPage(ctx context.Context, c FilterCriteria) (domain.Page[domain.Product], error) {
	spec, err := BuildSpec(c)
	if err != nil {
		return domain.Page[domain.Product]{}, err
	}
	page, size, err := c.paging()
	if err != nil {
		return domain.Page[domain.Product]{}, err
	}
	return s.page(ctx, spec, page, size, "filter products page")
}
