package store

import (
	"time"

	"product-service/internal/domain"
)

// Column maps one logical field to a SQL column.
type Column[T any] struct {
	Field string
	Name  string
	// Ptr returns a pointer to the struct field; used both as a Scan
	// destination and, dereferenced, as a query argument.
	Ptr func(*T) any
	// Writable columns are sent on INSERT; Mutable ones also on UPDATE.
	Writable bool
	Mutable  bool
}

// Table describes how an entity type is laid out in storage.
type Table[T any] struct {
	Name    string
	Columns []Column[T]
	ID      func(*T) int64
	SetID   func(*T, int64)
	// Stamp sets created/updated timestamps for stores that do not get them
	// from the database.
	Stamp func(e *T, created, updated time.Time)
	// UpdatedAtColumn is refreshed to CURRENT_TIMESTAMP on every update.
	UpdatedAtColumn string
}

// FieldColumns returns the logical field → column name map.
func (t Table[T]) FieldColumns() map[string]string {
	m := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		m[c.Field] = c.Name
	}
	return m
}

func (t Table[T]) column(field string) (Column[T], bool) {
	for _, c := range t.Columns {
		if c.Field == field {
			return c, true
		}
	}
	return Column[T]{}, false
}

// ProductTable is the layout of the products table.
var ProductTable = Table[domain.Product]{
	Name: "products",
	Columns: []Column[domain.Product]{
		{Field: "id", Name: "id", Ptr: func(p *domain.Product) any { return &p.ID }},
		{Field: "name", Name: "name", Ptr: func(p *domain.Product) any { return &p.Name }, Writable: true, Mutable: true},
		{Field: "description", Name: "description", Ptr: func(p *domain.Product) any { return &p.Description }, Writable: true, Mutable: true},
		{Field: "price", Name: "price", Ptr: func(p *domain.Product) any { return &p.Price }, Writable: true, Mutable: true},
		{Field: "stock", Name: "stock", Ptr: func(p *domain.Product) any { return &p.Stock }, Writable: true, Mutable: true},
		{Field: "sellerId", Name: "seller_id", Ptr: func(p *domain.Product) any { return &p.SellerID }, Writable: true, Mutable: true},
		{Field: "category", Name: "category", Ptr: func(p *domain.Product) any { return &p.Category }, Writable: true, Mutable: true},
		{Field: "title", Name: "title", Ptr: func(p *domain.Product) any { return &p.Title }, Writable: true, Mutable: true},
		{Field: "status", Name: "status", Ptr: func(p *domain.Product) any { return &p.Status }, Writable: true, Mutable: true},
		{Field: "rating", Name: "rating", Ptr: func(p *domain.Product) any { return &p.Rating }, Writable: true, Mutable: true},
		{Field: "createdAt", Name: "create_datetime", Ptr: func(p *domain.Product) any { return &p.CreatedAt }},
		{Field: "updatedAt", Name: "update_datetime", Ptr: func(p *domain.Product) any { return &p.UpdatedAt }},
		{Field: "createdBy", Name: "create_user", Ptr: func(p *domain.Product) any { return &p.CreatedBy }, Writable: true},
		{Field: "updatedBy", Name: "update_user", Ptr: func(p *domain.Product) any { return &p.UpdatedBy }, Writable: true, Mutable: true},
	},
	ID:    func(p *domain.Product) int64 { return p.ID },
	SetID: func(p *domain.Product, id int64) { p.ID = id },
	Stamp: func(p *domain.Product, created, updated time.Time) {
		p.CreatedAt, p.UpdatedAt = created, updated
	},
	UpdatedAtColumn: "update_datetime",
}

// MediaTable is the layout of the product_media table.
var MediaTable = Table[domain.ProductMedia]{
	Name: "product_media",
	Columns: []Column[domain.ProductMedia]{
		{Field: "id", Name: "id", Ptr: func(m *domain.ProductMedia) any { return &m.ID }},
		{Field: "productId", Name: "product_id", Ptr: func(m *domain.ProductMedia) any { return &m.ProductID }, Writable: true, Mutable: true},
		{Field: "mediaType", Name: "media_type", Ptr: func(m *domain.ProductMedia) any { return &m.MediaType }, Writable: true, Mutable: true},
		{Field: "url", Name: "url", Ptr: func(m *domain.ProductMedia) any { return &m.URL }, Writable: true, Mutable: true},
		{Field: "createdAt", Name: "create_datetime", Ptr: func(m *domain.ProductMedia) any { return &m.CreatedAt }},
		{Field: "updatedAt", Name: "update_datetime", Ptr: func(m *domain.ProductMedia) any { return &m.UpdatedAt }},
		{Field: "createdBy", Name: "create_user", Ptr: func(m *domain.ProductMedia) any { return &m.CreatedBy }, Writable: true},
		{Field: "updatedBy", Name: "update_user", Ptr: func(m *domain.ProductMedia) any { return &m.UpdatedBy }, Writable: true, Mutable: true},
	},
	ID:    func(m *domain.ProductMedia) int64 { return m.ID },
	SetID: func(m *domain.ProductMedia, id int64) { m.ID = id },
	Stamp: func(m *domain.ProductMedia, created, updated time.Time) {
		m.CreatedAt, m.UpdatedAt = created, updated
	},
	UpdatedAtColumn: "update_datetime",
}

// FeedbackTable is the layout of the product_feedback table.
var FeedbackTable = Table[domain.ProductFeedback]{
	Name: "product_feedback",
	Columns: []Column[domain.ProductFeedback]{
		{Field: "id", Name: "id", Ptr: func(f *domain.ProductFeedback) any { return &f.ID }},
		{Field: "productId", Name: "product_id", Ptr: func(f *domain.ProductFeedback) any { return &f.ProductID }, Writable: true, Mutable: true},
		{Field: "userId", Name: "user_id", Ptr: func(f *domain.ProductFeedback) any { return &f.UserID }, Writable: true, Mutable: true},
		{Field: "rating", Name: "rating", Ptr: func(f *domain.ProductFeedback) any { return &f.Rating }, Writable: true, Mutable: true},
		{Field: "comment", Name: "comment", Ptr: func(f *domain.ProductFeedback) any { return &f.Comment }, Writable: true, Mutable: true},
		{Field: "createdAt", Name: "create_datetime", Ptr: func(f *domain.ProductFeedback) any { return &f.CreatedAt }},
		{Field: "updatedAt", Name: "update_datetime", Ptr: func(f *domain.ProductFeedback) any { return &f.UpdatedAt }},
		{Field: "createdBy", Name: "create_user", Ptr: func(f *domain.ProductFeedback) any { return &f.CreatedBy }, Writable: true},
		{Field: "updatedBy", Name: "update_user", Ptr: func(f *domain.ProductFeedback) any { return &f.UpdatedBy }, Writable: true, Mutable: true},
	},
	ID:    func(f *domain.ProductFeedback) int64 { return f.ID },
	SetID: func(f *domain.ProductFeedback, id int64) { f.ID = id },
	Stamp: func(f *domain.ProductFeedback, created, updated time.Time) {
		f.CreatedAt, f.UpdatedAt = created, updated
	},
	UpdatedAtColumn: "update_datetime",
}
