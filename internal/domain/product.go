package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Media types stored in ProductMedia.MediaType.
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// Product represents a product in the catalog.
// The json tags correspond to the fields expected in API responses/requests.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int32           `json:"stock"`
	SellerID    int64           `json:"seller_id"`
	Category    *string         `json:"category,omitempty"` // Pointer for nullable fields
	Title       string          `json:"title"`
	Status      string          `json:"status"`
	Rating      *float64        `json:"rating,omitempty"` // Cached from feedback, may be stale
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	CreatedBy   string          `json:"created_by"`
	UpdatedBy   string          `json:"updated_by"`

	// CoverImageURL is resolved from ProductMedia on read and never persisted.
	CoverImageURL string `json:"cover_image_url,omitempty"`
}

// ProductMedia is an image or video attached to a product.
type ProductMedia struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	MediaType string    `json:"media_type"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by"`
	UpdatedBy string    `json:"updated_by"`
}

// ProductFeedback is a single rating and/or comment left by a user.
// A user may leave any number of feedback rows for the same product.
type ProductFeedback struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	UserID    int64     `json:"user_id"`
	Rating    *int32    `json:"rating,omitempty"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by"`
	UpdatedBy string    `json:"updated_by"`
}

// Page is one slice of a larger result set. Total counts every match,
// independent of the slice.
type Page[T any] struct {
	Records  []T   `json:"records"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// TotalPages returns the number of pages needed to hold Total records.
func (p Page[T]) TotalPages() int {
	if p.PageSize <= 0 || p.Total == 0 {
		return 0
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}
