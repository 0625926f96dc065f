package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Paging limits applied by the core.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Sort directions accepted in FilterCriteria.SortDirection, case-insensitive.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// FilterCriteria is the set of optional predicates and sort/page parameters
// for one catalog query. A nil field places no constraint.
type FilterCriteria struct {
	Name      *string
	Category  *string
	Status    *string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	MinRating *float64

	// SortField is one of the keys of sortableFields; empty means no
	// caller-chosen order.
	SortField string
	// SortDirection is "asc" or "desc"; empty means "desc".
	SortDirection string

	Page     *int
	PageSize *int
}

// Validate checks the criteria without touching storage.
func (c FilterCriteria) Validate() error {
	if c.MinPrice != nil && c.MinPrice.IsNegative() {
		return invalidf("minPrice must not be negative")
	}
	if c.MaxPrice != nil && c.MaxPrice.IsNegative() {
		return invalidf("maxPrice must not be negative")
	}
	if c.MinPrice != nil && c.MaxPrice != nil && c.MinPrice.GreaterThan(*c.MaxPrice) {
		return invalidf("minPrice %s is greater than maxPrice %s", c.MinPrice, c.MaxPrice)
	}
	if c.MinRating != nil && (*c.MinRating < 0 || *c.MinRating > 5) {
		return invalidf("minRating must be between 0 and 5")
	}
	if c.SortField != "" {
		if _, ok := sortableFields[c.SortField]; !ok {
			return invalidf("unsupported sort field %q", c.SortField)
		}
	}
	if _, err := parseDirection(c.SortDirection); err != nil {
		return err
	}
	_, _, err := c.paging()
	return err
}

// paging returns the requested page, filling in defaults for absent values.
func (c FilterCriteria) paging() (page, size int, err error) {
	page, size = DefaultPage, DefaultPageSize
	if c.Page != nil {
		page = *c.Page
	}
	if c.PageSize != nil {
		size = *c.PageSize
	}
	return page, size, validatePaging(page, size)
}

func validatePaging(page, size int) error {
	if page < 1 {
		return invalidf("page must be at least 1, got %d", page)
	}
	if size < 1 || size > MaxPageSize {
		return invalidf("pageSize must be between 1 and %d, got %d", MaxPageSize, size)
	}
	return nil
}

// parseDirection reports whether dir means descending.
func parseDirection(dir string) (desc bool, err error) {
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", SortDesc:
		return true, nil
	case SortAsc:
		return false, nil
	default:
		return false, invalidf("unsupported sort direction %q", dir)
	}
}
