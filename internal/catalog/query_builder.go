package catalog

import (
	"strings"

	"product-service/internal/query"
)

// sortableFields maps the sort keys accepted from callers to store fields.
var sortableFields = map[string]string{
	"price":     "price",
	"rating":    "rating",
	"createdAt": "createdAt",
	"name":      "name",
	"category":  "category",
	"status":    "status",
}

// BuildPredicate turns criteria into a conjunction with one clause per
// present field. Empty criteria yield query.All().
func BuildPredicate(c FilterCriteria) (query.Expr, error) {
	if err := c.Validate(); err != nil {
		return query.Expr{}, err
	}
	var clauses []query.Expr
	if c.Name != nil {
		clauses = append(clauses, query.Like("name", *c.Name))
	}
	if c.Category != nil {
		clauses = append(clauses, query.Eq("category", *c.Category))
	}
	if c.Status != nil {
		clauses = append(clauses, query.Eq("status", *c.Status))
	}
	if c.MinPrice != nil || c.MaxPrice != nil {
		var lo, hi any
		if c.MinPrice != nil {
			lo = *c.MinPrice
		}
		if c.MaxPrice != nil {
			hi = *c.MaxPrice
		}
		clauses = append(clauses, query.Range("price", lo, hi))
	}
	if c.MinRating != nil {
		clauses = append(clauses, query.Gte("rating", *c.MinRating))
	}
	return query.And(clauses...), nil
}

// BuildOrder returns the sort keys for criteria. id ASC always closes the
// list so equal keys come back in a stable order.
func BuildOrder(c FilterCriteria) ([]query.Order, error) {
	if c.SortField == "" {
		return []query.Order{query.Asc("id")}, nil
	}
	field, ok := sortableFields[c.SortField]
	if !ok {
		return nil, invalidf("unsupported sort field %q", c.SortField)
	}
	desc, err := parseDirection(c.SortDirection)
	if err != nil {
		return nil, err
	}
	return []query.Order{{Field: field, Desc: desc}, query.Asc("id")}, nil
}

// BuildSpec combines BuildPredicate and BuildOrder.
func BuildSpec(c FilterCriteria) (query.Spec, error) {
	where, err := BuildPredicate(c)
	if err != nil {
		return query.Spec{}, err
	}
	order, err := BuildOrder(c)
	if err != nil {
		return query.Spec{}, err
	}
	return query.Spec{Where: where, OrderBy: order}, nil
}

// keywordCriteria builds name-only criteria from a search box value.
// ok is false when the trimmed keyword is empty.
func keywordCriteria(keyword string) (FilterCriteria, bool) {
	kw := strings.TrimSpace(keyword)
	if kw == "" {
		return FilterCriteria{}, false
	}
	return FilterCriteria{Name: &kw}, true
}
