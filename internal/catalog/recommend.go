package catalog

import (
	"context"
	"errors"

	"product-service/internal/domain"
	"product-service/internal/logger"
	"product-service/internal/query"
	"product-service/internal/store"
)

// MaxRecommendations caps the limit of a recommendation request.
const MaxRecommendations = 50

// Recommendation kinds and outcomes reported to a Recorder.
const (
	KindRelated    = "related"
	KindTopForUser = "top_for_user"

	OutcomeServed           = "served"
	OutcomeEmpty            = "empty"
	OutcomeUpstreamFallback = "upstream_fallback"
)

// PurchaseHistory lists the products a user has ordered. Implementations
// should wrap transport failures in ErrUpstreamUnavailable.
type PurchaseHistory interface {
	GetPurchasedProductIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Recorder receives one outcome per recommendation call.
type Recorder interface {
	RecordRecommendation(kind, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordRecommendation(string, string) {}

var byRating = []query.Order{query.Desc("rating"), query.Asc("id")}

// RecommendationEngine produces related-product and per-user
// recommendations from category and rating data.
type RecommendationEngine struct {
	products store.ProductStorer
	history  PurchaseHistory
	covers   *CoverImageResolver
	recorder Recorder
}

// NewRecommendationEngine wires an engine. recorder may be nil.
func NewRecommendationEngine(products store.ProductStorer, history PurchaseHistory, covers *CoverImageResolver, recorder Recorder) *RecommendationEngine {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &RecommendationEngine{products: products, history: history, covers: covers, recorder: recorder}
}

func normalizeLimit(limit int) (int, error) {
	if limit < 1 {
		return 0, invalidf("limit must be positive, got %d", limit)
	}
	return min(limit, MaxRecommendations), nil
}

// Related returns the highest-rated products sharing the category of
// productID, excluding productID itself. An unknown product or one without
// a category yields an empty list.
func (e *RecommendationEngine) Related(ctx context.Context, productID int64, limit int) ([]domain.Product, error) {
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	anchor, err := e.products.GetByID(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return e.finish(KindRelated, nil), nil
	}
	if err != nil {
		return nil, translate(err, "related products")
	}
	if anchor.Category == nil {
		return e.finish(KindRelated, nil), nil
	}

	rows, err := e.products.List(ctx, query.Spec{
		Where:   query.And(query.Eq("category", *anchor.Category), query.Ne("id", productID)),
		OrderBy: byRating,
		Limit:   limit,
	})
	if err != nil {
		return nil, translate(err, "related products")
	}
	e.covers.ResolveAll(ctx, rows)
	return e.finish(KindRelated, rows), nil
}

// TopRecommendedForUser returns the highest-rated products the user has not
// bought from the category they bought most from. Order history failures
// degrade to an empty list.
func (e *RecommendationEngine) TopRecommendedForUser(ctx context.Context, userID int64, limit int) ([]domain.Product, error) {
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	purchased, err := e.history.GetPurchasedProductIDs(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Int64("user_id", userID).
			Msg("order history unavailable, returning no recommendations")
		e.recorder.RecordRecommendation(KindTopForUser, OutcomeUpstreamFallback)
		return []domain.Product{}, nil
	}
	if len(purchased) == 0 {
		return e.finish(KindTopForUser, nil), nil
	}

	bought, err := e.products.List(ctx, query.Spec{Where: query.InInt64("id", purchased)})
	if err != nil {
		return nil, translate(err, "purchased products")
	}
	category, ok := favouriteCategory(bought)
	if !ok {
		return e.finish(KindTopForUser, nil), nil
	}

	rows, err := e.products.List(ctx, query.Spec{
		Where:   query.And(query.Eq("category", category), query.NotInInt64("id", purchased)),
		OrderBy: byRating,
		Limit:   limit,
	})
	if err != nil {
		return nil, translate(err, "recommended products")
	}
	e.covers.ResolveAll(ctx, rows)
	return e.finish(KindTopForUser, rows), nil
}

// favouriteCategory returns the most frequent non-nil category. Ties go to
// the lexicographically smallest name.
func favouriteCategory(products []domain.Product) (string, bool) {
	counts := map[string]int{}
	for _, p := range products {
		if p.Category != nil {
			counts[*p.Category]++
		}
	}
	best, bestN := "", 0
	for c, n := range counts {
		if n > bestN || (n == bestN && c < best) {
			best, bestN = c, n
		}
	}
	return best, bestN > 0
}

func (e *RecommendationEngine) finish(kind string, rows []domain.Product) []domain.Product {
	if len(rows) == 0 {
		e.recorder.RecordRecommendation(kind, OutcomeEmpty)
		return []domain.Product{}
	}
	e.recorder.RecordRecommendation(kind, OutcomeServed)
	return rows
}
