package catalog

import (
	"context"
	"fmt"
	"strings"

	"product-service/internal/domain"
	"product-service/internal/query"
	"product-service/internal/store"
)

// feedbackSortFields are the sort keys accepted for feedback pages. Any
// other key falls back to insertion order.
var feedbackSortFields = map[string]string{
	"rating":    "rating",
	"createdAt": "createdAt",
}

// FeedbackAggregator computes read-side summaries over product feedback.
type FeedbackAggregator struct {
	feedback store.FeedbackStorer
}

func NewFeedbackAggregator(feedback store.FeedbackStorer) *FeedbackAggregator {
	return &FeedbackAggregator{feedback: feedback}
}

// AverageRating returns the mean of the non-null ratings of a product, or
// nil when there are none.
func (a *FeedbackAggregator) AverageRating(ctx context.Context, productID int64) (*float64, error) {
	rows, err := a.feedback.List(ctx, query.Spec{
		Where: query.And(query.Eq("productId", productID), query.NotNull("rating")),
	})
	if err != nil {
		return nil, translate(err, "average rating")
	}
	var sum, n int64
	for _, f := range rows {
		if f.Rating == nil {
			continue
		}
		sum += int64(*f.Rating)
		n++
	}
	if n == 0 {
		return nil, nil
	}
	avg := float64(sum) / float64(n)
	return &avg, nil
}

// CommentCount counts every feedback row of a product, rated or not.
func (a *FeedbackAggregator) CommentCount(ctx context.Context, productID int64) (int64, error) {
	n, err := a.feedback.Count(ctx, query.Eq("productId", productID))
	if err != nil {
		return 0, translate(err, "comment count")
	}
	return n, nil
}

// FeedbackPage returns one page of a product's feedback. Unsupported sort
// fields are ignored and any direction other than asc sorts descending.
func (a *FeedbackAggregator) FeedbackPage(ctx context.Context, productID int64, page, pageSize int, sortField, sortDirection string) (domain.Page[domain.ProductFeedback], error) {
	if err := validatePaging(page, pageSize); err != nil {
		return domain.Page[domain.ProductFeedback]{}, err
	}
	order := []query.Order{query.Asc("id")}
	if field, ok := feedbackSortFields[sortField]; ok {
		desc := !strings.EqualFold(strings.TrimSpace(sortDirection), SortAsc)
		order = []query.Order{{Field: field, Desc: desc}, query.Asc("id")}
	}
	result, err := a.feedback.ListPage(ctx, query.Spec{
		Where:   query.Eq("productId", productID),
		OrderBy: order,
	}, page, pageSize)
	if err != nil {
		return domain.Page[domain.ProductFeedback]{}, translate(err, "feedback page")
	}
	return result, nil
}

// FeedbackService manages feedback rows.
type FeedbackService struct {
	feedback store.FeedbackStorer
	products store.ProductStorer
}

func NewFeedbackService(feedback store.FeedbackStorer, products store.ProductStorer) *FeedbackService {
	return &FeedbackService{feedback: feedback, products: products}
}

func validateFeedback(f domain.ProductFeedback) error {
	if f.ProductID <= 0 {
		return invalidf("productId is required")
	}
	if f.Rating != nil && (*f.Rating < 1 || *f.Rating > 5) {
		return invalidf("rating must be between 1 and 5, got %d", *f.Rating)
	}
	return nil
}

func (s *FeedbackService) ensureProduct(ctx context.Context, productID int64) error {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return translate(err, fmt.Sprintf("product %d", productID))
	}
	return nil
}

func (s *FeedbackService) Create(ctx context.Context, f domain.ProductFeedback, actor string) (*domain.ProductFeedback, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validateFeedback(f); err != nil {
		return nil, err
	}
	if err := s.ensureProduct(ctx, f.ProductID); err != nil {
		return nil, err
	}
	f.ID = 0
	f.CreatedBy, f.UpdatedBy = actor, actor
	if _, err := s.feedback.Insert(ctx, &f); err != nil {
		return nil, translate(err, "create feedback")
	}
	return &f, nil
}

func (s *FeedbackService) Get(ctx context.Context, id int64) (*domain.ProductFeedback, error) {
	f, err := s.feedback.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("feedback %d", id))
	}
	return f, nil
}

func (s *FeedbackService) ListAll(ctx context.Context) ([]domain.ProductFeedback, error) {
	rows, err := s.feedback.List(ctx, query.Spec{OrderBy: []query.Order{query.Asc("id")}})
	if err != nil {
		return nil, translate(err, "list feedback")
	}
	return rows, nil
}

func (s *FeedbackService) ListByProduct(ctx context.Context, productID int64) ([]domain.ProductFeedback, error) {
	rows, err := s.feedback.List(ctx, query.Spec{
		Where:   query.Eq("productId", productID),
		OrderBy: []query.Order{query.Asc("id")},
	})
	if err != nil {
		return nil, translate(err, "list product feedback")
	}
	return rows, nil
}

// Update replaces the rating, comment and product of feedback id.
func (s *FeedbackService) Update(ctx context.Context, id int64, f domain.ProductFeedback, actor string) (*domain.ProductFeedback, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validateFeedback(f); err != nil {
		return nil, err
	}
	if err := s.ensureProduct(ctx, f.ProductID); err != nil {
		return nil, err
	}
	f.ID = id
	f.UpdatedBy = actor
	if err := s.feedback.Update(ctx, &f); err != nil {
		return nil, translate(err, fmt.Sprintf("update feedback %d", id))
	}
	return &f, nil
}

func (s *FeedbackService) Delete(ctx context.Context, id int64) error {
	return translate(s.feedback.DeleteByID(ctx, id), fmt.Sprintf("delete feedback %d", id))
}
