package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"product-service/internal/domain"
	"product-service/internal/store"
)

const testActor = "tester"

func PtrTo[T any](v T) *T { return &v }

// fixture wires the catalog services over in-memory stores.
type fixture struct {
	products *store.MemoryStore[domain.Product]
	media    *store.MemoryStore[domain.ProductMedia]
	feedback *store.MemoryStore[domain.ProductFeedback]
	clock    time.Time

	covers     *CoverImageResolver
	productSvc *ProductService
	mediaSvc   *MediaService
	feedSvc    *FeedbackService
	aggregator *FeedbackAggregator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	now := func() time.Time { return f.clock }

	f.products = store.NewMemoryStore(store.ProductTable).WithClock(now)
	f.media = store.NewMemoryStore(store.MediaTable).WithClock(now).WithReference(
		store.ProductExists[domain.ProductMedia](f.products, func(m *domain.ProductMedia) int64 { return m.ProductID }))
	f.feedback = store.NewMemoryStore(store.FeedbackTable).WithClock(now).WithReference(
		store.ProductExists[domain.ProductFeedback](f.products, func(fb *domain.ProductFeedback) int64 { return fb.ProductID }))

	f.covers = NewCoverImageResolver(NewStoreMediaLookup(f.media))
	f.productSvc = NewProductService(f.products, f.covers)
	f.mediaSvc = NewMediaService(f.media, f.products)
	f.feedSvc = NewFeedbackService(f.feedback, f.products)
	f.aggregator = NewFeedbackAggregator(f.feedback)
	return f
}

func (f *fixture) tick() { f.clock = f.clock.Add(time.Minute) }

type productOpt func(*domain.Product)

func withCategory(c string) productOpt { return func(p *domain.Product) { p.Category = &c } }
func withRating(r float64) productOpt  { return func(p *domain.Product) { p.Rating = &r } }
func withPrice(s string) productOpt {
	return func(p *domain.Product) { p.Price = decimal.RequireFromString(s) }
}
func withStatus(s string) productOpt { return func(p *domain.Product) { p.Status = s } }

func (f *fixture) addProduct(t *testing.T, name string, opts ...productOpt) domain.Product {
	t.Helper()
	p := domain.Product{Name: name, Status: "AVAILABLE", Price: decimal.NewFromInt(10)}
	for _, o := range opts {
		o(&p)
	}
	created, err := f.productSvc.Create(context.Background(), p, testActor)
	require.NoError(t, err)
	f.tick()
	return *created
}

func (f *fixture) addMedia(t *testing.T, productID int64, mediaType, url string) domain.ProductMedia {
	t.Helper()
	m, err := f.mediaSvc.Create(context.Background(), domain.ProductMedia{ProductID: productID, MediaType: mediaType, URL: url}, testActor)
	require.NoError(t, err)
	f.tick()
	return *m
}

func (f *fixture) addFeedback(t *testing.T, productID int64, rating *int32, comment *string) domain.ProductFeedback {
	t.Helper()
	fb, err := f.feedSvc.Create(context.Background(), domain.ProductFeedback{ProductID: productID, UserID: 1, Rating: rating, Comment: comment}, testActor)
	require.NoError(t, err)
	f.tick()
	return *fb
}

func ids(products []domain.Product) []int64 {
	out := make([]int64, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

// mockPurchaseHistory is a testify mock of PurchaseHistory.
type mockPurchaseHistory struct {
	mock.Mock
}

func (m *mockPurchaseHistory) GetPurchasedProductIDs(ctx context.Context, userID int64) ([]int64, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.([]int64), args.Error(1)
	}
	return nil, args.Error(1)
}

type recordedOutcome struct{ kind, outcome string }

type fakeRecorder struct {
	got []recordedOutcome
}

func (r *fakeRecorder) RecordRecommendation(kind, outcome string) {
	r.got = append(r.got, recordedOutcome{kind, outcome})
}
