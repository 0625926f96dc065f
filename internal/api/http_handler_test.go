package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"product-service/internal/catalog"
	"product-service/internal/domain"
	"product-service/internal/store"
)

// MockPurchaseHistory is a mock implementation of catalog.PurchaseHistory
type MockPurchaseHistory struct {
	mock.Mock
}

func (m *MockPurchaseHistory) GetPurchasedProductIDs(ctx context.Context, userID int64) ([]int64, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func PtrTo[T any](v T) *T {
	return &v
}

const testDefaultActor = "system"

// newTestServices wires the catalog over in-memory stores.
func newTestServices(history catalog.PurchaseHistory) Services {
	products := store.NewMemoryStore(store.ProductTable)
	media := store.NewMemoryStore(store.MediaTable).WithReference(
		store.ProductExists[domain.ProductMedia](products, func(m *domain.ProductMedia) int64 { return m.ProductID }))
	feedback := store.NewMemoryStore(store.FeedbackTable).WithReference(
		store.ProductExists[domain.ProductFeedback](products, func(f *domain.ProductFeedback) int64 { return f.ProductID }))

	covers := catalog.NewCoverImageResolver(catalog.NewStoreMediaLookup(media))
	return Services{
		Products:    catalog.NewProductService(products, covers),
		Media:       catalog.NewMediaService(media, products),
		Feedback:    catalog.NewFeedbackService(feedback, products),
		Aggregator:  catalog.NewFeedbackAggregator(feedback),
		Recommender: catalog.NewRecommendationEngine(products, history, covers, nil),
		Chat:        catalog.NewChatResponder(products, "about text", "promo text"),
	}
}

// Helper for setting up tests with a chi router and handler
func setupTestChiServer(t *testing.T, history catalog.PurchaseHistory) *httptest.Server {
	t.Helper()
	handler := NewHTTPHandler(newTestServices(history), testDefaultActor)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decodeBody[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	return v
}

func createProduct(t *testing.T, baseURL string, in ProductInput) domain.Product {
	t.Helper()
	res := doJSON(t, http.MethodPost, baseURL+"/api/v1/products", in, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	return decodeBody[domain.Product](t, res)
}

func TestHTTPHandler_CreateAndGetProduct(t *testing.T) {
	server := setupTestChiServer(t, new(MockPurchaseHistory))

	res := doJSON(t, http.MethodPost, server.URL+"/api/v1/products", map[string]any{
		"name":     "Pixel 9",
		"price":    "799.00",
		"stock":    10,
		"category": "Smartphones",
		"status":   "AVAILABLE",
	}, map[string]string{ActorHeader: "alice"})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	created := decodeBody[domain.Product](t, res)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "alice", created.CreatedBy)

	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/products/1", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	got := decodeBody[domain.Product](t, res)
	assert.Equal(t, "Pixel 9", got.Name)
	assert.Equal(t, "799", got.Price.String())
	require.NotNil(t, got.Category)
	assert.Equal(t, "Smartphones", *got.Category)
}

func TestHTTPHandler_CreateProduct_UsesDefaultActor(t *testing.T) {
	server := setupTestChiServer(t, new(MockPurchaseHistory))
	p := createProduct(t, server.URL, ProductInput{Name: "Cable"})
	assert.Equal(t, testDefaultActor, p.CreatedBy)
	assert.Equal(t, testDefaultActor, p.UpdatedBy)
}

func TestHTTPHandler_ProductErrors(t *testing.T) {
	server := setupTestChiServer(t, new(MockPurchaseHistory))

	res := doJSON(t, http.MethodPost, server.URL+"/api/v1/products", map[string]any{"price": "1"}, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = doJSON(t, http.MethodPost, server.URL+"/api/v1/products", map[string]any{"name": "x", "price": "-1"}, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/products/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	body := decodeBody[ErrorResponse](t, res)
	assert.NotEmpty(t, body.Error)

	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/products/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = doJSON(t, http.MethodPut, server.URL+"/api/v1/products/999", ProductInput{Name: "ghost"}, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = doJSON(t, http.MethodDelete, server.URL+"/api/v1/products/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHTTPHandler_UpdateAndDeleteProduct(t *testing.T) {
	server := setupTestChiServer(t, new(MockPurchaseHistory))
	p := createProduct(t, server.URL, ProductInput{Name: "Old"})

	res := doJSON(t, http.MethodPut, server.URL+"/api/v1/products/1", ProductInput{Name: "New", Status: "UNAVAILABLE"},
		map[string]string{ActorHeader: "bob"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	updated := decodeBody[domain.Product](t, res)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, p.CreatedBy, updated.CreatedBy)
	assert.Equal(t, "bob", updated.UpdatedBy)

	res = doJSON(t, http.MethodDelete, server.URL+"/api/v1/products/1", nil, nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
}

func TestHTTPHandler_FilterSearchAndPage(t *testing.T) {
	server := setupTestChiServer(t, new(MockPurchaseHistory))
	for _, in := range []ProductInput{
		{Name: "Galaxy S24", Category: PtrTo("Smartphones"), Rating: PtrTo(4.8)},
		{Name: "Galaxy Tab", Category: PtrTo("Pad"), Rating: PtrTo(4.1)},
		{Name: "Pixel 9", Category: PtrTo("Smartphones"), Rating: PtrTo(4.6)},
	} {
		createProduct(t, server.URL, in)
	}

	res := doJSON(t, http.MethodGet, server.URL+"/api/v1/products/filter?category=Smartphones&sort_by=rating&sort_order=asc", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	products := decodeBody[[]domain.Product](t, res)
	require.Len(t, products, 2)
	assert.Equal(t, "Pixel 9", products[0].Name)
	assert.Equal(t, "Galaxy S24", products[1].Name)

	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/products/filter?min_price=10&max_price=5", nil, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/products/filter?sort_by=seller_id", nil, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/products/filter?min_price=cheap", nil, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/products/filter/page?name=galaxy&page=1&page_size=1", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	page := decodeBody[PageResponse[domain.Product]](t, res)
	assert.Equal(t, int64(2), page.Pagination.TotalItems)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Galaxy S24", page.Data[0].Name)

	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/products/filter/page?page=0", nil, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/products/search?keyword=%20pixel%20", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	products = decodeBody[[]domain.Product](t, res)
	require.Len(t, products, 1)
	assert.Equal(t, "Pixel 9", products[0].Name)

	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/products/page?page_size=2", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	page = decodeBody[PageResponse[domain.Product]](t, res)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Len(t, page.Data, 2)
}

func TestHTTPHandler_Recommendations(t *testing.T) {
	history := new(MockPurchaseHistory)
	server := setupTestChiServer(t, history)
	createProduct(t, server.URL, ProductInput{Name: "a", Category: PtrTo("Laptops"), Rating: PtrTo(4.0)})
	createProduct(t, server.URL, ProductInput{Name: "b", Category: PtrTo("Laptops"), Rating: PtrTo(4.9)})
	createProduct(t, server.URL, ProductInput{Name: "c", Category: PtrTo("Laptops"), Rating: PtrTo(3.0)})

	res := doJSON(t, http.MethodGet, server.URL+"/api/v1/products/1/related", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	related := decodeBody[[]domain.Product](t, res)
	require.Len(t, related, 2)
	assert.Equal(t, int64(2), related[0].ID)
	assert.Equal(t, int64(3), related[1].ID)

	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/products/1/related?limit=0", nil, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	history.On("GetPurchasedProductIDs", mock.Anything, int64(5)).Return([]int64{2}, nil).Once()
	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/recommendations/users/5?limit=1", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	top := decodeBody[[]domain.Product](t, res)
	require.Len(t, top, 1)
	assert.Equal(t, int64(1), top[0].ID)

	history.On("GetPurchasedProductIDs", mock.Anything, int64(6)).Return(nil, catalog.ErrUpstreamUnavailable).Once()
	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/recommendations/users/6", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, decodeBody[[]domain.Product](t, res))

	history.AssertExpectations(t)
}

func TestHTTPHandler_MediaAndCover(t *testing.T) {
	server := setupTestChiServer(t, new(MockPurchaseHistory))
	createProduct(t, server.URL, ProductInput{Name: "Camera"})

	res := doJSON(t, http.MethodPost, server.URL+"/api/v1/media", MediaInput{ProductID: 1, MediaType: "image", URL: "https://cdn/1.jpg"}, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode)

	res = doJSON(t, http.MethodPost, server.URL+"/api/v1/media", MediaInput{ProductID: 1, MediaType: "gif", URL: "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = doJSON(t, http.MethodPost, server.URL+"/api/v1/media", MediaInput{ProductID: 9, MediaType: "image", URL: "x"}, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/products/1", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "https://cdn/1.jpg", decodeBody[domain.Product](t, res).CoverImageURL)

	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/products/1/media", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, decodeBody[[]domain.ProductMedia](t, res), 1)

	res = doJSON(t, http.MethodDelete, server.URL+"/api/v1/media/1", nil, nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/media/1", nil, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHTTPHandler_FeedbackAggregates(t *testing.T) {
	server := setupTestChiServer(t, new(MockPurchaseHistory))
	createProduct(t, server.URL, ProductInput{Name: "Headphones"})

	for _, in := range []FeedbackInput{
		{ProductID: 1, UserID: 1, Rating: PtrTo[int32](4)},
		{ProductID: 1, UserID: 2, Rating: PtrTo[int32](5), Comment: PtrTo("great")},
		{ProductID: 1, UserID: 3, Comment: PtrTo("no rating")},
	} {
		res := doJSON(t, http.MethodPost, server.URL+"/api/v1/feedback", in, nil)
		require.Equal(t, http.StatusCreated, res.StatusCode)
	}

	res := doJSON(t, http.MethodPost, server.URL+"/api/v1/feedback", FeedbackInput{ProductID: 1, Rating: PtrTo[int32](9)}, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/products/1/average-rating", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	avg := decodeBody[AverageRatingResponse](t, res)
	require.NotNil(t, avg.AverageRating)
	assert.Equal(t, 4.5, *avg.AverageRating)

	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/products/1/comment-count", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, int64(3), decodeBody[CommentCountResponse](t, res).CommentCount)

	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/products/1/feedback?sort_by=rating&sort_order=desc&page_size=2", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	page := decodeBody[PageResponse[domain.ProductFeedback]](t, res)
	assert.Equal(t, int64(3), page.Pagination.TotalItems)
	require.Len(t, page.Data, 2)
	assert.Equal(t, int64(2), page.Data[0].ID)

	res = doJSON(t, http.MethodPut, server.URL+"/api/v1/feedback/3", FeedbackInput{ProductID: 1, UserID: 3, Rating: PtrTo[int32](3)},
		map[string]string{ActorHeader: "moderator"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "moderator", decodeBody[domain.ProductFeedback](t, res).UpdatedBy)
}

func TestHTTPHandler_Chat(t *testing.T) {
	server := setupTestChiServer(t, new(MockPurchaseHistory))
	createProduct(t, server.URL, ProductInput{Name: "MacBook Air", Category: PtrTo("Laptops"), Rating: PtrTo(4.7)})

	res := doJSON(t, http.MethodGet, server.URL+"/api/v1/chat/recommend-laptops", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	reply := decodeBody[catalog.ChatReply](t, res)
	require.Len(t, reply.Parts, 1)
	assert.Contains(t, reply.Parts[0].Text, "MacBook Air")

	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/chat/recommend/Laptops", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/chat/recommend-toasters", nil, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = doJSON(t, http.MethodGet, server.URL+"/api/v1/chat/about", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "about text", decodeBody[catalog.ChatReply](t, res).Parts[0].Text)
}
