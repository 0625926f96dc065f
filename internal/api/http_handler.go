package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"product-service/internal/catalog"
	"product-service/internal/domain"
	"product-service/internal/logger"
)

// ActorHeader names the caller recorded as create/update user.
const ActorHeader = "X-Actor"

// DefaultRecommendationLimit applies when a request does not pass a limit.
const DefaultRecommendationLimit = 5

// Services bundles the catalog services the transport layers expose.
type Services struct {
	Products    *catalog.ProductService
	Media       *catalog.MediaService
	Feedback    *catalog.FeedbackService
	Aggregator  *catalog.FeedbackAggregator
	Recommender *catalog.RecommendationEngine
	Chat        *catalog.ChatResponder
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	svc          Services
	defaultActor string
	validate     *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(svc Services, defaultActor string) *HTTPHandler {
	return &HTTPHandler{
		svc:          svc,
		defaultActor: defaultActor,
		validate:     validator.New(),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil { // Avoid writing empty body for 204 No Content
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			http.Error(w, `{"error": "Internal server error during JSON encoding"}`, http.StatusInternalServerError)
		}
	}
}

// respondWithServiceError maps catalog errors onto HTTP statuses.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, catalog.ErrInvalidArgument):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	default:
		logger.FromContext(r.Context()).Error().Err(err).Str("action", action).Msg("request failed")
		respondWithError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

// actor returns the X-Actor header or the configured default.
func (h *HTTPHandler) actor(r *http.Request) string {
	if a := strings.TrimSpace(r.Header.Get(ActorHeader)); a != "" {
		return a
	}
	return h.defaultActor
}

func pathID(r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	return id, err == nil && id > 0
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return false
	}
	return true
}

// queryInt parses an optional integer parameter. A nil result means absent.
func queryInt(r *http.Request, name string) (*int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, errors.New("invalid " + name + " value")
	}
	return &v, nil
}

func queryIntDefault(r *http.Request, name string, def int) (int, error) {
	v, err := queryInt(r, name)
	if err != nil || v == nil {
		return def, err
	}
	return *v, nil
}

func queryString(r *http.Request, name string) *string {
	if s := r.URL.Query().Get(name); s != "" {
		return &s
	}
	return nil
}

// Pagination matches the paging envelope of list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// PageResponse is the JSON shape of a paged list.
type PageResponse[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func newPageResponse[T any](p domain.Page[T]) PageResponse[T] {
	data := p.Records
	if data == nil {
		data = []T{}
	}
	return PageResponse[T]{
		Data: data,
		Pagination: Pagination{
			Page:       p.Page,
			PageSize:   p.PageSize,
			TotalItems: p.Total,
			TotalPages: p.TotalPages(),
		},
	}
}

// --- Product Handlers ---

// ProductInput defines the expected input for creating or updating a product.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int32           `json:"stock" validate:"gte=0"`
	SellerID    int64           `json:"seller_id" validate:"gte=0"`
	Category    *string         `json:"category" validate:"omitempty,max=100"`
	Title       string          `json:"title" validate:"max=255"`
	Status      string          `json:"status" validate:"max=50"`
	Rating      *float64        `json:"rating" validate:"omitempty,gte=0,lte=5"`
}

func (in ProductInput) toDomain() domain.Product {
	return domain.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		SellerID:    in.SellerID,
		Category:    in.Category,
		Title:       in.Title,
		Status:      in.Status,
		Rating:      in.Rating,
	}
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input ProductInput
	if !h.decode(w, r, &input) {
		return
	}
	created, err := h.svc.Products.Create(r.Context(), input.toDomain(), h.actor(r))
	if err != nil {
		respondWithServiceError(w, r, err, "create product")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Products.ListAll(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "retrieve products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *HTTPHandler) PageProducts(w http.ResponseWriter, r *http.Request) {
	page, err := queryIntDefault(r, "page", catalog.DefaultPage)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	size, err := queryIntDefault(r, "page_size", catalog.DefaultPageSize)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.Products.Page(r.Context(), page, size)
	if err != nil {
		respondWithServiceError(w, r, err, "retrieve products")
		return
	}
	respondWithJSON(w, http.StatusOK, newPageResponse(result))
}

func (h *HTTPHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Products.Search(r.Context(), r.URL.Query().Get("keyword"))
	if err != nil {
		respondWithServiceError(w, r, err, "search products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

// parseCriteria reads FilterCriteria from query parameters.
func parseCriteria(r *http.Request) (catalog.FilterCriteria, error) {
	c := catalog.FilterCriteria{
		Name:          queryString(r, "name"),
		Category:      queryString(r, "category"),
		Status:        queryString(r, "status"),
		SortField:     r.URL.Query().Get("sort_by"),
		SortDirection: r.URL.Query().Get("sort_order"),
	}
	for name, dst := range map[string]**decimal.Decimal{"min_price": &c.MinPrice, "max_price": &c.MaxPrice} {
		if s := r.URL.Query().Get(name); s != "" {
			d, err := decimal.NewFromString(s)
			if err != nil {
				return c, errors.New("invalid " + name + " format")
			}
			*dst = &d
		}
	}
	if s := r.URL.Query().Get("min_rating"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return c, errors.New("invalid min_rating format")
		}
		c.MinRating = &v
	}
	var err error
	if c.Page, err = queryInt(r, "page"); err != nil {
		return c, err
	}
	if c.PageSize, err = queryInt(r, "page_size"); err != nil {
		return c, err
	}
	return c, nil
}

func (h *HTTPHandler) FilterProducts(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	products, err := h.svc.Products.Filter(r.Context(), c)
	if err != nil {
		respondWithServiceError(w, r, err, "filter products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *HTTPHandler) FilterProductsPage(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.Products.FilterPage(r.Context(), c)
	if err != nil {
		respondWithServiceError(w, r, err, "filter products")
		return
	}
	respondWithJSON(w, http.StatusOK, newPageResponse(result))
}

func (h *HTTPHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	product, err := h.svc.Products.Get(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, r, err, "retrieve product")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	var input ProductInput
	if !h.decode(w, r, &input) {
		return
	}
	updated, err := h.svc.Products.Update(r.Context(), productID, input.toDomain(), h.actor(r))
	if err != nil {
		respondWithServiceError(w, r, err, "update product")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	if err := h.svc.Products.Delete(r.Context(), productID); err != nil {
		respondWithServiceError(w, r, err, "delete product")
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

// --- Recommendation Handlers ---

func (h *HTTPHandler) GetRelatedProducts(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	limit, err := queryIntDefault(r, "limit", DefaultRecommendationLimit)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	products, err := h.svc.Recommender.Related(r.Context(), productID, limit)
	if err != nil {
		respondWithServiceError(w, r, err, "fetch related products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *HTTPHandler) GetUserRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	limit, err := queryIntDefault(r, "limit", DefaultRecommendationLimit)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	products, err := h.svc.Recommender.TopRecommendedForUser(r.Context(), userID, limit)
	if err != nil {
		respondWithServiceError(w, r, err, "fetch product recommendations")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Post("/", h.CreateProduct)
		r.Get("/", h.ListProducts)
		// Static paths must be registered before {productId}.
		r.Get("/page", h.PageProducts)
		r.Get("/search", h.SearchProducts)
		r.Get("/filter", h.FilterProducts)
		r.Get("/filter/page", h.FilterProductsPage)

		r.Route("/{productId}", func(r chi.Router) {
			r.Get("/", h.GetProductByID)
			r.Put("/", h.UpdateProduct)
			r.Delete("/", h.DeleteProduct)
			r.Get("/related", h.GetRelatedProducts)
			r.Get("/media", h.ListProductMedia)
			r.Get("/feedback", h.PageProductFeedback)
			r.Get("/feedback/all", h.ListProductFeedback)
			r.Get("/average-rating", h.GetAverageRating)
			r.Get("/comment-count", h.GetCommentCount)
		})
	})

	r.Get("/api/v1/recommendations/users/{userId}", h.GetUserRecommendations)

	r.Route("/api/v1/media", func(r chi.Router) {
		r.Post("/", h.CreateMedia)
		r.Get("/", h.ListMedia)
		r.Route("/{mediaId}", func(r chi.Router) {
			r.Get("/", h.GetMedia)
			r.Put("/", h.UpdateMedia)
			r.Delete("/", h.DeleteMedia)
		})
	})

	r.Route("/api/v1/feedback", func(r chi.Router) {
		r.Post("/", h.CreateFeedback)
		r.Get("/", h.ListFeedback)
		r.Route("/{feedbackId}", func(r chi.Router) {
			r.Get("/", h.GetFeedback)
			r.Put("/", h.UpdateFeedback)
			r.Delete("/", h.DeleteFeedback)
		})
	})

	r.Route("/api/v1/chat", func(r chi.Router) {
		r.Get("/about", h.ChatAbout)
		r.Get("/promotions", h.ChatPromotions)
		r.Get("/recommend/{category}", h.ChatRecommendCategory)
		r.Get("/recommend-{shortcut}", h.ChatRecommendShortcut)
	})
}
