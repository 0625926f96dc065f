package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"product-service/internal/catalog"
	"product-service/internal/domain"
)

// --- Media Handlers ---

// MediaInput defines the expected input for creating or updating a media row.
type MediaInput struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	MediaType string `json:"media_type" validate:"required,oneof=image video"`
	URL       string `json:"url" validate:"required,max=2048"`
}

func (in MediaInput) toDomain() domain.ProductMedia {
	return domain.ProductMedia{ProductID: in.ProductID, MediaType: in.MediaType, URL: in.URL}
}

func (h *HTTPHandler) CreateMedia(w http.ResponseWriter, r *http.Request) {
	var input MediaInput
	if !h.decode(w, r, &input) {
		return
	}
	created, err := h.svc.Media.Create(r.Context(), input.toDomain(), h.actor(r))
	if err != nil {
		respondWithServiceError(w, r, err, "create media")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListMedia(w http.ResponseWriter, r *http.Request) {
	media, err := h.svc.Media.ListAll(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "retrieve media")
		return
	}
	respondWithJSON(w, http.StatusOK, media)
}

func (h *HTTPHandler) ListProductMedia(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	media, err := h.svc.Media.ListByProduct(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, r, err, "retrieve media")
		return
	}
	respondWithJSON(w, http.StatusOK, media)
}

func (h *HTTPHandler) GetMedia(w http.ResponseWriter, r *http.Request) {
	mediaID, ok := pathID(r, "mediaId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid media ID format")
		return
	}
	m, err := h.svc.Media.Get(r.Context(), mediaID)
	if err != nil {
		respondWithServiceError(w, r, err, "retrieve media")
		return
	}
	respondWithJSON(w, http.StatusOK, m)
}

func (h *HTTPHandler) UpdateMedia(w http.ResponseWriter, r *http.Request) {
	mediaID, ok := pathID(r, "mediaId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid media ID format")
		return
	}
	var input MediaInput
	if !h.decode(w, r, &input) {
		return
	}
	updated, err := h.svc.Media.Update(r.Context(), mediaID, input.toDomain(), h.actor(r))
	if err != nil {
		respondWithServiceError(w, r, err, "update media")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	mediaID, ok := pathID(r, "mediaId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid media ID format")
		return
	}
	if err := h.svc.Media.Delete(r.Context(), mediaID); err != nil {
		respondWithServiceError(w, r, err, "delete media")
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

// --- Feedback Handlers ---

// FeedbackInput defines the expected input for creating or updating feedback.
type FeedbackInput struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	UserID    int64   `json:"user_id" validate:"gte=0"`
	Rating    *int32  `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment   *string `json:"comment" validate:"omitempty,max=2000"`
}

func (in FeedbackInput) toDomain() domain.ProductFeedback {
	return domain.ProductFeedback{ProductID: in.ProductID, UserID: in.UserID, Rating: in.Rating, Comment: in.Comment}
}

func (h *HTTPHandler) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	var input FeedbackInput
	if !h.decode(w, r, &input) {
		return
	}
	created, err := h.svc.Feedback.Create(r.Context(), input.toDomain(), h.actor(r))
	if err != nil {
		respondWithServiceError(w, r, err, "create feedback")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	feedback, err := h.svc.Feedback.ListAll(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "retrieve feedback")
		return
	}
	respondWithJSON(w, http.StatusOK, feedback)
}

func (h *HTTPHandler) ListProductFeedback(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	feedback, err := h.svc.Feedback.ListByProduct(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, r, err, "retrieve feedback")
		return
	}
	respondWithJSON(w, http.StatusOK, feedback)
}

func (h *HTTPHandler) PageProductFeedback(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
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
	q := r.URL.Query()
	result, err := h.svc.Aggregator.FeedbackPage(r.Context(), productID, page, size, q.Get("sort_by"), q.Get("sort_order"))
	if err != nil {
		respondWithServiceError(w, r, err, "retrieve feedback")
		return
	}
	respondWithJSON(w, http.StatusOK, newPageResponse(result))
}

func (h *HTTPHandler) GetFeedback(w http.ResponseWriter, r *http.Request) {
	feedbackID, ok := pathID(r, "feedbackId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid feedback ID format")
		return
	}
	f, err := h.svc.Feedback.Get(r.Context(), feedbackID)
	if err != nil {
		respondWithServiceError(w, r, err, "retrieve feedback")
		return
	}
	respondWithJSON(w, http.StatusOK, f)
}

func (h *HTTPHandler) UpdateFeedback(w http.ResponseWriter, r *http.Request) {
	feedbackID, ok := pathID(r, "feedbackId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid feedback ID format")
		return
	}
	var input FeedbackInput
	if !h.decode(w, r, &input) {
		return
	}
	updated, err := h.svc.Feedback.Update(r.Context(), feedbackID, input.toDomain(), h.actor(r))
	if err != nil {
		respondWithServiceError(w, r, err, "update feedback")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteFeedback(w http.ResponseWriter, r *http.Request) {
	feedbackID, ok := pathID(r, "feedbackId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid feedback ID format")
		return
	}
	if err := h.svc.Feedback.Delete(r.Context(), feedbackID); err != nil {
		respondWithServiceError(w, r, err, "delete feedback")
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

// AverageRatingResponse carries a product's mean rating; null when unrated.
type AverageRatingResponse struct {
	ProductID     int64    `json:"product_id"`
	AverageRating *float64 `json:"average_rating"`
}

func (h *HTTPHandler) GetAverageRating(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	avg, err := h.svc.Aggregator.AverageRating(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, r, err, "compute average rating")
		return
	}
	respondWithJSON(w, http.StatusOK, AverageRatingResponse{ProductID: productID, AverageRating: avg})
}

type CommentCountResponse struct {
	ProductID    int64 `json:"product_id"`
	CommentCount int64 `json:"comment_count"`
}

func (h *HTTPHandler) GetCommentCount(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	n, err := h.svc.Aggregator.CommentCount(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, r, err, "count comments")
		return
	}
	respondWithJSON(w, http.StatusOK, CommentCountResponse{ProductID: productID, CommentCount: n})
}

// --- Chat Handlers ---

func (h *HTTPHandler) ChatRecommendCategory(w http.ResponseWriter, r *http.Request) {
	reply, err := h.svc.Chat.TopRated(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		respondWithServiceError(w, r, err, "build chat reply")
		return
	}
	respondWithJSON(w, http.StatusOK, reply)
}

func (h *HTTPHandler) ChatRecommendShortcut(w http.ResponseWriter, r *http.Request) {
	reply, err := h.svc.Chat.Shortcut(r.Context(), chi.URLParam(r, "shortcut"))
	if err != nil {
		respondWithServiceError(w, r, err, "build chat reply")
		return
	}
	respondWithJSON(w, http.StatusOK, reply)
}

func (h *HTTPHandler) ChatAbout(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.svc.Chat.About())
}

func (h *HTTPHandler) ChatPromotions(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.svc.Chat.Promotions())
}
