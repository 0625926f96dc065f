// Package orders is the HTTP client for the order-history service.
package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"

	"product-service/internal/catalog"
	"product-service/internal/logger"
)

const serviceName = "order-history"

// Config configures the client and its circuit breaker.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// The breaker opens once MinRequests calls in an interval have failed
	// at FailureRatio or more, and probes again after OpenTimeout.
	MinRequests  uint32
	FailureRatio float64
	OpenTimeout  time.Duration
}

// Recorder counts upstream call results.
type Recorder interface {
	RecordUpstream(service, result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordUpstream(string, string) {}

// Client implements catalog.PurchaseHistory over HTTP.
type Client struct {
	baseURL  string
	http     *http.Client
	cb       *gobreaker.CircuitBreaker[[]int64]
	recorder Recorder
}

// errNotFound marks a 404, which the breaker does not count as a failure.
var errNotFound = errors.New("orders: user has no order history")

func newBreaker(cfg Config) *gobreaker.CircuitBreaker[[]int64] {
	var st gobreaker.Settings
	st.Name = serviceName
	st.Timeout = cfg.OpenTimeout
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.Requests == 0 {
			return false
		}
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureRatio
	}
	st.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, errNotFound)
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
	}
	return gobreaker.NewCircuitBreaker[[]int64](st)
}

// NewClient builds a client. recorder may be nil.
func NewClient(cfg Config, recorder Recorder) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 3
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = 0.6
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		http:     &http.Client{Timeout: cfg.Timeout},
		cb:       newBreaker(cfg),
		recorder: recorder,
	}
}

// GetPurchasedProductIDs returns the ids of every product the user has
// ordered. Failures are wrapped in catalog.ErrUpstreamUnavailable.
func (c *Client) GetPurchasedProductIDs(ctx context.Context, userID int64) ([]int64, error) {
	ids, err := c.cb.Execute(func() ([]int64, error) {
		return c.fetch(ctx, userID)
	})
	switch {
	case err == nil:
		c.recorder.RecordUpstream(serviceName, "ok")
		return ids, nil
	case errors.Is(err, errNotFound):
		c.recorder.RecordUpstream(serviceName, "not_found")
		return []int64{}, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.recorder.RecordUpstream(serviceName, "rejected")
	default:
		c.recorder.RecordUpstream(serviceName, "error")
	}
	logger.FromContext(ctx).Warn().Err(err).Int64("user_id", userID).Msg("order history request failed")
	return nil, fmt.Errorf("%w: %s: %v", catalog.ErrUpstreamUnavailable, serviceName, err)
}

func (c *Client) fetch(ctx context.Context, userID int64) ([]int64, error) {
	url := fmt.Sprintf("%s/orders/users/%d/product-ids", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("order history request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("order history returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read order history response: %w", err)
	}
	return decodeIDs(body)
}

// decodeIDs accepts either a bare JSON array or a {"data": [...]} envelope.
func decodeIDs(body []byte) ([]int64, error) {
	trimmed := bytes.TrimSpace(body)
	ids := []int64{}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &ids); err != nil {
			return nil, fmt.Errorf("decode order history: %w", err)
		}
		return ids, nil
	}
	var envelope struct {
		Data []int64 `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode order history: %w", err)
	}
	if envelope.Data != nil {
		ids = envelope.Data
	}
	return ids, nil
}
