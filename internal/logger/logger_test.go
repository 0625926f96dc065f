package logger

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
}

func TestContextLoggerCarriesFields(t *testing.T) {
	buf := &bytes.Buffer{}
	base := New(Options{ServiceName: "catalog-test", Level: zerolog.DebugLevel, Output: buf})

	ctx := WithRequestID(base.WithContext(context.Background()), "req-123")
	FromContext(ctx).Info().Msg("hello")

	assert.Contains(t, buf.String(), `"request_id":"req-123"`)
	assert.Contains(t, buf.String(), `"service":"catalog-test"`)
}

func TestFromContextFallsBackToGlobal(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "global", Output: buf})

	FromContext(context.Background()).Warn().Msg("no request")
	assert.Contains(t, buf.String(), `"service":"global"`)
}

func TestMiddlewareAttachesRequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	base := New(Options{ServiceName: "mw", Output: buf})

	h := middleware.RequestID(Middleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info().Msg("inside")
	})))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), `"request_id":"abc"`)
}
