package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"chalet/config"
	otelMocks "chalet/infras/otel/mocks"
	cacheMocks "chalet/shared/cache/mocks"
	"chalet/shared/constant"
)

func TestAppMiddleware_RateLimit(t *testing.T) {
	tests := []struct {
		name          string
		count         int64
		cacheErr      error
		wantCode      int
		wantRemaining string
		wantRetry     string
	}{
		{name: "first request", count: 1, wantCode: http.StatusNoContent, wantRemaining: "2"},
		{name: "last request in window", count: 3, wantCode: http.StatusNoContent, wantRemaining: "0"},
		{name: "over the limit", count: 4, wantCode: http.StatusTooManyRequests, wantRemaining: "0", wantRetry: "60"},
		{name: "redis down lets requests through", cacheErr: errors.New("dial tcp: connection refused"), wantCode: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			cache := cacheMocks.NewMockRedisCache(ctrl)

			cfg := &config.Config{}
			cfg.App.RateLimiter.Enable = true
			cfg.App.RateLimiter.MaxRequests = 3
			cfg.App.RateLimiter.WindowSeconds = 60

			cache.EXPECT().
				Increment(gomock.Any(), "limiter:203.0.113.9:curl", 60).
				Return(tt.count, tt.cacheErr)

			app := NewAppMiddleware(otelMocks.NewOtel(), cfg, cache)
			handler := app.RateLimit()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/properties", nil)
			req.Header.Set(constant.RequestHeaderForwardedFor, "203.0.113.9, 10.0.0.1")
			req.Header.Set(constant.RequestHeaderUserAgent, "curl")

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantRemaining, rec.Header().Get(constant.RequestHeaderRateLimitRemaining))
			assert.Equal(t, tt.wantRetry, rec.Header().Get(constant.RequestHeaderRetryAfter))
		})
	}
}

func TestAppMiddleware_RateLimitDisabled(t *testing.T) {
	ctrl := gomock.NewController(t)

	app := NewAppMiddleware(otelMocks.NewOtel(), &config.Config{}, cacheMocks.NewMockRedisCache(ctrl))
	handler := app.RateLimit()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/properties", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
