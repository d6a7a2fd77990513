package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chalet/config"
	"chalet/infras/jwt"
	otelMocks "chalet/infras/otel/mocks"
	"chalet/permissions"
	"chalet/shared"
	"chalet/shared/constant"
	"chalet/transport/http/middleware"
)

func newRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()

	auth := middleware.NewAuthRoleMiddleware(jwt.New(cfg), otelMocks.NewOtel(), permissions.Get(), cfg)

	echo := func(w http.ResponseWriter, r *http.Request) {
		user, role := shared.Actor(r.Context())
		w.Header().Set("X-Actor", user+"/"+role)
		w.WriteHeader(http.StatusNoContent)
	}

	router := chi.NewRouter()
	router.Group(func(group chi.Router) {
		group.Use(auth.APIKey, auth.Auth, auth.RBAC)
		group.Route("/v1", func(v1 chi.Router) {
			v1.Get("/properties/{id}/availability", echo)
			v1.Get("/bookings/{id}", echo)
			v1.Post("/payments/{id}/approve", echo)
		})
	})

	return router
}

func TestAuthRole(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.AccessSecret = "secret"
	cfg.JWT.AccessExpireMin = 15
	cfg.App.APIKey = "internal-key"

	issuer := jwt.New(cfg)

	userToken, err := issuer.GenerateToken("guest-1", constant.RoleUser)
	require.NoError(t, err)

	adminToken, err := issuer.GenerateToken("admin-1", constant.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name      string
		method    string
		path      string
		header    map[string]string
		wantCode  int
		wantActor string
	}{
		{
			name:     "public endpoint without token",
			method:   http.MethodGet,
			path:     "/v1/properties/7/availability",
			wantCode: http.StatusNoContent,
		},
		{
			name:     "missing token",
			method:   http.MethodGet,
			path:     "/v1/bookings/1",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "garbage token",
			method:   http.MethodGet,
			path:     "/v1/bookings/1",
			header:   map[string]string{constant.RequestHeaderAuthorization: "Bearer nope"},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:      "user token",
			method:    http.MethodGet,
			path:      "/v1/bookings/1",
			header:    map[string]string{constant.RequestHeaderAuthorization: "Bearer " + userToken},
			wantCode:  http.StatusNoContent,
			wantActor: "guest-1/user",
		},
		{
			name:     "user cannot moderate",
			method:   http.MethodPost,
			path:     "/v1/payments/9/approve",
			header:   map[string]string{constant.RequestHeaderAuthorization: "Bearer " + userToken},
			wantCode: http.StatusForbidden,
		},
		{
			name:      "admin moderates",
			method:    http.MethodPost,
			path:      "/v1/payments/9/approve",
			header:    map[string]string{constant.RequestHeaderAuthorization: "Bearer " + adminToken},
			wantCode:  http.StatusNoContent,
			wantActor: "admin-1/admin",
		},
		{
			name:      "internal api key",
			method:    http.MethodPost,
			path:      "/v1/payments/9/approve",
			header:    map[string]string{constant.RequestHeaderAPIKey: "internal-key"},
			wantCode:  http.StatusNoContent,
			wantActor: constant.SystemActor + "/" + constant.RoleSuperAdmin,
		},
		{
			name:     "wrong api key",
			method:   http.MethodPost,
			path:     "/v1/payments/9/approve",
			header:   map[string]string{constant.RequestHeaderAPIKey: "guess"},
			wantCode: http.StatusForbidden,
		},
	}

	router := newRouter(t, cfg)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			for key, value := range tt.header {
				req.Header.Set(key, value)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)

			if tt.wantActor != "" {
				assert.Equal(t, tt.wantActor, rec.Header().Get("X-Actor"))
			}
		})
	}
}
