package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkside/internal/entities"
	"parkside/internal/repository/memory"
	"parkside/internal/service"
)

func TestMiddlewareAcceptsIssuedToken(t *testing.T) {
	store := memory.NewStore()
	authSvc := service.NewAuthService(store, "test-secret")
	ctx := context.Background()

	user, err := authSvc.Register(ctx, entities.RegisterRequest{
		FullName: "Asha Rao", Email: "asha@example.com", Password: "hunter22",
	})
	require.NoError(t, err)
	login, err := authSvc.Login(ctx, "asha@example.com", "hunter22")
	require.NoError(t, err)

	var got *service.Claims
	handler := Middleware(authSvc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/lots", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.UserID)
}

func TestMiddlewareRejectsBadTokens(t *testing.T) {
	store := memory.NewStore()
	authSvc := service.NewAuthService(store, "test-secret")
	handler := Middleware(authSvc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, header := range []string{"", "Bearer garbage", "Basic abc"} {
		req := httptest.NewRequest("GET", "/api/lots", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestAdminOnly(t *testing.T) {
	handler := AdminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/admin/summary", nil)
	req = req.WithContext(WithClaims(req.Context(), &service.Claims{UserID: 1, IsAdmin: false}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest("GET", "/admin/summary", nil)
	req = req.WithContext(WithClaims(req.Context(), &service.Claims{UserID: 1, IsAdmin: true}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
