package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"invoicely/handlers"
	"invoicely/middleware"
	"invoicely/models"
	"invoicely/services/auth"
	"invoicely/utils"
)

type tokenAuth struct {
	auth.AuthService
}

func (tokenAuth) Authenticate(_ context.Context, token string) (*utils.Claims, error) {
	switch token {
	case "user":
		return &utils.Claims{Role: string(models.RoleUser), StandardClaims: jwt.StandardClaims{Subject: "u1"}}, nil
	case "admin":
		return &utils.Claims{Role: string(models.RoleAdmin), StandardClaims: jwt.StandardClaims{Subject: "a1"}}, nil
	}
	return nil, utils.NewError(utils.ErrUnauthorized, "bad token")
}

func (tokenAuth) Renew(*utils.Claims) (*auth.Renewal, error) { return nil, nil }

type healthy struct{}

func (healthy) Status() utils.HealthStatus { return utils.HealthStatus{Postgres: true} }

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := tokenAuth{}
	hb := &handlers.HandlerBundle{
		AuthService:  svc,
		GlobalLimit:  middleware.NewRateLimiter("global", 100, zap.NewNop()),
		LoginLimit:   middleware.NewRateLimiter("login", 1, zap.NewNop()),
		AllowOrigins: []string{"http://localhost:3000"},
		Auth:         handlers.NewAuthHandler(svc, utils.CookieConfig{}),
		Contacts:     handlers.NewContactHandler(nil),
		Invoices:     handlers.NewInvoiceHandler(nil, nil),
		Settings:     handlers.NewSettingsHandler(nil),
		Stock:        handlers.NewStockHandler(nil),
		Users:        handlers.NewUserHandler(nil),
		Currency:     handlers.NewCurrencyHandler(nil, "USD"),
		Activity:     handlers.NewActivityHandler(nil),
		Webhooks:     handlers.NewWebhookHandler(nil),
		Health:       handlers.NewHealthHandler(healthy{}),
	}
	r := gin.New()
	RegisterRoutes(r, hb)
	return r
}

func serve(r http.Handler, method, path, token string) int {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestHealthIsPublic(t *testing.T) {
	assert.Equal(t, http.StatusOK, serve(newEngine(), http.MethodGet, "/health", ""))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newEngine()
	for _, path := range []string{
		"/api/auth/me", "/api/contacts", "/api/invoices", "/api/payments?invoiceId=i1",
		"/api/settings", "/api/stock", "/api/currency/rates", "/api/activity", "/api/users",
	} {
		assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, path, ""), path)
	}
}

func TestUsersRequireAdmin(t *testing.T) {
	r := newEngine()
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodDelete, "/api/users/u2", "user"))
}

func TestLoginHasItsOwnLimiter(t *testing.T) {
	r := newEngine()
	// Bad bodies still consume the login budget.
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/api/auth/login", ""))
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/api/auth/login", ""))
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/invoices", ""))
}
