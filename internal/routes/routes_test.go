package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"donation-platform/internal/config"
	"donation-platform/internal/handlers"
	"donation-platform/internal/payments"
	ws "donation-platform/internal/websocket"
)

const secret = "routes-secret"

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	hub := ws.NewHub(log)
	gw := payments.NewStripeGateway("", "", log)

	return New(Handlers{
		Intent:    handlers.NewPaymentIntentHandler(gw, hub, log),
		Records:   &handlers.RecordHandler{Stripe: gw, Notifier: hub, Log: log},
		Webhook:   handlers.NewWebhookHandler(gw, nil, hub, log),
		Admin:     handlers.NewAdminHandler(nil, hub, log),
		Profile:   handlers.NewProfileHandler(nil, nil, log),
		Auth:      handlers.NewAuthHandler(nil, log),
		WebSocket: handlers.NewWebSocketHandler(hub, secret, nil, log),
		Public:    handlers.NewPublicConfig(config.Config{}),
	}, Options{JWTSecret: secret, Origins: []string{"*"}, Log: log})
}

func token(t *testing.T, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":          "user-1",
		"app_metadata": map[string]interface{}{"role": role},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func serve(r *gin.Engine, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreatePaymentIntentRejectsOtherMethods(t *testing.T) {
	r := newRouter(t)
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := serve(r, method, "/create-payment-intent", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String())
	}
}

func TestCreatePaymentIntentWithoutKey(t *testing.T) {
	r := newRouter(t)
	rec := serve(r, http.MethodPost, "/create-payment-intent", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), payments.MissingSecretKeyMessage)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	r := newRouter(t)
	for _, path := range []string{"/api/me", "/api/me/badge", "/api/me/donations", "/api/me/memberships"} {
		assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, path, "").Code, path)
	}
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/api/memberships/manual", "").Code)
}

func TestAdminRoutesNeedAdminRole(t *testing.T) {
	r := newRouter(t)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/admin/donations", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/api/admin/donations", token(t, "")).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodPatch, "/api/admin/memberships/abc/status", token(t, "member")).Code)
}

func TestPublicRoutes(t *testing.T) {
	r := newRouter(t)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/config/public", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/webhook/stripe", "").Code)
}
