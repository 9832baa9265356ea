package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"threadsntrends_back_end/internal/auth"
	"threadsntrends_back_end/internal/handlers"
	"threadsntrends_back_end/internal/handlers/admin"
	"threadsntrends_back_end/internal/handlers/forms"
	"threadsntrends_back_end/internal/handlers/invoice"
	"threadsntrends_back_end/internal/handlers/payement"
	"threadsntrends_back_end/internal/handlers/product"
	"threadsntrends_back_end/internal/handlers/user"
	"threadsntrends_back_end/internal/middleware"
	"threadsntrends_back_end/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = handlers.RegisterValidators()
}

func newRouter(t *testing.T) (*gin.Engine, *auth.TokenManager) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	h := Handlers{
		Payment:  payement.NewHandler(nil, nil, "whsec_test"),
		Auth:     user.NewAuthHandler(nil, tokens, nil, "http://localhost:3000"),
		Cart:     user.NewCartHandler(nil, nil),
		Orders:   user.NewOrderHandler(nil),
		Products: product.NewHandler(product.Deps{}),
		Invoice:  invoice.NewHandler(nil, nil),
		Forms:    forms.NewHandler(nil, nil, nil),
		Audit:    admin.NewAuditHandler(nil),
	}
	r := gin.New()
	RegisterRoutes(r, h, Options{
		Tokens:      tokens,
		Limiter:     middleware.NewRateLimiter(rdb),
		CORSOrigins: []string{"http://localhost:3000"},
		RatePerMin:  100,
		Upgrader:    user.NewUpgrader([]string{"http://localhost:3000"}),
	})
	return r, tokens
}

func token(t *testing.T, tm *auth.TokenManager, role string) string {
	tok, err := tm.Issue(models.User{ID: primitive.NewObjectID(), Email: "a@example.com", Role: role})
	require.NoError(t, err)
	return tok
}

func send(r http.Handler, method, path, body, tok string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newRouter(t)
	w := send(r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuards(t *testing.T) {
	r, tm := newRouter(t)

	assert.Equal(t, http.StatusUnauthorized, send(r, http.MethodGet, "/api/cart", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, send(r, http.MethodGet, "/api/admin/orders", "", "").Code)
	assert.Equal(t, http.StatusForbidden, send(r, http.MethodGet, "/api/admin/orders", "", token(t, tm, models.RoleUser)).Code)

	// le journal d'audit n'est pas configuré : le garde laisse passer l'admin
	w := send(r, http.MethodGet, "/api/admin/audit-logs", "", token(t, tm, models.RoleAdmin))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCheckoutRejectsInvalidBodyBeforeService(t *testing.T) {
	r, _ := newRouter(t)
	w := send(r, http.MethodPost, "/api/checkout", `{"products": []}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestContactIsRateLimited(t *testing.T) {
	r, _ := newRouter(t)
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusBadRequest, send(r, http.MethodPost, "/api/contact", `{}`, "").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, send(r, http.MethodPost, "/api/contact", `{}`, "").Code)
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/cart", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
