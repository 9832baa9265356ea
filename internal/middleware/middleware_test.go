package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"threadsntrends_back_end/internal/auth"
	"threadsntrends_back_end/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubTokens map[string]*auth.Principal

func (s stubTokens) Parse(token string) (*auth.Principal, error) {
	if p, ok := s[token]; ok {
		return p, nil
	}
	return nil, errors.New("unknown token")
}

var tokens = stubTokens{
	"user-token":  {UserID: "u1", Email: "u1@example.com", Role: models.RoleUser},
	"admin-token": {UserID: "a1", Email: "admin@example.com", Role: models.RoleAdmin},
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthGuards(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthRequired(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, auth.FromContext(c).UserID)
	})
	r.GET("/admin", AuthRequired(tokens), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/maybe", OptionalAuth(tokens), func(c *gin.Context) {
		if p := auth.FromContext(c); p != nil {
			c.String(http.StatusOK, p.UserID)
			return
		}
		c.String(http.StatusOK, "guest")
	})

	assert.Equal(t, http.StatusUnauthorized, do(r, "GET", "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "GET", "/me", "forged").Code)
	w := do(r, "GET", "/me", "user-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())

	assert.Equal(t, http.StatusForbidden, do(r, "GET", "/admin", "user-token").Code)
	assert.Equal(t, http.StatusNoContent, do(r, "GET", "/admin", "admin-token").Code)

	assert.Equal(t, "guest", do(r, "GET", "/maybe", "").Body.String())
	assert.Equal(t, "guest", do(r, "GET", "/maybe", "forged").Body.String())
	assert.Equal(t, "u1", do(r, "GET", "/maybe", "user-token").Body.String())
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRateLimiter(rdb)

	r := gin.New()
	r.POST("/contact", limiter.Limit("contact", 2, time.Minute, ByIP), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	first := do(r, "POST", "/contact", "")
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusCreated, do(r, "POST", "/contact", "").Code)
	blocked := do(r, "POST", "/contact", "")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "60", blocked.Header().Get("Retry-After"))

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusCreated, do(r, "POST", "/contact", "").Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	limiter := NewRateLimiter(rdb)
	mr.Close()

	r := gin.New()
	r.GET("/x", limiter.Limit("x", 1, time.Minute, ByUser), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, do(r, "GET", "/x", "").Code)
}

type recorder struct {
	mu      sync.Mutex
	entries []models.AuditLog
	done    chan struct{}
}

func (r *recorder) Record(_ context.Context, e models.AuditLog) error {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func TestAuditRecordsOutcome(t *testing.T) {
	rec := &recorder{done: make(chan struct{}, 2)}
	r := gin.New()
	r.DELETE("/orders/:orderID", AuthRequired(tokens), Audit(rec, "order.delete", "order", "orderID"), func(c *gin.Context) {
		if c.Param("orderID") == "ORD-MISSING0" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
			return
		}
		c.Status(http.StatusNoContent)
	})

	do(r, "DELETE", "/orders/ORD-1A2B3C4D", "admin-token")
	do(r, "DELETE", "/orders/ORD-MISSING0", "admin-token")
	for i := 0; i < 2; i++ {
		select {
		case <-rec.done:
		case <-time.After(2 * time.Second):
			t.Fatal("audit non enregistré")
		}
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.entries, 2)
	byID := map[string]models.AuditLog{}
	for _, e := range rec.entries {
		byID[e.ResourceID] = e
	}
	assert.True(t, byID["ORD-1A2B3C4D"].Success)
	assert.Equal(t, "a1", byID["ORD-1A2B3C4D"].UserID)
	assert.False(t, byID["ORD-MISSING0"].Success)
}
