package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"threadsntrends_back_end/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RateLimiter compte les requêtes par fenêtre fixe dans Redis.
type RateLimiter struct {
	rdb redis.Cmdable
}

func NewRateLimiter(rdb redis.Cmdable) *RateLimiter {
	return &RateLimiter{rdb: rdb}
}

// ByIP identifie l'appelant par son adresse.
func ByIP(c *gin.Context) string {
	return c.ClientIP()
}

// ByUser préfère l'utilisateur connecté à l'adresse IP.
func ByUser(c *gin.Context) string {
	if p := auth.FromContext(c); p != nil {
		return "user:" + p.UserID
	}
	return c.ClientIP()
}

// Limit autorise max requêtes par fenêtre pour une portée donnée.
// Si Redis ne répond pas, la requête passe.
func (l *RateLimiter) Limit(scope string, max int64, window time.Duration, key func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()

		k := fmt.Sprintf("ratelimit:%s:%s", scope, key(c))
		count, err := l.rdb.Incr(ctx, k).Result()
		if err == nil && count == 1 {
			err = l.rdb.Expire(ctx, k, window).Err()
		}
		if err != nil {
			log.Warn().Err(err).Str("scope", scope).Msg("⚠️ Rate limit indisponible, requête acceptée")
			c.Next()
			return
		}

		remaining := max - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.FormatInt(max, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > max {
			ttl, _ := l.rdb.TTL(ctx, k).Result()
			if ttl < 0 {
				ttl = window
			}
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Trop de requêtes. Réessayez plus tard",
				"retry_after": int(ttl.Seconds()),
			})
			return
		}
		c.Next()
	}
}
