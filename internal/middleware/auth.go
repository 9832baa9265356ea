package middleware

import (
	"net/http"
	"strings"

	"threadsntrends_back_end/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type TokenParser interface {
	Parse(token string) (*auth.Principal, error)
}

func bearer(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		// le navigateur ne peut pas poser d'en-tête sur une websocket
		if t := c.Query("token"); t != "" && c.IsWebsocket() {
			return t, true
		}
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthRequired refuse toute requête sans jeton valide.
func AuthRequired(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token manquant"})
			return
		}
		p, err := tokens.Parse(raw)
		if err != nil {
			log.Debug().Err(err).Str("path", c.FullPath()).Msg("❌ JWT refusé")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token invalide"})
			return
		}
		auth.WithPrincipal(c, p)
		c.Next()
	}
}

// OptionalAuth attache l'utilisateur s'il présente un jeton valide,
// sans bloquer les invités.
func OptionalAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearer(c); ok {
			if p, err := tokens.Parse(raw); err == nil {
				auth.WithPrincipal(c, p)
			}
		}
		c.Next()
	}
}

// RequireRole s'utilise après AuthRequired.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := auth.FromContext(c)
		if p == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
			return
		}
		if p.Role != role {
			log.Warn().Str("user_id", p.UserID).Str("path", c.FullPath()).Msg("⛔ Accès refusé")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Accès réservé aux administrateurs"})
			return
		}
		c.Next()
	}
}
