package middleware

import (
	"context"
	"time"

	"threadsntrends_back_end/internal/auth"
	"threadsntrends_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type AuditRecorder interface {
	Record(ctx context.Context, entry models.AuditLog) error
}

// Audit trace une action d'administration une fois le handler exécuté.
// param désigne le paramètre de route qui identifie la ressource.
func Audit(rec AuditRecorder, action, resource, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if rec == nil {
			return
		}

		entry := models.AuditLog{
			Action:     action,
			Resource:   resource,
			ResourceID: c.Param(param),
			IPAddress:  c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			Success:    c.Writer.Status() < 400,
			Timestamp:  time.Now().UTC(),
		}
		if id := c.GetString("audit_resource_id"); id != "" {
			entry.ResourceID = id
		}
		if p := auth.FromContext(c); p != nil {
			entry.UserID = p.UserID
			entry.UserEmail = p.Email
		}
		if !entry.Success {
			entry.ErrorMsg = c.Errors.String()
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := rec.Record(ctx, entry); err != nil {
				log.Error().Err(err).Str("action", action).Msg("❌ Erreur enregistrement log audit")
			}
		}()
	}
}
