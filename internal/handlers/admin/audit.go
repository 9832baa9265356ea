// Package admin expose le journal d'audit aux administrateurs.
package admin

import (
	"context"
	"net/http"
	"strconv"

	"threadsntrends_back_end/internal/handlers"
	"threadsntrends_back_end/internal/models"
	"threadsntrends_back_end/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type AuditReader interface {
	List(ctx context.Context, f services.AuditFilter) ([]models.AuditLog, error)
}

type AuditHandler struct {
	logs AuditReader
}

func NewAuditHandler(logs AuditReader) *AuditHandler {
	return &AuditHandler{logs: logs}
}

// GetAuditLogs filtre par user_id, action et resource ; limit vaut 100 par défaut.
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	if h.logs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Journal d'audit non configuré"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	filter := services.AuditFilter{
		UserID:   c.Query("user_id"),
		Action:   c.Query("action"),
		Resource: c.Query("resource"),
		Limit:    limit,
	}

	ctx, cancel := handlers.Context(c)
	defer cancel()

	logs, err := h.logs.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("❌ Erreur lecture logs audit")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération logs"})
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
}
