package user

import (
	"context"
	"errors"
	"net/http"

	"threadsntrends_back_end/internal/auth"
	"threadsntrends_back_end/internal/handlers"
	"threadsntrends_back_end/internal/models"
	"threadsntrends_back_end/internal/orders"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type OrderReader interface {
	Mine(ctx context.Context, userID string, page, limit int64) ([]models.Order, int64, error)
	Track(ctx context.Context, orderID, email string) (*models.Order, error)
}

type OrderHandler struct {
	orders OrderReader
}

func NewOrderHandler(orders OrderReader) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// GetMyOrders liste les commandes rattachées au compte. Les commandes passées
// en invité restent accessibles par le suivi avec e-mail.
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	p := auth.FromContext(c)
	page, limit := handlers.Pagination(c)
	ctx, cancel := handlers.Context(c)
	defer cancel()

	list, total, err := h.orders.Mine(ctx, p.UserID, page, limit)
	if err != nil {
		log.Error().Err(err).Str("user_id", p.UserID).Msg("❌ Erreur récupération commandes")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commandes"})
		return
	}
	if list == nil {
		list = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": list, "total": total, "page": page, "limit": limit})
}

func (h *OrderHandler) TrackOrder(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email requis"})
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	order, err := h.orders.Track(ctx, c.Param("orderID"), email)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
			return
		}
		log.Error().Err(err).Msg("❌ Suivi de commande impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orderID":   order.OrderID,
		"status":    order.Status,
		"products":  order.Products,
		"total":     order.TotalAmount,
		"createdAt": order.CreatedAt,
		"updatedAt": order.UpdatedAt,
	})
}
