package invoice

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"threadsntrends_back_end/internal/auth"
	"threadsntrends_back_end/internal/handlers"
	invoicepdf "threadsntrends_back_end/internal/invoice"
	"threadsntrends_back_end/internal/models"
	"threadsntrends_back_end/internal/orders"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type OrderGetter interface {
	Get(ctx context.Context, orderID string) (*models.Order, error)
}

type Renderer interface {
	Render(order models.Order) ([]byte, error)
}

type Handler struct {
	orders   OrderGetter
	renderer Renderer
}

func NewHandler(orders OrderGetter, renderer Renderer) *Handler {
	return &Handler{orders: orders, renderer: renderer}
}

// DownloadInvoice renvoie la facture PDF d'une commande. Un administrateur
// voit toutes les factures ; sinon il faut être le titulaire du compte ou,
// pour une commande invité, fournir l'email de la commande comme au suivi.
func (h *Handler) DownloadInvoice(c *gin.Context) {
	orderID := c.Param("orderID")
	ctx, cancel := handlers.Context(c)
	defer cancel()

	order, err := h.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
			return
		}
		log.Error().Err(err).Str("order_id", orderID).Msg("❌ Lecture commande impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
		return
	}
	if !canRead(auth.FromContext(c), order, c.Query("email")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}

	pdf, err := h.renderer.Render(*order)
	if err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("❌ Génération de la facture impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Génération de la facture impossible"})
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+invoicepdf.Filename(order.OrderID))
	c.Header("Cache-Control", "private, no-store")
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func canRead(p *auth.Principal, order *models.Order, email string) bool {
	if p.IsAdmin() {
		return true
	}
	if p != nil && p.UserID != "" && p.UserID == order.UserID {
		return true
	}
	return email != "" && strings.EqualFold(strings.TrimSpace(email), strings.TrimSpace(order.CustomerEmail))
}
