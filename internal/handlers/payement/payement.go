// Package payement expose la caisse, le webhook Stripe et l'administration
// des commandes.
package payement

import (
	"context"
	"errors"
	"net/http"

	"threadsntrends_back_end/internal/models"
	"threadsntrends_back_end/internal/orders"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v83"
)

type OrderService interface {
	Checkout(ctx context.Context, req orders.CheckoutRequest) (*orders.CheckoutResult, error)
	HandleEvent(ctx context.Context, event stripe.Event) orders.WebhookResult
	SessionStatus(ctx context.Context, sessionID string) (*orders.SessionStatus, error)

	List(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error)
	Get(ctx context.Context, orderID string) (*models.Order, error)
	Create(ctx context.Context, req orders.CheckoutRequest, status models.OrderStatus) (*models.Order, error)
	Update(ctx context.Context, orderID string, patch orders.OrderPatch) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error)
	Delete(ctx context.Context, orderID string) error
	Stats(ctx context.Context) (*models.OrderStats, error)
}

type DeadLetterLister interface {
	List(ctx context.Context, limit int64) ([]models.WebhookDeadLetter, error)
}

type Handler struct {
	orders        OrderService
	deadLetters   DeadLetterLister
	webhookSecret string
}

func NewHandler(svc OrderService, deadLetters DeadLetterLister, webhookSecret string) *Handler {
	return &Handler{orders: svc, deadLetters: deadLetters, webhookSecret: webhookSecret}
}

// writeError traduit les erreurs métier en statut HTTP ; le détail des
// erreurs techniques reste dans les logs.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
	case errors.Is(err, orders.ErrEmptyCart),
		errors.Is(err, orders.ErrTotalMismatch),
		errors.Is(err, orders.ErrShippingMismatch),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, orders.ErrInvalidPaymentMethod),
		errors.Is(err, orders.ErrTooManyLines),
		errors.Is(err, orders.ErrUnknownProduct),
		errors.Is(err, orders.ErrUnknownSize):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, orders.ErrPayment):
		log.Error().Err(err).Str("path", c.FullPath()).Msg("❌ Erreur Stripe")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Le paiement n'a pas pu être initialisé"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("❌ Erreur interne")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
	}
}
