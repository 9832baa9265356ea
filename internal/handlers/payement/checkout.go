package payement

import (
	"net/http"

	"threadsntrends_back_end/internal/auth"
	"threadsntrends_back_end/internal/handlers"
	"threadsntrends_back_end/internal/models"
	"threadsntrends_back_end/internal/orders"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type checkoutRequest struct {
	Products              []models.OrderProduct `json:"products" binding:"required,min=1,max=100,dive"`
	CustomerName          string                `json:"customerName" binding:"required,max=200"`
	CustomerEmail         string                `json:"customerEmail" binding:"required,email"`
	ShippingAddress       models.Address        `json:"shippingAddress"`
	BillingAddress        *models.Address       `json:"billingAddress" binding:"required_unless=BillingSameAsShipping true"`
	BillingSameAsShipping bool                  `json:"billingSameAsShipping"`
	PaymentMethod         models.PaymentMethod  `json:"paymentMethod" binding:"required,paymentmethod"`
	TotalAmount           float64               `json:"totalAmount" binding:"required,gt=0"`
	ShippingCost          *float64              `json:"shippingCost" binding:"omitempty,gte=0"`
}

func (r checkoutRequest) toDomain(userID string) orders.CheckoutRequest {
	return orders.CheckoutRequest{
		UserID:                userID,
		CustomerName:          r.CustomerName,
		CustomerEmail:         r.CustomerEmail,
		ShippingAddress:       r.ShippingAddress,
		BillingAddress:        r.BillingAddress,
		BillingSameAsShipping: r.BillingSameAsShipping,
		PaymentMethod:         r.PaymentMethod,
		Products:              r.Products,
		ShippingCost:          r.ShippingCost,
		TotalAmount:           r.TotalAmount,
	}
}

// Checkout ouvre une session Stripe pour un paiement carte, ou enregistre
// directement la commande pour un paiement à la livraison.
func (h *Handler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.BadRequest(c, err)
		return
	}

	var userID string
	if p := auth.FromContext(c); p != nil {
		userID = p.UserID
	}

	ctx, cancel := handlers.Context(c)
	defer cancel()

	res, err := h.orders.Checkout(ctx, req.toDomain(userID))
	if err != nil {
		writeError(c, err)
		return
	}

	if req.PaymentMethod == models.PaymentCOD {
		log.Info().Str("order_id", res.OrderID).Msg("📦 Commande COD enregistrée")
		c.JSON(http.StatusCreated, gin.H{"orderID": res.OrderID, "order": res.Order})
		return
	}
	log.Info().Str("order_id", res.OrderID).Str("session_id", res.SessionID).Msg("💳 Session Checkout créée")
	c.JSON(http.StatusOK, gin.H{"sessionId": res.SessionID, "url": res.URL, "orderID": res.OrderID})
}

// OrderStatus sert la page de retour de Stripe.
func (h *Handler) OrderStatus(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id requis"})
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	st, err := h.orders.SessionStatus(ctx, sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
