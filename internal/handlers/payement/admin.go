package payement

import (
	"net/http"
	"strconv"

	"threadsntrends_back_end/internal/auth"
	"threadsntrends_back_end/internal/handlers"
	"threadsntrends_back_end/internal/models"
	"threadsntrends_back_end/internal/orders"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type adminCreateRequest struct {
	checkoutRequest
	UserID string             `json:"userId" binding:"max=100"`
	Status models.OrderStatus `json:"status" binding:"omitempty,orderstatus"`
}

// totalAmount est volontairement absent : il est toujours recalculé.
type updateOrderRequest struct {
	Status          *models.OrderStatus   `json:"status" binding:"omitempty,orderstatus"`
	CustomerName    *string               `json:"customerName" binding:"omitempty,min=1,max=200"`
	CustomerEmail   *string               `json:"customerEmail" binding:"omitempty,email"`
	ShippingAddress *models.Address       `json:"shippingAddress"`
	BillingAddress  *models.Address       `json:"billingAddress"`
	Products        []models.OrderProduct `json:"products" binding:"omitempty,max=100,dive"`
	ShippingCost    *float64              `json:"shippingCost" binding:"omitempty,gte=0"`
}

type statusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required,orderstatus"`
}

func (h *Handler) ListOrders(c *gin.Context) {
	page, limit := handlers.Pagination(c)
	filter := models.OrderFilter{
		Status:        models.OrderStatus(c.Query("status")),
		CustomerEmail: c.Query("email"),
		Page:          page,
		Limit:         limit,
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	list, total, err := h.orders.List(ctx, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	if list == nil {
		list = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": list, "total": total, "page": page, "limit": limit})
}

func (h *Handler) GetOrder(c *gin.Context) {
	ctx, cancel := handlers.Context(c)
	defer cancel()

	order, err := h.orders.Get(ctx, c.Param("orderID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req adminCreateRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.BadRequest(c, err)
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	order, err := h.orders.Create(ctx, req.toDomain(req.UserID), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("audit_resource_id", order.OrderID)
	log.Info().Str("order_id", order.OrderID).Str("admin", adminID(c)).Msg("📦 Commande créée par un administrateur")
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) UpdateOrder(c *gin.Context) {
	var req updateOrderRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.BadRequest(c, err)
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	order, err := h.orders.Update(ctx, c.Param("orderID"), orders.OrderPatch{
		Status:          req.Status,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Products:        req.Products,
		ShippingCost:    req.ShippingCost,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.BadRequest(c, err)
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	order, err := h.orders.UpdateStatus(ctx, c.Param("orderID"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) DeleteOrder(c *gin.Context) {
	ctx, cancel := handlers.Context(c)
	defer cancel()

	if err := h.orders.Delete(ctx, c.Param("orderID")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Commande supprimée"})
}

func (h *Handler) Stats(c *gin.Context) {
	ctx, cancel := handlers.Context(c)
	defer cancel()

	stats, err := h.orders.Stats(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// DeadLetters liste les webhooks en échec, les plus récents d'abord.
func (h *Handler) DeadLetters(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	ctx, cancel := handlers.Context(c)
	defer cancel()

	list, err := h.deadLetters.List(ctx, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if list == nil {
		list = []models.WebhookDeadLetter{}
	}
	c.JSON(http.StatusOK, gin.H{"deadLetters": list, "count": len(list)})
}

func adminID(c *gin.Context) string {
	if p := auth.FromContext(c); p != nil {
		return p.UserID
	}
	return ""
}
