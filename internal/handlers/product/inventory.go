package product

import (
	"net/http"

	"threadsntrends_back_end/internal/handlers"
	"threadsntrends_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type stockRequest struct {
	Stock        *int64 `json:"stock" binding:"required,gte=0"`
	ReorderLevel *int64 `json:"reorderLevel" binding:"omitempty,gte=0"`
}

func (h *Handler) GetInventory(c *gin.Context) {
	page, limit := handlers.Pagination(c)
	ctx, cancel := handlers.Context(c)
	defer cancel()

	list, total, err := h.products.List(ctx, models.ProductFilter{Category: c.Query("category"), Page: page, Limit: limit})
	if err != nil {
		productError(c, err)
		return
	}
	items := make([]models.InventoryItem, 0, len(list))
	for _, p := range list {
		items = append(items, models.InventoryFromProduct(p))
	}
	c.JSON(http.StatusOK, gin.H{"inventory": items, "total": total, "page": page, "limit": limit})
}

func (h *Handler) UpdateStock(c *gin.Context) {
	var req stockRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.BadRequest(c, err)
		return
	}
	id := c.Param("id")
	ctx, cancel := handlers.Context(c)
	defer cancel()

	p, err := h.products.SetStock(ctx, id, *req.Stock, req.ReorderLevel)
	if err != nil {
		productError(c, err)
		return
	}
	h.invalidate(ctx, id)

	item := models.InventoryFromProduct(*p)
	if item.LowStock {
		log.Warn().Str("product_id", id).Int64("stock", item.Stock).Msg("⚠️ Stock sous le seuil de réapprovisionnement")
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) GetLowStock(c *gin.Context) {
	ctx, cancel := handlers.Context(c)
	defer cancel()

	list, err := h.products.LowStock(ctx)
	if err != nil {
		productError(c, err)
		return
	}
	items := make([]models.InventoryItem, 0, len(list))
	for _, p := range list {
		items = append(items, models.InventoryFromProduct(p))
	}
	c.JSON(http.StatusOK, gin.H{"products": items, "count": len(items)})
}
