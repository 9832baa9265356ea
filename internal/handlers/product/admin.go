package product

import (
	"context"
	"net/http"

	"threadsntrends_back_end/internal/handlers"
	"threadsntrends_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type productRequest struct {
	Name         string   `json:"name" binding:"required,max=200"`
	Description  string   `json:"description" binding:"max=5000"`
	Price        float64  `json:"price" binding:"required,gt=0"`
	Category     string   `json:"category" binding:"required,max=100"`
	Stock        int64    `json:"stock" binding:"gte=0"`
	ReorderLevel *int64   `json:"reorderLevel" binding:"omitempty,gte=0"`
	Sizes        []string `json:"sizes" binding:"max=20,dive,required,max=20"`
	Images       []string `json:"images" binding:"max=20,dive,required,max=500"`
	IsFeatured   bool     `json:"isFeatured"`
}

func (r productRequest) apply(p *models.Product) {
	p.Name = r.Name
	p.Description = r.Description
	p.Price = r.Price
	p.Category = r.Category
	p.Stock = r.Stock
	if r.ReorderLevel != nil {
		p.ReorderLevel = *r.ReorderLevel
	}
	p.Sizes = r.Sizes
	p.Images = r.Images
	p.IsFeatured = r.IsFeatured
	if p.Sizes == nil {
		p.Sizes = []string{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.BadRequest(c, err)
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	var p models.Product
	req.apply(&p)
	if err := h.products.Create(ctx, &p); err != nil {
		productError(c, err)
		return
	}
	c.Set("audit_resource_id", p.ID.Hex())
	h.reindex(ctx, p)
	log.Info().Str("product_id", p.ProductID).Str("name", p.Name).Msg("✅ Produit créé")
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	var req productRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.BadRequest(c, err)
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	p, err := h.products.FindByID(ctx, c.Param("id"))
	if err != nil {
		productError(c, err)
		return
	}
	req.apply(p)
	if err := h.products.Replace(ctx, p); err != nil {
		productError(c, err)
		return
	}
	h.invalidate(ctx, c.Param("id"))
	h.reindex(ctx, *p)
	c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	id := c.Param("id")
	ctx, cancel := handlers.Context(c)
	defer cancel()

	if err := h.products.Delete(ctx, id); err != nil {
		productError(c, err)
		return
	}
	h.invalidate(ctx, id)
	if h.index != nil {
		if err := h.index.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Str("product_id", id).Msg("⚠️ Désindexation Elasticsearch impossible")
		}
	}
	log.Info().Str("product_id", id).Msg("🗑️ Produit supprimé")
	c.JSON(http.StatusOK, gin.H{"message": "Produit supprimé"})
}

// reindex ne bloque jamais l'écriture Mongo : l'index est reconstruit au
// prochain enregistrement.
func (h *Handler) reindex(ctx context.Context, p models.Product) {
	if h.index == nil {
		return
	}
	if err := h.index.Index(ctx, p); err != nil {
		log.Warn().Err(err).Str("product_id", p.ID.Hex()).Msg("⚠️ Indexation Elasticsearch impossible")
	}
}
