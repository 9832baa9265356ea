// Package product expose le catalogue, l'inventaire et les avis.
package product

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"threadsntrends_back_end/internal/handlers"
	"threadsntrends_back_end/internal/models"
	"threadsntrends_back_end/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	imageURLTTL = time.Hour
	searchLimit = 50
)

type ProductStore interface {
	Create(ctx context.Context, p *models.Product) error
	FindByID(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context, f models.ProductFilter) ([]models.Product, int64, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	Replace(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
	AddImage(ctx context.Context, id, url string) (*models.Product, error)
	SetStock(ctx context.Context, id string, stock int64, reorderLevel *int64) (*models.Product, error)
	LowStock(ctx context.Context) ([]models.Product, error)
}

type ReviewStore interface {
	Create(ctx context.Context, rev *models.Review) error
	ListByProduct(ctx context.Context, productID string, page, limit int64) ([]models.Review, error)
	Rating(ctx context.Context, productID string) (*models.ProductRating, error)
}

type Cache interface {
	Get(ctx context.Context, id string) (*models.Product, bool)
	Set(ctx context.Context, p *models.Product)
	Invalidate(ctx context.Context, id string)
}

type SearchIndex interface {
	Index(ctx context.Context, p models.Product) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

type ImageStore interface {
	Upload(ctx context.Context, productID string, r io.Reader, size int64, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Deps regroupe les dépendances ; Cache, Index et Images sont facultatifs.
type Deps struct {
	Products ProductStore
	Reviews  ReviewStore
	Cache    Cache
	Index    SearchIndex
	Images   ImageStore
}

type Handler struct {
	products ProductStore
	reviews  ReviewStore
	cache    Cache
	index    SearchIndex
	images   ImageStore
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		products: d.Products,
		reviews:  d.Reviews,
		cache:    d.Cache,
		index:    d.Index,
		images:   d.Images,
	}
}

func (h *Handler) ListProducts(c *gin.Context) {
	page, limit := handlers.Pagination(c)
	filter := models.ProductFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Page:     page,
		Limit:    limit,
	}
	if v, err := strconv.ParseBool(c.Query("featured")); err == nil {
		filter.Featured = &v
	}

	ctx, cancel := handlers.Context(c)
	defer cancel()

	list, total, err := h.products.List(ctx, filter)
	if err != nil {
		productError(c, err)
		return
	}
	for i := range list {
		h.resolveImages(ctx, &list[i])
	}
	c.JSON(http.StatusOK, gin.H{"products": list, "total": total, "page": page, "limit": limit})
}

func (h *Handler) GetProduct(c *gin.Context) {
	ctx, cancel := handlers.Context(c)
	defer cancel()

	p, err := h.find(ctx, c.Param("id"))
	if err != nil {
		productError(c, err)
		return
	}
	h.resolveImages(ctx, p)
	c.JSON(http.StatusOK, p)
}

// SearchProducts interroge Elasticsearch et retombe sur une recherche
// Mongo par nom quand l'index ne répond pas.
func (h *Handler) SearchProducts(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paramètre q requis"})
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	var (
		results []models.Product
		source  = "elasticsearch"
	)
	if h.index != nil {
		ids, err := h.index.Search(ctx, q, searchLimit)
		if err == nil {
			results, err = h.hydrate(ctx, ids)
		}
		if err != nil {
			log.Warn().Err(err).Str("query", q).Msg("⚠️ Recherche Elasticsearch indisponible, repli sur MongoDB")
			results = nil
		}
	}
	if results == nil {
		source = "mongodb"
		list, _, err := h.products.List(ctx, models.ProductFilter{Search: q, Page: 1, Limit: searchLimit})
		if err != nil {
			productError(c, err)
			return
		}
		results = list
	}
	for i := range results {
		h.resolveImages(ctx, &results[i])
	}
	c.JSON(http.StatusOK, gin.H{"products": results, "count": len(results), "source": source})
}

// hydrate recharge les produits depuis Mongo en gardant l'ordre de pertinence.
func (h *Handler) hydrate(ctx context.Context, ids []string) ([]models.Product, error) {
	found, err := h.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Product, len(found))
	for _, p := range found {
		byID[p.ID.Hex()] = p
	}
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (h *Handler) find(ctx context.Context, id string) (*models.Product, error) {
	if h.cache != nil {
		if p, ok := h.cache.Get(ctx, id); ok {
			return p, nil
		}
	}
	p, err := h.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.cache != nil {
		h.cache.Set(ctx, p)
	}
	return p, nil
}

// resolveImages remplace les clés MinIO par des URLs signées.
func (h *Handler) resolveImages(ctx context.Context, p *models.Product) {
	if h.images == nil || len(p.Images) == 0 {
		return
	}
	urls := make([]string, 0, len(p.Images))
	for _, key := range p.Images {
		u, err := h.images.PresignedURL(ctx, key, imageURLTTL)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("⚠️ URL signée impossible")
			continue
		}
		urls = append(urls, u)
	}
	p.Images = urls
}

func (h *Handler) invalidate(ctx context.Context, id string) {
	if h.cache != nil {
		h.cache.Invalidate(ctx, id)
	}
}

func productError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrInvalidID):
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
	case errors.Is(err, repository.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "Produit déjà existant"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("❌ Erreur catalogue")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
	}
}
