package user

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"threadsntrends_back_end/internal/auth"
	"threadsntrends_back_end/internal/cache"
	"threadsntrends_back_end/internal/handlers"
	"threadsntrends_back_end/internal/models"
	"threadsntrends_back_end/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type CartStore interface {
	Add(ctx context.Context, userID string, item models.CartItem) (*models.CartItem, error)
	Increase(ctx context.Context, userID, productID string) (*models.CartItem, error)
	Decrease(ctx context.Context, userID, productID string) (*models.CartItem, error)
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (*models.Cart, error)
	Subscribe(ctx context.Context, userID string) *redis.PubSub
}

type ProductFinder interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
}

type CartHandler struct {
	carts    CartStore
	products ProductFinder
}

func NewCartHandler(carts CartStore, products ProductFinder) *CartHandler {
	return &CartHandler{carts: carts, products: products}
}

// Le prix et le nom viennent toujours du catalogue.
type addToCartRequest struct {
	ProductID string `json:"productId" binding:"required,max=64"`
	Quantity  int64  `json:"quantity" binding:"omitempty,gte=1,lte=99"`
	Size      string `json:"size" binding:"max=20"`
}

func (h *CartHandler) GetCart(c *gin.Context) {
	ctx, cancel := handlers.Context(c)
	defer cancel()

	cart, err := h.carts.Get(ctx, auth.FromContext(c).UserID)
	if err != nil {
		cartError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) AddToCart(c *gin.Context) {
	var req addToCartRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.BadRequest(c, err)
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	product, err := h.products.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
			return
		}
		cartError(c, err)
		return
	}
	if req.Size != "" && len(product.Sizes) > 0 && !hasSize(product.Sizes, req.Size) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Taille indisponible"})
		return
	}

	item := models.CartItem{
		ProductID: req.ProductID,
		Name:      product.Name,
		Price:     product.Price,
		Quantity:  req.Quantity,
		Size:      req.Size,
	}
	if len(product.Images) > 0 {
		item.Image = product.Images[0]
	}

	userID := auth.FromContext(c).UserID
	added, err := h.carts.Add(ctx, userID, item)
	if err != nil {
		cartError(c, err)
		return
	}
	log.Info().Str("user_id", userID).Str("product_id", req.ProductID).Int64("quantity", added.Quantity).Msg("🛒 Article ajouté au panier")
	c.JSON(http.StatusOK, gin.H{"message": "Produit ajouté au panier", "item": added})
}

func (h *CartHandler) IncreaseQuantity(c *gin.Context) {
	ctx, cancel := handlers.Context(c)
	defer cancel()

	item, err := h.carts.Increase(ctx, auth.FromContext(c).UserID, c.Param("productId"))
	if err != nil {
		cartError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

// DecreaseQuantity ne descend jamais sous 1 : retirer l'article passe par DELETE.
func (h *CartHandler) DecreaseQuantity(c *gin.Context) {
	ctx, cancel := handlers.Context(c)
	defer cancel()

	item, err := h.carts.Decrease(ctx, auth.FromContext(c).UserID, c.Param("productId"))
	if err != nil {
		cartError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	ctx, cancel := handlers.Context(c)
	defer cancel()

	if err := h.carts.Remove(ctx, auth.FromContext(c).UserID, c.Param("productId")); err != nil {
		cartError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Article retiré du panier"})
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	ctx, cancel := handlers.Context(c)
	defer cancel()

	if err := h.carts.Clear(ctx, auth.FromContext(c).UserID); err != nil {
		cartError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Panier vidé"})
}

func cartError(c *gin.Context, err error) {
	if errors.Is(err, cache.ErrItemNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article absent du panier"})
		return
	}
	if errors.Is(err, cache.ErrQuantityLimit) {
		c.JSON(http.StatusConflict, gin.H{"error": "Quantité maximale atteinte"})
		return
	}
	log.Error().Err(err).Str("path", c.FullPath()).Msg("❌ Erreur panier")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
}

func hasSize(sizes []string, size string) bool {
	for _, s := range sizes {
		if strings.EqualFold(s, size) {
			return true
		}
	}
	return false
}
