package product

import (
	"net/http"
	"strings"

	"threadsntrends_back_end/internal/auth"
	"threadsntrends_back_end/internal/handlers"
	"threadsntrends_back_end/internal/models"

	"github.com/gin-gonic/gin"
)

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

func (h *Handler) CreateReview(c *gin.Context) {
	var req reviewRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.BadRequest(c, err)
		return
	}
	productID := c.Param("id")
	ctx, cancel := handlers.Context(c)
	defer cancel()

	if _, err := h.find(ctx, productID); err != nil {
		productError(c, err)
		return
	}

	p := auth.FromContext(c)
	name, _, _ := strings.Cut(p.Email, "@")
	rev := &models.Review{
		ProductID: productID,
		UserID:    p.UserID,
		UserName:  name,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	}
	if err := h.reviews.Create(ctx, rev); err != nil {
		productError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rev)
}

func (h *Handler) GetReviews(c *gin.Context) {
	productID := c.Param("id")
	page, limit := handlers.Pagination(c)
	ctx, cancel := handlers.Context(c)
	defer cancel()

	reviews, err := h.reviews.ListByProduct(ctx, productID, page, limit)
	if err != nil {
		productError(c, err)
		return
	}
	rating, err := h.reviews.Rating(ctx, productID)
	if err != nil {
		productError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "rating": rating})
}
