package product

import (
	"bytes"
	"io"
	"net/http"

	"threadsntrends_back_end/internal/handlers"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const maxImageBytes = 5 << 20

// UploadProductImage envoie la photo dans MinIO et rattache sa clé au produit.
func (h *Handler) UploadProductImage(c *gin.Context) {
	if h.images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Stockage d'images non configuré"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageBytes+1<<10)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fichier manquant"})
		return
	}
	defer file.Close()
	if header.Size > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image trop lourde (5 Mo max)"})
		return
	}

	// le type annoncé par le client n'est pas fiable
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fichier illisible"})
		return
	}
	head = head[:n]
	contentType := http.DetectContentType(head)

	id := c.Param("id")
	ctx, cancel := handlers.Context(c)
	defer cancel()

	if _, err := h.products.FindByID(ctx, id); err != nil {
		productError(c, err)
		return
	}

	key, err := h.images.Upload(ctx, id, io.MultiReader(bytes.NewReader(head), file), header.Size, contentType)
	if err != nil {
		log.Warn().Err(err).Str("content_type", contentType).Msg("❌ Upload image refusé")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Format d'image non supporté (jpeg, png, webp)"})
		return
	}
	p, err := h.products.AddImage(ctx, id, key)
	if err != nil {
		productError(c, err)
		return
	}
	h.invalidate(ctx, id)
	h.resolveImages(ctx, p)
	c.JSON(http.StatusCreated, gin.H{"message": "Image ajoutée au produit", "key": key, "product": p})
}
