// Package handlers regroupe les outils partagés par les handlers HTTP :
// binding JSON strict, validation et pagination.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"threadsntrends_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	RequestTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

var ErrUnknownField = errors.New("champ inconnu")

func init() {
	binding.EnableDecoderDisallowUnknownFields = true
}

// RegisterValidators ajoute les règles métier au validateur de gin.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("moteur de validation inattendu")
	}
	if err := v.RegisterValidation("orderstatus", func(fl validator.FieldLevel) bool {
		return models.OrderStatus(fl.Field().String()).Valid()
	}); err != nil {
		return err
	}
	return v.RegisterValidation("paymentmethod", func(fl validator.FieldLevel) bool {
		return models.PaymentMethod(fl.Field().String()).Valid()
	})
}

// BindJSON lit le corps via le binding JSON de gin, borné à 1 Mo, puis
// applique les tags binding. Les champs inconnus sont refusés.
func BindJSON(c *gin.Context, dst any) error {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(dst); err != nil {
		if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		if errors.Is(err, io.EOF) {
			return errors.New("corps de requête vide")
		}
		return err
	}
	return nil
}

// ValidationMessage rend une erreur de binding lisible côté client.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: règle %q non respectée", fe.Namespace(), fe.Tag()))
		}
		return strings.Join(msgs, "; ")
	}
	return err.Error()
}

func BadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ValidationMessage(err)})
}

// Context borne la durée des appels vers les bases et les services externes.
func Context(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), RequestTimeout)
}

func Pagination(c *gin.Context) (page, limit int64) {
	page, _ = strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	limit, _ = strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
