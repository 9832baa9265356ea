// Package forms reçoit les formulaires de contact et de mesures sur mesure.
package forms

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"threadsntrends_back_end/internal/auth"
	"threadsntrends_back_end/internal/handlers"
	"threadsntrends_back_end/internal/models"
	"threadsntrends_back_end/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type ContactStore interface {
	Create(ctx context.Context, c *models.Contact) error
	List(ctx context.Context, page, limit int64) ([]models.Contact, error)
	Delete(ctx context.Context, id string) error
}

type MeasurementStore interface {
	Create(ctx context.Context, m *models.Measurement) error
	List(ctx context.Context, userID string, page, limit int64) ([]models.Measurement, error)
	SetSubmitted(ctx context.Context, id string, submitted bool) (*models.Measurement, error)
}

type ContactNotifier interface {
	ContactReceived(ctx context.Context, contact models.Contact)
}

type Handler struct {
	contacts     ContactStore
	measurements MeasurementStore
	notifier     ContactNotifier
}

func NewHandler(contacts ContactStore, measurements MeasurementStore, notifier ContactNotifier) *Handler {
	return &Handler{contacts: contacts, measurements: measurements, notifier: notifier}
}

type contactRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Email   string `json:"email" binding:"required,email,max=254"`
	Subject string `json:"subject" binding:"required,max=200"`
	Message string `json:"message" binding:"required,max=5000"`
}

type measurementRequest struct {
	Height   models.Height              `json:"height"`
	Weight   float64                    `json:"weight" binding:"required,gt=0,lte=500"`
	BodyType string                     `json:"bodyType" binding:"required,max=50"`
	Shirt    models.ShirtMeasurements   `json:"shirtMeasurements"`
	Trouser  models.TrouserMeasurements `json:"trouserMeasurements"`
}

type submittedRequest struct {
	IsSubmitted *bool `json:"isSubmitted" binding:"required"`
}

func (h *Handler) SubmitContact(c *gin.Context) {
	var req contactRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.BadRequest(c, err)
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	contact := &models.Contact{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
	}
	if err := h.contacts.Create(ctx, contact); err != nil {
		formError(c, err)
		return
	}
	if h.notifier != nil {
		h.notifier.ContactReceived(ctx, *contact)
	}
	log.Info().Str("contact_id", contact.ID.Hex()).Msg("📨 Message de contact reçu")
	c.JSON(http.StatusCreated, gin.H{"message": "Message envoyé", "id": contact.ID.Hex()})
}

func (h *Handler) ListContacts(c *gin.Context) {
	page, limit := handlers.Pagination(c)
	ctx, cancel := handlers.Context(c)
	defer cancel()

	list, err := h.contacts.List(ctx, page, limit)
	if err != nil {
		formError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": list, "page": page, "limit": limit})
}

func (h *Handler) DeleteContact(c *gin.Context) {
	ctx, cancel := handlers.Context(c)
	defer cancel()

	if err := h.contacts.Delete(ctx, c.Param("id")); err != nil {
		formError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message supprimé"})
}

func (h *Handler) SubmitMeasurement(c *gin.Context) {
	var req measurementRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.BadRequest(c, err)
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	m := &models.Measurement{
		UserID:   auth.FromContext(c).UserID,
		Height:   req.Height,
		Weight:   req.Weight,
		BodyType: req.BodyType,
		Shirt:    req.Shirt,
		Trouser:  req.Trouser,
	}
	if err := h.measurements.Create(ctx, m); err != nil {
		formError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) MyMeasurements(c *gin.Context) {
	page, limit := handlers.Pagination(c)
	ctx, cancel := handlers.Context(c)
	defer cancel()

	list, err := h.measurements.List(ctx, auth.FromContext(c).UserID, page, limit)
	if err != nil {
		formError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"measurements": list})
}

func (h *Handler) ListMeasurements(c *gin.Context) {
	page, limit := handlers.Pagination(c)
	ctx, cancel := handlers.Context(c)
	defer cancel()

	list, err := h.measurements.List(ctx, c.Query("userId"), page, limit)
	if err != nil {
		formError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"measurements": list, "page": page, "limit": limit})
}

func (h *Handler) SetMeasurementSubmitted(c *gin.Context) {
	var req submittedRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.BadRequest(c, err)
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	m, err := h.measurements.SetSubmitted(ctx, c.Param("id"), *req.IsSubmitted)
	if err != nil {
		formError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func formError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Formulaire introuvable"})
		return
	}
	log.Error().Err(err).Str("path", c.FullPath()).Msg("❌ Erreur formulaire")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
}
