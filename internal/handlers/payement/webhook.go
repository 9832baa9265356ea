package payement

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v83/webhook"
)

const (
	maxWebhookBytes = 65536
	webhookTimeout  = 20 * time.Second
)

// StripeWebhook vérifie la signature puis réconcilie l'événement.
// Un échec déposé en lettre morte est acquitté ; sinon on répond 500
// pour que Stripe renvoie l'événement.
func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes))
	if err != nil {
		log.Warn().Err(err).Msg("❌ Lecture payload webhook échouée")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Échec lecture body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		log.Warn().Err(err).Msg("❌ Signature Stripe invalide")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
		return
	}
	log.Info().Str("event_id", event.ID).Str("event_type", string(event.Type)).Msg("📥 Événement Stripe reçu")

	ctx, cancel := context.WithTimeout(c.Request.Context(), webhookTimeout)
	defer cancel()
	res := h.orders.HandleEvent(ctx, event)

	body := gin.H{"received": true, "outcome": res.Kind}
	if res.OrderID != "" {
		body["orderID"] = res.OrderID
	}
	if !res.Failed() {
		c.JSON(http.StatusOK, body)
		return
	}

	log.Error().Err(res.Err).Str("event_id", event.ID).Str("session_id", res.SessionID).
		Bool("dead_lettered", res.DeadLettered).Msg("❌ Réconciliation du webhook échouée")
	if res.DeadLettered {
		body["deadLettered"] = true
		c.JSON(http.StatusOK, body)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Traitement impossible, réessayez"})
}
