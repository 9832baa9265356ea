package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"threadsntrends_back_end/internal/models"
	"threadsntrends_back_end/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v83"
)

const (
	EventCheckoutCompleted = "checkout.session.completed"

	placeholder      = "Not provided"
	guestFirstName   = "Guest"
	guestLastName    = "User"
	guestName        = "Guest User"
	guestEmail       = "no-email@example.com"
	defaultSize      = "Default"
	defaultItemLabel = "Article"
)

type OutcomeKind string

const (
	OutcomeCreated   OutcomeKind = "created"
	OutcomeDuplicate OutcomeKind = "duplicate"
	OutcomeIgnored   OutcomeKind = "ignored"
	OutcomeRetryable OutcomeKind = "retryable_failure"
	OutcomePermanent OutcomeKind = "permanent_failure"
)

// Outcome est le résultat typé d'une réconciliation de webhook.
type Outcome struct {
	Kind      OutcomeKind
	OrderID   string
	SessionID string
	Err       error
}

func (o Outcome) Failed() bool {
	return o.Kind == OutcomeRetryable || o.Kind == OutcomePermanent
}

type WebhookResult struct {
	Outcome
	DeadLettered bool
}

func retryable(sessionID string, err error) Outcome {
	return Outcome{Kind: OutcomeRetryable, SessionID: sessionID, Err: err}
}

func permanent(sessionID string, err error) Outcome {
	return Outcome{Kind: OutcomePermanent, SessionID: sessionID, Err: err}
}

// HandleEvent traite un événement Stripe dont la signature a déjà été vérifiée.
// Tout échec est déposé dans le puits de lettres mortes ; DeadLettered
// indique si ce dépôt a réussi.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) WebhookResult {
	if string(event.Type) != EventCheckoutCompleted {
		log.Debug().Str("event_type", string(event.Type)).Msg("ℹ️ Événement Stripe ignoré")
		return WebhookResult{Outcome: Outcome{Kind: OutcomeIgnored}}
	}

	var out Outcome
	var sess stripe.CheckoutSession
	switch {
	case event.Data == nil:
		out = permanent("", errors.New("événement sans données"))
	case json.Unmarshal(event.Data.Raw, &sess) != nil || sess.ID == "":
		out = permanent("", errors.New("session illisible dans l'événement"))
	default:
		out = s.ReconcileSession(ctx, sess.ID)
	}

	result := WebhookResult{Outcome: out}
	if !out.Failed() {
		return result
	}

	dl := models.WebhookDeadLetter{
		EventID:   event.ID,
		EventType: string(event.Type),
		SessionID: out.SessionID,
		OrderID:   sess.Metadata["order_id"],
		Kind:      deadLetterKind(out.Kind),
		Reason:    out.Err.Error(),
		Attempts:  1,
		CreatedAt: s.now(),
	}
	if err := s.deadLetters.Record(ctx, dl); err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("🚨 Impossible d'enregistrer la lettre morte du webhook")
		return result
	}
	result.DeadLettered = true
	return result
}

func deadLetterKind(k OutcomeKind) models.DeadLetterKind {
	if k == OutcomePermanent {
		return models.DeadLetterPermanent
	}
	return models.DeadLetterRetryable
}

// ReconcileSession transforme une session Checkout payée en commande.
// Rejouer la même session ne crée jamais de seconde commande.
func (s *Service) ReconcileSession(ctx context.Context, sessionID string) Outcome {
	existing, err := s.orders.FindBySessionID(ctx, sessionID)
	if err == nil {
		log.Info().Str("session_id", sessionID).Str("order_id", existing.OrderID).Msg("♻️ Session déjà traitée")
		return Outcome{Kind: OutcomeDuplicate, OrderID: existing.OrderID, SessionID: sessionID}
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return retryable(sessionID, fmt.Errorf("recherche de la session: %w", err))
	}

	sess, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return permanent(sessionID, fmt.Errorf("session inconnue chez Stripe: %w", err))
		}
		return retryable(sessionID, fmt.Errorf("lecture de la session Stripe: %w", err))
	}

	order, err := s.orderFromSession(sess)
	if err != nil {
		if errors.Is(err, ErrTotalMismatch) {
			log.Error().Err(err).Str("session_id", sessionID).Msg("🚨 Session Stripe incohérente, commande non enregistrée")
			return permanent(sessionID, err)
		}
		log.Warn().Err(err).Str("session_id", sessionID).Msg("⚠️ Lignes de la session incomplètes, nouvelle tentative")
		return retryable(sessionID, err)
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			log.Info().Str("session_id", sessionID).Str("order_id", order.OrderID).Msg("♻️ Commande déjà enregistrée par une livraison concurrente")
			return Outcome{Kind: OutcomeDuplicate, OrderID: order.OrderID, SessionID: sessionID}
		}
		log.Error().Err(err).Str("session_id", sessionID).Str("order_id", order.OrderID).Msg("❌ Enregistrement de la commande échoué")
		return retryable(sessionID, err)
	}

	log.Info().Str("order_id", order.OrderID).Str("session_id", sessionID).Float64("total", order.TotalAmount).Msg("✅ Commande carte créée")
	s.afterCreate(ctx, *order)
	return Outcome{Kind: OutcomeCreated, OrderID: order.OrderID, SessionID: sessionID}
}

// orderFromSession reconstruit la commande ; les champs manquants reçoivent
// une valeur par défaut plutôt que de faire échouer le webhook. Les lignes
// doivent être complètes et leur somme égale au montant encaissé.
func (s *Service) orderFromSession(sess *stripe.CheckoutSession) (*models.Order, error) {
	md := sess.Metadata
	if sess.LineItems == nil || sess.LineItems.HasMore {
		return nil, ErrIncompleteLineItems
	}

	orderID := md["order_id"]
	if orderID == "" {
		orderID = OrderIDForSession(sess.ID)
		log.Warn().Str("session_id", sess.ID).Str("order_id", orderID).Msg("⚠️ order_id absent des metadata, identifiant dérivé de la session")
	}

	var details stripe.CheckoutSessionCustomerDetails
	if sess.CustomerDetails != nil {
		details = *sess.CustomerDetails
	}

	name := firstNonEmpty(md["customerName"], details.Name, guestName)
	email := NormalizeEmail(firstNonEmpty(md["customerEmail"], details.Email, sess.CustomerEmail, guestEmail))
	first, last := splitName(name)

	fallback := models.Address{
		FirstName:  first,
		LastName:   last,
		Address:    placeholder,
		City:       placeholder,
		PostalCode: placeholder,
		Phone:      firstNonEmpty(details.Phone, placeholder),
	}
	if a := details.Address; a != nil {
		fallback.Address = firstNonEmpty(a.Line1, placeholder)
		fallback.Apartment = a.Line2
		fallback.City = firstNonEmpty(a.City, placeholder)
		fallback.State = a.State
		fallback.PostalCode = firstNonEmpty(a.PostalCode, placeholder)
	}

	products := make([]models.OrderProduct, 0, len(sess.LineItems.Data))
	for i, li := range sess.LineItems.Data {
		products = append(products, productFromLineItem(i, li, md))
	}

	shipping := s.settings.ShippingCost
	switch {
	case sess.ShippingCost != nil:
		shipping = fromMinorUnits(sess.ShippingCost.AmountTotal).InexactFloat64()
	case md["shipping_cost"] != "":
		if v, err := strconv.ParseFloat(md["shipping_cost"], 64); err == nil {
			shipping = v
		}
	}

	total := ComputeTotal(products, shipping)
	if !withinTolerance(total, fromMinorUnits(sess.AmountTotal).InexactFloat64()) {
		return nil, fmt.Errorf("%w: recalculé %s, encaissé %s", ErrTotalMismatch, total.StringFixed(2), fromMinorUnits(sess.AmountTotal).StringFixed(2))
	}

	now := s.now()
	order := &models.Order{
		OrderID:         orderID,
		UserID:          md["userId"],
		CustomerName:    name,
		CustomerEmail:   email,
		ShippingAddress: addressFromMetadata(md, "shipping", fallback),
		BillingAddress:  addressFromMetadata(md, "billing", fallback),
		Products:        products,
		TotalAmount:     total.InexactFloat64(),
		ShippingCost:    shipping,
		Status:          models.StatusProcessing,
		PaymentMethod:   models.PaymentCard,
		Stripe:          &models.StripeInfo{SessionID: sess.ID},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if sess.PaymentIntent != nil {
		order.Stripe.PaymentIntentID = sess.PaymentIntent.ID
	}
	return order, nil
}

func productFromLineItem(i int, li *stripe.LineItem, md map[string]string) models.OrderProduct {
	qty := li.Quantity
	if qty <= 0 {
		qty = 1
	}
	unit := fromMinorUnits(li.AmountTotal).Div(decimal.NewFromInt(qty)).Round(2)

	productID := md[fmt.Sprintf("product_%d_id", i)]
	if productID == "" && li.Price != nil && li.Price.Product != nil {
		productID = li.Price.Product.ID
	}
	if productID == "" {
		productID = li.ID
	}

	return models.OrderProduct{
		ProductID: productID,
		Name:      firstNonEmpty(li.Description, defaultItemLabel),
		Quantity:  qty,
		Price:     unit.InexactFloat64(),
		Size:      firstNonEmpty(md[fmt.Sprintf("product_%d_size", i)], defaultSize),
	}
}

func addressFromMetadata(md map[string]string, prefix string, fallback models.Address) models.Address {
	get := func(field, def string) string {
		return firstNonEmpty(md[prefix+"_"+field], def)
	}
	return models.Address{
		FirstName:  get("firstName", fallback.FirstName),
		LastName:   get("lastName", fallback.LastName),
		Address:    get("address", fallback.Address),
		Apartment:  get("apartment", fallback.Apartment),
		City:       get("city", fallback.City),
		State:      get("state", fallback.State),
		PostalCode: get("postalCode", fallback.PostalCode),
		Phone:      get("phone", fallback.Phone),
	}
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return guestFirstName, guestLastName
	case 1:
		return parts[0], guestLastName
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
