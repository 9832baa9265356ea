package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/checkout/session"
)

// StripeGateway enveloppe l'API Checkout de Stripe.
type StripeGateway struct{}

func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	log.Info().Msg("💳 Client Stripe initialisé")
	return &StripeGateway{}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return session.New(params)
}

// GetCheckoutSession relit la session puis toutes ses lignes, page par page.
// L'expansion line_items s'arrête aux dix premières lignes.
func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := session.Get(sessionID, params)
	if err != nil {
		return nil, err
	}

	listParams := &stripe.CheckoutSessionListLineItemsParams{Session: stripe.String(sessionID)}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(100)
	listParams.AddExpand("data.price.product")

	var items []*stripe.LineItem
	it := session.ListLineItems(listParams)
	for it.Next() {
		items = append(items, it.LineItem())
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("lignes de la session %s: %w", sessionID, err)
	}
	sess.LineItems = &stripe.LineItemList{Data: items}
	return sess, nil
}
