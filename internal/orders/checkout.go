package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"threadsntrends_back_end/internal/models"
	"threadsntrends_back_end/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v83"
)

// Stripe refuse plus de 50 clés de metadata par session.
const maxMetadataKeys = 50

type CheckoutRequest struct {
	UserID                string
	CustomerName          string
	CustomerEmail         string
	ShippingAddress       models.Address
	BillingAddress        *models.Address
	BillingSameAsShipping bool
	PaymentMethod         models.PaymentMethod
	Products              []models.OrderProduct
	ShippingCost          *float64
	TotalAmount           float64
}

type CheckoutResult struct {
	OrderID   string        `json:"orderID"`
	SessionID string        `json:"sessionId,omitempty"`
	URL       string        `json:"url,omitempty"`
	Order     *models.Order `json:"order,omitempty"`
}

// Checkout crée une session Stripe (carte) ou directement la commande (COD).
// Nom et prix de chaque ligne viennent du catalogue ; le total envoyé par le
// client est recalculé sur cette base et comparé, jamais repris tel quel.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	products, err := s.priceFromCatalog(ctx, req.Products)
	if err != nil {
		return nil, err
	}
	req.Products = products
	req.CustomerEmail = NormalizeEmail(req.CustomerEmail)

	shipping, err := s.validateAmounts(req.Products, req.ShippingCost, req.TotalAmount)
	if err != nil {
		return nil, err
	}
	if req.BillingSameAsShipping || req.BillingAddress == nil {
		billing := req.ShippingAddress
		req.BillingAddress = &billing
	}

	switch req.PaymentMethod {
	case models.PaymentCOD:
		return s.checkoutCOD(ctx, req, shipping)
	case models.PaymentCard:
		return s.checkoutCard(ctx, req, shipping)
	default:
		return nil, ErrInvalidPaymentMethod
	}
}

// priceFromCatalog remplace nom et prix des lignes par ceux du catalogue
// et refuse les articles ou tailles inconnus.
func (s *Service) priceFromCatalog(ctx context.Context, lines []models.OrderProduct) ([]models.OrderProduct, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if s.catalog == nil {
		return nil, errors.New("catalogue produits non configuré")
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	found, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lecture du catalogue: %w", err)
	}
	byID := make(map[string]models.Product, len(found))
	for _, p := range found {
		byID[p.ID.Hex()] = p
	}

	priced := make([]models.OrderProduct, 0, len(lines))
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, l.ProductID)
		}
		if l.Size != "" && len(p.Sizes) > 0 && !containsFold(p.Sizes, l.Size) {
			return nil, fmt.Errorf("%w: %s (%s)", ErrUnknownSize, l.Size, p.Name)
		}
		l.Name = p.Name
		l.Price = p.Price
		priced = append(priced, l)
	}
	return priced, nil
}

func containsFold(values []string, v string) bool {
	for _, x := range values {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}

// NormalizeEmail ramène une adresse à sa forme stockée.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) validateAmounts(products []models.OrderProduct, shippingCost *float64, total float64) (float64, error) {
	if len(products) == 0 {
		return 0, ErrEmptyCart
	}
	shipping := s.settings.ShippingCost
	if shippingCost != nil && !withinTolerance(ComputeTotal(nil, shipping), *shippingCost) {
		return 0, fmt.Errorf("%w: attendu %.2f", ErrShippingMismatch, shipping)
	}
	expected := ComputeTotal(products, shipping)
	if !withinTolerance(expected, total) {
		return 0, fmt.Errorf("%w: attendu %s, reçu %.2f", ErrTotalMismatch, expected.StringFixed(2), total)
	}
	return shipping, nil
}

func (s *Service) checkoutCOD(ctx context.Context, req CheckoutRequest, shipping float64) (*CheckoutResult, error) {
	now := s.now()
	order := &models.Order{
		UserID:          req.UserID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  *req.BillingAddress,
		Products:        req.Products,
		TotalAmount:     ComputeTotal(req.Products, shipping).InexactFloat64(),
		ShippingCost:    shipping,
		Status:          models.StatusPending,
		PaymentMethod:   models.PaymentCOD,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.insertWithFreshID(ctx, order); err != nil {
		return nil, err
	}

	log.Info().Str("order_id", order.OrderID).Float64("total", order.TotalAmount).Msg("📦 Commande COD créée")
	s.afterCreate(ctx, *order)
	return &CheckoutResult{OrderID: order.OrderID, Order: order}, nil
}

// insertWithFreshID retente avec un nouvel identifiant en cas de collision.
func (s *Service) insertWithFreshID(ctx context.Context, order *models.Order) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		order.OrderID = s.newOrderID()
		err = s.orders.Insert(ctx, order)
		if !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
		log.Warn().Str("order_id", order.OrderID).Msg("⚠️ Collision d'identifiant de commande, nouvel essai")
	}
	return err
}

func (s *Service) checkoutCard(ctx context.Context, req CheckoutRequest, shipping float64) (*CheckoutResult, error) {
	orderID := s.newOrderID()
	params, err := s.sessionParams(orderID, req, shipping)
	if err != nil {
		return nil, err
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("❌ Création de la session Stripe impossible")
		return nil, fmt.Errorf("%w: %v", ErrPayment, err)
	}

	log.Info().Str("order_id", orderID).Str("session_id", sess.ID).Msg("💳 Session Stripe créée")
	return &CheckoutResult{OrderID: orderID, SessionID: sess.ID, URL: sess.URL}, nil
}

// sessionParams construit la session Checkout : une ligne par article,
// la livraison en option de transport fixe et tout le contexte de la
// commande dans les metadata, relues par le webhook.
func (s *Service) sessionParams(orderID string, req CheckoutRequest, shipping float64) (*stripe.CheckoutSessionParams, error) {
	metadata := map[string]string{
		"order_id":      orderID,
		"customerName":  req.CustomerName,
		"customerEmail": req.CustomerEmail,
		"shipping_cost": strconv.FormatFloat(shipping, 'f', 2, 64),
	}
	if req.UserID != "" {
		metadata["userId"] = req.UserID
	}
	flattenAddress(metadata, "shipping", req.ShippingAddress)
	flattenAddress(metadata, "billing", *req.BillingAddress)

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Products))
	for i, p := range req.Products {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(s.settings.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(p.Name),
				},
				UnitAmount: stripe.Int64(ToMinorUnits(p.Price)),
			},
			Quantity: stripe.Int64(p.Quantity),
		})
		size := p.Size
		if size == "" {
			size = "Default"
		}
		metadata[fmt.Sprintf("product_%d_size", i)] = size
		metadata[fmt.Sprintf("product_%d_id", i)] = p.ProductID
	}
	if len(metadata) > maxMetadataKeys {
		return nil, fmt.Errorf("%w: %d lignes", ErrTooManyLines, len(req.Products))
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(s.settings.SuccessURL),
		CancelURL:          stripe.String(s.settings.CancelURL),
		Metadata:           metadata,
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if shipping > 0 {
		params.ShippingOptions = []*stripe.CheckoutSessionShippingOptionParams{{
			ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
				DisplayName: stripe.String("Livraison standard"),
				Type:        stripe.String("fixed_amount"),
				FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
					Amount:   stripe.Int64(ToMinorUnits(shipping)),
					Currency: stripe.String(s.settings.Currency),
				},
			},
		}}
	}
	return params, nil
}

var addressFields = []string{"firstName", "lastName", "address", "apartment", "city", "state", "postalCode", "phone"}

func flattenAddress(md map[string]string, prefix string, a models.Address) {
	values := []string{a.FirstName, a.LastName, a.Address, a.Apartment, a.City, a.State, a.PostalCode, a.Phone}
	for i, field := range addressFields {
		if values[i] != "" {
			md[prefix+"_"+field] = values[i]
		}
	}
}

// afterCreate regroupe les effets de bord d'une commande durable.
// Aucun ne peut annuler la commande : les échecs sont journalisés.
func (s *Service) afterCreate(ctx context.Context, order models.Order) {
	if order.UserID != "" {
		if err := s.carts.Clear(ctx, order.UserID); err != nil {
			log.Warn().Err(err).Str("order_id", order.OrderID).Str("user_id", order.UserID).Msg("⚠️ Vidage du panier impossible")
		} else {
			log.Info().Str("user_id", order.UserID).Msg("🛒 Panier vidé après commande")
		}
	} else {
		log.Info().Str("order_id", order.OrderID).Msg("ℹ️ Commande sans userId, aucun panier à vider")
	}

	if s.stock != nil {
		shortfalls, err := s.stock.DecrementStock(ctx, order.Products)
		if err != nil {
			log.Error().Err(err).Str("order_id", order.OrderID).Msg("❌ Mise à jour du stock échouée")
		}
		for _, sf := range shortfalls {
			log.Warn().Str("order_id", order.OrderID).Str("product_id", sf.ProductID).Int64("requested", sf.Requested).Msg("⚠️ Stock insuffisant pour la commande")
		}
	}

	if s.events != nil {
		if err := s.events.PublishOrderCreated(ctx, order); err != nil {
			log.Warn().Err(err).Str("order_id", order.OrderID).Msg("⚠️ Publication de l'événement commande impossible")
		}
	}

	if s.notifier != nil {
		s.notifier.OrderCreated(ctx, order)
	}
}
