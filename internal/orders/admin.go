package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"threadsntrends_back_end/internal/models"
	"threadsntrends_back_end/internal/repository"

	"github.com/rs/zerolog/log"
)

// OrderPatch décrit une correction d'administration. Un champ nil est laissé tel quel.
type OrderPatch struct {
	Status          *models.OrderStatus
	CustomerName    *string
	CustomerEmail   *string
	ShippingAddress *models.Address
	BillingAddress  *models.Address
	Products        []models.OrderProduct
	ShippingCost    *float64
}

type SessionStatus struct {
	State   string        `json:"status"`
	OrderID string        `json:"orderID,omitempty"`
	Order   *models.Order `json:"order,omitempty"`
}

func mapNotFound(err error, orderID string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, orderID)
	}
	return err
}

func (s *Service) List(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	return s.orders.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, mapNotFound(err, orderID)
	}
	return order, nil
}

// Create enregistre une commande saisie par un administrateur.
// Le total est contrôlé comme à la caisse ; le panier client n'est pas touché.
func (s *Service) Create(ctx context.Context, req CheckoutRequest, status models.OrderStatus) (*models.Order, error) {
	if status == "" {
		status = models.StatusPending
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if !req.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	shipping, err := s.validateAmounts(req.Products, req.ShippingCost, req.TotalAmount)
	if err != nil {
		return nil, err
	}
	req.CustomerEmail = NormalizeEmail(req.CustomerEmail)
	billing := req.ShippingAddress
	if !req.BillingSameAsShipping && req.BillingAddress != nil {
		billing = *req.BillingAddress
	}

	now := s.now()
	order := &models.Order{
		UserID:          req.UserID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billing,
		Products:        req.Products,
		TotalAmount:     ComputeTotal(req.Products, shipping).InexactFloat64(),
		ShippingCost:    shipping,
		Status:          status,
		PaymentMethod:   req.PaymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.insertWithFreshID(ctx, order); err != nil {
		return nil, err
	}
	if s.events != nil {
		if err := s.events.PublishOrderCreated(ctx, *order); err != nil {
			log.Warn().Err(err).Str("order_id", order.OrderID).Msg("⚠️ Publication de l'événement commande impossible")
		}
	}
	return order, nil
}

// Update applique une correction. Si les articles ou la livraison changent,
// totalAmount est recalculé côté serveur.
func (s *Service) Update(ctx context.Context, orderID string, patch OrderPatch) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		order.Status = *patch.Status
	}
	if patch.CustomerName != nil {
		order.CustomerName = *patch.CustomerName
	}
	if patch.CustomerEmail != nil {
		order.CustomerEmail = NormalizeEmail(*patch.CustomerEmail)
	}
	if patch.ShippingAddress != nil {
		order.ShippingAddress = *patch.ShippingAddress
	}
	if patch.BillingAddress != nil {
		order.BillingAddress = *patch.BillingAddress
	}
	if patch.Products != nil {
		if len(patch.Products) == 0 {
			return nil, ErrEmptyCart
		}
		order.Products = patch.Products
	}
	if patch.ShippingCost != nil {
		order.ShippingCost = *patch.ShippingCost
	}
	if patch.Products != nil || patch.ShippingCost != nil {
		order.TotalAmount = ComputeTotal(order.Products, order.ShippingCost).InexactFloat64()
	}
	order.UpdatedAt = s.now()

	if err := s.orders.Replace(ctx, order); err != nil {
		return nil, mapNotFound(err, orderID)
	}
	log.Info().Str("order_id", orderID).Msg("✏️ Commande mise à jour")
	return order, nil
}

func (s *Service) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	order, err := s.orders.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return nil, mapNotFound(err, orderID)
	}
	log.Info().Str("order_id", orderID).Str("status", string(status)).Msg("✅ Statut de commande mis à jour")
	return order, nil
}

func (s *Service) Delete(ctx context.Context, orderID string) error {
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return mapNotFound(err, orderID)
	}
	log.Info().Str("order_id", orderID).Msg("🗑️ Commande supprimée")
	return nil
}

func (s *Service) Stats(ctx context.Context) (*models.OrderStats, error) {
	return s.orders.Stats(ctx)
}

// SessionStatus sert la page de confirmation après le retour de Stripe :
// le webhook peut ne pas encore avoir créé la commande.
func (s *Service) SessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	order, err := s.orders.FindBySessionID(ctx, sessionID)
	if err == nil {
		return &SessionStatus{State: "complete", OrderID: order.OrderID, Order: order}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	sess, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayment, err)
	}
	return &SessionStatus{State: "pending", OrderID: sess.Metadata["order_id"]}, nil
}

// Track permet à un client non connecté de suivre sa commande
// à condition de connaître l'e-mail utilisé.
func (s *Service) Track(ctx context.Context, orderID, email string) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(order.CustomerEmail), strings.TrimSpace(email)) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, orderID)
	}
	return order, nil
}

// Mine liste les commandes rattachées au compte. L'e-mail saisi à la caisse
// n'est pas vérifié et ne donne donc aucun droit de lecture.
func (s *Service) Mine(ctx context.Context, userID string, page, limit int64) ([]models.Order, int64, error) {
	if userID == "" {
		return []models.Order{}, 0, nil
	}
	return s.orders.List(ctx, models.OrderFilter{UserID: userID, Page: page, Limit: limit})
}
