// Package orders porte le cycle de vie d'une commande : création à la caisse
// (carte via Stripe Checkout ou paiement à la livraison), réconciliation des
// webhooks Stripe et opérations d'administration.
package orders

import (
	"context"
	"errors"
	"time"

	"threadsntrends_back_end/internal/models"

	"github.com/stripe/stripe-go/v83"
)

var (
	ErrNotFound             = errors.New("commande introuvable")
	ErrEmptyCart            = errors.New("la commande doit contenir au moins un article")
	ErrTotalMismatch        = errors.New("le montant total ne correspond pas aux articles")
	ErrShippingMismatch     = errors.New("frais de livraison invalides")
	ErrInvalidStatus        = errors.New("statut de commande invalide")
	ErrInvalidPaymentMethod = errors.New("moyen de paiement invalide")
	ErrTooManyLines         = errors.New("trop d'articles pour un paiement par carte")
	ErrPayment              = errors.New("le prestataire de paiement a refusé la requête")
	ErrUnknownProduct       = errors.New("article absent du catalogue")
	ErrUnknownSize          = errors.New("taille indisponible pour cet article")
	ErrIncompleteLineItems  = errors.New("lignes de la session Stripe incomplètes")
)

type OrderStore interface {
	Insert(ctx context.Context, order *models.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	List(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error)
	Replace(ctx context.Context, order *models.Order) error
	UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error)
	Delete(ctx context.Context, orderID string) error
	Stats(ctx context.Context) (*models.OrderStats, error)
}

type CartClearer interface {
	Clear(ctx context.Context, userID string) error
}

// Catalog fournit le nom et le prix de référence des articles commandés.
type Catalog interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Product, error)
}

type StockAdjuster interface {
	DecrementStock(ctx context.Context, items []models.OrderProduct) ([]models.StockShortfall, error)
}

type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error)
}

type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order models.Order) error
}

type DeadLetterSink interface {
	Record(ctx context.Context, dl models.WebhookDeadLetter) error
}

// Notifier prévient le client ; l'implémentation ne doit pas bloquer.
type Notifier interface {
	OrderCreated(ctx context.Context, order models.Order)
}

type Settings struct {
	ShippingCost float64
	Currency     string
	SuccessURL   string
	CancelURL    string
}

type Deps struct {
	Orders      OrderStore
	Carts       CartClearer
	Gateway     PaymentGateway
	DeadLetters DeadLetterSink
	Catalog     Catalog
	Stock       StockAdjuster
	Events      EventPublisher
	Notifier    Notifier
}

type Service struct {
	orders      OrderStore
	carts       CartClearer
	gateway     PaymentGateway
	deadLetters DeadLetterSink
	catalog     Catalog
	stock       StockAdjuster
	events      EventPublisher
	notifier    Notifier
	settings    Settings

	now        func() time.Time
	newOrderID func() string
}

func NewService(deps Deps, settings Settings) *Service {
	s := &Service{
		orders:      deps.Orders,
		carts:       deps.Carts,
		gateway:     deps.Gateway,
		deadLetters: deps.DeadLetters,
		catalog:     deps.Catalog,
		stock:       deps.Stock,
		events:      deps.Events,
		notifier:    deps.Notifier,
		settings:    settings,
		now:         func() time.Time { return time.Now().UTC() },
		newOrderID:  NewOrderID,
	}
	if s.settings.Currency == "" {
		s.settings.Currency = "pkr"
	}
	return s
}

func (s *Service) ShippingCost() float64 {
	return s.settings.ShippingCost
}
