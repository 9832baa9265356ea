package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"threadsntrends_back_end/internal/models"
	"threadsntrends_back_end/internal/repository"

	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v83"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryStore reproduit les index uniques de Mongo sur orderID et stripe.sessionId.
type memoryStore struct {
	mu         sync.Mutex
	byID       map[string]models.Order
	failInsert error
	inserts    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byID: map[string]models.Order{}}
}

func (m *memoryStore) Insert(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.failInsert != nil {
		return m.failInsert
	}
	if _, ok := m.byID[order.OrderID]; ok {
		return repository.ErrDuplicate
	}
	if order.Stripe != nil {
		for _, o := range m.byID {
			if o.Stripe != nil && o.Stripe.SessionID == order.Stripe.SessionID {
				return repository.ErrDuplicate
			}
		}
	}
	m.byID[order.OrderID] = *order
	return nil
}

func (m *memoryStore) FindByOrderID(_ context.Context, orderID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (m *memoryStore) FindBySessionID(_ context.Context, sessionID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.byID {
		if o.Stripe != nil && o.Stripe.SessionID == sessionID {
			return &o, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) List(_ context.Context, f models.OrderFilter) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.byID {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.CustomerEmail != "" && o.CustomerEmail != f.CustomerEmail {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (m *memoryStore) Replace(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[order.OrderID]; !ok {
		return repository.ErrNotFound
	}
	m.byID[order.OrderID] = *order
	return nil
}

func (m *memoryStore) UpdateStatus(_ context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o.Status = status
	m.byID[orderID] = o
	return &o, nil
}

func (m *memoryStore) Delete(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[orderID]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, orderID)
	return nil
}

func (m *memoryStore) Stats(context.Context) (*models.OrderStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &models.OrderStats{ByStatus: map[models.OrderStatus]int64{}}
	for _, o := range m.byID {
		stats.TotalOrders++
		stats.ByStatus[o.Status]++
	}
	return stats, nil
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type fakeCarts struct {
	mu      sync.Mutex
	cleared []string
	err     error
}

func (f *fakeCarts) Clear(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, userID)
	return f.err
}

// fakeCatalog ignore, comme FindByIDs, les identifiants inconnus ou mal formés.
type fakeCatalog struct {
	products map[string]models.Product
	err      error
}

func (f *fakeCatalog) FindByIDs(_ context.Context, ids []string) ([]models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func catalogProduct(hex, name string, price float64, sizes ...string) models.Product {
	oid, _ := primitive.ObjectIDFromHex(hex)
	return models.Product{ID: oid, Name: name, Price: price, Sizes: sizes, Stock: 10}
}

func sampleCatalog() *fakeCatalog {
	kurta := catalogProduct("65f000000000000000000001", "Lawn Kurta", 50, "S", "M", "L")
	dupatta := catalogProduct("65f000000000000000000002", "Chiffon Dupatta", 30)
	return &fakeCatalog{products: map[string]models.Product{
		kurta.ID.Hex():   kurta,
		dupatta.ID.Hex(): dupatta,
	}}
}

type fakeStock struct {
	mu    sync.Mutex
	calls [][]models.OrderProduct
}

func (f *fakeStock) DecrementStock(_ context.Context, items []models.OrderProduct) ([]models.StockShortfall, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, items)
	return nil, nil
}

type fakeEvents struct {
	mu        sync.Mutex
	published []models.Order
}

func (f *fakeEvents) PublishOrderCreated(_ context.Context, order models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, order)
	return nil
}

type fakeDeadLetters struct {
	mu      sync.Mutex
	records []models.WebhookDeadLetter
	err     error
}

func (f *fakeDeadLetters) Record(_ context.Context, dl models.WebhookDeadLetter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, dl)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	orders []models.Order
}

func (f *fakeNotifier) OrderCreated(_ context.Context, order models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	args := m.Called(ctx, params)
	sess, _ := args.Get(0).(*stripe.CheckoutSession)
	return sess, args.Error(1)
}

func (m *mockGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	args := m.Called(ctx, sessionID)
	sess, _ := args.Get(0).(*stripe.CheckoutSession)
	return sess, args.Error(1)
}

type fixture struct {
	svc         *Service
	store       *memoryStore
	carts       *fakeCarts
	catalog     *fakeCatalog
	stock       *fakeStock
	events      *fakeEvents
	deadLetters *fakeDeadLetters
	notifier    *fakeNotifier
	gateway     *mockGateway
}

var fixedNow = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

func newFixture() *fixture {
	f := &fixture{
		store:       newMemoryStore(),
		carts:       &fakeCarts{},
		catalog:     sampleCatalog(),
		stock:       &fakeStock{},
		events:      &fakeEvents{},
		deadLetters: &fakeDeadLetters{},
		notifier:    &fakeNotifier{},
		gateway:     &mockGateway{},
	}
	f.svc = NewService(Deps{
		Orders:      f.store,
		Carts:       f.carts,
		Gateway:     f.gateway,
		DeadLetters: f.deadLetters,
		Catalog:     f.catalog,
		Stock:       f.stock,
		Events:      f.events,
		Notifier:    f.notifier,
	}, Settings{
		ShippingCost: 99,
		Currency:     "pkr",
		SuccessURL:   "http://localhost:3000/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:    "http://localhost:3000/checkout",
	})
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func sampleAddress() models.Address {
	return models.Address{
		FirstName:  "Ayesha",
		LastName:   "Khan",
		Address:    "12 Mall Road",
		City:       "Lahore",
		PostalCode: "54000",
		Phone:      "+92 300 1234567",
	}
}

func sampleProducts() []models.OrderProduct {
	return []models.OrderProduct{
		{ProductID: "65f000000000000000000001", Name: "Lawn Kurta", Quantity: 2, Price: 50, Size: "M"},
		{ProductID: "65f000000000000000000002", Name: "Chiffon Dupatta", Quantity: 1, Price: 30},
	}
}

func sampleRequest(method models.PaymentMethod) CheckoutRequest {
	return CheckoutRequest{
		UserID:                "user-1",
		CustomerName:          "Ayesha Khan",
		CustomerEmail:         "ayesha@example.com",
		ShippingAddress:       sampleAddress(),
		BillingSameAsShipping: true,
		PaymentMethod:         method,
		Products:              sampleProducts(),
		TotalAmount:           229,
	}
}
