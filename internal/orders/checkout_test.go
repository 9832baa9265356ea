package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"threadsntrends_back_end/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"
)

func TestCheckoutCODCreatesPendingOrderAndClearsCart(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Checkout(context.Background(), sampleRequest(models.PaymentCOD))
	require.NoError(t, err)

	require.NotNil(t, res.Order)
	assert.Regexp(t, `^ORD-[0-9A-F]{8}$`, res.OrderID)
	assert.Equal(t, 229.0, res.Order.TotalAmount)
	assert.Equal(t, 99.0, res.Order.ShippingCost)
	assert.Equal(t, models.StatusPending, res.Order.Status)
	assert.Equal(t, models.PaymentCOD, res.Order.PaymentMethod)
	assert.Nil(t, res.Order.Stripe)
	assert.Equal(t, res.Order.ShippingAddress, res.Order.BillingAddress)

	stored, err := f.store.FindByOrderID(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", stored.UserID)

	assert.Equal(t, []string{"user-1"}, f.carts.cleared)
	assert.Len(t, f.stock.calls, 1)
	assert.Len(t, f.events.published, 1)
	assert.Len(t, f.notifier.orders, 1)
	f.gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func TestCheckoutRejectsTotalMismatch(t *testing.T) {
	f := newFixture()
	req := sampleRequest(models.PaymentCOD)
	req.TotalAmount = 130 // sans la livraison

	_, err := f.svc.Checkout(context.Background(), req)
	assert.ErrorIs(t, err, ErrTotalMismatch)
	assert.Equal(t, 0, f.store.count())
	assert.Empty(t, f.carts.cleared)
}

func TestCheckoutAcceptsRoundingWithinTolerance(t *testing.T) {
	f := newFixture()
	req := sampleRequest(models.PaymentCOD)
	req.TotalAmount = 229.004

	res, err := f.svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 229.0, res.Order.TotalAmount, "le total stocké est celui recalculé")
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	f := newFixture()
	req := sampleRequest(models.PaymentCard)
	req.Products = []models.OrderProduct{}
	req.TotalAmount = 99

	_, err := f.svc.Checkout(context.Background(), req)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutRejectsForeignShippingCost(t *testing.T) {
	f := newFixture()
	req := sampleRequest(models.PaymentCOD)
	zero := 0.0
	req.ShippingCost = &zero
	req.TotalAmount = 130

	_, err := f.svc.Checkout(context.Background(), req)
	assert.ErrorIs(t, err, ErrShippingMismatch)
}

func TestCheckoutRejectsUnknownPaymentMethod(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Checkout(context.Background(), sampleRequest("paypal"))
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
}

func TestCheckoutCODKeepsSeparateBillingAddress(t *testing.T) {
	f := newFixture()
	req := sampleRequest(models.PaymentCOD)
	billing := sampleAddress()
	billing.City = "Karachi"
	req.BillingSameAsShipping = false
	req.BillingAddress = &billing

	res, err := f.svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Karachi", res.Order.BillingAddress.City)
	assert.Equal(t, "Lahore", res.Order.ShippingAddress.City)
}

func TestCheckoutCODWithoutUserLeavesCartsAlone(t *testing.T) {
	f := newFixture()
	req := sampleRequest(models.PaymentCOD)
	req.UserID = ""

	_, err := f.svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, f.carts.cleared)
}

func TestCheckoutCODSurvivesCartClearFailure(t *testing.T) {
	f := newFixture()
	f.carts.err = errors.New("redis down")

	res, err := f.svc.Checkout(context.Background(), sampleRequest(models.PaymentCOD))
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.count())
	assert.NotEmpty(t, res.OrderID)
}

func TestCheckoutCODRetriesOnIDCollision(t *testing.T) {
	f := newFixture()
	ids := []string{"ORD-AAAAAAAA", "ORD-AAAAAAAA", "ORD-BBBBBBBB"}
	f.svc.newOrderID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	first, err := f.svc.Checkout(context.Background(), sampleRequest(models.PaymentCOD))
	require.NoError(t, err)
	second, err := f.svc.Checkout(context.Background(), sampleRequest(models.PaymentCOD))
	require.NoError(t, err)

	assert.Equal(t, "ORD-AAAAAAAA", first.OrderID)
	assert.Equal(t, "ORD-BBBBBBBB", second.OrderID)
}

func TestCheckoutCardBuildsSessionWithoutPersisting(t *testing.T) {
	f := newFixture()
	f.svc.newOrderID = func() string { return "ORD-CAFE0001" }

	var captured *stripe.CheckoutSessionParams
	f.gateway.On("CreateCheckoutSession", mock.Anything, mock.AnythingOfType("*stripe.CheckoutSessionParams")).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*stripe.CheckoutSessionParams) }).
		Return(&stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil)

	res, err := f.svc.Checkout(context.Background(), sampleRequest(models.PaymentCard))
	require.NoError(t, err)

	assert.Equal(t, "ORD-CAFE0001", res.OrderID)
	assert.Equal(t, "cs_test_1", res.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", res.URL)
	assert.Nil(t, res.Order)
	assert.Equal(t, 0, f.store.count())
	assert.Empty(t, f.carts.cleared)

	require.NotNil(t, captured)
	require.Len(t, captured.LineItems, 2)
	assert.EqualValues(t, 5000, *captured.LineItems[0].PriceData.UnitAmount)
	assert.EqualValues(t, 2, *captured.LineItems[0].Quantity)
	assert.EqualValues(t, 3000, *captured.LineItems[1].PriceData.UnitAmount)
	assert.Equal(t, "pkr", *captured.LineItems[0].PriceData.Currency)

	md := captured.Metadata
	assert.Equal(t, "ORD-CAFE0001", md["order_id"])
	assert.Equal(t, "user-1", md["userId"])
	assert.Equal(t, "M", md["product_0_size"])
	assert.Equal(t, "Default", md["product_1_size"])
	assert.Equal(t, "65f000000000000000000002", md["product_1_id"])
	assert.Equal(t, "Lahore", md["shipping_city"])
	assert.Equal(t, "Lahore", md["billing_city"])
	assert.Equal(t, "99.00", md["shipping_cost"])
	_, hasApartment := md["shipping_apartment"]
	assert.False(t, hasApartment, "les champs vides ne sont pas envoyés")

	require.Len(t, captured.ShippingOptions, 1)
	assert.EqualValues(t, 9900, *captured.ShippingOptions[0].ShippingRateData.FixedAmount.Amount)
	assert.Equal(t, "ayesha@example.com", *captured.CustomerEmail)
}

func TestCheckoutCardProcessorFailure(t *testing.T) {
	f := newFixture()
	f.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(nil, errors.New("stripe indisponible"))

	_, err := f.svc.Checkout(context.Background(), sampleRequest(models.PaymentCard))
	assert.ErrorIs(t, err, ErrPayment)
	assert.Equal(t, 0, f.store.count())
}

func TestCheckoutCardRejectsTooManyLines(t *testing.T) {
	f := newFixture()
	req := sampleRequest(models.PaymentCard)
	req.Products = nil
	for i := 0; i < 20; i++ {
		p := catalogProduct(fmt.Sprintf("65f1%020x", i), "Item", 1)
		f.catalog.products[p.ID.Hex()] = p
		req.Products = append(req.Products, models.OrderProduct{ProductID: p.ID.Hex(), Name: "Item", Quantity: 1, Price: 1})
	}
	req.TotalAmount = 119

	_, err := f.svc.Checkout(context.Background(), req)
	assert.ErrorIs(t, err, ErrTooManyLines)
	f.gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func TestCheckoutPricesLinesFromCatalog(t *testing.T) {
	f := newFixture()
	req := sampleRequest(models.PaymentCOD)
	req.Products[0].Price = 0.01
	req.Products[0].Name = "Kurta offerte"
	req.Products[1].Price = 0.01
	req.TotalAmount = 99.03

	_, err := f.svc.Checkout(context.Background(), req)
	assert.ErrorIs(t, err, ErrTotalMismatch)
	assert.Equal(t, 0, f.store.count())
	assert.Empty(t, f.carts.cleared)
	assert.Empty(t, f.stock.calls)
}

func TestCheckoutCardSendsCatalogPricesToStripe(t *testing.T) {
	f := newFixture()
	var captured *stripe.CheckoutSessionParams
	f.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*stripe.CheckoutSessionParams) }).
		Return(&stripe.CheckoutSession{ID: "cs_test_2"}, nil)

	req := sampleRequest(models.PaymentCard)
	req.Products[0].Price = 0.01
	req.Products[0].Name = "Kurta offerte"

	_, err := f.svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.EqualValues(t, 5000, *captured.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "Lawn Kurta", *captured.LineItems[0].PriceData.ProductData.Name)
}

func TestCheckoutRejectsUnknownProduct(t *testing.T) {
	f := newFixture()
	req := sampleRequest(models.PaymentCOD)
	req.Products[1].ProductID = "65f0000000000000000000ff"

	_, err := f.svc.Checkout(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnknownProduct)
	assert.Equal(t, 0, f.store.count())
}

func TestCheckoutRejectsUnavailableSize(t *testing.T) {
	f := newFixture()
	req := sampleRequest(models.PaymentCOD)
	req.Products[0].Size = "XXL"

	_, err := f.svc.Checkout(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnknownSize)
}

func TestCheckoutStoresNormalizedEmail(t *testing.T) {
	f := newFixture()
	req := sampleRequest(models.PaymentCOD)
	req.CustomerEmail = "  Ayesha@Example.COM "

	res, err := f.svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "ayesha@example.com", res.Order.CustomerEmail)
}
