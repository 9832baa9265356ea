package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCanceled   OrderStatus = "canceled"
)

// OrderStatuses liste les seuls statuts acceptés, en base comme sur le fil.
var OrderStatuses = []OrderStatus{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCanceled}

func (s OrderStatus) Valid() bool {
	for _, st := range OrderStatuses {
		if s == st {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentCOD  PaymentMethod = "cod"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCard || m == PaymentCOD
}

type Address struct {
	FirstName  string `bson:"firstName" json:"firstName" binding:"required,max=100"`
	LastName   string `bson:"lastName" json:"lastName" binding:"required,max=100"`
	Address    string `bson:"address" json:"address" binding:"required,max=300"`
	Apartment  string `bson:"apartment,omitempty" json:"apartment,omitempty" binding:"max=100"`
	City       string `bson:"city" json:"city" binding:"required,max=100"`
	State      string `bson:"state,omitempty" json:"state,omitempty" binding:"max=100"`
	PostalCode string `bson:"postalCode" json:"postalCode" binding:"required,max=20"`
	Phone      string `bson:"phone" json:"phone" binding:"required,max=30"`
}

// OrderProduct est une copie figée de la ligne au moment de la commande.
type OrderProduct struct {
	ProductID string  `bson:"productID" json:"productID" binding:"required,max=200"`
	Name      string  `bson:"name" json:"name" binding:"required,max=200"`
	Quantity  int64   `bson:"quantity" json:"quantity" binding:"required,gte=1,lte=1000"`
	Price     float64 `bson:"price" json:"price" binding:"gte=0"`
	Size      string  `bson:"size" json:"size" binding:"max=20"`
}

type StripeInfo struct {
	SessionID       string `bson:"sessionId" json:"sessionId"`
	PaymentIntentID string `bson:"paymentIntentId,omitempty" json:"paymentIntentId,omitempty"`
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID         string             `bson:"orderID" json:"orderID"`
	UserID          string             `bson:"userId,omitempty" json:"userId,omitempty"`
	CustomerName    string             `bson:"customerName" json:"customerName"`
	CustomerEmail   string             `bson:"customerEmail" json:"customerEmail"`
	ShippingAddress Address            `bson:"shippingAddress" json:"shippingAddress"`
	BillingAddress  Address            `bson:"billingAddress" json:"billingAddress"`
	Products        []OrderProduct     `bson:"products" json:"products"`
	TotalAmount     float64            `bson:"totalAmount" json:"totalAmount"`
	ShippingCost    float64            `bson:"shippingCost" json:"shippingCost"`
	Status          OrderStatus        `bson:"status" json:"status"`
	PaymentMethod   PaymentMethod      `bson:"paymentMethod" json:"paymentMethod"`
	Stripe          *StripeInfo        `bson:"stripe,omitempty" json:"stripe,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type OrderFilter struct {
	Status        OrderStatus
	CustomerEmail string
	UserID        string
	Page          int64
	Limit         int64
}

type OrderStats struct {
	TotalOrders int64                 `json:"totalOrders"`
	ByStatus    map[OrderStatus]int64 `json:"byStatus"`
	Revenue     float64               `json:"revenue"`
}
