package models

import (
	"time"

	"github.com/gocql/gocql"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditLog représente une action d'administration tracée dans Scylla.
type AuditLog struct {
	ID         gocql.UUID `json:"id"`
	UserID     string     `json:"user_id"`
	UserEmail  string     `json:"user_email"`
	Action     string     `json:"action"`
	Resource   string     `json:"resource"`
	ResourceID string     `json:"resource_id,omitempty"`
	IPAddress  string     `json:"ip_address"`
	UserAgent  string     `json:"user_agent"`
	Success    bool       `json:"success"`
	ErrorMsg   string     `json:"error_msg,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

type DeadLetterKind string

const (
	DeadLetterRetryable DeadLetterKind = "retryable"
	DeadLetterPermanent DeadLetterKind = "permanent"
)

// WebhookDeadLetter garde la trace d'un webhook Stripe qui n'a pas pu
// être transformé en commande.
type WebhookDeadLetter struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID   string             `bson:"eventId" json:"eventId"`
	EventType string             `bson:"eventType" json:"eventType"`
	SessionID string             `bson:"sessionId" json:"sessionId"`
	OrderID   string             `bson:"orderID,omitempty" json:"orderID,omitempty"`
	Kind      DeadLetterKind     `bson:"kind" json:"kind"`
	Reason    string             `bson:"reason" json:"reason"`
	Attempts  int                `bson:"attempts" json:"attempts"`
	Exhausted bool               `bson:"exhausted" json:"exhausted"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
