package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Password   string             `bson:"password,omitempty" json:"-"`
	Role       string             `bson:"role" json:"role"`
	Provider   string             `bson:"provider" json:"provider"`
	ProviderID string             `bson:"providerId,omitempty" json:"-"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}
