package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultReorderLevel = 10

type Product struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID    string             `bson:"productID" json:"productID"`
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description" json:"description"`
	Price        float64            `bson:"price" json:"price"`
	Category     string             `bson:"category" json:"category"`
	Stock        int64              `bson:"stock" json:"stock"`
	ReorderLevel int64              `bson:"reorderLevel" json:"reorderLevel"`
	Images       []string           `bson:"images" json:"images"`
	Sizes        []string           `bson:"sizes" json:"sizes"`
	IsFeatured   bool               `bson:"isFeatured" json:"isFeatured"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// LowStock vaut vrai quand le stock atteint le seuil de réapprovisionnement.
func (p Product) LowStock() bool {
	return p.Stock <= p.ReorderLevel
}

type ProductFilter struct {
	Category string
	Featured *bool
	Search   string
	Page     int64
	Limit    int64
}
