package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound  = errors.New("document introuvable")
	ErrDuplicate = errors.New("document déjà existant")
	ErrInvalidID = errors.New("identifiant invalide")
)

const (
	OrdersCollection       = "orders"
	ProductsCollection     = "products"
	UsersCollection        = "users"
	ContactsCollection     = "contacts"
	MeasurementsCollection = "measurements"
	ReviewsCollection      = "reviews"
	DeadLettersCollection  = "webhook_dead_letters"
	CountersCollection     = "counters"
)

// EnsureIndexes crée les index dont dépend l'idempotence des commandes.
// Un doublon sur orderID ou stripe.sessionId fait échouer l'insertion.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		OrdersCollection: {
			{Keys: bson.D{{Key: "orderID", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "stripe.sessionId", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "customerEmail", Value: 1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
		ProductsCollection: {
			{Keys: bson.D{{Key: "productID", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "category", Value: 1}}},
		},
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ReviewsCollection: {
			{Keys: bson.D{{Key: "productId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		MeasurementsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
		DeadLettersCollection: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
	}

	for name, indexes := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return err
		}
	}
	log.Info().Msg("✅ Index MongoDB en place")
	return nil
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

func pageOptions(page, limit int64) *options.FindOptions {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	return options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
}

func now() time.Time {
	return time.Now().UTC()
}
