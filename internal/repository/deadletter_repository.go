package repository

import (
	"context"

	"threadsntrends_back_end/internal/models"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DeadLetterRepository archive les webhooks qui n'ont pas abouti.
// C'est aussi le puits par défaut quand Kafka n'est pas configuré.
type DeadLetterRepository struct {
	col *mongo.Collection
}

func NewDeadLetterRepository(db *mongo.Database) *DeadLetterRepository {
	return &DeadLetterRepository{col: db.Collection(DeadLettersCollection)}
}

func (r *DeadLetterRepository) Record(ctx context.Context, dl models.WebhookDeadLetter) error {
	if dl.CreatedAt.IsZero() {
		dl.CreatedAt = now()
	}
	dl.ID = primitive.NilObjectID
	if _, err := r.col.InsertOne(ctx, dl); err != nil {
		return err
	}
	log.Error().
		Str("session_id", dl.SessionID).
		Str("event_id", dl.EventID).
		Str("kind", string(dl.Kind)).
		Int("attempts", dl.Attempts).
		Str("reason", dl.Reason).
		Msg("🚨 Webhook Stripe archivé en lettre morte")
	return nil
}

func (r *DeadLetterRepository) List(ctx context.Context, limit int64) ([]models.WebhookDeadLetter, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []models.WebhookDeadLetter{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
