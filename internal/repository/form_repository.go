package repository

import (
	"context"
	"errors"

	"threadsntrends_back_end/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ContactRepository struct {
	col *mongo.Collection
}

func NewContactRepository(db *mongo.Database) *ContactRepository {
	return &ContactRepository{col: db.Collection(ContactsCollection)}
}

func (r *ContactRepository) Create(ctx context.Context, c *models.Contact) error {
	c.CreatedAt = now()
	res, err := r.col.InsertOne(ctx, c)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		c.ID = oid
	}
	return nil
}

func (r *ContactRepository) List(ctx context.Context, page, limit int64) ([]models.Contact, error) {
	cursor, err := r.col.Find(ctx, bson.M{}, pageOptions(page, limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	contacts := []models.Contact{}
	if err := cursor.All(ctx, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type MeasurementRepository struct {
	col *mongo.Collection
}

func NewMeasurementRepository(db *mongo.Database) *MeasurementRepository {
	return &MeasurementRepository{col: db.Collection(MeasurementsCollection)}
}

func (r *MeasurementRepository) Create(ctx context.Context, m *models.Measurement) error {
	m.CreatedAt = now()
	m.UpdatedAt = m.CreatedAt
	res, err := r.col.InsertOne(ctx, m)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		m.ID = oid
	}
	return nil
}

func (r *MeasurementRepository) List(ctx context.Context, userID string, page, limit int64) ([]models.Measurement, error) {
	filter := bson.M{}
	if userID != "" {
		filter["userId"] = userID
	}
	cursor, err := r.col.Find(ctx, filter, pageOptions(page, limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []models.Measurement{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MeasurementRepository) SetSubmitted(ctx context.Context, id string, submitted bool) (*models.Measurement, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"isSubmitted": submitted, "updatedAt": now()}}

	var m models.Measurement
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
