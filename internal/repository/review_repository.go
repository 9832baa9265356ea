package repository

import (
	"context"
	"math"

	"threadsntrends_back_end/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ReviewRepository struct {
	col *mongo.Collection
}

func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{col: db.Collection(ReviewsCollection)}
}

func (r *ReviewRepository) Create(ctx context.Context, rev *models.Review) error {
	rev.CreatedAt = now()
	res, err := r.col.InsertOne(ctx, rev)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		rev.ID = oid
	}
	return nil
}

func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string, page, limit int64) ([]models.Review, error) {
	cursor, err := r.col.Find(ctx, bson.M{"productId": productID}, pageOptions(page, limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reviews := []models.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *ReviewRepository) Rating(ctx context.Context, productID string) (*models.ProductRating, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"productId": productID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"avg":   bson.M{"$avg": "$rating"},
			"count": bson.M{"$sum": 1},
		}}},
	}
	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	rating := &models.ProductRating{ProductID: productID}
	var row struct {
		Avg   float64 `bson:"avg"`
		Count int     `bson:"count"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		rating.AverageRating = math.Round(row.Avg*10) / 10
		rating.TotalReviews = row.Count
	}
	return rating, cursor.Err()
}
