package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"threadsntrends_back_end/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderRepository stocke les commandes, toujours adressées par leur orderID.
type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection(OrdersCollection)}
}

func (r *OrderRepository) Insert(ctx context.Context, order *models.Order) error {
	res, err := r.col.InsertOne(ctx, order)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insertion commande %s: %w", order.OrderID, err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = oid
	}
	return nil
}

func (r *OrderRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"orderID": orderID})
}

func (r *OrderRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"stripe.sessionId": sessionID})
}

func (r *OrderRepository) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var order models.Order
	if err := r.col.FindOne(ctx, filter).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// List renvoie les commandes les plus récentes d'abord.
// Les critères fournis se cumulent.
func (r *OrderRepository) List(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	if f.CustomerEmail != "" {
		filter["customerEmail"] = strings.ToLower(strings.TrimSpace(f.CustomerEmail))
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cursor, err := r.col.Find(ctx, filter, pageOptions(f.Page, f.Limit))
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *OrderRepository) Replace(ctx context.Context, order *models.Order) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"orderID": order.OrderID}, order)
	if err != nil {
		return fmt.Errorf("mise à jour commande %s: %w", order.OrderID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": now()}}

	var order models.Order
	err := r.col.FindOneAndUpdate(ctx, bson.M{"orderID": orderID}, update, opts).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"orderID": orderID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *OrderRepository) Stats(ctx context.Context) (*models.OrderStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":     "$status",
			"count":   bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": "$totalAmount"},
		}}},
	}
	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status  models.OrderStatus `bson:"_id"`
		Count   int64              `bson:"count"`
		Revenue float64            `bson:"revenue"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	stats := &models.OrderStats{ByStatus: map[models.OrderStatus]int64{}}
	for _, st := range models.OrderStatuses {
		stats.ByStatus[st] = 0
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
		stats.TotalOrders += row.Count
		if row.Status != models.StatusCanceled {
			stats.Revenue += row.Revenue
		}
	}
	return stats, nil
}
