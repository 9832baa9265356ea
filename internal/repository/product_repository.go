package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"threadsntrends_back_end/internal/models"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProductRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{
		col:      db.Collection(ProductsCollection),
		counters: db.Collection(CountersCollection),
	}
}

// nextProductID réserve le prochain identifiant lisible PROD000001, PROD000002...
func (r *ProductRepository) nextProductID(ctx context.Context) (string, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "productID"},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PROD%06d", counter.Seq), nil
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	pid, err := r.nextProductID(ctx)
	if err != nil {
		return fmt.Errorf("génération productID: %w", err)
	}
	p.ProductID = pid
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	if p.ReorderLevel == 0 {
		p.ReorderLevel = models.DefaultReorderLevel
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Sizes == nil {
		p.Sizes = []string{}
	}

	res, err := r.col.InsertOne(ctx, p)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	var p models.Product
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) List(ctx context.Context, f models.ProductFilter) ([]models.Product, int64, error) {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Featured != nil {
		filter["isFeatured"] = *f.Featured
	}
	if f.Search != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
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

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// FindByIDs sert à réhydrater les résultats Elasticsearch.
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	products := []models.Product{}
	if len(oids) == 0 {
		return products, nil
	}
	cursor, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductRepository) Replace(ctx context.Context, p *models.Product) error {
	p.UpdatedAt = now()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
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

func (r *ProductRepository) AddImage(ctx context.Context, id, url string) (*models.Product, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	return r.updateOne(ctx, oid, bson.M{
		"$push": bson.M{"images": url},
		"$set":  bson.M{"updatedAt": now()},
	})
}

// SetStock fixe le stock (et éventuellement le seuil) d'un produit.
func (r *ProductRepository) SetStock(ctx context.Context, id string, stock int64, reorderLevel *int64) (*models.Product, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	set := bson.M{"stock": stock, "updatedAt": now()}
	if reorderLevel != nil {
		set["reorderLevel"] = *reorderLevel
	}
	return r.updateOne(ctx, oid, bson.M{"$set": set})
}

func (r *ProductRepository) updateOne(ctx context.Context, oid primitive.ObjectID, update bson.M) (*models.Product, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Product
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) LowStock(ctx context.Context) ([]models.Product, error) {
	filter := bson.M{"$expr": bson.M{"$lte": bson.A{"$stock", "$reorderLevel"}}}
	cursor, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "stock", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// DecrementStock retire les quantités commandées sans jamais passer sous zéro.
// Les lignes dont le productID n'est pas un produit du catalogue sont ignorées.
func (r *ProductRepository) DecrementStock(ctx context.Context, items []models.OrderProduct) ([]models.StockShortfall, error) {
	var shortfalls []models.StockShortfall
	for _, item := range items {
		oid, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			log.Debug().Str("product_id", item.ProductID).Msg("ligne hors catalogue, stock ignoré")
			continue
		}
		res, err := r.col.UpdateOne(ctx,
			bson.M{"_id": oid, "stock": bson.M{"$gte": item.Quantity}},
			bson.M{"$inc": bson.M{"stock": -item.Quantity}, "$set": bson.M{"updatedAt": now()}},
		)
		if err != nil {
			return shortfalls, err
		}
		if res.ModifiedCount == 0 {
			shortfalls = append(shortfalls, models.StockShortfall{ProductID: item.ProductID, Requested: item.Quantity})
		}
	}
	return shortfalls, nil
}
