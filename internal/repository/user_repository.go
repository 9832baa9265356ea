package repository

import (
	"context"
	"errors"

	"threadsntrends_back_end/internal/models"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(UsersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	u.CreatedAt = now()
	res, err := r.col.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpsertOAuth retrouve l'utilisateur par email et rattache le provider,
// ou le crée avec le rôle "user".
func (r *UserRepository) UpsertOAuth(ctx context.Context, provider, providerID, email, name string) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.M{
		"$set": bson.M{"provider": provider, "providerId": providerID},
		"$setOnInsert": bson.M{
			"email":     email,
			"name":      name,
			"role":      models.RoleUser,
			"createdAt": now(),
		},
	}

	var u models.User
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&u); err != nil {
		return nil, err
	}
	log.Info().Str("provider", provider).Str("email", email).Msg("🔄 Utilisateur OAuth synchronisé")
	return &u, nil
}

// UpdatePassword remplace l'empreinte du mot de passe, par exemple lors de
// la migration d'un ancien hash bcrypt.
func (r *UserRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"password": hash}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
